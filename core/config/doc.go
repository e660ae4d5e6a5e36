// Package config provides type-safe environment variable loading with
// caching using Go generics. Each configuration type is loaded once and
// cached for subsequent calls.
//
// The package automatically loads .env files on first use and parses
// environment variables into struct fields via caarlos0/env.
//
// Basic usage:
//
//	type HubConfig struct {
//		MaxConnections int           `env:"HUB_MAX_CONNECTIONS" envDefault:"100000"`
//		IdleTimeout    time.Duration `env:"HUB_IDLE_TIMEOUT" envDefault:"5m"`
//	}
//
//	var cfg HubConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or panic on failure during startup wiring:
//	cfg := config.MustLoad[HubConfig]()
//
// Each type has its own cache entry; loading the same type twice returns
// the first result.
package config
