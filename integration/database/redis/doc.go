// Package redis provides Redis client initialization and health
// checking for the chat backend's history cache.
//
// Connect validates the connection URL, dials with exponential backoff,
// and verifies connectivity with a ping before returning the client, so
// a transient Redis outage at startup is retried instead of fatal.
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
//		RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are supported.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil { ... }
package redis
