package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> loaded config value
)

// Load parses environment variables into cfg (a struct pointer). The
// result is cached per concrete type: repeated loads of the same type
// return the first parsed value.
func Load(cfg any) error {
	dotenvOnce.Do(func() {
		// Missing .env files are fine; real deployments use the process env.
		_ = godotenv.Load()
	})

	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: Load expects a non-nil struct pointer, got %T", cfg)
	}

	typ := v.Elem().Type()
	if cached, ok := cache.Load(typ); ok {
		v.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s from environment: %w", typ, err)
	}

	actual, _ := cache.LoadOrStore(typ, v.Elem().Interface())
	v.Elem().Set(reflect.ValueOf(actual))
	return nil
}

// MustLoad is Load for startup wiring: it panics on failure.
func MustLoad[T any]() T {
	var cfg T
	if err := Load(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
