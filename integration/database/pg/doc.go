// Package pg provides PostgreSQL connection management with migrations
// and health checking for the chat backend.
//
// It wraps the pgx driver with retry logic on connect, connection pool
// tuning, and goose-based schema migrations. Connection establishment
// retries with exponential backoff so a database restart during deploy
// does not take the service down with it.
//
// # Configuration
//
// All configuration is handled through the Config struct with
// environment variable mapping:
//
//	type Config struct {
//		ConnectionString  string        `env:"PG_CONN_URL,required"`
//		MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//		MinIdleConns      int32         `env:"PG_MIN_IDLE_CONNS" envDefault:"5"`
//		HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
//		MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
//		MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
//		RetryAttempts     int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval     time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
//		MigrationsPath    string        `env:"PG_MIGRATIONS_PATH" envDefault:"migrations"`
//		MigrationsTable   string        `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
//	}
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		return err
//	}
//
// Healthcheck returns a probe function for readiness endpoints:
//
//	check := pg.Healthcheck(pool)
//	if err := check(ctx); err != nil { ... }
//
// # Transactions
//
// WithTx and TxFromContext propagate a pgx.Tx through context so a
// storage method can participate in a caller-opened transaction without
// changing its signature. Methods fall back to the pool when no
// transaction is present.
package pg
