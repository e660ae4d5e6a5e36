package logger

import (
	"io"
	"log/slog"
	"os"
)

type config struct {
	level  slog.Level
	json   bool
	output io.Writer
	attrs  []slog.Attr
}

// Option configures the logger factory.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithJSONFormatter switches output to JSON (the production format).
func WithJSONFormatter() Option {
	return func(c *config) {
		c.json = true
	}
}

// WithTextFormatter switches output to human-readable text.
func WithTextFormatter() Option {
	return func(c *config) {
		c.json = false
	}
}

// WithOutput redirects log output; useful for tests.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithDevelopment configures text output at debug level tagged with the
// application name.
func WithDevelopment(app string) Option {
	return func(c *config) {
		c.json = false
		c.level = slog.LevelDebug
		c.attrs = append(c.attrs, slog.String("app", app))
	}
}

// WithProduction configures JSON output at info level tagged with the
// application name.
func WithProduction(app string) Option {
	return func(c *config) {
		c.json = true
		c.level = slog.LevelInfo
		c.attrs = append(c.attrs, slog.String("app", app))
	}
}

// New creates a slog.Logger. Defaults to text format at info level on
// stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ho := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler
	if cfg.json {
		handler = slog.NewJSONHandler(cfg.output, ho)
	} else {
		handler = slog.NewTextHandler(cfg.output, ho)
	}
	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(handler)
}

// SetAsDefault installs log as the process-wide default logger.
func SetAsDefault(log *slog.Logger) {
	slog.SetDefault(log)
}
