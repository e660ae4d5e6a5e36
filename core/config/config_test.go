package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/core/config"
)

type serverConfig struct {
	Addr    string `env:"TEST_CFG_ADDR" envDefault:":9001"`
	Workers int    `env:"TEST_CFG_WORKERS" envDefault:"8"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9001", cfg.Addr)
		assert.Equal(t, 8, cfg.Workers)
	})

	t.Run("caches per type", func(t *testing.T) {
		var first serverConfig
		require.NoError(t, config.Load(&first))

		// Changed env must not be observed: the type is already cached.
		t.Setenv("TEST_CFG_ADDR", ":7777")

		var second serverConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("rejects non-pointer", func(t *testing.T) {
		assert.Error(t, config.Load(serverConfig{}))
	})

	t.Run("required variable missing", func(t *testing.T) {
		var cfg requiredConfig
		assert.Error(t, config.Load(&cfg))
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on missing required variable", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = config.MustLoad[requiredConfig]()
		})
	})
}
