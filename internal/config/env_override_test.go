package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("input and output dirs", func(t *testing.T) {
		t.Setenv("DEGPIPE_INPUT_DIR", "/mnt/raw")
		t.Setenv("DEGPIPE_OUTPUT_DIR", "/mnt/out")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/mnt/raw", cfg.Input.Dir)
		assert.Equal(t, "/mnt/out", cfg.Output.Dir)
	})

	t.Run("log level", func(t *testing.T) {
		t.Setenv("DEGPIPE_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("unset env keeps file values", func(t *testing.T) {
		t.Setenv("DEGPIPE_INPUT_DIR", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "data", cfg.Input.Dir)
	})
}
