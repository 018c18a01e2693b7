package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/internal/errors"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "PORT", "GIN_MODE", "WORKERS", "DEFAULT_ALPHA", "DEFAULT_COVERAGE",
		"BARNARD_STEPS", "RESAMPLING_REPLICATES", "RNG_SEED", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS", "4")

	config, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, config.Database.Enabled())
	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, 4, config.Engine.Workers)
	assert.Equal(t, 0.05, config.Engine.DefaultAlpha)
	assert.Equal(t, 100, config.Engine.BarnardSteps)
	assert.Equal(t, 1000, config.Engine.ResamplingReplicates)
	assert.True(t, config.Metrics.Enabled)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/gostamp?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_ALPHA", "0.01")
	t.Setenv("RNG_SEED", "42")
	t.Setenv("METRICS_ENABLED", "false")

	config, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, config.Database.Enabled())
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 0.01, config.Engine.DefaultAlpha)
	assert.Equal(t, int64(42), config.Engine.RNGSeed)
	assert.False(t, config.Metrics.Enabled)
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DEFAULT_ALPHA", "1.5"},
		{"WORKERS", "0"},
		{"BARNARD_STEPS", "20000"},
		{"RESAMPLING_REPLICATES", "0"},
		{"DEFAULT_COVERAGE", "1"},
		{"GIN_MODE", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BARNARD_STEPS", "many")
	config, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 100, config.Engine.BarnardSteps)
}
