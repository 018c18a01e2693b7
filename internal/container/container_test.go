package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/app"
	"gostamp/domain/comparison"
	"gostamp/domain/stats"
	"gostamp/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: "test"},
		Engine: config.EngineConfig{
			Workers:              2,
			DefaultAlpha:         0.05,
			DefaultCoverage:      0.95,
			BarnardSteps:         50,
			ResamplingReplicates: 200,
			RNGSeed:              3,
		},
		Metrics:  config.MetricsConfig{Enabled: true},
		LogLevel: "error",
	}
}

func TestNewWithoutDatabase(t *testing.T) {
	c, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Repository)
	require.NotNil(t, c.Metrics)
	require.NotNil(t, c.APIServer())

	run, err := c.Service.RunTwoGroup(context.Background(), app.TwoGroupRequest{
		Features: []comparison.Feature{{Key: "a", Observation: stats.Observation{CountA: 8, CountB: 2, TotalA: 10, TotalB: 10}}},
		Test:     "barnards",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.05, run.Alpha)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}
