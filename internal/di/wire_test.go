package di

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/govsim/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:          8080,
		SolverTimeout: time.Second,
		Dataset:       &config.DatasetConfig{},
		Model:         config.DefaultModel(),
	}
}

func TestWire(t *testing.T) {
	container, err := Wire(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)

	assert.NotNil(t, container.Scorer)
	assert.NotNil(t, container.ShockModel)
	assert.NotNil(t, container.Allocator)
	assert.NotNil(t, container.Optimizer)
	assert.NotNil(t, container.Sessions)
	assert.Nil(t, container.Datasets, "no bucket configured")

	assert.Equal(t, time.Second, container.Optimizer.Options().SolverTimeout)
}

func TestWire_InvalidModel(t *testing.T) {
	cfg := testConfig()
	cfg.Model.GovernanceWeights.Transparency = 0.9

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "governance scorer")
}

func TestInitializeServices_DefaultsModel(t *testing.T) {
	cfg := testConfig()
	cfg.Model = nil

	container := &Container{}
	require.NoError(t, InitializeServices(container, cfg, zerolog.Nop()))
	assert.Equal(t, config.DefaultModel(), container.Model)
}
