// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"

	s3client "github.com/aristath/govsim/internal/clients/s3"
	"github.com/aristath/govsim/internal/config"
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/aristath/govsim/internal/session"
	"github.com/rs/zerolog"
)

// InitializeServices builds the simulation components from the model coefficients
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	model := cfg.Model
	if model == nil {
		model = config.DefaultModel()
	}
	container.Model = model

	scorer, err := governance.NewScorer(model.GovernanceWeights)
	if err != nil {
		return fmt.Errorf("failed to create governance scorer: %w", err)
	}
	container.Scorer = scorer

	shockModel, err := shock.NewModel(model.ShockImpacts, model.DegradationRate, model.MaxPathDays, log)
	if err != nil {
		return fmt.Errorf("failed to create shock model: %w", err)
	}
	container.ShockModel = shockModel

	allocator, err := allocation.NewAllocator(model.AllocationOptions(), log)
	if err != nil {
		return fmt.Errorf("failed to create capital allocator: %w", err)
	}
	container.Allocator = allocator

	optimizer, err := optimization.NewOptimizer(
		model.OptimizationOptions(cfg.SolverTimeout),
		optimization.NewMVOptimizer(log),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio optimizer: %w", err)
	}
	container.Optimizer = optimizer

	container.Sessions = session.NewStore()

	log.Info().
		Int("shock_types", len(model.ShockImpacts)).
		Float64("risk_aversion", model.RiskAversion).
		Dur("solver_timeout", cfg.SolverTimeout).
		Msg("Simulation services initialized")

	return nil
}

// InitializeClients connects the optional dataset store
func InitializeClients(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if !cfg.Dataset.Enabled() {
		log.Info().Msg("Dataset store disabled, uploads only")
		return nil
	}

	source, err := s3client.Connect(ctx, s3client.Options{
		Bucket:          cfg.Dataset.Bucket,
		Region:          cfg.Dataset.Region,
		Endpoint:        cfg.Dataset.Endpoint,
		AccessKeyID:     cfg.Dataset.AccessKeyID,
		SecretAccessKey: cfg.Dataset.SecretAccessKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to connect dataset store: %w", err)
	}
	container.Datasets = source
	return nil
}
