package di

import (
	"context"
	"fmt"

	"github.com/aristath/govsim/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize services from the model coefficients
// 2. Connect optional clients
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if err := InitializeServices(container, cfg, log); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := InitializeClients(ctx, container, cfg, log); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	return container, nil
}
