/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every simulation component built from configuration. Components are
 * read-only after wiring, except the session store which is safe for concurrent use.
 */
package di

import (
	s3client "github.com/aristath/govsim/internal/clients/s3"
	"github.com/aristath/govsim/internal/config"
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/aristath/govsim/internal/session"
)

// Container holds all application dependencies
type Container struct {
	Model *config.Model

	// Simulation core
	Scorer     *governance.Scorer
	ShockModel *shock.Model
	Allocator  *allocation.Allocator
	Optimizer  *optimization.Optimizer

	// Caller-owned state
	Sessions *session.Store

	// Optional dataset store (nil when no bucket is configured)
	Datasets *s3client.DatasetSource
}
