package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
	"gopkg.in/yaml.v3"
)

// Model holds the fixed coefficients of the simulation. It is read-only after Load.
type Model struct {
	GovernanceWeights      governance.Weights `yaml:"governance_weights"`
	ShockImpacts           shock.ImpactTable  `yaml:"shock_impacts"`
	DegradationRate        float64            `yaml:"degradation_rate"`
	MaxPathDays            int                `yaml:"max_path_days"`
	RiskFreeRate           float64            `yaml:"risk_free_rate"`
	RiskAversion           float64            `yaml:"risk_aversion"`
	PlaceholderVariance    float64            `yaml:"placeholder_variance"`
	ReturnBump             float64            `yaml:"return_bump"`
	ConcentrationThreshold float64            `yaml:"concentration_threshold"`
	Sweep                  SweepConfig        `yaml:"sweep"`
}

// SweepConfig is the linearly spaced shock-coefficient sweep.
type SweepConfig struct {
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
	Points int     `yaml:"points"`
}

// DefaultModel returns the compiled-in coefficients.
func DefaultModel() *Model {
	return &Model{
		GovernanceWeights:      governance.DefaultWeights(),
		ShockImpacts:           shock.DefaultImpacts(),
		DegradationRate:        shock.DefaultDegradationRate,
		MaxPathDays:            shock.DefaultMaxPathDays,
		RiskFreeRate:           optimization.DefaultRiskFreeRate,
		RiskAversion:           optimization.DefaultRiskAversion,
		PlaceholderVariance:    optimization.DefaultPlaceholderVariance,
		ReturnBump:             optimization.DefaultReturnBump,
		ConcentrationThreshold: allocation.DefaultConcentrationThreshold,
		Sweep: SweepConfig{
			Start:  allocation.DefaultSweepStart,
			End:    allocation.DefaultSweepEnd,
			Points: allocation.DefaultSweepPoints,
		},
	}
}

// LoadModel reads a YAML coefficients file. Keys left out keep their default values; unknown
// keys are rejected.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	m, err := DecodeModel(f)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return m, nil
}

// DecodeModel decodes YAML coefficients on top of the defaults and validates the result.
func DecodeModel(r io.Reader) (*Model, error) {
	m := DefaultModel()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the coefficients are usable.
func (m *Model) Validate() error {
	if err := m.GovernanceWeights.Validate(); err != nil {
		return err
	}
	if err := m.ShockImpacts.Validate(); err != nil {
		return err
	}
	if m.DegradationRate <= 0 || m.DegradationRate >= 1 {
		return fmt.Errorf("degradation rate must be in (0, 1), got %g", m.DegradationRate)
	}
	if m.MaxPathDays < 1 {
		return fmt.Errorf("max path days must be positive, got %d", m.MaxPathDays)
	}
	if m.RiskAversion < 0 {
		return fmt.Errorf("risk aversion must be non-negative, got %g", m.RiskAversion)
	}
	if m.PlaceholderVariance < 0 {
		return fmt.Errorf("placeholder variance must be non-negative, got %g", m.PlaceholderVariance)
	}
	if m.ReturnBump < 0 {
		return fmt.Errorf("return bump must be non-negative, got %g", m.ReturnBump)
	}
	if m.ConcentrationThreshold <= 0 || m.ConcentrationThreshold > 1 {
		return fmt.Errorf("concentration threshold must be in (0, 1], got %g", m.ConcentrationThreshold)
	}
	if m.Sweep.Points < 1 {
		return fmt.Errorf("sweep needs at least one point, got %d", m.Sweep.Points)
	}
	if m.Sweep.Start > m.Sweep.End {
		return fmt.Errorf("sweep start %g is after end %g", m.Sweep.Start, m.Sweep.End)
	}
	return nil
}

// AllocationOptions derives the capital allocator settings.
func (m *Model) AllocationOptions() allocation.Options {
	return allocation.Options{
		ConcentrationThreshold: m.ConcentrationThreshold,
		SweepStart:             m.Sweep.Start,
		SweepEnd:               m.Sweep.End,
		SweepPoints:            m.Sweep.Points,
	}
}

// OptimizationOptions derives the portfolio optimizer settings.
func (m *Model) OptimizationOptions(solverTimeout time.Duration) optimization.Options {
	return optimization.Options{
		RiskFreeRate:        m.RiskFreeRate,
		RiskAversion:        m.RiskAversion,
		PlaceholderVariance: m.PlaceholderVariance,
		ReturnBump:          m.ReturnBump,
		SolverTimeout:       solverTimeout,
	}
}
