package allocation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	allocator, err := NewAllocator(DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)
	return allocator
}

func units(scores ...float64) []UnitInput {
	out := make([]UnitInput, len(scores))
	for i, s := range scores {
		out[i] = UnitInput{GovernanceScore: s}
	}
	return out
}

func TestAllocate_ReferenceExample(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.3,
		MinGovernance:    5,
		MaxAlloc:         60,
	}, units(6, 3, 7))
	require.NoError(t, err)
	require.Len(t, plan.Units, 3)

	// effective weights 7 and 8 split 100, neither hits the 60 cap
	assert.InDelta(t, 100*7.0/15, plan.Units[0].AllocatedCapital, 1e-9)
	assert.Equal(t, 0.0, plan.Units[1].AllocatedCapital)
	assert.InDelta(t, 100*8.0/15, plan.Units[2].AllocatedCapital, 1e-9)

	assert.True(t, plan.Units[0].Eligible)
	assert.False(t, plan.Units[1].Eligible)
	assert.Equal(t, 0.0, plan.Units[1].EffectiveWeight)
	assert.Equal(t, "unit-1", plan.Units[0].ID)

	assert.Equal(t, 2, plan.EligibleCount)
	assert.InDelta(t, 2.0/3, plan.EligibleFraction, 1e-12)
	assert.InDelta(t, 100, plan.AllocatedCapital, 1e-9)
	assert.InDelta(t, 0, plan.UnallocatedCapital, 1e-9)

	d1 := 100 * 7.0 / 15 * 0.3 / 7
	d3 := 100 * 8.0 / 15 * 0.3 / 8
	assert.InDelta(t, d1, plan.Units[0].DurationDays, 1e-9)
	assert.InDelta(t, d3, plan.Units[2].DurationDays, 1e-9)
	assert.InDelta(t, d1+d3, plan.TotalDurationDays, 1e-9)

	// both funded units hold more than 25% of capital
	assert.Equal(t, []string{"unit-1", "unit-3"}, plan.ConcentratedUnits)
	assert.False(t, plan.NoEligibleUnits)
	assert.NotEmpty(t, plan.ID)
}

func TestAllocate_CapAndRedistribution(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.3,
		MinGovernance:    5,
		MaxAlloc:         50,
	}, units(6, 3, 7))
	require.NoError(t, err)

	// unit 3 capped at 50, unit 1 takes the 3.33 left over
	assert.InDelta(t, 50, plan.Units[0].AllocatedCapital, 1e-9)
	assert.Equal(t, 0.0, plan.Units[1].AllocatedCapital)
	assert.InDelta(t, 50, plan.Units[2].AllocatedCapital, 1e-9)
	assert.InDelta(t, 0, plan.UnallocatedCapital, 1e-9)
}

func TestAllocate_SinglePassLeavesResidual(t *testing.T) {
	allocator := newTestAllocator(t)

	// two eligible units can hold at most 2 × 30 = 60 of 100
	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.5,
		MinGovernance:    5,
		MaxAlloc:         30,
	}, units(6, 2, 9))
	require.NoError(t, err)

	assert.InDelta(t, 30, plan.Units[0].AllocatedCapital, 1e-9)
	assert.Equal(t, 0.0, plan.Units[1].AllocatedCapital, "ineligible unit gets no redistribution room")
	assert.InDelta(t, 30, plan.Units[2].AllocatedCapital, 1e-9)
	assert.InDelta(t, 40, plan.UnallocatedCapital, 1e-9)
}

func TestAllocate_PartialRedistribution(t *testing.T) {
	allocator := newTestAllocator(t)

	// effective 10, 6, 4 → 50, 30, 20 before cap 40; 10 left, room 10 and 20
	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.4,
		MinGovernance:    0,
		MaxAlloc:         40,
	}, units(9, 5, 3))
	require.NoError(t, err)

	assert.InDelta(t, 40, plan.Units[0].AllocatedCapital, 1e-9)
	assert.InDelta(t, 30+10*10.0/30, plan.Units[1].AllocatedCapital, 1e-9)
	assert.InDelta(t, 20+10*20.0/30, plan.Units[2].AllocatedCapital, 1e-9)
	assert.InDelta(t, 100, plan.AllocatedCapital, 1e-9)
}

func TestAllocate_ZeroCapMeansUnbounded(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.3,
		MinGovernance:    0,
		MaxAlloc:         0,
	}, units(9, 0))
	require.NoError(t, err)

	assert.InDelta(t, 100*10.0/11, plan.Units[0].AllocatedCapital, 1e-9)
	assert.InDelta(t, 100*1.0/11, plan.Units[1].AllocatedCapital, 1e-9)
}

func TestAllocate_NoEligibleUnits(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.3,
		MinGovernance:    8,
		MaxAlloc:         60,
	}, units(6, 3, 7))
	require.NoError(t, err)

	assert.True(t, plan.NoEligibleUnits)
	assert.Equal(t, 0, plan.EligibleCount)
	for _, u := range plan.Units {
		assert.Equal(t, 0.0, u.AllocatedCapital)
		assert.Equal(t, 0.0, u.DurationDays)
	}
	assert.InDelta(t, 100, plan.UnallocatedCapital, 1e-9)
	assert.Empty(t, plan.ConcentratedUnits)
	for _, p := range plan.Sensitivity {
		assert.Equal(t, 0.0, p.Metric)
	}
}

func TestAllocate_Sensitivity(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     100,
		ShockCoefficient: 0.3,
		MinGovernance:    5,
		MaxAlloc:         60,
	}, units(6, 3, 7))
	require.NoError(t, err)

	require.Len(t, plan.Sensitivity, 10)
	assert.InDelta(t, 0.1, plan.Sensitivity[0].Param, 1e-12)
	assert.InDelta(t, 1.0, plan.Sensitivity[9].Param, 1e-12)

	for _, p := range plan.Sensitivity {
		expected := (plan.Units[0].AllocatedCapital*p.Param/7 + plan.Units[2].AllocatedCapital*p.Param/8) / 3
		assert.InDelta(t, expected, p.Metric, 1e-9)
	}

	// the sweep is restartable and matches the stored points
	var again []float64
	for _, m := range allocator.SensitivitySweep(plan) {
		again = append(again, m)
	}
	require.Len(t, again, 10)
	assert.InDelta(t, plan.Sensitivity[4].Metric, again[4], 1e-12)
}

func TestAllocate_SlowestUnit(t *testing.T) {
	allocator := newTestAllocator(t)

	plan, err := allocator.Allocate(Params{
		TotalCapital:     90,
		ShockCoefficient: 0.5,
		MinGovernance:    0,
	}, []UnitInput{{ID: "north", GovernanceScore: 2}, {ID: "south", GovernanceScore: 8}})
	require.NoError(t, err)

	// north: 90×3/12 = 22.5 → 22.5×0.5/3 = 3.75; south: 67.5×0.5/9 = 3.75 → first wins ties
	assert.Equal(t, "north", plan.SlowestUnit)
	assert.InDelta(t, 3.75, plan.SlowestDuration, 1e-9)
}

func TestAllocate_Validation(t *testing.T) {
	allocator := newTestAllocator(t)
	valid := Params{TotalCapital: 100, ShockCoefficient: 0.3, MinGovernance: 5, MaxAlloc: 60}

	tests := []struct {
		name   string
		params Params
		units  []UnitInput
	}{
		{"no units", valid, nil},
		{"negative capital", Params{TotalCapital: -1, ShockCoefficient: 0.3}, units(5)},
		{"negative coefficient", Params{TotalCapital: 1, ShockCoefficient: -0.3}, units(5)},
		{"threshold above ten", Params{TotalCapital: 1, ShockCoefficient: 0.3, MinGovernance: 11}, units(5)},
		{"negative cap", Params{TotalCapital: 1, ShockCoefficient: 0.3, MaxAlloc: -5}, units(5)},
		{"score out of range", valid, units(5, 12)},
		{"duplicate ids", valid, []UnitInput{{ID: "a", GovernanceScore: 5}, {ID: "a", GovernanceScore: 6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := allocator.Allocate(tt.params, tt.units)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestResolveShock(t *testing.T) {
	impacts := shock.DefaultImpacts()
	base := Params{TotalCapital: 100, MinGovernance: 5}

	params, err := ResolveShock(base, "", impacts)
	require.NoError(t, err)
	assert.Equal(t, base, params)

	params, err = ResolveShock(base, shock.LiquidityDrop, impacts)
	require.NoError(t, err)
	assert.Equal(t, 0.3, params.ShockCoefficient)
	assert.Equal(t, 100.0, params.TotalCapital)

	withCoefficient := base
	withCoefficient.ShockCoefficient = 0.3
	_, err = ResolveShock(withCoefficient, shock.LiquidityDrop, impacts)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = ResolveShock(base, "meteor", impacts)
	assert.True(t, errors.Is(err, domain.ErrInvalidShockType))
}

func TestAllocate_Invariants(t *testing.T) {
	allocator := newTestAllocator(t)
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(10)
		in := make([]UnitInput, n)
		for i := range in {
			in[i] = UnitInput{GovernanceScore: float64(rng.Intn(101)) / 10}
		}
		params := Params{
			TotalCapital:     rng.Float64() * 1000,
			ShockCoefficient: 0.1 + rng.Float64()*0.9,
			MinGovernance:    float64(rng.Intn(11)),
			MaxAlloc:         float64(rng.Intn(5)) * rng.Float64() * 400,
		}

		plan, err := allocator.Allocate(params, in)
		require.NoError(t, err)

		var sum float64
		for i, u := range plan.Units {
			sum += u.AllocatedCapital
			assert.GreaterOrEqual(t, u.AllocatedCapital, 0.0)
			if params.MaxAlloc > 0 {
				assert.LessOrEqual(t, u.AllocatedCapital, params.MaxAlloc+1e-6)
			}
			if in[i].GovernanceScore < params.MinGovernance {
				assert.Equal(t, 0.0, u.AllocatedCapital, "ineligible unit %d", i)
			}
		}
		assert.LessOrEqual(t, sum, params.TotalCapital+1e-6)
	}
}

func TestNewAllocator_RejectsBadOptions(t *testing.T) {
	_, err := NewAllocator(Options{ConcentrationThreshold: 0, SweepPoints: 10}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewAllocator(Options{ConcentrationThreshold: 0.25, SweepPoints: 0}, zerolog.Nop())
	assert.Error(t, err)
}
