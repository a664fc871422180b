package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
)

func TestDefaultLadder_TierOrdering(t *testing.T) {
	l := DefaultLadder()
	require.NoError(t, l.Validate())

	// Hard tiers outrank every soft tier and carry no penalty.
	for _, name := range []string{TierFeasibility, TierHard} {
		assert.Zero(t, l.Penalty(name))
		assert.Less(t, l.Rank(name), l.Rank(TierTargets))
	}
	assert.Less(t, l.Rank(TierTargets), l.Rank(TierDiversification))
	assert.Less(t, l.Rank(TierDiversification), l.Rank(TierObjective))

	// Each soft tier is at least an order of magnitude above the next.
	assert.GreaterOrEqual(t, l.Penalty(TierTargets), MinTierSeparation*l.Penalty(TierDiversification))
	assert.GreaterOrEqual(t, l.Penalty(TierDiversification), MinTierSeparation*l.Penalty(TierObjective))
}

func TestLadderValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Ladder) Ladder
	}{
		{"penalties too close", func(l Ladder) Ladder { l[3].Penalty = 50; return l }},
		{"soft tiers inverted", func(l Ladder) Ladder { l[2].Penalty, l[3].Penalty = l[3].Penalty, l[2].Penalty; return l }},
		{"hard tier with penalty", func(l Ladder) Ladder { l[1].Penalty = 1e6; return l }},
		{"hard tier below soft", func(l Ladder) Ladder { l[4].Hard = true; l[4].Penalty = 0; return l }},
		{"levels out of order", func(l Ladder) Ladder { l[0].Level = 9; return l }},
		{"missing tier", func(l Ladder) Ladder { return l[:4] }},
		{"objective ranked above targets", func(l Ladder) Ladder { l[2].Name, l[4].Name = l[4].Name, l[2].Name; return l }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.mutate(DefaultLadder()).Validate())
		})
	}
}

func TestNew_RejectsInvalidLadder(t *testing.T) {
	bad := DefaultLadder()
	bad[3].Penalty = bad[2].Penalty
	_, err := New(threeLayerCatalog(t), solver.New(solver.Options{}), WithLadder(bad))
	require.Error(t, err)
}

// With a per-pair cap that L2 and L3 cannot meet, the hard variant is
// infeasible while the hierarchical variant gives way on diversification and
// keeps every hard tier intact.
func TestHierarchical_DiversificationYieldsBeforeHardConstraints(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	req := model.AllocationRequest{
		PremiumWeight:      1,
		CoverageWeight:     1,
		RequiredCarriers:   []string{"A"},
		MinCredit:          3,
		Diversify:          true,
		MaxCapacityPerPair: model.Float(4),
	}

	_, err := o.OptimizeContinuous(context.Background(), req)
	e, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.KindInfeasible, e.Kind)
	assert.Contains(t, e.Message, "hierarchical")

	res, err := o.OptimizeHierarchical(context.Background(), req)
	require.NoError(t, err)
	for layer, total := range layerTotals(res) {
		assert.InDelta(t, 10, total, 1e-4, layer)
	}
	assert.Greater(t, carrierLayerCapacity(res, "A", "L1"), 0.0)
	assert.Zero(t, carrierLayerCapacity(res, "D", "L1"))

	// Only the unavoidable violation is taken: 2 units in each of L2 and L3.
	total := 0.0
	for key, v := range res.Slack.Diversification {
		assert.NotContains(t, key, "|L1")
		total += v
	}
	assert.InDelta(t, 4, total, 1e-5)
	assert.Contains(t, res.Message, "capacity limit")
}

// The diversification penalty outweighs anything the objective can gain, so
// a cheaper but over-concentrated allocation is never chosen.
func TestHierarchical_DiversificationOutweighsObjective(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	res, err := o.OptimizeHierarchical(context.Background(), model.AllocationRequest{
		PremiumWeight:      10,
		Diversify:          true,
		MaxCapacityPerPair: model.Float(5),
	})
	require.NoError(t, err)
	assert.True(t, res.Slack.Empty())
	for _, a := range res.Allocations {
		assert.LessOrEqual(t, a.SignedCapacity, 5+1e-6, a.Carrier)
	}
}
