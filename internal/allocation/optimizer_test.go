package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
	"placement-optimizer/internal/solver/mocks"
)

func TestOptimize_LayersFilledExactly(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	req := model.AllocationRequest{PremiumWeight: 1, CoverageWeight: 1, MinCredit: 3}

	for name, run := range map[string]func() (*model.AllocationResult, error){
		"continuous":   func() (*model.AllocationResult, error) { return o.OptimizeContinuous(context.Background(), req) },
		"hierarchical": func() (*model.AllocationResult, error) { return o.OptimizeHierarchical(context.Background(), req) },
	} {
		t.Run(name, func(t *testing.T) {
			res, err := run()
			require.NoError(t, err)
			require.Equal(t, model.StatusOptimal, res.Status)
			for layer, total := range layerTotals(res) {
				assert.InDelta(t, 10, total, 1e-4, layer)
			}
			for _, ls := range res.Layers {
				pct := 0.0
				for _, a := range res.Allocations {
					if a.Layer == ls.Layer {
						pct += a.AllocationPercentage
					}
				}
				assert.InDelta(t, 100, pct, 1e-3, ls.Layer)
			}
		})
	}
}

func TestOptimize_CreditFloorZeroesWeakQuotes(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	ctx := context.Background()

	// D is the cheapest quote in L1, so without a floor it is used.
	open, err := o.OptimizeContinuous(ctx, model.AllocationRequest{PremiumWeight: 1})
	require.NoError(t, err)
	require.Greater(t, carrierLayerCapacity(open, "D", "L1"), 0.0)

	for _, minCredit := range []int{3, 5} {
		res, err := o.OptimizeContinuous(ctx, model.AllocationRequest{PremiumWeight: 1, MinCredit: minCredit})
		require.NoError(t, err)
		for _, a := range res.Allocations {
			if a.CreditRatingValue < minCredit {
				assert.Zero(t, a.FractionAllocated, "quote %d (%s)", a.ID, a.Carrier)
			}
		}
	}
}

func TestOptimizeHierarchical_RequiredCarrierOnlyQuotedInOneLayer(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	res, err := o.OptimizeHierarchical(context.Background(), model.AllocationRequest{
		PremiumWeight:    1,
		RequiredCarriers: []string{"A"},
		MinCredit:        3,
	})
	require.NoError(t, err)

	assert.Greater(t, carrierLayerCapacity(res, "A", "L1"), 0.0)
	assert.InDelta(t, 10, layerTotals(res)["L1"], 1e-4)
	require.Len(t, res.RequiredCarriers, 1)
	assert.Equal(t, []string{"L1"}, res.RequiredCarriers[0].FeasibleLayers)
	assert.Equal(t, []string{"L1"}, res.RequiredCarriers[0].IncludedLayers)
	assert.Contains(t, res.Message, "Optimal. Note: required carrier A included in 1 of 3 layers.")
}

func TestOptimize_RequiredCarriersReceiveCapacity(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	req := model.AllocationRequest{PremiumWeight: 1, RequiredCarriers: []string{"X", "Y"}}

	cont, err := o.OptimizeContinuous(context.Background(), req)
	require.NoError(t, err)
	hier, err := o.OptimizeHierarchical(context.Background(), req)
	require.NoError(t, err)

	for _, res := range []*model.AllocationResult{cont, hier} {
		for _, st := range res.RequiredCarriers {
			assert.Greater(t, st.SignedCapacity, 0.0, st.Carrier)
		}
	}
	// The hierarchical variant asks for every layer the carrier quotes.
	for _, st := range hier.RequiredCarriers {
		assert.Equal(t, []string{"L1", "L2"}, st.IncludedLayers, st.Carrier)
	}
}

func TestOptimizeContinuous_Idempotent(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t), WithDegeneracyGuard(false))
	req := model.AllocationRequest{PremiumWeight: 3, CoverageWeight: 7, MinCredit: 4}

	first, err := o.OptimizeContinuous(context.Background(), req)
	require.NoError(t, err)
	second, err := o.OptimizeContinuous(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, first.ObjectiveValue, second.ObjectiveValue, 1e-9)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestOptimizeContinuous_PremiumMonotoneInPremiumWeight(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	prev := 0.0
	for i, w := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		res, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{
			PremiumWeight:  w,
			CoverageWeight: 1 - w,
		})
		require.NoError(t, err)
		premium := res.Summary.UnroundedPremium
		if i > 0 {
			assert.LessOrEqual(t, premium, prev+1e-6, "premium_weight=%g", w)
		}
		prev = premium
	}
	// At the extremes the cheapest and the best quotes win outright.
	cheap, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{PremiumWeight: 1})
	require.NoError(t, err)
	assert.InDelta(t, 75, cheap.Summary.TotalPremium, 1e-4)
	best, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{CoverageWeight: 1})
	require.NoError(t, err)
	assert.InDelta(t, 170, best.Summary.TotalPremium, 1e-4)
}

func TestOptimize_FeasibilityErrorNeverCallsSolver(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mocks.NewMockSolver(ctrl)
	s.EXPECT().Solve(gomock.Any(), gomock.Any()).Times(0)

	o, err := New(threeLayerCatalog(t), s)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  model.AllocationRequest
		code model.ErrorCode
	}{
		{"required carrier below floor", model.AllocationRequest{PremiumWeight: 1, RequiredCarriers: []string{"D"}, MinCredit: 3}, model.CodeCreditRatingViolation},
		{"unknown carrier", model.AllocationRequest{PremiumWeight: 1, RequiredCarriers: []string{"nobody"}}, model.CodeNotFound},
		{"floor above every rating", model.AllocationRequest{PremiumWeight: 1, MinCredit: 6}, model.CodeNoEligibleQuotes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.OptimizeContinuous(context.Background(), tt.req)
			e, ok := model.AsError(err)
			require.True(t, ok)
			assert.Equal(t, model.KindFeasibility, e.Kind)
			assert.Equal(t, tt.code, e.Code)

			_, err = o.OptimizeHierarchical(context.Background(), tt.req)
			require.True(t, model.IsKind(err, model.KindFeasibility))
		})
	}
}

func TestOptimize_CreditFloorAboveEveryRatingNamesLayers(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	_, err := o.OptimizeHierarchical(context.Background(), model.AllocationRequest{PremiumWeight: 1, MinCredit: 8})
	e, ok := model.AsError(err)
	require.True(t, ok)
	require.Equal(t, model.CodeNoEligibleQuotes, e.Code)
	assert.Equal(t, []string{"L1", "L2", "L3"}, e.Details["layers"])
}

func TestOptimize_DegenerateBaseline(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mocks.NewMockSolver(ctrl)
	o, err := New(threeLayerCatalog(t), s)
	require.NoError(t, err)

	_, err = o.OptimizeContinuous(context.Background(), model.AllocationRequest{
		PremiumWeight: 1,
		Baseline:      &model.Baseline{Premium: 0, Coverage: 5},
	})
	require.True(t, model.IsKind(err, model.KindDegenerateBaseline))
}

func TestOptimize_ValidationErrors(t *testing.T) {
	o := newOptimizer(t, threeLayerCatalog(t))
	tests := []struct {
		name string
		req  model.AllocationRequest
	}{
		{"negative weight", model.AllocationRequest{PremiumWeight: -1}},
		{"weight above objective tier", model.AllocationRequest{PremiumWeight: 50}},
		{"normalized zero sum", model.AllocationRequest{WeightMode: model.WeightsNormalized}},
		{"min above max", model.AllocationRequest{PremiumWeight: 1, MinCapacityPerPair: model.Float(5), MaxCapacityPerPair: model.Float(2)}},
		{"duplicate required", model.AllocationRequest{PremiumWeight: 1, RequiredCarriers: []string{"A", "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.OptimizeContinuous(context.Background(), tt.req)
			require.True(t, model.IsKind(err, model.KindValidation), "got %v", err)
		})
	}
}

func TestOptimize_WeightModesAgreeOnProportionalWeights(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	raw, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{PremiumWeight: 0.3, CoverageWeight: 0.7})
	require.NoError(t, err)
	norm, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{
		PremiumWeight: 3, CoverageWeight: 7, WeightMode: model.WeightsNormalized,
	})
	require.NoError(t, err)
	assert.InDelta(t, raw.ObjectiveValue, norm.ObjectiveValue, 1e-9)
}

func TestOptimize_SolverOutcomesAreMapped(t *testing.T) {
	tests := []struct {
		name     string
		sol      *solver.Solution
		err      error
		wantKind model.ErrorKind
		wantCode model.ErrorCode
	}{
		{"infeasible", &solver.Solution{Status: solver.Infeasible}, nil, model.KindInfeasible, model.CodeNoFeasiblePoint},
		{"timeout", &solver.Solution{Status: solver.NotSolved}, nil, model.KindSolver, model.CodeSolverTimeout},
		{"unbounded", &solver.Solution{Status: solver.Unbounded}, nil, model.KindSolver, model.CodeSolverUnbounded},
		{"backend error", &solver.Solution{Status: solver.Error}, errors.New("lp: A is singular"), model.KindSolver, model.CodeSolverFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := mocks.NewMockSolver(ctrl)
			s.EXPECT().Solve(gomock.Any(), gomock.Any()).Return(tt.sol, tt.err).Times(1)
			o, err := New(threeLayerCatalog(t), s)
			require.NoError(t, err)

			res, err := o.OptimizeContinuous(context.Background(), model.AllocationRequest{PremiumWeight: 1})
			require.Nil(t, res)
			e, ok := model.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantCode, e.Code)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestOptimizeMaxCoverage_RespectsCeiling(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	res, metrics, err := o.OptimizeMaxCoverageUnderPremiumCeiling(context.Background(), 120, model.AllocationRequest{})
	require.NoError(t, err)
	require.True(t, res.Status.Solved())

	assert.LessOrEqual(t, metrics.AchievedPremium, 120+1e-6)
	assert.InDelta(t, res.Summary.TotalCoverage, metrics.AchievedCoverage, 1e-12)
	assert.InDelta(t, metrics.AchievedCoverage/metrics.AchievedPremium, metrics.BangForBuck, 1e-12)
	for layer, total := range layerTotals(res) {
		assert.InDelta(t, 10, total, 1e-4, layer)
	}

	// Below the cheapest possible placement nothing is feasible.
	_, _, err = o.OptimizeMaxCoverageUnderPremiumCeiling(context.Background(), 50, model.AllocationRequest{})
	require.True(t, model.IsKind(err, model.KindInfeasible))
}

func TestOptimizeTargets_ReportsSlack(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	ctx := context.Background()
	req := model.AllocationRequest{PremiumWeight: 0.5, CoverageWeight: 0.5}

	tight, err := o.OptimizeTargets(ctx, req, model.Targets{MaxPremium: 50, MinCoverage: 0.95})
	require.NoError(t, err)
	// Layer equality is hard, so the targets give way instead.
	for layer, total := range layerTotals(tight) {
		assert.InDelta(t, 10, total, 1e-4, layer)
	}
	assert.Greater(t, tight.Slack.Premium, 0.0)
	assert.NotEmpty(t, tight.Slack.Coverage)
	assert.Contains(t, tight.Message, "premium target exceeded")

	loose, err := o.OptimizeTargets(ctx, req, model.Targets{MaxPremium: 1000, MinCoverage: 0.1})
	require.NoError(t, err)
	assert.True(t, loose.Slack.Empty())

	_, err = o.OptimizeTargets(ctx, req, model.Targets{MaxPremium: 0})
	require.True(t, model.IsKind(err, model.KindValidation))
}

func TestOptimize_CancelledContext(t *testing.T) {
	o := newOptimizer(t, twoLayerCatalog(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.OptimizeContinuous(ctx, model.AllocationRequest{PremiumWeight: 1})
	require.True(t, model.IsKind(err, model.KindSolver))
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, model.IsKind(err, model.KindInfeasible))
}

func TestOptimizeTargets_GuardedSolveReturnsWithinTimeout(t *testing.T) {
	o, err := New(twoLayerCatalog(t), solver.New(solver.Options{Timeout: 2 * time.Second}), WithDegeneracyGuard(true))
	require.NoError(t, err)
	req := model.AllocationRequest{PremiumWeight: 0.5, CoverageWeight: 0.5}

	done := make(chan error, 1)
	go func() {
		_, err := o.OptimizeTargets(context.Background(), req, model.Targets{MaxPremium: 50, MinCoverage: 0.95})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("OptimizeTargets still running long after the solver timeout")
	}
}
