package model

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	layers := []Layer{{Name: "L1", RequiredCapacity: 10}, {Name: "L2", RequiredCapacity: 5}}
	cat, err := NewCatalog(layers, []Quote{
		{ID: 42, Carrier: "B", Layer: "L1", Premium: 10, Capacity: 6, CoverageScore: 0.5},
		{Carrier: "A", Layer: "L2", Premium: 20, Capacity: 5, CoverageScore: 0.8},
		{Carrier: "B", Layer: "L2", Premium: 5, Capacity: 2, CoverageScore: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, cat.Quote(0).ID)
	assert.Equal(t, []string{"A", "B"}, cat.Carriers())
	assert.Equal(t, []int{1, 2}, cat.QuotesInLayer("L2"))
	assert.Equal(t, []int{2}, cat.PairIndices("B", "L2"))
	assert.True(t, cat.HasCarrier("A"))
	assert.False(t, cat.HasCarrier("C"))

	premium, coverage := cat.Totals()
	assert.Equal(t, 35.0, premium)
	assert.InDelta(t, 3+4+2, coverage, 1e-12)

	// Accessors hand out copies.
	qs := cat.Quotes()
	qs[0].Premium = 999
	assert.Equal(t, 10.0, cat.Quote(0).Premium)
}

func TestNewCatalog_Rejects(t *testing.T) {
	l := []Layer{{Name: "L1", RequiredCapacity: 10}}
	tests := []struct {
		name   string
		layers []Layer
		quotes []Quote
	}{
		{"no layers", nil, nil},
		{"duplicate layer", []Layer{{Name: "L1"}, {Name: "L1"}}, nil},
		{"unknown layer", l, []Quote{{Carrier: "A", Layer: "L9", Capacity: 1}}},
		{"zero capacity", l, []Quote{{Carrier: "A", Layer: "L1"}}},
		{"coverage above one", l, []Quote{{Carrier: "A", Layer: "L1", Capacity: 1, CoverageScore: 1.5}}},
		{"missing carrier", l, []Quote{{Layer: "L1", Capacity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.layers, tt.quotes)
			assert.Error(t, err)
		})
	}
}

func TestCreditRatings(t *testing.T) {
	v, ok := CreditRatingValue(" aa- ")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, "AAA", CreditRatingLabel(8))
	assert.Equal(t, "", CreditRatingLabel(0))
	_, ok = CreditRatingValue("BBB")
	assert.False(t, ok)

	out := NormalizeCarrierRatings([]Quote{
		{Carrier: "A", CreditRatingValue: 2},
		{Carrier: "A", CreditRatingValue: 6},
		{Carrier: "B", CreditRatingValue: 3},
	})
	assert.Equal(t, 6, out[0].CreditRatingValue)
	assert.Equal(t, "AA", out[0].CreditRating)
	assert.Equal(t, 3, out[2].CreditRatingValue)
}

func TestAllocationRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  AllocationRequest
		ok   bool
	}{
		{"defaults", AllocationRequest{PremiumWeight: 3, CoverageWeight: 3}, true},
		{"negative weight", AllocationRequest{PremiumWeight: -1}, false},
		{"NaN weight", AllocationRequest{PremiumWeight: math.NaN()}, false},
		{"infinite normalized weights", AllocationRequest{PremiumWeight: math.Inf(1), CoverageWeight: math.Inf(1), WeightMode: WeightsNormalized}, false},
		{"infinite raw weight", AllocationRequest{CoverageWeight: math.Inf(1)}, false},
		{"normalized zero sum", AllocationRequest{WeightMode: WeightsNormalized}, false},
		{"unknown mode", AllocationRequest{WeightMode: "log"}, false},
		{"duplicate carrier", AllocationRequest{RequiredCarriers: []string{"A", "A"}}, false},
		{"min above max", AllocationRequest{MaxCapacityPerPair: Float(2), MinCapacityPerPair: Float(3)}, false},
		{"factor out of range", AllocationRequest{DiversificationFactor: Float(1.5)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsKind(err, KindValidation), "%v", err)
		})
	}

	p, c := AllocationRequest{PremiumWeight: 1, CoverageWeight: 3, WeightMode: WeightsNormalized}.EffectiveWeights()
	assert.Equal(t, 0.25, p)
	assert.Equal(t, 0.75, c)
}

func TestError_Chain(t *testing.T) {
	cause := errors.New("deadline")
	err := fmt.Errorf("solve: %w", SolverError(CodeSolverTimeout, "stopped after %d nodes", 7).Wrap(cause).WithDetail("nodes", 7))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindSolver, e.Kind)
	assert.Equal(t, 7, e.Details["nodes"])
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "stopped after 7 nodes")
	assert.False(t, IsKind(cause, KindSolver))
}
