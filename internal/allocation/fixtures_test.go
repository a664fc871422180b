package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"
)

// threeLayerCatalog: carrier A only quotes L1 and is the most expensive there;
// D is cheapest in L1 but has a weak credit rating.
func threeLayerCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	c, err := model.NewCatalog(
		[]model.Layer{
			{Name: "L1", RequiredCapacity: 10},
			{Name: "L2", RequiredCapacity: 10},
			{Name: "L3", RequiredCapacity: 10},
		},
		[]model.Quote{
			{Carrier: "A", Layer: "L1", Premium: 100, Capacity: 12, CoverageScore: 0.9, CreditRatingValue: 5},
			{Carrier: "B", Layer: "L1", Premium: 60, Capacity: 8, CoverageScore: 0.7, CreditRatingValue: 5},
			{Carrier: "C", Layer: "L1", Premium: 70, Capacity: 10, CoverageScore: 0.8, CreditRatingValue: 5},
			{Carrier: "B", Layer: "L2", Premium: 50, Capacity: 10, CoverageScore: 0.7, CreditRatingValue: 5},
			{Carrier: "C", Layer: "L2", Premium: 55, Capacity: 10, CoverageScore: 0.75, CreditRatingValue: 5},
			{Carrier: "B", Layer: "L3", Premium: 40, Capacity: 10, CoverageScore: 0.6, CreditRatingValue: 5},
			{Carrier: "C", Layer: "L3", Premium: 45, Capacity: 12, CoverageScore: 0.8, CreditRatingValue: 5},
			{Carrier: "D", Layer: "L1", Premium: 30, Capacity: 10, CoverageScore: 0.5, CreditRatingValue: 2},
		},
	)
	require.NoError(t, err)
	return c
}

// twoLayerCatalog: three carriers quoting both layers with a clear
// price/quality trade-off (X best and dearest, Z cheapest and weakest).
func twoLayerCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	c, err := model.NewCatalog(
		[]model.Layer{{Name: "L1", RequiredCapacity: 10}, {Name: "L2", RequiredCapacity: 10}},
		[]model.Quote{
			{Carrier: "X", Layer: "L1", Premium: 90, Capacity: 10, CoverageScore: 0.95, CreditRatingValue: 6},
			{Carrier: "Y", Layer: "L1", Premium: 60, Capacity: 10, CoverageScore: 0.7, CreditRatingValue: 5},
			{Carrier: "Z", Layer: "L1", Premium: 40, Capacity: 10, CoverageScore: 0.4, CreditRatingValue: 4},
			{Carrier: "X", Layer: "L2", Premium: 80, Capacity: 10, CoverageScore: 0.9, CreditRatingValue: 6},
			{Carrier: "Y", Layer: "L2", Premium: 50, Capacity: 10, CoverageScore: 0.65, CreditRatingValue: 5},
			{Carrier: "Z", Layer: "L2", Premium: 35, Capacity: 10, CoverageScore: 0.5, CreditRatingValue: 4},
		},
	)
	require.NoError(t, err)
	return c
}

func newOptimizer(t *testing.T, cat *model.Catalog, opts ...Option) *Optimizer {
	t.Helper()
	o, err := New(cat, solver.New(solver.Options{Timeout: 30 * time.Second}), opts...)
	require.NoError(t, err)
	return o
}

func layerTotals(res *model.AllocationResult) map[string]float64 {
	out := map[string]float64{}
	for _, a := range res.Allocations {
		out[a.Layer] += a.SignedCapacity
	}
	return out
}

func carrierLayerCapacity(res *model.AllocationResult, carrier, layer string) float64 {
	total := 0.0
	for _, a := range res.Allocations {
		if a.Carrier == carrier && a.Layer == layer {
			total += a.SignedCapacity
		}
	}
	return total
}
