package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-optimizer/internal/model"
)

func TestEncodeAllocation_SkipsUnallocatedQuotes(t *testing.T) {
	res := &model.AllocationResult{
		Status: model.StatusOptimal,
		Allocations: []model.QuoteAllocation{
			{
				Quote:                model.Quote{ID: 0, Carrier: "A", Layer: "L1", Premium: 100, Capacity: 12, CoverageScore: 0.9, CreditRating: "A"},
				FractionAllocated:    0.5,
				SignedCapacity:       6,
				SignedPremium:        50.005,
				AllocationPercentage: 60,
			},
			{Quote: model.Quote{ID: 1, Carrier: "B", Layer: "L1", Premium: 60, Capacity: 8}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeAllocation(&buf, res))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	want := []string{"0", "A", "L1", "A", "100.00", "12.000000", "0.900000", "0.500000", "6.000000", "50.00", "60"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("allocation row mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFrontierCSV(t *testing.T) {
	f := &model.Frontier{Points: []model.FrontierPoint{
		{OptionID: 0, Threshold: 75, Premium: 75, AverageCoverage: 0.45, TotalCoverage: 9, BangForBuck: 0.12, Status: model.StatusOptimal},
		{OptionID: 1, Threshold: 170, Premium: 169.999, AverageCoverage: 0.925, TotalCoverage: 18.5, BangForBuck: 18.5 / 169.999, Status: model.StatusOptimal, RequiredCarriersIncluded: []string{"X", "Y"}},
	}}
	path := filepath.Join(t.TempDir(), "frontier.csv")
	require.NoError(t, WriteFrontierCSV(path, f))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "option_id", rows[0][0])
	assert.Equal(t, []string{"0", "75.00", "75.00", "0.450000", "9.000000", "0.12", "Optimal", ""}, rows[1])
	assert.Equal(t, "170.00", rows[2][2])
	assert.Equal(t, "X;Y", rows[2][7])
}
