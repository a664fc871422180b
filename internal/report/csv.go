// Package report writes allocation results and frontiers as CSV.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"placement-optimizer/internal/model"
)

// WriteAllocationCSV writes one row per quote with a non-zero allocation.
func WriteAllocationCSV(path string, res *model.AllocationResult) error {
	return writeFile(path, func(w io.Writer) error { return EncodeAllocation(w, res) })
}

// WriteFrontierCSV writes one row per frontier point, ordered by threshold.
func WriteFrontierCSV(path string, f *model.Frontier) error {
	return writeFile(path, func(w io.Writer) error { return EncodeFrontier(w, f) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func EncodeAllocation(out io.Writer, res *model.AllocationResult) error {
	w := csv.NewWriter(out)

	header := []string{
		"quote_id",
		"carrier",
		"layer",
		"credit_rating",
		"premium",
		"capacity",
		"coverage_score",
		"fraction_allocated",
		"signed_capacity",
		"signed_premium",
		"allocation_percentage",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, a := range res.Allocated() {
		row := []string{
			strconv.Itoa(a.ID),
			a.Carrier,
			a.Layer,
			a.CreditRating,
			fmtMoney(a.Premium),
			fmtFloat(a.Capacity),
			fmtFloat(a.CoverageScore),
			fmtFloat(a.FractionAllocated),
			fmtFloat(a.SignedCapacity),
			fmtMoney(a.SignedPremium),
			fmtPercent(a.AllocationPercentage),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func EncodeFrontier(out io.Writer, f *model.Frontier) error {
	w := csv.NewWriter(out)

	header := []string{
		"option_id",
		"threshold",
		"premium",
		"average_coverage",
		"total_coverage",
		"bang_for_buck",
		"status",
		"required_carriers_included",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range f.Points {
		row := []string{
			strconv.Itoa(p.OptionID),
			fmtMoney(p.Threshold),
			fmtMoney(p.Premium),
			fmtFloat(p.AverageCoverage),
			fmtFloat(p.TotalCoverage),
			strconv.FormatFloat(p.BangForBuck, 'g', 8, 64),
			string(p.Status),
			strings.Join(p.RequiredCarriersIncluded, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtMoney(x float64) string {
	return decimal.NewFromFloat(x).StringFixedBank(2)
}

func fmtPercent(x float64) string {
	return decimal.NewFromFloat(x).Round(2).String()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
