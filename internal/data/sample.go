package data

import (
	"placement-optimizer/internal/model"
)

// Layer names used by the sample tower: a $30M program in three $10M bands.
const (
	layerPrimary = "Primary $10M"
	layerSecond  = "$10M xs $10M"
	layerThird   = "$10M xs $20M"
)

type sampleRow struct {
	carrier  string
	layer    string
	premium  float64
	capacity float64
	coverage float64
	rating   string
	prefer   bool
}

// Capacity is in $M. Some carriers quote more than one layer.
var sampleRows = []sampleRow{
	{"AIG", layerPrimary, 156690, 2.66, 0.97, "A+", false},
	{"Allianz", layerPrimary, 127020, 4.20, 0.63, "AA", false},
	{"AXA", layerPrimary, 133680, 3.11, 0.80, "AA-", false},
	{"Zurich", layerPrimary, 139980, 5.56, 0.81, "AA", false},
	{"Chubb", layerPrimary, 135870, 3.98, 0.83, "AA", false},
	{"Liberty", layerPrimary, 118710, 2.66, 0.72, "A", false},
	{"Berkshire Hathaway Inc.", layerPrimary, 164370, 1.98, 0.92, "AA", true},
	{"Travelers", layerPrimary, 142350, 2.04, 0.81, "AA", true},
	{"Munich Re", layerPrimary, 135900, 2.56, 0.76, "AA", false},
	{"Swiss Re", layerPrimary, 127620, 2.78, 0.77, "AAA", false},
	{"Hannover Re", layerSecond, 27540, 2.92, 0.78, "A+", false},
	{"SCOR", layerSecond, 26310, 5.01, 0.73, "A-", false},
	{"PartnerRe", layerSecond, 25680, 2.63, 0.75, "A-", false},
	{"RenaissanceRe", layerSecond, 33690, 2.56, 0.97, "A-", false},
	{"Arch Capital", layerSecond, 24330, 3.04, 0.76, "A", false},
	{"Axis Capital", layerSecond, 27570, 2.44, 0.89, "A", false},
	{"AIG", layerSecond, 28650, 3.03, 0.81, "A+", false},
	{"Endurance", layerSecond, 21690, 3.55, 0.72, "A-", true},
	{"Aspen Re", layerSecond, 20190, 3.33, 0.68, "A-", false},
	{"Validus", layerSecond, 19110, 3.67, 0.66, "B+", true},
	{"Chubb", layerThird, 19050, 4.01, 0.91, "AA", false},
	{"Catlin", layerThird, 20040, 3.22, 0.73, "A-", false},
	{"Allied World", layerThird, 20940, 2.98, 0.77, "A-", false},
	{"Hiscox", layerThird, 21510, 2.66, 0.80, "A-", false},
	{"Amlin", layerThird, 17370, 2.44, 0.77, "A-", false},
	{"Beazley", layerThird, 19920, 3.03, 0.87, "A-", false},
	{"AXA", layerThird, 18180, 2.88, 0.86, "AA-", true},
	{"Brit", layerThird, 23820, 3.67, 0.81, "A-", false},
	{"MS Amlin", layerThird, 19920, 4.94, 0.77, "A-", false},
	{"XL Catlin", layerThird, 23250, 7, 0.82, "A-", false},
}

// SampleLayers is the three-band tower the sample quotes are written against.
func SampleLayers() []model.Layer {
	return []model.Layer{
		{Name: layerPrimary, RequiredCapacity: 10},
		{Name: layerSecond, RequiredCapacity: 10},
		{Name: layerThird, RequiredCapacity: 10},
	}
}

// SampleQuotes returns the synthetic 30-quote market with every carrier
// lifted to its best rating across layers.
func SampleQuotes() []model.Quote {
	quotes := make([]model.Quote, 0, len(sampleRows))
	for _, r := range sampleRows {
		v, _ := model.CreditRatingValue(r.rating)
		quotes = append(quotes, model.Quote{
			Carrier:           r.carrier,
			Layer:             r.layer,
			Premium:           r.premium,
			Capacity:          r.capacity,
			CoverageScore:     r.coverage,
			CreditRating:      r.rating,
			CreditRatingValue: v,
			Preferred:         r.prefer,
		})
	}
	return model.NormalizeCarrierRatings(quotes)
}

// SampleCatalog builds a catalog from SampleLayers and SampleQuotes.
func SampleCatalog() (*model.Catalog, error) {
	return model.NewCatalog(SampleLayers(), SampleQuotes())
}
