package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"placement-optimizer/internal/model"
)

// CatalogFile is the on-disk and over-the-wire shape of a quote market.
type CatalogFile struct {
	SubmissionID string        `json:"submission_id,omitempty"`
	Layers       []model.Layer `json:"layers,omitempty"`
	Quotes       []model.Quote `json:"quotes"`
}

// LoadCatalogJSON reads a CatalogFile from path. Layers in the file win over
// defaultLayers; defaultLayers is used when the file lists none.
func LoadCatalogJSON(path string, defaultLayers []model.Layer) (*model.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cf, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf.Catalog(defaultLayers)
}

func DecodeCatalog(r io.Reader) (*CatalogFile, error) {
	var cf CatalogFile
	if err := json.NewDecoder(r).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &cf, nil
}

// Catalog resolves rating labels, lifts carriers to their best rating and
// validates the result.
func (cf *CatalogFile) Catalog(defaultLayers []model.Layer) (*model.Catalog, error) {
	layers := cf.Layers
	if len(layers) == 0 {
		layers = defaultLayers
	}
	quotes := make([]model.Quote, len(cf.Quotes))
	for i, q := range cf.Quotes {
		if q.CreditRatingValue == 0 && q.CreditRating != "" {
			v, ok := model.CreditRatingValue(q.CreditRating)
			if !ok {
				return nil, fmt.Errorf("quote %d (%s): unknown credit rating %q", i, q.Carrier, q.CreditRating)
			}
			q.CreditRatingValue = v
		}
		quotes[i] = q
	}
	return model.NewCatalog(layers, model.NormalizeCarrierRatings(quotes))
}
