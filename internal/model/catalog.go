package model

import (
	"errors"
	"fmt"
	"sort"
)

// Catalog is the read-only quote table shared by every solve.
// It is safe for concurrent use: nothing mutates it after NewCatalog returns,
// and every accessor returns a copy.
type Catalog struct {
	layers    []Layer
	quotes    []Quote
	byLayer   map[string][]int
	byCarrier map[string][]int
	carriers  []string
}

// NewCatalog validates the quotes against the layer set and indexes them.
// Quote IDs are reassigned to their position in the catalog.
func NewCatalog(layers []Layer, quotes []Quote) (*Catalog, error) {
	if len(layers) == 0 {
		return nil, errors.New("catalog needs at least one layer")
	}
	c := &Catalog{
		layers:    append([]Layer(nil), layers...),
		quotes:    make([]Quote, len(quotes)),
		byLayer:   map[string][]int{},
		byCarrier: map[string][]int{},
	}
	for _, l := range layers {
		if l.Name == "" {
			return nil, errors.New("layer name is required")
		}
		if l.RequiredCapacity < 0 {
			return nil, fmt.Errorf("layer %q: required_capacity must be >= 0", l.Name)
		}
		if _, dup := c.byLayer[l.Name]; dup {
			return nil, fmt.Errorf("duplicate layer %q", l.Name)
		}
		c.byLayer[l.Name] = nil
	}
	for i, q := range quotes {
		q.ID = i
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byLayer[q.Layer]; !ok {
			return nil, fmt.Errorf("quote %d (%s): unknown layer %q", i, q.Carrier, q.Layer)
		}
		c.quotes[i] = q
		c.byLayer[q.Layer] = append(c.byLayer[q.Layer], i)
		if _, seen := c.byCarrier[q.Carrier]; !seen {
			c.carriers = append(c.carriers, q.Carrier)
		}
		c.byCarrier[q.Carrier] = append(c.byCarrier[q.Carrier], i)
	}
	sort.Strings(c.carriers)
	return c, nil
}

func (c *Catalog) Len() int { return len(c.quotes) }

func (c *Catalog) Quote(i int) Quote { return c.quotes[i] }

func (c *Catalog) Quotes() []Quote {
	return append([]Quote(nil), c.quotes...)
}

func (c *Catalog) Layers() []Layer {
	return append([]Layer(nil), c.layers...)
}

func (c *Catalog) Layer(name string) (Layer, bool) {
	for _, l := range c.layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// Carriers returns carrier names sorted alphabetically.
func (c *Catalog) Carriers() []string {
	return append([]string(nil), c.carriers...)
}

func (c *Catalog) HasCarrier(carrier string) bool {
	_, ok := c.byCarrier[carrier]
	return ok
}

// QuotesInLayer returns catalog indices of quotes in the layer.
func (c *Catalog) QuotesInLayer(layer string) []int {
	return append([]int(nil), c.byLayer[layer]...)
}

// QuotesForCarrier returns catalog indices of the carrier's quotes.
func (c *Catalog) QuotesForCarrier(carrier string) []int {
	return append([]int(nil), c.byCarrier[carrier]...)
}

// PairIndices returns catalog indices for one (carrier, layer) pair.
func (c *Catalog) PairIndices(carrier, layer string) []int {
	var out []int
	for _, i := range c.byCarrier[carrier] {
		if c.quotes[i].Layer == layer {
			out = append(out, i)
		}
	}
	return out
}

// Totals sums premium and coverage value over the whole catalog. These are the
// default normalization baselines.
func (c *Catalog) Totals() (premium, coverage float64) {
	for _, q := range c.quotes {
		premium += q.Premium
		coverage += q.CoverageValue()
	}
	return premium, coverage
}
