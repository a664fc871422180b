package model

import (
	"errors"
	"fmt"
	"strings"
)

// Quote is a carrier's offer to write capacity in one layer.
// Units:
// - Premium: currency (whole placement, i.e. for the full offered capacity)
// - Capacity: capacity units (the sample catalog uses $M)
// - CoverageScore: 0..1 quality score
// - CreditRatingValue: ordinal, higher is better (B+=1 .. AAA=8)
type Quote struct {
	ID                int     `json:"id"`
	Carrier           string  `json:"carrier"`
	Layer             string  `json:"layer"`
	Premium           float64 `json:"premium"`
	Capacity          float64 `json:"capacity"`
	CoverageScore     float64 `json:"coverage_score"`
	CreditRating      string  `json:"credit_rating,omitempty"`
	CreditRatingValue int     `json:"credit_rating_value"`
	Preferred         bool    `json:"preferred,omitempty"`
}

func (q Quote) Validate() error {
	if strings.TrimSpace(q.Carrier) == "" {
		return errors.New("carrier is required")
	}
	if strings.TrimSpace(q.Layer) == "" {
		return errors.New("layer is required")
	}
	if q.Capacity <= 0 {
		return fmt.Errorf("quote %d (%s): capacity must be > 0", q.ID, q.Carrier)
	}
	if q.Premium < 0 {
		return fmt.Errorf("quote %d (%s): premium must be >= 0", q.ID, q.Carrier)
	}
	if q.CoverageScore < 0 || q.CoverageScore > 1 {
		return fmt.Errorf("quote %d (%s): coverage_score must be in [0, 1]", q.ID, q.Carrier)
	}
	if q.CreditRatingValue < 0 {
		return fmt.Errorf("quote %d (%s): credit_rating_value must be >= 0", q.ID, q.Carrier)
	}
	return nil
}

// CoverageValue is the quality-weighted capacity the quote brings if fully allocated.
func (q Quote) CoverageValue() float64 {
	return q.CoverageScore * q.Capacity
}

// Layer is a band of capacity that must be filled exactly.
type Layer struct {
	Name             string  `json:"name"`
	RequiredCapacity float64 `json:"required_capacity"`
}

var creditLadder = []string{"B+", "A-", "A", "A+", "AA-", "AA", "AA+", "AAA"}

// CreditRatingValue maps a rating label to its ordinal value (B+=1 .. AAA=8).
func CreditRatingValue(label string) (int, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for i, l := range creditLadder {
		if l == label {
			return i + 1, true
		}
	}
	return 0, false
}

// CreditRatingLabel is the inverse of CreditRatingValue. Unknown values map to "".
func CreditRatingLabel(value int) string {
	if value < 1 || value > len(creditLadder) {
		return ""
	}
	return creditLadder[value-1]
}

// NormalizeCarrierRatings lifts every quote of a carrier to that carrier's best
// rating, so a carrier is rated consistently across layers.
func NormalizeCarrierRatings(quotes []Quote) []Quote {
	best := map[string]int{}
	for _, q := range quotes {
		if q.CreditRatingValue > best[q.Carrier] {
			best[q.Carrier] = q.CreditRatingValue
		}
	}
	out := make([]Quote, len(quotes))
	for i, q := range quotes {
		q.CreditRatingValue = best[q.Carrier]
		if l := CreditRatingLabel(q.CreditRatingValue); l != "" {
			q.CreditRating = l
		}
		out[i] = q
	}
	return out
}
