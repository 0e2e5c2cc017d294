package service

import (
	"fmt"
	"strings"
)

// postcodeDistrict reduces a full postcode to its outward code, e.g.
// "SW1A 1AA" to "SW1A". The inward part of a UK postcode is always three
// characters.
func postcodeDistrict(pc string) string {
	pc = strings.ToUpper(strings.TrimSpace(pc))
	if i := strings.IndexByte(pc, ' '); i > 0 {
		return pc[:i]
	}
	if len(pc) > 3 {
		return pc[:len(pc)-3]
	}
	return pc
}

// budgetBandsCents are the upper bounds of the preview budget bands, in
// cents. Vendors see a band, never the customer's exact figure.
var budgetBandsCents = []int64{25000, 50000, 100000, 250000, 500000}

// budgetBand buckets the lead's average budget into a coarse label.
func budgetBand(min, max *int64) string {
	var avg int64
	switch {
	case min != nil && max != nil:
		avg = (*min + *max) / 2
	case min != nil:
		avg = *min
	case max != nil:
		avg = *max
	default:
		return "unspecified"
	}

	lower := int64(0)
	for _, upper := range budgetBandsCents {
		if avg < upper {
			if lower == 0 {
				return fmt.Sprintf("under £%d", upper/100)
			}
			return fmt.Sprintf("£%d-£%d", lower/100, upper/100)
		}
		lower = upper
	}
	return fmt.Sprintf("over £%d", lower/100)
}
