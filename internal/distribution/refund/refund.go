// Package refund resolves refund amounts from the reason-code policy table.
package refund

import (
	"math"
	"sort"

	"tradematch_backend/platform/apperr"
	"tradematch_backend/platform/config"
)

// Policy maps refund reason codes to the fraction of the original charge
// that comes back.
type Policy struct {
	percentages map[string]float64
}

// New creates a refund policy from configuration.
func New(cfg config.RefundPolicyConfig) *Policy {
	return &Policy{percentages: cfg.GetRefundPercentages()}
}

// Compute returns the refund amount for a charge under the given reason
// code. Unknown reason codes are rejected; the result never exceeds the
// original charge.
func (p *Policy) Compute(reasonCode string, chargeCents int64) (int64, error) {
	pct, ok := p.percentages[reasonCode]
	if !ok {
		return 0, apperr.Validation("unknown refund reason code: " + reasonCode)
	}

	amount := int64(math.Round(float64(chargeCents) * pct))
	if amount > chargeCents {
		amount = chargeCents
	}
	if amount < 0 {
		amount = 0
	}
	return amount, nil
}

// Reasons lists the accepted reason codes in stable order.
func (p *Policy) Reasons() []string {
	reasons := make([]string, 0, len(p.percentages))
	for code := range p.percentages {
		reasons = append(reasons, code)
	}
	sort.Strings(reasons)
	return reasons
}
