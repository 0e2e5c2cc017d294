// Package pricing computes the credit price of a lead offer. The engine is
// pure: callers load the rate tables and the engine applies the multiplier
// chain. Prices are cents; 100 cents is one credit.
package pricing

import (
	"math"
	"strings"

	"tradematch_backend/platform/config"
)

const (
	// fallbackBasePriceCents applies when no pricing tier covers the
	// lead's budget.
	fallbackBasePriceCents int64 = 500

	// defaultBudgetCents is assumed when a lead carries no budget at all.
	defaultBudgetCents int64 = 50000

	// roundingStepCents snaps quotes to the nearest half credit.
	roundingStepCents int64 = 50
)

// Tier maps a budget band to a base price. A nil MaxBudgetCents means the
// band is open-ended.
type Tier struct {
	MinBudgetCents int64
	MaxBudgetCents *int64
	PriceCents     int64
}

// Rates are the pricing tables loaded from storage. Multiplier keys are
// lowercase categories and uppercase postcode area prefixes; absent keys
// mean a neutral 1.0.
type Rates struct {
	Tiers               []Tier
	CategoryMultipliers map[string]float64
	ZoneMultipliers     map[string]float64
}

// Input is the lead being priced.
type Input struct {
	Category       string
	Postcode       string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	QualityScore   int
}

// Quote is a priced lead with the factors that produced it.
type Quote struct {
	PriceCents         int64   `json:"priceCents"`
	BasePriceCents     int64   `json:"basePriceCents"`
	CategoryMultiplier float64 `json:"categoryMultiplier"`
	ZoneMultiplier     float64 `json:"zoneMultiplier"`
	QualityMultiplier  float64 `json:"qualityMultiplier"`
}

// Engine prices leads under the configured floor and ceiling.
type Engine struct {
	floorCents   int64
	ceilingCents int64
}

// New creates a pricing engine from the pricing policy configuration.
func New(cfg config.PricingPolicyConfig) *Engine {
	return &Engine{
		floorCents:   cfg.GetPriceFloorCents(),
		ceilingCents: cfg.GetPriceCeilingCents(),
	}
}

// Price quotes a lead: base price by budget tier, then category, location
// zone and quality multipliers, rounded to the nearest half credit and
// clamped to the configured bounds.
func (e *Engine) Price(in Input, rates Rates) Quote {
	budget := averageBudget(in.BudgetMinCents, in.BudgetMaxCents)
	base := basePrice(budget, rates.Tiers)

	catMult := multiplier(rates.CategoryMultipliers, strings.ToLower(strings.TrimSpace(in.Category)))
	zoneMult := multiplier(rates.ZoneMultipliers, postcodeArea(in.Postcode))
	qualMult := qualityMultiplier(in.QualityScore)

	price := roundToStep(float64(base) * catMult * zoneMult * qualMult)
	if price < e.floorCents {
		price = e.floorCents
	}
	if price > e.ceilingCents {
		price = e.ceilingCents
	}

	return Quote{
		PriceCents:         price,
		BasePriceCents:     base,
		CategoryMultiplier: catMult,
		ZoneMultiplier:     zoneMult,
		QualityMultiplier:  qualMult,
	}
}

func averageBudget(min, max *int64) int64 {
	switch {
	case min != nil && max != nil:
		return (*min + *max) / 2
	case min != nil:
		return *min
	case max != nil:
		return *max
	default:
		return defaultBudgetCents
	}
}

func basePrice(budget int64, tiers []Tier) int64 {
	for _, tier := range tiers {
		if budget < tier.MinBudgetCents {
			continue
		}
		if tier.MaxBudgetCents != nil && budget >= *tier.MaxBudgetCents {
			continue
		}
		return tier.PriceCents
	}
	return fallbackBasePriceCents
}

func multiplier(table map[string]float64, key string) float64 {
	if m, ok := table[key]; ok && m > 0 {
		return m
	}
	return 1.0
}

// qualityMultiplier rewards well-qualified leads and discounts thin ones.
func qualityMultiplier(score int) float64 {
	switch {
	case score >= 80:
		return 1.30
	case score >= 60:
		return 1.00
	default:
		return 0.80
	}
}

// postcodeArea extracts the leading letters of a UK postcode, e.g. "SW" from
// "SW1A 1AA".
func postcodeArea(pc string) string {
	pc = strings.ToUpper(strings.TrimSpace(pc))
	for i := 0; i < len(pc); i++ {
		if pc[i] < 'A' || pc[i] > 'Z' {
			return pc[:i]
		}
	}
	return pc
}

func roundToStep(cents float64) int64 {
	step := float64(roundingStepCents)
	return int64(math.Round(cents/step) * step)
}
