package pricing

import "testing"

type testPolicy struct {
	floor, ceiling int64
}

func (p testPolicy) GetPriceFloorCents() int64   { return p.floor }
func (p testPolicy) GetPriceCeilingCents() int64 { return p.ceiling }

func ptrI(v int64) *int64 { return &v }

func testRates() Rates {
	return Rates{
		Tiers: []Tier{
			{MinBudgetCents: 0, MaxBudgetCents: ptrI(25000), PriceCents: 400},
			{MinBudgetCents: 25000, MaxBudgetCents: ptrI(100000), PriceCents: 700},
			{MinBudgetCents: 100000, MaxBudgetCents: nil, PriceCents: 1200},
		},
		CategoryMultipliers: map[string]float64{
			"electrical": 1.20,
			"plumbing":   1.10,
		},
		ZoneMultipliers: map[string]float64{
			"SW": 1.25,
			"M":  0.90,
		},
	}
}

func TestPriceMultiplierChain(t *testing.T) {
	e := New(testPolicy{floor: 250, ceiling: 2500})

	// Tier 700 * 1.20 * 1.25 * 1.30 = 1365, rounded to 1350.
	quote := e.Price(Input{
		Category:       "electrical",
		Postcode:       "SW1A 1AA",
		BudgetMinCents: ptrI(40000),
		BudgetMaxCents: ptrI(60000),
		QualityScore:   85,
	}, testRates())

	if quote.BasePriceCents != 700 {
		t.Errorf("BasePriceCents = %d, want 700", quote.BasePriceCents)
	}
	if quote.CategoryMultiplier != 1.20 {
		t.Errorf("CategoryMultiplier = %v, want 1.20", quote.CategoryMultiplier)
	}
	if quote.ZoneMultiplier != 1.25 {
		t.Errorf("ZoneMultiplier = %v, want 1.25", quote.ZoneMultiplier)
	}
	if quote.QualityMultiplier != 1.30 {
		t.Errorf("QualityMultiplier = %v, want 1.30", quote.QualityMultiplier)
	}
	if quote.PriceCents != 1350 {
		t.Errorf("PriceCents = %d, want 1350", quote.PriceCents)
	}
}

func TestPriceDefaultsWhenUnknown(t *testing.T) {
	e := New(testPolicy{floor: 250, ceiling: 2500})

	// No budget falls back to the default budget which lands in tier 700.
	// Unknown category and zone are neutral; quality 50 discounts to 0.80.
	// 700 * 0.80 = 560, rounded to 550.
	quote := e.Price(Input{
		Category:     "roofing",
		Postcode:     "ZZ9 9ZZ",
		QualityScore: 50,
	}, testRates())

	if quote.CategoryMultiplier != 1.0 {
		t.Errorf("CategoryMultiplier = %v, want neutral 1.0", quote.CategoryMultiplier)
	}
	if quote.ZoneMultiplier != 1.0 {
		t.Errorf("ZoneMultiplier = %v, want neutral 1.0", quote.ZoneMultiplier)
	}
	if quote.PriceCents != 550 {
		t.Errorf("PriceCents = %d, want 550", quote.PriceCents)
	}
}

func TestPriceFallbackBaseWithoutTiers(t *testing.T) {
	e := New(testPolicy{floor: 250, ceiling: 2500})

	quote := e.Price(Input{QualityScore: 70}, Rates{})
	if quote.BasePriceCents != 500 {
		t.Errorf("BasePriceCents = %d, want fallback 500", quote.BasePriceCents)
	}
	if quote.PriceCents != 500 {
		t.Errorf("PriceCents = %d, want 500", quote.PriceCents)
	}
}

func TestPriceClamp(t *testing.T) {
	e := New(testPolicy{floor: 600, ceiling: 1000})

	// Large budget, premium everything: 1200*1.20*1.25*1.30 = 2340 -> ceiling.
	high := e.Price(Input{
		Category:       "electrical",
		Postcode:       "SW1A 1AA",
		BudgetMinCents: ptrI(200000),
		QualityScore:   95,
	}, testRates())
	if high.PriceCents != 1000 {
		t.Errorf("PriceCents = %d, want ceiling 1000", high.PriceCents)
	}

	// Small budget in a discounted zone with low quality: 400*0.90*0.80 = 288
	// -> rounds to 300 -> floor 600.
	low := e.Price(Input{
		Category:       "gardening",
		Postcode:       "M1 1AA",
		BudgetMinCents: ptrI(10000),
		QualityScore:   30,
	}, testRates())
	if low.PriceCents != 600 {
		t.Errorf("PriceCents = %d, want floor 600", low.PriceCents)
	}
}

func TestPriceRoundsToHalfCredit(t *testing.T) {
	e := New(testPolicy{floor: 0, ceiling: 10000})

	// 700 * 1.10 = 770, which snaps down to 750.
	quote := e.Price(Input{
		Category:       "plumbing",
		BudgetMinCents: ptrI(50000),
		QualityScore:   60,
	}, testRates())
	if quote.PriceCents != 750 {
		t.Errorf("PriceCents = %d, want 750", quote.PriceCents)
	}
	if quote.PriceCents%50 != 0 {
		t.Errorf("PriceCents = %d, want a multiple of 50", quote.PriceCents)
	}
}

func TestPostcodeArea(t *testing.T) {
	tests := []struct {
		postcode string
		expected string
	}{
		{"SW1A 1AA", "SW"},
		{"m1 1aa", "M"},
		{"EC2V 7HN", "EC"},
		{"", ""},
		{"123", ""},
	}

	for _, tt := range tests {
		if got := postcodeArea(tt.postcode); got != tt.expected {
			t.Errorf("postcodeArea(%q) = %q, want %q", tt.postcode, got, tt.expected)
		}
	}
}
