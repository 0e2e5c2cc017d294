package matcher

import (
	"testing"

	"github.com/google/uuid"
)

type testPolicy struct {
	radiusKm   float64
	scoreFloor float64
	maxVendors int
	minVendors int
}

func (p testPolicy) GetMatchRadiusKm() float64   { return p.radiusKm }
func (p testPolicy) GetMatchScoreFloor() float64 { return p.scoreFloor }
func (p testPolicy) GetMaxVendorsPerLead() int   { return p.maxVendors }
func (p testPolicy) GetMinVendorsPerLead() int   { return p.minVendors }

func defaultPolicy() testPolicy {
	return testPolicy{radiusKm: 50, scoreFloor: 40, maxVendors: 5, minVendors: 3}
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func TestScoreDistancePostcodePrefix(t *testing.T) {
	m := New(defaultPolicy())

	tests := []struct {
		name     string
		lead     string
		vendor   string
		expected float64
	}{
		{"sector match", "SW1A 1AA", "SW1B 2BB", 20},
		{"area match", "SW1A 1AA", "SW9 9XX", 15},
		{"different area", "SW1A 1AA", "M1 1AA", 5},
		{"lead postcode missing", "", "SW1A 1AA", 10},
		{"vendor postcode missing", "SW1A 1AA", "", 10},
		{"case and spacing normalized", "sw1a1aa", "SW1A 9ZZ", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.scoreDistance(
				Lead{Postcode: tt.lead},
				Candidate{Postcode: tt.vendor},
			)
			if got != tt.expected {
				t.Errorf("scoreDistance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoreDistanceHaversineDecay(t *testing.T) {
	m := New(defaultPolicy())

	// Same point scores the full component.
	lead := Lead{Latitude: ptrF(51.5074), Longitude: ptrF(-0.1278)}
	same := Candidate{Latitude: ptrF(51.5074), Longitude: ptrF(-0.1278)}
	if got := m.scoreDistance(lead, same); got != 20 {
		t.Errorf("same location = %v, want 20", got)
	}

	// London to Manchester is far outside a 50km radius.
	far := Candidate{Latitude: ptrF(53.4808), Longitude: ptrF(-2.2426)}
	if got := m.scoreDistance(lead, far); got != 0 {
		t.Errorf("out of radius = %v, want 0", got)
	}

	// Roughly 25km away should land near half the component.
	mid := Candidate{Latitude: ptrF(51.5074), Longitude: ptrF(0.233)}
	got := m.scoreDistance(lead, mid)
	if got < 8 || got > 12 {
		t.Errorf("mid-radius = %v, want roughly 10", got)
	}
}

func TestScoreSpecialty(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		specialties []string
		expected    float64
	}{
		{"exact match", "plumbing", []string{"plumbing", "tiling"}, 20},
		{"exact match case insensitive", "Plumbing", []string{"PLUMBING"}, 20},
		{"related trade", "plumbing", []string{"heating engineer"}, 15},
		{"related electrical", "electrical", []string{"electrician"}, 15},
		{"generalist", "plumbing", []string{"landscaping"}, 5},
		{"no specialties listed", "plumbing", nil, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreSpecialty(tt.category, tt.specialties); got != tt.expected {
				t.Errorf("scoreSpecialty() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoreBudget(t *testing.T) {
	tests := []struct {
		name     string
		lead     Lead
		cand     Candidate
		expected float64
	}{
		{
			"within vendor range",
			Lead{BudgetMinCents: ptrI(40000), BudgetMaxCents: ptrI(60000)},
			Candidate{MinBudgetCents: ptrI(20000), MaxBudgetCents: ptrI(100000)},
			20,
		},
		{
			"below vendor minimum",
			Lead{BudgetMinCents: ptrI(5000), BudgetMaxCents: ptrI(7000)},
			Candidate{MinBudgetCents: ptrI(20000)},
			0,
		},
		{
			"above vendor maximum",
			Lead{BudgetMinCents: ptrI(500000)},
			Candidate{MaxBudgetCents: ptrI(100000)},
			5,
		},
		{
			"lead has no budget",
			Lead{},
			Candidate{MinBudgetCents: ptrI(20000)},
			10,
		},
		{
			"vendor has no range",
			Lead{BudgetMinCents: ptrI(40000)},
			Candidate{},
			20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreBudget(tt.lead, tt.cand); got != tt.expected {
				t.Errorf("scoreBudget() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScorePerformance(t *testing.T) {
	tests := []struct {
		name     string
		cand     Candidate
		expected float64
	}{
		{
			// 50/100*10 = 5, no rating or response bonus.
			"all defaults",
			Candidate{},
			5,
		},
		{
			// 10 + 5 + 7 + 5 = 27, capped at 20.
			"top performer capped",
			Candidate{
				ReputationScore:  ptrF(100),
				WinRate:          ptrF(100),
				AvgRating:        ptrF(4.8),
				AvgResponseHours: ptrF(0.5),
			},
			20,
		},
		{
			// 80/100*10 + 40/100*5 + 5 + 3 = 18.
			"solid performer",
			Candidate{
				ReputationScore:  ptrF(80),
				WinRate:          ptrF(40),
				AvgRating:        ptrF(4.2),
				AvgResponseHours: ptrF(3),
			},
			18,
		},
		{
			// 30/100*10 + 1 for responding within a day.
			"weak but responsive",
			Candidate{
				ReputationScore:  ptrF(30),
				AvgResponseHours: ptrF(20),
			},
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorePerformance(tt.cand); got != tt.expected {
				t.Errorf("scorePerformance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoreRotation(t *testing.T) {
	tests := []struct {
		leads    int
		expected float64
	}{
		{0, 20},
		{1, 15},
		{2, 15},
		{3, 10},
		{5, 10},
		{6, 5},
		{10, 5},
		{11, 0},
	}

	for _, tt := range tests {
		if got := scoreRotation(tt.leads); got != tt.expected {
			t.Errorf("scoreRotation(%d) = %v, want %v", tt.leads, got, tt.expected)
		}
	}
}

func TestRankAppliesScoreFloor(t *testing.T) {
	m := New(testPolicy{radiusKm: 50, scoreFloor: 60, maxVendors: 5, minVendors: 3})

	lead := Lead{Category: "plumbing", Postcode: "SW1A 1AA", QualityScore: 85}
	strong := Candidate{
		VendorID:        uuid.New(),
		Postcode:        "SW1B 2BB",
		Specialties:     []string{"plumbing"},
		ReputationScore: ptrF(90),
		AvgRating:       ptrF(4.6),
	}
	weak := Candidate{
		VendorID:       uuid.New(),
		Postcode:       "M1 1AA",
		Specialties:    []string{"landscaping"},
		LeadsLast7Days: 15,
	}

	matches := m.Rank(lead, []Candidate{weak, strong})
	if len(matches) != 1 {
		t.Fatalf("Rank() returned %d matches, want 1", len(matches))
	}
	if matches[0].VendorID != strong.VendorID {
		t.Errorf("Rank() kept %s, want strong vendor", matches[0].VendorID)
	}
}

func TestRankFanOutByQuality(t *testing.T) {
	m := New(defaultPolicy())

	candidates := make([]Candidate, 8)
	for i := range candidates {
		candidates[i] = Candidate{
			VendorID:    uuid.New(),
			Postcode:    "SW1A 1AA",
			Specialties: []string{"plumbing"},
		}
	}
	lead := Lead{Category: "plumbing", Postcode: "SW1A 1AA"}

	tests := []struct {
		quality  int
		expected int
	}{
		{90, 5},
		{70, 4},
		{50, 3},
	}

	for _, tt := range tests {
		lead.QualityScore = tt.quality
		if got := len(m.Rank(lead, candidates)); got != tt.expected {
			t.Errorf("quality %d: fan-out = %d, want %d", tt.quality, got, tt.expected)
		}
	}
}

func TestRankTieBreaksTowardLessLoadedVendor(t *testing.T) {
	m := New(defaultPolicy())

	busy := Candidate{
		VendorID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Postcode:     "SW1A 1AA",
		Specialties:  []string{"plumbing"},
		LeadsLast24h: 6,
	}
	quiet := Candidate{
		VendorID:     uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		Postcode:     "SW1A 1AA",
		Specialties:  []string{"plumbing"},
		LeadsLast24h: 0,
	}

	lead := Lead{Category: "plumbing", Postcode: "SW1A 1AA", QualityScore: 90}
	matches := m.Rank(lead, []Candidate{busy, quiet})
	if len(matches) != 2 {
		t.Fatalf("Rank() returned %d matches, want 2", len(matches))
	}
	if matches[0].VendorID != quiet.VendorID {
		t.Errorf("first match = %s, want the less loaded vendor", matches[0].VendorID)
	}
}

func TestRankDeterministicOnFullTie(t *testing.T) {
	m := New(defaultPolicy())

	a := Candidate{
		VendorID:    uuid.MustParse("00000000-0000-0000-0000-00000000000a"),
		Postcode:    "SW1A 1AA",
		Specialties: []string{"plumbing"},
	}
	b := Candidate{
		VendorID:    uuid.MustParse("00000000-0000-0000-0000-00000000000b"),
		Postcode:    "SW1A 1AA",
		Specialties: []string{"plumbing"},
	}

	lead := Lead{Category: "plumbing", Postcode: "SW1A 1AA", QualityScore: 90}
	first := m.Rank(lead, []Candidate{b, a})
	second := m.Rank(lead, []Candidate{a, b})
	if first[0].VendorID != a.VendorID || second[0].VendorID != a.VendorID {
		t.Errorf("full tie should order by vendor ID, got %s then %s",
			first[0].VendorID, second[0].VendorID)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// London to Paris is about 344km.
	got := HaversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	if got < 330 || got > 350 {
		t.Errorf("HaversineKm(London, Paris) = %v, want about 344", got)
	}
}
