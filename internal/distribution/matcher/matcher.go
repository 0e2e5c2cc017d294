// Package matcher ranks candidate vendors for a lead. It is pure: callers
// load the candidate pool and the matcher orders it, applies the score floor
// and cuts the fan-out list. Five weighted components, each worth up to 20
// points, sum to a 0-100 match score.
package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tradematch_backend/platform/config"
)

const (
	componentMax = 20.0

	neutralDistance  = 10.0
	neutralSpecialty = 10.0
	neutralBudget    = 10.0

	defaultReputation    = 50.0
	defaultResponseHours = 999.0
)

// relatedSpecialties maps a lead category to vendor specialty terms that
// count as a related (but not exact) trade.
var relatedSpecialties = map[string][]string{
	"plumbing":   {"plumber", "heating", "boiler"},
	"electrical": {"electrician", "electric"},
	"building":   {"builder", "construction", "renovation"},
	"carpentry":  {"carpenter", "joiner", "joinery"},
}

// RelatedTerms returns ILIKE patterns matching trades related to the
// category. The candidate pool query uses them so related specialists are
// not filtered out before ranking.
func RelatedTerms(category string) []string {
	terms := relatedSpecialties[strings.ToLower(strings.TrimSpace(category))]
	patterns := make([]string, len(terms))
	for i, term := range terms {
		patterns[i] = "%" + term + "%"
	}
	return patterns
}

// Lead is the matcher's view of a scored lead.
type Lead struct {
	ID             uuid.UUID
	Category       string
	Postcode       string
	Latitude       *float64
	Longitude      *float64
	BudgetMinCents *int64
	BudgetMaxCents *int64
	QualityScore   int
}

// Candidate is a vendor eligible for ranking. The repository pre-filters on
// balance, activity and quality threshold; everything else is scored here.
type Candidate struct {
	VendorID         uuid.UUID
	Postcode         string
	Latitude         *float64
	Longitude        *float64
	Specialties      []string
	MinBudgetCents   *int64
	MaxBudgetCents   *int64
	ReputationScore  *float64
	WinRate          *float64
	AvgRating        *float64
	AvgResponseHours *float64
	LeadsLast7Days   int
	LeadsLast24h     int
}

// Components breaks a match score down by factor.
type Components struct {
	Distance    float64 `json:"distance"`
	Specialty   float64 `json:"specialty"`
	Budget      float64 `json:"budget"`
	Performance float64 `json:"performance"`
	Rotation    float64 `json:"rotation"`
}

// Match is one ranked vendor.
type Match struct {
	VendorID   uuid.UUID
	Score      float64
	Components Components

	leadsLast24h int
}

// Matcher ranks candidates under the configured match policy.
type Matcher struct {
	radiusKm   float64
	scoreFloor float64
	maxVendors int
	minVendors int
}

// New creates a matcher from the match policy configuration.
func New(cfg config.MatchPolicyConfig) *Matcher {
	return &Matcher{
		radiusKm:   cfg.GetMatchRadiusKm(),
		scoreFloor: cfg.GetMatchScoreFloor(),
		maxVendors: cfg.GetMaxVendorsPerLead(),
		minVendors: cfg.GetMinVendorsPerLead(),
	}
}

// Rank scores every candidate against the lead, drops those below the score
// floor, orders the rest and returns the fan-out list. Better leads reach
// more vendors. Ties break toward the vendor with fewer offers in the last
// 24 hours, then by vendor ID for determinism.
func (m *Matcher) Rank(lead Lead, candidates []Candidate) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		match := m.score(lead, c)
		if match.Score < m.scoreFloor {
			continue
		}
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].leadsLast24h != matches[j].leadsLast24h {
			return matches[i].leadsLast24h < matches[j].leadsLast24h
		}
		return matches[i].VendorID.String() < matches[j].VendorID.String()
	})

	limit := m.targetCount(lead.QualityScore)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (m *Matcher) score(lead Lead, c Candidate) Match {
	comp := Components{
		Distance:    m.scoreDistance(lead, c),
		Specialty:   scoreSpecialty(lead.Category, c.Specialties),
		Budget:      scoreBudget(lead, c),
		Performance: scorePerformance(c),
		Rotation:    scoreRotation(c.LeadsLast7Days),
	}
	total := comp.Distance + comp.Specialty + comp.Budget + comp.Performance + comp.Rotation
	return Match{
		VendorID:     c.VendorID,
		Score:        math.Round(total*100) / 100,
		Components:   comp,
		leadsLast24h: c.LeadsLast24h,
	}
}

// targetCount decides how many vendors a lead fans out to, bounded by the
// configured min and max.
func (m *Matcher) targetCount(qualityScore int) int {
	var n int
	switch {
	case qualityScore >= 80:
		n = 5
	case qualityScore >= 60:
		n = 4
	default:
		n = 3
	}
	if n > m.maxVendors {
		n = m.maxVendors
	}
	if n < m.minVendors {
		n = m.minVendors
	}
	return n
}

// scoreDistance uses great-circle distance with linear decay over the match
// radius when both sides have coordinates, and falls back to postcode prefix
// matching otherwise. Unknown location is neutral, not disqualifying.
func (m *Matcher) scoreDistance(lead Lead, c Candidate) float64 {
	if lead.Latitude != nil && lead.Longitude != nil && c.Latitude != nil && c.Longitude != nil {
		dist := HaversineKm(*lead.Latitude, *lead.Longitude, *c.Latitude, *c.Longitude)
		if dist >= m.radiusKm {
			return 0
		}
		return componentMax * (1 - dist/m.radiusKm)
	}

	leadPC := normalizePostcode(lead.Postcode)
	vendorPC := normalizePostcode(c.Postcode)
	if leadPC == "" || vendorPC == "" {
		return neutralDistance
	}
	if len(leadPC) >= 3 && len(vendorPC) >= 3 && leadPC[:3] == vendorPC[:3] {
		return componentMax
	}
	if len(leadPC) >= 2 && len(vendorPC) >= 2 && leadPC[:2] == vendorPC[:2] {
		return 15
	}
	return 5
}

func scoreSpecialty(category string, specialties []string) float64 {
	if len(specialties) == 0 {
		return neutralSpecialty
	}

	cat := strings.ToLower(strings.TrimSpace(category))
	for _, s := range specialties {
		if strings.EqualFold(strings.TrimSpace(s), cat) {
			return componentMax
		}
	}
	for _, term := range relatedSpecialties[cat] {
		for _, s := range specialties {
			if strings.Contains(strings.ToLower(s), term) {
				return 15
			}
		}
	}
	return 5
}

// scoreBudget compares the lead's average budget against the vendor's
// preferred range. Leads below the vendor's minimum score zero; oversized
// jobs score low rather than zero since some vendors still want them.
func scoreBudget(lead Lead, c Candidate) float64 {
	budget, ok := averageBudget(lead.BudgetMinCents, lead.BudgetMaxCents)
	if !ok {
		return neutralBudget
	}
	if c.MinBudgetCents != nil && budget < *c.MinBudgetCents {
		return 0
	}
	if c.MaxBudgetCents != nil && budget > *c.MaxBudgetCents {
		return 5
	}
	return componentMax
}

func scorePerformance(c Candidate) float64 {
	reputation := defaultReputation
	if c.ReputationScore != nil {
		reputation = *c.ReputationScore
	}
	score := reputation / 100 * 10

	if c.WinRate != nil {
		score += *c.WinRate / 100 * 5
	}

	if c.AvgRating != nil {
		switch {
		case *c.AvgRating >= 4.5:
			score += 7
		case *c.AvgRating >= 4.0:
			score += 5
		case *c.AvgRating >= 3.5:
			score += 3
		}
	}

	response := defaultResponseHours
	if c.AvgResponseHours != nil {
		response = *c.AvgResponseHours
	}
	switch {
	case response <= 1:
		score += 5
	case response <= 4:
		score += 3
	case response <= 24:
		score += 1
	}

	return math.Min(score, componentMax)
}

// scoreRotation favors vendors who received few leads in the last seven
// days, spreading volume across the pool.
func scoreRotation(leadsLast7Days int) float64 {
	switch {
	case leadsLast7Days == 0:
		return componentMax
	case leadsLast7Days <= 2:
		return 15
	case leadsLast7Days <= 5:
		return 10
	case leadsLast7Days <= 10:
		return 5
	default:
		return 0
	}
}

func averageBudget(min, max *int64) (int64, bool) {
	switch {
	case min != nil && max != nil:
		return (*min + *max) / 2, true
	case min != nil:
		return *min, true
	case max != nil:
		return *max, true
	default:
		return 0, false
	}
}

func normalizePostcode(pc string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pc), " ", ""))
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
