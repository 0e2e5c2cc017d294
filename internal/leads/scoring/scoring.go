// Package scoring computes qualification scores for posted leads.
// The scorer is a pure function over lead attributes: identical input always
// produces an identical score, which makes recalculate-and-compare audits
// possible. Missing or malformed fields fall back to documented neutral
// values instead of erroring, so scoring never blocks lead posting.
package scoring

import (
	"regexp"
	"strings"

	"tradematch_backend/platform/config"
)

const (
	// modelVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	modelVersion = "2026-v1"

	// Sub-score scales. They sum to 100 so the overall score needs no
	// normalization pass.
	maxBudgetScore       = 30
	maxDetailScore       = 20
	maxUrgencyScore      = 15
	maxVerificationScore = 15
	maxMediaScore        = 10
	maxLocationScore     = 10

	// neutralBudgetScore is applied when the budget range is malformed
	// (min above max, or negative figures) rather than absent.
	neutralBudgetScore = 15
	// neutralUrgencyScore is applied when no urgency was specified.
	neutralUrgencyScore = 6
)

// Input carries the lead attributes the scorer reads. All optional fields are
// typed pointers so absence is distinguishable from a zero value.
type Input struct {
	Category       string
	Postcode       string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	BudgetNote     string
	Urgency        string
	Description    string
	EmailVerified  bool
	PhoneVerified  bool
	CompletedJobs  int
	MediaCount     int
}

// Score is the result of one scoring run. Sub-scores are kept so vendors and
// operations can see why a lead landed in its tier.
type Score struct {
	Overall      int
	Budget       int
	Detail       int
	Urgency      int
	Verification int
	Media        int
	Location     int
	Tier         string
	ModelVersion string
}

// Scorer computes qualification scores using configurable tier cut points.
type Scorer struct {
	cuts config.TierCutPoints
}

// New creates a scorer with the given tier policy.
func New(cfg config.ScoringPolicyConfig) *Scorer {
	return &Scorer{cuts: cfg.GetTierCutPoints()}
}

// Score computes the qualification score for a lead. Deterministic and free
// of side effects.
func (s *Scorer) Score(in Input) Score {
	result := Score{
		Budget:       scoreBudget(in),
		Detail:       scoreDetail(in.Description),
		Urgency:      scoreUrgency(in.Urgency),
		Verification: scoreVerification(in),
		Media:        scoreMedia(in.MediaCount),
		Location:     scoreLocation(in.Postcode),
		ModelVersion: modelVersion,
	}
	result.Overall = clamp(result.Budget+result.Detail+result.Urgency+
		result.Verification+result.Media+result.Location, 0, 100)
	result.Tier = s.tierFor(result.Overall)
	return result
}

// tierFor maps an overall score onto a quality tier using the configured
// cut points.
func (s *Scorer) tierFor(overall int) string {
	switch {
	case overall >= s.cuts.Elite:
		return TierElite
	case overall >= s.cuts.Premium:
		return TierPremium
	case overall >= s.cuts.Qualified:
		return TierQualified
	case overall >= s.cuts.Standard:
		return TierStandard
	default:
		return TierBasic
	}
}

// Quality tiers, best first.
const (
	TierElite     = "elite"
	TierPremium   = "premium"
	TierQualified = "qualified"
	TierStandard  = "standard"
	TierBasic     = "basic"
)

// scoreBudget evaluates budget clarity (0-30). A tight stated range signals a
// customer who has researched the job; a single figure is still useful; a
// free-text hint is weak. A malformed range (min above max, negative values)
// gets the neutral midpoint rather than an error.
func scoreBudget(in Input) int {
	minSet := in.BudgetMinCents != nil
	maxSet := in.BudgetMaxCents != nil

	if minSet && *in.BudgetMinCents < 0 || maxSet && *in.BudgetMaxCents < 0 {
		return neutralBudgetScore
	}

	if minSet && maxSet {
		lo, hi := *in.BudgetMinCents, *in.BudgetMaxCents
		if lo > hi {
			return neutralBudgetScore
		}
		mid := (lo + hi) / 2
		if mid == 0 {
			return neutralBudgetScore
		}
		ratio := float64(hi-lo) / float64(mid)
		switch {
		case ratio < 0.5:
			return 30 // Tight range
		case ratio < 1.0:
			return 27 // Reasonable range
		default:
			return 24 // Wide range
		}
	}

	if minSet || maxSet {
		return 22 // One budget figure
	}

	if strings.TrimSpace(in.BudgetNote) != "" || strings.Contains(in.Description, "£") {
		return 12 // Some budget indication in text
	}

	return 0 // No budget information
}

var specificIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+\s*(m|meter|metre|cm|foot|feet|inch)`),
	regexp.MustCompile(`(?i)\d+\s*(sq|square)`),
	regexp.MustCompile(`(?i)(plaster|tile|brick|wood|concrete|steel)`),
	regexp.MustCompile(`(?i)(monday|tuesday|wednesday|thursday|friday|january|february|march)`),
	regexp.MustCompile(`(?i)\d+\s*(bedroom|bathroom|room|floor|storey)`),
}

// scoreDetail evaluates description richness (0-20). Length is a proxy for
// effort; concrete specifics (measurements, materials, dates, room counts)
// indicate a well-defined job.
func scoreDetail(description string) int {
	score := 0

	switch length := len(description); {
	case length > 300:
		score += 12
	case length > 100:
		score += 8
	case length > 30:
		score += 4
	}

	if containsSpecifics(description) {
		score += 8
	}

	return clamp(score, 0, maxDetailScore)
}

func containsSpecifics(description string) bool {
	if description == "" {
		return false
	}
	for _, re := range specificIndicators {
		if re.MatchString(description) {
			return true
		}
	}
	return false
}

// scoreUrgency evaluates stated urgency (0-15). Unspecified urgency gets the
// documented neutral value: an unknown timeline is worse than "flexible" but
// better than nothing.
func scoreUrgency(urgency string) int {
	normalized := strings.ToLower(strings.TrimSpace(urgency))
	if normalized == "" {
		return neutralUrgencyScore
	}

	switch {
	case strings.Contains(normalized, "emergency"),
		strings.Contains(normalized, "asap"),
		strings.Contains(normalized, "urgent"):
		return 15
	case strings.Contains(normalized, "week"):
		return 13
	case strings.Contains(normalized, "month"):
		return 11
	default:
		return 9 // Flexible
	}
}

// scoreVerification evaluates how reachable and credible the customer is
// (0-15). Email verification is the strongest signal; completed job history
// adds a small bonus, capped so one-off posters are not penalized heavily.
func scoreVerification(in Input) int {
	score := 0
	if in.EmailVerified {
		score += 9
	}
	if in.PhoneVerified {
		score += 4
	}

	history := in.CompletedJobs
	if history > 2 {
		history = 2
	}
	if history > 0 {
		score += history
	}

	return clamp(score, 0, maxVerificationScore)
}

// scoreMedia evaluates attached media (0-10). Photos let vendors estimate
// without a site visit.
func scoreMedia(count int) int {
	switch {
	case count >= 3:
		return 10
	case count == 2:
		return 8
	case count == 1:
		return 5
	default:
		return 0
	}
}

var (
	fullPostcodeRegex    = regexp.MustCompile(`(?i)^[A-Z]{1,2}\d{1,2}[A-Z]?\d[A-Z]{2}$`)
	partialPostcodeRegex = regexp.MustCompile(`(?i)^[A-Z]{1,2}\d{1,2}[A-Z]?$`)
)

// scoreLocation evaluates location clarity (0-10). A full UK postcode allows
// exact distance matching; an outward code still narrows the area.
func scoreLocation(postcode string) int {
	trimmed := strings.ReplaceAll(strings.TrimSpace(postcode), " ", "")
	if trimmed == "" {
		return 0
	}

	if fullPostcodeRegex.MatchString(trimmed) {
		return 10
	}
	if partialPostcodeRegex.MatchString(trimmed) {
		return 7
	}
	if len(trimmed) > 2 {
		return 4
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
