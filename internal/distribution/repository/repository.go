// Package repository provides PostgreSQL persistence for lead distribution:
// the per-(lead,vendor) offer rows, the candidate pool query feeding the
// matcher, the pricing rate tables and the acceptance audit log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradematch_backend/internal/distribution/matcher"
	"tradematch_backend/internal/distribution/pricing"
	"tradematch_backend/platform/apperr"
)

// Offer states. An offer starts OFFERED and moves exactly once, to
// ACCEPTED, DECLINED or EXPIRED. Terminal states never change.
const (
	StateOffered  = "OFFERED"
	StateAccepted = "ACCEPTED"
	StateDeclined = "DECLINED"
	StateExpired  = "EXPIRED"
)

const msgOfferNotFound = "offer not found"

// Distribution is one offer of a lead to a vendor.
type Distribution struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	VendorID      uuid.UUID
	State         string
	PriceCents    int64
	MatchScore    float64
	MatchRank     int
	AutoAccepted  bool
	OfferedAt     time.Time
	ExpiresAt     time.Time
	DecidedAt     *time.Time
	RefundedAt    *time.Time
	DeclineReason *string
}

// OfferedLeadRow is a pending offer joined with the lead preview fields.
// Customer contact stays hidden until acceptance.
type OfferedLeadRow struct {
	DistributionID uuid.UUID
	LeadID         uuid.UUID
	Category       string
	Postcode       string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	QualityTier    *string
	MatchScore     float64
	PriceCents     int64
	OfferedAt      time.Time
	ExpiresAt      time.Time
}

// CandidateQuery selects the vendor pool for one lead.
type CandidateQuery struct {
	Category        string
	RelatedPatterns []string
	QualityScore    int
	MinBalanceCents int64
	Now             time.Time
	Limit           int
}

// CandidateRow is a pool vendor with the auto-accept rule needed by the
// fan-out path.
type CandidateRow struct {
	matcher.Candidate

	AutoAcceptEnabled       bool
	AutoAcceptMinScore      *float64
	AutoAcceptMaxPriceCents *int64
	AutoAcceptMaxDistanceKm *float64
}

// AcceptanceLog is one audit row written in the accept transaction.
type AcceptanceLog struct {
	DistributionID uuid.UUID
	LeadID         uuid.UUID
	VendorID       uuid.UUID
	PriceCents     int64
	AutoAccepted   bool
	AcceptedAt     time.Time
}

// Repository is the persistence contract for the distribution module.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CreateOffers(ctx context.Context, offers []Distribution) (int, error)
	GetForVendor(ctx context.Context, leadID, vendorID uuid.UUID) (Distribution, error)
	GetForVendorForUpdate(ctx context.Context, tx pgx.Tx, leadID, vendorID uuid.UUID) (Distribution, error)
	GetByID(ctx context.Context, id uuid.UUID) (Distribution, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Distribution, error)

	MarkAccepted(ctx context.Context, tx pgx.Tx, id uuid.UUID, decidedAt time.Time, autoAccepted bool) error
	MarkDeclined(ctx context.Context, leadID, vendorID uuid.UUID, decidedAt time.Time, reason *string) (Distribution, bool, error)
	MarkExpired(ctx context.Context, tx pgx.Tx, id uuid.UUID, decidedAt time.Time) error
	MarkRefunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, refundedAt time.Time) error
	ExpireSweep(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	ListOfferedForVendor(ctx context.Context, vendorID uuid.UUID, now time.Time) ([]OfferedLeadRow, error)
	Candidates(ctx context.Context, q CandidateQuery) ([]CandidateRow, error)
	LoadRates(ctx context.Context) (pricing.Rates, error)
	InsertAcceptanceLog(ctx context.Context, tx pgx.Tx, entry AcceptanceLog) error
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new distribution repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// BeginTx starts a transaction for the accept and refund paths.
func (r *Repo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin distribution tx: %w", err)
	}
	return tx, nil
}

// CreateOffers inserts the fan-out rows for one lead. A vendor never gets
// the same lead twice; conflicting rows are skipped, not replaced.
func (r *Repo) CreateOffers(ctx context.Context, offers []Distribution) (int, error) {
	query := `
		INSERT INTO lead_distributions (
			lead_id, vendor_id, state, price_cents, match_score, match_rank,
			offered_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id, vendor_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, o := range offers {
		batch.Queue(query,
			o.LeadID, o.VendorID, StateOffered, o.PriceCents, o.MatchScore,
			o.MatchRank, o.OfferedAt, o.ExpiresAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	created := 0
	for range offers {
		tag, err := results.Exec()
		if err != nil {
			return created, fmt.Errorf("create offers: %w", err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

const distributionColumns = `
	id, lead_id, vendor_id, state, price_cents, match_score, match_rank,
	auto_accepted, offered_at, expires_at, decided_at, refunded_at,
	decline_reason`

func scanDistribution(row pgx.Row) (Distribution, error) {
	var d Distribution
	err := row.Scan(
		&d.ID, &d.LeadID, &d.VendorID, &d.State, &d.PriceCents, &d.MatchScore,
		&d.MatchRank, &d.AutoAccepted, &d.OfferedAt, &d.ExpiresAt, &d.DecidedAt,
		&d.RefundedAt, &d.DeclineReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Distribution{}, apperr.NotFound(msgOfferNotFound)
		}
		return Distribution{}, fmt.Errorf("scan distribution: %w", err)
	}
	return d, nil
}

// GetForVendor retrieves the offer of a lead to a vendor.
func (r *Repo) GetForVendor(ctx context.Context, leadID, vendorID uuid.UUID) (Distribution, error) {
	query := `SELECT ` + distributionColumns + `
		FROM lead_distributions WHERE lead_id = $1 AND vendor_id = $2`
	return scanDistribution(r.pool.QueryRow(ctx, query, leadID, vendorID))
}

// GetForVendorForUpdate locks and retrieves the offer row inside a
// transaction. The accept path uses it to serialize concurrent decisions.
func (r *Repo) GetForVendorForUpdate(ctx context.Context, tx pgx.Tx, leadID, vendorID uuid.UUID) (Distribution, error) {
	query := `SELECT ` + distributionColumns + `
		FROM lead_distributions WHERE lead_id = $1 AND vendor_id = $2 FOR UPDATE`
	return scanDistribution(tx.QueryRow(ctx, query, leadID, vendorID))
}

// GetByID retrieves a distribution by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Distribution, error) {
	query := `SELECT ` + distributionColumns + `
		FROM lead_distributions WHERE id = $1`
	return scanDistribution(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate locks and retrieves a distribution inside a transaction.
// The refund path uses it to serialize against concurrent refunds.
func (r *Repo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Distribution, error) {
	query := `SELECT ` + distributionColumns + `
		FROM lead_distributions WHERE id = $1 FOR UPDATE`
	return scanDistribution(tx.QueryRow(ctx, query, id))
}

// MarkAccepted flips a locked offer to ACCEPTED. The state predicate is a
// guard against races, not the primary defense; callers hold the row lock.
func (r *Repo) MarkAccepted(ctx context.Context, tx pgx.Tx, id uuid.UUID, decidedAt time.Time, autoAccepted bool) error {
	query := `
		UPDATE lead_distributions
		SET state = $2, decided_at = $3, auto_accepted = $4
		WHERE id = $1 AND state = $5`

	tag, err := tx.Exec(ctx, query, id, StateAccepted, decidedAt, autoAccepted, StateOffered)
	if err != nil {
		return fmt.Errorf("mark accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("offer is no longer open")
	}
	return nil
}

// MarkDeclined flips an open offer to DECLINED, recording the optional
// reason. Returns false when the offer was not in OFFERED state; callers
// decide whether that is an error.
func (r *Repo) MarkDeclined(ctx context.Context, leadID, vendorID uuid.UUID, decidedAt time.Time, reason *string) (Distribution, bool, error) {
	query := `
		UPDATE lead_distributions
		SET state = $3, decided_at = $4, decline_reason = $5
		WHERE lead_id = $1 AND vendor_id = $2 AND state = $6
		RETURNING ` + distributionColumns

	d, err := scanDistribution(r.pool.QueryRow(ctx, query,
		leadID, vendorID, StateDeclined, decidedAt, reason, StateOffered))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// No open row matched: either missing or already decided.
			return Distribution{}, false, nil
		}
		return Distribution{}, false, err
	}
	return d, true, nil
}

// MarkExpired flips a locked offer to EXPIRED. Used when an accept attempt
// finds the offer past its deadline before the sweep got to it.
func (r *Repo) MarkExpired(ctx context.Context, tx pgx.Tx, id uuid.UUID, decidedAt time.Time) error {
	query := `
		UPDATE lead_distributions
		SET state = $2, decided_at = $3
		WHERE id = $1 AND state = $4`

	if _, err := tx.Exec(ctx, query, id, StateExpired, decidedAt, StateOffered); err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// MarkRefunded stamps a locked, accepted distribution as refunded. At most
// one refund per distribution.
func (r *Repo) MarkRefunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, refundedAt time.Time) error {
	query := `
		UPDATE lead_distributions
		SET refunded_at = $2
		WHERE id = $1 AND refunded_at IS NULL`

	tag, err := tx.Exec(ctx, query, id, refundedAt)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.AlreadyRefunded("distribution already refunded")
	}
	return nil
}

// ExpireSweep flips every overdue open offer to EXPIRED and returns the
// affected lead IDs. Expiry is free: no charge was ever made.
func (r *Repo) ExpireSweep(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE lead_distributions
		SET state = $1, decided_at = $2
		WHERE state = $3 AND expires_at <= $2
		RETURNING lead_id`

	rows, err := r.pool.Query(ctx, query, StateExpired, now, StateOffered)
	if err != nil {
		return nil, fmt.Errorf("expire sweep: %w", err)
	}
	defer rows.Close()

	var leadIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("expire sweep scan: %w", err)
		}
		leadIDs = append(leadIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expire sweep rows: %w", err)
	}
	return leadIDs, nil
}

// ListOfferedForVendor returns the vendor's open offers with the lead
// preview fields, newest first.
func (r *Repo) ListOfferedForVendor(ctx context.Context, vendorID uuid.UUID, now time.Time) ([]OfferedLeadRow, error) {
	query := `
		SELECT d.id, d.lead_id, l.category, l.postcode,
		       l.budget_min_cents, l.budget_max_cents, s.quality_tier,
		       d.match_score, d.price_cents, d.offered_at, d.expires_at
		FROM lead_distributions d
		JOIN leads l ON l.id = d.lead_id
		LEFT JOIN LATERAL (
			SELECT quality_tier
			FROM lead_scores
			WHERE lead_id = l.id
			ORDER BY version DESC
			LIMIT 1
		) s ON true
		WHERE d.vendor_id = $1 AND d.state = $2 AND d.expires_at > $3
		ORDER BY d.offered_at DESC`

	rows, err := r.pool.Query(ctx, query, vendorID, StateOffered, now)
	if err != nil {
		return nil, fmt.Errorf("list offered leads: %w", err)
	}
	defer rows.Close()

	var offers []OfferedLeadRow
	for rows.Next() {
		var o OfferedLeadRow
		err := rows.Scan(
			&o.DistributionID, &o.LeadID, &o.Category, &o.Postcode,
			&o.BudgetMinCents, &o.BudgetMaxCents, &o.QualityTier,
			&o.MatchScore, &o.PriceCents, &o.OfferedAt, &o.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan offered lead: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offered lead rows: %w", err)
	}
	return offers, nil
}

// Candidates loads the vendor pool for one lead: active vendors with enough
// balance, a quality threshold the lead clears, and a specialty covering
// the category (or no specialties at all). Recent offer counts feed the
// matcher's rotation and tie-break factors.
func (r *Repo) Candidates(ctx context.Context, q CandidateQuery) ([]CandidateRow, error) {
	query := `
		SELECT v.id, v.postcode, v.latitude, v.longitude, v.specialties,
		       p.min_budget_cents, p.max_budget_cents,
		       perf.reputation_score, perf.win_rate, perf.avg_rating, perf.avg_response_hours,
		       COALESCE(r.enabled, false), r.min_match_score, r.max_price_cents, r.max_distance_km,
		       COALESCE(d7.cnt, 0), COALESCE(d24.cnt, 0)
		FROM vendors v
		LEFT JOIN vendor_preferences p ON p.vendor_id = v.id
		LEFT JOIN vendor_performance perf ON perf.vendor_id = v.id
		LEFT JOIN vendor_balances b ON b.vendor_id = v.id
		LEFT JOIN vendor_auto_accept_rules r ON r.vendor_id = v.id
		LEFT JOIN LATERAL (
			SELECT count(*) AS cnt FROM lead_distributions ld
			WHERE ld.vendor_id = v.id AND ld.offered_at > $4::timestamptz - interval '7 days'
		) d7 ON true
		LEFT JOIN LATERAL (
			SELECT count(*) AS cnt FROM lead_distributions ld
			WHERE ld.vendor_id = v.id AND ld.offered_at > $4::timestamptz - interval '24 hours'
		) d24 ON true
		WHERE v.active
		  AND COALESCE(b.balance_cents, 0) >= $5
		  AND (p.min_quality_score IS NULL OR p.min_quality_score <= $3)
		  AND (cardinality(v.specialties) = 0 OR EXISTS (
			SELECT 1 FROM unnest(v.specialties) AS s(name)
			WHERE lower(s.name) = lower($1) OR s.name ILIKE ANY($2)
		  ))
		ORDER BY COALESCE(d7.cnt, 0), v.id
		LIMIT $6`

	rows, err := r.pool.Query(ctx, query,
		q.Category, q.RelatedPatterns, q.QualityScore, q.Now, q.MinBalanceCents, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var candidates []CandidateRow
	for rows.Next() {
		var c CandidateRow
		err := rows.Scan(
			&c.VendorID, &c.Postcode, &c.Latitude, &c.Longitude, &c.Specialties,
			&c.MinBudgetCents, &c.MaxBudgetCents,
			&c.ReputationScore, &c.WinRate, &c.AvgRating, &c.AvgResponseHours,
			&c.AutoAcceptEnabled, &c.AutoAcceptMinScore, &c.AutoAcceptMaxPriceCents,
			&c.AutoAcceptMaxDistanceKm,
			&c.LeadsLast7Days, &c.LeadsLast24h,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("candidate rows: %w", err)
	}
	return candidates, nil
}

// LoadRates reads the pricing tables. The tables are small and change
// rarely; loading them per distribution keeps pricing current without a
// cache invalidation story.
func (r *Repo) LoadRates(ctx context.Context) (pricing.Rates, error) {
	rates := pricing.Rates{
		CategoryMultipliers: make(map[string]float64),
		ZoneMultipliers:     make(map[string]float64),
	}

	rows, err := r.pool.Query(ctx, `
		SELECT min_budget_cents, max_budget_cents, price_cents
		FROM lead_pricing_tiers
		ORDER BY min_budget_cents`)
	if err != nil {
		return pricing.Rates{}, fmt.Errorf("load pricing tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t pricing.Tier
		if err := rows.Scan(&t.MinBudgetCents, &t.MaxBudgetCents, &t.PriceCents); err != nil {
			return pricing.Rates{}, fmt.Errorf("scan pricing tier: %w", err)
		}
		rates.Tiers = append(rates.Tiers, t)
	}
	if err := rows.Err(); err != nil {
		return pricing.Rates{}, fmt.Errorf("pricing tier rows: %w", err)
	}

	if err := r.loadMultipliers(ctx,
		`SELECT category, multiplier FROM category_pricing_multipliers`,
		rates.CategoryMultipliers); err != nil {
		return pricing.Rates{}, err
	}
	if err := r.loadMultipliers(ctx,
		`SELECT area_prefix, multiplier FROM location_pricing_zones`,
		rates.ZoneMultipliers); err != nil {
		return pricing.Rates{}, err
	}
	return rates, nil
}

func (r *Repo) loadMultipliers(ctx context.Context, query string, dest map[string]float64) error {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("load multipliers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var mult float64
		if err := rows.Scan(&key, &mult); err != nil {
			return fmt.Errorf("scan multiplier: %w", err)
		}
		dest[key] = mult
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("multiplier rows: %w", err)
	}
	return nil
}

// InsertAcceptanceLog writes the audit row inside the accept transaction.
func (r *Repo) InsertAcceptanceLog(ctx context.Context, tx pgx.Tx, entry AcceptanceLog) error {
	query := `
		INSERT INTO lead_acceptance_log (
			distribution_id, lead_id, vendor_id, price_cents, auto_accepted, accepted_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		entry.DistributionID, entry.LeadID, entry.VendorID,
		entry.PriceCents, entry.AutoAccepted, entry.AcceptedAt)
	if err != nil {
		return fmt.Errorf("insert acceptance log: %w", err)
	}
	return nil
}
