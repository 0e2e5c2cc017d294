// Package repository provides PostgreSQL persistence for leads and their
// qualification score versions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradematch_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

// Lead is a posted service request. Immutable after scoring except for
// bookkeeping owned by the distribution module.
type Lead struct {
	ID             uuid.UUID
	Category       string
	Postcode       string
	Latitude       *float64
	Longitude      *float64
	Description    string
	Urgency        *string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	BudgetNote     *string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  *string
	EmailVerified  bool
	PhoneVerified  bool
	MediaCount     int
	Source         *string
	CreatedAt      time.Time
}

// LeadScore is one immutable qualification score version. Re-scoring inserts
// a new row with the next version; rows are never updated.
type LeadScore struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	Version      int
	OverallScore int
	QualityTier  string
	Budget       int
	Detail       int
	Urgency      int
	Verification int
	Media        int
	Location     int
	ModelVersion string
	CreatedAt    time.Time
}

// Repository is the persistence contract for the leads module.
type Repository interface {
	Create(ctx context.Context, lead Lead) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	InsertScore(ctx context.Context, score LeadScore) (LeadScore, error)
	LatestScore(ctx context.Context, leadID uuid.UUID) (LeadScore, error)
	CompletedJobCount(ctx context.Context, customerEmail string) (int, error)
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a new lead and returns it with generated fields populated.
func (r *Repo) Create(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		INSERT INTO leads (
			id, category, postcode, latitude, longitude, description, urgency,
			budget_min_cents, budget_max_cents, budget_note,
			customer_name, customer_email, customer_phone,
			email_verified, phone_verified, media_count, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at`

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		lead.ID, lead.Category, lead.Postcode, lead.Latitude, lead.Longitude,
		lead.Description, lead.Urgency,
		lead.BudgetMinCents, lead.BudgetMaxCents, lead.BudgetNote,
		lead.CustomerName, lead.CustomerEmail, lead.CustomerPhone,
		lead.EmailVerified, lead.PhoneVerified, lead.MediaCount, lead.Source,
	).Scan(&lead.CreatedAt)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}

	return lead, nil
}

// GetByID retrieves a lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := `
		SELECT id, category, postcode, latitude, longitude, description, urgency,
		       budget_min_cents, budget_max_cents, budget_note,
		       customer_name, customer_email, customer_phone,
		       email_verified, phone_verified, media_count, source, created_at
		FROM leads
		WHERE id = $1`

	var lead Lead
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID, &lead.Category, &lead.Postcode, &lead.Latitude, &lead.Longitude,
		&lead.Description, &lead.Urgency,
		&lead.BudgetMinCents, &lead.BudgetMaxCents, &lead.BudgetNote,
		&lead.CustomerName, &lead.CustomerEmail, &lead.CustomerPhone,
		&lead.EmailVerified, &lead.PhoneVerified, &lead.MediaCount, &lead.Source,
		&lead.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}

	return lead, nil
}

// InsertScore appends a new score version for a lead. The version is derived
// from the current maximum inside the insert so concurrent re-scores cannot
// produce duplicate versions.
func (r *Repo) InsertScore(ctx context.Context, score LeadScore) (LeadScore, error) {
	query := `
		INSERT INTO lead_scores (
			id, lead_id, version, overall_score, quality_tier,
			budget_score, detail_score, urgency_score,
			verification_score, media_score, location_score, model_version
		)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM lead_scores
		WHERE lead_id = $2
		RETURNING version, created_at`

	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		score.ID, score.LeadID, score.OverallScore, score.QualityTier,
		score.Budget, score.Detail, score.Urgency,
		score.Verification, score.Media, score.Location, score.ModelVersion,
	).Scan(&score.Version, &score.CreatedAt)
	if err != nil {
		return LeadScore{}, fmt.Errorf("insert lead score: %w", err)
	}

	return score, nil
}

// LatestScore retrieves the most recent score version for a lead.
func (r *Repo) LatestScore(ctx context.Context, leadID uuid.UUID) (LeadScore, error) {
	query := `
		SELECT id, lead_id, version, overall_score, quality_tier,
		       budget_score, detail_score, urgency_score,
		       verification_score, media_score, location_score, model_version, created_at
		FROM lead_scores
		WHERE lead_id = $1
		ORDER BY version DESC
		LIMIT 1`

	var score LeadScore
	err := r.pool.QueryRow(ctx, query, leadID).Scan(
		&score.ID, &score.LeadID, &score.Version, &score.OverallScore, &score.QualityTier,
		&score.Budget, &score.Detail, &score.Urgency,
		&score.Verification, &score.Media, &score.Location, &score.ModelVersion,
		&score.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadScore{}, apperr.NotFound("lead score not found")
		}
		return LeadScore{}, fmt.Errorf("get latest lead score: %w", err)
	}

	return score, nil
}

// CompletedJobCount counts previously completed jobs for a customer email.
// Used as a small verification bonus by the scorer.
func (r *Repo) CompletedJobCount(ctx context.Context, customerEmail string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM leads l
		JOIN lead_distributions d ON d.lead_id = l.id
		WHERE l.customer_email = $1 AND d.state = 'ACCEPTED'`

	var count int
	if err := r.pool.QueryRow(ctx, query, customerEmail).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed jobs: %w", err)
	}
	return count, nil
}
