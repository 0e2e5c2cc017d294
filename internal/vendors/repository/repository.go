// Package repository provides PostgreSQL persistence for vendor profiles,
// lead preferences, auto-accept rules and the performance read model.
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

const vendorNotFoundMessage = "vendor not found"

// Vendor is a vendor profile. The ID matches the JWT subject of the vendor's
// account; accounts themselves are managed by an external collaborator.
type Vendor struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Postcode    string
	Latitude    *float64
	Longitude   *float64
	Specialties []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Preferences are the vendor's lead matching preferences.
type Preferences struct {
	VendorID        uuid.UUID
	MinBudgetCents  *int64
	MaxBudgetCents  *int64
	MaxDistanceKm   *float64
	MinQualityScore *int
}

// AutoAcceptRule is the vendor's opt-in auto-accept configuration. All set
// thresholds must pass for an offer to auto-accept.
type AutoAcceptRule struct {
	VendorID      uuid.UUID
	Enabled       bool
	MinMatchScore *float64
	MaxPriceCents *int64
	MaxDistanceKm *float64
}

// Performance is the read model of a vendor's historical performance used by
// the matcher. Maintained by a separate aggregation concern; read-only here.
type Performance struct {
	VendorID         uuid.UUID
	ReputationScore  *float64
	WinRate          *float64
	AvgRating        *float64
	AvgResponseHours *float64
}

// Repository is the persistence contract for the vendors module.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Vendor, error)
	UpsertProfile(ctx context.Context, vendor Vendor) (Vendor, error)
	GetPreferences(ctx context.Context, vendorID uuid.UUID) (Preferences, error)
	SetPreferences(ctx context.Context, prefs Preferences) error
	GetAutoAcceptRule(ctx context.Context, vendorID uuid.UUID) (AutoAcceptRule, error)
	SetAutoAcceptRule(ctx context.Context, rule AutoAcceptRule) error
	GetPerformance(ctx context.Context, vendorID uuid.UUID) (Performance, error)
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new vendors repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a vendor profile.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Vendor, error) {
	query := `
		SELECT id, name, email, postcode, latitude, longitude, specialties,
		       active, created_at, updated_at
		FROM vendors
		WHERE id = $1`

	var v Vendor
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.Email, &v.Postcode, &v.Latitude, &v.Longitude,
		&v.Specialties, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, apperr.NotFound(vendorNotFoundMessage)
		}
		return Vendor{}, fmt.Errorf("get vendor by id: %w", err)
	}
	return v, nil
}

// UpsertProfile creates or updates a vendor profile.
func (r *Repo) UpsertProfile(ctx context.Context, vendor Vendor) (Vendor, error) {
	query := `
		INSERT INTO vendors (id, name, email, postcode, latitude, longitude, specialties, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			postcode = EXCLUDED.postcode,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			specialties = EXCLUDED.specialties,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		vendor.ID, vendor.Name, vendor.Email, vendor.Postcode,
		vendor.Latitude, vendor.Longitude, vendor.Specialties, vendor.Active,
	).Scan(&vendor.CreatedAt, &vendor.UpdatedAt)
	if err != nil {
		return Vendor{}, fmt.Errorf("upsert vendor profile: %w", err)
	}
	return vendor, nil
}

// GetPreferences retrieves the vendor's lead preferences. A vendor without a
// row gets empty preferences, not an error.
func (r *Repo) GetPreferences(ctx context.Context, vendorID uuid.UUID) (Preferences, error) {
	query := `
		SELECT min_budget_cents, max_budget_cents, max_distance_km, min_quality_score
		FROM vendor_preferences
		WHERE vendor_id = $1`

	prefs := Preferences{VendorID: vendorID}
	err := r.pool.QueryRow(ctx, query, vendorID).Scan(
		&prefs.MinBudgetCents, &prefs.MaxBudgetCents, &prefs.MaxDistanceKm, &prefs.MinQualityScore,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preferences{VendorID: vendorID}, nil
		}
		return Preferences{}, fmt.Errorf("get vendor preferences: %w", err)
	}
	return prefs, nil
}

// SetPreferences upserts the vendor's lead preferences.
func (r *Repo) SetPreferences(ctx context.Context, prefs Preferences) error {
	query := `
		INSERT INTO vendor_preferences (
			vendor_id, min_budget_cents, max_budget_cents, max_distance_km, min_quality_score
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vendor_id) DO UPDATE SET
			min_budget_cents = EXCLUDED.min_budget_cents,
			max_budget_cents = EXCLUDED.max_budget_cents,
			max_distance_km = EXCLUDED.max_distance_km,
			min_quality_score = EXCLUDED.min_quality_score,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		prefs.VendorID, prefs.MinBudgetCents, prefs.MaxBudgetCents,
		prefs.MaxDistanceKm, prefs.MinQualityScore)
	if err != nil {
		return fmt.Errorf("set vendor preferences: %w", err)
	}
	return nil
}

// GetAutoAcceptRule retrieves the vendor's auto-accept rule. Absence means
// disabled.
func (r *Repo) GetAutoAcceptRule(ctx context.Context, vendorID uuid.UUID) (AutoAcceptRule, error) {
	query := `
		SELECT enabled, min_match_score, max_price_cents, max_distance_km
		FROM vendor_auto_accept_rules
		WHERE vendor_id = $1`

	rule := AutoAcceptRule{VendorID: vendorID}
	err := r.pool.QueryRow(ctx, query, vendorID).Scan(
		&rule.Enabled, &rule.MinMatchScore, &rule.MaxPriceCents, &rule.MaxDistanceKm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AutoAcceptRule{VendorID: vendorID}, nil
		}
		return AutoAcceptRule{}, fmt.Errorf("get auto-accept rule: %w", err)
	}
	return rule, nil
}

// SetAutoAcceptRule upserts the vendor's auto-accept rule.
func (r *Repo) SetAutoAcceptRule(ctx context.Context, rule AutoAcceptRule) error {
	query := `
		INSERT INTO vendor_auto_accept_rules (
			vendor_id, enabled, min_match_score, max_price_cents, max_distance_km
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vendor_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			min_match_score = EXCLUDED.min_match_score,
			max_price_cents = EXCLUDED.max_price_cents,
			max_distance_km = EXCLUDED.max_distance_km,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		rule.VendorID, rule.Enabled, rule.MinMatchScore, rule.MaxPriceCents, rule.MaxDistanceKm)
	if err != nil {
		return fmt.Errorf("set auto-accept rule: %w", err)
	}
	return nil
}

// GetPerformance retrieves the vendor's performance read model. Missing rows
// yield zero-valued metrics; the matcher applies its own neutral defaults.
func (r *Repo) GetPerformance(ctx context.Context, vendorID uuid.UUID) (Performance, error) {
	query := `
		SELECT reputation_score, win_rate, avg_rating, avg_response_hours
		FROM vendor_performance
		WHERE vendor_id = $1`

	perf := Performance{VendorID: vendorID}
	err := r.pool.QueryRow(ctx, query, vendorID).Scan(
		&perf.ReputationScore, &perf.WinRate, &perf.AvgRating, &perf.AvgResponseHours,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Performance{VendorID: vendorID}, nil
		}
		return Performance{}, fmt.Errorf("get vendor performance: %w", err)
	}
	return perf, nil
}
