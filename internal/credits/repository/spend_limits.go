package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tradematch_backend/internal/credits/limits"
)

// GetCaps reads the configured spend caps for a vendor. A vendor without a
// row has no caps.
func (r *Repo) GetCaps(ctx context.Context, vendorID uuid.UUID) (limits.Caps, error) {
	var caps limits.Caps
	err := r.pool.QueryRow(ctx, `
		SELECT daily_limit_cents, weekly_limit_cents, monthly_limit_cents
		FROM vendor_spend_limits
		WHERE vendor_id = $1`, vendorID).Scan(
		&caps.DailyCents, &caps.WeeklyCents, &caps.MonthlyCents,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return limits.Caps{}, nil
		}
		return limits.Caps{}, fmt.Errorf("get spend caps: %w", err)
	}
	return caps, nil
}

// SetCaps upserts the configured caps, preserving the spent counters.
func (r *Repo) SetCaps(ctx context.Context, vendorID uuid.UUID, caps limits.Caps) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vendor_spend_limits (
			vendor_id, daily_limit_cents, weekly_limit_cents, monthly_limit_cents
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (vendor_id) DO UPDATE SET
			daily_limit_cents = EXCLUDED.daily_limit_cents,
			weekly_limit_cents = EXCLUDED.weekly_limit_cents,
			monthly_limit_cents = EXCLUDED.monthly_limit_cents,
			updated_at = now()`,
		vendorID, caps.DailyCents, caps.WeeklyCents, caps.MonthlyCents)
	if err != nil {
		return fmt.Errorf("set spend caps: %w", err)
	}
	return nil
}

// LockCounters reads caps and rolling counters under a row lock inside the
// caller's transaction. A vendor without a row gets zero counters and no
// caps; the row is created so the lock is real.
func (r *Repo) LockCounters(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (limits.Caps, limits.Counters, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO vendor_spend_limits (vendor_id)
		VALUES ($1)
		ON CONFLICT (vendor_id) DO NOTHING`, vendorID)
	if err != nil {
		return limits.Caps{}, limits.Counters{}, fmt.Errorf("ensure spend limit row: %w", err)
	}

	var caps limits.Caps
	var c limits.Counters
	err = tx.QueryRow(ctx, `
		SELECT daily_limit_cents, weekly_limit_cents, monthly_limit_cents,
		       daily_spent_cents, daily_window_start,
		       weekly_spent_cents, weekly_window_start,
		       monthly_spent_cents, monthly_window_start
		FROM vendor_spend_limits
		WHERE vendor_id = $1
		FOR UPDATE`, vendorID).Scan(
		&caps.DailyCents, &caps.WeeklyCents, &caps.MonthlyCents,
		&c.Daily.SpentCents, &c.Daily.Start,
		&c.Weekly.SpentCents, &c.Weekly.Start,
		&c.Monthly.SpentCents, &c.Monthly.Start,
	)
	if err != nil {
		return limits.Caps{}, limits.Counters{}, fmt.Errorf("lock spend counters: %w", err)
	}
	return caps, c, nil
}

// StoreCounters writes rolled-and-consumed counters back inside the caller's
// transaction.
func (r *Repo) StoreCounters(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, c limits.Counters) error {
	_, err := tx.Exec(ctx, `
		UPDATE vendor_spend_limits
		SET daily_spent_cents = $2, daily_window_start = $3,
		    weekly_spent_cents = $4, weekly_window_start = $5,
		    monthly_spent_cents = $6, monthly_window_start = $7,
		    updated_at = now()
		WHERE vendor_id = $1`,
		vendorID,
		c.Daily.SpentCents, c.Daily.Start,
		c.Weekly.SpentCents, c.Weekly.Start,
		c.Monthly.SpentCents, c.Monthly.Start)
	if err != nil {
		return fmt.Errorf("store spend counters: %w", err)
	}
	return nil
}
