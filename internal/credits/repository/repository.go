// Package repository provides PostgreSQL persistence for the credit ledger.
//
// The ledger is append-only: entries are never updated or deleted, and
// corrections are new offsetting entries. vendor_balances is a materialized
// running total maintained in the same transaction as each insert; the entry
// log remains the ground truth and wins on reconciliation conflicts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradematch_backend/internal/credits/limits"
	"tradematch_backend/platform/apperr"
)

// Ledger entry types.
const (
	EntryPurchase       = "purchase"
	EntryCreditConsumed = "credit_consumed"
	EntryRefund         = "refund"
	EntryBonus          = "bonus"
	EntryAdjustment     = "adjustment"
)

const msgInsufficientBalance = "insufficient credits, purchase more credits to access this lead"

// LedgerEntry is one immutable ledger row. AmountCents is signed: negative
// entries are debits.
type LedgerEntry struct {
	ID             uuid.UUID
	VendorID       uuid.UUID
	AmountCents    int64
	EntryType      string
	IdempotencyKey string
	DistributionID *uuid.UUID
	ReasonCode     *string
	ExternalRef    *string
	CreatedAt      time.Time
}

// EntryParams are the inputs for a new ledger entry. AmountCents must be
// positive; Debit and Credit apply the sign.
type EntryParams struct {
	VendorID       uuid.UUID
	AmountCents    int64
	EntryType      string
	IdempotencyKey string
	DistributionID *uuid.UUID
	ReasonCode     *string
	ExternalRef    *string
}

// ApplyResult is the outcome of a Debit or Credit. Replayed is true when the
// idempotency key had already been applied and the original entry was
// returned without moving the balance.
type ApplyResult struct {
	Entry        LedgerEntry
	BalanceCents int64
	Replayed     bool
}

// Mismatch is one reconciliation discrepancy between the entry log and the
// materialized balance.
type Mismatch struct {
	VendorID          uuid.UUID
	LedgerCents       int64
	MaterializedCents int64
}

// Repository is the persistence contract for the credits module. The InTx
// variants run inside a caller-owned transaction so the accept path can make
// the debit, the limit consume and the offer state flip one atomic unit.
type Repository interface {
	Debit(ctx context.Context, params EntryParams) (ApplyResult, error)
	Credit(ctx context.Context, params EntryParams) (ApplyResult, error)
	DebitInTx(ctx context.Context, tx pgx.Tx, params EntryParams) (ApplyResult, error)
	CreditInTx(ctx context.Context, tx pgx.Tx, params EntryParams) (ApplyResult, error)
	GetBalance(ctx context.Context, vendorID uuid.UUID) (int64, error)
	History(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]LedgerEntry, error)
	FindRefundForDistribution(ctx context.Context, tx pgx.Tx, distributionID uuid.UUID) (*LedgerEntry, error)
	Reconcile(ctx context.Context) ([]Mismatch, error)

	GetCaps(ctx context.Context, vendorID uuid.UUID) (limits.Caps, error)
	SetCaps(ctx context.Context, vendorID uuid.UUID, caps limits.Caps) error
	LockCounters(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (limits.Caps, limits.Counters, error)
	StoreCounters(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, c limits.Counters) error
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new credits repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Debit applies a debit in its own transaction.
func (r *Repo) Debit(ctx context.Context, params EntryParams) (ApplyResult, error) {
	return r.applyStandalone(ctx, params, true)
}

// Credit applies a credit in its own transaction.
func (r *Repo) Credit(ctx context.Context, params EntryParams) (ApplyResult, error) {
	return r.applyStandalone(ctx, params, false)
}

func (r *Repo) applyStandalone(ctx context.Context, params EntryParams, debit bool) (ApplyResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var result ApplyResult
	if debit {
		result, err = r.DebitInTx(ctx, tx, params)
	} else {
		result, err = r.CreditInTx(ctx, tx, params)
	}
	if err != nil {
		return ApplyResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return ApplyResult{}, fmt.Errorf("commit ledger tx: %w", err)
	}
	return result, nil
}

// DebitInTx applies a debit inside the caller's transaction. The vendor's
// balance row is locked first, so concurrent debits for the same vendor
// serialize here. A replay of an already-applied idempotency key returns the
// original entry without touching the balance. The debit fails with
// InsufficientBalance when the post-debit balance would go negative; it never
// clamps to zero.
func (r *Repo) DebitInTx(ctx context.Context, tx pgx.Tx, params EntryParams) (ApplyResult, error) {
	if params.AmountCents <= 0 {
		return ApplyResult{}, apperr.Validation("debit amount must be positive")
	}

	balance, err := lockBalance(ctx, tx, params.VendorID)
	if err != nil {
		return ApplyResult{}, err
	}

	if existing, found, err := findByIdempotencyKey(ctx, tx, params.IdempotencyKey); err != nil {
		return ApplyResult{}, err
	} else if found {
		return ApplyResult{Entry: existing, BalanceCents: balance, Replayed: true}, nil
	}

	if balance < params.AmountCents {
		return ApplyResult{}, apperr.InsufficientBalance(msgInsufficientBalance)
	}

	entry, err := insertEntry(ctx, tx, params, -params.AmountCents)
	if err != nil {
		return ApplyResult{}, err
	}

	newBalance, err := adjustBalance(ctx, tx, params.VendorID, -params.AmountCents)
	if err != nil {
		return ApplyResult{}, err
	}

	return ApplyResult{Entry: entry, BalanceCents: newBalance}, nil
}

// CreditInTx applies a credit inside the caller's transaction, with the same
// locking and idempotency semantics as DebitInTx.
func (r *Repo) CreditInTx(ctx context.Context, tx pgx.Tx, params EntryParams) (ApplyResult, error) {
	if params.AmountCents <= 0 {
		return ApplyResult{}, apperr.Validation("credit amount must be positive")
	}

	balance, err := lockBalance(ctx, tx, params.VendorID)
	if err != nil {
		return ApplyResult{}, err
	}

	if existing, found, err := findByIdempotencyKey(ctx, tx, params.IdempotencyKey); err != nil {
		return ApplyResult{}, err
	} else if found {
		return ApplyResult{Entry: existing, BalanceCents: balance, Replayed: true}, nil
	}

	entry, err := insertEntry(ctx, tx, params, params.AmountCents)
	if err != nil {
		return ApplyResult{}, err
	}

	newBalance, err := adjustBalance(ctx, tx, params.VendorID, params.AmountCents)
	if err != nil {
		return ApplyResult{}, err
	}

	return ApplyResult{Entry: entry, BalanceCents: newBalance}, nil
}

// lockBalance ensures the vendor's balance row exists and takes the row lock
// that serializes all ledger writes for this vendor.
func lockBalance(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO vendor_balances (vendor_id, balance_cents)
		VALUES ($1, 0)
		ON CONFLICT (vendor_id) DO NOTHING`, vendorID)
	if err != nil {
		return 0, fmt.Errorf("ensure balance row: %w", err)
	}

	var balance int64
	err = tx.QueryRow(ctx, `
		SELECT balance_cents FROM vendor_balances
		WHERE vendor_id = $1
		FOR UPDATE`, vendorID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock balance row: %w", err)
	}
	return balance, nil
}

func findByIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (LedgerEntry, bool, error) {
	var entry LedgerEntry
	err := tx.QueryRow(ctx, `
		SELECT id, vendor_id, amount_cents, entry_type, idempotency_key,
		       distribution_id, reason_code, external_ref, created_at
		FROM ledger_entries
		WHERE idempotency_key = $1`, key).Scan(
		&entry.ID, &entry.VendorID, &entry.AmountCents, &entry.EntryType,
		&entry.IdempotencyKey, &entry.DistributionID, &entry.ReasonCode,
		&entry.ExternalRef, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, fmt.Errorf("find ledger entry by key: %w", err)
	}
	return entry, true, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, params EntryParams, signedAmount int64) (LedgerEntry, error) {
	entry := LedgerEntry{
		ID:             uuid.New(),
		VendorID:       params.VendorID,
		AmountCents:    signedAmount,
		EntryType:      params.EntryType,
		IdempotencyKey: params.IdempotencyKey,
		DistributionID: params.DistributionID,
		ReasonCode:     params.ReasonCode,
		ExternalRef:    params.ExternalRef,
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (
			id, vendor_id, amount_cents, entry_type, idempotency_key,
			distribution_id, reason_code, external_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		entry.ID, entry.VendorID, entry.AmountCents, entry.EntryType,
		entry.IdempotencyKey, entry.DistributionID, entry.ReasonCode, entry.ExternalRef,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

func adjustBalance(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE vendor_balances
		SET balance_cents = balance_cents + $2, updated_at = now()
		WHERE vendor_id = $1
		RETURNING balance_cents`, vendorID, delta).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return balance, nil
}

// GetBalance reads the materialized balance. Lock-free snapshot read.
func (r *Repo) GetBalance(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		SELECT balance_cents FROM vendor_balances WHERE vendor_id = $1`,
		vendorID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// History lists ledger entries for a vendor, newest first.
func (r *Repo) History(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, vendor_id, amount_cents, entry_type, idempotency_key,
		       distribution_id, reason_code, external_ref, created_at
		FROM ledger_entries
		WHERE vendor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, vendorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger history: %w", err)
	}
	defer rows.Close()

	entries := make([]LedgerEntry, 0)
	for rows.Next() {
		var entry LedgerEntry
		if err := rows.Scan(
			&entry.ID, &entry.VendorID, &entry.AmountCents, &entry.EntryType,
			&entry.IdempotencyKey, &entry.DistributionID, &entry.ReasonCode,
			&entry.ExternalRef, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindRefundForDistribution returns the refund entry referencing a
// distribution, if one exists. Used to enforce at-most-one refund.
func (r *Repo) FindRefundForDistribution(ctx context.Context, tx pgx.Tx, distributionID uuid.UUID) (*LedgerEntry, error) {
	var entry LedgerEntry
	err := tx.QueryRow(ctx, `
		SELECT id, vendor_id, amount_cents, entry_type, idempotency_key,
		       distribution_id, reason_code, external_ref, created_at
		FROM ledger_entries
		WHERE distribution_id = $1 AND entry_type = $2`,
		distributionID, EntryRefund).Scan(
		&entry.ID, &entry.VendorID, &entry.AmountCents, &entry.EntryType,
		&entry.IdempotencyKey, &entry.DistributionID, &entry.ReasonCode,
		&entry.ExternalRef, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find refund entry: %w", err)
	}
	return &entry, nil
}

// Reconcile recomputes every vendor's balance from the entry log and reports
// mismatches against the materialized totals. Mismatches are never corrected
// here; the ledger is the ground truth and a divergence is an operations
// fault to investigate.
func (r *Repo) Reconcile(ctx context.Context) ([]Mismatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(e.vendor_id, b.vendor_id),
		       COALESCE(e.total, 0),
		       COALESCE(b.balance_cents, 0)
		FROM (
			SELECT vendor_id, SUM(amount_cents) AS total
			FROM ledger_entries
			GROUP BY vendor_id
		) e
		FULL OUTER JOIN vendor_balances b ON b.vendor_id = e.vendor_id
		WHERE COALESCE(e.total, 0) <> COALESCE(b.balance_cents, 0)`)
	if err != nil {
		return nil, fmt.Errorf("reconcile balances: %w", err)
	}
	defer rows.Close()

	mismatches := make([]Mismatch, 0)
	for rows.Next() {
		var m Mismatch
		if err := rows.Scan(&m.VendorID, &m.LedgerCents, &m.MaterializedCents); err != nil {
			return nil, fmt.Errorf("scan reconcile row: %w", err)
		}
		mismatches = append(mismatches, m)
	}
	return mismatches, rows.Err()
}
