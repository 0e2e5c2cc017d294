// Package ports defines the contracts the distribution module needs from
// the credit ledger. Implementations live in internal/adapters; the InTx
// shape lets the accept path make the charge, the spend-limit consume and
// the offer state flip one atomic transaction.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChargeParams describe a debit for an accepted offer.
type ChargeParams struct {
	VendorID       uuid.UUID
	AmountCents    int64
	IdempotencyKey string
	DistributionID uuid.UUID
}

// RefundParams describe a refund credit against a past charge.
type RefundParams struct {
	VendorID       uuid.UUID
	AmountCents    int64
	IdempotencyKey string
	DistributionID uuid.UUID
	ReasonCode     string
}

// ApplyResult is the outcome of a ledger movement. Replayed means the
// idempotency key had already been applied and nothing moved.
type ApplyResult struct {
	EntryID      uuid.UUID
	BalanceCents int64
	Replayed     bool
}

// Ledger applies credit movements inside the caller's transaction.
type Ledger interface {
	Charge(ctx context.Context, tx pgx.Tx, params ChargeParams) (ApplyResult, error)
	Refund(ctx context.Context, tx pgx.Tx, params RefundParams) (ApplyResult, error)

	// RefundedAmount returns the amount already refunded against a
	// distribution, or zero when none exists.
	RefundedAmount(ctx context.Context, tx pgx.Tx, distributionID uuid.UUID) (int64, bool, error)
}

// SpendGuard enforces the vendor's rolling spend caps inside the caller's
// transaction. A passing check also consumes the amount from the windows.
type SpendGuard interface {
	CheckAndConsume(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, amountCents int64, now time.Time) error
}
