package adapters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	creditsrepo "tradematch_backend/internal/credits/repository"
	"tradematch_backend/internal/distribution/ports"
	"tradematch_backend/internal/events"
)

// lowBalanceThresholdCents is the balance below which a debit triggers a
// BalanceLow event.
const lowBalanceThresholdCents int64 = 500

// CreditsLedger adapts the credits repository to the distribution module's
// ledger port. Charges and refunds run inside the caller's transaction so
// the offer state flip and the money movement commit together.
type CreditsLedger struct {
	repo creditsrepo.Repository
	bus  events.Bus
}

// NewCreditsLedger creates a new credits ledger adapter.
func NewCreditsLedger(repo creditsrepo.Repository, bus events.Bus) *CreditsLedger {
	return &CreditsLedger{repo: repo, bus: bus}
}

// Charge debits the vendor for an accepted offer.
func (a *CreditsLedger) Charge(ctx context.Context, tx pgx.Tx, params ports.ChargeParams) (ports.ApplyResult, error) {
	distID := params.DistributionID
	result, err := a.repo.DebitInTx(ctx, tx, creditsrepo.EntryParams{
		VendorID:       params.VendorID,
		AmountCents:    params.AmountCents,
		EntryType:      creditsrepo.EntryCreditConsumed,
		IdempotencyKey: params.IdempotencyKey,
		DistributionID: &distID,
	})
	if err != nil {
		return ports.ApplyResult{}, err
	}

	if !result.Replayed && result.BalanceCents < lowBalanceThresholdCents {
		a.bus.Publish(ctx, events.BalanceLow{
			BaseEvent:    events.NewBaseEvent(),
			VendorID:     params.VendorID,
			BalanceCents: result.BalanceCents,
		})
	}

	return ports.ApplyResult{
		EntryID:      result.Entry.ID,
		BalanceCents: result.BalanceCents,
		Replayed:     result.Replayed,
	}, nil
}

// Refund credits the vendor against a past charge.
func (a *CreditsLedger) Refund(ctx context.Context, tx pgx.Tx, params ports.RefundParams) (ports.ApplyResult, error) {
	distID := params.DistributionID
	reason := params.ReasonCode
	result, err := a.repo.CreditInTx(ctx, tx, creditsrepo.EntryParams{
		VendorID:       params.VendorID,
		AmountCents:    params.AmountCents,
		EntryType:      creditsrepo.EntryRefund,
		IdempotencyKey: params.IdempotencyKey,
		DistributionID: &distID,
		ReasonCode:     &reason,
	})
	if err != nil {
		return ports.ApplyResult{}, err
	}
	return ports.ApplyResult{
		EntryID:      result.Entry.ID,
		BalanceCents: result.BalanceCents,
		Replayed:     result.Replayed,
	}, nil
}

// RefundedAmount reports the refund already recorded against a distribution,
// if any.
func (a *CreditsLedger) RefundedAmount(ctx context.Context, tx pgx.Tx, distributionID uuid.UUID) (int64, bool, error) {
	entry, err := a.repo.FindRefundForDistribution(ctx, tx, distributionID)
	if err != nil {
		return 0, false, err
	}
	if entry == nil {
		return 0, false, nil
	}
	return entry.AmountCents, true, nil
}

// Compile-time check that CreditsLedger implements ports.Ledger.
var _ ports.Ledger = (*CreditsLedger)(nil)
