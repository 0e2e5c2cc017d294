package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tradematch_backend/internal/credits/limits"
	creditsrepo "tradematch_backend/internal/credits/repository"
	"tradematch_backend/internal/distribution/ports"
)

// CreditsSpendGuard adapts the credits spend-limit persistence to the
// distribution module's guard port. The counters row is locked for the
// duration of the caller's transaction, so a rejected charge rolls the
// consume back with everything else.
type CreditsSpendGuard struct {
	repo creditsrepo.Repository
}

// NewCreditsSpendGuard creates a new spend guard adapter.
func NewCreditsSpendGuard(repo creditsrepo.Repository) *CreditsSpendGuard {
	return &CreditsSpendGuard{repo: repo}
}

// CheckAndConsume rolls the vendor's spend windows to now, verifies the
// charge fits under every configured cap and consumes it.
func (a *CreditsSpendGuard) CheckAndConsume(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID, amountCents int64, now time.Time) error {
	caps, counters, err := a.repo.LockCounters(ctx, tx, vendorID)
	if err != nil {
		return err
	}

	counters = limits.Roll(counters, now)
	if err := limits.Check(counters, caps, amountCents); err != nil {
		return err
	}
	counters = limits.Consume(counters, amountCents)

	return a.repo.StoreCounters(ctx, tx, vendorID, counters)
}

// Compile-time check that CreditsSpendGuard implements ports.SpendGuard.
var _ ports.SpendGuard = (*CreditsSpendGuard)(nil)
