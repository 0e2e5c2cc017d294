// Package service implements credit ledger operations and the spend limiter
// management surface.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradematch_backend/internal/credits/limits"
	"tradematch_backend/internal/credits/repository"
	"tradematch_backend/internal/credits/transport"
	"tradematch_backend/internal/events"
	"tradematch_backend/platform/logger"
)

// purchaseKeyPrefix namespaces purchase idempotency keys so an external
// reference cannot collide with acceptance or refund keys.
const purchaseKeyPrefix = "credit_purchase:"

// packageCatalog is the purchasable credit bundle catalog. 1 credit = 100
// cents of lead spend; bundle prices are what the payment collaborator
// charges, not ledger amounts.
var packageCatalog = []transport.Package{
	{ID: "starter", Credits: 10, PriceCents: 499, Description: "Perfect for trying out", PerCredit: 49.9},
	{ID: "professional", Credits: 25, PriceCents: 1099, Description: "Best for active vendors", PerCredit: 43.96, SavingsPct: 12},
	{ID: "business", Credits: 50, PriceCents: 1999, Description: "For growing businesses", PerCredit: 39.98, SavingsPct: 20},
	{ID: "enterprise", Credits: 100, PriceCents: 3499, Description: "For high-volume vendors", PerCredit: 34.99, SavingsPct: 30, Popular: true},
	{ID: "premium", Credits: 250, PriceCents: 7999, Description: "For enterprise partners", PerCredit: 31.996, SavingsPct: 36},
}

// Service implements the credits module operations.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates the credits service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Balance returns the vendor's materialized balance.
func (s *Service) Balance(ctx context.Context, vendorID uuid.UUID) (transport.BalanceResponse, error) {
	balance, err := s.repo.GetBalance(ctx, vendorID)
	if err != nil {
		return transport.BalanceResponse{}, err
	}
	return transport.BalanceResponse{VendorID: vendorID, BalanceCents: balance}, nil
}

// History lists the vendor's ledger entries, newest first.
func (s *Service) History(ctx context.Context, vendorID uuid.UUID, query transport.HistoryQuery) (transport.HistoryResponse, error) {
	limit := query.Limit
	if limit == 0 {
		limit = 50
	}

	entries, err := s.repo.History(ctx, vendorID, limit, query.Offset)
	if err != nil {
		return transport.HistoryResponse{}, err
	}

	items := make([]transport.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, transport.LedgerEntryResponse{
			ID:             entry.ID,
			AmountCents:    entry.AmountCents,
			EntryType:      entry.EntryType,
			DistributionID: entry.DistributionID,
			ReasonCode:     entry.ReasonCode,
			ExternalRef:    entry.ExternalRef,
			CreatedAt:      entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return transport.HistoryResponse{Items: items}, nil
}

// Packages returns the static credit package catalog.
func (s *Service) Packages() transport.PackagesResponse {
	return transport.PackagesResponse{Packages: packageCatalog}
}

// RecordPurchase applies a confirmed purchase fact to the ledger. The
// external reference is the idempotency key, so replaying the same
// confirmation returns the original entry without double-crediting.
func (s *Service) RecordPurchase(ctx context.Context, vendorID uuid.UUID, req transport.PurchaseRequest) (transport.PurchaseResponse, error) {
	ref := req.ExternalRef
	result, err := s.repo.Credit(ctx, repository.EntryParams{
		VendorID:       vendorID,
		AmountCents:    req.AmountCents,
		EntryType:      repository.EntryPurchase,
		IdempotencyKey: purchaseKeyPrefix + ref,
		ExternalRef:    &ref,
	})
	if err != nil {
		return transport.PurchaseResponse{}, err
	}

	if !result.Replayed {
		s.log.LedgerEvent("purchase recorded", vendorID.String(), result.Entry.AmountCents, result.Entry.IdempotencyKey)
		s.bus.Publish(ctx, events.CreditsPurchased{
			BaseEvent:   events.NewBaseEvent(),
			VendorID:    vendorID,
			AmountCents: req.AmountCents,
			ExternalRef: ref,
		})
	}

	return transport.PurchaseResponse{
		EntryID:      result.Entry.ID,
		AmountCents:  result.Entry.AmountCents,
		BalanceCents: result.BalanceCents,
		Replayed:     result.Replayed,
	}, nil
}

// GetSpendLimits returns the vendor's configured caps.
func (s *Service) GetSpendLimits(ctx context.Context, vendorID uuid.UUID) (transport.SpendLimitsResponse, error) {
	caps, err := s.repo.GetCaps(ctx, vendorID)
	if err != nil {
		return transport.SpendLimitsResponse{}, err
	}
	return transport.SpendLimitsResponse{
		DailyCents:   caps.DailyCents,
		WeeklyCents:  caps.WeeklyCents,
		MonthlyCents: caps.MonthlyCents,
	}, nil
}

// SetSpendLimits updates the vendor's caps. Spent counters are untouched.
func (s *Service) SetSpendLimits(ctx context.Context, vendorID uuid.UUID, req transport.SpendLimitsRequest) (transport.SpendLimitsResponse, error) {
	caps := limits.Caps{
		DailyCents:   req.DailyCents,
		WeeklyCents:  req.WeeklyCents,
		MonthlyCents: req.MonthlyCents,
	}
	if err := s.repo.SetCaps(ctx, vendorID, caps); err != nil {
		return transport.SpendLimitsResponse{}, err
	}
	return transport.SpendLimitsResponse{
		DailyCents:   caps.DailyCents,
		WeeklyCents:  caps.WeeklyCents,
		MonthlyCents: caps.MonthlyCents,
	}, nil
}

// Reconcile recomputes balances from the entry log and reports mismatches.
// A mismatch is a data-integrity fault: it is logged, published for
// operations, and never auto-corrected.
func (s *Service) Reconcile(ctx context.Context) (transport.ReconciliationResponse, error) {
	mismatches, err := s.repo.Reconcile(ctx)
	if err != nil {
		return transport.ReconciliationResponse{}, err
	}

	items := make([]transport.MismatchResponse, 0, len(mismatches))
	for _, m := range mismatches {
		s.log.IntegrityFault(m.VendorID.String(), m.LedgerCents, m.MaterializedCents)
		s.bus.Publish(ctx, events.IntegrityFaultDetected{
			BaseEvent:         events.NewBaseEvent(),
			VendorID:          m.VendorID,
			LedgerCents:       m.LedgerCents,
			MaterializedCents: m.MaterializedCents,
		})
		items = append(items, transport.MismatchResponse{
			VendorID:          m.VendorID,
			LedgerCents:       m.LedgerCents,
			MaterializedCents: m.MaterializedCents,
		})
	}

	return transport.ReconciliationResponse{Clean: len(items) == 0, Mismatches: items}, nil
}
