// Package service orchestrates lead distribution: pricing and fan-out of
// scored leads, the offer lifecycle, and the refund path. Every money
// movement rides the credit ledger through the ports interfaces, inside the
// same transaction as the offer state change.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradematch_backend/internal/distribution/matcher"
	"tradematch_backend/internal/distribution/ports"
	"tradematch_backend/internal/distribution/pricing"
	"tradematch_backend/internal/distribution/refund"
	"tradematch_backend/internal/distribution/repository"
	"tradematch_backend/internal/distribution/transport"
	"tradematch_backend/internal/events"
	"tradematch_backend/platform/apperr"
	"tradematch_backend/platform/config"
	"tradematch_backend/platform/logger"
)

// acceptanceKeyPrefix namespaces the ledger idempotency keys written by the
// accept path. One key per (lead, vendor) pair: retried accepts replay the
// original charge instead of double billing.
const acceptanceKeyPrefix = "lead_acceptance"

// refundKeyPrefix namespaces refund idempotency keys, one per distribution.
const refundKeyPrefix = "refund"

// candidatePoolLimit bounds the vendor pool handed to the matcher.
const candidatePoolLimit = 50

// ScoredLead is the distribution input: a lead that has been persisted and
// scored. The leads module hands it over through an adapter.
type ScoredLead struct {
	LeadID         uuid.UUID
	Category       string
	Postcode       string
	Latitude       *float64
	Longitude      *float64
	BudgetMinCents *int64
	BudgetMaxCents *int64
	QualityScore   int
	QualityTier    string
}

// LeadReader reveals the full lead detail after acceptance. Implemented by
// an adapter over the leads module.
type LeadReader interface {
	FullDetail(ctx context.Context, leadID uuid.UUID) (transport.AcceptedLead, error)
}

// Service orchestrates distribution.
type Service struct {
	repo    repository.Repository
	matcher *matcher.Matcher
	pricer  *pricing.Engine
	refunds *refund.Policy
	ledger  ports.Ledger
	guard   ports.SpendGuard
	leads   LeadReader
	bus     events.Bus
	log     *logger.Logger

	offerTTL time.Duration

	now func() time.Time
}

// New creates the distribution service.
func New(
	repo repository.Repository,
	m *matcher.Matcher,
	pricer *pricing.Engine,
	refunds *refund.Policy,
	ledger ports.Ledger,
	guard ports.SpendGuard,
	leads LeadReader,
	bus events.Bus,
	cfg config.OfferPolicyConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		matcher:  m,
		pricer:   pricer,
		refunds:  refunds,
		ledger:   ledger,
		guard:    guard,
		leads:    leads,
		bus:      bus,
		log:      log,
		offerTTL: cfg.GetOfferTTL(),
		now:      time.Now,
	}
}

// Distribute prices a scored lead, ranks the candidate pool and creates the
// offer rows. Vendors with a passing auto-accept rule are accepted through
// the same path a manual accept takes. Returns the number of offers created.
func (s *Service) Distribute(ctx context.Context, lead ScoredLead) (int, error) {
	rates, err := s.repo.LoadRates(ctx)
	if err != nil {
		return 0, err
	}

	quote := s.pricer.Price(pricing.Input{
		Category:       lead.Category,
		Postcode:       lead.Postcode,
		BudgetMinCents: lead.BudgetMinCents,
		BudgetMaxCents: lead.BudgetMaxCents,
		QualityScore:   lead.QualityScore,
	}, rates)

	now := s.now()
	candidates, err := s.repo.Candidates(ctx, repository.CandidateQuery{
		Category:        lead.Category,
		RelatedPatterns: matcher.RelatedTerms(lead.Category),
		QualityScore:    lead.QualityScore,
		MinBalanceCents: quote.PriceCents,
		Now:             now,
		Limit:           candidatePoolLimit,
	})
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		s.log.Warn("no eligible vendors for lead", "leadId", lead.LeadID, "category", lead.Category)
		return 0, nil
	}

	pool := make([]matcher.Candidate, len(candidates))
	byVendor := make(map[uuid.UUID]repository.CandidateRow, len(candidates))
	for i, c := range candidates {
		pool[i] = c.Candidate
		byVendor[c.VendorID] = c
	}

	matches := s.matcher.Rank(matcher.Lead{
		ID:             lead.LeadID,
		Category:       lead.Category,
		Postcode:       lead.Postcode,
		Latitude:       lead.Latitude,
		Longitude:      lead.Longitude,
		BudgetMinCents: lead.BudgetMinCents,
		BudgetMaxCents: lead.BudgetMaxCents,
		QualityScore:   lead.QualityScore,
	}, pool)
	if len(matches) == 0 {
		s.log.Warn("no vendors passed the match floor", "leadId", lead.LeadID)
		return 0, nil
	}

	expiresAt := now.Add(s.offerTTL)
	offers := make([]repository.Distribution, len(matches))
	vendorIDs := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		offers[i] = repository.Distribution{
			LeadID:     lead.LeadID,
			VendorID:   m.VendorID,
			PriceCents: quote.PriceCents,
			MatchScore: m.Score,
			MatchRank:  i + 1,
			OfferedAt:  now,
			ExpiresAt:  expiresAt,
		}
		vendorIDs[i] = m.VendorID
	}

	created, err := s.repo.CreateOffers(ctx, offers)
	if err != nil {
		return 0, err
	}

	s.bus.Publish(ctx, events.LeadDistributed{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.LeadID,
		VendorIDs:   vendorIDs,
		PriceCents:  quote.PriceCents,
		ExpiresAt:   expiresAt,
		QualityTier: lead.QualityTier,
	})

	for _, m := range matches {
		row, ok := byVendor[m.VendorID]
		if !ok || !s.autoAcceptPasses(lead, row, m.Score, quote.PriceCents) {
			continue
		}
		if _, err := s.accept(ctx, lead.LeadID, m.VendorID, true); err != nil {
			// Auto-accept is best effort: a failed charge leaves the offer
			// open for a manual decision.
			s.log.Warn("auto-accept failed",
				"leadId", lead.LeadID, "vendorId", m.VendorID, "error", err)
		}
	}

	return created, nil
}

// autoAcceptPasses evaluates the vendor's rule against this offer. Every
// configured threshold must hold.
func (s *Service) autoAcceptPasses(lead ScoredLead, row repository.CandidateRow, matchScore float64, priceCents int64) bool {
	if !row.AutoAcceptEnabled {
		return false
	}
	if row.AutoAcceptMinScore != nil && matchScore < *row.AutoAcceptMinScore {
		return false
	}
	if row.AutoAcceptMaxPriceCents != nil && priceCents > *row.AutoAcceptMaxPriceCents {
		return false
	}
	if row.AutoAcceptMaxDistanceKm != nil {
		if lead.Latitude == nil || lead.Longitude == nil || row.Latitude == nil || row.Longitude == nil {
			return false
		}
		dist := matcher.HaversineKm(*lead.Latitude, *lead.Longitude, *row.Latitude, *row.Longitude)
		if dist > *row.AutoAcceptMaxDistanceKm {
			return false
		}
	}
	return true
}

// Accept accepts an offered lead on behalf of the vendor, charging the
// price atomically with the state flip.
func (s *Service) Accept(ctx context.Context, leadID, vendorID uuid.UUID) (transport.AcceptResponse, error) {
	return s.accept(ctx, leadID, vendorID, false)
}

func (s *Service) accept(ctx context.Context, leadID, vendorID uuid.UUID, auto bool) (transport.AcceptResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return transport.AcceptResponse{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	offer, err := s.repo.GetForVendorForUpdate(ctx, tx, leadID, vendorID)
	if err != nil {
		return transport.AcceptResponse{}, err
	}

	now := s.now()
	if offer.State != repository.StateOffered {
		return transport.AcceptResponse{}, apperr.InvalidState(
			fmt.Sprintf("offer is %s, not open", offer.State))
	}

	if !now.Before(offer.ExpiresAt) {
		// The sweep has not flipped it yet; do it here so state reflects
		// reality before we report the failure.
		if err := s.repo.MarkExpired(ctx, tx, offer.ID, now); err != nil {
			return transport.AcceptResponse{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return transport.AcceptResponse{}, fmt.Errorf("commit expire: %w", err)
		}
		s.log.OfferTransition(leadID.String(), vendorID.String(),
			repository.StateOffered, repository.StateExpired)
		return transport.AcceptResponse{}, apperr.Gone("offer has expired")
	}

	if err := s.guard.CheckAndConsume(ctx, tx, vendorID, offer.PriceCents, now); err != nil {
		return transport.AcceptResponse{}, err
	}

	chargeKey := fmt.Sprintf("%s:%s:%s", acceptanceKeyPrefix, leadID, vendorID)
	charge, err := s.ledger.Charge(ctx, tx, ports.ChargeParams{
		VendorID:       vendorID,
		AmountCents:    offer.PriceCents,
		IdempotencyKey: chargeKey,
		DistributionID: offer.ID,
	})
	if err != nil {
		return transport.AcceptResponse{}, err
	}

	if err := s.repo.MarkAccepted(ctx, tx, offer.ID, now, auto); err != nil {
		return transport.AcceptResponse{}, err
	}
	if err := s.repo.InsertAcceptanceLog(ctx, tx, repository.AcceptanceLog{
		DistributionID: offer.ID,
		LeadID:         leadID,
		VendorID:       vendorID,
		PriceCents:     offer.PriceCents,
		AutoAccepted:   auto,
		AcceptedAt:     now,
	}); err != nil {
		return transport.AcceptResponse{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return transport.AcceptResponse{}, fmt.Errorf("commit accept: %w", err)
	}

	s.log.LedgerEvent("charge", vendorID.String(), offer.PriceCents, chargeKey)
	s.log.OfferTransition(leadID.String(), vendorID.String(),
		repository.StateOffered, repository.StateAccepted)
	s.bus.Publish(ctx, events.OfferAccepted{
		BaseEvent:      events.NewBaseEvent(),
		DistributionID: offer.ID,
		LeadID:         leadID,
		VendorID:       vendorID,
		PriceCents:     offer.PriceCents,
		AutoAccepted:   auto,
	})

	lead, err := s.leads.FullDetail(ctx, leadID)
	if err != nil {
		// The charge is committed; the vendor owns the lead even if the
		// detail read failed. Return what we have.
		s.log.Error("lead detail read after accept failed", "error", err, "leadId", leadID)
		lead = transport.AcceptedLead{ID: leadID}
	}

	return transport.AcceptResponse{
		DistributionID: offer.ID,
		PriceCents:     offer.PriceCents,
		BalanceCents:   charge.BalanceCents,
		Replayed:       charge.Replayed,
		Lead:           lead,
	}, nil
}

// Decline declines an offered lead, recording the vendor's optional reason.
// Declining an already declined offer is a no-op; declining an accepted or
// expired one is an error.
func (s *Service) Decline(ctx context.Context, leadID, vendorID uuid.UUID, reason string) (transport.DeclineResponse, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	declined, flipped, err := s.repo.MarkDeclined(ctx, leadID, vendorID, s.now(), reasonPtr)
	if err != nil {
		return transport.DeclineResponse{}, err
	}
	if !flipped {
		offer, err := s.repo.GetForVendor(ctx, leadID, vendorID)
		if err != nil {
			return transport.DeclineResponse{}, err
		}
		if offer.State == repository.StateDeclined {
			return transport.DeclineResponse{LeadID: leadID, State: offer.State}, nil
		}
		return transport.DeclineResponse{}, apperr.InvalidState(
			fmt.Sprintf("offer is %s, not open", offer.State))
	}

	s.log.OfferTransition(leadID.String(), vendorID.String(),
		repository.StateOffered, repository.StateDeclined)
	s.bus.Publish(ctx, events.OfferDeclined{
		BaseEvent:      events.NewBaseEvent(),
		DistributionID: declined.ID,
		LeadID:         leadID,
		VendorID:       vendorID,
		Reason:         reason,
	})
	return transport.DeclineResponse{LeadID: leadID, State: repository.StateDeclined}, nil
}

// ExpireSweep flips every overdue open offer to EXPIRED. Returns the number
// of offers swept.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	now := s.now()
	leadIDs, err := s.repo.ExpireSweep(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(leadIDs) == 0 {
		return 0, nil
	}

	s.log.Info("expired overdue offers", "count", len(leadIDs))
	s.bus.Publish(ctx, events.OffersExpired{
		BaseEvent: events.NewBaseEvent(),
		Count:     len(leadIDs),
		SweptAt:   now,
		LeadIDs:   leadIDs,
	})
	return len(leadIDs), nil
}

// IssueRefund refunds an accepted distribution under the reason-code policy
// table. At most one refund per distribution; the credit lands on the same
// ledger the charge did.
func (s *Service) IssueRefund(ctx context.Context, distributionID uuid.UUID, reasonCode string) (transport.RefundResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return transport.RefundResponse{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	dist, err := s.repo.GetByIDForUpdate(ctx, tx, distributionID)
	if err != nil {
		return transport.RefundResponse{}, err
	}
	if dist.State != repository.StateAccepted {
		return transport.RefundResponse{}, apperr.InvalidState("only accepted distributions can be refunded")
	}
	if dist.RefundedAt != nil {
		return transport.RefundResponse{}, apperr.AlreadyRefunded("distribution already refunded")
	}
	if _, found, err := s.ledger.RefundedAmount(ctx, tx, distributionID); err != nil {
		return transport.RefundResponse{}, err
	} else if found {
		return transport.RefundResponse{}, apperr.AlreadyRefunded("distribution already refunded")
	}

	amount, err := s.refunds.Compute(reasonCode, dist.PriceCents)
	if err != nil {
		return transport.RefundResponse{}, err
	}

	refundKey := fmt.Sprintf("%s:%s", refundKeyPrefix, distributionID)
	result, err := s.ledger.Refund(ctx, tx, ports.RefundParams{
		VendorID:       dist.VendorID,
		AmountCents:    amount,
		IdempotencyKey: refundKey,
		DistributionID: distributionID,
		ReasonCode:     reasonCode,
	})
	if err != nil {
		return transport.RefundResponse{}, err
	}
	if err := s.repo.MarkRefunded(ctx, tx, distributionID, s.now()); err != nil {
		return transport.RefundResponse{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return transport.RefundResponse{}, fmt.Errorf("commit refund: %w", err)
	}

	s.log.LedgerEvent("refund", dist.VendorID.String(), amount, refundKey)
	s.bus.Publish(ctx, events.RefundIssued{
		BaseEvent:      events.NewBaseEvent(),
		DistributionID: distributionID,
		VendorID:       dist.VendorID,
		Reason:         reasonCode,
		AmountCents:    amount,
	})

	return transport.RefundResponse{
		DistributionID: distributionID,
		VendorID:       dist.VendorID,
		ReasonCode:     reasonCode,
		AmountCents:    amount,
		BalanceCents:   result.BalanceCents,
	}, nil
}

// OfferedLeads lists the vendor's open offers with the preview fields.
func (s *Service) OfferedLeads(ctx context.Context, vendorID uuid.UUID) (transport.OffersResponse, error) {
	rows, err := s.repo.ListOfferedForVendor(ctx, vendorID, s.now())
	if err != nil {
		return transport.OffersResponse{}, err
	}

	offers := make([]transport.OfferResponse, len(rows))
	for i, row := range rows {
		tier := ""
		if row.QualityTier != nil {
			tier = *row.QualityTier
		}
		offers[i] = transport.OfferResponse{
			DistributionID: row.DistributionID,
			LeadID:         row.LeadID,
			Category:       row.Category,
			District:       postcodeDistrict(row.Postcode),
			BudgetBand:     budgetBand(row.BudgetMinCents, row.BudgetMaxCents),
			QualityTier:    tier,
			MatchScore:     row.MatchScore,
			PriceCents:     row.PriceCents,
			OfferedAt:      row.OfferedAt.Format(time.RFC3339),
			ExpiresAt:      row.ExpiresAt.Format(time.RFC3339),
		}
	}
	return transport.OffersResponse{Offers: offers, Count: len(offers)}, nil
}
