// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"tradematch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadPosted is published when a new lead passes intake validation.
type LeadPosted struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Category string    `json:"category"`
	Postcode string    `json:"postcode"`
	Source   string    `json:"source,omitempty"`
}

func (e LeadPosted) EventName() string { return "leads.posted" }

// LeadScored is published each time a qualification score version is recorded.
type LeadScored struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ScoreVersion int       `json:"scoreVersion"`
	OverallScore int       `json:"overallScore"`
	QualityTier  string    `json:"qualityTier"`
}

func (e LeadScored) EventName() string { return "leads.scored" }

// =============================================================================
// Distribution Domain Events
// =============================================================================

// LeadDistributed is published after fan-out creates the offer rows.
type LeadDistributed struct {
	BaseEvent
	LeadID      uuid.UUID   `json:"leadId"`
	VendorIDs   []uuid.UUID `json:"vendorIds"`
	PriceCents  int64       `json:"priceCents"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	QualityTier string      `json:"qualityTier"`
}

func (e LeadDistributed) EventName() string { return "distribution.lead.distributed" }

// OfferAccepted is published when a vendor accepts an offered lead.
type OfferAccepted struct {
	BaseEvent
	DistributionID uuid.UUID `json:"distributionId"`
	LeadID         uuid.UUID `json:"leadId"`
	VendorID       uuid.UUID `json:"vendorId"`
	PriceCents     int64     `json:"priceCents"`
	AutoAccepted   bool      `json:"autoAccepted"`
}

func (e OfferAccepted) EventName() string { return "distribution.offer.accepted" }

// OfferDeclined is published when a vendor declines an offered lead.
type OfferDeclined struct {
	BaseEvent
	DistributionID uuid.UUID `json:"distributionId"`
	LeadID         uuid.UUID `json:"leadId"`
	VendorID       uuid.UUID `json:"vendorId"`
	Reason         string    `json:"reason,omitempty"`
}

func (e OfferDeclined) EventName() string { return "distribution.offer.declined" }

// OffersExpired is published once per sweep run that flipped at least one row.
type OffersExpired struct {
	BaseEvent
	Count   int         `json:"count"`
	SweptAt time.Time   `json:"sweptAt"`
	LeadIDs []uuid.UUID `json:"leadIds,omitempty"`
}

func (e OffersExpired) EventName() string { return "distribution.offers.expired" }

// RefundIssued is published when a refund credit lands on the ledger.
type RefundIssued struct {
	BaseEvent
	DistributionID uuid.UUID `json:"distributionId"`
	VendorID       uuid.UUID `json:"vendorId"`
	Reason         string    `json:"reason"`
	AmountCents    int64     `json:"amountCents"`
}

func (e RefundIssued) EventName() string { return "distribution.refund.issued" }

// =============================================================================
// Credits Domain Events
// =============================================================================

// CreditsPurchased is published when a confirmed purchase fact is recorded.
type CreditsPurchased struct {
	BaseEvent
	VendorID    uuid.UUID `json:"vendorId"`
	AmountCents int64     `json:"amountCents"`
	ExternalRef string    `json:"externalRef"`
}

func (e CreditsPurchased) EventName() string { return "credits.purchased" }

// BalanceLow is published after a debit leaves the vendor under the threshold.
type BalanceLow struct {
	BaseEvent
	VendorID     uuid.UUID `json:"vendorId"`
	BalanceCents int64     `json:"balanceCents"`
}

func (e BalanceLow) EventName() string { return "credits.balance.low" }

// IntegrityFaultDetected is published when reconciliation finds a mismatch
// between the entry log and a materialized balance.
type IntegrityFaultDetected struct {
	BaseEvent
	VendorID          uuid.UUID `json:"vendorId"`
	LedgerCents       int64     `json:"ledgerCents"`
	MaterializedCents int64     `json:"materializedCents"`
}

func (e IntegrityFaultDetected) EventName() string { return "credits.integrity.fault" }
