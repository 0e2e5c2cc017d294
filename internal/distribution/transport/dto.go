// Package transport defines the request/response DTOs for the distribution
// module.
package transport

import "github.com/google/uuid"

// OfferResponse is one pending offer as shown to the vendor. The lead is
// previewed, not revealed: district-level location, a budget band and the
// quality tier. Contact details come only with acceptance.
type OfferResponse struct {
	DistributionID uuid.UUID `json:"distributionId"`
	LeadID         uuid.UUID `json:"leadId"`
	Category       string    `json:"category"`
	District       string    `json:"district"`
	BudgetBand     string    `json:"budgetBand"`
	QualityTier    string    `json:"qualityTier"`
	MatchScore     float64   `json:"matchScore"`
	PriceCents     int64     `json:"priceCents"`
	OfferedAt      string    `json:"offeredAt"`
	ExpiresAt      string    `json:"expiresAt"`
}

// OffersResponse lists the caller's open offers.
type OffersResponse struct {
	Offers []OfferResponse `json:"offers"`
	Count  int             `json:"count"`
}

// AcceptedLead is the full lead detail revealed on acceptance.
type AcceptedLead struct {
	ID             uuid.UUID `json:"id"`
	Category       string    `json:"category"`
	Postcode       string    `json:"postcode"`
	Description    string    `json:"description"`
	Urgency        *string   `json:"urgency,omitempty"`
	BudgetMinCents *int64    `json:"budgetMinCents,omitempty"`
	BudgetMaxCents *int64    `json:"budgetMaxCents,omitempty"`
	BudgetNote     *string   `json:"budgetNote,omitempty"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	CustomerPhone  *string   `json:"customerPhone,omitempty"`
	MediaCount     int       `json:"mediaCount"`
	CreatedAt      string    `json:"createdAt"`
}

// AcceptResponse is the outcome of accepting an offer.
type AcceptResponse struct {
	DistributionID uuid.UUID    `json:"distributionId"`
	PriceCents     int64        `json:"priceCents"`
	BalanceCents   int64        `json:"balanceCents"`
	Replayed       bool         `json:"replayed"`
	Lead           AcceptedLead `json:"lead"`
}

// DeclineRequest carries the vendor's optional reason for passing on a
// lead. The body itself is optional.
type DeclineRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// DeclineResponse is the outcome of declining an offer.
type DeclineResponse struct {
	LeadID uuid.UUID `json:"leadId"`
	State  string    `json:"state"`
}

// RefundRequest asks for a refund on an accepted distribution.
type RefundRequest struct {
	ReasonCode string `json:"reasonCode" validate:"required,max=64"`
}

// RefundResponse is the outcome of an issued refund.
type RefundResponse struct {
	DistributionID uuid.UUID `json:"distributionId"`
	VendorID       uuid.UUID `json:"vendorId"`
	ReasonCode     string    `json:"reasonCode"`
	AmountCents    int64     `json:"amountCents"`
	BalanceCents   int64     `json:"balanceCents"`
}
