// Package transport defines the request/response DTOs for the credits module.
package transport

import "github.com/google/uuid"

// BalanceResponse reports the vendor's materialized credit balance.
type BalanceResponse struct {
	VendorID     uuid.UUID `json:"vendorId"`
	BalanceCents int64     `json:"balanceCents"`
}

// LedgerEntryResponse is one ledger row in history listings.
type LedgerEntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	AmountCents    int64      `json:"amountCents"`
	EntryType      string     `json:"entryType"`
	DistributionID *uuid.UUID `json:"distributionId,omitempty"`
	ReasonCode     *string    `json:"reasonCode,omitempty"`
	ExternalRef    *string    `json:"externalRef,omitempty"`
	CreatedAt      string     `json:"createdAt"`
}

// HistoryResponse wraps a page of ledger entries.
type HistoryResponse struct {
	Items []LedgerEntryResponse `json:"items"`
}

// HistoryQuery holds pagination for history listings.
type HistoryQuery struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// Package is one purchasable credit bundle.
type Package struct {
	ID          string  `json:"id"`
	Credits     int     `json:"credits"`
	PriceCents  int64   `json:"priceCents"`
	Description string  `json:"description"`
	PerCredit   float64 `json:"perCredit"`
	SavingsPct  int     `json:"savingsPct,omitempty"`
	Popular     bool    `json:"popular,omitempty"`
}

// PackagesResponse wraps the package catalog.
type PackagesResponse struct {
	Packages []Package `json:"packages"`
}

// PurchaseRequest records a confirmed purchase fact from the payment
// collaborator. The credited vendor comes from the fact, never from the
// caller's identity. ExternalRef doubles as the idempotency key, so a
// replayed webhook cannot double-credit.
type PurchaseRequest struct {
	VendorID    uuid.UUID `json:"vendorId" validate:"required"`
	AmountCents int64     `json:"amountCents" validate:"required,min=1"`
	ExternalRef string    `json:"externalRef" validate:"required,min=4,max=128"`
}

// PurchaseResponse confirms the recorded purchase.
type PurchaseResponse struct {
	EntryID      uuid.UUID `json:"entryId"`
	AmountCents  int64     `json:"amountCents"`
	BalanceCents int64     `json:"balanceCents"`
	Replayed     bool      `json:"replayed"`
}

// SpendLimitsRequest sets per-vendor caps. A null cap removes the limit.
type SpendLimitsRequest struct {
	DailyCents   *int64 `json:"dailyCents" validate:"omitempty,min=0"`
	WeeklyCents  *int64 `json:"weeklyCents" validate:"omitempty,min=0"`
	MonthlyCents *int64 `json:"monthlyCents" validate:"omitempty,min=0"`
}

// SpendLimitsResponse reports the configured caps.
type SpendLimitsResponse struct {
	DailyCents   *int64 `json:"dailyCents"`
	WeeklyCents  *int64 `json:"weeklyCents"`
	MonthlyCents *int64 `json:"monthlyCents"`
}

// MismatchResponse is one reconciliation discrepancy.
type MismatchResponse struct {
	VendorID          uuid.UUID `json:"vendorId"`
	LedgerCents       int64     `json:"ledgerCents"`
	MaterializedCents int64     `json:"materializedCents"`
}

// ReconciliationResponse is the integrity report for operations.
type ReconciliationResponse struct {
	Clean      bool               `json:"clean"`
	Mismatches []MismatchResponse `json:"mismatches"`
}
