// Package transport defines the request/response DTOs for the leads module.
package transport

import (
	"github.com/google/uuid"
)

// CreateLeadRequest is the public intake payload for posting a new lead.
type CreateLeadRequest struct {
	Category       string   `json:"category" validate:"required,min=2,max=64"`
	Postcode       string   `json:"postcode" validate:"required,min=2,max=10"`
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Description    string   `json:"description" validate:"required,min=10,max=5000"`
	Urgency        *string  `json:"urgency,omitempty" validate:"omitempty,max=64"`
	BudgetMinCents *int64   `json:"budgetMinCents,omitempty"`
	BudgetMaxCents *int64   `json:"budgetMaxCents,omitempty"`
	BudgetNote     *string  `json:"budgetNote,omitempty" validate:"omitempty,max=200"`
	CustomerName   string   `json:"customerName" validate:"required,min=2,max=120"`
	CustomerEmail  string   `json:"customerEmail" validate:"required,email"`
	CustomerPhone  *string  `json:"customerPhone,omitempty" validate:"omitempty,min=7,max=20"`
	EmailVerified  bool     `json:"emailVerified"`
	PhoneVerified  bool     `json:"phoneVerified"`
	MediaCount     int      `json:"mediaCount" validate:"min=0,max=50"`
	Source         *string  `json:"source,omitempty" validate:"omitempty,max=64"`
}

// ScoreResponse is one qualification score version for a lead.
type ScoreResponse struct {
	LeadID       uuid.UUID `json:"leadId"`
	Version      int       `json:"version"`
	OverallScore int       `json:"overallScore"`
	QualityTier  string    `json:"qualityTier"`
	Budget       int       `json:"budgetScore"`
	Detail       int       `json:"detailScore"`
	Urgency      int       `json:"urgencyScore"`
	Verification int       `json:"verificationScore"`
	Media        int       `json:"mediaScore"`
	Location     int       `json:"locationScore"`
	ModelVersion string    `json:"modelVersion"`
	CreatedAt    string    `json:"createdAt"`
}

// CreateLeadResponse is returned from public intake. Distribution happens in
// the same request flow; its outcome is summarized, never blocking intake.
type CreateLeadResponse struct {
	LeadID       uuid.UUID `json:"leadId"`
	OverallScore int       `json:"overallScore"`
	QualityTier  string    `json:"qualityTier"`
	Distributed  int       `json:"distributedToVendors"`
}

// LeadResponse is the full lead detail, shown to a vendor only after accept.
type LeadResponse struct {
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
