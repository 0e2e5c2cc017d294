// Package transport defines the request/response DTOs for the vendors module.
package transport

import "github.com/google/uuid"

// ProfileRequest creates or updates the caller's vendor profile.
type ProfileRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=120"`
	Email       string   `json:"email" validate:"required,email"`
	Postcode    string   `json:"postcode" validate:"required,min=2,max=10"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Specialties []string `json:"specialties" validate:"required,min=1,max=20,dive,min=2,max=64"`
	Active      bool     `json:"active"`
}

// ProfileResponse is the vendor profile in API responses.
type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Postcode    string    `json:"postcode"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Specialties []string  `json:"specialties"`
	Active      bool      `json:"active"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

// PreferencesRequest sets the caller's lead matching preferences.
type PreferencesRequest struct {
	MinBudgetCents  *int64   `json:"minBudgetCents" validate:"omitempty,min=0"`
	MaxBudgetCents  *int64   `json:"maxBudgetCents" validate:"omitempty,min=0"`
	MaxDistanceKm   *float64 `json:"maxDistanceKm" validate:"omitempty,gt=0,max=1000"`
	MinQualityScore *int     `json:"minQualityScore" validate:"omitempty,min=0,max=100"`
}

// PreferencesResponse reports the caller's lead matching preferences.
type PreferencesResponse struct {
	MinBudgetCents  *int64   `json:"minBudgetCents"`
	MaxBudgetCents  *int64   `json:"maxBudgetCents"`
	MaxDistanceKm   *float64 `json:"maxDistanceKm"`
	MinQualityScore *int     `json:"minQualityScore"`
}

// AutoAcceptRequest sets the caller's auto-accept rule.
type AutoAcceptRequest struct {
	Enabled       bool     `json:"enabled"`
	MinMatchScore *float64 `json:"minMatchScore" validate:"omitempty,min=0,max=100"`
	MaxPriceCents *int64   `json:"maxPriceCents" validate:"omitempty,min=0"`
	MaxDistanceKm *float64 `json:"maxDistanceKm" validate:"omitempty,gt=0,max=1000"`
}

// AutoAcceptResponse reports the caller's auto-accept rule.
type AutoAcceptResponse struct {
	Enabled       bool     `json:"enabled"`
	MinMatchScore *float64 `json:"minMatchScore"`
	MaxPriceCents *int64   `json:"maxPriceCents"`
	MaxDistanceKm *float64 `json:"maxDistanceKm"`
}
