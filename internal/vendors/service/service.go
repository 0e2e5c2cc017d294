// Package service implements vendor profile and preference management.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradematch_backend/internal/vendors/repository"
	"tradematch_backend/internal/vendors/transport"
	"tradematch_backend/platform/apperr"
)

// Service implements the vendors module operations.
type Service struct {
	repo repository.Repository
}

// New creates the vendors service.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// GetProfile returns the vendor's profile.
func (s *Service) GetProfile(ctx context.Context, vendorID uuid.UUID) (transport.ProfileResponse, error) {
	vendor, err := s.repo.GetByID(ctx, vendorID)
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	return toProfileResponse(vendor), nil
}

// UpsertProfile creates or updates the vendor's profile.
func (s *Service) UpsertProfile(ctx context.Context, vendorID uuid.UUID, req transport.ProfileRequest) (transport.ProfileResponse, error) {
	vendor, err := s.repo.UpsertProfile(ctx, repository.Vendor{
		ID:          vendorID,
		Name:        req.Name,
		Email:       req.Email,
		Postcode:    req.Postcode,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Specialties: req.Specialties,
		Active:      req.Active,
	})
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	return toProfileResponse(vendor), nil
}

// GetPreferences returns the vendor's lead matching preferences.
func (s *Service) GetPreferences(ctx context.Context, vendorID uuid.UUID) (transport.PreferencesResponse, error) {
	prefs, err := s.repo.GetPreferences(ctx, vendorID)
	if err != nil {
		return transport.PreferencesResponse{}, err
	}
	return transport.PreferencesResponse{
		MinBudgetCents:  prefs.MinBudgetCents,
		MaxBudgetCents:  prefs.MaxBudgetCents,
		MaxDistanceKm:   prefs.MaxDistanceKm,
		MinQualityScore: prefs.MinQualityScore,
	}, nil
}

// SetPreferences updates the vendor's lead matching preferences.
func (s *Service) SetPreferences(ctx context.Context, vendorID uuid.UUID, req transport.PreferencesRequest) (transport.PreferencesResponse, error) {
	if req.MinBudgetCents != nil && req.MaxBudgetCents != nil && *req.MinBudgetCents > *req.MaxBudgetCents {
		return transport.PreferencesResponse{}, apperr.Validation("minBudgetCents must not exceed maxBudgetCents")
	}

	err := s.repo.SetPreferences(ctx, repository.Preferences{
		VendorID:        vendorID,
		MinBudgetCents:  req.MinBudgetCents,
		MaxBudgetCents:  req.MaxBudgetCents,
		MaxDistanceKm:   req.MaxDistanceKm,
		MinQualityScore: req.MinQualityScore,
	})
	if err != nil {
		return transport.PreferencesResponse{}, err
	}
	return transport.PreferencesResponse{
		MinBudgetCents:  req.MinBudgetCents,
		MaxBudgetCents:  req.MaxBudgetCents,
		MaxDistanceKm:   req.MaxDistanceKm,
		MinQualityScore: req.MinQualityScore,
	}, nil
}

// GetAutoAccept returns the vendor's auto-accept rule.
func (s *Service) GetAutoAccept(ctx context.Context, vendorID uuid.UUID) (transport.AutoAcceptResponse, error) {
	rule, err := s.repo.GetAutoAcceptRule(ctx, vendorID)
	if err != nil {
		return transport.AutoAcceptResponse{}, err
	}
	return transport.AutoAcceptResponse{
		Enabled:       rule.Enabled,
		MinMatchScore: rule.MinMatchScore,
		MaxPriceCents: rule.MaxPriceCents,
		MaxDistanceKm: rule.MaxDistanceKm,
	}, nil
}

// SetAutoAccept updates the vendor's auto-accept rule. Enabling without any
// threshold is rejected: an unconditional rule would accept every offered
// lead at any price.
func (s *Service) SetAutoAccept(ctx context.Context, vendorID uuid.UUID, req transport.AutoAcceptRequest) (transport.AutoAcceptResponse, error) {
	if req.Enabled && req.MinMatchScore == nil && req.MaxPriceCents == nil && req.MaxDistanceKm == nil {
		return transport.AutoAcceptResponse{}, apperr.Validation("auto-accept requires at least one threshold")
	}

	err := s.repo.SetAutoAcceptRule(ctx, repository.AutoAcceptRule{
		VendorID:      vendorID,
		Enabled:       req.Enabled,
		MinMatchScore: req.MinMatchScore,
		MaxPriceCents: req.MaxPriceCents,
		MaxDistanceKm: req.MaxDistanceKm,
	})
	if err != nil {
		return transport.AutoAcceptResponse{}, err
	}
	return transport.AutoAcceptResponse{
		Enabled:       req.Enabled,
		MinMatchScore: req.MinMatchScore,
		MaxPriceCents: req.MaxPriceCents,
		MaxDistanceKm: req.MaxDistanceKm,
	}, nil
}

func toProfileResponse(vendor repository.Vendor) transport.ProfileResponse {
	return transport.ProfileResponse{
		ID:          vendor.ID,
		Name:        vendor.Name,
		Email:       vendor.Email,
		Postcode:    vendor.Postcode,
		Latitude:    vendor.Latitude,
		Longitude:   vendor.Longitude,
		Specialties: vendor.Specialties,
		Active:      vendor.Active,
		CreatedAt:   vendor.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   vendor.UpdatedAt.Format(time.RFC3339),
	}
}
