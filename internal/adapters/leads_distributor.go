package adapters

import (
	"context"

	distsvc "tradematch_backend/internal/distribution/service"
	leadsvc "tradematch_backend/internal/leads/service"
)

// LeadsDistributor adapts the distribution service to the leads module's
// fan-out port, breaking the leads/distribution construction cycle.
type LeadsDistributor struct {
	dist *distsvc.Service
}

// NewLeadsDistributor creates a new distributor adapter.
func NewLeadsDistributor(dist *distsvc.Service) *LeadsDistributor {
	return &LeadsDistributor{dist: dist}
}

// Distribute fans a freshly scored lead out to matched vendors.
func (a *LeadsDistributor) Distribute(ctx context.Context, lead leadsvc.ScoredLead) (int, error) {
	return a.dist.Distribute(ctx, distsvc.ScoredLead{
		LeadID:         lead.LeadID,
		Category:       lead.Category,
		Postcode:       lead.Postcode,
		Latitude:       lead.Latitude,
		Longitude:      lead.Longitude,
		BudgetMinCents: lead.BudgetMinCents,
		BudgetMaxCents: lead.BudgetMaxCents,
		QualityScore:   lead.OverallScore,
		QualityTier:    lead.QualityTier,
	})
}

// Compile-time check that LeadsDistributor implements leads' Distributor.
var _ leadsvc.Distributor = (*LeadsDistributor)(nil)
