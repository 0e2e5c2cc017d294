package adapters

import (
	"context"

	"github.com/google/uuid"

	distsvc "tradematch_backend/internal/distribution/service"
	disttransport "tradematch_backend/internal/distribution/transport"
	leadsvc "tradematch_backend/internal/leads/service"
)

// LeadsReader adapts the leads service to the distribution module's lead
// reader port. Only the accept path calls it; access control happened
// before the offer state flipped.
type LeadsReader struct {
	leads *leadsvc.Service
}

// NewLeadsReader creates a new lead reader adapter.
func NewLeadsReader(leads *leadsvc.Service) *LeadsReader {
	return &LeadsReader{leads: leads}
}

// FullDetail returns the complete lead including customer contact.
func (a *LeadsReader) FullDetail(ctx context.Context, leadID uuid.UUID) (disttransport.AcceptedLead, error) {
	lead, err := a.leads.FullDetail(ctx, leadID)
	if err != nil {
		return disttransport.AcceptedLead{}, err
	}
	return disttransport.AcceptedLead{
		ID:             lead.ID,
		Category:       lead.Category,
		Postcode:       lead.Postcode,
		Description:    lead.Description,
		Urgency:        lead.Urgency,
		BudgetMinCents: lead.BudgetMinCents,
		BudgetMaxCents: lead.BudgetMaxCents,
		BudgetNote:     lead.BudgetNote,
		CustomerName:   lead.CustomerName,
		CustomerEmail:  lead.CustomerEmail,
		CustomerPhone:  lead.CustomerPhone,
		MediaCount:     lead.MediaCount,
		CreatedAt:      lead.CreatedAt,
	}, nil
}

// Compile-time check that LeadsReader implements the lead reader port.
var _ distsvc.LeadReader = (*LeadsReader)(nil)
