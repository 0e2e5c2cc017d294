// Package service implements lead intake and scoring orchestration.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradematch_backend/internal/events"
	"tradematch_backend/internal/leads/repository"
	"tradematch_backend/internal/leads/scoring"
	"tradematch_backend/internal/leads/transport"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/phone"
	"tradematch_backend/platform/sanitize"
)

// ScoredLead is the distribution-facing view of a freshly scored lead.
type ScoredLead struct {
	LeadID         uuid.UUID
	Category       string
	Postcode       string
	Latitude       *float64
	Longitude      *float64
	BudgetMinCents *int64
	BudgetMaxCents *int64
	OverallScore   int
	QualityTier    string
}

// Distributor fans a scored lead out to matched vendors. Implemented by the
// distribution module behind an adapter; returns the number of offers created.
type Distributor interface {
	Distribute(ctx context.Context, lead ScoredLead) (int, error)
}

// Service orchestrates lead intake: persist, score, fan out, publish.
type Service struct {
	repo        repository.Repository
	scorer      *scoring.Scorer
	distributor Distributor
	bus         events.Bus
	log         *logger.Logger
}

// New creates the leads service. The distributor is injected later via
// SetDistributor to break the leads/distribution construction cycle.
func New(repo repository.Repository, scorer *scoring.Scorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, scorer: scorer, bus: bus, log: log}
}

// SetDistributor wires the distribution fan-out implementation.
func (s *Service) SetDistributor(d Distributor) {
	s.distributor = d
}

// CreateLead persists a new lead, scores it, and fans it out to vendors.
// Distribution failure is isolated and logged: the lead stays created and
// scored, and intake still succeeds.
func (s *Service) CreateLead(ctx context.Context, req transport.CreateLeadRequest) (transport.CreateLeadResponse, error) {
	lead := repository.Lead{
		Category:       req.Category,
		Postcode:       req.Postcode,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Description:    sanitize.Text(req.Description),
		Urgency:        req.Urgency,
		BudgetMinCents: req.BudgetMinCents,
		BudgetMaxCents: req.BudgetMaxCents,
		BudgetNote:     sanitize.TextPtr(req.BudgetNote),
		CustomerName:   sanitize.Text(req.CustomerName),
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  normalizePhone(req.CustomerPhone),
		EmailVerified:  req.EmailVerified,
		PhoneVerified:  req.PhoneVerified,
		MediaCount:     req.MediaCount,
		Source:         req.Source,
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return transport.CreateLeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadPosted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    created.ID,
		Category:  created.Category,
		Postcode:  created.Postcode,
		Source:    stringValue(created.Source),
	})

	score, err := s.scoreAndRecord(ctx, created)
	if err != nil {
		return transport.CreateLeadResponse{}, err
	}

	distributed := 0
	if s.distributor != nil {
		distributed, err = s.distributor.Distribute(ctx, ScoredLead{
			LeadID:         created.ID,
			Category:       created.Category,
			Postcode:       created.Postcode,
			Latitude:       created.Latitude,
			Longitude:      created.Longitude,
			BudgetMinCents: created.BudgetMinCents,
			BudgetMaxCents: created.BudgetMaxCents,
			OverallScore:   score.OverallScore,
			QualityTier:    score.QualityTier,
		})
		if err != nil {
			// The lead is created and scored; fan-out can be retried by
			// operations. Intake must not fail because of it.
			s.log.Error("lead distribution failed", "error", err, "leadId", created.ID)
			distributed = 0
		}
	}

	return transport.CreateLeadResponse{
		LeadID:       created.ID,
		OverallScore: score.OverallScore,
		QualityTier:  score.QualityTier,
		Distributed:  distributed,
	}, nil
}

// GetScore returns the latest qualification score version for a lead.
func (s *Service) GetScore(ctx context.Context, leadID uuid.UUID) (transport.ScoreResponse, error) {
	score, err := s.repo.LatestScore(ctx, leadID)
	if err != nil {
		return transport.ScoreResponse{}, err
	}
	return toScoreResponse(score), nil
}

// Rescore recalculates the lead's score and records it as a new version.
// Existing score rows are never mutated.
func (s *Service) Rescore(ctx context.Context, leadID uuid.UUID) (transport.ScoreResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.ScoreResponse{}, err
	}

	score, err := s.scoreAndRecord(ctx, lead)
	if err != nil {
		return transport.ScoreResponse{}, err
	}
	return toScoreResponse(score), nil
}

// FullDetail returns the complete lead including contact details. Callers
// gate access on offer state; this method does no authorization itself.
func (s *Service) FullDetail(ctx context.Context, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.LeadResponse{
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
		CreatedAt:      lead.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) scoreAndRecord(ctx context.Context, lead repository.Lead) (repository.LeadScore, error) {
	completedJobs, err := s.repo.CompletedJobCount(ctx, lead.CustomerEmail)
	if err != nil {
		// History is a minor bonus factor; scoring proceeds without it.
		s.log.Warn("completed job count lookup failed", "error", err, "leadId", lead.ID)
		completedJobs = 0
	}

	result := s.scorer.Score(scoring.Input{
		Category:       lead.Category,
		Postcode:       lead.Postcode,
		BudgetMinCents: lead.BudgetMinCents,
		BudgetMaxCents: lead.BudgetMaxCents,
		BudgetNote:     stringValue(lead.BudgetNote),
		Urgency:        stringValue(lead.Urgency),
		Description:    lead.Description,
		EmailVerified:  lead.EmailVerified,
		PhoneVerified:  lead.PhoneVerified,
		CompletedJobs:  completedJobs,
		MediaCount:     lead.MediaCount,
	})

	score, err := s.repo.InsertScore(ctx, repository.LeadScore{
		LeadID:       lead.ID,
		OverallScore: result.Overall,
		QualityTier:  result.Tier,
		Budget:       result.Budget,
		Detail:       result.Detail,
		Urgency:      result.Urgency,
		Verification: result.Verification,
		Media:        result.Media,
		Location:     result.Location,
		ModelVersion: result.ModelVersion,
	})
	if err != nil {
		return repository.LeadScore{}, err
	}

	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		ScoreVersion: score.Version,
		OverallScore: score.OverallScore,
		QualityTier:  score.QualityTier,
	})

	return score, nil
}

func toScoreResponse(score repository.LeadScore) transport.ScoreResponse {
	return transport.ScoreResponse{
		LeadID:       score.LeadID,
		Version:      score.Version,
		OverallScore: score.OverallScore,
		QualityTier:  score.QualityTier,
		Budget:       score.Budget,
		Detail:       score.Detail,
		Urgency:      score.Urgency,
		Verification: score.Verification,
		Media:        score.Media,
		Location:     score.Location,
		ModelVersion: score.ModelVersion,
		CreatedAt:    score.CreatedAt.Format(time.RFC3339),
	}
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*p)
	return &normalized
}
