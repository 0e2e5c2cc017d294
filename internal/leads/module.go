// Package leads provides the lead intake and qualification bounded context.
// A posted lead is persisted, stamped with a versioned qualification score,
// and handed to the distribution module for vendor fan-out.
package leads

import (
	apphttp "tradematch_backend/internal/http"
	"tradematch_backend/internal/leads/handler"
	"tradematch_backend/internal/leads/repository"
	"tradematch_backend/internal/leads/scoring"
	"tradematch_backend/internal/leads/service"
	"tradematch_backend/platform/config"
	"tradematch_backend/platform/events"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.ScoringPolicyConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	scorer := scoring.New(cfg)
	svc := service.New(repo, scorer, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetDistributor wires the distribution fan-out used during intake.
func (m *Module) SetDistributor(d service.Distributor) {
	m.service.SetDistributor(d)
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public intake, rate limited per IP: lead posting is unauthenticated.
	ctx.V1.POST("/leads", ctx.IntakeRateLimiter.RateLimit(), m.handler.Create)

	// Score inspection and re-scoring are operations concerns.
	ctx.Admin.GET("/leads/:id/score", m.handler.GetScore)
	ctx.Admin.POST("/leads/:id/rescore", m.handler.Rescore)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
