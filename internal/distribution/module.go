// Package distribution provides the lead distribution bounded context: the
// matcher and pricing engines, the per-(lead,vendor) offer lifecycle, and
// the refund path. Charges and refunds ride the credit ledger through the
// ports interfaces so that money and state always move together.
package distribution

import (
	"tradematch_backend/internal/distribution/handler"
	"tradematch_backend/internal/distribution/matcher"
	"tradematch_backend/internal/distribution/ports"
	"tradematch_backend/internal/distribution/pricing"
	"tradematch_backend/internal/distribution/refund"
	"tradematch_backend/internal/distribution/repository"
	"tradematch_backend/internal/distribution/service"
	apphttp "tradematch_backend/internal/http"
	"tradematch_backend/platform/config"
	"tradematch_backend/platform/events"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the slice of configuration the distribution module needs.
type Config interface {
	config.OfferPolicyConfig
	config.MatchPolicyConfig
	config.PricingPolicyConfig
	config.RefundPolicyConfig
}

// Module is the distribution bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the distribution module. The ledger,
// spend guard and lead reader are adapters over the credits and leads
// modules, wired by the composition root.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	cfg Config,
	ledger ports.Ledger,
	guard ports.SpendGuard,
	leads service.LeadReader,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(
		repo,
		matcher.New(cfg),
		pricing.New(cfg),
		refund.New(cfg),
		ledger,
		guard,
		leads,
		bus,
		cfg,
		log,
	)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "distribution"
}

// Service returns the service layer for cross-module adapters and the
// scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts distribution routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	offers := ctx.Vendor.Group("/offers")
	offers.GET("", m.handler.ListOffers)
	offers.POST("/:leadId/accept", m.handler.Accept)
	offers.POST("/:leadId/decline", m.handler.Decline)

	ctx.Admin.POST("/distributions/:id/refund", m.handler.Refund)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
