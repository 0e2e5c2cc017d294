// Package credits provides the credit ledger bounded context: the append-only
// ledger that is the system of record for vendor balances, plus the rolling
// spend limiter consulted before any charge.
package credits

import (
	"tradematch_backend/internal/credits/handler"
	"tradematch_backend/internal/credits/repository"
	"tradematch_backend/internal/credits/service"
	apphttp "tradematch_backend/internal/http"
	"tradematch_backend/platform/events"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the credits bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the credits module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "credits"
}

// Service returns the service layer for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository; the distribution accept path uses its
// tx-scoped operations through an adapter.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts credit routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	creditGroup := ctx.Vendor.Group("/credits")
	creditGroup.GET("/balance", m.handler.Balance)
	creditGroup.GET("/history", m.handler.History)
	creditGroup.GET("/packages", m.handler.Packages)

	ctx.Vendor.GET("/vendors/me/spend-limits", m.handler.GetSpendLimits)
	ctx.Vendor.PUT("/vendors/me/spend-limits", m.handler.SetSpendLimits)

	// Purchase facts come from the payment collaborator, not from vendors.
	ctx.Admin.POST("/credits/purchases", m.handler.RecordPurchase)
	ctx.Admin.GET("/credits/reconciliation", m.handler.Reconciliation)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
