// Package vendors provides the vendor profile bounded context: the profile a
// vendor exposes to the matcher, their lead preferences, and the opt-in
// auto-accept rule evaluated during distribution fan-out.
package vendors

import (
	apphttp "tradematch_backend/internal/http"
	"tradematch_backend/internal/vendors/handler"
	"tradematch_backend/internal/vendors/repository"
	"tradematch_backend/internal/vendors/service"
	"tradematch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the vendors bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the vendors module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "vendors"
}

// Repository returns the repository; the distribution matcher reads vendor
// profiles and auto-accept rules through it.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts vendor self-service routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	me := ctx.Vendor.Group("/vendors/me")
	me.GET("/profile", m.handler.GetProfile)
	me.PUT("/profile", m.handler.UpsertProfile)
	me.GET("/preferences", m.handler.GetPreferences)
	me.PUT("/preferences", m.handler.SetPreferences)
	me.GET("/auto-accept", m.handler.GetAutoAccept)
	me.PUT("/auto-accept", m.handler.SetAutoAccept)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
