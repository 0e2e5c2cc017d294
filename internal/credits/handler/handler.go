// Package handler exposes the credits module's HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradematch_backend/internal/credits/service"
	"tradematch_backend/internal/credits/transport"
	"tradematch_backend/platform/httpkit"
	"tradematch_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for credits and spend limits.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new credits handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Balance returns the caller's credit balance.
// GET /api/v1/credits/balance
func (h *Handler) Balance(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Balance(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// History lists the caller's ledger entries.
// GET /api/v1/credits/history
func (h *Handler) History(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.History(c.Request.Context(), identity.UserID(), query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Packages returns the credit package catalog.
// GET /api/v1/credits/packages
func (h *Handler) Packages(c *gin.Context) {
	httpkit.OK(c, h.svc.Packages())
}

// RecordPurchase records a confirmed purchase fact from the payment
// collaborator. Admin-only: the credited vendor is named by the fact, so
// vendors cannot credit themselves.
// POST /api/v1/admin/credits/purchases
func (h *Handler) RecordPurchase(c *gin.Context) {
	var req transport.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RecordPurchase(c.Request.Context(), req.VendorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetSpendLimits returns the caller's spend caps.
// GET /api/v1/vendors/me/spend-limits
func (h *Handler) GetSpendLimits(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetSpendLimits(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetSpendLimits updates the caller's spend caps.
// PUT /api/v1/vendors/me/spend-limits
func (h *Handler) SetSpendLimits(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.SpendLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetSpendLimits(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reconciliation runs the ledger integrity report.
// GET /api/v1/admin/credits/reconciliation
func (h *Handler) Reconciliation(c *gin.Context) {
	result, err := h.svc.Reconcile(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
