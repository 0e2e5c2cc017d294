// Package handler exposes the distribution module's HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tradematch_backend/internal/distribution/service"
	"tradematch_backend/internal/distribution/transport"
	"tradematch_backend/platform/httpkit"
	"tradematch_backend/platform/validator"
)

const (
	msgInvalidRequest        = "invalid request"
	msgValidationFailed      = "validation failed"
	msgInvalidLeadID         = "invalid lead ID"
	msgInvalidDistributionID = "invalid distribution ID"
)

// Handler handles HTTP requests for offers and refunds.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new distribution handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListOffers lists the caller's open offers.
// GET /api/v1/offers
func (h *Handler) ListOffers(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.OfferedLeads(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Accept accepts an offered lead, charging the caller's credit balance.
// POST /api/v1/offers/:leadId/accept
func (h *Handler) Accept(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), leadID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Decline declines an offered lead, with an optional reason in the body.
// POST /api/v1/offers/:leadId/decline
func (h *Handler) Decline(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.DeclineRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	result, err := h.svc.Decline(c.Request.Context(), leadID, identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Refund issues a refund on an accepted distribution.
// POST /api/v1/admin/distributions/:id/refund
func (h *Handler) Refund(c *gin.Context) {
	distributionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDistributionID, nil)
		return
	}

	var req transport.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.IssueRefund(c.Request.Context(), distributionID, req.ReasonCode)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
