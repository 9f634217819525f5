package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/domains/payment/model"
	"themepark-backend/internal/domains/payment/service"
	"themepark-backend/internal/shared/middleware"
	"themepark-backend/internal/shared/response"
)

type RefundHandler struct {
	service service.RefundService
}

func NewRefundHandler(svc service.RefundService) *RefundHandler {
	return &RefundHandler{service: svc}
}

// =====================================================
// VISITOR ENDPOINTS
// =====================================================

// RequestRefund godoc
// @Summary Request a refund for one ticket
// @Description Admin requests are approved and completed immediately
// @Tags Refunds
// @Accept json
// @Produce json
// @Param request body model.RequestRefundRequest true "Ticket and reason"
// @Success 201 {object} response.Response{data=model.RefundRecord}
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Security BearerAuth
// @Router /refunds [post]
func (h *RefundHandler) RequestRefund(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req model.RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	refund, err := h.service.RequestRefund(c.Request.Context(), actor, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, refund)
}

// GetRefund godoc
// @Summary Get a refund
// @Tags Refunds
// @Produce json
// @Param id path string true "Refund ID"
// @Success 200 {object} response.Response{data=model.RefundRecord}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /refunds/{id} [get]
func (h *RefundHandler) GetRefund(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, ok := refundID(c)
	if !ok {
		return
	}

	refund, err := h.service.GetRefund(c.Request.Context(), actor, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, refund)
}

// ListMyRefunds godoc
// @Summary List the caller's refunds
// @Tags Refunds
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=[]model.RefundRecord}
// @Security BearerAuth
// @Router /refunds [get]
func (h *RefundHandler) ListMyRefunds(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var filter model.ListRefundsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	refunds, total, err := h.service.ListMyRefunds(c.Request.Context(), actor, &filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, refunds, &response.Meta{Page: filter.Page, Limit: filter.Limit, Total: total})
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// ListPending godoc
// @Summary List pending refunds, oldest first
// @Tags Admin Refunds
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=[]model.RefundRecord}
// @Security BearerAuth
// @Router /admin/refunds/pending [get]
func (h *RefundHandler) ListPending(c *gin.Context) {
	var filter model.ListRefundsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	refunds, total, err := h.service.ListPending(c.Request.Context(), &filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, refunds, &response.Meta{Page: filter.Page, Limit: filter.Limit, Total: total})
}

// ProcessRefund godoc
// @Summary Approve or reject a pending refund
// @Tags Admin Refunds
// @Accept json
// @Produce json
// @Param id path string true "Refund ID"
// @Param request body model.ProcessRefundRequest true "Decision"
// @Success 200 {object} response.Response{data=model.RefundRecord}
// @Failure 409 {object} response.Response
// @Security BearerAuth
// @Router /admin/refunds/{id}/process [post]
func (h *RefundHandler) ProcessRefund(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, ok := refundID(c)
	if !ok {
		return
	}

	var req model.ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	refund, err := h.service.ProcessRefund(c.Request.Context(), actor, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, refund)
}

// BatchRefund godoc
// @Summary Refund many tickets
// @Description Each ticket is refunded independently; the result lists per-ticket outcomes
// @Tags Admin Refunds
// @Accept json
// @Produce json
// @Param request body model.BatchRefundRequest true "Tickets"
// @Success 200 {object} response.Response{data=model.BatchRefundResult}
// @Security BearerAuth
// @Router /admin/refunds/batch [post]
func (h *RefundHandler) BatchRefund(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req model.BatchRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	result, err := h.service.BatchRefund(c.Request.Context(), actor, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func refundID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid refund id")
		return uuid.Nil, false
	}
	return id, true
}
