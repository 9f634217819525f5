package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/catalog/service"
	"themepark-backend/internal/shared/middleware"
	"themepark-backend/internal/shared/response"
)

// ============================================================
// HANDLER STRUCT
// ============================================================
type CatalogHandler struct {
	service service.Service
}

func NewCatalogHandler(svc service.Service) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListTicketTypes godoc
// @Summary List ticket types
// @Tags Catalog
// @Produce json
// @Param all query bool false "Include inactive ticket types (admin)"
// @Success 200 {object} response.Response{data=[]model.TicketType}
// @Router /ticket-types [get]
func (h *CatalogHandler) ListTicketTypes(c *gin.Context) {
	types, err := h.service.ListTicketTypes(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, types)
}

// GetTicketType godoc
// @Summary Get ticket type
// @Tags Catalog
// @Produce json
// @Param id path string true "Ticket type ID"
// @Success 200 {object} response.Response{data=model.TicketType}
// @Failure 404 {object} response.Response
// @Router /ticket-types/{id} [get]
func (h *CatalogHandler) GetTicketType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tt, err := h.service.GetTicketType(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tt)
}

// CreateTicketType godoc
// @Summary Create ticket type (admin)
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body model.CreateTicketTypeRequest true "Ticket type"
// @Success 201 {object} response.Response{data=model.TicketType}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Security BearerAuth
// @Router /admin/ticket-types [post]
func (h *CatalogHandler) CreateTicketType(c *gin.Context) {
	var req model.CreateTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	tt, err := h.service.CreateTicketType(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, tt)
}

// UpdateBasePrice godoc
// @Summary Change a ticket type's base price (admin)
// @Description Records a price history entry. Existing reservations keep their prices.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Ticket type ID"
// @Param request body model.UpdateBasePriceRequest true "New price"
// @Success 200 {object} response.Response{data=model.TicketType}
// @Security BearerAuth
// @Router /admin/ticket-types/{id}/base-price [patch]
func (h *CatalogHandler) UpdateBasePrice(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateBasePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	tt, err := h.service.UpdateBasePrice(c.Request.Context(), actor.VisitorID, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tt)
}

// ListPriceHistory godoc
// @Summary Base price history (admin)
// @Tags Catalog
// @Produce json
// @Param id path string true "Ticket type ID"
// @Success 200 {object} response.Response{data=[]model.PriceHistory}
// @Security BearerAuth
// @Router /admin/ticket-types/{id}/price-history [get]
func (h *CatalogHandler) ListPriceHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := h.service.ListPriceHistory(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, history)
}

// CreatePriceRule godoc
// @Summary Add a price rule to a ticket type (admin)
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Ticket type ID"
// @Param request body model.CreatePriceRuleRequest true "Price rule"
// @Success 201 {object} response.Response{data=model.PriceRule}
// @Security BearerAuth
// @Router /admin/ticket-types/{id}/price-rules [post]
func (h *CatalogHandler) CreatePriceRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.CreatePriceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	rule, err := h.service.CreatePriceRule(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rule)
}

// ListPriceRules godoc
// @Summary List price rules of a ticket type (admin)
// @Tags Catalog
// @Produce json
// @Param id path string true "Ticket type ID"
// @Success 200 {object} response.Response{data=[]model.PriceRule}
// @Security BearerAuth
// @Router /admin/ticket-types/{id}/price-rules [get]
func (h *CatalogHandler) ListPriceRules(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rules, err := h.service.ListPriceRules(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rules)
}

// UpdatePriceRule godoc
// @Summary Edit a price rule (admin)
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Price rule ID"
// @Param request body model.UpdatePriceRuleRequest true "Fields to change"
// @Success 200 {object} response.Response{data=model.PriceRule}
// @Failure 422 {object} response.Response
// @Security BearerAuth
// @Router /admin/price-rules/{id} [put]
func (h *CatalogHandler) UpdatePriceRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePriceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	rule, err := h.service.UpdatePriceRule(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule)
}

// DeletePriceRule godoc
// @Summary Delete a price rule (admin)
// @Tags Catalog
// @Param id path string true "Price rule ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/price-rules/{id} [delete]
func (h *CatalogHandler) DeletePriceRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePriceRule(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
