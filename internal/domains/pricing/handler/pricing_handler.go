package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/domains/pricing/model"
	"themepark-backend/internal/domains/pricing/service"
	"themepark-backend/internal/shared/middleware"
	"themepark-backend/internal/shared/response"
	"themepark-backend/internal/shared/utils"
)

type PricingHandler struct {
	service service.Service
}

func NewPricingHandler(svc service.Service) *PricingHandler {
	return &PricingHandler{service: svc}
}

// CalculatePrice godoc
// @Summary Price a cart
// @Description Resolves price rules and applies eligible promotions without reserving anything
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body model.CalculatePriceRequest true "Cart"
// @Success 200 {object} response.Response{data=model.PricedCart}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Security BearerAuth
// @Router /pricing/calculate [post]
func (h *PricingHandler) CalculatePrice(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req model.CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	cart, err := h.service.CalculatePrice(c.Request.Context(), actor.VisitorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

// QuoteTicketType godoc
// @Summary Quote one ticket type
// @Tags Pricing
// @Produce json
// @Param id path string true "Ticket type ID"
// @Param quantity query int false "Quantity (default 1)"
// @Param date query string false "Visit date YYYY-MM-DD (default today)"
// @Success 200 {object} response.Response{data=model.PriceQuote}
// @Router /ticket-types/{id}/quote [get]
func (h *PricingHandler) QuoteTicketType(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket type id")
		return
	}

	quantity := 1
	if raw := c.Query("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "quantity must be an integer")
			return
		}
	}

	date := utils.StartOfDay(time.Now())
	if raw := c.Query("date"); raw != "" {
		date, err = utils.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	quote, err := h.service.QuoteTicketType(c.Request.Context(), id, quantity, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, quote)
}
