package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/domains/reservation/service"
	"themepark-backend/internal/shared/middleware"
	"themepark-backend/internal/shared/response"
)

type ReservationHandler struct {
	service service.Service
}

func NewReservationHandler(svc service.Service) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// CreateReservation godoc
// @Summary Create a reservation
// @Description Prices the cart, redeems promotions and holds sale capacity. The reservation starts Pending.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body model.CreateReservationRequest true "Reservation"
// @Success 201 {object} response.Response{data=model.Reservation}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Security BearerAuth
// @Router /reservations [post]
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req model.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	res, err := h.service.CreateReservation(c.Request.Context(), actor, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// ListReservations godoc
// @Summary List reservations
// @Description Visitors see their own reservations, admins see all
// @Tags Reservations
// @Produce json
// @Param status query string false "pending|confirmed|cancelled|completed"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} response.Response{data=[]model.Reservation}
// @Security BearerAuth
// @Router /reservations [get]
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var filter model.ListReservationsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := filter.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	reservations, total, err := h.service.ListReservations(c.Request.Context(), actor, &filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, reservations, &response.Meta{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}

// GetReservation godoc
// @Summary Get a reservation with its tickets
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Response{data=model.ReservationDetail}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetReservation(c.Request.Context(), actor, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// Pay godoc
// @Summary Pay a pending reservation
// @Description Charges the payment gateway and issues tickets. Paying a confirmed reservation again returns it unchanged.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body model.PayRequest true "Payment"
// @Success 200 {object} response.Response{data=model.ReservationDetail}
// @Failure 402 {object} response.Response
// @Failure 409 {object} response.Response
// @Security BearerAuth
// @Router /reservations/{id}/pay [post]
func (h *ReservationHandler) Pay(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req model.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	detail, err := h.service.Pay(c.Request.Context(), actor, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// Cancel godoc
// @Summary Cancel a reservation
// @Description Pending reservations release their promotions. Confirmed ones cancel unused tickets and refund them if paid.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body model.CancelRequest true "Reason"
// @Success 200 {object} response.Response{data=model.CancelResult}
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Security BearerAuth
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req model.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), actor, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// UseTicket godoc
// @Summary Admit a ticket at the entry gate
// @Tags Admin Tickets
// @Accept json
// @Produce json
// @Param request body model.UseTicketRequest true "Ticket serial"
// @Success 200 {object} response.Response{data=model.Ticket}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Security BearerAuth
// @Router /admin/tickets/use [post]
func (h *ReservationHandler) UseTicket(c *gin.Context) {
	var req model.UseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	ticket, err := h.service.UseTicket(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ticket)
}

func actorAndID(c *gin.Context) (middleware.Actor, uuid.UUID, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return actor, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation id")
		return actor, uuid.Nil, false
	}
	return actor, id, true
}
