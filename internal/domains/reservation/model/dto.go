package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pricing "themepark-backend/internal/domains/pricing/model"
)

// =====================================================
// CREATE RESERVATION REQUEST
// =====================================================
type CreateReservationRequest struct {
	VisitDate       string                `json:"visit_date"` // YYYY-MM-DD
	Items           []pricing.ItemRequest `json:"items"`
	PromotionID     *uuid.UUID            `json:"promotion_id,omitempty"`
	SpecialRequests *string               `json:"special_requests,omitempty"`
}

func (req CreateReservationRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.VisitDate, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&req.Items, validation.Required, validation.Length(1, 50)),
		validation.Field(&req.SpecialRequests, validation.NilOrNotEmpty, validation.Length(1, 1000)),
	)
}

// PricingRequest is the cart part of the request.
func (req CreateReservationRequest) PricingRequest() *pricing.CalculatePriceRequest {
	return &pricing.CalculatePriceRequest{
		VisitDate:   req.VisitDate,
		Items:       req.Items,
		PromotionID: req.PromotionID,
	}
}

// =====================================================
// PAY REQUEST
// =====================================================
type PayRequest struct {
	PaymentMethod string `json:"payment_method"`
	// PaymentToken is the opaque instrument token from the payment provider.
	PaymentToken string `json:"payment_token"`
}

func (req PayRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.PaymentMethod, validation.Required, validation.In(
			PaymentMethodCard,
			PaymentMethodWallet,
			PaymentMethodBankTransfer,
			PaymentMethodCash,
		)),
		validation.Field(&req.PaymentToken, validation.Length(0, 255)),
	)
}

// =====================================================
// CANCEL REQUEST
// =====================================================
type CancelRequest struct {
	Reason string `json:"reason"`
}

func (req CancelRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// =====================================================
// USE TICKET REQUEST (entry gate)
// =====================================================
type UseTicketRequest struct {
	SerialNumber string `json:"serial_number"`
}

func (req UseTicketRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SerialNumber, validation.Required, validation.Length(19, 19)),
	)
}

// =====================================================
// LIST RESERVATIONS
// =====================================================
type ListReservationsFilter struct {
	VisitorID *uuid.UUID `form:"-"`
	Status    string     `form:"status"`
	Page      int        `form:"page"`
	Limit     int        `form:"limit"`
}

// Validate normalises paging and checks the status filter.
func (f *ListReservationsFilter) Validate() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Status == "" {
		return nil
	}
	return validation.Validate(f.Status, validation.In(
		string(StatusPending),
		string(StatusConfirmed),
		string(StatusCancelled),
		string(StatusCompleted),
	))
}

func (f *ListReservationsFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// =====================================================
// RESPONSES
// =====================================================

// ReservationDetail is a reservation with its issued tickets.
type ReservationDetail struct {
	*Reservation
	Tickets []*Ticket `json:"tickets"`
}

// CancelResult summarises a cancellation.
type CancelResult struct {
	Reservation      *Reservation    `json:"reservation"`
	CancelledTickets int             `json:"cancelled_tickets"`
	RefundedAmount   decimal.Decimal `json:"refunded_amount"`
	ReleasedPromos   int             `json:"released_promotions"`
}

// SweepResult reports a scheduled sweep.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"` // state changed between scan and lock
	Failed    int `json:"failed"`
}

// =====================================================
// EVENT PAYLOADS
// =====================================================
type ReservationConfirmedEvent struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	VisitorID     uuid.UUID       `json:"visitor_id"`
	VisitDate     string          `json:"visit_date"`
	Total         decimal.Decimal `json:"total"`
	Tickets       int             `json:"tickets"`
}

type ReservationCancelledEvent struct {
	ReservationID  uuid.UUID       `json:"reservation_id"`
	VisitorID      uuid.UUID       `json:"visitor_id"`
	Reason         string          `json:"reason"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}
