package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REQUEST REFUND
// =====================================================
type RequestRefundRequest struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Reason   string    `json:"reason"`
}

func (req RequestRefundRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.TicketID, validation.Required),
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// =====================================================
// PROCESS REFUND (Admin)
// =====================================================
type ProcessRefundRequest struct {
	Decision string  `json:"decision"`
	Notes    *string `json:"notes,omitempty"`
}

func (req ProcessRefundRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Decision, validation.Required, validation.In(DecisionApprove, DecisionReject)),
		validation.Field(&req.Notes, validation.NilOrNotEmpty, validation.Length(1, 1000)),
	)
}

// =====================================================
// BATCH REFUND (Admin)
// =====================================================
type BatchRefundRequest struct {
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	Reason    string      `json:"reason"`
}

func (req BatchRefundRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.TicketIDs, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// BatchRefundItem is the outcome for one ticket of a batch.
type BatchRefundItem struct {
	TicketID uuid.UUID       `json:"ticket_id"`
	Success  bool            `json:"success"`
	RefundID *uuid.UUID      `json:"refund_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Code     string          `json:"error_code,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type BatchRefundResult struct {
	Items         []BatchRefundItem `json:"items"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	TotalRefunded decimal.Decimal   `json:"total_refunded"`
}

// =====================================================
// LIST
// =====================================================
type ListRefundsFilter struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (f *ListRefundsFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

func (f *ListRefundsFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// =====================================================
// EVENT PAYLOADS
// =====================================================
type RefundCompletedEvent struct {
	RefundID        uuid.UUID       `json:"refund_id"`
	ReferenceNumber string          `json:"reference_number"`
	TicketID        uuid.UUID       `json:"ticket_id"`
	ReservationID   uuid.UUID       `json:"reservation_id"`
	VisitorID       uuid.UUID       `json:"visitor_id"`
	Amount          decimal.Decimal `json:"amount"`
}
