package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REFUND STATUS
// =====================================================
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundCompleted RefundStatus = "completed"
)

// Refund decisions taken by an admin on a pending refund.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// =====================================================
// ENTITY: RefundRecord
// =====================================================

// RefundRecord reverses the charge for exactly one ticket. A ticket has at
// most one record that is not rejected.
type RefundRecord struct {
	ID              uuid.UUID       `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	TicketID        uuid.UUID       `json:"ticket_id"`
	ReservationID   uuid.UUID       `json:"reservation_id"`
	VisitorID       uuid.UUID       `json:"visitor_id"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason"`
	Status          RefundStatus    `json:"status"`

	ProcessedBy      *uuid.UUID `json:"processed_by,omitempty"`
	ProcessingNotes  *string    `json:"processing_notes,omitempty"`
	GatewayRefundRef *string    `json:"gateway_refund_ref,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *RefundRecord) IsPending() bool {
	return r.Status == RefundPending
}

// IsActive reports whether the record still blocks another refund of the
// same ticket.
func (r *RefundRecord) IsActive() bool {
	return r.Status != RefundRejected
}

// Approve moves a pending record through Approved to Completed.
func (r *RefundRecord) Approve(processor *uuid.UUID, notes *string, gatewayRef *string, now time.Time) {
	r.Status = RefundCompleted
	r.ProcessedBy = processor
	r.ProcessingNotes = notes
	r.GatewayRefundRef = gatewayRef
	r.ProcessedAt = &now
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *RefundRecord) Reject(processor *uuid.UUID, notes *string, now time.Time) {
	r.Status = RefundRejected
	r.ProcessedBy = processor
	r.ProcessingNotes = notes
	r.ProcessedAt = &now
	r.UpdatedAt = now
}

// GenerateReference returns "REF" + yyyymmddHHMMSS + 6 upper-case hex
// characters.
func GenerateReference(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("REF%s%s", now.UTC().Format("20060102150405"), strings.ToUpper(random[:6]))
}

// RefundableAmount deducts the configured fee from what was paid for one
// ticket, rounded down to cents.
func RefundableAmount(paid decimal.Decimal, feePercent decimal.Decimal) decimal.Decimal {
	if !paid.IsPositive() {
		return decimal.Zero
	}
	if !feePercent.IsPositive() {
		return paid
	}
	if feePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return decimal.Zero
	}

	fee := paid.Mul(feePercent).Div(decimal.NewFromInt(100))
	return paid.Sub(fee).RoundDown(2)
}
