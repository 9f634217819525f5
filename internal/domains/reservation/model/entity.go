package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// STATUS CONSTANTS
// =====================================================
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// IsFinal reports whether no further transition is possible.
func (s ReservationStatus) IsFinal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// =====================================================
// PAYMENT METHOD CONSTANTS
// =====================================================
const (
	PaymentMethodCard         = "card"
	PaymentMethodWallet       = "e_wallet"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// =====================================================
// ENTITY: Reservation
// =====================================================
type Reservation struct {
	ID               uuid.UUID         `json:"id"`
	VisitorID        uuid.UUID         `json:"visitor_id"`
	VisitDate        time.Time         `json:"visit_date"`
	Status           ReservationStatus `json:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status"`
	PaymentMethod    *string           `json:"payment_method,omitempty"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	DiscountAmount   decimal.Decimal   `json:"discount_amount"`
	Total            decimal.Decimal   `json:"total"`
	PointsAwarded    int               `json:"points_awarded"`
	PromotionID      *uuid.UUID        `json:"promotion_id,omitempty"`
	SpecialRequests  *string           `json:"special_requests,omitempty"`
	CancelReason     *string           `json:"cancel_reason,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Version          int               `json:"version"`

	Items []*ReservationItem `json:"items,omitempty"`
}

// IsPaid is true once money was taken, even if part of it went back.
func (r *Reservation) IsPaid() bool {
	switch r.PaymentStatus {
	case PaymentPaid, PaymentPartiallyRefunded, PaymentRefunded:
		return true
	}
	return false
}

func (r *Reservation) IsOwnedBy(visitorID uuid.UUID) bool {
	return r.VisitorID == visitorID
}

// ItemByID returns the item with the given id, or nil.
func (r *Reservation) ItemByID(id uuid.UUID) *ReservationItem {
	for _, item := range r.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// TicketCount is the number of tickets the reservation issues on payment.
func (r *Reservation) TicketCount() int {
	n := 0
	for _, item := range r.Items {
		n += item.Quantity
	}
	return n
}

// =====================================================
// ENTITY: ReservationItem
// =====================================================

// ReservationItem freezes the unit price at reservation time. Later base
// price or rule changes never touch it.
type ReservationItem struct {
	ID                 uuid.UUID       `json:"id"`
	ReservationID      uuid.UUID       `json:"reservation_id"`
	TicketTypeID       uuid.UUID       `json:"ticket_type_id"`
	TicketTypeName     string          `json:"ticket_type_name"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	AppliedPriceRuleID *uuid.UUID      `json:"applied_price_rule_id,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	LineTotal          decimal.Decimal `json:"line_total"`
	IsFree             bool            `json:"is_free"`
	SourcePromotionID  *uuid.UUID      `json:"source_promotion_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// PerTicketAmount is the line total split evenly over its tickets, rounded
// down to cents. Free lines refund nothing.
func (i *ReservationItem) PerTicketAmount() decimal.Decimal {
	if i.IsFree || i.Quantity <= 0 {
		return decimal.Zero
	}
	return i.LineTotal.Div(decimal.NewFromInt(int64(i.Quantity))).RoundDown(2)
}

// =====================================================
// ENTITY: Ticket
// =====================================================
type Ticket struct {
	ID                uuid.UUID    `json:"id"`
	SerialNumber      string       `json:"serial_number"`
	ReservationID     uuid.UUID    `json:"reservation_id"`
	ReservationItemID uuid.UUID    `json:"reservation_item_id"`
	TicketTypeID      uuid.UUID    `json:"ticket_type_id"`
	VisitorID         uuid.UUID    `json:"visitor_id"`
	ValidFrom         time.Time    `json:"valid_from"`
	ValidTo           time.Time    `json:"valid_to"` // exclusive
	Status            TicketStatus `json:"status"`
	UsedAt            *time.Time   `json:"used_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// ValidAt reports whether t falls inside [ValidFrom, ValidTo).
func (t *Ticket) ValidAt(at time.Time) bool {
	return !at.Before(t.ValidFrom) && at.Before(t.ValidTo)
}

// GenerateSerial returns "TKT" + yyyymmdd + 8 upper-case hex characters.
func GenerateSerial(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("TKT%s%s", now.UTC().Format("20060102"), strings.ToUpper(random[:8]))
}

// SettledPaymentStatus derives the payment status of a paid reservation
// from its completed refunds.
func SettledPaymentStatus(completedRefunds, tickets int) PaymentStatus {
	switch {
	case completedRefunds <= 0:
		return PaymentPaid
	case completedRefunds >= tickets:
		return PaymentRefunded
	default:
		return PaymentPartiallyRefunded
	}
}
