package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// GATEWAY INTERFACE
// =====================================================

// Gateway charges and refunds visitors through the payment provider.
type Gateway interface {
	// Charge captures the amount. A refusal by the provider returns an error
	// wrapping ErrDeclined.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Refund returns money for an earlier charge.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// ErrDeclined is returned when the provider refuses a charge.
var ErrDeclined = errors.New("payment declined by provider")

// =====================================================
// REQUEST/RESPONSE TYPES
// =====================================================

type ChargeRequest struct {
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Method        string
	Token         string // opaque instrument token
	Description   string
}

type ChargeResult struct {
	TransactionRef string // provider transaction id
	ProcessedAt    time.Time
}

type RefundRequest struct {
	TransactionRef string // original charge
	Reference      string // our refund reference number
	Amount         decimal.Decimal
	Reason         string
}

type RefundResult struct {
	RefundRef   string
	ProcessedAt time.Time
}
