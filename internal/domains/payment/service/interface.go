package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"themepark-backend/internal/domains/payment/model"
	reservation "themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/shared"
)

// RefundService validates refund eligibility and moves refund records
// through Pending, Approved or Rejected, and Completed.
type RefundService interface {
	// Visitor endpoints
	RequestRefund(ctx context.Context, actor shared.Actor, req *model.RequestRefundRequest) (*model.RefundRecord, error)
	GetRefund(ctx context.Context, actor shared.Actor, id uuid.UUID) (*model.RefundRecord, error)
	ListMyRefunds(ctx context.Context, actor shared.Actor, filter *model.ListRefundsFilter) ([]*model.RefundRecord, int, error)

	// Admin endpoints
	ProcessRefund(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.ProcessRefundRequest) (*model.RefundRecord, error)
	BatchRefund(ctx context.Context, actor shared.Actor, req *model.BatchRefundRequest) (*model.BatchRefundResult, error)
	ListPending(ctx context.Context, filter *model.ListRefundsFilter) ([]*model.RefundRecord, int, error)

	// Used by the reservation cancel path
	IssueCancellationRefundsWithTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation, tickets []*reservation.Ticket, processorID *uuid.UUID) (decimal.Decimal, error)
	CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error)
}

// =====================================================
// COLLABORATORS
// =====================================================

type ReservationStore interface {
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*reservation.Reservation, error)
	UpdateWithTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation) error
}

type TicketStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*reservation.Ticket, error)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*reservation.Ticket, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, t *reservation.Ticket) error
}
