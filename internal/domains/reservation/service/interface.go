package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalog "themepark-backend/internal/domains/catalog/model"
	pricing "themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/shared"
)

// Service drives the reservation lifecycle.
type Service interface {
	CreateReservation(ctx context.Context, actor shared.Actor, req *model.CreateReservationRequest) (*model.Reservation, error)
	Pay(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.PayRequest) (*model.ReservationDetail, error)
	Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.CancelRequest) (*model.CancelResult, error)
	UseTicket(ctx context.Context, req *model.UseTicketRequest) (*model.Ticket, error)
	GetReservation(ctx context.Context, actor shared.Actor, id uuid.UUID) (*model.ReservationDetail, error)
	ListReservations(ctx context.Context, actor shared.Actor, filter *model.ListReservationsFilter) ([]*model.Reservation, int, error)

	// Scheduled sweeps
	CompleteElapsed(ctx context.Context) (*model.SweepResult, error)
	ExpirePending(ctx context.Context) (*model.SweepResult, error)
}

// =====================================================
// COLLABORATORS
// =====================================================

type TicketTypeLocker interface {
	LockTicketTypesWithTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*catalog.TicketType, error)
}

type CartPricer interface {
	CalculateWithTicketTypes(ctx context.Context, visitorID uuid.UUID, req *pricing.CalculatePriceRequest, ticketTypes map[uuid.UUID]*catalog.TicketType) (*pricing.PricedCart, error)
}

// PromotionLedger records promotion redemptions inside the reservation
// transaction.
type PromotionLedger interface {
	GetByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error)
	IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID) error
	GetUserUsageCountWithTx(ctx context.Context, tx pgx.Tx, promotionID, visitorID uuid.UUID) (int, error)
	CreateUsagesWithTx(ctx context.Context, tx pgx.Tx, usages []*promotion.PromotionUsage) error
	ReleaseUsagesWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error)
}

// RefundIssuer writes refund records for tickets cancelled with their
// reservation.
type RefundIssuer interface {
	// IssueCancellationRefundsWithTx creates one completed refund per ticket
	// and returns the total refunded.
	IssueCancellationRefundsWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation, tickets []*model.Ticket, processorID *uuid.UUID) (decimal.Decimal, error)
	CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
