package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/payment/model"
)

// =====================================================
// REFUND RECORD REPOSITORY INTERFACE
// =====================================================
type RefundRepository interface {
	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// CreateWithTx returns model.ErrRefundExists when the ticket already has
	// a record that is not rejected.
	CreateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error

	// GetForUpdateWithTx locks the record row (SELECT ... FOR UPDATE)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RefundRecord, error)

	// GetActiveByTicketWithTx returns the non-rejected record of a ticket or
	// model.ErrRefundNotFound.
	GetActiveByTicketWithTx(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.RefundRecord, error)

	UpdateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error

	// CountCompletedWithTx counts completed refunds of a reservation
	CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error)

	// ============================================
	// STANDALONE METHODS
	// ============================================

	GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRecord, error)

	// ListPending lists pending records oldest first
	ListPending(ctx context.Context, limit, offset int) ([]*model.RefundRecord, int, error)

	// ListByVisitor lists a visitor's records newest first
	ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit, offset int) ([]*model.RefundRecord, int, error)
}
