package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/payment/model"
	"themepark-backend/pkg/database"
)

// activeRefundIndex is the partial unique index on refund_records(ticket_id)
// WHERE status <> 'rejected'.
const activeRefundIndex = "idx_refund_records_active_ticket"

// =====================================================
// REFUND RECORD REPOSITORY IMPLEMENTATION
// =====================================================
type refundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) RefundRepository {
	return &refundRepository{pool: pool}
}

const refundColumns = `
	id, reference_number, ticket_id, reservation_id, visitor_id, amount, reason,
	status, processed_by, processing_notes, gateway_refund_ref,
	requested_at, processed_at, completed_at, updated_at`

func scanRefund(row pgx.Row) (*model.RefundRecord, error) {
	r := &model.RefundRecord{}
	err := row.Scan(
		&r.ID,
		&r.ReferenceNumber,
		&r.TicketID,
		&r.ReservationID,
		&r.VisitorID,
		&r.Amount,
		&r.Reason,
		&r.Status,
		&r.ProcessedBy,
		&r.ProcessingNotes,
		&r.GatewayRefundRef,
		&r.RequestedAt,
		&r.ProcessedAt,
		&r.CompletedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

// CreateWithTx inserts inside a savepoint so a unique violation leaves the
// caller's transaction usable.
func (r *refundRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	const query = `
		INSERT INTO refund_records (
			id, reference_number, ticket_id, reservation_id, visitor_id, amount,
			reason, status, processed_by, processing_notes, gateway_refund_ref,
			requested_at, processed_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	defer savepoint.Rollback(ctx)

	_, err = savepoint.Exec(ctx, query,
		refund.ID,
		refund.ReferenceNumber,
		refund.TicketID,
		refund.ReservationID,
		refund.VisitorID,
		refund.Amount,
		refund.Reason,
		refund.Status,
		refund.ProcessedBy,
		refund.ProcessingNotes,
		refund.GatewayRefundRef,
		refund.RequestedAt,
		refund.ProcessedAt,
		refund.CompletedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, activeRefundIndex) {
			return model.ErrRefundExists
		}
		return fmt.Errorf("failed to create refund record: %w", err)
	}

	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (r *refundRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RefundRecord, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_records WHERE id = $1 FOR UPDATE`
	return getOne(tx.QueryRow(ctx, query, id))
}

func (r *refundRepository) GetActiveByTicketWithTx(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.RefundRecord, error) {
	query := `SELECT ` + refundColumns + `
		FROM refund_records
		WHERE ticket_id = $1 AND status <> 'rejected'
		FOR UPDATE`
	return getOne(tx.QueryRow(ctx, query, ticketID))
}

func (r *refundRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	const query = `
		UPDATE refund_records
		SET status = $2,
			processed_by = $3,
			processing_notes = $4,
			gateway_refund_ref = $5,
			processed_at = $6,
			completed_at = $7,
			updated_at = $8
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		refund.ID,
		refund.Status,
		refund.ProcessedBy,
		refund.ProcessingNotes,
		refund.GatewayRefundRef,
		refund.ProcessedAt,
		refund.CompletedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update refund record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRefundNotFound
	}
	return nil
}

func (r *refundRepository) CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM refund_records
		WHERE reservation_id = $1 AND status = 'completed'
	`

	var count int
	if err := tx.QueryRow(ctx, query, reservationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed refunds: %w", err)
	}
	return count, nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

func (r *refundRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRecord, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_records WHERE id = $1`
	return getOne(r.pool.QueryRow(ctx, query, id))
}

func (r *refundRepository) ListPending(ctx context.Context, limit, offset int) ([]*model.RefundRecord, int, error) {
	return r.list(ctx, `status = 'pending'`, `requested_at ASC`, limit, offset)
}

func (r *refundRepository) ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit, offset int) ([]*model.RefundRecord, int, error) {
	return r.list(ctx, `visitor_id = $1`, `requested_at DESC`, limit, offset, visitorID)
}

func (r *refundRepository) list(ctx context.Context, where, orderBy string, limit, offset int, args ...any) ([]*model.RefundRecord, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM refund_records WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count refund records: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM refund_records WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		refundColumns, where, orderBy, n+1, n+2)

	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list refund records: %w", err)
	}

	refunds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.RefundRecord, error) {
		return scanRefund(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan refund records: %w", err)
	}
	return refunds, total, nil
}

func getOne(row pgx.Row) (*model.RefundRecord, error) {
	refund, err := scanRefund(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund record: %w", err)
	}
	return refund, nil
}
