package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/logger"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresReservationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresReservationRepository(pool *pgxpool.Pool) Repository {
	return &postgresReservationRepository{pool: pool}
}

const reservationColumns = `
	id, visitor_id, visit_date, status, payment_status, payment_method,
	payment_reference, subtotal, discount_amount, total, points_awarded,
	promotion_id, special_requests, cancel_reason, paid_at, cancelled_at,
	completed_at, created_at, updated_at, version`

const itemColumns = `
	id, reservation_id, ticket_type_id, ticket_type_name, quantity,
	unit_price, applied_price_rule_id, subtotal, discount_amount,
	line_total, is_free, source_promotion_id, created_at`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	r := &model.Reservation{}
	err := row.Scan(
		&r.ID,
		&r.VisitorID,
		&r.VisitDate,
		&r.Status,
		&r.PaymentStatus,
		&r.PaymentMethod,
		&r.PaymentReference,
		&r.Subtotal,
		&r.DiscountAmount,
		&r.Total,
		&r.PointsAwarded,
		&r.PromotionID,
		&r.SpecialRequests,
		&r.CancelReason,
		&r.PaidAt,
		&r.CancelledAt,
		&r.CompletedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
	)
	return r, err
}

func scanItem(row pgx.Row) (*model.ReservationItem, error) {
	item := &model.ReservationItem{}
	err := row.Scan(
		&item.ID,
		&item.ReservationID,
		&item.TicketTypeID,
		&item.TicketTypeName,
		&item.Quantity,
		&item.UnitPrice,
		&item.AppliedPriceRuleID,
		&item.Subtotal,
		&item.DiscountAmount,
		&item.LineTotal,
		&item.IsFree,
		&item.SourcePromotionID,
		&item.CreatedAt,
	)
	return item, err
}

// =====================================================
// CREATE
// =====================================================

func (r *postgresReservationRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	const query = `
		INSERT INTO reservations (
			id, visitor_id, visit_date, status, payment_status,
			subtotal, discount_amount, total, points_awarded,
			promotion_id, special_requests, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.Exec(ctx, query,
		res.ID,
		res.VisitorID,
		res.VisitDate,
		res.Status,
		res.PaymentStatus,
		res.Subtotal,
		res.DiscountAmount,
		res.Total,
		res.PointsAwarded,
		res.PromotionID,
		res.SpecialRequests,
		res.CreatedAt,
		res.UpdatedAt,
		res.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	const itemQuery = `
		INSERT INTO reservation_items (
			id, reservation_id, ticket_type_id, ticket_type_name, quantity,
			unit_price, applied_price_rule_id, subtotal, discount_amount,
			line_total, is_free, source_promotion_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	batch := &pgx.Batch{}
	for _, item := range res.Items {
		batch.Queue(itemQuery,
			item.ID,
			res.ID,
			item.TicketTypeID,
			item.TicketTypeName,
			item.Quantity,
			item.UnitPrice,
			item.AppliedPriceRuleID,
			item.Subtotal,
			item.DiscountAmount,
			item.LineTotal,
			item.IsFree,
			item.SourcePromotionID,
			item.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range res.Items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create reservation item: %w", err)
		}
	}
	return nil
}

// =====================================================
// GET
// =====================================================

func (r *postgresReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	res.Items, err = r.loadItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *postgresReservationRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to lock reservation: %w", err)
	}

	res.Items, err = r.loadItems(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresReservationRepository) loadItems(ctx context.Context, q querier, reservationID uuid.UUID) ([]*model.ReservationItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY is_free, created_at, id`

	rows, err := q.Query(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation items: %w", err)
	}
	defer rows.Close()

	var items []*model.ReservationItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =====================================================
// UPDATE
// =====================================================

func (r *postgresReservationRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	const query = `
		UPDATE reservations
		SET status = $3,
			payment_status = $4,
			payment_method = $5,
			payment_reference = $6,
			cancel_reason = $7,
			paid_at = $8,
			cancelled_at = $9,
			completed_at = $10,
			updated_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	tag, err := tx.Exec(ctx, query,
		res.ID,
		res.Version,
		res.Status,
		res.PaymentStatus,
		res.PaymentMethod,
		res.PaymentReference,
		res.CancelReason,
		res.PaidAt,
		res.CancelledAt,
		res.CompletedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Warn("reservation version mismatch", map[string]interface{}{
			"reservation_id": res.ID,
			"version":        res.Version,
		})
		return model.ErrVersionMismatch
	}

	res.Version++
	return nil
}

// =====================================================
// LIST
// =====================================================

func (r *postgresReservationRepository) List(ctx context.Context, filter *model.ListReservationsFilter) ([]*model.Reservation, int, error) {
	var where utils.WhereBuilder
	if filter.VisitorID != nil {
		where.Add("visitor_id = ?", *filter.VisitorID)
	}
	if filter.Status != "" {
		where.Add("status = ?", filter.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM reservations ` + where.SQL()
	if err := r.pool.QueryRow(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	n := where.Next()
	query := fmt.Sprintf(`SELECT %s FROM reservations %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, reservationColumns, where.SQL(), n, n+1)

	args := append(where.Args(), filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// =====================================================
// SALE LIMITS & SWEEPS
// =====================================================

func (r *postgresReservationRepository) CountSoldWithTx(ctx context.Context, tx pgx.Tx, visitDate time.Time, ticketTypeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	const query = `
		SELECT ri.ticket_type_id, COALESCE(SUM(ri.quantity), 0)
		FROM reservation_items ri
		JOIN reservations r ON r.id = ri.reservation_id
		WHERE r.visit_date = $1
			AND r.status <> 'cancelled'
			AND ri.ticket_type_id = ANY($2)
		GROUP BY ri.ticket_type_id
	`

	rows, err := tx.Query(ctx, query, visitDate, ticketTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold tickets: %w", err)
	}
	defer rows.Close()

	sold := make(map[uuid.UUID]int, len(ticketTypeIDs))
	for rows.Next() {
		var id uuid.UUID
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan sold count: %w", err)
		}
		sold[id] = qty
	}
	return sold, rows.Err()
}

func (r *postgresReservationRepository) ListCompletable(ctx context.Context, today, now time.Time, limit int) ([]uuid.UUID, error) {
	const query = `
		SELECT r.id
		FROM reservations r
		WHERE r.status = 'confirmed'
			AND r.visit_date < $1
			AND NOT EXISTS (
				SELECT 1 FROM tickets t
				WHERE t.reservation_id = r.id
					AND t.status = 'valid'
					AND t.valid_to > $2
			)
		ORDER BY r.visit_date, r.id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, today, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completable reservations: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *postgresReservationRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	const query = `
		SELECT id
		FROM reservations
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at, id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending reservations: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
