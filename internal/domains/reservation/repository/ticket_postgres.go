package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/pkg/database"
)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

const ticketColumns = `
	id, serial_number, reservation_id, reservation_item_id, ticket_type_id,
	visitor_id, valid_from, valid_to, status, used_at, created_at, updated_at`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	t := &model.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.SerialNumber,
		&t.ReservationID,
		&t.ReservationItemID,
		&t.TicketTypeID,
		&t.VisitorID,
		&t.ValidFrom,
		&t.ValidTo,
		&t.Status,
		&t.UsedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// CreateTicketsWithTx inserts inside a savepoint so a serial collision can be
// retried by the caller without aborting the outer transaction.
func (r *postgresTicketRepository) CreateTicketsWithTx(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	const query = `
		INSERT INTO tickets (
			id, serial_number, reservation_id, reservation_item_id, ticket_type_id,
			visitor_id, valid_from, valid_to, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	defer savepoint.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(query,
			t.ID,
			t.SerialNumber,
			t.ReservationID,
			t.ReservationItemID,
			t.TicketTypeID,
			t.VisitorID,
			t.ValidFrom,
			t.ValidTo,
			t.Status,
			t.CreatedAt,
			t.UpdatedAt,
		)
	}

	results := savepoint.SendBatch(ctx, batch)
	for range tickets {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if database.IsUniqueViolation(err, "idx_tickets_serial_number") {
				return model.ErrDuplicateSerial
			}
			return fmt.Errorf("failed to create ticket: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to create tickets: %w", err)
	}

	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (r *postgresTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return r.getOne(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresTicketRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`
	return r.getOne(tx.QueryRow(ctx, query, id))
}

func (r *postgresTicketRepository) GetBySerialForUpdateWithTx(ctx context.Context, tx pgx.Tx, serial string) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE serial_number = $1 FOR UPDATE`
	return r.getOne(tx.QueryRow(ctx, query, serial))
}

func (r *postgresTicketRepository) getOne(row pgx.Row) (*model.Ticket, error) {
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (r *postgresTicketRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE reservation_id = $1 ORDER BY serial_number`
	return r.list(ctx, r.pool, query, reservationID)
}

func (r *postgresTicketRepository) ListByReservationForUpdateWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) ([]*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE reservation_id = $1 ORDER BY id FOR UPDATE`
	return r.list(ctx, tx, query, reservationID)
}

func (r *postgresTicketRepository) list(ctx context.Context, q querier, query string, args ...any) ([]*model.Ticket, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *postgresTicketRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, t *model.Ticket) error {
	const query = `
		UPDATE tickets
		SET status = $2, used_at = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, t.ID, t.Status, t.UsedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTicketNotFound
	}
	return nil
}
