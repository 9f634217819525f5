package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/reservation/model"
)

// Repository stores reservations and their items.
type Repository interface {
	// CreateWithTx inserts the reservation and its items.
	CreateWithTx(ctx context.Context, tx pgx.Tx, r *model.Reservation) error
	// GetByID loads the reservation with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// GetForUpdateWithTx locks the reservation row and loads its items.
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error)
	// UpdateWithTx writes status and payment fields, checking r.Version and
	// bumping it on success.
	UpdateWithTx(ctx context.Context, tx pgx.Tx, r *model.Reservation) error
	List(ctx context.Context, filter *model.ListReservationsFilter) ([]*model.Reservation, int, error)

	// CountSoldWithTx sums quantities per ticket type over non-cancelled
	// reservations of the visit date.
	CountSoldWithTx(ctx context.Context, tx pgx.Tx, visitDate time.Time, ticketTypeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// ListCompletable returns confirmed reservations visited before today
	// that hold no valid ticket still inside its window at now.
	ListCompletable(ctx context.Context, today, now time.Time, limit int) ([]uuid.UUID, error)
	// ListExpiredPending returns pending reservations created before cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// TicketRepository stores issued tickets.
type TicketRepository interface {
	// CreateTicketsWithTx inserts tickets. A serial collision returns
	// model.ErrDuplicateSerial and leaves the transaction usable.
	CreateTicketsWithTx(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error)
	GetBySerialForUpdateWithTx(ctx context.Context, tx pgx.Tx, serial string) (*model.Ticket, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Ticket, error)
	ListByReservationForUpdateWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) ([]*model.Ticket, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, t *model.Ticket) error
}
