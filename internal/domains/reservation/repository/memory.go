package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/reservation/model"
)

// memoryStore backs both in-memory repositories so sweeps can see tickets.
// The tx arguments are ignored.
type memoryStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*model.Reservation
	tickets      map[uuid.UUID]*model.Ticket
}

type MemoryRepository struct {
	store *memoryStore
}

type MemoryTicketRepository struct {
	store *memoryStore

	// ForcedCollisions makes the next n CreateTicketsWithTx calls fail with
	// ErrDuplicateSerial.
	ForcedCollisions int
}

var (
	_ Repository       = (*MemoryRepository)(nil)
	_ TicketRepository = (*MemoryTicketRepository)(nil)
)

// NewMemoryRepositories returns reservation and ticket stores sharing state.
func NewMemoryRepositories() (*MemoryRepository, *MemoryTicketRepository) {
	store := &memoryStore{
		reservations: make(map[uuid.UUID]*model.Reservation),
		tickets:      make(map[uuid.UUID]*model.Ticket),
	}
	return &MemoryRepository{store: store}, &MemoryTicketRepository{store: store}
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	cp := *r
	cp.Items = make([]*model.ReservationItem, 0, len(r.Items))
	for _, item := range r.Items {
		it := *item
		cp.Items = append(cp.Items, &it)
	}
	return &cp
}

// =====================================================
// RESERVATIONS
// =====================================================

func (r *MemoryRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	res, ok := r.store.reservations[id]
	if !ok {
		return nil, model.ErrReservationNotFound
	}
	return cloneReservation(res), nil
}

func (r *MemoryRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.reservations[res.ID]
	if !ok {
		return model.ErrReservationNotFound
	}
	if stored.Version != res.Version {
		return model.ErrVersionMismatch
	}

	res.Version++
	r.store.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter *model.ListReservationsFilter) ([]*model.Reservation, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var matched []*model.Reservation
	for _, res := range r.store.reservations {
		if filter.VisitorID != nil && res.VisitorID != *filter.VisitorID {
			continue
		}
		if filter.Status != "" && string(res.Status) != filter.Status {
			continue
		}
		matched = append(matched, res)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*model.Reservation, 0, end-start)
	for _, res := range matched[start:end] {
		cp := cloneReservation(res)
		cp.Items = nil
		page = append(page, cp)
	}
	return page, total, nil
}

func (r *MemoryRepository) CountSoldWithTx(ctx context.Context, tx pgx.Tx, visitDate time.Time, ticketTypeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(ticketTypeIDs))
	for _, id := range ticketTypeIDs {
		wanted[id] = true
	}

	sold := make(map[uuid.UUID]int)
	for _, res := range r.store.reservations {
		if res.Status == model.StatusCancelled || !res.VisitDate.Equal(visitDate) {
			continue
		}
		for _, item := range res.Items {
			if wanted[item.TicketTypeID] {
				sold[item.TicketTypeID] += item.Quantity
			}
		}
	}
	return sold, nil
}

func (r *MemoryRepository) ListCompletable(ctx context.Context, today, now time.Time, limit int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	live := make(map[uuid.UUID]bool)
	for _, t := range r.store.tickets {
		if t.Status == model.TicketValid && t.ValidTo.After(now) {
			live[t.ReservationID] = true
		}
	}

	var ids []uuid.UUID
	for _, res := range r.store.reservations {
		if res.Status == model.StatusConfirmed && res.VisitDate.Before(today) && !live[res.ID] {
			ids = append(ids, res.ID)
		}
	}
	return limitIDs(ids, limit), nil
}

func (r *MemoryRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var ids []uuid.UUID
	for _, res := range r.store.reservations {
		if res.Status == model.StatusPending && res.CreatedAt.Before(cutoff) {
			ids = append(ids, res.ID)
		}
	}
	return limitIDs(ids, limit), nil
}

func limitIDs(ids []uuid.UUID, limit int) []uuid.UUID {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// =====================================================
// TICKETS
// =====================================================

func (r *MemoryTicketRepository) CreateTicketsWithTx(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.ForcedCollisions > 0 {
		r.ForcedCollisions--
		return model.ErrDuplicateSerial
	}

	serials := make(map[string]bool, len(r.store.tickets))
	for _, t := range r.store.tickets {
		serials[t.SerialNumber] = true
	}
	for _, t := range tickets {
		if serials[t.SerialNumber] {
			return model.ErrDuplicateSerial
		}
		serials[t.SerialNumber] = true
	}

	for _, t := range tickets {
		cp := *t
		r.store.tickets[t.ID] = &cp
	}
	return nil
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.tickets[id]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTicketRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryTicketRepository) GetBySerialForUpdateWithTx(ctx context.Context, tx pgx.Tx, serial string) (*model.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.tickets {
		if t.SerialNumber == serial {
			cp := *t
			return &cp, nil
		}
	}
	return nil, model.ErrTicketNotFound
}

func (r *MemoryTicketRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var tickets []*model.Ticket
	for _, t := range r.store.tickets {
		if t.ReservationID == reservationID {
			cp := *t
			tickets = append(tickets, &cp)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].SerialNumber < tickets[j].SerialNumber })
	return tickets, nil
}

func (r *MemoryTicketRepository) ListByReservationForUpdateWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) ([]*model.Ticket, error) {
	return r.ListByReservation(ctx, reservationID)
}

func (r *MemoryTicketRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, t *model.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.tickets[t.ID]
	if !ok {
		return model.ErrTicketNotFound
	}
	stored.Status = t.Status
	stored.UsedAt = t.UsedAt
	stored.UpdatedAt = t.UpdatedAt
	return nil
}
