package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/payment/model"
)

// MemoryRepository keeps refund records in process. The tx arguments are
// ignored; the one-active-refund-per-ticket rule is enforced under the mutex.
type MemoryRepository struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*model.RefundRecord
}

var _ RefundRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{refunds: make(map[uuid.UUID]*model.RefundRecord)}
}

func (r *MemoryRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.refunds {
		if existing.TicketID == refund.TicketID && existing.IsActive() {
			return model.ErrRefundExists
		}
	}
	cp := *refund
	r.refunds[refund.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RefundRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) GetActiveByTicketWithTx(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, refund := range r.refunds {
		if refund.TicketID == ticketID && refund.IsActive() {
			cp := *refund
			return &cp, nil
		}
	}
	return nil, model.ErrRefundNotFound
}

func (r *MemoryRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.refunds[refund.ID]; !ok {
		return model.ErrRefundNotFound
	}
	cp := *refund
	r.refunds[refund.ID] = &cp
	return nil
}

func (r *MemoryRepository) CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, refund := range r.refunds {
		if refund.ReservationID == reservationID && refund.Status == model.RefundCompleted {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refund, ok := r.refunds[id]
	if !ok {
		return nil, model.ErrRefundNotFound
	}
	cp := *refund
	return &cp, nil
}

func (r *MemoryRepository) ListPending(ctx context.Context, limit, offset int) ([]*model.RefundRecord, int, error) {
	return r.list(func(refund *model.RefundRecord) bool { return refund.IsPending() }, false, limit, offset)
}

func (r *MemoryRepository) ListByVisitor(ctx context.Context, visitorID uuid.UUID, limit, offset int) ([]*model.RefundRecord, int, error) {
	return r.list(func(refund *model.RefundRecord) bool { return refund.VisitorID == visitorID }, true, limit, offset)
}

func (r *MemoryRepository) list(match func(*model.RefundRecord) bool, newestFirst bool, limit, offset int) ([]*model.RefundRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.RefundRecord
	for _, refund := range r.refunds {
		if match(refund) {
			cp := *refund
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if newestFirst {
			return matched[i].RequestedAt.After(matched[j].RequestedAt)
		}
		return matched[i].RequestedAt.Before(matched[j].RequestedAt)
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
