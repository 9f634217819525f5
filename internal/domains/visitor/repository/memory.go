package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/visitor/model"
)

// MemoryRepository holds visitors and their points in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	visitors map[uuid.UUID]model.VisitorContext
	balances map[uuid.UUID]int
	credited map[uuid.UUID]bool
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		visitors: make(map[uuid.UUID]model.VisitorContext),
		balances: make(map[uuid.UUID]int),
		credited: make(map[uuid.UUID]bool),
	}
}

func (r *MemoryRepository) Put(vc model.VisitorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visitors[vc.VisitorID] = vc
}

func (r *MemoryRepository) Balance(visitorID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[visitorID]
}

func (r *MemoryRepository) GetContext(ctx context.Context, visitorID uuid.UUID) (*model.VisitorContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc, ok := r.visitors[visitorID]
	if !ok {
		return nil, model.ErrVisitorNotFound
	}
	return &vc, nil
}

func (r *MemoryRepository) AddPoints(ctx context.Context, entry *model.PointsEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.credited[entry.ReservationID] {
		return false, nil
	}
	if _, ok := r.visitors[entry.VisitorID]; !ok {
		return false, model.ErrVisitorNotFound
	}
	r.credited[entry.ReservationID] = true
	r.balances[entry.VisitorID] += entry.Points
	return true, nil
}
