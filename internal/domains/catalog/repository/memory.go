package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/catalog/model"
)

// MemoryRepository keeps the catalog in process memory. The tx arguments are
// ignored; callers serialise through their transaction manager.
type MemoryRepository struct {
	mu          sync.RWMutex
	ticketTypes map[uuid.UUID]*model.TicketType
	rules       map[uuid.UUID]*model.PriceRule
	history     []*model.PriceHistory

	// Reads counts non-locking reads, so cache tests can see what reached
	// the store.
	Reads int
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		ticketTypes: make(map[uuid.UUID]*model.TicketType),
		rules:       make(map[uuid.UUID]*model.PriceRule),
	}
}

func (r *MemoryRepository) CreateTicketType(ctx context.Context, tt *model.TicketType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ticketTypes {
		if existing.Name == tt.Name {
			return model.ErrDuplicateName
		}
	}
	cp := *tt
	r.ticketTypes[tt.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads++

	tt, ok := r.ticketTypes[id]
	if !ok {
		return nil, model.ErrTicketTypeNotFound
	}
	cp := *tt
	return &cp, nil
}

func (r *MemoryRepository) GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads++

	return r.collect(ids), nil
}

func (r *MemoryRepository) collect(ids []uuid.UUID) map[uuid.UUID]*model.TicketType {
	result := make(map[uuid.UUID]*model.TicketType, len(ids))
	for _, id := range ids {
		if tt, ok := r.ticketTypes[id]; ok {
			cp := *tt
			result[id] = &cp
		}
	}
	return result
}

func (r *MemoryRepository) ListTicketTypes(ctx context.Context, activeOnly bool) ([]*model.TicketType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.TicketType
	for _, tt := range r.ticketTypes {
		if activeOnly && !tt.IsActive {
			continue
		}
		cp := *tt
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) LockTicketTypesWithTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(ids), nil
}

func (r *MemoryRepository) UpdateBasePriceWithTx(ctx context.Context, tx pgx.Tx, tt *model.TicketType, history *model.PriceHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ticketTypes[tt.ID]
	if !ok {
		return model.ErrTicketTypeNotFound
	}
	existing.BasePrice = tt.BasePrice
	existing.UpdatedAt = tt.UpdatedAt
	cp := *history
	r.history = append(r.history, &cp)
	return nil
}

func (r *MemoryRepository) ListPriceHistory(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.PriceHistory
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].TicketTypeID == ticketTypeID {
			cp := *r.history[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *MemoryRepository) CreatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ticketTypes[rule.TicketTypeID]; !ok {
		return model.ErrTicketTypeNotFound
	}
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetPriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, model.ErrPriceRuleNotFound
	}
	cp := *rule
	return &cp, nil
}

func (r *MemoryRepository) UpdatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rules[rule.ID]
	if !ok {
		return model.ErrPriceRuleNotFound
	}
	cp := *rule
	cp.TicketTypeID = current.TicketTypeID
	cp.CreatedAt = current.CreatedAt
	r.rules[rule.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeletePriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, model.ErrPriceRuleNotFound
	}
	delete(r.rules, id)
	return rule, nil
}

func (r *MemoryRepository) ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error) {
	return r.ListPriceRulesFor(ctx, []uuid.UUID{ticketTypeID})
}

func (r *MemoryRepository) ListPriceRulesFor(ctx context.Context, ticketTypeIDs []uuid.UUID) ([]*model.PriceRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads++

	wanted := make(map[uuid.UUID]bool, len(ticketTypeIDs))
	for _, id := range ticketTypeIDs {
		wanted[id] = true
	}

	var result []*model.PriceRule
	for _, rule := range r.rules {
		if wanted[rule.TicketTypeID] {
			cp := *rule
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Invalidate(ctx context.Context, ticketTypeID uuid.UUID) {}
