package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/pkg/cache"
	"themepark-backend/pkg/logger"
)

// cachedRepository is a read-through cache in front of the catalog store.
// Ticket types and their price rules are read on every price calculation and
// change rarely. Locking reads always go to the database.
type cachedRepository struct {
	Repository
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedRepository(inner Repository, c cache.Cache, ttl time.Duration) Repository {
	return &cachedRepository{Repository: inner, cache: c, ttl: ttl}
}

func ticketTypeKey(id uuid.UUID) string {
	return fmt.Sprintf("catalog:ticket_type:%s", id)
}

func priceRulesKey(ticketTypeID uuid.UUID) string {
	return fmt.Sprintf("catalog:price_rules:%s", ticketTypeID)
}

func (r *cachedRepository) get(ctx context.Context, key string, dest interface{}) bool {
	found, err := r.cache.Get(ctx, key, dest)
	if err != nil {
		logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return found
}

func (r *cachedRepository) set(ctx context.Context, key string, value interface{}) {
	if err := r.cache.Set(ctx, key, value, r.ttl); err != nil {
		logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (r *cachedRepository) GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error) {
	var cached model.TicketType
	if r.get(ctx, ticketTypeKey(id), &cached) {
		return &cached, nil
	}

	tt, err := r.Repository.GetTicketType(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, ticketTypeKey(id), tt)
	return tt, nil
}

func (r *cachedRepository) GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error) {
	result := make(map[uuid.UUID]*model.TicketType, len(ids))
	var misses []uuid.UUID

	for _, id := range ids {
		var cached model.TicketType
		if r.get(ctx, ticketTypeKey(id), &cached) {
			result[id] = &cached
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := r.Repository.GetTicketTypes(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, tt := range loaded {
		result[id] = tt
		r.set(ctx, ticketTypeKey(id), tt)
	}
	return result, nil
}

func (r *cachedRepository) ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error) {
	return r.ListPriceRulesFor(ctx, []uuid.UUID{ticketTypeID})
}

func (r *cachedRepository) ListPriceRulesFor(ctx context.Context, ticketTypeIDs []uuid.UUID) ([]*model.PriceRule, error) {
	var result []*model.PriceRule
	var misses []uuid.UUID

	for _, id := range ticketTypeIDs {
		var cached []*model.PriceRule
		if r.get(ctx, priceRulesKey(id), &cached) {
			result = append(result, cached...)
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := r.Repository.ListPriceRulesFor(ctx, misses)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]*model.PriceRule, len(misses))
	for _, id := range misses {
		grouped[id] = []*model.PriceRule{}
	}
	for _, rule := range loaded {
		grouped[rule.TicketTypeID] = append(grouped[rule.TicketTypeID], rule)
	}
	for id, rules := range grouped {
		r.set(ctx, priceRulesKey(id), rules)
	}

	return append(result, loaded...), nil
}

func (r *cachedRepository) CreatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	if err := r.Repository.CreatePriceRule(ctx, rule); err != nil {
		return err
	}
	r.Invalidate(ctx, rule.TicketTypeID)
	return nil
}

func (r *cachedRepository) UpdatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	if err := r.Repository.UpdatePriceRule(ctx, rule); err != nil {
		return err
	}
	r.Invalidate(ctx, rule.TicketTypeID)
	return nil
}

func (r *cachedRepository) DeletePriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error) {
	rule, err := r.Repository.DeletePriceRule(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Invalidate(ctx, rule.TicketTypeID)
	return rule, nil
}

func (r *cachedRepository) Invalidate(ctx context.Context, ticketTypeID uuid.UUID) {
	if err := r.cache.Delete(ctx, ticketTypeKey(ticketTypeID), priceRulesKey(ticketTypeID)); err != nil {
		logger.Warn("catalog cache invalidation failed", map[string]interface{}{
			"ticket_type_id": ticketTypeID,
			"error":          err.Error(),
		})
	}
}
