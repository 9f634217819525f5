package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/promotion/model"
)

// MemoryRepository keeps promotions and their usage rows in process memory.
// The tx arguments are ignored.
type MemoryRepository struct {
	mu         sync.Mutex
	promotions map[uuid.UUID]*model.Promotion
	usages     []*model.PromotionUsage
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{promotions: make(map[uuid.UUID]*model.Promotion)}
}

func clonePromotion(p *model.Promotion) *model.Promotion {
	cp := *p
	cp.ApplicableTicketTypeIDs = append([]uuid.UUID(nil), p.ApplicableTicketTypeIDs...)
	cp.Conditions = append([]model.Condition(nil), p.Conditions...)
	cp.Actions = append([]model.Action(nil), p.Actions...)
	return &cp
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promotions[id]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	return clonePromotion(p), nil
}

func (r *MemoryRepository) ListActive(ctx context.Context, day time.Time) ([]*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.Promotion
	for _, p := range r.promotions {
		if p.IsActive && p.InWindow(day) {
			result = append(result, clonePromotion(p))
		}
	}
	sortPromotions(result)
	return result, nil
}

func (r *MemoryRepository) ListAdmin(ctx context.Context, filter *model.ListPromotionsFilter, now time.Time) ([]*model.Promotion, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Promotion
	for _, p := range r.promotions {
		switch filter.Status {
		case "active":
			if !p.IsActive || now.Before(p.StartsAt) || !now.Before(p.EndsAt) {
				continue
			}
		case "upcoming":
			if !p.StartsAt.After(now) {
				continue
			}
		case "expired":
			if p.EndsAt.After(now) {
				continue
			}
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Code), q) && !strings.Contains(strings.ToLower(p.Name), q) {
				continue
			}
		}
		matched = append(matched, clonePromotion(p))
	}
	sortPromotions(matched)

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func sortPromotions(promotions []*model.Promotion) {
	sort.Slice(promotions, func(i, j int) bool {
		if promotions[i].DisplayPriority != promotions[j].DisplayPriority {
			return promotions[i].DisplayPriority < promotions[j].DisplayPriority
		}
		return promotions[i].ID.String() < promotions[j].ID.String()
	})
}

func (r *MemoryRepository) GetUserUsageCounts(ctx context.Context, visitorID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[uuid.UUID]int, len(promotionIDs))
	for _, id := range promotionIDs {
		counts[id] = r.countLocked(id, visitorID)
	}
	return counts, nil
}

func (r *MemoryRepository) countLocked(promotionID, visitorID uuid.UUID) int {
	n := 0
	for _, u := range r.usages {
		if u.PromotionID == promotionID && u.VisitorID == visitorID && !u.Released {
			n++
		}
	}
	return n
}

func (r *MemoryRepository) Create(ctx context.Context, promo *model.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.promotions {
		if p.Code == promo.Code {
			return model.ErrDuplicateCode
		}
	}
	r.promotions[promo.ID] = clonePromotion(promo)
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool, version int) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promotions[id]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	if p.Version != version {
		return nil, model.ErrVersionMismatch
	}
	p.IsActive = isActive
	p.Version++
	return clonePromotion(p), nil
}

func (r *MemoryRepository) Update(ctx context.Context, promo *model.Promotion, version int) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promotions[promo.ID]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	if p.Version != version {
		return nil, model.ErrVersionMismatch
	}

	next := clonePromotion(promo)
	next.Code = p.Code
	next.CurrentUsageCount = p.CurrentUsageCount
	next.CreatedAt = p.CreatedAt
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now().UTC()
	r.promotions[promo.ID] = next
	return clonePromotion(next), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.promotions[id]; !ok {
		return model.ErrPromotionNotFound
	}
	for _, u := range r.usages {
		if u.PromotionID == id {
			return model.ErrPromotionInUse
		}
	}
	delete(r.promotions, id)
	return nil
}

func (r *MemoryRepository) IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promotions[promotionID]
	if !ok || p.GlobalLimitReached() {
		return model.ErrUsageLimitReached
	}
	p.CurrentUsageCount++
	return nil
}

func (r *MemoryRepository) GetUserUsageCountWithTx(ctx context.Context, tx pgx.Tx, promotionID, visitorID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(promotionID, visitorID), nil
}

func (r *MemoryRepository) CreateUsagesWithTx(ctx context.Context, tx pgx.Tx, usages []*model.PromotionUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range usages {
		cp := *u
		r.usages = append(r.usages, &cp)
	}
	return nil
}

func (r *MemoryRepository) ReleaseUsagesWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, u := range r.usages {
		if u.ReservationID != reservationID || u.Released {
			continue
		}
		u.Released = true
		if p, ok := r.promotions[u.PromotionID]; ok && p.CurrentUsageCount > 0 {
			p.CurrentUsageCount--
		}
		released++
	}
	return released, nil
}

// Usages returns a copy of every usage row.
func (r *MemoryRepository) Usages() []model.PromotionUsage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.PromotionUsage, 0, len(r.usages))
	for _, u := range r.usages {
		out = append(out, *u)
	}
	return out
}
