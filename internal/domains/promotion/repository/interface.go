package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/promotion/model"
)

// Repository is the promotion store and its usage ledger.
type Repository interface {
	// Read operations
	GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	// ListActive returns active promotions whose window overlaps the day.
	ListActive(ctx context.Context, day time.Time) ([]*model.Promotion, error)
	ListAdmin(ctx context.Context, filter *model.ListPromotionsFilter, now time.Time) ([]*model.Promotion, int, error)
	// GetUserUsageCounts counts unreleased redemptions per promotion.
	GetUserUsageCounts(ctx context.Context, visitorID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// Write operations
	Create(ctx context.Context, promo *model.Promotion) error
	// UpdateStatus applies optimistic locking on version.
	UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool, version int) (*model.Promotion, error)
	// Update rewrites every editable field, conditions and actions included,
	// when the stored version equals version.
	Update(ctx context.Context, promo *model.Promotion, version int) (*model.Promotion, error)
	// Delete removes a promotion that was never redeemed (ErrPromotionInUse).
	Delete(ctx context.Context, id uuid.UUID) error

	// Usage tracking, inside the reservation transaction
	// IncrementUsageWithTx bumps current_usage_count unless the total limit
	// is reached (ErrUsageLimitReached). The row stays locked until commit.
	IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID) error
	GetUserUsageCountWithTx(ctx context.Context, tx pgx.Tx, promotionID, visitorID uuid.UUID) (int, error)
	CreateUsagesWithTx(ctx context.Context, tx pgx.Tx, usages []*model.PromotionUsage) error
	// ReleaseUsagesWithTx marks a reservation's redemptions released and
	// gives the global capacity back. Returns the number released.
	ReleaseUsagesWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error)
}
