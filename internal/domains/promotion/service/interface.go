package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/promotion/model"
)

// ServiceInterface is the promotion admin and catalogue API. Pricing uses
// EvaluateEligibility and ApplyPromotions directly.
type ServiceInterface interface {
	ListActivePromotions(ctx context.Context, day time.Time) ([]*model.Promotion, error)

	// Admin methods
	CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error)
	GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ListPromotions(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error)
	UpdatePromotionStatus(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionStatusRequest) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error

	// Rule editing. index is the zero-based position in the list.
	AddCondition(ctx context.Context, id uuid.UUID, req *model.RuleRequest) (*model.Promotion, error)
	UpdateCondition(ctx context.Context, id uuid.UUID, index int, req *model.RuleRequest) (*model.Promotion, error)
	RemoveCondition(ctx context.Context, id uuid.UUID, index, version int) (*model.Promotion, error)
	AddAction(ctx context.Context, id uuid.UUID, req *model.RuleRequest) (*model.Promotion, error)
	UpdateAction(ctx context.Context, id uuid.UUID, index int, req *model.RuleRequest) (*model.Promotion, error)
	RemoveAction(ctx context.Context, id uuid.UUID, index, version int) (*model.Promotion, error)
}
