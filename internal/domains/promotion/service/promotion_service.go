package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/domains/promotion/repository"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/pkg/logger"
)

// TicketTypeReader resolves ticket types referenced by a promotion.
type TicketTypeReader interface {
	GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.TicketType, error)
}

type promotionService struct {
	repo        repository.Repository
	ticketTypes TicketTypeReader
	now         func() time.Time
}

func NewPromotionService(repo repository.Repository, ticketTypes TicketTypeReader) ServiceInterface {
	return &promotionService{
		repo:        repo,
		ticketTypes: ticketTypes,
		now:         time.Now,
	}
}

// -------------------------------------------------------------------
// PUBLIC
// -------------------------------------------------------------------

func (s *promotionService) ListActivePromotions(ctx context.Context, day time.Time) ([]*model.Promotion, error) {
	promotions, err := s.repo.ListActive(ctx, day)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return promotions, nil
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// CreatePromotion stores a new promotion.
//
// Business Logic:
// 1. Decode conditions and actions into their typed form
// 2. Check every referenced ticket type exists
// 3. Insert (code is unique)
func (s *promotionService) CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	req.NormalizeCode()

	conditions, err := model.DecodeConditions(req.Conditions)
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidRule, err.Error(), err)
	}
	actions, err := model.DecodeActions(req.Actions)
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidRule, err.Error(), err)
	}

	if err := s.checkTicketTypes(ctx, req.ApplicableTicketTypeIDs, conditions, actions); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	promo := &model.Promotion{
		ID:                      uuid.New(),
		Code:                    req.Code,
		Name:                    req.Name,
		Description:             req.Description,
		Type:                    req.Type,
		StartsAt:                req.StartsAt.UTC(),
		EndsAt:                  req.EndsAt.UTC(),
		UsageLimitPerUser:       req.UsageLimitPerUser,
		TotalUsageLimit:         req.TotalUsageLimit,
		IsCombinable:            req.IsCombinable,
		DisplayPriority:         req.DisplayPriority,
		IsActive:                true,
		ApplicableTicketTypeIDs: req.ApplicableTicketTypeIDs,
		Conditions:              conditions,
		Actions:                 actions,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if promo.ApplicableTicketTypeIDs == nil {
		promo.ApplicableTicketTypeIDs = []uuid.UUID{}
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		if errors.Is(err, model.ErrDuplicateCode) {
			return nil, apperror.Conflict(model.ErrCodeDuplicateCode, "promotion code already exists", err)
		}
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	logger.Info("promotion created", map[string]interface{}{
		"promotion_id": promo.ID,
		"code":         promo.Code,
		"conditions":   len(conditions),
		"actions":      len(actions),
	})
	return promo, nil
}

func (s *promotionService) checkTicketTypes(ctx context.Context, applicable []uuid.UUID, conditions []model.Condition, actions []model.Action) error {
	ids := append([]uuid.UUID(nil), applicable...)
	for _, c := range conditions {
		switch c := c.(type) {
		case model.MinQuantity:
			if c.TicketTypeID != nil {
				ids = append(ids, *c.TicketTypeID)
			}
		case model.MinAmount:
			if c.TicketTypeID != nil {
				ids = append(ids, *c.TicketTypeID)
			}
		case model.TicketType:
			ids = append(ids, c.TicketTypeID)
		}
	}
	for _, a := range actions {
		switch a := a.(type) {
		case model.PercentageDiscount:
			if a.TargetTicketTypeID != nil {
				ids = append(ids, *a.TargetTicketTypeID)
			}
		case model.FixedAmountDiscount:
			if a.TargetTicketTypeID != nil {
				ids = append(ids, *a.TargetTicketTypeID)
			}
		case model.FixedPrice:
			if a.TargetTicketTypeID != nil {
				ids = append(ids, *a.TargetTicketTypeID)
			}
		case model.FreeTicket:
			ids = append(ids, a.TicketTypeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := s.ticketTypes.GetTicketTypes(ctx, ids)
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return apperror.Validation(model.ErrCodeInvalidRule, "unknown ticket type "+id.String(), catalog.ErrTicketTypeNotFound)
		}
	}
	return nil
}

func (s *promotionService) GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	return promo, nil
}

func (s *promotionService) ListPromotions(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error) {
	promotions, total, err := s.repo.ListAdmin(ctx, filter, s.now().UTC())
	if err != nil {
		return nil, 0, apperror.Internal(model.ErrCodeInternal, err)
	}
	return promotions, total, nil
}

func (s *promotionService) UpdatePromotionStatus(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionStatusRequest) (*model.Promotion, error) {
	promo, err := s.repo.UpdateStatus(ctx, id, req.IsActive, req.Version)
	if err != nil {
		return nil, translateError(err)
	}

	logger.Info("promotion status updated", map[string]interface{}{
		"promotion_id": id,
		"is_active":    promo.IsActive,
		"version":      promo.Version,
	})
	return promo, nil
}

// UpdatePromotion edits the top-level fields.
//
// Business Logic:
// 1. Load the promotion and overlay the non-nil request fields
// 2. Re-check the window and the applicable ticket types
// 3. Write under the version guard
func (s *promotionService) UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error) {
	return s.edit(ctx, id, req.Version, "promotion updated", func(p *model.Promotion) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = req.Description
		}
		if req.Type != nil {
			p.Type = *req.Type
		}
		if req.StartsAt != nil {
			p.StartsAt = req.StartsAt.UTC()
		}
		if req.EndsAt != nil {
			p.EndsAt = req.EndsAt.UTC()
		}
		if req.UsageLimitPerUser != nil {
			p.UsageLimitPerUser = req.UsageLimitPerUser
		}
		if req.TotalUsageLimit != nil {
			p.TotalUsageLimit = req.TotalUsageLimit
		}
		if req.IsCombinable != nil {
			p.IsCombinable = *req.IsCombinable
		}
		if req.DisplayPriority != nil {
			p.DisplayPriority = *req.DisplayPriority
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		if req.ApplicableTicketTypeIDs != nil {
			p.ApplicableTicketTypeIDs = append([]uuid.UUID{}, (*req.ApplicableTicketTypeIDs)...)
		}

		if !p.EndsAt.After(p.StartsAt) {
			return apperror.Validation(model.ErrCodeInvalidRule, "ends_at must be after starts_at", nil)
		}
		return nil
	})
}

// DeletePromotion removes a promotion nobody redeemed. Redeemed ones can
// only be deactivated.
func (s *promotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateError(err)
	}

	logger.Info("promotion deleted", map[string]interface{}{
		"promotion_id": id,
	})
	return nil
}

// -------------------------------------------------------------------
// RULE EDITING
// -------------------------------------------------------------------

func (s *promotionService) AddCondition(ctx context.Context, id uuid.UUID, req *model.RuleRequest) (*model.Promotion, error) {
	return s.edit(ctx, id, req.Version, "promotion condition added", func(p *model.Promotion) error {
		c, err := decodeOneCondition(req.Rule)
		if err != nil {
			return err
		}
		p.Conditions = append(p.Conditions, c)
		return nil
	})
}

func (s *promotionService) UpdateCondition(ctx context.Context, id uuid.UUID, index int, req *model.RuleRequest) (*model.Promotion, error) {
	return s.edit(ctx, id, req.Version, "promotion condition updated", func(p *model.Promotion) error {
		if index < 0 || index >= len(p.Conditions) {
			return ruleNotFound(index)
		}
		c, err := decodeOneCondition(req.Rule)
		if err != nil {
			return err
		}
		p.Conditions[index] = c
		return nil
	})
}

func (s *promotionService) RemoveCondition(ctx context.Context, id uuid.UUID, index, version int) (*model.Promotion, error) {
	return s.edit(ctx, id, version, "promotion condition removed", func(p *model.Promotion) error {
		if index < 0 || index >= len(p.Conditions) {
			return ruleNotFound(index)
		}
		p.Conditions = append(p.Conditions[:index], p.Conditions[index+1:]...)
		return nil
	})
}

func (s *promotionService) AddAction(ctx context.Context, id uuid.UUID, req *model.RuleRequest) (*model.Promotion, error) {
	return s.edit(ctx, id, req.Version, "promotion action added", func(p *model.Promotion) error {
		a, err := decodeOneAction(req.Rule)
		if err != nil {
			return err
		}
		p.Actions = append(p.Actions, a)
		return nil
	})
}

func (s *promotionService) UpdateAction(ctx context.Context, id uuid.UUID, index int, req *model.RuleRequest) (*model.Promotion, error) {
	return s.edit(ctx, id, req.Version, "promotion action updated", func(p *model.Promotion) error {
		if index < 0 || index >= len(p.Actions) {
			return ruleNotFound(index)
		}
		a, err := decodeOneAction(req.Rule)
		if err != nil {
			return err
		}
		p.Actions[index] = a
		return nil
	})
}

// RemoveAction refuses to drop the last action.
func (s *promotionService) RemoveAction(ctx context.Context, id uuid.UUID, index, version int) (*model.Promotion, error) {
	return s.edit(ctx, id, version, "promotion action removed", func(p *model.Promotion) error {
		if index < 0 || index >= len(p.Actions) {
			return ruleNotFound(index)
		}
		if len(p.Actions) == 1 {
			return apperror.Validation(model.ErrCodeInvalidRule, "a promotion needs at least one action", nil)
		}
		p.Actions = append(p.Actions[:index], p.Actions[index+1:]...)
		return nil
	})
}

// edit loads a promotion, applies change, re-checks ticket type references
// and stores the result under the caller's version.
func (s *promotionService) edit(ctx context.Context, id uuid.UUID, version int, event string, change func(p *model.Promotion) error) (*model.Promotion, error) {
	// Step 1: Load current state
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	if promo.Version != version {
		return nil, translateError(model.ErrVersionMismatch)
	}

	// Step 2: Apply and validate
	if err := change(promo); err != nil {
		return nil, err
	}
	if err := s.checkTicketTypes(ctx, promo.ApplicableTicketTypeIDs, promo.Conditions, promo.Actions); err != nil {
		return nil, err
	}

	// Step 3: Conditional write
	updated, err := s.repo.Update(ctx, promo, version)
	if err != nil {
		return nil, translateError(err)
	}

	logger.Info(event, map[string]interface{}{
		"promotion_id": id,
		"version":      updated.Version,
	})
	return updated, nil
}

func decodeOneCondition(spec model.RuleSpec) (model.Condition, error) {
	conditions, err := model.DecodeConditions([]model.RuleSpec{spec})
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidRule, err.Error(), err)
	}
	return conditions[0], nil
}

func decodeOneAction(spec model.RuleSpec) (model.Action, error) {
	actions, err := model.DecodeActions([]model.RuleSpec{spec})
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidRule, err.Error(), err)
	}
	return actions[0], nil
}

func ruleNotFound(index int) error {
	return apperror.NotFound(model.ErrCodeRuleNotFound, fmt.Sprintf("no rule at index %d", index), model.ErrRuleNotFound)
}

func translateError(err error) error {
	switch {
	case errors.Is(err, model.ErrPromotionNotFound):
		return apperror.NotFound(model.ErrCodePromotionNotFound, "promotion not found", err)
	case errors.Is(err, model.ErrVersionMismatch):
		return apperror.Conflict(model.ErrCodeVersionMismatch, "promotion was modified concurrently", err)
	case errors.Is(err, model.ErrPromotionInUse):
		return apperror.Conflict(model.ErrCodePromotionInUse, "promotion has redemptions, deactivate it instead", err)
	default:
		return apperror.Internal(model.ErrCodeInternal, err)
	}
}
