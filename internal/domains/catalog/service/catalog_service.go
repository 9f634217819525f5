package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/catalog/repository"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/logger"
)

type catalogService struct {
	repo repository.Repository
	tx   database.TxManager
	now  func() time.Time
}

func NewCatalogService(repo repository.Repository, tx database.TxManager) Service {
	return &catalogService{repo: repo, tx: tx, now: time.Now}
}

// =====================================================
// TICKET TYPES
// =====================================================

func (s *catalogService) CreateTicketType(ctx context.Context, req model.CreateTicketTypeRequest) (*model.TicketType, error) {
	now := s.now().UTC()
	tt := &model.TicketType{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		BasePrice:       req.BasePrice.Round(2),
		MaxSaleLimit:    req.MaxSaleLimit,
		ApplicableCrowd: req.ApplicableCrowd,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateTicketType(ctx, tt); err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			return nil, apperror.Conflict(model.ErrCodeDuplicateName, "ticket type name already exists", err)
		}
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	logger.Info("ticket type created", map[string]interface{}{
		"ticket_type_id": tt.ID,
		"base_price":     tt.BasePrice.String(),
	})
	return tt, nil
}

func (s *catalogService) GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error) {
	tt, err := s.repo.GetTicketType(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	return tt, nil
}

func (s *catalogService) ListTicketTypes(ctx context.Context, activeOnly bool) ([]*model.TicketType, error) {
	types, err := s.repo.ListTicketTypes(ctx, activeOnly)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return types, nil
}

// UpdateBasePrice changes a ticket type's base price.
//
// Business Logic:
// 1. Lock the ticket type row
// 2. Skip when the price is unchanged (no history entry)
// 3. Write the new price and a price history entry in the same transaction
// 4. Invalidate cached catalog reads after commit
//
// Existing reservation items keep their frozen unit prices.
func (s *catalogService) UpdateBasePrice(ctx context.Context, adminID, id uuid.UUID, req model.UpdateBasePriceRequest) (*model.TicketType, error) {
	newPrice := req.BasePrice.Round(2)
	changed := false

	tt, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.TicketType, error) {
		locked, err := s.repo.LockTicketTypesWithTx(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		tt, ok := locked[id]
		if !ok {
			return nil, model.ErrTicketTypeNotFound
		}

		if tt.BasePrice.Equal(newPrice) {
			return tt, nil
		}

		now := s.now().UTC()
		history := &model.PriceHistory{
			ID:           uuid.New(),
			TicketTypeID: tt.ID,
			OldPrice:     tt.BasePrice,
			NewPrice:     newPrice,
			ChangedBy:    adminID,
			Reason:       req.Reason,
			ChangedAt:    now,
		}

		tt.BasePrice = newPrice
		tt.UpdatedAt = now
		if err := s.repo.UpdateBasePriceWithTx(ctx, tx, tt, history); err != nil {
			return nil, err
		}
		changed = true
		return tt, nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	if changed {
		s.repo.Invalidate(ctx, id)
		logger.Info("base price updated", map[string]interface{}{
			"ticket_type_id": id,
			"new_price":      newPrice.String(),
			"changed_by":     adminID,
		})
	}
	return tt, nil
}

func (s *catalogService) ListPriceHistory(ctx context.Context, id uuid.UUID) ([]*model.PriceHistory, error) {
	if _, err := s.repo.GetTicketType(ctx, id); err != nil {
		return nil, translateError(err)
	}

	history, err := s.repo.ListPriceHistory(ctx, id)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return history, nil
}

// =====================================================
// PRICE RULES
// =====================================================

func (s *catalogService) CreatePriceRule(ctx context.Context, ticketTypeID uuid.UUID, req model.CreatePriceRuleRequest) (*model.PriceRule, error) {
	if _, err := s.repo.GetTicketType(ctx, ticketTypeID); err != nil {
		return nil, translateError(err)
	}

	rule := &model.PriceRule{
		ID:             uuid.New(),
		TicketTypeID:   ticketTypeID,
		Name:           req.Name,
		Priority:       req.Priority,
		EffectiveStart: req.EffectiveStart.UTC(),
		EffectiveEnd:   req.EffectiveEnd.UTC(),
		MinQuantity:    req.MinQuantity,
		MaxQuantity:    req.MaxQuantity,
		Price:          req.Price.Round(2),
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.CreatePriceRule(ctx, rule); err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return rule, nil
}

func (s *catalogService) ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error) {
	if _, err := s.repo.GetTicketType(ctx, ticketTypeID); err != nil {
		return nil, translateError(err)
	}

	rules, err := s.repo.ListPriceRules(ctx, ticketTypeID)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return rules, nil
}

// UpdatePriceRule edits a rule in place. The cached repository drops the
// ticket type's rule list on success.
func (s *catalogService) UpdatePriceRule(ctx context.Context, id uuid.UUID, req model.UpdatePriceRuleRequest) (*model.PriceRule, error) {
	rule, err := s.repo.GetPriceRule(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	if err := req.Apply(rule); err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidPriceRule, err.Error(), err)
	}

	if err := s.repo.UpdatePriceRule(ctx, rule); err != nil {
		return nil, translateError(err)
	}
	return rule, nil
}

func (s *catalogService) DeletePriceRule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.DeletePriceRule(ctx, id); err != nil {
		return translateError(err)
	}
	return nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, model.ErrTicketTypeNotFound):
		return apperror.NotFound(model.ErrCodeTicketTypeNotFound, "ticket type not found", err)
	case errors.Is(err, model.ErrPriceRuleNotFound):
		return apperror.NotFound(model.ErrCodePriceRuleNotFound, "price rule not found", err)
	default:
		return apperror.Internal(model.ErrCodeInternal, err)
	}
}
