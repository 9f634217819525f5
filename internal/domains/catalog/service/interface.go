package service

import (
	"context"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/catalog/model"
)

// Service manages ticket types, their base prices and price rules.
type Service interface {
	CreateTicketType(ctx context.Context, req model.CreateTicketTypeRequest) (*model.TicketType, error)
	GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context, activeOnly bool) ([]*model.TicketType, error)
	UpdateBasePrice(ctx context.Context, adminID, id uuid.UUID, req model.UpdateBasePriceRequest) (*model.TicketType, error)
	ListPriceHistory(ctx context.Context, id uuid.UUID) ([]*model.PriceHistory, error)

	CreatePriceRule(ctx context.Context, ticketTypeID uuid.UUID, req model.CreatePriceRuleRequest) (*model.PriceRule, error)
	ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error)
	UpdatePriceRule(ctx context.Context, id uuid.UUID, req model.UpdatePriceRuleRequest) (*model.PriceRule, error)
	DeletePriceRule(ctx context.Context, id uuid.UUID) error
}
