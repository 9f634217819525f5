package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"themepark-backend/internal/domains/catalog/model"
)

// Repository is the catalog store: ticket types, price rules and price history.
type Repository interface {
	// Ticket types
	CreateTicketType(ctx context.Context, tt *model.TicketType) error
	GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error)
	// GetTicketTypes returns the ticket types found; missing ids are absent
	// from the map.
	GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error)
	ListTicketTypes(ctx context.Context, activeOnly bool) ([]*model.TicketType, error)

	// LockTicketTypesWithTx takes FOR UPDATE locks in id order so concurrent
	// reservations on the same ticket types serialise on sale limits.
	LockTicketTypesWithTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error)
	UpdateBasePriceWithTx(ctx context.Context, tx pgx.Tx, tt *model.TicketType, history *model.PriceHistory) error
	ListPriceHistory(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceHistory, error)

	// Price rules
	CreatePriceRule(ctx context.Context, rule *model.PriceRule) error
	GetPriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error)
	UpdatePriceRule(ctx context.Context, rule *model.PriceRule) error
	DeletePriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error)
	ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error)
	// ListPriceRulesFor returns every rule of the given ticket types.
	ListPriceRulesFor(ctx context.Context, ticketTypeIDs []uuid.UUID) ([]*model.PriceRule, error)

	// Invalidate drops any cached copy of the ticket type and its rules.
	// Called after the writing transaction commits.
	Invalidate(ctx context.Context, ticketTypeID uuid.UUID)
}
