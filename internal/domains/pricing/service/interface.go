package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	visitor "themepark-backend/internal/domains/visitor/model"
)

// Service prices carts and quotes single ticket types.
type Service interface {
	CalculatePrice(ctx context.Context, visitorID uuid.UUID, req *model.CalculatePriceRequest) (*model.PricedCart, error)
	// CalculateWithTicketTypes prices against ticket types the caller has
	// already loaded (and locked). Missing ones are read from the catalog.
	CalculateWithTicketTypes(ctx context.Context, visitorID uuid.UUID, req *model.CalculatePriceRequest, ticketTypes map[uuid.UUID]*catalog.TicketType) (*model.PricedCart, error)
	QuoteTicketType(ctx context.Context, ticketTypeID uuid.UUID, quantity int, date time.Time) (*model.PriceQuote, error)
}

// CatalogReader is the part of the catalog the calculator reads.
type CatalogReader interface {
	GetTicketType(ctx context.Context, id uuid.UUID) (*catalog.TicketType, error)
	GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.TicketType, error)
	ListPriceRulesFor(ctx context.Context, ticketTypeIDs []uuid.UUID) ([]*catalog.PriceRule, error)
}

type PromotionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error)
	ListActive(ctx context.Context, day time.Time) ([]*promotion.Promotion, error)
	GetUserUsageCounts(ctx context.Context, visitorID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type VisitorReader interface {
	GetContext(ctx context.Context, visitorID uuid.UUID) (*visitor.VisitorContext, error)
}
