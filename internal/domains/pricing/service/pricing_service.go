package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	visitor "themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/infrastructure/metrics"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/logger"
)

type pricingService struct {
	catalog    CatalogReader
	promotions PromotionReader
	visitors   VisitorReader
	now        func() time.Time
}

func NewPricingService(catalog CatalogReader, promotions PromotionReader, visitors VisitorReader) Service {
	return &pricingService{
		catalog:    catalog,
		promotions: promotions,
		visitors:   visitors,
		now:        time.Now,
	}
}

func (s *pricingService) CalculatePrice(ctx context.Context, visitorID uuid.UUID, req *model.CalculatePriceRequest) (*model.PricedCart, error) {
	return s.CalculateWithTicketTypes(ctx, visitorID, req, nil)
}

// CalculateWithTicketTypes loads everything the calculator needs and runs it.
//
// Business Logic:
// 1. Parse the visit date
// 2. Load the cart's ticket types and their price rules
// 3. Load candidate promotions: the requested one, or every active one
// 4. Load free-ticket targets, the visitor and their usage counts
// 5. Calculate
func (s *pricingService) CalculateWithTicketTypes(
	ctx context.Context,
	visitorID uuid.UUID,
	req *model.CalculatePriceRequest,
	ticketTypes map[uuid.UUID]*catalog.TicketType,
) (cart *model.PricedCart, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = apperror.KindOf(err).String()
		}
		metrics.PriceCalculations.WithLabelValues(outcome).Inc()
	}()

	// Step 1: visit date
	visitDate, err := utils.ParseDate(req.VisitDate)
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidVisitDate, err.Error(), model.ErrInvalidVisitDate)
	}

	// Step 2: ticket types and rules
	known := make(map[uuid.UUID]*catalog.TicketType, len(ticketTypes))
	for id, tt := range ticketTypes {
		known[id] = tt
	}

	itemIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		itemIDs = append(itemIDs, item.TicketTypeID)
	}
	if err := s.loadTicketTypes(ctx, known, itemIDs); err != nil {
		return nil, err
	}

	rules, err := s.catalog.ListPriceRulesFor(ctx, itemIDs)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	// Step 3: candidate promotions
	candidates, err := s.loadCandidates(ctx, req.PromotionID, visitDate)
	if err != nil {
		return nil, err
	}

	// Step 4: free-ticket targets, visitor, usage
	if err := s.loadTicketTypes(ctx, known, freeTicketTargets(candidates)); err != nil {
		return nil, err
	}

	vc, err := s.visitorContext(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	usage := map[uuid.UUID]int{}
	if len(candidates) > 0 && visitorID != uuid.Nil {
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, p := range candidates {
			ids = append(ids, p.ID)
		}
		usage, err = s.promotions.GetUserUsageCounts(ctx, visitorID, ids)
		if err != nil {
			return nil, apperror.Internal(model.ErrCodeInternal, err)
		}
	}

	// Step 5: calculate
	cart, err = Calculate(CalculationInput{
		Items:               req.Items,
		VisitDate:           visitDate,
		Today:               utils.StartOfDay(s.now()),
		TicketTypes:         known,
		Rules:               rules,
		Promotions:          candidates,
		Visitor:             vc,
		UserUsage:           usage,
		RequiredPromotionID: req.PromotionID,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("cart priced", map[string]interface{}{
		"visitor_id": visitorID,
		"subtotal":   cart.Subtotal.String(),
		"discount":   cart.Discount.String(),
		"total":      cart.Total.String(),
		"promotions": len(cart.AppliedPromotions),
	})
	return cart, nil
}

// QuoteTicketType resolves the unit price of one ticket type without
// promotions.
func (s *pricingService) QuoteTicketType(ctx context.Context, ticketTypeID uuid.UUID, quantity int, date time.Time) (*model.PriceQuote, error) {
	if quantity <= 0 {
		return nil, apperror.Validation(model.ErrCodeInvalidQuantity, "quantity must be positive", model.ErrInvalidQuantity)
	}
	date = utils.StartOfDay(date)
	if date.Before(utils.StartOfDay(s.now())) {
		return nil, apperror.Validation(model.ErrCodeVisitDateInPast, "visit date is in the past", model.ErrVisitDateInPast)
	}

	tt, err := s.catalog.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, catalog.ErrTicketTypeNotFound) {
			return nil, ticketTypeNotFound(ticketTypeID)
		}
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	if !tt.IsActive {
		return nil, apperror.Validation(model.ErrCodeTicketTypeInactive, "ticket type "+tt.Name+" is not on sale", model.ErrTicketTypeInactive)
	}

	rules, err := s.catalog.ListPriceRulesFor(ctx, []uuid.UUID{ticketTypeID})
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	price := ResolveUnitPrice(tt, rules, quantity, date)
	quote := &model.PriceQuote{
		TicketTypeID: tt.ID,
		Name:         tt.Name,
		VisitDate:    date,
		Quantity:     quantity,
		BasePrice:    tt.BasePrice,
		UnitPrice:    price.UnitPrice,
		PriceRuleID:  price.RuleID(),
		Subtotal:     price.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
	if price.Rule != nil {
		name := price.Rule.Name
		quote.PriceRuleName = &name
	}
	return quote, nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

// loadTicketTypes reads the ids not yet in known. Ids the catalog does not
// have stay absent; the calculator reports them as not found.
func (s *pricingService) loadTicketTypes(ctx context.Context, known map[uuid.UUID]*catalog.TicketType, ids []uuid.UUID) error {
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	found, err := s.catalog.GetTicketTypes(ctx, missing)
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}
	for id, tt := range found {
		known[id] = tt
	}
	return nil
}

func (s *pricingService) loadCandidates(ctx context.Context, promotionID *uuid.UUID, visitDate time.Time) ([]*promotion.Promotion, error) {
	if promotionID == nil {
		candidates, err := s.promotions.ListActive(ctx, visitDate)
		if err != nil {
			return nil, apperror.Internal(model.ErrCodeInternal, err)
		}
		return candidates, nil
	}

	promo, err := s.promotions.GetByID(ctx, *promotionID)
	if err != nil {
		if errors.Is(err, promotion.ErrPromotionNotFound) {
			return nil, apperror.NotFound(model.ErrCodePromotionNotFound, "promotion not found", err)
		}
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return []*promotion.Promotion{promo}, nil
}

// visitorContext falls back to an anonymous context for visitors the
// directory does not know; only visitor-bound conditions then fail.
func (s *pricingService) visitorContext(ctx context.Context, visitorID uuid.UUID) (visitor.VisitorContext, error) {
	anonymous := visitor.VisitorContext{VisitorID: visitorID}
	if visitorID == uuid.Nil || s.visitors == nil {
		return anonymous, nil
	}

	vc, err := s.visitors.GetContext(ctx, visitorID)
	if err != nil {
		if errors.Is(err, visitor.ErrVisitorNotFound) {
			return anonymous, nil
		}
		return anonymous, apperror.Internal(model.ErrCodeInternal, err)
	}
	return *vc, nil
}

func freeTicketTargets(promotions []*promotion.Promotion) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range promotions {
		for _, a := range p.Actions {
			if free, ok := a.(promotion.FreeTicket); ok {
				ids = append(ids, free.TicketTypeID)
			}
		}
	}
	return ids
}
