package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	promotionsvc "themepark-backend/internal/domains/promotion/service"
	visitor "themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/shared/apperror"
)

// CalculationInput is everything needed to price a cart without I/O.
type CalculationInput struct {
	Items     []model.ItemRequest
	VisitDate time.Time
	Today     time.Time

	// TicketTypes must include free-ticket targets of the candidates.
	TicketTypes map[uuid.UUID]*catalog.TicketType
	Rules       []*catalog.PriceRule
	Promotions  []*promotion.Promotion
	Visitor     visitor.VisitorContext
	UserUsage   map[uuid.UUID]int

	// RequiredPromotionID makes a non-qualifying candidate an error.
	RequiredPromotionID *uuid.UUID
}

// Calculate prices a cart.
//
// Business Logic:
// 1. Validate the cart and merge duplicate ticket types
// 2. Resolve the unit price of every line
// 3. Evaluate promotion eligibility once for the cart
// 4. Apply qualifying promotions
// 5. Total = max(0, sum of line amounts); discount = subtotal - total
func Calculate(in CalculationInput) (*model.PricedCart, error) {
	// Step 1: validate and merge
	if len(in.Items) == 0 {
		return nil, apperror.Validation(model.ErrCodeEmptyCart, "cart is empty", model.ErrEmptyCart)
	}
	if in.VisitDate.Before(in.Today) {
		return nil, apperror.Validation(model.ErrCodeVisitDateInPast, "visit date is in the past", model.ErrVisitDateInPast)
	}

	items, err := mergeItems(in.Items)
	if err != nil {
		return nil, err
	}

	// Step 2: resolve unit prices
	lines := make([]promotion.CartLine, 0, len(items))
	resolved := make([]ResolvedPrice, 0, len(items))
	for _, item := range items {
		tt, ok := in.TicketTypes[item.TicketTypeID]
		if !ok {
			return nil, ticketTypeNotFound(item.TicketTypeID)
		}
		if !tt.IsActive {
			return nil, apperror.Validation(model.ErrCodeTicketTypeInactive, "ticket type "+tt.Name+" is not on sale", model.ErrTicketTypeInactive)
		}

		price := ResolveUnitPrice(tt, in.Rules, item.Quantity, in.VisitDate)
		resolved = append(resolved, price)
		lines = append(lines, promotion.CartLine{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
			UnitPrice:    price.UnitPrice,
			Subtotal:     price.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	// Step 3: eligibility
	eligibility := promotionsvc.EvaluateEligibility(in.Promotions, promotionsvc.EligibilityInput{
		Lines:      lines,
		Visitor:    in.Visitor,
		TargetDate: in.VisitDate,
		UserUsage:  in.UserUsage,
	})
	if in.RequiredPromotionID != nil {
		for _, r := range eligibility.Rejected {
			if r.PromotionID == *in.RequiredPromotionID {
				return nil, apperror.Validation(model.ErrCodePromotionNotEligible,
					"promotion "+r.Code+" does not apply: "+string(r.Reason), model.ErrPromotionNotEligible)
			}
		}
	}

	// Step 4: apply
	applied := promotionsvc.ApplyPromotions(eligibility.Qualified, lines)

	// Step 5: totals
	cart := &model.PricedCart{
		VisitDate: in.VisitDate,
		Lines:     make([]model.PricedLine, 0, len(applied.Lines)),
		Subtotal:  decimal.Zero,
		Points:    applied.Points,
		Rejected:  eligibility.Rejected,
	}

	sum := decimal.Zero
	for i, l := range applied.Lines {
		tt, ok := in.TicketTypes[l.TicketTypeID]
		if !ok {
			return nil, ticketTypeNotFound(l.TicketTypeID)
		}

		pl := model.PricedLine{
			TicketTypeID:      l.TicketTypeID,
			TicketTypeName:    tt.Name,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
			Subtotal:          l.Subtotal,
			Discount:          l.Subtotal.Sub(l.Amount),
			LineTotal:         l.Amount,
			IsFree:            l.IsFree,
			SourcePromotionID: l.SourcePromotionID,
		}
		if i < len(resolved) {
			pl.PriceRuleID = resolved[i].RuleID()
		}

		cart.Lines = append(cart.Lines, pl)
		cart.Subtotal = cart.Subtotal.Add(l.Subtotal)
		sum = sum.Add(l.Amount)
	}

	if sum.IsNegative() {
		sum = decimal.Zero
	}
	cart.Total = sum
	cart.Discount = cart.Subtotal.Sub(sum)

	for _, a := range applied.Applied {
		cart.AppliedPromotions = append(cart.AppliedPromotions, model.AppliedPromotion{
			PromotionID: a.PromotionID,
			Code:        a.Code,
			Discount:    a.Discount,
			Points:      a.Points,
		})
	}
	return cart, nil
}

func mergeItems(items []model.ItemRequest) ([]model.ItemRequest, error) {
	merged := make([]model.ItemRequest, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, apperror.Validation(model.ErrCodeInvalidQuantity, "quantity must be positive", model.ErrInvalidQuantity)
		}
		if i, ok := index[item.TicketTypeID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.TicketTypeID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func ticketTypeNotFound(id uuid.UUID) error {
	return apperror.NotFound(model.ErrCodeTicketTypeNotFound, "ticket type "+id.String()+" not found", model.ErrTicketTypeNotFound)
}
