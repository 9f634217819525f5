package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"themepark-backend/internal/domains/promotion/model"
)

var hundred = decimal.NewFromInt(100)

// AppliedLine is a cart line after promotions. Amount is the running line
// amount; Subtotal stays the raw resolved subtotal.
type AppliedLine struct {
	TicketTypeID      uuid.UUID
	Quantity          int
	UnitPrice         decimal.Decimal
	Subtotal          decimal.Decimal
	Amount            decimal.Decimal
	IsFree            bool
	SourcePromotionID *uuid.UUID
}

// AppliedPromotion is the discount attributed to one promotion.
type AppliedPromotion struct {
	PromotionID uuid.UUID
	Code        string
	Discount    decimal.Decimal
	Points      int
}

// ApplicationResult is the outcome of applying qualifying promotions.
type ApplicationResult struct {
	Lines   []AppliedLine
	Applied []AppliedPromotion
	Points  int
}

type pendingFixedPrice struct {
	promoIndex int
	promo      *model.Promotion
	action     model.FixedPrice
}

// ApplyPromotions applies promotions in order, each promotion's actions in
// stored order. Discounts compound against the running line amount.
// Fixed prices run last as an absolute floor over the raw subtotal.
func ApplyPromotions(promotions []*model.Promotion, lines []model.CartLine) ApplicationResult {
	result := ApplicationResult{Lines: make([]AppliedLine, 0, len(lines))}
	for _, l := range lines {
		result.Lines = append(result.Lines, AppliedLine{
			TicketTypeID: l.TicketTypeID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Subtotal:     l.Subtotal,
			Amount:       l.Subtotal,
		})
	}

	var deferred []pendingFixedPrice

	for i, p := range promotions {
		applied := AppliedPromotion{PromotionID: p.ID, Code: p.Code, Discount: decimal.Zero}

		for _, action := range p.Actions {
			switch a := action.(type) {
			case model.PercentageDiscount:
				pct := clampPercent(a.Percent)
				for _, idx := range scope(p, a.TargetTicketTypeID, result.Lines) {
					line := &result.Lines[idx]
					cut := line.Amount.Mul(pct).Div(hundred).Round(2)
					if cut.GreaterThan(line.Amount) {
						cut = line.Amount
					}
					line.Amount = line.Amount.Sub(cut)
					applied.Discount = applied.Discount.Add(cut)
				}

			case model.FixedAmountDiscount:
				remaining := a.Amount
				for _, idx := range scope(p, a.TargetTicketTypeID, result.Lines) {
					if !remaining.IsPositive() {
						break
					}
					line := &result.Lines[idx]
					cut := decimal.Min(remaining, line.Amount)
					line.Amount = line.Amount.Sub(cut)
					remaining = remaining.Sub(cut)
					applied.Discount = applied.Discount.Add(cut)
				}

			case model.FixedPrice:
				deferred = append(deferred, pendingFixedPrice{promoIndex: i, promo: p, action: a})

			case model.FreeTicket:
				promoID := p.ID
				result.Lines = append(result.Lines, AppliedLine{
					TicketTypeID:      a.TicketTypeID,
					Quantity:          a.Quantity,
					UnitPrice:         decimal.Zero,
					Subtotal:          decimal.Zero,
					Amount:            decimal.Zero,
					IsFree:            true,
					SourcePromotionID: &promoID,
				})

			case model.PointsAward:
				applied.Points += a.Points
				result.Points += a.Points
			}
		}

		result.Applied = append(result.Applied, applied)
	}

	floored := make(map[int]bool)
	for _, fp := range deferred {
		applied := &result.Applied[fp.promoIndex]
		for _, idx := range scope(fp.promo, fp.action.TargetTicketTypeID, result.Lines) {
			line := &result.Lines[idx]
			if !fp.action.Price.LessThan(line.UnitPrice) {
				continue
			}
			capped := decimal.Min(line.Subtotal, fp.action.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			if floored[idx] && line.Amount.LessThan(capped) {
				continue
			}
			floored[idx] = true
			// a floor above the running amount raises the line but is
			// attributed no discount
			if cut := line.Amount.Sub(capped); cut.IsPositive() {
				applied.Discount = applied.Discount.Add(cut)
			}
			line.Amount = capped
		}
	}

	return result
}

// scope returns the indexes of the lines an action touches: the action's
// target, else the promotion's applicable ticket types, else every paid line.
func scope(p *model.Promotion, target *uuid.UUID, lines []AppliedLine) []int {
	var idx []int
	for i, line := range lines {
		if line.IsFree {
			continue
		}
		if target != nil {
			if line.TicketTypeID == *target {
				idx = append(idx, i)
			}
			continue
		}
		if p.AppliesTo(line.TicketTypeID) {
			idx = append(idx, i)
		}
	}
	return idx
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
