package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"themepark-backend/internal/domains/promotion/model"
	visitor "themepark-backend/internal/domains/visitor/model"
)

// EligibilityInput is everything the evaluator needs about one cart.
type EligibilityInput struct {
	Lines      []model.CartLine
	Visitor    visitor.VisitorContext
	TargetDate time.Time
	// UserUsage holds the visitor's unreleased redemptions per promotion.
	UserUsage map[uuid.UUID]int
}

// EligibilityResult lists qualifying promotions in application order and
// every rejected promotion with its reason.
type EligibilityResult struct {
	Qualified []*model.Promotion
	Rejected  []model.Rejection
}

// EvaluateEligibility filters candidates down to the promotions that apply to
// the cart.
//
// Business Logic:
// 1. Reject inactive, out-of-window and exhausted promotions
// 2. Reject promotions with any failing condition (conditions are ANDed)
// 3. Order survivors by display priority, then id
// 4. If a non-combinable promotion qualifies, keep only the first one plus
//    the combinable promotions ordered after it
func EvaluateEligibility(candidates []*model.Promotion, in EligibilityInput) EligibilityResult {
	var result EligibilityResult
	var qualified []*model.Promotion

	for _, p := range candidates {
		if reason, ok := qualifies(p, in); !ok {
			result.Rejected = append(result.Rejected, rejection(p, reason))
			continue
		}
		qualified = append(qualified, p)
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		if qualified[i].DisplayPriority != qualified[j].DisplayPriority {
			return qualified[i].DisplayPriority < qualified[j].DisplayPriority
		}
		return qualified[i].ID.String() < qualified[j].ID.String()
	})

	exclusive := -1
	for i, p := range qualified {
		if !p.IsCombinable {
			exclusive = i
			break
		}
	}
	if exclusive < 0 {
		result.Qualified = qualified
		return result
	}

	for i, p := range qualified {
		if i == exclusive || (i > exclusive && p.IsCombinable) {
			result.Qualified = append(result.Qualified, p)
			continue
		}
		result.Rejected = append(result.Rejected, rejection(p, model.ReasonSupersededByExclusive))
	}
	return result
}

func rejection(p *model.Promotion, reason model.RejectionReason) model.Rejection {
	return model.Rejection{PromotionID: p.ID, Code: p.Code, Reason: reason}
}

func qualifies(p *model.Promotion, in EligibilityInput) (model.RejectionReason, bool) {
	if !p.IsActive {
		return model.ReasonInactive, false
	}
	if !p.InWindow(in.TargetDate) {
		return model.ReasonOutsideWindow, false
	}
	if p.UserLimitReached(in.UserUsage[p.ID]) {
		return model.ReasonUserLimitReached, false
	}
	if p.GlobalLimitReached() {
		return model.ReasonUsageLimitReached, false
	}

	for _, cond := range p.Conditions {
		if reason, ok := checkCondition(p, cond, in); !ok {
			return reason, false
		}
	}
	return "", true
}

func checkCondition(p *model.Promotion, cond model.Condition, in EligibilityInput) (model.RejectionReason, bool) {
	switch c := cond.(type) {
	case model.MinQuantity:
		qty, _ := scopedTotals(p, c.TicketTypeID, in.Lines)
		return model.ReasonMinQuantityNotMet, qty >= c.Quantity
	case model.MinAmount:
		_, amount := scopedTotals(p, c.TicketTypeID, in.Lines)
		return model.ReasonMinAmountNotMet, amount.GreaterThanOrEqual(c.Amount)
	case model.VisitorType:
		return model.ReasonVisitorTypeMismatch, in.Visitor.VisitorType == c.VisitorType
	case model.MemberLevel:
		return model.ReasonMemberLevelMismatch, in.Visitor.MemberLevel == c.Level
	case model.DateRange:
		return model.ReasonDateNotInRange, c.Contains(in.TargetDate)
	case model.DayOfWeek:
		return model.ReasonDayNotAllowed, c.Allows(in.TargetDate)
	case model.TicketType:
		for _, line := range in.Lines {
			if line.TicketTypeID == c.TicketTypeID && line.Quantity > 0 {
				return "", true
			}
		}
		return model.ReasonTicketTypeMissing, false
	case model.Birthday:
		if in.Visitor.BirthDate == nil {
			return model.ReasonNotBirthday, false
		}
		return model.ReasonNotBirthday, model.IsBirthday(*in.Visitor.BirthDate, in.TargetDate)
	default:
		return model.ReasonInactive, false
	}
}

// scopedTotals sums quantity and raw subtotal over the lines a quantity or
// amount condition counts: the condition's ticket type, else the promotion's
// applicable ticket types, else the whole cart.
func scopedTotals(p *model.Promotion, ticketTypeID *uuid.UUID, lines []model.CartLine) (int, decimal.Decimal) {
	qty := 0
	amount := decimal.Zero
	for _, line := range lines {
		if ticketTypeID != nil {
			if line.TicketTypeID != *ticketTypeID {
				continue
			}
		} else if !p.AppliesTo(line.TicketTypeID) {
			continue
		}
		qty += line.Quantity
		amount = amount.Add(line.Subtotal)
	}
	return qty, amount
}
