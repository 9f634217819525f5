package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	promotion "themepark-backend/internal/domains/promotion/model"
)

// =====================================================
// CALCULATE PRICE REQUEST
// =====================================================
type CalculatePriceRequest struct {
	VisitDate   string        `json:"visit_date"` // YYYY-MM-DD
	Items       []ItemRequest `json:"items"`
	PromotionID *uuid.UUID    `json:"promotion_id,omitempty"`
}

type ItemRequest struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
}

// Validate checks shape only. Business rules (positive quantities, future
// visit date) are enforced by the calculator.
func (req CalculatePriceRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.VisitDate, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&req.Items, validation.Required, validation.Length(1, 50)),
	)
}

// =====================================================
// PRICED CART
// =====================================================

// PricedCart is the full price breakdown of a cart.
// Total = Subtotal - Discount, never negative.
type PricedCart struct {
	VisitDate         time.Time             `json:"visit_date"`
	Lines             []PricedLine          `json:"lines"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	Discount          decimal.Decimal       `json:"discount"`
	Total             decimal.Decimal       `json:"total"`
	Points            int                   `json:"points"`
	AppliedPromotions []AppliedPromotion    `json:"applied_promotions"`
	Rejected          []promotion.Rejection `json:"rejected_promotions,omitempty"`
}

// PricedLine is one line with its frozen unit price.
type PricedLine struct {
	TicketTypeID      uuid.UUID       `json:"ticket_type_id"`
	TicketTypeName    string          `json:"ticket_type_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	PriceRuleID       *uuid.UUID      `json:"price_rule_id,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	LineTotal         decimal.Decimal `json:"line_total"`
	IsFree            bool            `json:"is_free"`
	SourcePromotionID *uuid.UUID      `json:"source_promotion_id,omitempty"`
}

type AppliedPromotion struct {
	PromotionID uuid.UUID       `json:"promotion_id"`
	Code        string          `json:"code"`
	Discount    decimal.Decimal `json:"discount"`
	Points      int             `json:"points"`
}

// FirstPromotionID returns the first applied promotion, if any.
func (c *PricedCart) FirstPromotionID() *uuid.UUID {
	if len(c.AppliedPromotions) == 0 {
		return nil
	}
	id := c.AppliedPromotions[0].PromotionID
	return &id
}

// =====================================================
// PRICE QUOTE
// =====================================================

// PriceQuote is the resolved price of one ticket type for a date and quantity.
type PriceQuote struct {
	TicketTypeID  uuid.UUID       `json:"ticket_type_id"`
	Name          string          `json:"name"`
	VisitDate     time.Time       `json:"visit_date"`
	Quantity      int             `json:"quantity"`
	BasePrice     decimal.Decimal `json:"base_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PriceRuleID   *uuid.UUID      `json:"price_rule_id,omitempty"`
	PriceRuleName *string         `json:"price_rule_name,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}
