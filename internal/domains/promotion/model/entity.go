package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionType is a display classification. Behaviour comes from actions.
type PromotionType string

const (
	TypePercentage  PromotionType = "percentage"
	TypeFixedAmount PromotionType = "fixed_amount"
	TypeFixedPrice  PromotionType = "fixed_price"
	TypeBuyXGetY    PromotionType = "buy_x_get_y"
	TypePointsBonus PromotionType = "points_bonus"
	TypeBundle      PromotionType = "bundle"
)

// Promotion is a campaign with ANDed conditions and ordered actions.
type Promotion struct {
	ID          uuid.UUID     `json:"id"`
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Type        PromotionType `json:"type"`

	// Active window [StartsAt, EndsAt)
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	UsageLimitPerUser *int `json:"usage_limit_per_user,omitempty"`
	TotalUsageLimit   *int `json:"total_usage_limit,omitempty"`
	CurrentUsageCount int  `json:"current_usage_count"`

	IsCombinable    bool `json:"is_combinable"`
	DisplayPriority int  `json:"display_priority"`
	IsActive        bool `json:"is_active"`

	// Empty means every ticket type.
	ApplicableTicketTypeIDs []uuid.UUID `json:"applicable_ticket_type_ids"`

	Conditions []Condition `json:"-"`
	Actions    []Action    `json:"-"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON renders conditions and actions in their stored form.
func (p Promotion) MarshalJSON() ([]byte, error) {
	type alias Promotion

	conditions, err := EncodeConditions(p.Conditions)
	if err != nil {
		return nil, err
	}
	actions, err := EncodeActions(p.Actions)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		alias
		Conditions []RuleSpec `json:"conditions"`
		Actions    []RuleSpec `json:"actions"`
	}{alias(p), conditions, actions})
}

// InWindow reports whether the visit day overlaps [StartsAt, EndsAt).
func (p *Promotion) InWindow(day time.Time) bool {
	return day.Before(p.EndsAt) && day.Add(24*time.Hour).After(p.StartsAt)
}

// GlobalLimitReached reports whether the total usage cap is exhausted.
func (p *Promotion) GlobalLimitReached() bool {
	return p.TotalUsageLimit != nil && p.CurrentUsageCount >= *p.TotalUsageLimit
}

// UserLimitReached reports whether a visitor with used redemptions may not
// redeem again.
func (p *Promotion) UserLimitReached(used int) bool {
	return p.UsageLimitPerUser != nil && used >= *p.UsageLimitPerUser
}

// AppliesTo reports whether ticketTypeID is within the promotion's scope.
func (p *Promotion) AppliesTo(ticketTypeID uuid.UUID) bool {
	if len(p.ApplicableTicketTypeIDs) == 0 {
		return true
	}
	for _, id := range p.ApplicableTicketTypeIDs {
		if id == ticketTypeID {
			return true
		}
	}
	return false
}

// CartLine is one priced line of a cart as the promotion engine sees it.
type CartLine struct {
	TicketTypeID uuid.UUID       `json:"ticket_type_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}
