package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketType is a sellable admission product.
type TicketType struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	BasePrice       decimal.Decimal `json:"base_price"`
	MaxSaleLimit    *int            `json:"max_sale_limit,omitempty"` // per visit date, nil = unlimited
	ApplicableCrowd string          `json:"applicable_crowd"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PriceRule overrides the base price of one ticket type inside a date range
// and an optional quantity range.
type PriceRule struct {
	ID             uuid.UUID       `json:"id"`
	TicketTypeID   uuid.UUID       `json:"ticket_type_id"`
	Name           string          `json:"name"`
	Priority       int             `json:"priority"` // lower wins
	EffectiveStart time.Time       `json:"effective_start"`
	EffectiveEnd   time.Time       `json:"effective_end"` // exclusive
	MinQuantity    *int            `json:"min_quantity,omitempty"`
	MaxQuantity    *int            `json:"max_quantity,omitempty"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Covers reports whether date falls inside [EffectiveStart, EffectiveEnd).
func (r *PriceRule) Covers(date time.Time) bool {
	return !date.Before(r.EffectiveStart) && date.Before(r.EffectiveEnd)
}

// AcceptsQuantity treats a missing bound as unbounded.
func (r *PriceRule) AcceptsQuantity(quantity int) bool {
	if r.MinQuantity != nil && quantity < *r.MinQuantity {
		return false
	}
	if r.MaxQuantity != nil && quantity > *r.MaxQuantity {
		return false
	}
	return true
}

// PriceHistory records one base price change.
type PriceHistory struct {
	ID           uuid.UUID       `json:"id"`
	TicketTypeID uuid.UUID       `json:"ticket_type_id"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	ChangedBy    uuid.UUID       `json:"changed_by"`
	Reason       string          `json:"reason"`
	ChangedAt    time.Time       `json:"changed_at"`
}
