package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var (
	errNegativeAmount = errors.New("must not be negative")
	errEndBeforeStart = errors.New("must be after effective_start")
	errMaxBelowMin    = errors.New("must be greater than or equal to min_quantity")
)

func notNegative(value interface{}) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() {
		return errNegativeAmount
	}
	return nil
}

// =====================================================
// TICKET TYPE
// =====================================================
type CreateTicketTypeRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	BasePrice       decimal.Decimal `json:"base_price"`
	MaxSaleLimit    *int            `json:"max_sale_limit"`
	ApplicableCrowd string          `json:"applicable_crowd"`
}

func (req CreateTicketTypeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.BasePrice, validation.By(notNegative)),
		validation.Field(&req.MaxSaleLimit, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.ApplicableCrowd, validation.Required, validation.Length(1, 50)),
	)
}

type UpdateBasePriceRequest struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Reason    string          `json:"reason"`
}

func (req UpdateBasePriceRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BasePrice, validation.By(notNegative)),
		validation.Field(&req.Reason, validation.Required, validation.Length(3, 500)),
	)
}

// =====================================================
// PRICE RULE
// =====================================================
type CreatePriceRuleRequest struct {
	Name           string          `json:"name"`
	Priority       int             `json:"priority"`
	EffectiveStart time.Time       `json:"effective_start"`
	EffectiveEnd   time.Time       `json:"effective_end"`
	MinQuantity    *int            `json:"min_quantity"`
	MaxQuantity    *int            `json:"max_quantity"`
	Price          decimal.Decimal `json:"price"`
}

func (req CreatePriceRuleRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Priority, validation.Min(0)),
		validation.Field(&req.EffectiveStart, validation.Required),
		validation.Field(&req.EffectiveEnd, validation.Required, validation.By(func(interface{}) error {
			if !req.EffectiveEnd.After(req.EffectiveStart) {
				return errEndBeforeStart
			}
			return nil
		})),
		validation.Field(&req.MinQuantity, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.MaxQuantity, validation.NilOrNotEmpty, validation.Min(1), validation.By(func(interface{}) error {
			if req.MinQuantity != nil && req.MaxQuantity != nil && *req.MaxQuantity < *req.MinQuantity {
				return errMaxBelowMin
			}
			return nil
		})),
		validation.Field(&req.Price, validation.By(notNegative)),
	)
}

// UpdatePriceRuleRequest edits a price rule. Nil fields keep their value.
// The ticket type is fixed.
type UpdatePriceRuleRequest struct {
	Name           *string          `json:"name"`
	Priority       *int             `json:"priority"`
	EffectiveStart *time.Time       `json:"effective_start"`
	EffectiveEnd   *time.Time       `json:"effective_end"`
	MinQuantity    *int             `json:"min_quantity"`
	MaxQuantity    *int             `json:"max_quantity"`
	Price          *decimal.Decimal `json:"price"`
}

func (req UpdatePriceRuleRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&req.Priority, validation.When(req.Priority != nil, validation.Min(0))),
		validation.Field(&req.MinQuantity, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.MaxQuantity, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.Price, validation.By(func(interface{}) error {
			if req.Price != nil {
				return notNegative(*req.Price)
			}
			return nil
		})),
	)
}

// Apply overlays the request on rule and re-checks the ranges the merged
// rule must satisfy.
func (req UpdatePriceRuleRequest) Apply(rule *PriceRule) error {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.EffectiveStart != nil {
		rule.EffectiveStart = req.EffectiveStart.UTC()
	}
	if req.EffectiveEnd != nil {
		rule.EffectiveEnd = req.EffectiveEnd.UTC()
	}
	if req.MinQuantity != nil {
		rule.MinQuantity = req.MinQuantity
	}
	if req.MaxQuantity != nil {
		rule.MaxQuantity = req.MaxQuantity
	}
	if req.Price != nil {
		rule.Price = req.Price.Round(2)
	}

	return validation.Errors{
		"price": notNegative(rule.Price),
		"effective_end": validation.Validate(rule.EffectiveEnd, validation.By(func(interface{}) error {
			if !rule.EffectiveEnd.After(rule.EffectiveStart) {
				return errEndBeforeStart
			}
			return nil
		})),
		"max_quantity": validation.Validate(rule.MaxQuantity, validation.By(func(interface{}) error {
			if rule.MinQuantity != nil && rule.MaxQuantity != nil && *rule.MaxQuantity < *rule.MinQuantity {
				return errMaxBelowMin
			}
			return nil
		})),
	}.Filter()
}
