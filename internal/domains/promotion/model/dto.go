package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var codePattern = regexp.MustCompile("^[A-Z0-9_]+$")

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// CreatePromotionRequest creates a promotion with its conditions and actions.
type CreatePromotionRequest struct {
	Code                    string        `json:"code"`
	Name                    string        `json:"name"`
	Description             *string       `json:"description"`
	Type                    PromotionType `json:"type"`
	StartsAt                time.Time     `json:"starts_at"`
	EndsAt                  time.Time     `json:"ends_at"`
	UsageLimitPerUser       *int          `json:"usage_limit_per_user"`
	TotalUsageLimit         *int          `json:"total_usage_limit"`
	IsCombinable            bool          `json:"is_combinable"`
	DisplayPriority         int           `json:"display_priority"`
	ApplicableTicketTypeIDs []uuid.UUID   `json:"applicable_ticket_type_ids"`
	Conditions              []RuleSpec    `json:"conditions"`
	Actions                 []RuleSpec    `json:"actions"`
}

// Validate validates CreatePromotionRequest
func (r CreatePromotionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required,
			validation.Length(3, 50),
			validation.Match(codePattern).Error("must contain only uppercase letters, digits and underscores"),
		),
		validation.Field(&r.Name, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.Description, validation.When(r.Description != nil, validation.Length(0, 1000))),
		validation.Field(&r.Type, validation.Required, validation.In(
			TypePercentage, TypeFixedAmount, TypeFixedPrice, TypeBuyXGetY, TypePointsBonus, TypeBundle,
		)),
		validation.Field(&r.StartsAt, validation.Required),
		validation.Field(&r.EndsAt, validation.Required, validation.By(r.validateWindow)),
		validation.Field(&r.UsageLimitPerUser, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.TotalUsageLimit, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.DisplayPriority, validation.Min(0)),
		validation.Field(&r.Conditions, validation.By(func(interface{}) error {
			_, err := DecodeConditions(r.Conditions)
			return err
		})),
		validation.Field(&r.Actions, validation.Required, validation.By(func(interface{}) error {
			_, err := DecodeActions(r.Actions)
			return err
		})),
	)
}

func (r CreatePromotionRequest) validateWindow(interface{}) error {
	if !r.EndsAt.After(r.StartsAt) {
		return errors.New("must be after starts_at")
	}
	return nil
}

// NormalizeCode upper-cases the code.
func (r *CreatePromotionRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// UpdatePromotionStatusRequest toggles a promotion. Version guards against
// concurrent edits.
type UpdatePromotionStatusRequest struct {
	IsActive bool `json:"is_active"`
	Version  int  `json:"version"`
}

func (r UpdatePromotionStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Version, validation.Min(0)),
	)
}

// UpdatePromotionRequest edits a promotion's top-level fields. Nil fields
// keep their current value. Code is immutable.
type UpdatePromotionRequest struct {
	Name                    *string        `json:"name"`
	Description             *string        `json:"description"`
	Type                    *PromotionType `json:"type"`
	StartsAt                *time.Time     `json:"starts_at"`
	EndsAt                  *time.Time     `json:"ends_at"`
	UsageLimitPerUser       *int           `json:"usage_limit_per_user"`
	TotalUsageLimit         *int           `json:"total_usage_limit"`
	IsCombinable            *bool          `json:"is_combinable"`
	DisplayPriority         *int           `json:"display_priority"`
	IsActive                *bool          `json:"is_active"`
	ApplicableTicketTypeIDs *[]uuid.UUID   `json:"applicable_ticket_type_ids"`
	Version                 int            `json:"version"`
}

func (r UpdatePromotionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(3, 200)),
		validation.Field(&r.Description, validation.When(r.Description != nil, validation.Length(0, 1000))),
		validation.Field(&r.Type, validation.NilOrNotEmpty, validation.In(
			TypePercentage, TypeFixedAmount, TypeFixedPrice, TypeBuyXGetY, TypePointsBonus, TypeBundle,
		)),
		validation.Field(&r.UsageLimitPerUser, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.TotalUsageLimit, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.DisplayPriority, validation.When(r.DisplayPriority != nil, validation.Min(0))),
		validation.Field(&r.Version, validation.Min(0)),
	)
}

// RuleRequest adds or replaces one condition or action.
type RuleRequest struct {
	Rule    RuleSpec `json:"rule"`
	Version int      `json:"version"`
}

func (r RuleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rule, validation.By(func(interface{}) error {
			if r.Rule.Kind == "" {
				return errors.New("kind is required")
			}
			return nil
		})),
		validation.Field(&r.Version, validation.Min(0)),
	)
}

// ListPromotionsFilter filters the admin promotion list.
type ListPromotionsFilter struct {
	Status string `form:"status"` // active, expired, upcoming, all
	Search string `form:"search"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// Validate normalises paging and checks the status filter.
func (f *ListPromotionsFilter) Validate() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Status == "" {
		f.Status = "all"
	}
	return validation.ValidateStruct(f,
		validation.Field(&f.Status, validation.In("active", "expired", "upcoming", "all")),
	)
}

// -------------------------------------------------------------------
// ELIGIBILITY
// -------------------------------------------------------------------

// Rejection names a promotion that did not qualify and why.
type Rejection struct {
	PromotionID uuid.UUID       `json:"promotion_id"`
	Code        string          `json:"code"`
	Reason      RejectionReason `json:"reason"`
}
