package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleSpec is the stored and wire form of a condition or action: a kind tag
// plus kind-specific parameters. Promotions keep them in JSONB columns.
type RuleSpec struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// =====================================================
// CONDITIONS
// =====================================================

func EncodeConditions(conditions []Condition) ([]RuleSpec, error) {
	specs := make([]RuleSpec, 0, len(conditions))
	for _, c := range conditions {
		params, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode condition %s: %w", c.Kind(), err)
		}
		specs = append(specs, RuleSpec{Kind: string(c.Kind()), Params: params})
	}
	return specs, nil
}

func DecodeConditions(specs []RuleSpec) ([]Condition, error) {
	conditions := make([]Condition, 0, len(specs))
	for i, spec := range specs {
		c, err := decodeCondition(spec)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}

func decodeCondition(spec RuleSpec) (Condition, error) {
	switch ConditionKind(spec.Kind) {
	case ConditionMinQuantity:
		var c MinQuantity
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if c.Quantity < 1 {
			return nil, fmt.Errorf("%s: quantity must be at least 1", spec.Kind)
		}
		return c, nil
	case ConditionMinAmount:
		var c MinAmount
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if c.Amount.IsNegative() {
			return nil, fmt.Errorf("%s: amount must not be negative", spec.Kind)
		}
		return c, nil
	case ConditionVisitorType:
		var c VisitorType
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if c.VisitorType == "" {
			return nil, fmt.Errorf("%s: visitor_type is required", spec.Kind)
		}
		return c, nil
	case ConditionMemberLevel:
		var c MemberLevel
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if !c.Level.IsValid() {
			return nil, fmt.Errorf("%s: unknown level %q", spec.Kind, c.Level)
		}
		return c, nil
	case ConditionDateRange:
		var c DateRange
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if !c.To.After(c.From) {
			return nil, fmt.Errorf("%s: to must be after from", spec.Kind)
		}
		return c, nil
	case ConditionDayOfWeek:
		var c DayOfWeek
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		if len(c.Days) == 0 {
			return nil, fmt.Errorf("%s: days is required", spec.Kind)
		}
		for _, d := range c.Days {
			if d < time.Sunday || d > time.Saturday {
				return nil, fmt.Errorf("%s: invalid weekday %d", spec.Kind, d)
			}
		}
		return c, nil
	case ConditionTicketType:
		var c TicketType
		if err := unmarshalParams(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ConditionBirthday:
		return Birthday{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConditionKind, spec.Kind)
	}
}

// =====================================================
// ACTIONS
// =====================================================

func EncodeActions(actions []Action) ([]RuleSpec, error) {
	specs := make([]RuleSpec, 0, len(actions))
	for _, a := range actions {
		params, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode action %s: %w", a.Kind(), err)
		}
		specs = append(specs, RuleSpec{Kind: string(a.Kind()), Params: params})
	}
	return specs, nil
}

func DecodeActions(specs []RuleSpec) ([]Action, error) {
	actions := make([]Action, 0, len(specs))
	for i, spec := range specs {
		a, err := decodeAction(spec)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func decodeAction(spec RuleSpec) (Action, error) {
	switch ActionKind(spec.Kind) {
	case ActionPercentageDiscount:
		var a PercentageDiscount
		if err := unmarshalParams(spec, &a); err != nil {
			return nil, err
		}
		if a.Percent.IsNegative() || a.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%s: percent must be between 0 and 100", spec.Kind)
		}
		return a, nil
	case ActionFixedAmountDiscount:
		var a FixedAmountDiscount
		if err := unmarshalParams(spec, &a); err != nil {
			return nil, err
		}
		if a.Amount.IsNegative() {
			return nil, fmt.Errorf("%s: amount must not be negative", spec.Kind)
		}
		return a, nil
	case ActionFixedPrice:
		var a FixedPrice
		if err := unmarshalParams(spec, &a); err != nil {
			return nil, err
		}
		if a.Price.IsNegative() {
			return nil, fmt.Errorf("%s: price must not be negative", spec.Kind)
		}
		return a, nil
	case ActionFreeTicket:
		var a FreeTicket
		if err := unmarshalParams(spec, &a); err != nil {
			return nil, err
		}
		if a.Quantity < 1 {
			return nil, fmt.Errorf("%s: quantity must be at least 1", spec.Kind)
		}
		return a, nil
	case ActionPointsAward:
		var a PointsAward
		if err := unmarshalParams(spec, &a); err != nil {
			return nil, err
		}
		if a.Points < 0 {
			return nil, fmt.Errorf("%s: points must not be negative", spec.Kind)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, spec.Kind)
	}
}

func unmarshalParams(spec RuleSpec, dest interface{}) error {
	if len(spec.Params) == 0 {
		return fmt.Errorf("%s: params are required", spec.Kind)
	}
	if err := json.Unmarshal(spec.Params, dest); err != nil {
		return fmt.Errorf("%s: %w", spec.Kind, err)
	}
	return nil
}
