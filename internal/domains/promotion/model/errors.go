package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodePromotionNotFound = "PRM001"
	ErrCodeDuplicateCode     = "PRM002"
	ErrCodeInvalidRule       = "PRM003"
	ErrCodeNotEligible       = "PRM004"
	ErrCodeUsageLimitReached = "PRM005"
	ErrCodeUserLimitReached  = "PRM006"
	ErrCodeVersionMismatch   = "PRM007"
	ErrCodePromotionInUse    = "PRM008"
	ErrCodeRuleNotFound      = "PRM009"
	ErrCodeInternal          = "PRM500"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrPromotionNotFound    = errors.New("promotion not found")
	ErrDuplicateCode        = errors.New("promotion code already exists")
	ErrUsageLimitReached    = errors.New("promotion usage limit reached")
	ErrVersionMismatch      = errors.New("version mismatch - concurrent modification detected")
	ErrPromotionInUse       = errors.New("promotion has been redeemed")
	ErrRuleNotFound         = errors.New("rule index out of range")
	ErrUnknownConditionKind = errors.New("unknown condition kind")
	ErrUnknownActionKind    = errors.New("unknown action kind")
)

// RejectionReason explains why a promotion did not qualify for a cart.
type RejectionReason string

const (
	ReasonInactive              RejectionReason = "inactive"
	ReasonOutsideWindow         RejectionReason = "outside_window"
	ReasonUserLimitReached      RejectionReason = "user_limit_reached"
	ReasonUsageLimitReached     RejectionReason = "usage_limit_reached"
	ReasonMinQuantityNotMet     RejectionReason = "min_quantity_not_met"
	ReasonMinAmountNotMet       RejectionReason = "min_amount_not_met"
	ReasonVisitorTypeMismatch   RejectionReason = "visitor_type_mismatch"
	ReasonMemberLevelMismatch   RejectionReason = "member_level_mismatch"
	ReasonDateNotInRange        RejectionReason = "date_not_in_range"
	ReasonDayNotAllowed         RejectionReason = "day_not_allowed"
	ReasonTicketTypeMissing     RejectionReason = "ticket_type_missing"
	ReasonNotBirthday           RejectionReason = "not_birthday"
	ReasonSupersededByExclusive RejectionReason = "superseded_by_exclusive"
)
