package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeEmptyCart            = "PRC001"
	ErrCodeInvalidQuantity      = "PRC002"
	ErrCodeVisitDateInPast      = "PRC003"
	ErrCodeTicketTypeNotFound   = "PRC004"
	ErrCodeTicketTypeInactive   = "PRC005"
	ErrCodePromotionNotEligible = "PRC006"
	ErrCodePromotionNotFound    = "PRC007"
	ErrCodeInvalidVisitDate     = "PRC008"
	ErrCodeInternal             = "PRC500"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrVisitDateInPast      = errors.New("visit date is in the past")
	ErrTicketTypeNotFound   = errors.New("ticket type not found")
	ErrTicketTypeInactive   = errors.New("ticket type is not on sale")
	ErrPromotionNotEligible = errors.New("promotion does not apply to this cart")
	ErrInvalidVisitDate     = errors.New("visit date must be YYYY-MM-DD")
)
