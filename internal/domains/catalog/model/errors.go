package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeTicketTypeNotFound = "CAT001"
	ErrCodePriceRuleNotFound  = "CAT002"
	ErrCodeInvalidPriceRule   = "CAT003"
	ErrCodeInvalidBasePrice   = "CAT004"
	ErrCodeDuplicateName      = "CAT005"
	ErrCodeInternal           = "CAT500"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrPriceRuleNotFound  = errors.New("price rule not found")
	ErrDuplicateName      = errors.New("ticket type name already exists")
)
