package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeReservationNotFound = "RSV001"
	ErrCodeInvalidStatus       = "RSV002"
	ErrCodeSaleLimitExceeded   = "RSV003"
	ErrCodePromotionExhausted  = "RSV004"
	ErrCodePromotionUserLimit  = "RSV005"
	ErrCodeForbidden           = "RSV006"
	ErrCodeTicketNotFound      = "RSV007"
	ErrCodeTicketNotUsable     = "RSV008"
	ErrCodeNothingToCancel     = "RSV009"
	ErrCodePaymentDeclined     = "RSV010"
	ErrCodeVersionMismatch     = "RSV011"
	ErrCodeInvalidRequest      = "RSV012"
	ErrCodeInternal            = "RSV500"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidStatus       = errors.New("reservation status does not allow this operation")
	ErrSaleLimitExceeded   = errors.New("ticket type sold out for the visit date")
	ErrPromotionExhausted  = errors.New("promotion usage limit reached")
	ErrPromotionUserLimit  = errors.New("promotion per-visitor limit reached")
	ErrForbidden           = errors.New("reservation belongs to another visitor")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotUsable     = errors.New("ticket cannot be used")
	ErrNothingToCancel     = errors.New("reservation has no unused tickets")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrVersionMismatch     = errors.New("version mismatch - concurrent modification detected")
	ErrDuplicateSerial     = errors.New("ticket serial number already exists")
)
