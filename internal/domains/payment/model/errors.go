package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeRefundNotFound      = "RFD001"
	ErrCodeTicketNotFound      = "RFD002"
	ErrCodeForbidden           = "RFD003"
	ErrCodeTicketNotRefundable = "RFD004"
	ErrCodeReservationNotPaid  = "RFD005"
	ErrCodeRefundExists        = "RFD006"
	ErrCodeInvalidStatus       = "RFD007"
	ErrCodeGatewayFailed       = "RFD008"
	ErrCodeInvalidRequest      = "RFD009"
	ErrCodeInternal            = "RFD500"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrRefundNotFound      = errors.New("refund record not found")
	ErrTicketNotRefundable = errors.New("ticket cannot be refunded")
	ErrReservationNotPaid  = errors.New("reservation is not paid")
	ErrRefundExists        = errors.New("ticket already has an active refund")
	ErrInvalidStatus       = errors.New("refund is not pending")
	ErrForbidden           = errors.New("refund belongs to another visitor")
)
