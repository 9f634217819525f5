package model

import "errors"

const (
	ErrCodeVisitorNotFound = "VIS001"
	ErrCodeInternal        = "VIS500"
)

var (
	ErrVisitorNotFound = errors.New("visitor not found")
)

// AwardPointsPayload is the asynq payload for crediting reservation points.
type AwardPointsPayload struct {
	VisitorID     string `json:"visitor_id"`
	ReservationID string `json:"reservation_id"`
	Points        int    `json:"points"`
}
