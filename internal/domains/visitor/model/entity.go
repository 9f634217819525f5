package model

import (
	"time"

	"github.com/google/uuid"
)

// MemberLevel is the loyalty tier of a visitor.
type MemberLevel string

const (
	MemberLevelBronze   MemberLevel = "bronze"
	MemberLevelSilver   MemberLevel = "silver"
	MemberLevelGold     MemberLevel = "gold"
	MemberLevelPlatinum MemberLevel = "platinum"
)

func (l MemberLevel) IsValid() bool {
	switch l {
	case MemberLevelBronze, MemberLevelSilver, MemberLevelGold, MemberLevelPlatinum:
		return true
	}
	return false
}

// VisitorContext is the read-only view of a visitor used for promotion
// eligibility.
type VisitorContext struct {
	VisitorID   uuid.UUID   `json:"visitor_id"`
	VisitorType string      `json:"visitor_type"`
	MemberLevel MemberLevel `json:"member_level"`
	BirthDate   *time.Time  `json:"birth_date,omitempty"`
}

// PointsEntry is one row of the points ledger. A reservation awards points
// at most once.
type PointsEntry struct {
	ID            uuid.UUID `json:"id"`
	VisitorID     uuid.UUID `json:"visitor_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}
