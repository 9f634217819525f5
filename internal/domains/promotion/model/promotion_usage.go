package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionUsage records one redemption of a promotion by a reservation.
// Released rows no longer count against per-user or global limits.
type PromotionUsage struct {
	ID             uuid.UUID       `json:"id"`
	ReservationID  uuid.UUID       `json:"reservation_id"`
	PromotionID    uuid.UUID       `json:"promotion_id"`
	VisitorID      uuid.UUID       `json:"visitor_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Released       bool            `json:"released"`
	UsedAt         time.Time       `json:"used_at"`
}
