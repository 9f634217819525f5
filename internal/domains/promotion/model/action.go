package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action is one effect of a qualifying promotion. The set of implementations
// is closed: every kind is declared in this file.
type Action interface {
	Kind() ActionKind
	isAction()
}

type ActionKind string

const (
	ActionPercentageDiscount  ActionKind = "percentage_discount"
	ActionFixedAmountDiscount ActionKind = "fixed_amount_discount"
	ActionFixedPrice          ActionKind = "fixed_price"
	ActionFreeTicket          ActionKind = "free_ticket"
	ActionPointsAward         ActionKind = "points_award"
)

// PercentageDiscount reduces each scoped line by Percent (clamped to 0-100).
type PercentageDiscount struct {
	TargetTicketTypeID *uuid.UUID      `json:"target_ticket_type_id,omitempty"`
	Percent            decimal.Decimal `json:"percent"`
}

// FixedAmountDiscount subtracts Amount once, spread across scoped lines.
type FixedAmountDiscount struct {
	TargetTicketTypeID *uuid.UUID      `json:"target_ticket_type_id,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
}

// FixedPrice caps each scoped unit at Price.
type FixedPrice struct {
	TargetTicketTypeID *uuid.UUID      `json:"target_ticket_type_id,omitempty"`
	Price              decimal.Decimal `json:"price"`
}

// FreeTicket adds Quantity zero-priced units of TicketTypeID.
type FreeTicket struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
}

type PointsAward struct {
	Points int `json:"points"`
}

func (PercentageDiscount) Kind() ActionKind  { return ActionPercentageDiscount }
func (FixedAmountDiscount) Kind() ActionKind { return ActionFixedAmountDiscount }
func (FixedPrice) Kind() ActionKind          { return ActionFixedPrice }
func (FreeTicket) Kind() ActionKind          { return ActionFreeTicket }
func (PointsAward) Kind() ActionKind         { return ActionPointsAward }

func (PercentageDiscount) isAction()  {}
func (FixedAmountDiscount) isAction() {}
func (FixedPrice) isAction()          {}
func (FreeTicket) isAction()          {}
func (PointsAward) isAction()         {}
