package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	visitor "themepark-backend/internal/domains/visitor/model"
)

// Condition is one eligibility requirement of a promotion. The set of
// implementations is closed: every kind is declared in this file.
type Condition interface {
	Kind() ConditionKind
	isCondition()
}

type ConditionKind string

const (
	ConditionMinQuantity ConditionKind = "min_quantity"
	ConditionMinAmount   ConditionKind = "min_amount"
	ConditionVisitorType ConditionKind = "visitor_type"
	ConditionMemberLevel ConditionKind = "member_level"
	ConditionDateRange   ConditionKind = "date_range"
	ConditionDayOfWeek   ConditionKind = "day_of_week"
	ConditionTicketType  ConditionKind = "ticket_type"
	ConditionBirthday    ConditionKind = "birthday"
)

// MinQuantity requires at least Quantity units, counted over TicketTypeID
// when set, else over the promotion's applicable ticket types.
type MinQuantity struct {
	TicketTypeID *uuid.UUID `json:"ticket_type_id,omitempty"`
	Quantity     int        `json:"quantity"`
}

// MinAmount requires the scoped raw subtotal to reach Amount.
type MinAmount struct {
	TicketTypeID *uuid.UUID      `json:"ticket_type_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

type VisitorType struct {
	VisitorType string `json:"visitor_type"`
}

type MemberLevel struct {
	Level visitor.MemberLevel `json:"level"`
}

// DateRange requires the visit date to fall in [From, To).
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type DayOfWeek struct {
	Days []time.Weekday `json:"days"`
}

// TicketType requires the cart to contain the ticket type.
type TicketType struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
}

// Birthday requires the visit date to be the visitor's birthday.
type Birthday struct{}

func (MinQuantity) Kind() ConditionKind { return ConditionMinQuantity }
func (MinAmount) Kind() ConditionKind   { return ConditionMinAmount }
func (VisitorType) Kind() ConditionKind { return ConditionVisitorType }
func (MemberLevel) Kind() ConditionKind { return ConditionMemberLevel }
func (DateRange) Kind() ConditionKind   { return ConditionDateRange }
func (DayOfWeek) Kind() ConditionKind   { return ConditionDayOfWeek }
func (TicketType) Kind() ConditionKind  { return ConditionTicketType }
func (Birthday) Kind() ConditionKind    { return ConditionBirthday }

func (MinQuantity) isCondition() {}
func (MinAmount) isCondition()   {}
func (VisitorType) isCondition() {}
func (MemberLevel) isCondition() {}
func (DateRange) isCondition()   {}
func (DayOfWeek) isCondition()   {}
func (TicketType) isCondition()  {}
func (Birthday) isCondition()    {}

// Contains reports whether day is within [From, To).
func (c DateRange) Contains(day time.Time) bool {
	return !day.Before(c.From) && day.Before(c.To)
}

func (c DayOfWeek) Allows(day time.Time) bool {
	for _, d := range c.Days {
		if d == day.Weekday() {
			return true
		}
	}
	return false
}

// IsBirthday compares month and day. A Feb 29 birthday falls on Feb 28 in
// non-leap years.
func IsBirthday(birthDate, day time.Time) bool {
	month, dom := birthDate.Month(), birthDate.Day()
	if month == time.February && dom == 29 && !isLeap(day.Year()) {
		dom = 28
	}
	return day.Month() == month && day.Day() == dom
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
