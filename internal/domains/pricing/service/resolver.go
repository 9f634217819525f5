package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalog "themepark-backend/internal/domains/catalog/model"
)

// ResolvedPrice is the unit price chosen for one ticket type. Rule is nil
// when the base price applies.
type ResolvedPrice struct {
	UnitPrice decimal.Decimal
	Rule      *catalog.PriceRule
}

func (r ResolvedPrice) RuleID() *uuid.UUID {
	if r.Rule == nil {
		return nil
	}
	id := r.Rule.ID
	return &id
}

// ResolveUnitPrice picks the price rule for a ticket type, quantity and date.
//
// A rule matches when its [start, end) range contains the date and its
// optional [min, max] range contains the quantity. Among matches:
// 1. lowest priority value
// 2. narrowest quantity span (missing max is infinite, missing min is 0)
// 3. latest created_at
// 4. id
// No match falls back to the base price.
func ResolveUnitPrice(tt *catalog.TicketType, rules []*catalog.PriceRule, quantity int, date time.Time) ResolvedPrice {
	var matches []*catalog.PriceRule
	for _, rule := range rules {
		if rule.TicketTypeID != tt.ID {
			continue
		}
		if !rule.Covers(date) || !rule.AcceptsQuantity(quantity) {
			continue
		}
		matches = append(matches, rule)
	}

	if len(matches) == 0 {
		return ResolvedPrice{UnitPrice: tt.BasePrice}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if sa, sb := quantitySpan(a), quantitySpan(b); sa != sb {
			return sa < sb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return ResolvedPrice{UnitPrice: matches[0].Price, Rule: matches[0]}
}

func quantitySpan(rule *catalog.PriceRule) int64 {
	if rule.MaxQuantity == nil {
		return math.MaxInt64
	}
	low := 0
	if rule.MinQuantity != nil {
		low = *rule.MinQuantity
	}
	return int64(*rule.MaxQuantity - low)
}
