package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themepark-backend/internal/domains/promotion/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func totalAmount(r ApplicationResult) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range r.Lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

func TestApplyPromotions_PercentageDiscount(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{Percent: dec("10")})

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{line(adultID, 5, "80")})

	assert.True(t, totalAmount(result).Equal(dec("360")))
	require.Len(t, result.Applied, 1)
	assert.True(t, result.Applied[0].Discount.Equal(dec("40")))
}

func TestApplyPromotions_CompoundsThreePromotions(t *testing.T) {
	p1 := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{Percent: dec("10")})
	p2 := promo("00000000-0000-0000-0000-000000000002", 2, true, nil,
		model.FixedAmountDiscount{Amount: dec("50")})
	p3 := promo("00000000-0000-0000-0000-000000000003", 3, true, nil,
		model.PercentageDiscount{Percent: dec("10")})

	result := ApplyPromotions([]*model.Promotion{p1, p2, p3}, []model.CartLine{line(adultID, 4, "100")})

	// 400 -> 360 -> 310 -> 279
	assert.True(t, totalAmount(result).Equal(dec("279")))
	require.Len(t, result.Applied, 3)
	assert.True(t, result.Applied[0].Discount.Equal(dec("40")))
	assert.True(t, result.Applied[1].Discount.Equal(dec("50")))
	assert.True(t, result.Applied[2].Discount.Equal(dec("31")))
}

func TestApplyPromotions_FixedAmountSpreadsAcrossLines(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.FixedAmountDiscount{Amount: dec("130")})

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{
		line(adultID, 1, "100"),
		line(childID, 1, "40"),
	})

	assert.True(t, result.Lines[0].Amount.IsZero())
	assert.True(t, result.Lines[1].Amount.Equal(dec("10")))
	assert.True(t, result.Applied[0].Discount.Equal(dec("130")))
}

func TestApplyPromotions_FixedAmountNeverNegative(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.FixedAmountDiscount{Amount: dec("500")})

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{line(adultID, 1, "100")})

	assert.True(t, result.Lines[0].Amount.IsZero())
	assert.True(t, result.Applied[0].Discount.Equal(dec("100")))
}

func TestApplyPromotions_TargetedDiscount(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{TargetTicketTypeID: &childID, Percent: dec("50")})

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{
		line(adultID, 2, "100"),
		line(childID, 2, "40"),
	})

	assert.True(t, result.Lines[0].Amount.Equal(dec("200")))
	assert.True(t, result.Lines[1].Amount.Equal(dec("40")))
}

func TestApplyPromotions_FixedPriceIsAbsoluteFloor(t *testing.T) {
	pct := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{Percent: dec("10")})
	fixed := promo("00000000-0000-0000-0000-000000000002", 2, true, nil,
		model.FixedPrice{Price: dec("70")})

	result := ApplyPromotions([]*model.Promotion{pct, fixed}, []model.CartLine{line(adultID, 2, "100")})

	// 200 -> 180 after 10%, then the fixed price sets the line to 2 x 70.
	assert.True(t, result.Lines[0].Amount.Equal(dec("140")))
	assert.True(t, result.Applied[1].Discount.Equal(dec("40")))
}

func TestApplyPromotions_FixedPriceFloorAboveRunningAmountAttributesNoDiscount(t *testing.T) {
	half := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{Percent: dec("50")})
	fixed := promo("00000000-0000-0000-0000-000000000002", 2, true, nil,
		model.FixedPrice{Price: dec("70")})

	result := ApplyPromotions([]*model.Promotion{half, fixed}, []model.CartLine{line(adultID, 2, "100")})

	// 200 -> 100 after 50%, then the floor lifts the line back to 2 x 70.
	assert.True(t, result.Lines[0].Amount.Equal(dec("140")))
	assert.True(t, result.Applied[0].Discount.Equal(dec("100")))
	assert.True(t, result.Applied[1].Discount.IsZero())
}

func TestApplyPromotions_FixedPriceNeverRaisesUnitPrice(t *testing.T) {
	fixed := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.FixedPrice{Price: dec("120")})

	result := ApplyPromotions([]*model.Promotion{fixed}, []model.CartLine{line(adultID, 2, "100")})

	assert.True(t, result.Lines[0].Amount.Equal(dec("200")))
	assert.True(t, result.Applied[0].Discount.IsZero())
}

func TestApplyPromotions_LowestFixedPriceWins(t *testing.T) {
	low := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.FixedPrice{Price: dec("60")})
	high := promo("00000000-0000-0000-0000-000000000002", 2, true, nil,
		model.FixedPrice{Price: dec("90")})

	result := ApplyPromotions([]*model.Promotion{low, high}, []model.CartLine{line(adultID, 1, "100")})

	assert.True(t, result.Lines[0].Amount.Equal(dec("60")))
}

func TestApplyPromotions_FreeTicketAndPoints(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.FreeTicket{TicketTypeID: childID, Quantity: 1},
		model.PointsAward{Points: 150},
		model.PercentageDiscount{Percent: dec("100")},
	)

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{line(adultID, 2, "100")})

	require.Len(t, result.Lines, 2)
	free := result.Lines[1]
	assert.True(t, free.IsFree)
	assert.Equal(t, childID, free.TicketTypeID)
	assert.Equal(t, 1, free.Quantity)
	assert.True(t, free.Amount.IsZero())
	require.NotNil(t, free.SourcePromotionID)
	assert.Equal(t, p.ID, *free.SourcePromotionID)

	assert.Equal(t, 150, result.Points)
	assert.True(t, result.Lines[0].Amount.IsZero())
}

func TestApplyPromotions_PercentClamped(t *testing.T) {
	p := promo("00000000-0000-0000-0000-000000000001", 1, true, nil,
		model.PercentageDiscount{Percent: dec("150")})

	result := ApplyPromotions([]*model.Promotion{p}, []model.CartLine{line(adultID, 1, "100")})

	assert.True(t, result.Lines[0].Amount.IsZero())
}
