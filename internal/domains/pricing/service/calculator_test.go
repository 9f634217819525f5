package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	visitor "themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/shared/apperror"
)

func childType() *catalog.TicketType {
	return &catalog.TicketType{
		ID:              uuid.MustParse("00000000-0000-0000-0000-00000000000c"),
		Name:            "Child",
		BasePrice:       dec("40"),
		ApplicableCrowd: "child",
		IsActive:        true,
	}
}

func testPromotion(code string, priority int, combinable bool, actions ...promotion.Action) *promotion.Promotion {
	return &promotion.Promotion{
		ID:              uuid.New(),
		Code:            code,
		Name:            code,
		Type:            promotion.TypePercentage,
		StartsAt:        visitDay.AddDate(0, -1, 0),
		EndsAt:          visitDay.AddDate(0, 1, 0),
		IsCombinable:    combinable,
		DisplayPriority: priority,
		IsActive:        true,
		Actions:         actions,
		Version:         1,
	}
}

func baseCalculation(types ...*catalog.TicketType) CalculationInput {
	byID := make(map[uuid.UUID]*catalog.TicketType, len(types))
	for _, tt := range types {
		byID[tt.ID] = tt
	}
	return CalculationInput{
		VisitDate:   visitDay,
		Today:       today,
		TicketTypes: byID,
		Visitor:     visitor.VisitorContext{VisitorID: uuid.New(), VisitorType: "regular"},
		UserUsage:   map[uuid.UUID]int{},
	}
}

func requireKind(t *testing.T, err error, kind apperror.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, code, appErr.Code)
}

func TestCalculate_RulePriceWithPercentagePromotion(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 5}}
	in.Rules = []*catalog.PriceRule{rule(adult, "summer", 1, nil, nil, "80")}
	in.Promotions = []*promotion.Promotion{
		testPromotion("TEN", 1, true, promotion.PercentageDiscount{Percent: dec("10")}),
	}

	cart, err := Calculate(in)
	require.NoError(t, err)

	assert.True(t, cart.Subtotal.Equal(dec("400")))
	assert.True(t, cart.Discount.Equal(dec("40")))
	assert.True(t, cart.Total.Equal(dec("360")))

	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("80")))
	assert.Equal(t, in.Rules[0].ID, *cart.Lines[0].PriceRuleID)
	assert.True(t, cart.Lines[0].LineTotal.Equal(dec("360")))

	require.Len(t, cart.AppliedPromotions, 1)
	assert.Equal(t, "TEN", cart.AppliedPromotions[0].Code)
	assert.Equal(t, in.Promotions[0].ID, *cart.FirstPromotionID())
}

func TestCalculate_NoPromotions(t *testing.T) {
	adult, child := adultType(), childType()
	in := baseCalculation(adult, child)
	in.Items = []model.ItemRequest{
		{TicketTypeID: adult.ID, Quantity: 2},
		{TicketTypeID: child.ID, Quantity: 1},
	}

	cart, err := Calculate(in)
	require.NoError(t, err)

	assert.True(t, cart.Subtotal.Equal(dec("240")))
	assert.True(t, cart.Discount.IsZero())
	assert.True(t, cart.Total.Equal(dec("240")))
	assert.Nil(t, cart.FirstPromotionID())
	assert.Nil(t, cart.Lines[0].PriceRuleID)
}

func TestCalculate_MergesDuplicateTicketTypesBeforePricing(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{
		{TicketTypeID: adult.ID, Quantity: 2},
		{TicketTypeID: adult.ID, Quantity: 3},
	}
	in.Rules = []*catalog.PriceRule{rule(adult, "group", 1, intPtr(5), nil, "70")}

	cart, err := Calculate(in)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("70")))
	assert.True(t, cart.Total.Equal(dec("350")))
}

func TestCalculate_TotalNeverNegative(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}}
	in.Promotions = []*promotion.Promotion{
		testPromotion("BIG", 1, true, promotion.FixedAmountDiscount{Amount: dec("500")}),
	}

	cart, err := Calculate(in)
	require.NoError(t, err)

	assert.True(t, cart.Total.IsZero())
	assert.True(t, cart.Discount.Equal(cart.Subtotal))
}

func TestCalculate_FreeTicketAddsZeroPricedLine(t *testing.T) {
	adult, child := adultType(), childType()
	in := baseCalculation(adult, child)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 2}}
	free := testPromotion("KIDFREE", 1, true,
		promotion.FreeTicket{TicketTypeID: child.ID, Quantity: 1},
		promotion.PointsAward{Points: 50})
	in.Promotions = []*promotion.Promotion{free}

	cart, err := Calculate(in)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	freeLine := cart.Lines[1]
	assert.True(t, freeLine.IsFree)
	assert.Equal(t, "Child", freeLine.TicketTypeName)
	assert.True(t, freeLine.LineTotal.IsZero())
	assert.Equal(t, free.ID, *freeLine.SourcePromotionID)
	assert.True(t, cart.Subtotal.Equal(dec("200")))
	assert.True(t, cart.Total.Equal(dec("200")))
	assert.Equal(t, 50, cart.Points)
}

func TestCalculate_UnknownFreeTicketTargetIsNotFound(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}}
	in.Promotions = []*promotion.Promotion{
		testPromotion("GHOST", 1, true, promotion.FreeTicket{TicketTypeID: uuid.New(), Quantity: 1}),
	}

	_, err := Calculate(in)
	requireKind(t, err, apperror.KindNotFound, model.ErrCodeTicketTypeNotFound)
}

func TestCalculate_RejectsInvalidCarts(t *testing.T) {
	adult := adultType()
	inactive := childType()
	inactive.IsActive = false

	cases := []struct {
		name  string
		items []model.ItemRequest
		visit func(*CalculationInput)
		kind  apperror.Kind
		code  string
	}{
		{
			name: "empty cart",
			kind: apperror.KindValidation,
			code: model.ErrCodeEmptyCart,
		},
		{
			name:  "zero quantity",
			items: []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 0}},
			kind:  apperror.KindValidation,
			code:  model.ErrCodeInvalidQuantity,
		},
		{
			name:  "negative quantity",
			items: []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: -2}},
			kind:  apperror.KindValidation,
			code:  model.ErrCodeInvalidQuantity,
		},
		{
			name:  "past visit date",
			items: []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}},
			visit: func(in *CalculationInput) { in.VisitDate = today.AddDate(0, 0, -1) },
			kind:  apperror.KindValidation,
			code:  model.ErrCodeVisitDateInPast,
		},
		{
			name:  "unknown ticket type",
			items: []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}, {TicketTypeID: uuid.New(), Quantity: 1}},
			kind:  apperror.KindNotFound,
			code:  model.ErrCodeTicketTypeNotFound,
		},
		{
			name:  "inactive ticket type",
			items: []model.ItemRequest{{TicketTypeID: inactive.ID, Quantity: 1}},
			kind:  apperror.KindValidation,
			code:  model.ErrCodeTicketTypeInactive,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseCalculation(adult, inactive)
			in.Items = tc.items
			if tc.visit != nil {
				tc.visit(&in)
			}

			cart, err := Calculate(in)
			assert.Nil(t, cart)
			requireKind(t, err, tc.kind, tc.code)
		})
	}
}

func TestCalculate_VisitTodayIsAllowed(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.VisitDate = today
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}}

	_, err := Calculate(in)
	assert.NoError(t, err)
}

func TestCalculate_RequiredPromotionMustQualify(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}}
	group := testPromotion("GROUP", 1, true, promotion.PercentageDiscount{Percent: dec("20")})
	group.Conditions = []promotion.Condition{promotion.MinQuantity{Quantity: 4}}
	in.Promotions = []*promotion.Promotion{group}
	in.RequiredPromotionID = &group.ID

	_, err := Calculate(in)
	requireKind(t, err, apperror.KindValidation, model.ErrCodePromotionNotEligible)
	assert.Contains(t, err.Error(), string(promotion.ReasonMinQuantityNotMet))
}

func TestCalculate_ReportsRejectedPromotionsWithoutFailing(t *testing.T) {
	adult := adultType()
	in := baseCalculation(adult)
	in.Items = []model.ItemRequest{{TicketTypeID: adult.ID, Quantity: 1}}
	group := testPromotion("GROUP", 1, true, promotion.PercentageDiscount{Percent: dec("20")})
	group.Conditions = []promotion.Condition{promotion.MinQuantity{Quantity: 4}}
	in.Promotions = []*promotion.Promotion{group}

	cart, err := Calculate(in)
	require.NoError(t, err)

	assert.Empty(t, cart.AppliedPromotions)
	require.Len(t, cart.Rejected, 1)
	assert.Equal(t, promotion.ReasonMinQuantityNotMet, cart.Rejected[0].Reason)
	assert.True(t, cart.Total.Equal(dec("100")))
}
