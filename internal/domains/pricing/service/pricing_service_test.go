package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "themepark-backend/internal/domains/catalog/model"
	catalogrepo "themepark-backend/internal/domains/catalog/repository"
	"themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	promotionrepo "themepark-backend/internal/domains/promotion/repository"
	visitor "themepark-backend/internal/domains/visitor/model"
	visitorrepo "themepark-backend/internal/domains/visitor/repository"
	"themepark-backend/internal/shared/apperror"
)

type pricingFixture struct {
	svc        *pricingService
	catalog    *catalogrepo.MemoryRepository
	promotions *promotionrepo.MemoryRepository
	visitors   *visitorrepo.MemoryRepository
	adult      *catalog.TicketType
	child      *catalog.TicketType
	visitorID  uuid.UUID
}

func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()
	ctx := context.Background()

	f := &pricingFixture{
		catalog:    catalogrepo.NewMemoryRepository(),
		promotions: promotionrepo.NewMemoryRepository(),
		visitors:   visitorrepo.NewMemoryRepository(),
		adult:      adultType(),
		child:      childType(),
		visitorID:  uuid.New(),
	}
	require.NoError(t, f.catalog.CreateTicketType(ctx, f.adult))
	require.NoError(t, f.catalog.CreateTicketType(ctx, f.child))
	f.visitors.Put(visitor.VisitorContext{
		VisitorID:   f.visitorID,
		VisitorType: "regular",
		MemberLevel: visitor.MemberLevelGold,
	})

	f.svc = NewPricingService(f.catalog, f.promotions, f.visitors).(*pricingService)
	f.svc.now = func() time.Time { return today.Add(9 * time.Hour) }
	return f
}

func (f *pricingFixture) addPromotion(t *testing.T, p *promotion.Promotion) {
	t.Helper()
	require.NoError(t, f.promotions.Create(context.Background(), p))
}

func TestCalculatePrice_AppliesActivePromotions(t *testing.T) {
	f := newPricingFixture(t)
	require.NoError(t, f.catalog.CreatePriceRule(context.Background(), rule(f.adult, "summer", 1, nil, nil, "80")))
	f.addPromotion(t, testPromotion("TEN", 1, true, promotion.PercentageDiscount{Percent: dec("10")}))

	cart, err := f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate: "2026-07-04",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	assert.True(t, cart.Subtotal.Equal(dec("400")))
	assert.True(t, cart.Discount.Equal(dec("40")))
	assert.True(t, cart.Total.Equal(dec("360")))
}

func TestCalculatePrice_UsesVisitorContext(t *testing.T) {
	f := newPricingFixture(t)
	gold := testPromotion("GOLD", 1, true, promotion.FixedAmountDiscount{Amount: dec("15")})
	gold.Conditions = []promotion.Condition{promotion.MemberLevel{Level: visitor.MemberLevelGold}}
	f.addPromotion(t, gold)

	req := &model.CalculatePriceRequest{
		VisitDate: "2026-07-04",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
	}

	cart, err := f.svc.CalculatePrice(context.Background(), f.visitorID, req)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(dec("85")))

	// unknown visitors price with an empty context
	cart, err = f.svc.CalculatePrice(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(dec("100")))
	require.Len(t, cart.Rejected, 1)
	assert.Equal(t, promotion.ReasonMemberLevelMismatch, cart.Rejected[0].Reason)
}

func TestCalculatePrice_HonoursPerUserLimit(t *testing.T) {
	f := newPricingFixture(t)
	once := testPromotion("ONCE", 1, true, promotion.PercentageDiscount{Percent: dec("50")})
	once.UsageLimitPerUser = intPtr(1)
	f.addPromotion(t, once)

	require.NoError(t, f.promotions.CreateUsagesWithTx(context.Background(), nil, []*promotion.PromotionUsage{{
		ID:             uuid.New(),
		ReservationID:  uuid.New(),
		PromotionID:    once.ID,
		VisitorID:      f.visitorID,
		DiscountAmount: dec("50"),
		UsedAt:         today,
	}}))

	cart, err := f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate: "2026-07-04",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, cart.Total.Equal(dec("100")))
	require.Len(t, cart.Rejected, 1)
	assert.Equal(t, promotion.ReasonUserLimitReached, cart.Rejected[0].Reason)
}

func TestCalculatePrice_RequestedPromotion(t *testing.T) {
	f := newPricingFixture(t)
	ten := testPromotion("TEN", 1, true, promotion.PercentageDiscount{Percent: dec("10")})
	twenty := testPromotion("TWENTY", 2, true, promotion.PercentageDiscount{Percent: dec("20")})
	f.addPromotion(t, ten)
	f.addPromotion(t, twenty)

	cart, err := f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate:   "2026-07-04",
		Items:       []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
		PromotionID: &twenty.ID,
	})
	require.NoError(t, err)

	require.Len(t, cart.AppliedPromotions, 1)
	assert.Equal(t, "TWENTY", cart.AppliedPromotions[0].Code)
	assert.True(t, cart.Total.Equal(dec("80")))

	missing := uuid.New()
	_, err = f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate:   "2026-07-04",
		Items:       []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
		PromotionID: &missing,
	})
	requireKind(t, err, apperror.KindNotFound, model.ErrCodePromotionNotFound)
}

func TestCalculatePrice_LoadsFreeTicketTargets(t *testing.T) {
	f := newPricingFixture(t)
	f.addPromotion(t, testPromotion("KIDFREE", 1, true, promotion.FreeTicket{TicketTypeID: f.child.ID, Quantity: 2}))

	cart, err := f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate: "2026-07-04",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, f.child.ID, cart.Lines[1].TicketTypeID)
	assert.Equal(t, 2, cart.Lines[1].Quantity)
	assert.True(t, cart.Total.Equal(dec("100")))
}

func TestCalculateWithTicketTypes_PrefersCallerTicketTypes(t *testing.T) {
	f := newPricingFixture(t)
	locked := *f.adult
	locked.BasePrice = dec("95")

	cart, err := f.svc.CalculateWithTicketTypes(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate: "2026-07-04",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 2}},
	}, map[uuid.UUID]*catalog.TicketType{locked.ID: &locked})
	require.NoError(t, err)

	assert.True(t, cart.Total.Equal(dec("190")))
}

func TestCalculatePrice_InvalidVisitDate(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.svc.CalculatePrice(context.Background(), f.visitorID, &model.CalculatePriceRequest{
		VisitDate: "04/07/2026",
		Items:     []model.ItemRequest{{TicketTypeID: f.adult.ID, Quantity: 1}},
	})
	requireKind(t, err, apperror.KindValidation, model.ErrCodeInvalidVisitDate)
}

func TestQuoteTicketType(t *testing.T) {
	f := newPricingFixture(t)
	group := rule(f.adult, "group", 1, intPtr(10), nil, "70")
	require.NoError(t, f.catalog.CreatePriceRule(context.Background(), group))

	quote, err := f.svc.QuoteTicketType(context.Background(), f.adult.ID, 10, visitDay)
	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(dec("70")))
	assert.True(t, quote.Subtotal.Equal(dec("700")))
	assert.True(t, quote.BasePrice.Equal(dec("100")))
	require.NotNil(t, quote.PriceRuleName)
	assert.Equal(t, "group", *quote.PriceRuleName)

	quote, err = f.svc.QuoteTicketType(context.Background(), f.adult.ID, 2, visitDay)
	require.NoError(t, err)
	assert.True(t, quote.UnitPrice.Equal(dec("100")))
	assert.Nil(t, quote.PriceRuleID)

	_, err = f.svc.QuoteTicketType(context.Background(), uuid.New(), 1, visitDay)
	requireKind(t, err, apperror.KindNotFound, model.ErrCodeTicketTypeNotFound)

	_, err = f.svc.QuoteTicketType(context.Background(), f.adult.ID, 0, visitDay)
	requireKind(t, err, apperror.KindValidation, model.ErrCodeInvalidQuantity)

	_, err = f.svc.QuoteTicketType(context.Background(), f.adult.ID, 1, today.AddDate(0, 0, -1))
	requireKind(t, err, apperror.KindValidation, model.ErrCodeVisitDateInPast)
}
