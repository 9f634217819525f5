package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/pkg/cache"
)

func seedTicketType(t *testing.T, repo *MemoryRepository) *model.TicketType {
	t.Helper()
	tt := &model.TicketType{
		ID:              uuid.New(),
		Name:            "Child Day Pass",
		BasePrice:       decimal.NewFromInt(40),
		ApplicableCrowd: "child",
		IsActive:        true,
	}
	require.NoError(t, repo.CreateTicketType(context.Background(), tt))
	return tt
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepository()
	tt := seedTicketType(t, inner)
	repo := NewCachedRepository(inner, cache.NewMemoryCache(), time.Minute)

	first, err := repo.GetTicketType(ctx, tt.ID)
	require.NoError(t, err)
	second, err := repo.GetTicketType(ctx, tt.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.Reads)
	assert.True(t, first.BasePrice.Equal(second.BasePrice))
}

func TestCachedRepository_EmptyRuleListIsCached(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepository()
	tt := seedTicketType(t, inner)
	repo := NewCachedRepository(inner, cache.NewMemoryCache(), time.Minute)

	for i := 0; i < 3; i++ {
		rules, err := repo.ListPriceRulesFor(ctx, []uuid.UUID{tt.ID})
		require.NoError(t, err)
		assert.Empty(t, rules)
	}
	assert.Equal(t, 1, inner.Reads)
}

func TestCachedRepository_RuleWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepository()
	tt := seedTicketType(t, inner)
	repo := NewCachedRepository(inner, cache.NewMemoryCache(), time.Minute)

	_, err := repo.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)

	rule := &model.PriceRule{
		ID:             uuid.New(),
		TicketTypeID:   tt.ID,
		Name:           "Weekend",
		EffectiveStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		Price:          decimal.NewFromInt(35),
	}
	require.NoError(t, repo.CreatePriceRule(ctx, rule))

	rules, err := repo.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	_, err = repo.DeletePriceRule(ctx, rule.ID)
	require.NoError(t, err)

	rules, err = repo.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestCachedRepository_RuleUpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepository()
	tt := seedTicketType(t, inner)
	repo := NewCachedRepository(inner, cache.NewMemoryCache(), time.Minute)

	rule := &model.PriceRule{
		ID:             uuid.New(),
		TicketTypeID:   tt.ID,
		Name:           "Weekend",
		EffectiveStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		Price:          decimal.NewFromInt(35),
	}
	require.NoError(t, repo.CreatePriceRule(ctx, rule))

	rules, err := repo.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	loaded, err := repo.GetPriceRule(ctx, rule.ID)
	require.NoError(t, err)
	loaded.Price = decimal.NewFromInt(30)
	require.NoError(t, repo.UpdatePriceRule(ctx, loaded))

	rules, err = repo.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Price.Equal(decimal.NewFromInt(30)))

	_, err = repo.GetPriceRule(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrPriceRuleNotFound)
}

func TestCachedRepository_InvalidateRefreshesTicketType(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryRepository()
	tt := seedTicketType(t, inner)
	repo := NewCachedRepository(inner, cache.NewMemoryCache(), time.Minute)

	_, err := repo.GetTicketType(ctx, tt.ID)
	require.NoError(t, err)

	tt.BasePrice = decimal.NewFromInt(45)
	require.NoError(t, repo.UpdateBasePriceWithTx(ctx, nil, tt, &model.PriceHistory{ID: uuid.New(), TicketTypeID: tt.ID}))
	repo.Invalidate(ctx, tt.ID)

	got, err := repo.GetTicketType(ctx, tt.ID)
	require.NoError(t, err)
	assert.True(t, got.BasePrice.Equal(decimal.NewFromInt(45)))
}
