package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/catalog/repository"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/pkg/database/dbtest"
)

func newTestService(t *testing.T) (*catalogService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	svc := NewCatalogService(repo, dbtest.NewSerialTxManager()).(*catalogService)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func createAdult(t *testing.T, svc Service) *model.TicketType {
	t.Helper()
	tt, err := svc.CreateTicketType(context.Background(), model.CreateTicketTypeRequest{
		Name:            "Adult Day Pass",
		BasePrice:       decimal.RequireFromString("100.00"),
		ApplicableCrowd: "adult",
	})
	require.NoError(t, err)
	return tt
}

func TestCreateTicketType_DuplicateNameIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	createAdult(t, svc)

	_, err := svc.CreateTicketType(context.Background(), model.CreateTicketTypeRequest{
		Name:            "Adult Day Pass",
		BasePrice:       decimal.NewFromInt(90),
		ApplicableCrowd: "adult",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestUpdateBasePrice_WritesHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tt := createAdult(t, svc)
	admin := uuid.New()

	updated, err := svc.UpdateBasePrice(ctx, admin, tt.ID, model.UpdateBasePriceRequest{
		BasePrice: decimal.RequireFromString("120.50"),
		Reason:    "summer season",
	})
	require.NoError(t, err)
	assert.True(t, updated.BasePrice.Equal(decimal.RequireFromString("120.50")))

	history, err := svc.ListPriceHistory(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].OldPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, history[0].NewPrice.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, admin, history[0].ChangedBy)
	assert.Equal(t, "summer season", history[0].Reason)
}

func TestUpdateBasePrice_UnchangedPriceSkipsHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tt := createAdult(t, svc)

	_, err := svc.UpdateBasePrice(ctx, uuid.New(), tt.ID, model.UpdateBasePriceRequest{
		BasePrice: decimal.NewFromInt(100),
		Reason:    "no-op",
	})
	require.NoError(t, err)

	history, err := svc.ListPriceHistory(ctx, tt.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateBasePrice_UnknownTicketType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateBasePrice(context.Background(), uuid.New(), uuid.New(), model.UpdateBasePriceRequest{
		BasePrice: decimal.NewFromInt(10),
		Reason:    "missing",
	})

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestPriceRules_CreateListDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tt := createAdult(t, svc)
	minQty := 10

	rule, err := svc.CreatePriceRule(ctx, tt.ID, model.CreatePriceRuleRequest{
		Name:           "Group rate",
		Priority:       1,
		EffectiveStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		MinQuantity:    &minQty,
		Price:          decimal.NewFromInt(80),
	})
	require.NoError(t, err)

	rules, err := svc.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)

	require.NoError(t, svc.DeletePriceRule(ctx, rule.ID))
	err = svc.DeletePriceRule(ctx, rule.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreatePriceRule_UnknownTicketType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreatePriceRule(context.Background(), uuid.New(), model.CreatePriceRuleRequest{
		Name:           "Orphan",
		EffectiveStart: time.Now(),
		EffectiveEnd:   time.Now().Add(time.Hour),
		Price:          decimal.NewFromInt(1),
	})

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func createGroupRule(t *testing.T, svc Service, ticketTypeID uuid.UUID) *model.PriceRule {
	t.Helper()
	rule, err := svc.CreatePriceRule(context.Background(), ticketTypeID, model.CreatePriceRuleRequest{
		Name:           "Group rate",
		Priority:       1,
		EffectiveStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEnd:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Price:          decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	return rule
}

func TestUpdatePriceRule_MergesChangedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tt := createAdult(t, svc)
	rule := createGroupRule(t, svc, tt.ID)

	name := "Late summer group rate"
	price := decimal.RequireFromString("72.499")
	end := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	updated, err := svc.UpdatePriceRule(ctx, rule.ID, model.UpdatePriceRuleRequest{
		Name:         &name,
		Price:        &price,
		EffectiveEnd: &end,
	})
	require.NoError(t, err)

	assert.Equal(t, name, updated.Name)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("72.50")))
	assert.Equal(t, end, updated.EffectiveEnd)
	assert.Equal(t, rule.EffectiveStart, updated.EffectiveStart)
	assert.Equal(t, 1, updated.Priority)
	assert.Equal(t, tt.ID, updated.TicketTypeID)

	rules, err := svc.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, name, rules[0].Name)
}

func TestUpdatePriceRule_RejectsInvalidMergedRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tt := createAdult(t, svc)
	rule := createGroupRule(t, svc, tt.ID)

	negative := decimal.NewFromInt(-1)
	startAfterEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	minQty, maxQty := 10, 5

	tests := []struct {
		name string
		req  model.UpdatePriceRuleRequest
	}{
		{"negative price", model.UpdatePriceRuleRequest{Price: &negative}},
		{"start equals end", model.UpdatePriceRuleRequest{EffectiveStart: &startAfterEnd}},
		{"max below min", model.UpdatePriceRuleRequest{MinQuantity: &minQty, MaxQuantity: &maxQty}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdatePriceRule(ctx, rule.ID, tc.req)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}

	stored, err := svc.ListPriceRules(ctx, tt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Price.Equal(decimal.NewFromInt(80)))
	assert.Nil(t, stored[0].MinQuantity)
}

func TestUpdatePriceRule_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	name := "Ghost"

	_, err := svc.UpdatePriceRule(context.Background(), uuid.New(), model.UpdatePriceRuleRequest{Name: &name})

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
