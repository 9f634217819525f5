package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "themepark-backend/internal/domains/catalog/model"
	catalogrepo "themepark-backend/internal/domains/catalog/repository"
	"themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/domains/promotion/repository"
	"themepark-backend/internal/shared/apperror"
)

func newPromotionService(t *testing.T) (*promotionService, *catalog.TicketType) {
	t.Helper()
	tickets := catalogrepo.NewMemoryRepository()
	tt := &catalog.TicketType{ID: uuid.New(), Name: "Adult", BasePrice: dec("100"), ApplicableCrowd: "adult", IsActive: true}
	require.NoError(t, tickets.CreateTicketType(context.Background(), tt))

	svc := NewPromotionService(repository.NewMemoryRepository(), tickets).(*promotionService)
	svc.now = func() time.Time { return visitDay }
	return svc, tt
}

func rawSpec(t *testing.T, kind string, params interface{}) model.RuleSpec {
	t.Helper()
	b, err := json.Marshal(params)
	require.NoError(t, err)
	return model.RuleSpec{Kind: kind, Params: b}
}

func createRequest(t *testing.T, target uuid.UUID) *model.CreatePromotionRequest {
	return &model.CreatePromotionRequest{
		Code:     "summer10",
		Name:     "Summer ten percent",
		Type:     model.TypePercentage,
		StartsAt: visitDay.AddDate(0, -1, 0),
		EndsAt:   visitDay.AddDate(0, 1, 0),
		Conditions: []model.RuleSpec{
			rawSpec(t, "min_quantity", map[string]interface{}{"quantity": 2}),
		},
		Actions: []model.RuleSpec{
			rawSpec(t, "percentage_discount", map[string]interface{}{"percent": "10", "target_ticket_type_id": target}),
		},
	}
}

func TestCreatePromotion_DecodesRules(t *testing.T) {
	svc, tt := newPromotionService(t)

	promo, err := svc.CreatePromotion(context.Background(), createRequest(t, tt.ID))
	require.NoError(t, err)

	assert.Equal(t, "SUMMER10", promo.Code)
	require.Len(t, promo.Conditions, 1)
	assert.Equal(t, model.MinQuantity{Quantity: 2}, promo.Conditions[0])
	require.Len(t, promo.Actions, 1)
	action, ok := promo.Actions[0].(model.PercentageDiscount)
	require.True(t, ok)
	assert.Equal(t, tt.ID, *action.TargetTicketTypeID)

	body, err := json.Marshal(promo)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"kind":"percentage_discount"`)
}

func TestCreatePromotion_UnknownTicketTypeRejected(t *testing.T) {
	svc, _ := newPromotionService(t)

	_, err := svc.CreatePromotion(context.Background(), createRequest(t, uuid.New()))

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreatePromotion_UnknownKindRejected(t *testing.T) {
	svc, tt := newPromotionService(t)
	req := createRequest(t, tt.ID)
	req.Actions = append(req.Actions, model.RuleSpec{Kind: "cashback", Params: json.RawMessage(`{}`)})

	_, err := svc.CreatePromotion(context.Background(), req)

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreatePromotion_DuplicateCode(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()

	_, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)
	_, err = svc.CreatePromotion(ctx, createRequest(t, tt.ID))

	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestUpdatePromotionStatus_VersionGuard(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()
	promo, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)

	updated, err := svc.UpdatePromotionStatus(ctx, promo.ID, &model.UpdatePromotionStatusRequest{IsActive: false, Version: 0})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 1, updated.Version)

	_, err = svc.UpdatePromotionStatus(ctx, promo.ID, &model.UpdatePromotionStatusRequest{IsActive: true, Version: 0})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	active, err := svc.ListActivePromotions(ctx, visitDay)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGetPromotionByID_NotFound(t *testing.T) {
	svc, _ := newPromotionService(t)

	_, err := svc.GetPromotionByID(context.Background(), uuid.New())

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestUpdatePromotion_OverlaysFieldsAndBumpsVersion(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()
	promo, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)

	name := "Summer fifteen percent"
	limit := 50
	combinable := true
	updated, err := svc.UpdatePromotion(ctx, promo.ID, &model.UpdatePromotionRequest{
		Name:            &name,
		TotalUsageLimit: &limit,
		IsCombinable:    &combinable,
		Version:         0,
	})
	require.NoError(t, err)

	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 50, *updated.TotalUsageLimit)
	assert.True(t, updated.IsCombinable)
	assert.Equal(t, "SUMMER10", updated.Code)
	assert.Equal(t, promo.StartsAt, updated.StartsAt)
	assert.Len(t, updated.Conditions, 1)
	assert.Equal(t, 1, updated.Version)

	_, err = svc.UpdatePromotion(ctx, promo.ID, &model.UpdatePromotionRequest{Name: &name, Version: 0})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestUpdatePromotion_RejectsInvertedWindow(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()
	promo, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)

	endsBeforeStart := promo.StartsAt.Add(-time.Hour)
	_, err = svc.UpdatePromotion(ctx, promo.ID, &model.UpdatePromotionRequest{EndsAt: &endsBeforeStart})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	unknown := []uuid.UUID{uuid.New()}
	_, err = svc.UpdatePromotion(ctx, promo.ID, &model.UpdatePromotionRequest{ApplicableTicketTypeIDs: &unknown})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	stored, err := svc.GetPromotionByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Version)
}

func TestDeletePromotion(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()

	unused, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)
	require.NoError(t, svc.DeletePromotion(ctx, unused.ID))

	_, err = svc.GetPromotionByID(ctx, unused.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(svc.DeletePromotion(ctx, unused.ID)))

	redeemed, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)
	require.NoError(t, svc.repo.CreateUsagesWithTx(ctx, nil, []*model.PromotionUsage{{
		ID:            uuid.New(),
		ReservationID: uuid.New(),
		PromotionID:   redeemed.ID,
		VisitorID:     uuid.New(),
		Released:      true,
		UsedAt:        visitDay,
	}}))

	err = svc.DeletePromotion(ctx, redeemed.ID)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, model.ErrCodePromotionInUse, appErr.Code)
}

func TestConditionEditing(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()
	promo, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)

	promo, err = svc.AddCondition(ctx, promo.ID, &model.RuleRequest{
		Rule:    rawSpec(t, "visitor_type", map[string]interface{}{"visitor_type": "student"}),
		Version: 0,
	})
	require.NoError(t, err)
	require.Len(t, promo.Conditions, 2)
	assert.Equal(t, model.VisitorType{VisitorType: "student"}, promo.Conditions[1])

	promo, err = svc.UpdateCondition(ctx, promo.ID, 0, &model.RuleRequest{
		Rule:    rawSpec(t, "min_quantity", map[string]interface{}{"quantity": 4}),
		Version: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MinQuantity{Quantity: 4}, promo.Conditions[0])

	promo, err = svc.RemoveCondition(ctx, promo.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, promo.Conditions, 1)
	assert.Equal(t, model.VisitorType{VisitorType: "student"}, promo.Conditions[0])
	assert.Equal(t, 3, promo.Version)

	_, err = svc.RemoveCondition(ctx, promo.ID, 5, 3)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrCodeRuleNotFound, appErr.Code)

	_, err = svc.AddCondition(ctx, promo.ID, &model.RuleRequest{
		Rule:    rawSpec(t, "min_quantity", map[string]interface{}{"quantity": 0}),
		Version: 3,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.AddCondition(ctx, promo.ID, &model.RuleRequest{Rule: model.RuleSpec{Kind: "birthday"}, Version: 2})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestActionEditing_LastActionStays(t *testing.T) {
	svc, tt := newPromotionService(t)
	ctx := context.Background()
	created, err := svc.CreatePromotion(ctx, createRequest(t, tt.ID))
	require.NoError(t, err)
	id := created.ID

	promo, err := svc.AddAction(ctx, id, &model.RuleRequest{
		Rule:    rawSpec(t, "points_award", map[string]interface{}{"points": 200}),
		Version: 0,
	})
	require.NoError(t, err)
	require.Len(t, promo.Actions, 2)

	// free ticket of a type the catalogue does not know
	_, err = svc.UpdateAction(ctx, id, 1, &model.RuleRequest{
		Rule:    rawSpec(t, "free_ticket", map[string]interface{}{"ticket_type_id": uuid.New(), "quantity": 1}),
		Version: 1,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	promo, err = svc.RemoveAction(ctx, id, 0, 1)
	require.NoError(t, err)
	require.Len(t, promo.Actions, 1)
	assert.Equal(t, model.PointsAward{Points: 200}, promo.Actions[0])

	_, err = svc.RemoveAction(ctx, id, 0, 2)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	stored, err := svc.GetPromotionByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.Actions, 1)
	assert.Equal(t, 2, stored.Version)
}
