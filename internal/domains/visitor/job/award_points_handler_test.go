package job

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/domains/visitor/repository"
	"themepark-backend/internal/shared"
)

func task(t *testing.T, payload model.AwardPointsPayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(shared.TypeAwardPoints, b)
}

func TestAwardPointsHandler_IsIdempotent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	visitorID := uuid.New()
	repo.Put(model.VisitorContext{VisitorID: visitorID, VisitorType: "regular", MemberLevel: model.MemberLevelBronze})
	h := NewAwardPointsHandler(repo)

	payload := model.AwardPointsPayload{
		VisitorID:     visitorID.String(),
		ReservationID: uuid.NewString(),
		Points:        120,
	}

	require.NoError(t, h.ProcessTask(context.Background(), task(t, payload)))
	require.NoError(t, h.ProcessTask(context.Background(), task(t, payload)))

	assert.Equal(t, 120, repo.Balance(visitorID))
}

func TestAwardPointsHandler_UnknownVisitorSkipsRetry(t *testing.T) {
	h := NewAwardPointsHandler(repository.NewMemoryRepository())

	err := h.ProcessTask(context.Background(), task(t, model.AwardPointsPayload{
		VisitorID:     uuid.NewString(),
		ReservationID: uuid.NewString(),
		Points:        10,
	}))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAwardPointsHandler_BadPayload(t *testing.T) {
	h := NewAwardPointsHandler(repository.NewMemoryRepository())

	err := h.ProcessTask(context.Background(), task(t, model.AwardPointsPayload{VisitorID: "nope", ReservationID: uuid.NewString(), Points: 1}))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}
