package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/domains/visitor/repository"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/logger"
)

// AwardPointsHandler credits loyalty points after a reservation is paid.
type AwardPointsHandler struct {
	repo repository.Repository
}

func NewAwardPointsHandler(repo repository.Repository) *AwardPointsHandler {
	return &AwardPointsHandler{repo: repo}
}

func (h *AwardPointsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.AwardPointsPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	visitorID, err := uuid.Parse(payload.VisitorID)
	if err != nil {
		return fmt.Errorf("invalid visitor id %q: %w", payload.VisitorID, asynq.SkipRetry)
	}
	reservationID, err := uuid.Parse(payload.ReservationID)
	if err != nil {
		return fmt.Errorf("invalid reservation id %q: %w", payload.ReservationID, asynq.SkipRetry)
	}
	if payload.Points <= 0 {
		return nil
	}

	credited, err := h.repo.AddPoints(ctx, &model.PointsEntry{
		ID:            uuid.New(),
		VisitorID:     visitorID,
		ReservationID: reservationID,
		Points:        payload.Points,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, model.ErrVisitorNotFound) {
			logger.Warn("points award skipped: visitor not found", map[string]interface{}{
				"visitor_id":     visitorID,
				"reservation_id": reservationID,
			})
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("add points: %w", err)
	}

	if !credited {
		logger.Info("points already awarded", map[string]interface{}{
			"reservation_id": reservationID,
		})
		return nil
	}

	logger.Info("points awarded", map[string]interface{}{
		"visitor_id":     visitorID,
		"reservation_id": reservationID,
		"points":         payload.Points,
	})
	return nil
}
