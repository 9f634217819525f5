package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"themepark-backend/internal/domains/reservation/service"
	"themepark-backend/pkg/logger"
)

// CompleteElapsedHandler runs the completion sweep on its cron schedule.
type CompleteElapsedHandler struct {
	service service.Service
}

func NewCompleteElapsedHandler(svc service.Service) *CompleteElapsedHandler {
	return &CompleteElapsedHandler{service: svc}
}

func (h *CompleteElapsedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	result, err := h.service.CompleteElapsed(ctx)
	if err != nil {
		return fmt.Errorf("complete elapsed reservations: %w", err)
	}

	logger.Info("completion sweep finished", map[string]interface{}{
		"scanned":   result.Scanned,
		"completed": result.Processed,
		"failed":    result.Failed,
	})
	return nil
}

// ExpirePendingHandler cancels reservations left unpaid past the pending TTL.
type ExpirePendingHandler struct {
	service service.Service
}

func NewExpirePendingHandler(svc service.Service) *ExpirePendingHandler {
	return &ExpirePendingHandler{service: svc}
}

func (h *ExpirePendingHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	result, err := h.service.ExpirePending(ctx)
	if err != nil {
		return fmt.Errorf("expire pending reservations: %w", err)
	}

	if result.Scanned > 0 {
		logger.Info("pending reservations expired", map[string]interface{}{
			"scanned": result.Scanned,
			"expired": result.Processed,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		})
	}
	return nil
}
