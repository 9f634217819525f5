package main

import (
	"github.com/hibiken/asynq"

	reservationJob "themepark-backend/internal/domains/reservation/job"
	visitorJob "themepark-backend/internal/domains/visitor/job"
	"themepark-backend/internal/shared"
	"themepark-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Loyalty
	awardPoints *visitorJob.AwardPointsHandler

	// Reservation sweeps
	completeElapsed *reservationJob.CompleteElapsedHandler
	expirePending   *reservationJob.ExpirePendingHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		awardPoints:     visitorJob.NewAwardPointsHandler(c.VisitorRepo),
		completeElapsed: reservationJob.NewCompleteElapsedHandler(c.ReservationService),
		expirePending:   reservationJob.NewExpirePendingHandler(c.ReservationService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeAwardPoints, h.awardPoints.ProcessTask)
	mux.HandleFunc(shared.TypeCompleteReservations, h.completeElapsed.ProcessTask)
	mux.HandleFunc(shared.TypeExpirePendingReservations, h.expirePending.ProcessTask)
}
