package repository

import (
	"context"

	"github.com/google/uuid"

	"themepark-backend/internal/domains/visitor/model"
)

// Repository reads visitors and writes the points ledger. Visitor accounts
// are owned elsewhere.
type Repository interface {
	GetContext(ctx context.Context, visitorID uuid.UUID) (*model.VisitorContext, error)
	// AddPoints credits points for a reservation once. Returns false when the
	// reservation was already credited.
	AddPoints(ctx context.Context, entry *model.PointsEntry) (bool, error)
}
