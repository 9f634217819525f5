package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/visitor/model"
	"themepark-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetContext(ctx context.Context, visitorID uuid.UUID) (*model.VisitorContext, error) {
	const query = `
		SELECT id, visitor_type, member_level, birth_date
		FROM visitors
		WHERE id = $1
	`

	var vc model.VisitorContext
	err := r.pool.QueryRow(ctx, query, visitorID).Scan(
		&vc.VisitorID,
		&vc.VisitorType,
		&vc.MemberLevel,
		&vc.BirthDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVisitorNotFound
		}
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}
	return &vc, nil
}

// AddPoints inserts the ledger row and bumps the visitor balance in one
// transaction. The unique reservation_id makes retries no-ops.
func (r *postgresRepository) AddPoints(ctx context.Context, entry *model.PointsEntry) (bool, error) {
	credited := false

	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		const insertQuery = `
			INSERT INTO visitor_points_ledger (id, visitor_id, reservation_id, points, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (reservation_id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, insertQuery, entry.ID, entry.VisitorID, entry.ReservationID, entry.Points, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert points entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		const balanceQuery = `UPDATE visitors SET points = points + $2, updated_at = NOW() WHERE id = $1`
		tag, err = tx.Exec(ctx, balanceQuery, entry.VisitorID, entry.Points)
		if err != nil {
			return fmt.Errorf("failed to update points balance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrVisitorNotFound
		}
		credited = true
		return nil
	})
	return credited, err
}
