package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/logger"
)

// PostgresRepository implements Repository on PostgreSQL. Conditions and
// actions live in JSONB columns as []model.RuleSpec.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &PostgresRepository{db: db}
}

const promotionColumns = `
	id, code, name, description, type,
	starts_at, ends_at, usage_limit_per_user, total_usage_limit, current_usage_count,
	is_combinable, display_priority, is_active, applicable_ticket_type_ids,
	conditions, actions, version, created_at, updated_at`

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var (
		p                   model.Promotion
		conditions, actions []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.Type,
		&p.StartsAt,
		&p.EndsAt,
		&p.UsageLimitPerUser,
		&p.TotalUsageLimit,
		&p.CurrentUsageCount,
		&p.IsCombinable,
		&p.DisplayPriority,
		&p.IsActive,
		&p.ApplicableTicketTypeIDs,
		&conditions,
		&actions,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var condSpecs, actionSpecs []model.RuleSpec
	if err := json.Unmarshal(conditions, &condSpecs); err != nil {
		return nil, fmt.Errorf("promotion %s conditions: %w", p.ID, err)
	}
	if err := json.Unmarshal(actions, &actionSpecs); err != nil {
		return nil, fmt.Errorf("promotion %s actions: %w", p.ID, err)
	}
	if p.Conditions, err = model.DecodeConditions(condSpecs); err != nil {
		return nil, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	if p.Actions, err = model.DecodeActions(actionSpecs); err != nil {
		return nil, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	return &p, nil
}

func collectPromotions(rows pgx.Rows) ([]*model.Promotion, error) {
	defer rows.Close()

	var promotions []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return promotions, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by id: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, day time.Time) ([]*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE is_active = TRUE
		  AND starts_at < $1::timestamptz + INTERVAL '1 day'
		  AND ends_at > $1
		ORDER BY display_priority, id`

	rows, err := r.db.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	return collectPromotions(rows)
}

// ListAdmin lists promotions for the admin API.
//
// Status filter:
// - active: is_active and now inside the window
// - upcoming: window not started
// - expired: window ended
// - all: no filter
func (r *PostgresRepository) ListAdmin(ctx context.Context, filter *model.ListPromotionsFilter, now time.Time) ([]*model.Promotion, int, error) {
	var where utils.WhereBuilder

	switch filter.Status {
	case "active":
		where.Add("is_active = TRUE AND starts_at <= ?", now)
		where.Add("ends_at > ?", now)
	case "upcoming":
		where.Add("starts_at > ?", now)
	case "expired":
		where.Add("ends_at <= ?", now)
	}
	if filter.Search != "" {
		n := where.Next()
		where.Add(fmt.Sprintf("(code ILIKE ? OR name ILIKE $%d)", n), "%"+filter.Search+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM promotions ` + where.SQL()
	if err := r.db.QueryRow(ctx, countQuery, where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	next := where.Next()
	query := fmt.Sprintf(`SELECT %s FROM promotions %s
		ORDER BY display_priority, created_at DESC
		LIMIT $%d OFFSET $%d`, promotionColumns, where.SQL(), next, next+1)
	args := append(where.Args(), filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	promotions, err := collectPromotions(rows)
	if err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

func (r *PostgresRepository) GetUserUsageCounts(ctx context.Context, visitorID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	const query = `
		SELECT promotion_id, COUNT(*)
		FROM reservation_promotions
		WHERE visitor_id = $1 AND promotion_id = ANY($2) AND released = FALSE
		GROUP BY promotion_id
	`

	rows, err := r.db.Query(ctx, query, visitorID, promotionIDs)
	if err != nil {
		return nil, fmt.Errorf("get user usage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int, len(promotionIDs))
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan usage count: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) Create(ctx context.Context, promo *model.Promotion) error {
	conditions, err := model.EncodeConditions(promo.Conditions)
	if err != nil {
		return err
	}
	actions, err := model.EncodeActions(promo.Actions)
	if err != nil {
		return err
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	actionJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	const query = `
		INSERT INTO promotions (
			id, code, name, description, type,
			starts_at, ends_at, usage_limit_per_user, total_usage_limit, current_usage_count,
			is_combinable, display_priority, is_active, applicable_ticket_type_ids,
			conditions, actions, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, 0,
			$10, $11, $12, $13, $14, $15, 0, $16, $16
		)
	`

	_, err = r.db.Exec(ctx, query,
		promo.ID,
		promo.Code,
		promo.Name,
		promo.Description,
		promo.Type,
		promo.StartsAt,
		promo.EndsAt,
		promo.UsageLimitPerUser,
		promo.TotalUsageLimit,
		promo.IsCombinable,
		promo.DisplayPriority,
		promo.IsActive,
		promo.ApplicableTicketTypeIDs,
		condJSON,
		actionJSON,
		promo.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "idx_promotions_code") {
			return model.ErrDuplicateCode
		}
		logger.Error("create promotion failed", err)
		return fmt.Errorf("create promotion: %w", err)
	}

	promo.CurrentUsageCount = 0
	promo.Version = 0
	promo.UpdatedAt = promo.CreatedAt
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool, version int) (*model.Promotion, error) {
	query := `
		UPDATE promotions
		SET is_active = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
		RETURNING ` + promotionColumns

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id, isActive, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, model.ErrVersionMismatch
		}
		return nil, fmt.Errorf("update promotion status: %w", err)
	}
	return p, nil
}

// Update rewrites the editable columns under the version guard. Code and
// current_usage_count are never touched here.
func (r *PostgresRepository) Update(ctx context.Context, promo *model.Promotion, version int) (*model.Promotion, error) {
	conditions, err := model.EncodeConditions(promo.Conditions)
	if err != nil {
		return nil, err
	}
	actions, err := model.EncodeActions(promo.Actions)
	if err != nil {
		return nil, err
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, fmt.Errorf("marshal conditions: %w", err)
	}
	actionJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("marshal actions: %w", err)
	}

	query := `
		UPDATE promotions
		SET name = $3,
		    description = $4,
		    type = $5,
		    starts_at = $6,
		    ends_at = $7,
		    usage_limit_per_user = $8,
		    total_usage_limit = $9,
		    is_combinable = $10,
		    display_priority = $11,
		    is_active = $12,
		    applicable_ticket_type_ids = $13,
		    conditions = $14,
		    actions = $15,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + promotionColumns

	p, err := scanPromotion(r.db.QueryRow(ctx, query,
		promo.ID,
		version,
		promo.Name,
		promo.Description,
		promo.Type,
		promo.StartsAt,
		promo.EndsAt,
		promo.UsageLimitPerUser,
		promo.TotalUsageLimit,
		promo.IsCombinable,
		promo.DisplayPriority,
		promo.IsActive,
		promo.ApplicableTicketTypeIDs,
		condJSON,
		actionJSON,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, promo.ID); getErr != nil {
				return nil, getErr
			}
			return nil, model.ErrVersionMismatch
		}
		logger.Error("update promotion failed", err)
		return nil, fmt.Errorf("update promotion: %w", err)
	}
	return p, nil
}

// Delete removes a promotion with no redemption history. Released usages
// still count: they are the audit trail of cancelled reservations.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `
		DELETE FROM promotions
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM reservation_promotions WHERE promotion_id = $1)
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return model.ErrPromotionInUse
	}
	return nil
}

// -------------------------------------------------------------------
// USAGE TRACKING
// -------------------------------------------------------------------

// IncrementUsageWithTx is the conditional increment guarding the global cap.
// Zero affected rows means the cap is exhausted.
func (r *PostgresRepository) IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID) error {
	const query = `
		UPDATE promotions
		SET current_usage_count = current_usage_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (total_usage_limit IS NULL OR current_usage_count < total_usage_limit)
	`

	tag, err := tx.Exec(ctx, query, promotionID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUsageLimitReached
	}
	return nil
}

func (r *PostgresRepository) GetUserUsageCountWithTx(ctx context.Context, tx pgx.Tx, promotionID, visitorID uuid.UUID) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM reservation_promotions
		WHERE promotion_id = $1 AND visitor_id = $2 AND released = FALSE
	`

	var count int
	if err := tx.QueryRow(ctx, query, promotionID, visitorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("get user usage count: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CreateUsagesWithTx(ctx context.Context, tx pgx.Tx, usages []*model.PromotionUsage) error {
	const query = `
		INSERT INTO reservation_promotions (
			id, reservation_id, promotion_id, visitor_id, discount_amount, released, used_at
		) VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`

	batch := &pgx.Batch{}
	for _, u := range usages {
		batch.Queue(query, u.ID, u.ReservationID, u.PromotionID, u.VisitorID, u.DiscountAmount, u.UsedAt)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range usages {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("create promotion usage: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ReleaseUsagesWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	const releaseQuery = `
		UPDATE reservation_promotions
		SET released = TRUE
		WHERE reservation_id = $1 AND released = FALSE
		RETURNING promotion_id
	`

	rows, err := tx.Query(ctx, releaseQuery, reservationID)
	if err != nil {
		return 0, fmt.Errorf("release promotion usage: %w", err)
	}
	promotionIDs, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("release promotion usage: %w", err)
	}
	if len(promotionIDs) == 0 {
		return 0, nil
	}

	const decrementQuery = `
		UPDATE promotions
		SET current_usage_count = current_usage_count - 1, updated_at = NOW()
		WHERE id = $1 AND current_usage_count > 0
	`

	batch := &pgx.Batch{}
	for _, id := range promotionIDs {
		batch.Queue(decrementQuery, id)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range promotionIDs {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("decrement promotion usage: %w", err)
		}
	}
	return len(promotionIDs), nil
}
