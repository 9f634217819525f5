package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"themepark-backend/internal/domains/catalog/model"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/logger"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const ticketTypeColumns = `
	id, name, description, base_price, max_sale_limit,
	applicable_crowd, is_active, created_at, updated_at`

func scanTicketType(row pgx.Row) (*model.TicketType, error) {
	tt := &model.TicketType{}
	err := row.Scan(
		&tt.ID,
		&tt.Name,
		&tt.Description,
		&tt.BasePrice,
		&tt.MaxSaleLimit,
		&tt.ApplicableCrowd,
		&tt.IsActive,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)
	return tt, err
}

// =====================================================
// TICKET TYPES
// =====================================================

func (r *postgresRepository) CreateTicketType(ctx context.Context, tt *model.TicketType) error {
	const query = `
		INSERT INTO ticket_types (
			id, name, description, base_price, max_sale_limit,
			applicable_crowd, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		tt.ID,
		tt.Name,
		tt.Description,
		tt.BasePrice,
		tt.MaxSaleLimit,
		tt.ApplicableCrowd,
		tt.IsActive,
		tt.CreatedAt,
		tt.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "idx_ticket_types_name") {
			return model.ErrDuplicateName
		}
		logger.Error("CreateTicketType: database error", err)
		return fmt.Errorf("failed to create ticket type: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetTicketType(ctx context.Context, id uuid.UUID) (*model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	tt, err := scanTicketType(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return tt, nil
}

func (r *postgresRepository) GetTicketTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	return collectTicketTypes(rows)
}

func (r *postgresRepository) LockTicketTypesWithTx(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*model.TicketType, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	query := `SELECT ` + ticketTypeColumns + `
		FROM ticket_types
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.Query(ctx, query, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket types: %w", err)
	}
	return collectTicketTypes(rows)
}

func collectTicketTypes(rows pgx.Rows) (map[uuid.UUID]*model.TicketType, error) {
	defer rows.Close()

	result := make(map[uuid.UUID]*model.TicketType)
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		result[tt.ID] = tt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *postgresRepository) ListTicketTypes(ctx context.Context, activeOnly bool) ([]*model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var result []*model.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		result = append(result, tt)
	}
	return result, rows.Err()
}

func (r *postgresRepository) UpdateBasePriceWithTx(ctx context.Context, tx pgx.Tx, tt *model.TicketType, history *model.PriceHistory) error {
	const updateQuery = `
		UPDATE ticket_types
		SET base_price = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, updateQuery, tt.ID, tt.BasePrice, tt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update base price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTicketTypeNotFound
	}

	const historyQuery = `
		INSERT INTO price_history (
			id, ticket_type_id, old_price, new_price, changed_by, reason, changed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, historyQuery,
		history.ID,
		history.TicketTypeID,
		history.OldPrice,
		history.NewPrice,
		history.ChangedBy,
		history.Reason,
		history.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price history: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListPriceHistory(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceHistory, error) {
	const query = `
		SELECT id, ticket_type_id, old_price, new_price, changed_by, reason, changed_at
		FROM price_history
		WHERE ticket_type_id = $1
		ORDER BY changed_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	defer rows.Close()

	var result []*model.PriceHistory
	for rows.Next() {
		h := &model.PriceHistory{}
		if err := rows.Scan(&h.ID, &h.TicketTypeID, &h.OldPrice, &h.NewPrice, &h.ChangedBy, &h.Reason, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// =====================================================
// PRICE RULES
// =====================================================

const priceRuleColumns = `
	id, ticket_type_id, name, priority, effective_start, effective_end,
	min_quantity, max_quantity, price, created_at`

func scanPriceRule(row pgx.Row) (*model.PriceRule, error) {
	rule := &model.PriceRule{}
	err := row.Scan(
		&rule.ID,
		&rule.TicketTypeID,
		&rule.Name,
		&rule.Priority,
		&rule.EffectiveStart,
		&rule.EffectiveEnd,
		&rule.MinQuantity,
		&rule.MaxQuantity,
		&rule.Price,
		&rule.CreatedAt,
	)
	return rule, err
}

func (r *postgresRepository) CreatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	const query = `
		INSERT INTO price_rules (
			id, ticket_type_id, name, priority, effective_start, effective_end,
			min_quantity, max_quantity, price, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.TicketTypeID,
		rule.Name,
		rule.Priority,
		rule.EffectiveStart,
		rule.EffectiveEnd,
		rule.MinQuantity,
		rule.MaxQuantity,
		rule.Price,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create price rule: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetPriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error) {
	query := `SELECT ` + priceRuleColumns + ` FROM price_rules WHERE id = $1`

	rule, err := scanPriceRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPriceRuleNotFound
		}
		return nil, fmt.Errorf("failed to get price rule: %w", err)
	}
	return rule, nil
}

func (r *postgresRepository) UpdatePriceRule(ctx context.Context, rule *model.PriceRule) error {
	const query = `
		UPDATE price_rules
		SET name = $2,
		    priority = $3,
		    effective_start = $4,
		    effective_end = $5,
		    min_quantity = $6,
		    max_quantity = $7,
		    price = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Priority,
		rule.EffectiveStart,
		rule.EffectiveEnd,
		rule.MinQuantity,
		rule.MaxQuantity,
		rule.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to update price rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPriceRuleNotFound
	}
	return nil
}

func (r *postgresRepository) DeletePriceRule(ctx context.Context, id uuid.UUID) (*model.PriceRule, error) {
	query := `DELETE FROM price_rules WHERE id = $1 RETURNING ` + priceRuleColumns

	rule, err := scanPriceRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPriceRuleNotFound
		}
		return nil, fmt.Errorf("failed to delete price rule: %w", err)
	}
	return rule, nil
}

func (r *postgresRepository) ListPriceRules(ctx context.Context, ticketTypeID uuid.UUID) ([]*model.PriceRule, error) {
	return r.ListPriceRulesFor(ctx, []uuid.UUID{ticketTypeID})
}

func (r *postgresRepository) ListPriceRulesFor(ctx context.Context, ticketTypeIDs []uuid.UUID) ([]*model.PriceRule, error) {
	query := `SELECT ` + priceRuleColumns + `
		FROM price_rules
		WHERE ticket_type_id = ANY($1)
		ORDER BY ticket_type_id, priority, created_at DESC`

	rows, err := r.pool.Query(ctx, query, ticketTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list price rules: %w", err)
	}
	defer rows.Close()

	var result []*model.PriceRule
	for rows.Next() {
		rule, err := scanPriceRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price rule: %w", err)
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *postgresRepository) Invalidate(ctx context.Context, ticketTypeID uuid.UUID) {}
