package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// CreateSessionWithItems inserts the session header and bulk-inserts
// its count item snapshot in one transaction, so a half-initialized
// count is never visible.
func (r *PGRepository) CreateSessionWithItems(ctx context.Context, session *model.CountSession, items []model.CountItem) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sessionQuery := `
        INSERT INTO inventory_counts (
            id, organization_id, team_id, template_id, conducted_by,
            count_date, status, is_voided, void_reason, notes,
            total_items_count, variance_count, completion_percentage,
            created_at, updated_at
        )
        VALUES (
            :id, :organization_id, :team_id, :template_id, :conducted_by,
            :count_date, :status, :is_voided, :void_reason, :notes,
            :total_items_count, :variance_count, :completion_percentage,
            :created_at, :updated_at
        )
    `
	if _, err = tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
		return fmt.Errorf("failed to insert count: %w", err)
	}

	if len(items) > 0 {
		itemQuery := `
            INSERT INTO inventory_count_items (
                id, count_id, item_id, in_stock_quantity, actual_quantity,
                template_minimum_quantity, template_maximum_quantity,
                counted_by, counted_at, notes
            )
            VALUES (
                :id, :count_id, :item_id, :in_stock_quantity, :actual_quantity,
                :template_minimum_quantity, :template_maximum_quantity,
                :counted_by, :counted_at, :notes
            )
        `
		if _, err = tx.NamedExecContext(ctx, itemQuery, items); err != nil {
			return fmt.Errorf("failed to insert count items: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) GetSession(ctx context.Context, id string) (*model.CountSession, error) {
	var session model.CountSession
	query := `SELECT * FROM inventory_counts WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &session, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *PGRepository) FindSessions(ctx context.Context, f *dto.CountFilters) ([]model.CountSession, int, error) {
	var sessions []model.CountSession
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.OrganizationID != "" {
		conditions = append(conditions, "organization_id = :organization_id")
		args["organization_id"] = f.OrganizationID
	}
	if f.TeamID != nil {
		if *f.TeamID == "" {
			conditions = append(conditions, "team_id IS NULL")
		} else {
			conditions = append(conditions, "team_id = :team_id")
			args["team_id"] = *f.TeamID
		}
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if !f.IncludeVoided {
		conditions = append(conditions, "is_voided = false")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_counts" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM inventory_counts" + whereClause + " ORDER BY count_date DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &sessions, args)
	return sessions, count, err
}

func (r *PGRepository) UpdateSession(ctx context.Context, session *model.CountSession) error {
	query := `
        UPDATE inventory_counts
        SET status = :status,
            is_voided = :is_voided,
            void_reason = :void_reason,
            notes = :notes,
            total_items_count = :total_items_count,
            variance_count = :variance_count,
            completion_percentage = :completion_percentage,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, session)
	return err
}

func (r *PGRepository) GetItems(ctx context.Context, countID string) ([]model.CountItem, error) {
	var items []model.CountItem
	query := `
        SELECT * FROM inventory_count_items
        WHERE count_id = $1
        ORDER BY counted_at DESC NULLS LAST
    `
	err := r.DB.SelectContext(ctx, &items, query, countID)
	return items, err
}

func (r *PGRepository) GetItem(ctx context.Context, countID, itemID string) (*model.CountItem, error) {
	var item model.CountItem
	query := `SELECT * FROM inventory_count_items WHERE count_id = $1 AND item_id = $2`
	err := r.DB.GetContext(ctx, &item, query, countID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) UpdateItem(ctx context.Context, item *model.CountItem) error {
	query := `
        UPDATE inventory_count_items
        SET actual_quantity = :actual_quantity,
            counted_by = :counted_by,
            counted_at = :counted_at,
            notes = :notes
        WHERE count_id = :count_id AND item_id = :item_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, item)
	return err
}
