package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindItems(ctx context.Context, f *dto.ItemFilters) ([]model.InventoryItem, int, error) {
	var items []model.InventoryItem
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
	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search OR barcode ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_items" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM inventory_items" + whereClause + " ORDER BY name ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	query := `SELECT * FROM inventory_items WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) BatchGetItems(ctx context.Context, ids []string) ([]model.InventoryItem, error) {
	if len(ids) == 0 {
		return []model.InventoryItem{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM inventory_items WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var items []model.InventoryItem
	err = r.DB.SelectContext(ctx, &items, query, args...)
	return items, err
}

func (r *PGRepository) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var tpl model.Template
	query := `SELECT * FROM inventory_templates WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &tpl, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

func (r *PGRepository) GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	var items []model.TemplateItem
	query := `SELECT * FROM inventory_template_items WHERE template_id = $1 ORDER BY sort_order ASC`
	err := r.DB.SelectContext(ctx, &items, query, templateID)
	return items, err
}

func (r *PGRepository) GetWarehouseItem(ctx context.Context, warehouseID, itemID string) (*model.WarehouseItem, error) {
	var wi model.WarehouseItem
	query := `SELECT * FROM warehouse_items WHERE warehouse_id = $1 AND item_id = $2`
	err := r.DB.GetContext(ctx, &wi, query, warehouseID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller handles creating defaults
		}
		return nil, err
	}
	return &wi, nil
}

func (r *PGRepository) BatchGetWarehouseItems(ctx context.Context, warehouseID string, itemIDs []string) ([]model.WarehouseItem, error) {
	if len(itemIDs) == 0 {
		return []model.WarehouseItem{}, nil
	}

	query, args, err := sqlx.In(`
        SELECT * FROM warehouse_items
        WHERE warehouse_id = ? AND item_id IN (?)
    `, warehouseID, itemIDs)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var items []model.WarehouseItem
	err = r.DB.SelectContext(ctx, &items, query, args...)
	return items, err
}

func (r *PGRepository) GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error) {
	var settings []model.DailyThresholdSetting
	query := `SELECT * FROM warehouse_daily_settings WHERE warehouse_id = $1 ORDER BY item_id, day_of_week`
	err := r.DB.SelectContext(ctx, &settings, query, warehouseID)
	return settings, err
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.WarehouseID != "" {
		conditions = append(conditions, "warehouse_id = :warehouse_id")
		args["warehouse_id"] = f.WarehouseID
	}
	if f.ItemID != "" {
		conditions = append(conditions, "item_id = :item_id")
		args["item_id"] = f.ItemID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

// AdjustStockWithMovement upserts the warehouse row and writes the
// movement audit row in one transaction, and keeps the catalog item's
// current_stock in step with the warehouse quantity.
func (r *PGRepository) AdjustStockWithMovement(ctx context.Context, wi *model.WarehouseItem, movement *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsertQuery := `
        INSERT INTO warehouse_items (
            id, warehouse_id, item_id, on_hand_quantity,
            reorder_min, reorder_max, average_unit_cost, updated_at
        )
        VALUES (
            :id, :warehouse_id, :item_id, :on_hand_quantity,
            :reorder_min, :reorder_max, :average_unit_cost, :updated_at
        )
        ON CONFLICT (warehouse_id, item_id)
        DO UPDATE SET
            on_hand_quantity = EXCLUDED.on_hand_quantity,
            average_unit_cost = EXCLUDED.average_unit_cost,
            updated_at = EXCLUDED.updated_at
    `
	if _, err = tx.NamedExecContext(ctx, upsertQuery, wi); err != nil {
		return fmt.Errorf("failed to update warehouse item: %w", err)
	}

	insertLogQuery := `
        INSERT INTO stock_movements (
            id, warehouse_id, item_id, movement_type,
            quantity_change, quantity_before, quantity_after,
            reference_type, reference_id, notes, created_by, created_at
        )
        VALUES (
            :id, :warehouse_id, :item_id, :movement_type,
            :quantity_change, :quantity_before, :quantity_after,
            :reference_type, :reference_id, :notes, :created_by, :created_at
        )
    `
	if _, err = tx.NamedExecContext(ctx, insertLogQuery, movement); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}

	syncQuery := `
        UPDATE inventory_items
        SET current_stock = current_stock + $1, updated_at = $2
        WHERE id = $3
    `
	if _, err = tx.ExecContext(ctx, syncQuery, movement.QuantityChange, wi.UpdatedAt, wi.ItemID); err != nil {
		return fmt.Errorf("failed to sync item stock: %w", err)
	}

	return tx.Commit()
}
