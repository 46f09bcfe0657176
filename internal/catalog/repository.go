package catalog

import (
	"context"

	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
)

type Repository interface {
	// Items
	FindItems(ctx context.Context, filters *dto.ItemFilters) ([]model.InventoryItem, int, error)
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)
	BatchGetItems(ctx context.Context, ids []string) ([]model.InventoryItem, error)

	// Templates
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error)

	// Warehouse thresholds and stock
	GetWarehouseItem(ctx context.Context, warehouseID, itemID string) (*model.WarehouseItem, error)
	BatchGetWarehouseItems(ctx context.Context, warehouseID string, itemIDs []string) ([]model.WarehouseItem, error)
	GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error)

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)

	// Transaction support
	AdjustStockWithMovement(ctx context.Context, wi *model.WarehouseItem, movement *model.StockMovement) error
}
