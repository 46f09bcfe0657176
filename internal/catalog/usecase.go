package catalog

import (
	"context"

	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
)

type UseCase interface {
	ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.InventoryItem, int, error)
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)
	GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error)
	GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error)
	AdjustWarehouseStock(ctx context.Context, input *dto.AdjustStockInput) (*model.WarehouseItem, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	IndexItem(ctx context.Context, item *model.InventoryItem)
}
