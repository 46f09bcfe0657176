package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-count-service/internal/catalog"
	"github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/pkg/cache"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
	"github.com/fekuna/omnipos-count-service/pkg/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const itemsIndex = "inventory_items"

type catalogUseCase struct {
	repo   catalog.Repository
	cache  *cache.RedisClient
	es     *search.Client
	logger logger.ZapLogger
}

func NewCatalogUseCase(repo catalog.Repository, cache *cache.RedisClient, es *search.Client, log logger.ZapLogger) catalog.UseCase {
	return &catalogUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *catalogUseCase) ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.InventoryItem, int, error) {
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cacheKey).Result()
		if err == nil {
			var result struct {
				Items []model.InventoryItem
				Count int
			}
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Items, result.Count, nil
			}
		}
	}

	// Search via Elastic when a query is present
	if filters.SearchQuery != "" && uc.es != nil {
		q := map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []map[string]interface{}{
						{
							"query_string": map[string]interface{}{
								"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
								"fields": []string{"name^3", "sku", "barcode"},
							},
						},
						{
							"term": map[string]interface{}{
								"organization_id": filters.OrganizationID,
							},
						},
					},
				},
			},
			"from": (filters.Page - 1) * filters.PageSize,
		}
		if filters.PageSize > 0 {
			q["size"] = filters.PageSize
		}

		res, err := uc.es.Search(ctx, itemsIndex, q)
		if err == nil {
			var esItems []model.InventoryItem
			for _, hit := range res.Hits.Hits {
				var item model.InventoryItem
				if err := json.Unmarshal(hit.Source, &item); err == nil {
					esItems = append(esItems, item)
				}
			}
			return esItems, res.Hits.Total.Value, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	items, count, err := uc.repo.FindItems(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		cacheData := struct {
			Items []model.InventoryItem
			Count int
		}{
			Items: items,
			Count: count,
		}
		if data, err := json.Marshal(cacheData); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return items, count, nil
}

func (uc *catalogUseCase) generateCacheKey(filters *dto.ItemFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("items:list:%s:%x", filters.OrganizationID, md5.Sum(data)), nil
}

func (uc *catalogUseCase) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	return uc.repo.GetItem(ctx, id)
}

func (uc *catalogUseCase) GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	return uc.repo.GetTemplateItems(ctx, templateID)
}

func (uc *catalogUseCase) GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error) {
	return uc.repo.GetWarehouseSettings(ctx, warehouseID)
}

func (uc *catalogUseCase) AdjustWarehouseStock(ctx context.Context, input *dto.AdjustStockInput) (*model.WarehouseItem, error) {
	// Serialize read-modify-write per warehouse item.
	lockKey := fmt.Sprintf("lock:warehouse:%s:%s", input.WarehouseID, input.ItemID)
	lockValue := uuid.New().String()

	if uc.cache != nil {
		acquired := false
		for i := 0; i < 3; i++ {
			ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
			if err != nil {
				uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !acquired {
			return nil, catalog.ErrLockContention
		}
		defer uc.cache.ReleaseLock(ctx, lockKey, lockValue)
	}

	wi, err := uc.repo.GetWarehouseItem(ctx, input.WarehouseID, input.ItemID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if wi == nil {
		wi = &model.WarehouseItem{
			ID:          uuid.New().String(),
			WarehouseID: input.WarehouseID,
			ItemID:      input.ItemID,
			UpdatedAt:   now,
		}
	}

	quantityBefore := wi.OnHandQuantity
	wi.OnHandQuantity += input.QuantityChange
	wi.UpdatedAt = now

	if wi.OnHandQuantity < 0 {
		return nil, catalog.ErrInsufficientStock
	}

	var refID *string
	if input.ReferenceID != "" {
		refID = &input.ReferenceID
	}
	var refType *string
	if input.ReferenceType != "" {
		refType = &input.ReferenceType
	}
	var createdBy *string
	if input.UserID != "" && input.UserID != "system" {
		createdBy = &input.UserID
	}

	movementType := input.ReferenceType
	if movementType == "" {
		movementType = "adjustment"
	}

	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		WarehouseID:    input.WarehouseID,
		ItemID:         input.ItemID,
		MovementType:   movementType,
		QuantityChange: input.QuantityChange,
		QuantityBefore: quantityBefore,
		QuantityAfter:  wi.OnHandQuantity,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Notes:          input.Reason,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}

	if err := uc.repo.AdjustStockWithMovement(ctx, wi, movement); err != nil {
		return nil, err
	}

	go uc.invalidateItemCache(context.Background(), input.ItemID)

	return wi, nil
}

func (uc *catalogUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

// IndexItem pushes the item document into Elasticsearch. Failures are
// logged only; search degrades to SQL.
func (uc *catalogUseCase) IndexItem(ctx context.Context, item *model.InventoryItem) {
	if uc.es == nil || item == nil {
		return
	}

	mapping := `{
		"mappings": {
			"properties": {
				"organization_id": { "type": "keyword" },
				"name": { "type": "text" },
				"sku": { "type": "keyword" },
				"barcode": { "type": "keyword" },
				"current_stock": { "type": "double" },
				"created_at": { "type": "date" }
			}
		}
	}`
	_ = uc.es.CreateIndex(ctx, itemsIndex, mapping)

	if err := uc.es.Index(ctx, itemsIndex, item.ID, item); err != nil {
		uc.logger.Error("failed to index item", zap.Error(err))
	}
}

func (uc *catalogUseCase) invalidateItemCache(ctx context.Context, itemID string) {
	if uc.cache == nil {
		return
	}
	// The item moved stock, so every cached list that could contain it
	// is stale.
	keys, err := uc.cache.Client.Keys(ctx, "items:list:*").Result()
	if err == nil && len(keys) > 0 {
		uc.cache.Client.Del(ctx, keys...)
	}

	if item, err := uc.repo.GetItem(ctx, itemID); err == nil && item != nil {
		uc.IndexItem(ctx, item)
	}
}
