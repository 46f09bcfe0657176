package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-count-service/internal/catalog"
	catalogdto "github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/count"
	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/internal/threshold"
	"github.com/fekuna/omnipos-count-service/internal/variance"
	"github.com/fekuna/omnipos-count-service/pkg/cache"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type countUseCase struct {
	repo    count.Repository
	catalog catalog.Repository
	cache   *cache.RedisClient
	logger  logger.ZapLogger
}

func NewCountUseCase(repo count.Repository, catalogRepo catalog.Repository, cache *cache.RedisClient, log logger.ZapLogger) count.UseCase {
	return &countUseCase{
		repo:    repo,
		catalog: catalogRepo,
		cache:   cache,
		logger:  log,
	}
}

func (uc *countUseCase) StartCount(ctx context.Context, input *dto.StartCountInput) (*model.CountSession, error) {
	now := time.Now()
	session := &model.CountSession{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrganizationID: input.OrganizationID,
		TeamID:         input.TeamID,
		TemplateID:     input.TemplateID,
		ConductedBy:    input.ConductedBy,
		CountDate:      now,
		Status:         model.CountStatusInProgress,
		Notes:          input.Notes,
	}

	var items []model.CountItem
	var err error
	if input.TemplateID != nil {
		items, err = uc.buildTemplateItems(ctx, session.ID, *input.TemplateID)
	} else {
		items, err = uc.buildAllActiveItems(ctx, session.ID, input.OrganizationID, input.TeamID)
	}
	if err != nil {
		return nil, err
	}

	session.TotalItemsCount = len(items)

	if err := uc.repo.CreateSessionWithItems(ctx, session, items); err != nil {
		return nil, err
	}

	uc.logger.Info("Started inventory count",
		zap.String("count_id", session.ID),
		zap.Int("items", len(items)),
	)
	return session, nil
}

// buildTemplateItems snapshots the template's item set: expected
// quantity comes from the template entry falling back to the item's
// current stock, and the template min/max override is copied onto each
// row. Inactive items are skipped.
func (uc *countUseCase) buildTemplateItems(ctx context.Context, countID, templateID string) ([]model.CountItem, error) {
	tpl, err := uc.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, count.ErrInvalidSource
	}

	tplItems, err := uc.catalog.GetTemplateItems(ctx, templateID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tplItems))
	for _, ti := range tplItems {
		ids = append(ids, ti.ItemID)
	}
	catalogItems, err := uc.catalog.BatchGetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.InventoryItem, len(catalogItems))
	for i := range catalogItems {
		byID[catalogItems[i].ID] = &catalogItems[i]
	}

	items := make([]model.CountItem, 0, len(tplItems))
	for _, ti := range tplItems {
		item, ok := byID[ti.ItemID]
		if !ok || !item.IsActive {
			continue
		}
		expected := item.CurrentStock
		if ti.ExpectedQuantity != nil {
			expected = *ti.ExpectedQuantity
		}
		items = append(items, model.CountItem{
			ID:                      uuid.New().String(),
			CountID:                 countID,
			ItemID:                  ti.ItemID,
			InStockQuantity:         expected,
			TemplateMinimumQuantity: ti.MinimumQuantity,
			TemplateMaximumQuantity: ti.MaximumQuantity,
		})
	}

	if len(items) == 0 {
		return nil, count.ErrInvalidSource
	}
	return items, nil
}

func (uc *countUseCase) buildAllActiveItems(ctx context.Context, countID, organizationID string, teamID *string) ([]model.CountItem, error) {
	active := true
	catalogItems, _, err := uc.catalog.FindItems(ctx, &catalogdto.ItemFilters{
		OrganizationID: organizationID,
		TeamID:         teamID,
		IsActive:       &active,
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.CountItem, 0, len(catalogItems))
	for _, item := range catalogItems {
		items = append(items, model.CountItem{
			ID:              uuid.New().String(),
			CountID:         countID,
			ItemID:          item.ID,
			InStockQuantity: item.CurrentStock,
		})
	}
	return items, nil
}

func (uc *countUseCase) GetCount(ctx context.Context, id string) (*model.CountSession, error) {
	session, err := uc.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, count.ErrNotFound
	}
	return session, nil
}

func (uc *countUseCase) ListCounts(ctx context.Context, filters *dto.CountFilters) ([]model.CountSession, int, error) {
	return uc.repo.FindSessions(ctx, filters)
}

// GetCountItems returns the raw historical rows, voided sessions
// included: void excludes a count from financial aggregates, never from
// audit reads.
func (uc *countUseCase) GetCountItems(ctx context.Context, countID string) ([]model.CountItem, error) {
	return uc.repo.GetItems(ctx, countID)
}

func (uc *countUseCase) GetCountItemDetails(ctx context.Context, countID, warehouseID string) ([]dto.CountItemDetail, error) {
	countItems, err := uc.repo.GetItems(ctx, countID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(countItems))
	for _, ci := range countItems {
		ids = append(ids, ci.ItemID)
	}
	catalogItems, err := uc.catalog.BatchGetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[string]*model.InventoryItem, len(catalogItems))
	for i := range catalogItems {
		itemsByID[catalogItems[i].ID] = &catalogItems[i]
	}

	var warehouseByItem map[string]*model.WarehouseItem
	var dailySettings []model.DailyThresholdSetting
	if warehouseID != "" {
		warehouseItems, err := uc.catalog.BatchGetWarehouseItems(ctx, warehouseID, ids)
		if err != nil {
			return nil, err
		}
		warehouseByItem = make(map[string]*model.WarehouseItem, len(warehouseItems))
		for i := range warehouseItems {
			warehouseByItem[warehouseItems[i].ItemID] = &warehouseItems[i]
		}
		dailySettings, err = uc.catalog.GetWarehouseSettings(ctx, warehouseID)
		if err != nil {
			return nil, err
		}
	}

	details := make([]dto.CountItemDetail, 0, len(countItems))
	for i := range countItems {
		ci := countItems[i]
		item := itemsByID[ci.ItemID]

		rc := threshold.Context{
			CountItem:     &ci,
			DailySettings: dailySettings,
		}
		if warehouseByItem != nil {
			rc.Warehouse = warehouseByItem[ci.ItemID]
		}
		min, max := threshold.Resolve(item, rc)

		detail := dto.CountItemDetail{
			CountItem:    ci,
			Item:         item,
			EffectiveMin: min,
			EffectiveMax: max,
		}

		// Classify the counted quantity once entered, the live stock
		// level until then.
		qty := ci.InStockQuantity
		if item != nil {
			qty = item.CurrentStock
		}
		if ci.ActualQuantity != nil {
			qty = *ci.ActualQuantity
			v := variance.Variance(*ci.ActualQuantity, ci.InStockQuantity)
			cost := variance.VarianceCost(*ci.ActualQuantity, ci.InStockQuantity, variance.UnitCost(item))
			detail.Variance = &v
			detail.VarianceCost = &cost
		}
		detail.Status = threshold.Classify(qty, min, max)

		details = append(details, detail)
	}
	return details, nil
}

func (uc *countUseCase) UpdateCountItem(ctx context.Context, input *dto.UpdateCountItemInput) error {
	if input.ActualQuantity < 0 {
		return count.ErrInvalidQuantity
	}

	session, err := uc.repo.GetSession(ctx, input.CountID)
	if err != nil {
		return err
	}
	if session == nil {
		return count.ErrNotFound
	}
	if session.Status != model.CountStatusInProgress {
		return count.ErrCountClosed
	}

	item, err := uc.repo.GetItem(ctx, input.CountID, input.ItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return count.ErrNotFound
	}

	now := time.Now()
	qty := input.ActualQuantity
	item.ActualQuantity = &qty
	item.CountedAt = &now
	if input.Notes != nil {
		item.Notes = input.Notes
	}
	if input.CountedBy != nil {
		item.CountedBy = input.CountedBy
	}

	if err := uc.repo.UpdateItem(ctx, item); err != nil {
		return err
	}

	return uc.refreshAggregates(ctx, session)
}

// refreshAggregates recomputes the derived session aggregates from the
// current item set and stores them. Only meaningful while in progress;
// completion freezes the stored values.
func (uc *countUseCase) refreshAggregates(ctx context.Context, session *model.CountSession) error {
	items, err := uc.repo.GetItems(ctx, session.ID)
	if err != nil {
		return err
	}

	applyAggregates(session, items)
	session.UpdatedAt = time.Now()
	return uc.repo.UpdateSession(ctx, session)
}

func applyAggregates(session *model.CountSession, items []model.CountItem) {
	total := len(items)
	counted := 0
	variances := 0
	for _, item := range items {
		if item.ActualQuantity == nil {
			continue
		}
		counted++
		v := variance.Variance(*item.ActualQuantity, item.InStockQuantity)
		if variance.HasVariance(v, variance.DefaultTolerance) {
			variances++
		}
	}

	session.TotalItemsCount = total
	session.VarianceCount = variances
	session.CompletionPercentage = 0
	if total > 0 {
		session.CompletionPercentage = float64(counted) / float64(total) * 100
	}
}

func (uc *countUseCase) CompleteCount(ctx context.Context, countID string) error {
	unlock, err := uc.lockSession(ctx, countID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := uc.repo.GetSession(ctx, countID)
	if err != nil {
		return err
	}
	if session == nil {
		return count.ErrNotFound
	}
	if session.Status != model.CountStatusInProgress {
		return count.ErrCountClosed
	}

	items, err := uc.repo.GetItems(ctx, countID)
	if err != nil {
		return err
	}

	counted := 0
	for _, item := range items {
		if item.ActualQuantity != nil {
			counted++
		}
	}
	if counted == 0 {
		return count.ErrEmptyCount
	}

	// Freeze the aggregates as of this moment; later threshold or
	// catalog edits no longer touch them.
	applyAggregates(session, items)
	session.Status = model.CountStatusCompleted
	session.UpdatedAt = time.Now()

	if err := uc.repo.UpdateSession(ctx, session); err != nil {
		return err
	}

	go uc.invalidateReportCache(context.Background())

	uc.logger.Info("Completed inventory count",
		zap.String("count_id", countID),
		zap.Int("variance_count", session.VarianceCount),
		zap.Float64("completion_percentage", session.CompletionPercentage),
	)
	return nil
}

func (uc *countUseCase) CancelCount(ctx context.Context, countID, reason string) error {
	unlock, err := uc.lockSession(ctx, countID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := uc.repo.GetSession(ctx, countID)
	if err != nil {
		return err
	}
	if session == nil {
		return count.ErrNotFound
	}
	if session.Status != model.CountStatusInProgress {
		return count.ErrCountClosed
	}

	session.Status = model.CountStatusCancelled
	if reason != "" {
		session.Notes = &reason
	}
	session.UpdatedAt = time.Now()

	if err := uc.repo.UpdateSession(ctx, session); err != nil {
		return err
	}

	uc.logger.Info("Cancelled inventory count", zap.String("count_id", countID))
	return nil
}

func (uc *countUseCase) VoidCount(ctx context.Context, countID, reason string) error {
	unlock, err := uc.lockSession(ctx, countID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := uc.repo.GetSession(ctx, countID)
	if err != nil {
		return err
	}
	if session == nil {
		return count.ErrNotFound
	}
	if session.Status != model.CountStatusCompleted {
		return count.ErrNotCompleted
	}
	if session.IsVoided {
		return count.ErrAlreadyVoided
	}

	session.IsVoided = true
	if reason != "" {
		session.VoidReason = &reason
	}
	session.UpdatedAt = time.Now()

	if err := uc.repo.UpdateSession(ctx, session); err != nil {
		return err
	}

	go uc.invalidateReportCache(context.Background())

	uc.logger.Info("Voided inventory count",
		zap.String("count_id", countID),
		zap.String("reason", reason),
	)
	return nil
}

// lockSession serializes state transitions per session. Item updates
// stay lock-free: each count item is an independent unit of mutation.
func (uc *countUseCase) lockSession(ctx context.Context, countID string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("lock:count:%s", countID)
	lockValue := uuid.New().String()

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
		return nil, errors.New("system busy, please try again later (lock)")
	}

	return func() {
		uc.cache.ReleaseLock(ctx, lockKey, lockValue)
	}, nil
}

func (uc *countUseCase) invalidateReportCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	keys, err := uc.cache.Client.Keys(ctx, "reports:*").Result()
	if err == nil && len(keys) > 0 {
		uc.cache.Client.Del(ctx, keys...)
	}
}
