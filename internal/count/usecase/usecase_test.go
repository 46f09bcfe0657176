package usecase

import (
	"context"
	"testing"
	"time"

	catalogdto "github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-count-service/internal/count"
	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/internal/threshold"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

// fakeCountRepo is an in-memory count.Repository.
type fakeCountRepo struct {
	sessions map[string]*model.CountSession
	items    map[string][]model.CountItem // keyed by count id
}

func newFakeCountRepo() *fakeCountRepo {
	return &fakeCountRepo{
		sessions: make(map[string]*model.CountSession),
		items:    make(map[string][]model.CountItem),
	}
}

func (r *fakeCountRepo) CreateSessionWithItems(ctx context.Context, session *model.CountSession, items []model.CountItem) error {
	copied := *session
	r.sessions[session.ID] = &copied
	r.items[session.ID] = append([]model.CountItem{}, items...)
	return nil
}

func (r *fakeCountRepo) GetSession(ctx context.Context, id string) (*model.CountSession, error) {
	if s, ok := r.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCountRepo) FindSessions(ctx context.Context, filters *dto.CountFilters) ([]model.CountSession, int, error) {
	var out []model.CountSession
	for _, s := range r.sessions {
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if !filters.IncludeVoided && s.IsVoided {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *fakeCountRepo) UpdateSession(ctx context.Context, session *model.CountSession) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeCountRepo) GetItems(ctx context.Context, countID string) ([]model.CountItem, error) {
	return append([]model.CountItem{}, r.items[countID]...), nil
}

func (r *fakeCountRepo) GetItem(ctx context.Context, countID, itemID string) (*model.CountItem, error) {
	for i := range r.items[countID] {
		if r.items[countID][i].ItemID == itemID {
			copied := r.items[countID][i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeCountRepo) UpdateItem(ctx context.Context, item *model.CountItem) error {
	rows := r.items[item.CountID]
	for i := range rows {
		if rows[i].ItemID == item.ItemID {
			rows[i] = *item
			return nil
		}
	}
	return nil
}

// fakeCatalogRepo is an in-memory catalog.Repository.
type fakeCatalogRepo struct {
	items          map[string]*model.InventoryItem
	templates      map[string]*model.Template
	templateItems  map[string][]model.TemplateItem
	warehouseItems map[string]*model.WarehouseItem // keyed by item id
	dailySettings  []model.DailyThresholdSetting
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		items:          make(map[string]*model.InventoryItem),
		templates:      make(map[string]*model.Template),
		templateItems:  make(map[string][]model.TemplateItem),
		warehouseItems: make(map[string]*model.WarehouseItem),
	}
}

func (r *fakeCatalogRepo) FindItems(ctx context.Context, filters *catalogdto.ItemFilters) ([]model.InventoryItem, int, error) {
	var out []model.InventoryItem
	for _, item := range r.items {
		if filters.IsActive != nil && item.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (r *fakeCatalogRepo) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	if item, ok := r.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCatalogRepo) BatchGetItems(ctx context.Context, ids []string) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	if tpl, ok := r.templates[id]; ok {
		copied := *tpl
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCatalogRepo) GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	return append([]model.TemplateItem{}, r.templateItems[templateID]...), nil
}

func (r *fakeCatalogRepo) GetWarehouseItem(ctx context.Context, warehouseID, itemID string) (*model.WarehouseItem, error) {
	if wi, ok := r.warehouseItems[itemID]; ok {
		copied := *wi
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCatalogRepo) BatchGetWarehouseItems(ctx context.Context, warehouseID string, itemIDs []string) ([]model.WarehouseItem, error) {
	var out []model.WarehouseItem
	for _, id := range itemIDs {
		if wi, ok := r.warehouseItems[id]; ok {
			out = append(out, *wi)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error) {
	return append([]model.DailyThresholdSetting{}, r.dailySettings...), nil
}

func (r *fakeCatalogRepo) ListMovements(ctx context.Context, filters *catalogdto.MovementFilters) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}

func (r *fakeCatalogRepo) AdjustStockWithMovement(ctx context.Context, wi *model.WarehouseItem, movement *model.StockMovement) error {
	copied := *wi
	r.warehouseItems[wi.ItemID] = &copied
	return nil
}

func newTestUseCase(t *testing.T) (count.UseCase, *fakeCountRepo, *fakeCatalogRepo) {
	t.Helper()
	counts := newFakeCountRepo()
	cat := newFakeCatalogRepo()
	uc := NewCountUseCase(counts, cat, nil, logger.NewNop())
	return uc, counts, cat
}

func seedItem(cat *fakeCatalogRepo, id string, stock float64, unitCost *float64) {
	cat.items[id] = &model.InventoryItem{
		BaseModel:    model.BaseModel{ID: id},
		Name:         id,
		CurrentStock: stock,
		UnitCost:     unitCost,
		IsActive:     true,
	}
}

func TestStartCount_FromAllActiveItems(t *testing.T) {
	uc, counts, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	seedItem(cat, "item-b", 10, nil)
	cat.items["item-c"] = &model.InventoryItem{BaseModel: model.BaseModel{ID: "item-c"}, IsActive: false}

	session, err := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("StartCount: %v", err)
	}

	if session.Status != model.CountStatusInProgress {
		t.Fatalf("expected in_progress, got %s", session.Status)
	}
	if session.TotalItemsCount != 2 {
		t.Fatalf("expected 2 count items (inactive skipped), got %d", session.TotalItemsCount)
	}

	items, _ := counts.GetItems(context.Background(), session.ID)
	for _, item := range items {
		want := cat.items[item.ItemID].CurrentStock
		if item.InStockQuantity != want {
			t.Fatalf("expected snapshot of current stock %v, got %v", want, item.InStockQuantity)
		}
		if item.ActualQuantity != nil {
			t.Fatalf("expected uncounted item, got actual %v", *item.ActualQuantity)
		}
	}
}

func TestStartCount_FromTemplateSnapshotsOverrides(t *testing.T) {
	uc, counts, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	cat.templates["tpl-1"] = &model.Template{BaseModel: model.BaseModel{ID: "tpl-1"}, Name: "Weekly"}
	cat.templateItems["tpl-1"] = []model.TemplateItem{
		{TemplateID: "tpl-1", ItemID: "item-a", ExpectedQuantity: f(8), MinimumQuantity: f(5), MaximumQuantity: f(20)},
	}

	session, err := uc.StartCount(context.Background(), &dto.StartCountInput{
		OrganizationID: "org-1",
		TemplateID:     s("tpl-1"),
	})
	if err != nil {
		t.Fatalf("StartCount: %v", err)
	}

	items, _ := counts.GetItems(context.Background(), session.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.InStockQuantity != 8 {
		t.Fatalf("expected template expected quantity 8, got %v", item.InStockQuantity)
	}
	if item.TemplateMinimumQuantity == nil || *item.TemplateMinimumQuantity != 5 {
		t.Fatalf("expected template min snapshot 5, got %v", item.TemplateMinimumQuantity)
	}
	if item.TemplateMaximumQuantity == nil || *item.TemplateMaximumQuantity != 20 {
		t.Fatalf("expected template max snapshot 20, got %v", item.TemplateMaximumQuantity)
	}
}

func TestStartCount_EmptyTemplateRejected(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	cat.templates["tpl-empty"] = &model.Template{BaseModel: model.BaseModel{ID: "tpl-empty"}}

	_, err := uc.StartCount(context.Background(), &dto.StartCountInput{
		OrganizationID: "org-1",
		TemplateID:     s("tpl-empty"),
	})
	if err != count.ErrInvalidSource {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestUpdateCountItem_Validation(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	tests := []struct {
		name  string
		input dto.UpdateCountItemInput
		want  error
	}{
		{"negative quantity", dto.UpdateCountItemInput{CountID: session.ID, ItemID: "item-a", ActualQuantity: -1}, count.ErrInvalidQuantity},
		{"unknown item", dto.UpdateCountItemInput{CountID: session.ID, ItemID: "ghost", ActualQuantity: 1}, count.ErrNotFound},
		{"unknown session", dto.UpdateCountItemInput{CountID: "ghost", ItemID: "item-a", ActualQuantity: 1}, count.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := uc.UpdateCountItem(context.Background(), &tt.input); err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateCountItem_RecomputesAggregates(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	seedItem(cat, "item-b", 10, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	// Count item-a with a variance.
	if err := uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-a", ActualQuantity: 3,
	}); err != nil {
		t.Fatalf("UpdateCountItem: %v", err)
	}

	got, _ := uc.GetCount(context.Background(), session.ID)
	if got.CompletionPercentage != 50 {
		t.Fatalf("expected 50%% completion, got %v", got.CompletionPercentage)
	}
	if got.VarianceCount != 1 {
		t.Fatalf("expected variance count 1, got %d", got.VarianceCount)
	}

	// Count item-b exactly at expected: completion rises, variances
	// stay at 1.
	if err := uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-b", ActualQuantity: 10,
	}); err != nil {
		t.Fatalf("UpdateCountItem: %v", err)
	}

	got, _ = uc.GetCount(context.Background(), session.ID)
	if got.CompletionPercentage != 100 {
		t.Fatalf("expected 100%% completion, got %v", got.CompletionPercentage)
	}
	if got.VarianceCount != 1 {
		t.Fatalf("expected variance count 1, got %d", got.VarianceCount)
	}
}

func TestCompleteCount_RequiresCountedItems(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	if err := uc.CompleteCount(context.Background(), session.ID); err != count.ErrEmptyCount {
		t.Fatalf("expected ErrEmptyCount, got %v", err)
	}

	got, _ := uc.GetCount(context.Background(), session.ID)
	if got.Status != model.CountStatusInProgress {
		t.Fatalf("failed complete must leave state unchanged, got %s", got.Status)
	}
}

func TestCompleteCount_IsHardCutover(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	_ = uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-a", ActualQuantity: 4,
	})
	if err := uc.CompleteCount(context.Background(), session.ID); err != nil {
		t.Fatalf("CompleteCount: %v", err)
	}

	// No further item updates, completes, or cancels.
	err := uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-a", ActualQuantity: 9,
	})
	if err != count.ErrCountClosed {
		t.Fatalf("expected ErrCountClosed, got %v", err)
	}
	if err := uc.CompleteCount(context.Background(), session.ID); err != count.ErrCountClosed {
		t.Fatalf("expected ErrCountClosed on re-complete, got %v", err)
	}
	if err := uc.CancelCount(context.Background(), session.ID, "late"); err != count.ErrCountClosed {
		t.Fatalf("expected ErrCountClosed on cancel, got %v", err)
	}
}

func TestCancelCount_StoresReason(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	if err := uc.CancelCount(context.Background(), session.ID, "wrong warehouse"); err != nil {
		t.Fatalf("CancelCount: %v", err)
	}

	got, _ := uc.GetCount(context.Background(), session.ID)
	if got.Status != model.CountStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.Notes == nil || *got.Notes != "wrong warehouse" {
		t.Fatalf("expected reason stored in notes, got %v", got.Notes)
	}
}

func TestVoidCount_Rules(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 5, nil)
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	// Voiding an in-progress count is illegal.
	if err := uc.VoidCount(context.Background(), session.ID, "oops"); err != count.ErrNotCompleted {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}

	_ = uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-a", ActualQuantity: 4,
	})
	_ = uc.CompleteCount(context.Background(), session.ID)

	if err := uc.VoidCount(context.Background(), session.ID, "duplicate count"); err != nil {
		t.Fatalf("VoidCount: %v", err)
	}

	got, _ := uc.GetCount(context.Background(), session.ID)
	if !got.IsVoided {
		t.Fatal("expected voided session")
	}
	if got.VoidReason == nil || *got.VoidReason != "duplicate count" {
		t.Fatalf("expected void reason stored, got %v", got.VoidReason)
	}
	if got.Status != model.CountStatusCompleted {
		t.Fatalf("void must not change status, got %s", got.Status)
	}

	if err := uc.VoidCount(context.Background(), session.ID, "again"); err != count.ErrAlreadyVoided {
		t.Fatalf("expected ErrAlreadyVoided, got %v", err)
	}

	// Items remain readable for audit.
	items, err := uc.GetCountItems(context.Background(), session.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected historical items after void, got %d (%v)", len(items), err)
	}
}

// Covers the full template scenario: item A has template min/max
// (5,20), item B only a warehouse default (2,10), item C nothing
// configured. Counting A=3, B=12, C=7 classifies A under, B over, C
// undefined, with a variance count of 2, and completion freezes those
// aggregates even when B's warehouse default later changes.
func TestCountScenario_EndToEnd(t *testing.T) {
	uc, _, cat := newTestUseCase(t)

	seedItem(cat, "item-a", 5, f(2))
	seedItem(cat, "item-b", 10, f(3))
	seedItem(cat, "item-c", 7, nil)

	cat.templates["tpl-1"] = &model.Template{BaseModel: model.BaseModel{ID: "tpl-1"}, Name: "Nightly"}
	cat.templateItems["tpl-1"] = []model.TemplateItem{
		{TemplateID: "tpl-1", ItemID: "item-a", MinimumQuantity: f(5), MaximumQuantity: f(20)},
		{TemplateID: "tpl-1", ItemID: "item-b"},
		{TemplateID: "tpl-1", ItemID: "item-c"},
	}
	cat.warehouseItems["item-b"] = &model.WarehouseItem{
		WarehouseID: "wh-1", ItemID: "item-b", ReorderMin: f(2), ReorderMax: f(10),
	}

	session, err := uc.StartCount(context.Background(), &dto.StartCountInput{
		OrganizationID: "org-1",
		TemplateID:     s("tpl-1"),
	})
	if err != nil {
		t.Fatalf("StartCount: %v", err)
	}

	for itemID, qty := range map[string]float64{"item-a": 3, "item-b": 12, "item-c": 7} {
		if err := uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
			CountID: session.ID, ItemID: itemID, ActualQuantity: qty,
		}); err != nil {
			t.Fatalf("UpdateCountItem(%s): %v", itemID, err)
		}
	}

	details, err := uc.GetCountItemDetails(context.Background(), session.ID, "wh-1")
	if err != nil {
		t.Fatalf("GetCountItemDetails: %v", err)
	}
	statuses := map[string]threshold.Status{}
	for _, d := range details {
		statuses[d.CountItem.ItemID] = d.Status
	}
	if statuses["item-a"] != threshold.StatusUnderStock {
		t.Fatalf("item-a: expected under_stock, got %s", statuses["item-a"])
	}
	if statuses["item-b"] != threshold.StatusOverStock {
		t.Fatalf("item-b: expected over_stock, got %s", statuses["item-b"])
	}
	if statuses["item-c"] != threshold.StatusUndefined {
		t.Fatalf("item-c: expected undefined, got %s", statuses["item-c"])
	}

	if err := uc.CompleteCount(context.Background(), session.ID); err != nil {
		t.Fatalf("CompleteCount: %v", err)
	}

	got, _ := uc.GetCount(context.Background(), session.ID)
	if got.VarianceCount != 2 {
		t.Fatalf("expected variance count 2 (A and B), got %d", got.VarianceCount)
	}
	if got.CompletionPercentage != 100 {
		t.Fatalf("expected 100%% completion, got %v", got.CompletionPercentage)
	}

	// Widen B's warehouse band after completion: the frozen session
	// aggregates must not move, only the live display status may.
	cat.warehouseItems["item-b"].ReorderMax = f(15)

	got, _ = uc.GetCount(context.Background(), session.ID)
	if got.VarianceCount != 2 || got.CompletionPercentage != 100 {
		t.Fatalf("completion must freeze aggregates, got variance=%d completion=%v",
			got.VarianceCount, got.CompletionPercentage)
	}

	details, _ = uc.GetCountItemDetails(context.Background(), session.ID, "wh-1")
	for _, d := range details {
		if d.CountItem.ItemID == "item-b" && d.Status != threshold.StatusNormal {
			t.Fatalf("item-b live status should follow new thresholds, got %s", d.Status)
		}
	}
}

func TestGetCountItemDetails_VarianceFigures(t *testing.T) {
	uc, _, cat := newTestUseCase(t)
	seedItem(cat, "item-a", 10, f(5))
	session, _ := uc.StartCount(context.Background(), &dto.StartCountInput{OrganizationID: "org-1"})

	_ = uc.UpdateCountItem(context.Background(), &dto.UpdateCountItemInput{
		CountID: session.ID, ItemID: "item-a", ActualQuantity: 8,
	})

	details, err := uc.GetCountItemDetails(context.Background(), session.ID, "")
	if err != nil {
		t.Fatalf("GetCountItemDetails: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail row, got %d", len(details))
	}
	d := details[0]
	if d.Variance == nil || *d.Variance != -2 {
		t.Fatalf("expected variance -2, got %v", d.Variance)
	}
	if d.VarianceCost == nil || *d.VarianceCost != 10 {
		t.Fatalf("expected variance cost 10, got %v", d.VarianceCost)
	}
	if d.CountItem.CountedAt == nil || time.Since(*d.CountItem.CountedAt) > time.Minute {
		t.Fatalf("expected fresh counted_at, got %v", d.CountItem.CountedAt)
	}
}
