package usecase

import (
	"context"
	"testing"
	"time"

	catalogdto "github.com/fekuna/omnipos-count-service/internal/catalog/dto"
	countdto "github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/internal/report/dto"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

func f(v float64) *float64 { return &v }

type stubCountRepo struct {
	sessions []model.CountSession
	items    map[string][]model.CountItem
}

func (r *stubCountRepo) CreateSessionWithItems(ctx context.Context, session *model.CountSession, items []model.CountItem) error {
	return nil
}

func (r *stubCountRepo) GetSession(ctx context.Context, id string) (*model.CountSession, error) {
	return nil, nil
}

func (r *stubCountRepo) FindSessions(ctx context.Context, filters *countdto.CountFilters) ([]model.CountSession, int, error) {
	var out []model.CountSession
	for _, s := range r.sessions {
		if filters.Status != "" && s.Status != filters.Status {
			continue
		}
		if !filters.IncludeVoided && s.IsVoided {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *stubCountRepo) UpdateSession(ctx context.Context, session *model.CountSession) error {
	return nil
}

func (r *stubCountRepo) GetItems(ctx context.Context, countID string) ([]model.CountItem, error) {
	return r.items[countID], nil
}

func (r *stubCountRepo) GetItem(ctx context.Context, countID, itemID string) (*model.CountItem, error) {
	return nil, nil
}

func (r *stubCountRepo) UpdateItem(ctx context.Context, item *model.CountItem) error {
	return nil
}

type stubCatalogRepo struct {
	items map[string]model.InventoryItem
}

func (r *stubCatalogRepo) FindItems(ctx context.Context, filters *catalogdto.ItemFilters) ([]model.InventoryItem, int, error) {
	return nil, 0, nil
}

func (r *stubCatalogRepo) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	return nil, nil
}

func (r *stubCatalogRepo) BatchGetItems(ctx context.Context, ids []string) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubCatalogRepo) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	return nil, nil
}

func (r *stubCatalogRepo) GetTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error) {
	return nil, nil
}

func (r *stubCatalogRepo) GetWarehouseItem(ctx context.Context, warehouseID, itemID string) (*model.WarehouseItem, error) {
	return nil, nil
}

func (r *stubCatalogRepo) BatchGetWarehouseItems(ctx context.Context, warehouseID string, itemIDs []string) ([]model.WarehouseItem, error) {
	return nil, nil
}

func (r *stubCatalogRepo) GetWarehouseSettings(ctx context.Context, warehouseID string) ([]model.DailyThresholdSetting, error) {
	return nil, nil
}

func (r *stubCatalogRepo) ListMovements(ctx context.Context, filters *catalogdto.MovementFilters) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}

func (r *stubCatalogRepo) AdjustStockWithMovement(ctx context.Context, wi *model.WarehouseItem, movement *model.StockMovement) error {
	return nil
}

func completedSession(id string, voided bool, varianceCount int) model.CountSession {
	return model.CountSession{
		BaseModel:            model.BaseModel{ID: id},
		OrganizationID:       "org-1",
		CountDate:            time.Now(),
		Status:               model.CountStatusCompleted,
		IsVoided:             voided,
		TotalItemsCount:      2,
		VarianceCount:        varianceCount,
		CompletionPercentage: 100,
	}
}

func TestVarianceSummary_VoidedSessionsContributeZero(t *testing.T) {
	counts := &stubCountRepo{
		sessions: []model.CountSession{
			completedSession("count-live", false, 1),
			completedSession("count-void", true, 1),
		},
		items: map[string][]model.CountItem{
			// Shortage of 2 units at $5 each.
			"count-live": {
				{CountID: "count-live", ItemID: "item-a", InStockQuantity: 10, ActualQuantity: f(8)},
				{CountID: "count-live", ItemID: "item-b", InStockQuantity: 4, ActualQuantity: f(4)},
			},
			// Same shortage, but the session is voided.
			"count-void": {
				{CountID: "count-void", ItemID: "item-a", InStockQuantity: 10, ActualQuantity: f(8)},
			},
		},
	}
	cat := &stubCatalogRepo{items: map[string]model.InventoryItem{
		"item-a": {BaseModel: model.BaseModel{ID: "item-a"}, UnitCost: f(5)},
		"item-b": {BaseModel: model.BaseModel{ID: "item-b"}, UnitCost: f(3)},
	}}

	uc := NewReportUseCase(counts, cat, nil, logger.NewNop())

	summary, err := uc.VarianceSummary(context.Background(), &dto.ReportFilters{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("VarianceSummary: %v", err)
	}

	if summary.SessionCount != 2 {
		t.Fatalf("expected both sessions in the report, got %d", summary.SessionCount)
	}
	if summary.VoidedCount != 1 {
		t.Fatalf("expected 1 voided session, got %d", summary.VoidedCount)
	}
	if summary.TotalVarianceCost != 10 {
		t.Fatalf("expected total variance cost 10 (live session only), got %v", summary.TotalVarianceCost)
	}
	if summary.NetFinancialImpact != -10 {
		t.Fatalf("expected net impact -10, got %v", summary.NetFinancialImpact)
	}

	var voided *dto.SessionVarianceRow
	for i := range summary.Sessions {
		if summary.Sessions[i].CountID == "count-void" {
			voided = &summary.Sessions[i]
		}
	}
	if voided == nil {
		t.Fatal("voided session must stay visible in the report")
	}
	if voided.VarianceCost != 0 || voided.FinancialImpact != 0 {
		t.Fatalf("voided session must carry zero financials, got cost=%v impact=%v",
			voided.VarianceCost, voided.FinancialImpact)
	}
	if voided.VarianceCount != 1 {
		t.Fatalf("voided session keeps its historical aggregates, got %d", voided.VarianceCount)
	}
}

func TestVarianceSummary_WithinToleranceExcluded(t *testing.T) {
	counts := &stubCountRepo{
		sessions: []model.CountSession{completedSession("count-1", false, 0)},
		items: map[string][]model.CountItem{
			"count-1": {
				{CountID: "count-1", ItemID: "item-a", InStockQuantity: 10, ActualQuantity: f(10.01)},
				{CountID: "count-1", ItemID: "item-b", InStockQuantity: 5},
			},
		},
	}
	cat := &stubCatalogRepo{items: map[string]model.InventoryItem{
		"item-a": {BaseModel: model.BaseModel{ID: "item-a"}, UnitCost: f(100)},
		"item-b": {BaseModel: model.BaseModel{ID: "item-b"}, UnitCost: f(100)},
	}}

	uc := NewReportUseCase(counts, cat, nil, logger.NewNop())

	summary, err := uc.VarianceSummary(context.Background(), &dto.ReportFilters{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("VarianceSummary: %v", err)
	}
	if summary.TotalVarianceCost != 0 {
		t.Fatalf("differences at tolerance and uncounted items must not cost anything, got %v", summary.TotalVarianceCost)
	}
	if summary.NetFinancialImpact != 0 {
		t.Fatalf("expected zero net impact, got %v", summary.NetFinancialImpact)
	}
}

func TestVarianceSummary_FallbackUnitCost(t *testing.T) {
	counts := &stubCountRepo{
		sessions: []model.CountSession{completedSession("count-1", false, 1)},
		items: map[string][]model.CountItem{
			"count-1": {
				{CountID: "count-1", ItemID: "item-a", InStockQuantity: 3, ActualQuantity: f(5)},
			},
		},
	}
	// No unit cost set: purchase price is the fallback.
	cat := &stubCatalogRepo{items: map[string]model.InventoryItem{
		"item-a": {BaseModel: model.BaseModel{ID: "item-a"}, PurchasePrice: f(4)},
	}}

	uc := NewReportUseCase(counts, cat, nil, logger.NewNop())

	summary, err := uc.VarianceSummary(context.Background(), &dto.ReportFilters{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("VarianceSummary: %v", err)
	}
	if summary.TotalVarianceCost != 8 {
		t.Fatalf("expected variance cost 8 (2 units at purchase price 4), got %v", summary.TotalVarianceCost)
	}
	if summary.NetFinancialImpact != 8 {
		t.Fatalf("expected positive impact 8 for surplus, got %v", summary.NetFinancialImpact)
	}
}
