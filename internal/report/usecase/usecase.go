package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-count-service/internal/catalog"
	"github.com/fekuna/omnipos-count-service/internal/count"
	countdto "github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/internal/report"
	"github.com/fekuna/omnipos-count-service/internal/report/dto"
	"github.com/fekuna/omnipos-count-service/internal/variance"
	"github.com/fekuna/omnipos-count-service/pkg/cache"
	"github.com/fekuna/omnipos-count-service/pkg/logger"
)

type reportUseCase struct {
	counts  count.Repository
	catalog catalog.Repository
	cache   *cache.RedisClient
	logger  logger.ZapLogger
}

func NewReportUseCase(counts count.Repository, catalogRepo catalog.Repository, cache *cache.RedisClient, log logger.ZapLogger) report.UseCase {
	return &reportUseCase{
		counts:  counts,
		catalog: catalogRepo,
		cache:   cache,
		logger:  log,
	}
}

// VarianceSummary aggregates the financial impact of completed counts.
// Voided sessions appear in the rows with zero contribution; they are
// excluded from totals, not from the report.
func (uc *reportUseCase) VarianceSummary(ctx context.Context, filters *dto.ReportFilters) (*dto.VarianceSummary, error) {
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		if val, err := uc.cache.Client.Get(ctx, cacheKey).Result(); err == nil {
			var summary dto.VarianceSummary
			if err := json.Unmarshal([]byte(val), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	sessions, _, err := uc.counts.FindSessions(ctx, &countdto.CountFilters{
		OrganizationID: filters.OrganizationID,
		TeamID:         filters.TeamID,
		Status:         model.CountStatusCompleted,
		IncludeVoided:  true,
	})
	if err != nil {
		return nil, err
	}

	summary := &dto.VarianceSummary{Sessions: make([]dto.SessionVarianceRow, 0, len(sessions))}
	for i := range sessions {
		row, err := uc.buildRow(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}

		summary.Sessions = append(summary.Sessions, *row)
		summary.SessionCount++
		if row.IsVoided {
			summary.VoidedCount++
			continue
		}
		summary.TotalVarianceCost += row.VarianceCost
		summary.NetFinancialImpact += row.FinancialImpact
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return summary, nil
}

func (uc *reportUseCase) buildRow(ctx context.Context, session *model.CountSession) (*dto.SessionVarianceRow, error) {
	row := &dto.SessionVarianceRow{
		CountID:              session.ID,
		CountDate:            session.CountDate,
		TeamID:               session.TeamID,
		IsVoided:             session.IsVoided,
		TotalItemsCount:      session.TotalItemsCount,
		VarianceCount:        session.VarianceCount,
		CompletionPercentage: session.CompletionPercentage,
	}
	if session.IsVoided {
		return row, nil
	}

	items, err := uc.counts.GetItems(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	catalogItems, err := uc.catalog.BatchGetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	costByID := make(map[string]float64, len(catalogItems))
	for i := range catalogItems {
		costByID[catalogItems[i].ID] = variance.UnitCost(&catalogItems[i])
	}

	for _, item := range items {
		if item.ActualQuantity == nil {
			continue
		}
		v := variance.Variance(*item.ActualQuantity, item.InStockQuantity)
		if !variance.HasVariance(v, variance.DefaultTolerance) {
			continue
		}
		unitCost := costByID[item.ItemID]
		row.VarianceCost += variance.VarianceCost(*item.ActualQuantity, item.InStockQuantity, unitCost)
		row.FinancialImpact += variance.FinancialImpact(v, unitCost)
	}
	return row, nil
}

func (uc *reportUseCase) generateCacheKey(filters *dto.ReportFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reports:variance:%s:%x", filters.OrganizationID, md5.Sum(data)), nil
}
