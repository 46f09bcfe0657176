package report

import (
	"context"

	"github.com/fekuna/omnipos-count-service/internal/report/dto"
)

type UseCase interface {
	VarianceSummary(ctx context.Context, filters *dto.ReportFilters) (*dto.VarianceSummary, error)
}
