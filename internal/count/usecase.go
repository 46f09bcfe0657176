package count

import (
	"context"

	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
)

type UseCase interface {
	StartCount(ctx context.Context, input *dto.StartCountInput) (*model.CountSession, error)
	GetCount(ctx context.Context, id string) (*model.CountSession, error)
	ListCounts(ctx context.Context, filters *dto.CountFilters) ([]model.CountSession, int, error)
	GetCountItems(ctx context.Context, countID string) ([]model.CountItem, error)
	GetCountItemDetails(ctx context.Context, countID, warehouseID string) ([]dto.CountItemDetail, error)
	UpdateCountItem(ctx context.Context, input *dto.UpdateCountItemInput) error
	CompleteCount(ctx context.Context, countID string) error
	CancelCount(ctx context.Context, countID, reason string) error
	VoidCount(ctx context.Context, countID, reason string) error
}
