package count

import (
	"context"

	"github.com/fekuna/omnipos-count-service/internal/count/dto"
	"github.com/fekuna/omnipos-count-service/internal/model"
)

type Repository interface {
	// Sessions
	CreateSessionWithItems(ctx context.Context, session *model.CountSession, items []model.CountItem) error
	GetSession(ctx context.Context, id string) (*model.CountSession, error)
	FindSessions(ctx context.Context, filters *dto.CountFilters) ([]model.CountSession, int, error)
	UpdateSession(ctx context.Context, session *model.CountSession) error

	// Count items
	GetItems(ctx context.Context, countID string) ([]model.CountItem, error)
	GetItem(ctx context.Context, countID, itemID string) (*model.CountItem, error)
	UpdateItem(ctx context.Context, item *model.CountItem) error
}
