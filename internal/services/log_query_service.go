package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
)

// LogQueryService is the read-only administrative view over the remote
// store: paginated, filtered listing and detail-by-id, for every family.
type LogQueryService struct {
	store  repositories.LogStore
	logger *zap.Logger
}

func NewLogQueryService(store repositories.LogStore, logger *zap.Logger) *LogQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogQueryService{store: store, logger: logger}
}

func (s *LogQueryService) List(ctx context.Context, filter repositories.ListFilter) ([]models.Record, int64, error) {
	return s.store.List(ctx, filter)
}

func (s *LogQueryService) Get(ctx context.Context, family models.Family, id int64) (*models.Record, error) {
	return s.store.GetByID(ctx, family, id)
}
