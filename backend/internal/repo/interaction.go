package repo

import (
	"context"

	"travelblogr-realtime-service/backend/internal/entity"
)

// InteractionRepo 定义了行程互动（点赞/收藏）的业务契约
type InteractionRepo interface {
	IncrLike(ctx context.Context, tripID string, userID uint64) (uint64, error)
	DecrLike(ctx context.Context, tripID string, userID uint64) (uint64, error)
	IncrSave(ctx context.Context, tripID string, userID uint64) (uint64, error)
	DecrSave(ctx context.Context, tripID string, userID uint64) (uint64, error)

	GetLike(ctx context.Context, tripID string) (uint64, error)
	GetSave(ctx context.Context, tripID string) (uint64, error)
}

type TripStatsRepo interface {
	GetTripStats(ctx context.Context, tripID string) (*entity.TripStats, error)
}
