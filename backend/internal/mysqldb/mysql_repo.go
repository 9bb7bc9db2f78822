package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"travelblogr-realtime-service/backend/internal/entity"
	"travelblogr-realtime-service/backend/internal/repo"
)

type mysqlTripRepo struct {
	db *gorm.DB
}

func NewMySQLTripRepo(db *gorm.DB) repo.TripStatsRepo {
	return &mysqlTripRepo{db: db}
}

func (r *mysqlTripRepo) GetTripStats(ctx context.Context, tripID string) (*entity.TripStats, error) {
	var stats entity.TripStats
	err := r.db.WithContext(ctx).Where("trip_id = ?", tripID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 没找到，返回 nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// NewNullTripRepo：没配 MySQL 时的兜底，任何行程都当不存在处理，
// 让缓存层走空值缓存而不是报错。
func NewNullTripRepo() repo.TripStatsRepo {
	return nullTripRepo{}
}

type nullTripRepo struct{}

func (nullTripRepo) GetTripStats(ctx context.Context, tripID string) (*entity.TripStats, error) {
	return nil, nil
}
