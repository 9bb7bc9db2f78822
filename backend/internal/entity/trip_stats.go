package entity

import "time"

// TripStats 是行程互动计数的权威记录（MySQL），缓存层回源用。
type TripStats struct {
	TripID    string `gorm:"primaryKey;type:varchar(64)"`
	LikeCount uint64 `gorm:"default:0"`
	SaveCount uint64 `gorm:"default:0"`
	ViewCount uint64 `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
