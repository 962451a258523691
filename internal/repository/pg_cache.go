package repository

import (
	"context"
	"errors"
	"time"

	"github.com/johannth/imdb-watchlist/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGCacheStore Postgres 缓存表
type PGCacheStore struct {
	db *gorm.DB
}

func NewPGCacheStore(db *gorm.DB) *PGCacheStore {
	return &PGCacheStore{db: db}
}

// Get 查找缓存（未过期）
func (r *PGCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.CacheEntry
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, time.Now()).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Set 创建或更新缓存（按 key 唯一）
func (r *PGCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := model.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at"}),
	}).Create(&entry).Error
}

// CleanExpired 清理过期缓存
func (r *PGCacheStore) CleanExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.CacheEntry{})
	return result.RowsAffected, result.Error
}
