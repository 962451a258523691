package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// CacheEnvelope 缓存中实际保存的 JSON 结构
type CacheEnvelope struct {
	Timestamp int64           `json:"timestamp"` // 写入时间（毫秒）
	TTL       int64           `json:"ttl"`       // 有效期（秒）
	Value     json.RawMessage `json:"value"`
}

// Fresh 判断在 now 时刻是否仍然有效
func (e CacheEnvelope) Fresh(now time.Time) bool {
	age := now.UnixMilli() - e.Timestamp
	return age < e.TTL*1000
}

// CacheEntry Postgres 缓存表
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"type:bytea;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName 表名
func (CacheEntry) TableName() string {
	return "cache_entries"
}
