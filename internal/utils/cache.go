package utils

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// MemoryStore 基于 go-cache 的进程内缓存
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore 默认过期时间5分钟，清理间隔10分钟
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(5*time.Minute, 10*time.Minute)}
}

// Get 获取缓存值
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set 设置缓存值
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.Set(key, value, ttl)
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(key string) {
	s.c.Delete(key)
}

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// LRUCache 带过期时间的 LRU 缓存
type LRUCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	now     func() time.Time
}

// NewLRUCache size 是最大缓存条数（如 1000）
func NewLRUCache[T any](size int) (*LRUCache[T], error) {
	// lru.New 是线程安全的
	c, err := lru.New[string, CacheItem[T]](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache[T]{storage: c, now: time.Now}, nil
}

// Set Add 会自动处理 Update
func (c *LRUCache[T]) Set(key string, value T, ttl time.Duration) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.now().Add(ttl),
	})
}

// Get 带过期检查
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key) // 过期删除
		return zero, false
	}

	return item.Value, true
}

// Delete 删除
func (c *LRUCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Len 当前条数
func (c *LRUCache[T]) Len() int {
	return c.storage.Len()
}

// LRUStore 有容量上限的进程内缓存
type LRUStore struct {
	c *LRUCache[[]byte]
}

// NewLRUStore 创建 LRU 缓存
func NewLRUStore(size int) (*LRUStore, error) {
	c, err := NewLRUCache[[]byte](size)
	if err != nil {
		return nil, err
	}
	return &LRUStore{c: c}, nil
}

// Get 获取缓存值
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

// Set 设置缓存值
func (s *LRUStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.Set(key, value, ttl)
	return nil
}
