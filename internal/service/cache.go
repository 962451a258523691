package service

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CacheStore 底层缓存存储（内存 / LRU / Redis / Postgres）
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache JSON 缓存。存储异常时降级为未命中，不影响上游请求。
// nil *Cache 等同于关闭缓存。
type Cache struct {
	store     CacheStore
	writeOnly bool
	now       func() time.Time
	sf        singleflight.Group
}

// NewCache writeOnly 为 true 时读取总是未命中，但仍然写入（用于强制刷新）
func NewCache(store CacheStore, writeOnly bool) *Cache {
	return &Cache{
		store:     store,
		writeOnly: writeOnly,
		now:       time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get 未命中、已过期、只写模式或存储异常时返回 nil
func (c *Cache) Get(ctx context.Context, key string) []byte {
	if c == nil || c.store == nil || c.writeOnly {
		return nil
	}

	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("[Cache] 读取缓存失败，按未命中处理")
		return nil
	}
	if !ok {
		return nil
	}

	var env model.CacheEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		log.WithError(err).WithField("key", key).Warn("[Cache] 缓存内容无法解析")
		return nil
	}
	if !env.Fresh(c.now()) {
		return nil
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil
	}
	return env.Value
}

// Set 写入缓存
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.store == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b, err := json.Marshal(model.CacheEnvelope{
		Timestamp: c.now().UnixMilli(),
		TTL:       int64((ttl + time.Second - 1) / time.Second), // 不足 1 秒按 1 秒
		Value:     raw,
	})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, b, ttl)
}

// CachePromise 命中则直接返回；否则调用 producer，结果非 nil 时写入缓存。
// 失败或空结果不缓存，下次请求会立即重试。
func CachePromise[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	if raw := c.Get(ctx, key); raw != nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			log.Debugf("[Cache] %s: Serving from cache", key)
			return &cached, nil
		}
		log.WithField("key", key).Warn("[Cache] 缓存值类型不匹配，重新获取")
	}

	if c == nil {
		return producer(ctx)
	}

	// 使用 singleflight 避免同一个 key 并发重复请求上游。
	// 共享的请求不跟随任何一个调用方的取消，取消只让该调用方自己提前返回
	ch := c.sf.DoChan(key, func() (v interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("%s: panic: %v", key, r)
			}
		}()
		log.Debugf("[Cache] %s: resolving...", key)
		sctx := context.WithoutCancel(ctx)
		res, err := producer(sctx)
		if err != nil || res == nil {
			return res, err
		}
		if err := c.Set(sctx, key, res, ttl); err != nil {
			log.WithError(err).WithField("key", key).Warn("[Cache] 写入缓存失败")
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		v, _ := r.Val.(*T)
		return v, nil
	}
}
