package service

import (
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrNotFound 上游没有该影片的数据（预期内，不算失败）
var ErrNotFound = errors.New("not found")

// IsNotFound 判断是否为未找到
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NewThrottle 每秒最多 rps 个请求，突发为 1；超出的请求排队等待而不是丢弃
func NewThrottle(rps float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// ErrUnsupportedLocale 没有配置对应的 flixlist 国家
var ErrUnsupportedLocale = errors.New("unsupported netflix locale")
