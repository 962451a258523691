package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpiredCleaner 能清理过期缓存的存储（Postgres）
type ExpiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// CleanupService 定时清理过期缓存
type CleanupService struct {
	cleaner  ExpiredCleaner
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewCleanupService 创建清理服务
func NewCleanupService(cleaner ExpiredCleaner, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{
		cleaner:  cleaner,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动定时清理任务
func (s *CleanupService) Start() {
	ticker := time.NewTicker(s.interval)

	// 启动时先运行一次
	go s.RunOnce(context.Background())

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止定时任务
func (s *CleanupService) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// RunOnce 清理一次，返回删除条数
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	log.Info("[CleanupService] 开始清理过期缓存...")

	affected, err := s.cleaner.CleanExpired(ctx)
	if err != nil {
		log.Errorf("[CleanupService] 清理过期缓存失败: %v", err)
		return 0
	}
	if affected > 0 {
		log.Infof("[CleanupService] 已清理 %d 条过期缓存", affected)
	}
	return affected
}
