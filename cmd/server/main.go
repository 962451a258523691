package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/johannth/imdb-watchlist/internal/config"
	"github.com/johannth/imdb-watchlist/internal/handler"
	"github.com/johannth/imdb-watchlist/internal/middleware"
	"github.com/johannth/imdb-watchlist/internal/repository"
	"github.com/johannth/imdb-watchlist/internal/router"
	"github.com/johannth/imdb-watchlist/internal/service"
	"github.com/johannth/imdb-watchlist/internal/utils"
	log "github.com/sirupsen/logrus"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	// 初始化缓存
	store, cleanup := initCacheStore(cfg)
	defer cleanup()
	cache := service.NewCache(store, cfg.CacheWriteOnly)
	if cfg.CacheWriteOnly {
		log.Warn("[Cache] 只写模式：读取总是未命中")
	}

	// 上游客户端，两个限流器相互独立
	bechdel := service.NewBechdelClient(
		utils.NewHTTPClient("bechdel", cfg.UpstreamTimeout), cfg.BechdelURL, service.NewThrottle(cfg.BechdelRPS))
	justwatch := service.NewJustWatchClient(
		utils.NewHTTPClient("justwatch", cfg.UpstreamTimeout), cfg.JustWatchURL, cfg.JustWatchLocale,
		cfg.JustWatchExactDistance, cfg.JustWatchFuzzyDistance)
	netflix := service.NewNetflixClient(
		utils.NewHTTPClient("netflix", cfg.UpstreamTimeout), cfg.FlixlistURL, cfg.NetflixURL,
		cfg.NetflixCountries, service.NewThrottle(cfg.NetflixRPS))
	imdb := service.NewIMDbClient(utils.NewHTTPClient("imdb", cfg.UpstreamTimeout), cfg.IMDbURL)

	enricher := service.NewEnricher(cache, imdb, bechdel, justwatch, netflix, service.EnricherConfig{
		BatchSize:     cfg.BatchSize,
		NetflixLocale: cfg.NetflixLocale,
		WatchlistTTL:  cfg.WatchlistTTL,
		BechdelTTL:    cfg.BechdelTTL,
		JustWatchTTL:  cfg.JustWatchTTL,
		NetflixTTL:    cfg.NetflixTTL,
	})

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())

	// 启用 gzip，WebSocket 不压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// 初始化 Handler 并注册路由
	h := handler.NewHandler(enricher, cfg)
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Infof("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务器强制关闭: ", err)
	}

	log.Info("服务器已退出")
}

// initCacheStore 按 CACHE_DRIVER 选择缓存存储，返回关闭函数
func initCacheStore(cfg *config.Config) (service.CacheStore, func()) {
	switch cfg.CacheDriver {
	case config.CacheDriverLRU:
		store, err := utils.NewLRUStore(cfg.CacheLRUSize)
		if err != nil {
			log.Fatalf("初始化 LRU 缓存失败: %v", err)
		}
		return store, func() {}

	case config.CacheDriverRedis:
		store, err := repository.NewRedisCacheStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Redis 地址无效: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			// 缓存不可用时降级为未命中，不阻止启动
			log.WithError(err).Warn("[Cache] Redis 连接失败，缓存将按未命中处理")
		}
		return store, func() { _ = store.Close() }

	case config.CacheDriverPostgres:
		db, err := repository.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		store := repository.NewPGCacheStore(db)
		cleanupSvc := service.NewCleanupService(store, time.Hour)
		cleanupSvc.Start()
		return store, func() {
			cleanupSvc.Stop()
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}

	default:
		return utils.NewMemoryStore(), func() {}
	}
}
