package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johannth/imdb-watchlist/internal/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 数据源
const (
	ProviderBechdel   = "bechdel"
	ProviderJustWatch = "justwatch"
	ProviderNetflix   = "netflix"
)

// Providers 全部数据源，按派发顺序
var Providers = []string{ProviderBechdel, ProviderJustWatch, ProviderNetflix}

// DefaultBatchSize 每批影片数
const DefaultBatchSize = 50

type BechdelFetcher interface {
	Fetch(ctx context.Context, imdbID string) (*model.BechdelRating, error)
}

type JustWatchFetcher interface {
	Fetch(ctx context.Context, imdbID, title, kind string, releaseDate *int64) (*model.JustWatchData, error)
}

type NetflixFetcher interface {
	Check(ctx context.Context, imdbID, title, locale string) (*model.NetflixAvailability, error)
}

type WatchlistFetcher interface {
	FetchWatchlist(ctx context.Context, userID string) (*model.Watchlist, error)
}

// Update 一个批次中某个数据源的全部结果。没有数据的影片对应 nil
type Update struct {
	Provider  string                                `json:"provider"`
	Bechdel   map[string]*model.BechdelRating       `json:"bechdel,omitempty"`
	JustWatch map[string]*model.JustWatchData       `json:"justwatch,omitempty"`
	Netflix   map[string]*model.NetflixAvailability `json:"netflix,omitempty"`
}

// Len 结果条数
func (u Update) Len() int {
	switch u.Provider {
	case ProviderBechdel:
		return len(u.Bechdel)
	case ProviderJustWatch:
		return len(u.JustWatch)
	case ProviderNetflix:
		return len(u.Netflix)
	}
	return 0
}

// BatchResults 一个批次三个数据源的结果
type BatchResults struct {
	Bechdel   map[string]*model.BechdelRating       `json:"bechdel"`
	JustWatch map[string]*model.JustWatchData       `json:"justwatch"`
	Netflix   map[string]*model.NetflixAvailability `json:"netflix"`
}

// Updates 按数据源拆分
func (r BatchResults) Updates() []Update {
	return []Update{
		{Provider: ProviderBechdel, Bechdel: r.Bechdel},
		{Provider: ProviderJustWatch, JustWatch: r.JustWatch},
		{Provider: ProviderNetflix, Netflix: r.Netflix},
	}
}

// EnricherConfig 批处理与缓存参数
type EnricherConfig struct {
	BatchSize     int
	NetflixLocale string
	WatchlistTTL  time.Duration
	BechdelTTL    time.Duration
	JustWatchTTL  time.Duration
	NetflixTTL    time.Duration
}

// Enricher 分批并发调用各数据源，结果经过缓存
type Enricher struct {
	cache     *Cache
	imdb      WatchlistFetcher
	bechdel   BechdelFetcher
	justwatch JustWatchFetcher
	netflix   NetflixFetcher
	cfg       EnricherConfig
}

func NewEnricher(cache *Cache, imdb WatchlistFetcher, bechdel BechdelFetcher, justwatch JustWatchFetcher, netflix NetflixFetcher, cfg EnricherConfig) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Enricher{
		cache:     cache,
		imdb:      imdb,
		bechdel:   bechdel,
		justwatch: justwatch,
		netflix:   netflix,
		cfg:       cfg,
	}
}

// Watchlist 获取片单（带缓存）
func (e *Enricher) Watchlist(ctx context.Context, userID string) (*model.Watchlist, error) {
	return CachePromise(ctx, e.cache, "watchlist:"+userID, e.cfg.WatchlistTTL, func(ctx context.Context) (*model.Watchlist, error) {
		return e.imdb.FetchWatchlist(ctx, userID)
	})
}

// Bechdel 查询单部影片评分（带缓存）
func (e *Enricher) Bechdel(ctx context.Context, imdbID string) (*model.BechdelRating, error) {
	return CachePromise(ctx, e.cache, "bechdel:"+imdbID, e.cfg.BechdelTTL, func(ctx context.Context) (*model.BechdelRating, error) {
		return e.bechdel.Fetch(ctx, imdbID)
	})
}

// JustWatch 查询单部影片观看方式（带缓存）
func (e *Enricher) JustWatch(ctx context.Context, m model.Movie) (*model.JustWatchData, error) {
	return CachePromise(ctx, e.cache, "justwatch:"+m.ID, e.cfg.JustWatchTTL, func(ctx context.Context) (*model.JustWatchData, error) {
		return e.justwatch.Fetch(ctx, m.ID, m.Title, m.Type, m.ReleaseDate)
	})
}

// Netflix 确认地区 Netflix（带缓存），locale 为空时使用默认地区
func (e *Enricher) Netflix(ctx context.Context, imdbID, title, locale string) (*model.NetflixAvailability, error) {
	if locale == "" {
		locale = e.cfg.NetflixLocale
	}
	key := fmt.Sprintf("netflix:%s:%s", imdbID, locale)
	return CachePromise(ctx, e.cache, key, e.cfg.NetflixTTL, func(ctx context.Context) (*model.NetflixAvailability, error) {
		return e.netflix.Check(ctx, imdbID, title, locale)
	})
}

// SplitIntoBatches 按顺序切分，空列表返回一个空批次
func SplitIntoBatches(movies []model.Movie, size int) [][]model.Movie {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(movies) == 0 {
		return [][]model.Movie{{}}
	}
	batches := make([][]model.Movie, 0, (len(movies)+size-1)/size)
	for start := 0; start < len(movies); start += size {
		end := min(start+size, len(movies))
		batches = append(batches, movies[start:end])
	}
	return batches
}

// fetchBatch 对批次内每部影片并发调用 fetch。单部失败记为 nil，不影响其它影片
func fetchBatch[T any](ctx context.Context, provider string, batch []model.Movie, fetch func(context.Context, model.Movie) (*T, error)) map[string]*T {
	results := make(map[string]*T, len(batch))
	var mu sync.Mutex
	var g errgroup.Group

	for _, m := range batch {
		g.Go(func() error {
			v := safeFetch(ctx, provider, m, fetch)
			mu.Lock()
			results[m.ID] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func safeFetch[T any](ctx context.Context, provider string, m model.Movie, fetch func(context.Context, model.Movie) (*T, error)) (v *T) {
	entry := log.WithFields(log.Fields{"provider": provider, "imdb_id": m.ID, "title": m.Title})
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("[Enricher] panic: %v", r)
			v = nil
		}
	}()

	v, err := fetch(ctx, m)
	if err != nil {
		if IsNotFound(err) {
			entry.Debugf("[Enricher] %v", err)
		} else {
			entry.WithError(err).Warn("[Enricher] 获取数据失败")
		}
		return nil
	}
	return v
}

func (e *Enricher) fetchProvider(ctx context.Context, provider string, batch []model.Movie) Update {
	u := Update{Provider: provider}
	switch provider {
	case ProviderBechdel:
		u.Bechdel = fetchBatch(ctx, provider, batch, func(ctx context.Context, m model.Movie) (*model.BechdelRating, error) {
			return e.Bechdel(ctx, m.ID)
		})
	case ProviderJustWatch:
		u.JustWatch = fetchBatch(ctx, provider, batch, e.JustWatch)
	case ProviderNetflix:
		u.Netflix = fetchBatch(ctx, provider, batch, func(ctx context.Context, m model.Movie) (*model.NetflixAvailability, error) {
			return e.Netflix(ctx, m.ID, m.Title, e.cfg.NetflixLocale)
		})
	}
	return u
}

// EnrichBatch 三个数据源并发处理一个批次，全部完成后返回
func (e *Enricher) EnrichBatch(ctx context.Context, batch []model.Movie) BatchResults {
	var res BatchResults
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		res.Bechdel = e.fetchProvider(ctx, ProviderBechdel, batch).Bechdel
	}()
	go func() {
		defer wg.Done()
		res.JustWatch = e.fetchProvider(ctx, ProviderJustWatch, batch).JustWatch
	}()
	go func() {
		defer wg.Done()
		res.Netflix = e.fetchProvider(ctx, ProviderNetflix, batch).Netflix
	}()
	wg.Wait()
	return res
}

// Stream 所有批次、所有数据源同时派发。每个 (批次, 数据源) 完成后发送一个 Update，全部完成后关闭通道
func (e *Enricher) Stream(ctx context.Context, movies []model.Movie) <-chan Update {
	batches := SplitIntoBatches(movies, e.cfg.BatchSize)
	// 缓冲足够大，接收方提前退出时发送方也不会阻塞
	out := make(chan Update, len(batches)*len(Providers))

	var wg sync.WaitGroup
	for i, batch := range batches {
		for _, provider := range Providers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				start := time.Now()
				u := e.fetchProvider(ctx, provider, batch)
				log.WithFields(log.Fields{"provider": provider, "batch": i, "size": len(batch)}).
					Debugf("[Enricher] 批次完成，耗时 %v", time.Since(start))
				out <- u
			}()
		}
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Enrich 处理整份列表，返回按优先级排序的结果
func (e *Enricher) Enrich(ctx context.Context, movies []model.Movie) []model.Movie {
	state := NewState().ReceiveWatchlist(&model.Watchlist{Movies: movies})
	for u := range e.Stream(ctx, movies) {
		state = state.Apply(u)
	}
	return state.Sorted()
}
