package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/johannth/imdb-watchlist/internal/config"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/service"
	"github.com/johannth/imdb-watchlist/internal/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Enricher 片单获取与补全
type Enricher interface {
	Watchlist(ctx context.Context, userID string) (*model.Watchlist, error)
	Bechdel(ctx context.Context, imdbID string) (*model.BechdelRating, error)
	JustWatch(ctx context.Context, m model.Movie) (*model.JustWatchData, error)
	Netflix(ctx context.Context, imdbID, title, locale string) (*model.NetflixAvailability, error)
	Stream(ctx context.Context, movies []model.Movie) <-chan service.Update
	Enrich(ctx context.Context, movies []model.Movie) []model.Movie
}

// Handler HTTP 处理器
type Handler struct {
	Enricher Enricher
	Config   *config.Config
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(enricher Enricher, cfg *config.Config) *Handler {
	h := &Handler{
		Enricher: enricher,
		Config:   cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// checkOrigin 允许的来源与 CORS 一致
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.Config == nil {
		return true
	}
	return slices.Contains(h.Config.CORSAllowOrigins, "*") || slices.Contains(h.Config.CORSAllowOrigins, origin)
}

// respondError 未找到 -> 404，不支持的地区 -> 400，其它上游错误 -> 502
func respondError(c *gin.Context, err error) {
	switch {
	case service.IsNotFound(err):
		utils.NotFound(c, err.Error())
		return
	case errors.Is(err, service.ErrUnsupportedLocale):
		utils.BadRequest(c, err.Error())
		return
	}
	log.WithError(err).WithField("path", c.Request.URL.Path).Warn("[Handler] 上游请求失败")
	utils.BadGateway(c, "")
}
