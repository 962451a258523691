package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/service"
	"github.com/johannth/imdb-watchlist/internal/utils"
)

type watchlistRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type justWatchRequest struct {
	IMDbID      string `json:"imdbId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Type        string `json:"type"`
	ReleaseDate *int64 `json:"releaseDate"`
}

type enrichRequest struct {
	Movies []model.Movie `json:"movies"`
}

// Watchlist POST /api/watchlist 返回按优先级排序的片单
func (h *Handler) Watchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少 userId")
		return
	}

	wl, err := h.Enricher.Watchlist(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	state := service.NewState().ReceiveWatchlist(wl)
	list := state.Watchlist()
	list.Movies = state.Sorted()
	utils.Success(c, gin.H{"list": list})
}

// Bechdel GET /api/bechdel?imdbId= 未收录时 item 为 null
func (h *Handler) Bechdel(c *gin.Context) {
	imdbID := c.Query("imdbId")
	if imdbID == "" {
		utils.BadRequest(c, "缺少 imdbId")
		return
	}

	item, err := h.Enricher.Bechdel(c.Request.Context(), imdbID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"item": item})
}

// JustWatch POST /api/justwatch
func (h *Handler) JustWatch(c *gin.Context) {
	var req justWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少 imdbId 或 title")
		return
	}

	item, err := h.Enricher.JustWatch(c.Request.Context(), model.Movie{
		ID:          req.IMDbID,
		Title:       req.Title,
		Type:        req.Type,
		ReleaseDate: req.ReleaseDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"item": item})
}

// Netflix GET /api/netflix?imdbId=&title=&locale=
func (h *Handler) Netflix(c *gin.Context) {
	imdbID, title := c.Query("imdbId"), c.Query("title")
	if imdbID == "" || title == "" {
		utils.BadRequest(c, "缺少 imdbId 或 title")
		return
	}

	item, err := h.Enricher.Netflix(c.Request.Context(), imdbID, title, c.Query("locale"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"item": item})
}

// Enrich POST /api/enrich 一次性补全整份列表
func (h *Handler) Enrich(c *gin.Context) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求格式错误")
		return
	}
	movies := h.Enricher.Enrich(c.Request.Context(), req.Movies)
	utils.Success(c, gin.H{"movies": movies})
}
