package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/johannth/imdb-watchlist/internal/model"
	"github.com/johannth/imdb-watchlist/internal/service"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20 // 片单可能有上千部
)

// 消息类型
const (
	MessageTypeWatchlist = "watchlist"
	MessageTypeMovies    = "movies"
	MessageTypeError     = "error"
)

// Message 双向消息
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

type outgoing struct {
	Type string `json:"type"`
	Body any    `json:"body"`
}

type moviesBody struct {
	Provider string          `json:"provider,omitempty"`
	Results  *service.Update `json:"results,omitempty"`
	Movies   []model.Movie   `json:"movies"`
	Done     bool            `json:"done"`
}

// session 一个 WebSocket 连接。断开时取消 ctx，正在进行的补全随之停止
type session struct {
	id       string
	h        *Handler
	conn     *websocket.Conn
	send     chan outgoing
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closeMux sync.Once
}

// WebSocket GET /ws
func (h *Handler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("[WS] 升级连接失败")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		h:      h,
		conn:   conn,
		send:   make(chan outgoing, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	log.WithField("session", s.id).Info("[WS] 新连接")

	go s.writePump()
	s.readPump()
}

func (s *session) logger() *log.Entry {
	return log.WithField("session", s.id)
}

func (s *session) readPump() {
	defer func() {
		s.cancel()
		s.wg.Wait()
		s.closeSend()
		s.logger().Info("[WS] 连接关闭")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger().WithError(err).Warn("[WS] 连接异常断开")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("消息格式错误")
			continue
		}
		s.dispatch(msg)
	}
}

func (s *session) dispatch(msg Message) {
	switch msg.Type {
	case MessageTypeWatchlist:
		var body struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(msg.Body, &body); err != nil || body.UserID == "" {
			s.sendError("缺少 userId")
			return
		}
		s.goRun(func() { s.handleWatchlist(body.UserID) })

	case MessageTypeMovies:
		var body struct {
			Movies []model.Movie `json:"movies"`
		}
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			s.sendError("movies 格式错误")
			return
		}
		s.goRun(func() { s.handleMovies(body.Movies) })

	default:
		s.sendError("未知消息类型: " + msg.Type)
	}
}

func (s *session) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *session) handleWatchlist(userID string) {
	wl, err := s.h.Enricher.Watchlist(s.ctx, userID)
	if err != nil {
		s.logger().WithError(err).WithField("user_id", userID).Warn("[WS] 获取片单失败")
		s.sendError(err.Error())
		return
	}
	state := service.NewState().ReceiveWatchlist(wl)
	list := state.Watchlist()
	list.Movies = state.Sorted()
	s.push(outgoing{Type: MessageTypeWatchlist, Body: gin.H{"list": list}})
}

// handleMovies 每个 (批次, 数据源) 完成就推送一次当前排序结果，最后推送 done
func (s *session) handleMovies(movies []model.Movie) {
	state := service.NewState().ReceiveWatchlist(&model.Watchlist{Movies: movies})
	start := time.Now()
	for u := range s.h.Enricher.Stream(s.ctx, movies) {
		state = state.Apply(u)
		update := u
		s.push(outgoing{Type: MessageTypeMovies, Body: moviesBody{
			Provider: u.Provider,
			Results:  &update,
			Movies:   state.Sorted(),
		}})
	}
	s.push(outgoing{Type: MessageTypeMovies, Body: moviesBody{Movies: state.Sorted(), Done: true}})
	s.logger().Infof("[WS] %d 部影片补全完成，耗时 %v", len(movies), time.Since(start))
}

func (s *session) sendError(message string) {
	s.push(outgoing{Type: MessageTypeError, Body: gin.H{"message": message}})
}

// push 连接已关闭时丢弃
func (s *session) push(m outgoing) {
	select {
	case s.send <- m:
	case <-s.ctx.Done():
	}
}

func (s *session) closeSend() {
	s.closeMux.Do(func() { close(s.send) })
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case m, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			b, err := json.Marshal(m)
			if err != nil {
				s.logger().WithError(err).Error("[WS] 序列化消息失败")
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.logger().WithError(err).Debug("[WS] 写入失败")
				s.cancel()
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
		}
	}
}
