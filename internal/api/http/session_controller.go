package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/session"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type SessionController struct {
	deps     session.Deps
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewSessionController(deps session.Deps, log *slog.Logger) *SessionController {
	if log == nil {
		log = slog.Default()
	}
	return &SessionController{
		deps: deps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// socketSink serialises frame writes; gorilla allows one concurrent writer.
type socketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socketSink) Send(_ context.Context, frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(frame)
}

func (s *socketSink) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// JoinRoom upgrades the request and runs a session for ?user_id= in the room
// until either side goes away.
func (c *SessionController) JoinRoom(ctx *gin.Context) {
	const op = "http.session.join"

	code := domain.NormalizeCode(ctx.Param("code"))
	userID, err := uuid.Parse(ctx.Query("user_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	log := c.log.With(slog.String("op", op), slog.String("room_code", code), slog.String("user_id", userID.String()))

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}
	defer conn.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &socketSink{conn: conn}
	actions := make(chan domain.Action)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(actions)
		readActions(runCtx, conn, actions, log)
	}()
	go func() {
		defer wg.Done()
		keepAlive(runCtx, sink)
	}()

	err = session.New(code, userID, c.deps, sink).Run(runCtx, actions)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Debug("session finished")
	case domain.IsNotFound(err):
		log.Info("join rejected", sl.Err(err))
	default:
		log.Error("session failed", sl.Err(err))
	}

	cancel()
	sink.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	sink.mu.Unlock()
	_ = conn.Close()
	wg.Wait()
}

func readActions(ctx context.Context, conn *websocket.Conn, out chan<- domain.Action, log *slog.Logger) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var action domain.Action
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", sl.Err(err))
			}
			return
		}
		select {
		case out <- action:
		case <-ctx.Done():
			return
		}
	}
}

func keepAlive(ctx context.Context, sink *socketSink) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sink.ping(); err != nil {
				return
			}
		}
	}
}
