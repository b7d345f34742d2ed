package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"storyrelaygo/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second // must be < pongWait

	maxFrameSize = 4096
	eventTimeout = 1900 * time.Millisecond
)

type WsServer struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
}

func NewWsServer(h *Hub) *WsServer {
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true }, // dev-only
		},
	}
	srv.registerHandlers() // ← all WS message types configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	code := strings.ToUpper(ginCtx.Param("code"))
	if !game.ValidRoomCode(code) {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)

	// ─────────────────── Client connected ─────────────────────
	connID := uuid.NewString()
	room := s.hub.Room(code)
	wsConn := &clientConn{rawConn: rawConn}
	room.Gateway.Register(connID, wsConn)

	// Connection confirmation goes out before any game traffic.
	_ = wsConn.writeJSON(ConnectedMsg{Type: "connected", PlayerID: connID})

	go s.reader(room, connID, wsConn)
	go s.pinger(wsConn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, msgJoin,
		func(ctx context.Context, c *ConnContext, req JoinRequest) error {
			return c.Room.Coord.Join(ctx, c.ConnID, req)
		})
	Register(s.router, msgUpdateSettings,
		func(ctx context.Context, c *ConnContext, req UpdateSettingsRequest) error {
			return c.Room.Coord.UpdateSettings(ctx, c.ConnID, req.RoundsPerPlayer)
		})
	Register(s.router, msgStartGame,
		func(ctx context.Context, c *ConnContext, _ StartGameRequest) error {
			return c.Room.Coord.StartGame(ctx, c.ConnID)
		})
	Register(s.router, msgSubmitSentence,
		func(ctx context.Context, c *ConnContext, req SubmitSentenceRequest) error {
			return c.Room.Coord.SubmitSentence(ctx, c.ConnID, req.Sentence)
		})
	Register(s.router, msgStartPlayback,
		func(ctx context.Context, c *ConnContext, _ StartPlaybackRequest) error {
			return c.Room.Coord.StartPlayback(ctx, c.ConnID)
		})
	Register(s.router, msgPlaybackComplete,
		func(ctx context.Context, c *ConnContext, req PlaybackCompleteRequest) error {
			return c.Room.Coord.PlaybackComplete(ctx, c.ConnID, req.SentenceIndex)
		})
}

func (s *WsServer) reader(room *Room, connID string, conn *clientConn) {
	defer func() {
		room.Gateway.Unregister(connID)

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		if err := room.Coord.Disconnect(ctx, connID); err != nil {
			zap.L().Warn("ws.disconnect", zap.String("room", room.Code), zap.Error(err))
		}
		cancel()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{RoomCode: room.Code, ConnID: connID, Room: room}

	for {
		_, frame, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		err = s.router.dispatch(ctx, cc, frame)
		cancel()

		// Rejections go back to the sender only; the snapshot is untouched.
		if err != nil {
			_ = conn.writeJSON(ErrorMsg{Type: "error", Message: clientMessage(err)})
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			conn.close()
			return
		}
	}
}

// clientMessage maps an error to what the client may see. Anything outside
// the rejection taxonomy is logged and reported generically.
func clientMessage(err error) string {
	for _, sentinel := range []error{
		game.ErrInvalidArgument,
		game.ErrForbidden,
		game.ErrOutOfTurn,
		game.ErrPreconditionFailed,
		game.ErrGameNotJoinable,
		game.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	zap.L().Error("ws.handler", zap.Error(err))
	return "internal error"
}
