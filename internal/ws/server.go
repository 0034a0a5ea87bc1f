package ws

import (
	"errors"
	"net/http"
	"time"

	"braingarden/internal/battle"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second // must be < pongWait

	maxFrameSize = 1024

	// closeRoomNotFound mirrors the close code the web client checks
	// for when it joins a room that no longer exists.
	closeRoomNotFound = 4000
	closeRoomFull     = 4001
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type WsServer struct {
	coord *battle.Coordinator
}

func NewWsServer(coord *battle.Coordinator) *WsServer {
	return &WsServer{coord: coord}
}

// Handle is the gin entry-point for GET /ws/:roomID/:playerID.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	roomID := ginCtx.Param("roomID")
	playerID := ginCtx.Param("playerID")
	if roomID == "" || playerID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "roomID and playerID are required"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)

	conn := &clientConn{rawConn: rawConn}
	if err := s.coord.Join(roomID, playerID, conn); err != nil {
		code := closeRoomNotFound
		if errors.Is(err, battle.ErrRoomFull) {
			code = closeRoomFull
		}
		_ = conn.writeControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()))
		_ = conn.Close()
		return
	}

	go s.reader(roomID, playerID, conn)
	go s.pinger(conn)
}

// reader pumps inbound frames into the coordinator. Teardown is
// unconditional: whatever ends the loop (peer close, read error, panic in
// a handler), the connection is deregistered and presence is released.
func (s *WsServer) reader(roomID, playerID string, conn *clientConn) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ws.reader_panic", zap.String("room", roomID), zap.Any("panic", r))
		}
		conn.markClosed()
		s.coord.Leave(roomID, playerID, conn)
		_ = conn.rawConn.Close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}
		if mt != websocket.TextMessage {
			continue
		}
		s.coord.HandleFrame(roomID, playerID, string(data))
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if !conn.Alive() {
			return
		}
		if err := conn.writeControl(websocket.PingMessage, nil); err != nil {
			_ = conn.Close()
			return
		}
	}
}
