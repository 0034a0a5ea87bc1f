package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"braingarden/internal/http/authhandler"
	"braingarden/internal/http/problemhandler"
	"braingarden/internal/http/rankinghandler"
	"braingarden/internal/http/roomhandler"
	"braingarden/internal/http/sethandler"
	"braingarden/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *authhandler.Handler
	Sets    *sethandler.Handler
	Problem *problemhandler.Handler
	Ranking *rankinghandler.Handler
	Rooms   *roomhandler.Handler
}

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	wsSrv      *ws.WsServer
	handlers   Handlers
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, handlers Handlers) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		handlers:   handlers,
		ctx:        ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	routerEngine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello, Brain Garden API!"})
	})

	// websocket endpoint
	routerEngine.GET("/ws/:roomID/:playerID", h.wsSrv.Handle)

	// REST API
	h.handlers.Auth.Register(routerEngine)
	h.handlers.Sets.Register(routerEngine)
	h.handlers.Problem.Register(routerEngine)
	h.handlers.Ranking.Register(routerEngine)
	h.handlers.Rooms.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}
