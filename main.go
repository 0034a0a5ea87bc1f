package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braingarden/internal/battle"
	"braingarden/internal/config"
	"braingarden/internal/database/db_client"
	"braingarden/internal/http/authhandler"
	"braingarden/internal/http/http_server"
	"braingarden/internal/http/problemhandler"
	"braingarden/internal/http/rankinghandler"
	"braingarden/internal/http/roomhandler"
	"braingarden/internal/http/sethandler"
	"braingarden/internal/redis/redis_client"
	"braingarden/internal/services/memoryset"
	"braingarden/internal/services/problem"
	"braingarden/internal/services/ranking"
	"braingarden/internal/services/user"
	"braingarden/internal/syncrank"
	"braingarden/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Postgres db client + schema
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()
	if err := db_client.EnsureSchema(ctx, pgDb); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 4. Redis (ranking boards + ranking stream)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 5. Services
	userService := user.NewUserService(pgDb, cfg.JwtSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	setService := memoryset.NewMemorySetService(pgDb)
	problemService := problem.NewProblemService(setService)
	rankingService := ranking.NewRankingService(redisClient, pgDb)

	// 6. Background: ranking stream ➜ Postgres
	syncrank.Run(ctx, redisClient, pgDb)

	// 7. Battle rooms: connection registry + coordinator + WS server
	registry := battle.NewRegistry()
	coordinator := battle.NewCoordinator(registry)
	wsSrv := ws.NewWsServer(coordinator)

	// 8. HTTP + WS server
	authHandler := authhandler.New(userService, setService)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, http_server.Handlers{
		Auth:    authHandler,
		Sets:    sethandler.New(setService, authHandler),
		Problem: problemhandler.New(problemService, coordinator),
		Ranking: rankinghandler.New(rankingService),
		Rooms:   roomhandler.New(coordinator, setService),
	})
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
