package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyrelaygo/internal/config"
	"storyrelaygo/internal/http/http_server"
	"storyrelaygo/internal/http/storyhandler"
	"storyrelaygo/internal/redis/redis_client"
	"storyrelaygo/internal/store/export_store"
	"storyrelaygo/internal/store/session_store"
	"storyrelaygo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Stores: session snapshots + durable story exports
	sessions := session_store.New(redisClient, cfg.SessionIdleTTL)
	exports := export_store.New(redisClient, cfg.ExportTTL)

	// 5. Room hub: one coordinator per room code
	hub := ws.NewHub(sessions, cfg.PlaybackSyncBuffer)

	// 6. Initialize the WS server
	wsSrv := ws.NewWsServer(hub)

	// 7. HTTP + WS server
	storyHandler := storyhandler.New(sessions, exports, cfg.PublicBaseURL)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, storyHandler)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
