package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"grid-arena/internal/api"
	"grid-arena/internal/config"
	"grid-arena/internal/game"
	"grid-arena/internal/notify"
	"grid-arena/internal/registry"
	"grid-arena/internal/storage"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  GRID ARENA SERVER")
	log.Println("🎮 ================================")

	cfg := config.Load()
	log.Printf("🗺️ Grid %dx%d, %d actions per round, session TTL %s",
		cfg.Game.GridWidth, cfg.Game.GridHeight, cfg.Game.ActionsPerRound, cfg.Game.SessionTTL())

	store, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Failed to open session store: %v", err)
	}
	defer store.Close()

	hub := notify.NewHub()
	reg := registry.New(registry.Config{
		Game: game.Config{
			GridWidth:       cfg.Game.GridWidth,
			GridHeight:      cfg.Game.GridHeight,
			ActionsPerRound: cfg.Game.ActionsPerRound,
			TerrainMax:      cfg.Game.TerrainMax,
		},
		SessionTTL: cfg.Game.SessionTTL(),
		OnDestroy:  hub.DropSession,
	}, store)

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(reg, hub, api.ServerConfig{
		Gateway: api.GatewayConfig{
			MaxConnections:    cfg.Limits.MaxWSConnections,
			MaxConnsPerIP:     cfg.Limits.MaxConnsPerIP,
			CommandsPerSecond: cfg.Limits.CommandsPerSecond,
			CommandBurst:      cfg.Limits.CommandBurst,
		},
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: cfg.Limits.RequestsPerSecond,
			Burst:             cfg.Limits.RequestBurst,
		},
	})

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		log.Printf("🔌 WebSocket endpoint: ws://localhost%s/ws", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
	log.Println("👋 Goodbye!")
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		log.Printf("💾 Session store: sqlite at %s", cfg.Path)
		return storage.OpenSQLite(cfg.Path)
	default:
		log.Println("💾 Session store: in-memory")
		return storage.NewMemoryStore(), nil
	}
}
