package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spacehub/internal/adapters/kafka"
	"spacehub/internal/api/handlers"
	"spacehub/internal/api/middleware"
	"spacehub/internal/api/routes"
	"spacehub/internal/auth"
	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/repository"
	"spacehub/internal/services"
	"spacehub/internal/websocket"

	"github.com/joho/godotenv"
)

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.SetDefault(newLogger(cfg.Log))
	slog.Info("Starting spacehub server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Redis and Kafka are optional; interfaces stay nil when they are not configured
	var (
		online    websocket.OnlineTracker
		onlineAPI handlers.OnlineLister
		limiter   websocket.RateLimiter
		httpLimit middleware.RateLimiter
		publisher websocket.ChatPublisher
	)

	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisService := services.NewRedisService(redisClient)
		online, onlineAPI, limiter, httpLimit = redisService, redisService, redisService, redisService
	} else {
		slog.Warn("REDIS_URL not set, online users and rate limits are local only")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		chatPublisher, err := kafka.NewChatPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to create Kafka publisher", "error", err)
			os.Exit(1)
		}
		defer chatPublisher.Close()
		publisher = chatPublisher
	}

	tokens := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	// Initialize WebSocket hub
	hub := websocket.NewHub(online)
	wsRouter := websocket.NewRouter(hub, websocket.Dependencies{
		Spaces:    spaceRepo,
		Presences: presenceRepo,
		Chats:     chatRepo,
		Users:     userRepo,
		Limiter:   limiter,
		Publisher: publisher,
	}, websocket.RouterConfig{
		StoreTimeout:   cfg.WebSocket.StoreTimeout,
		ChatRateLimit:  cfg.WebSocket.ChatRateLimit,
		ChatRateWindow: cfg.WebSocket.ChatRateWindow,
	})
	acceptor := websocket.NewAcceptor(wsRouter, cfg.Server.AllowedOrigins, websocket.ClientOptions{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Deps{
		Hub:              hub,
		Gate:             auth.NewGate(tokens, userRepo),
		Acceptor:         acceptor,
		Tokens:           tokens,
		AuthService:      auth.NewAuthService(userRepo, tokens),
		Spaces:           spaceRepo,
		Presences:        presenceRepo,
		Chats:            chatRepo,
		Online:           onlineAPI,
		Limiter:          httpLimit,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		ConnectRateLimit: cfg.WebSocket.ConnectRateLimit,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown stops accepting; hijacked websocket connections are closed by the hub
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	// the database stays open until every disconnect has been persisted
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("WebSocket connections did not finish closing", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("Server stopped")
}
