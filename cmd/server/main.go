package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peerconnect/server/internal/config"
	"github.com/peerconnect/server/internal/database"
	postgresrepo "github.com/peerconnect/server/internal/repository/postgres"
	"github.com/peerconnect/server/internal/service"
	"github.com/peerconnect/server/internal/transport/http/handlers"
	"github.com/peerconnect/server/internal/transport/http/middleware"
	"github.com/peerconnect/server/internal/transport/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	if result, err := database.Migrate(cfg); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	} else if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	connRepo := postgresrepo.NewConnectionRepo(pool)
	chatRepo := postgresrepo.NewChatRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	connService := service.NewConnectionService(connRepo, userRepo)
	chatService := service.NewChatService(chatRepo)

	// Live updates
	hub := ws.NewHub(logger)
	go hub.Run()
	notifier := ws.NewHubNotifier(hub, logger)
	connService.SetNotifier(notifier)
	chatService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	connHandler := handlers.NewConnectionHandler(connService, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)

	// Middleware
	auth := middleware.Auth(cfg.JWTSecret)
	limiter := middleware.NewLimiterStore(cfg.AuthRateRPM, 3, time.Minute)
	defer limiter.Stop()
	limited := middleware.RateLimit(limiter)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("POST /api/v1/auth/register", limited(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", limited(http.HandlerFunc(authHandler.Login)))

	// Protected - Session
	mux.Handle("GET /api/v1/auth/me", auth(http.HandlerFunc(authHandler.Me)))

	// Protected - Connection lifecycle
	mux.Handle("POST /api/v1/connections", auth(http.HandlerFunc(connHandler.SendRequest)))
	mux.Handle("GET /api/v1/connections", auth(http.HandlerFunc(connHandler.ListConversations)))
	mux.Handle("GET /api/v1/connections/pending", auth(http.HandlerFunc(connHandler.ListPending)))
	mux.Handle("POST /api/v1/connections/{id}/accept", auth(http.HandlerFunc(connHandler.Accept)))
	mux.Handle("DELETE /api/v1/connections/{id}", auth(http.HandlerFunc(connHandler.Decline)))

	// Protected - Chat threads
	mux.Handle("POST /api/v1/threads/{id}/messages", auth(http.HandlerFunc(chatHandler.SendMessage)))
	mux.Handle("GET /api/v1/threads/{id}/messages", auth(http.HandlerFunc(chatHandler.ListMessages)))
	mux.Handle("POST /api/v1/threads/{id}/read", auth(http.HandlerFunc(chatHandler.MarkRead)))

	// WebSocket
	mux.Handle("GET /ws", ws.ServeWS(hub, chatService, cfg.JWTSecret, logger))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: middleware.CORS(mux),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exit", zap.Error(err))
	}
}
