package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duo-dare-backend/internal/config"
	"duo-dare-backend/internal/handlers"
	"duo-dare-backend/internal/middleware"
	"duo-dare-backend/internal/repository"
	"duo-dare-backend/internal/services"
	"duo-dare-backend/internal/worker"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping Redis")
	}
	log.Info().Msg("Redis connection established")

	// Initialize object storage
	storage, err := services.NewMediaStorage(ctx,
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media storage")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)

	// Initialize services
	wsHub := services.NewWSHub(rdb)
	go wsHub.Run(ctx)

	pushService, err := services.NewPushService(cfg.APNS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push service")
	}

	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	premiumService := services.NewPremiumService(userRepo, sessionRepo)
	sessionService := services.NewSessionService(
		sessionRepo, challengeRepo, userRepo, messageRepo,
		storage, wsHub, wsHub, pushService, cfg.Game,
	)
	mediaService := services.NewMediaService(
		messageRepo, sessionRepo, userRepo,
		storage, wsHub, wsHub, pushService, cfg.Game.MediaTTL(),
	)

	// Start background jobs
	sweeper := worker.NewSweeper(
		messageRepo, sessionRepo, storage, premiumService, wsHub,
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		cfg.Game.SweepInterval(),
	)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sweeper")
	}
	defer sweeper.Stop()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, sessionService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	messageHandler := handlers.NewMessageHandler(mediaService)
	premiumHandler := handlers.NewPremiumHandler(premiumService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, sessionService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.Register)
		r.Post("/users/login", userHandler.Login)
		r.Post("/billing/events", premiumHandler.BillingWebhook)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/me", userHandler.Me)
			r.Patch("/users/me/preferences", userHandler.UpdatePreferences)
			r.Patch("/users/me/push-token", userHandler.UpdatePushToken)
			r.Delete("/users/me", userHandler.DeleteAccount)

			r.Post("/sessions", sessionHandler.Create)
			r.Post("/sessions/join", sessionHandler.Join)
			r.Get("/sessions/{code}", sessionHandler.Get)
			r.Post("/sessions/{code}/complete", sessionHandler.Complete)
			r.Post("/sessions/{code}/skip", sessionHandler.Skip)
			r.Post("/sessions/{code}/change", sessionHandler.Change)
			r.Post("/sessions/{code}/bonus", sessionHandler.GrantBonus)
			r.Delete("/sessions/{code}", sessionHandler.End)

			r.Post("/sessions/{code}/messages", messageHandler.SendText)
			r.Get("/sessions/{code}/messages", messageHandler.List)
			r.Post("/sessions/{code}/media", messageHandler.InitiateUpload)
			r.Post("/media/{request_id}/finalize", messageHandler.FinalizeUpload)
			r.Post("/sessions/{code}/messages/{message_id}/download", messageHandler.Download)
			r.Post("/messages/{message_id}/read", messageHandler.MarkRead)

			r.Get("/features/{feature}", premiumHandler.CheckFeature)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the hub and the periodic jobs
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
