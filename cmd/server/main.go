package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"bible-quiz/internal/auth"
	"bible-quiz/internal/config"
	"bible-quiz/internal/questions"
	"bible-quiz/internal/quiz"
	"bible-quiz/internal/scheduler"
	"bible-quiz/pkg/cache"
	"bible-quiz/pkg/database"
	"bible-quiz/pkg/logger"
	"bible-quiz/pkg/response"
	"bible-quiz/pkg/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresDB(&database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	// History summaries are cached in Redis when it is reachable.
	redisCache := cache.NewRedisCache(cfg.RedisAddr)
	defer redisCache.Close()
	var historyCache quiz.HistoryCache
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("Redis unavailable, history cache disabled", "addr", cfg.RedisAddr, "error", err)
	} else {
		historyCache = redisCache
	}

	// Initialize repositories
	authRepo := auth.NewRepository(db)
	quizRepo := quiz.NewRepository(db, log)

	// Initialize services
	history := quiz.NewHistory(quizRepo, historyCache, log)
	authService := auth.NewService(authRepo, history, cfg.JWTSecret, log)

	wsHub := websocket.NewHub(authService.AuthenticateQuery, cfg.AllowedOrigins, log)
	go wsHub.Run(ctx)

	source, err := questions.NewSource(cfg.OpenAI, log)
	if err != nil {
		log.Fatal("Failed to configure question source", "error", err)
	}
	quizService := quiz.NewService(quizRepo, source, history, wsHub, log)

	sweeper, err := scheduler.Start(ctx, cfg.SweepSchedule, func(ctx context.Context) error {
		_, err := quizService.SweepExhausted(ctx)
		return err
	}, log)
	if err != nil {
		log.Fatal("Failed to start completion sweeper", "error", err)
	}
	defer sweeper.Stop()
	go func() {
		if err := sweeper.RunNow(); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Initial completion sweep failed", "error", err)
		}
	}()

	// Initialize handlers
	authHandler := auth.NewHandler(authService)
	quizHandler := quiz.NewHandler(quizService, log)

	// Setup router
	router := mux.NewRouter()
	router.HandleFunc("/api/health", healthHandler(db, historyCache != nil, redisCache)).Methods(http.MethodGet)

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)

	// Everything else under /api needs a token
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(authService))
	apiRouter.HandleFunc("/users/me", authHandler.DeleteMe).Methods(http.MethodDelete, http.MethodOptions)
	quizHandler.RegisterRoutes(apiRouter.PathPrefix("/game").Subrouter())

	// WebSocket endpoint, authenticated with ?token=
	router.HandleFunc("/ws", wsHub.HandleWebSocket)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Quiz generation waits on the model, so writes get the OpenAI timeout plus slack.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OpenAI.Timeout + 15*time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	log.Info("Server shutdown gracefully")
}

func healthHandler(db *gorm.DB, cacheEnabled bool, redisCache *cache.RedisCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "cache": "disabled"}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			healthy = false
		}
		if cacheEnabled {
			checks["cache"] = "ok"
			if err := redisCache.Ping(ctx); err != nil {
				checks["cache"] = "unavailable"
			}
		}

		if !healthy {
			response.JSON(w, http.StatusServiceUnavailable, response.Envelope{
				Status:  response.StatusError,
				Message: "Service unavailable",
				Data:    checks,
			})
			return
		}
		response.Success(w, http.StatusOK, map[string]interface{}{
			"checks": checks,
			"time":   time.Now().UTC(),
		})
	}
}
