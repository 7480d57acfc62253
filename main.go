package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/config"
	"github.com/username/clearinghouse/src/database"
	"github.com/username/clearinghouse/src/handlers"
	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/positions"
	"github.com/username/clearinghouse/src/store"
	"github.com/username/clearinghouse/src/utils"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Clearinghouse API server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(1*time.Minute, 5*time.Minute)

	tradeStore := store.NewTradeStore(database.DB)
	alertSink := alerting.NewService(config.Cfg.AlertServiceURL, config.Cfg.AlertAPIKey, config.Cfg.AlertTimeout)
	positionService := positions.NewService(tradeStore, reportCache, config.Cfg.AlarmThresholdPercent, alertSink)

	tradeHandler := handlers.NewTradeHandler(tradeStore)
	positionHandler := handlers.NewPositionHandler(positionService)
	systemHandler := handlers.NewSystemHandler(database.DB, tradeStore)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	r.Use(rateLimitMiddleware)

	// Health routes stay outside the API key check for observability probes.
	r.Get("/", systemHandler.HandleRoot)
	r.Get("/health", systemHandler.HandleHealth)
	r.Get("/metrics", systemHandler.HandleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.APIKeyMiddleware(config.Cfg.APIKey))
		r.Get("/blotter", tradeHandler.HandleGetBlotter)
		r.Get("/positions", positionHandler.HandleGetPositions)
		r.Get("/alarms", positionHandler.HandleGetAlarms)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSONError(w, "Not found", http.StatusNotFound)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
