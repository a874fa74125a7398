package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/mindfolio/backend/src/config"
	"github.com/username/mindfolio/backend/src/database"
	"github.com/username/mindfolio/backend/src/extraction"
	"github.com/username/mindfolio/backend/src/handlers"
	"github.com/username/mindfolio/backend/src/logger"
	"github.com/username/mindfolio/backend/src/metrics"
	"github.com/username/mindfolio/backend/src/parsers"
	"github.com/username/mindfolio/backend/src/security"
	"github.com/username/mindfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag, Content-Disposition")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Mindfolio backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(config.Cfg.CacheExpiry, config.Cfg.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	engine := metrics.NewEngine()
	normalizer := parsers.NewTradeNormalizer()
	extractor := extraction.NewExtractor(config.Cfg.ExtractionWorkers)
	analysisClient := services.NewAnalysisClient(config.Cfg.AnalysisServiceURL, config.Cfg.AnalysisTimeout)

	tradingData := services.NewTradingDataService(engine, reportCache, config.Cfg.CacheExpiry)
	exportService := services.NewExportService(tradingData)
	ingestionService := services.NewIngestionService(
		normalizer, extractor, analysisClient, engine, tradingData,
		config.Cfg.MaxUploadSizeBytes, reportCache,
	)

	uploadHandler := handlers.NewUploadHandler(ingestionService)
	tradeHandler := handlers.NewTradeHandler(tradingData, exportService)
	statementHandler := handlers.NewStatementHandler(tradingData)
	metricsHandler := handlers.NewMetricsHandler(tradingData)
	profileHandler := handlers.NewProfileHandler(tradingData)

	logger.L.Info("Configuring routes...")
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Mindfolio backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(authService))

		r.Post("/upload", uploadHandler.HandleUpload)
		r.Get("/statements", statementHandler.HandleGetStatements)
		r.Get("/trades", tradeHandler.HandleGetTrades)
		r.Delete("/trades/all", tradeHandler.HandleDeleteAllTrades)
		r.Patch("/trades/{tradeID}/notes", tradeHandler.HandleUpdateTradeNotes)
		r.Get("/metrics", metricsHandler.HandleGetMetrics)
		r.Get("/export", tradeHandler.HandleExport)
		r.Get("/profile", profileHandler.HandleGetProfile)
		r.Get("/questionnaire", profileHandler.HandleGetQuestionnaire)
		r.Post("/questionnaire", profileHandler.HandleSaveQuestionnaire)
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
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
