package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/billing"
	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/config"
	"github.com/username/ledgerlens/backend/src/database"
	"github.com/username/ledgerlens/backend/src/handlers"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/security"
	"github.com/username/ledgerlens/backend/src/services"
	"github.com/username/ledgerlens/backend/src/store"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

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

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":   true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// startCategorizeScheduler runs the categorization batch on a cron
// schedule when CATEGORIZE_CRON_SPEC is set.
func startCategorizeScheduler(spec string, categorizationService *services.CategorizationService) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := categorizationService.RunBatch(ctx, "", false)
		if err != nil {
			logger.L.Error("Scheduled categorization batch failed", "error", err)
			return
		}
		logger.L.Info("Scheduled categorization batch finished",
			"processed", result.Processed, "categorized", result.Categorized,
			"flaggedForReview", result.FlaggedForReview, "errors", result.Errors)
	})
	if err != nil {
		stdlog.Fatalf("Invalid CATEGORIZE_CRON_SPEC %q: %v", spec, err)
	}
	c.Start()
	logger.L.Info("Categorization scheduler started", "spec", spec)
	return c
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("LedgerLens backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	sqlStore := store.NewSQLStore(database.DB)
	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)

	messenger := ai.NewAnthropicMessenger(config.Cfg.AnthropicAPIKey, config.Cfg.AnthropicModel)
	categorizer := ai.NewCategorizer(messenger)
	anomalyDetector := ai.NewAnomalyDetector(messenger)

	codatClient := codat.NewClient(config.Cfg.CodatBaseURL, config.Cfg.CodatAPIKey, &http.Client{Timeout: 30 * time.Second})
	billingService := billing.NewService(config.Cfg.StripeSecretKey)

	categorizationService := services.NewCategorizationService(sqlStore, categorizer)
	anomalyService := services.NewAnomalyService(sqlStore, anomalyDetector)
	syncService := services.NewSyncService(sqlStore, codatClient)
	reportService := services.NewReportService(sqlStore, summaryCache)
	taxService := services.NewTaxService(sqlStore)

	authHandler := handlers.NewAuthHandler(authService, config.Cfg.AdminPasswordHash)
	bookHandler := handlers.NewBookHandler(sqlStore)
	categorizeHandler := handlers.NewCategorizeHandler(categorizationService)
	anomalyHandler := handlers.NewAnomalyHandler(anomalyService)
	reportHandler := handlers.NewReportHandler(reportService, taxService)
	codatHandler := handlers.NewCodatHandler(sqlStore, codatClient)
	billingHandler := handlers.NewBillingHandler(sqlStore, billingService, config.Cfg.BillingReturnURL)
	webhookHandler := handlers.NewWebhookHandler(sqlStore, syncService,
		config.Cfg.CodatWebhookSecret, config.Cfg.StripeWebhookSecret)

	if config.Cfg.CategorizeCronSpec != "" {
		scheduler := startCategorizeScheduler(config.Cfg.CategorizeCronSpec, categorizationService)
		defer scheduler.Stop()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "LedgerLens Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes: login and signed webhooks.
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", authHandler.LoginHandler)
			r.Post("/webhooks/codat", webhookHandler.HandleCodatWebhook)
			r.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
		})

		// Protected routes.
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(authService))

			r.Post("/clients/upload", bookHandler.HandleUpload)
			r.Get("/books", bookHandler.HandleListBooks)
			r.Get("/books/{id}/transactions", bookHandler.HandleListTransactions)
			r.Delete("/books/{id}", bookHandler.HandleDeleteBook)

			r.Post("/categorize", categorizeHandler.HandleRunBatch)
			r.Post("/anomalies/scan", anomalyHandler.HandleScan)

			r.Get("/books/{id}/pnl", reportHandler.HandleGetPnl)
			r.Post("/books/{id}/reports", reportHandler.HandleGenerateReport)
			r.Post("/books/{id}/tax-deductions/generate", reportHandler.HandleGenerateTaxDeductions)

			r.Post("/codat/connect", codatHandler.HandleConnect)
			r.Post("/billing/portal", billingHandler.HandleCreatePortalSession)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
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
