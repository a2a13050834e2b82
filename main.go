package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/config"
	"github.com/el-kamal/auctify/backend/src/database"
	"github.com/el-kamal/auctify/backend/src/handlers"
	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/el-kamal/auctify/backend/src/parsers"
	"github.com/el-kamal/auctify/backend/src/sepa"
	"github.com/el-kamal/auctify/backend/src/services"
	"github.com/patrickmn/go-cache"
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
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Requested-With")
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
	logger.L.Info("Auctify backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing result cache...")
	resultCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	ledger := database.NewStore(database.DB)
	emailService := services.NewEmailService()

	tabularLoader := parsers.NewTabularLoader()
	mappingParser := parsers.NewMappingParser()
	sepaBuilder := &sepa.Builder{
		DebtorName:   config.Cfg.DebtorName,
		DebtorIBAN:   config.Cfg.DebtorIBAN,
		DebtorBIC:    config.Cfg.DebtorBIC,
		FallbackIBAN: config.Cfg.FallbackIBAN,
		FallbackBIC:  config.Cfg.FallbackBIC,
	}

	importService := services.NewImportService(ledger, mappingParser, services.FeeRates{
		Buyer:    config.Cfg.DefaultBuyerFeeRate,
		Seller:   config.Cfg.DefaultSellerFeeRate,
		Platform: config.Cfg.DefaultPlatformFeeRate,
	})
	reconciliationService := services.NewReconciliationService(ledger, tabularLoader, resultCache)
	invoiceService := services.NewInvoiceService(ledger)
	settlementService := services.NewSettlementService(ledger, sepaBuilder, emailService)

	auctionHandler := handlers.NewAuctionHandler(importService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/auctions/import", auctionHandler.HandleImportAuction)
	apiRouter.HandleFunc("POST /api/auctions/{id}/mapping", auctionHandler.HandleImportMapping)

	apiRouter.HandleFunc("POST /api/auctions/{id}/reconcile", reconciliationHandler.HandleReconcile)
	apiRouter.HandleFunc("GET /api/auctions/{id}/results", reconciliationHandler.HandleGetResults)
	apiRouter.HandleFunc("GET /api/auctions/{id}/results/export", reconciliationHandler.HandleExportResults)

	apiRouter.HandleFunc("POST /api/auctions/{id}/invoices/generate", invoiceHandler.HandleGenerateInvoices)
	apiRouter.HandleFunc("GET /api/auctions/{id}/invoices", invoiceHandler.HandleListInvoices)
	apiRouter.HandleFunc("GET /api/invoices/verify", invoiceHandler.HandleVerifyChain)

	apiRouter.HandleFunc("POST /api/auctions/{id}/settlements/generate", settlementHandler.HandleGenerateSettlements)
	apiRouter.HandleFunc("GET /api/auctions/{id}/settlements", settlementHandler.HandleListSettlements)
	apiRouter.HandleFunc("GET /api/settlements/{id}/sepa", settlementHandler.HandleDownloadSEPA)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "AUCTIFY Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
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
