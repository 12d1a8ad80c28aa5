package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	database "cryptofolio/db"
	holdings "cryptofolio/internal/holding"
	"cryptofolio/internal/marketdata"
	portfolios "cryptofolio/internal/portfolio"
	"cryptofolio/internal/refresher"
	"cryptofolio/internal/tracker"
	transactions "cryptofolio/internal/transaction"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s in %v", r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

type Server struct {
	router         *http.ServeMux
	trackerHandler *tracker.TrackerHandler
	dbService      *database.DBService
}

func NewServer(trackerHandler *tracker.TrackerHandler, dbService *database.DBService) *Server {
	return &Server{
		trackerHandler: trackerHandler,
		dbService:      dbService,
		router:         http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func checkConfiguration() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	if os.Getenv("DB_CONNECTION_STRING") == "" {
		return errNoDatabase
	}
	return nil
}

var errNoDatabase = &configError{"no DB_CONNECTION_STRING provided"}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.dbService.Health())
}

func (s *Server) RegisterRoutes() {
	h := s.trackerHandler

	apiRoutes := http.NewServeMux()
	apiRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	apiRoutes.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))

	// PORTFOLIOS API
	apiRoutes.Handle("POST /api/portfolios", http.HandlerFunc(h.CreatePortfolio))
	apiRoutes.Handle("GET /api/portfolios", http.HandlerFunc(h.GetAllPortfolios))
	apiRoutes.Handle("GET /api/portfolios/{portfolioID}",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.GetPortfolio), "portfolioID"))
	apiRoutes.Handle("DELETE /api/portfolios/{portfolioID}",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.DeletePortfolio), "portfolioID"))
	apiRoutes.Handle("POST /api/portfolios/{portfolioID}/refresh",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.RefreshPortfolio), "portfolioID"))

	// HOLDINGS API
	apiRoutes.Handle("GET /api/portfolios/{portfolioID}/holdings",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.GetHoldings), "portfolioID"))
	apiRoutes.Handle("DELETE /api/portfolios/{portfolioID}/holdings/{holdingID}",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.DeactivateHolding), "portfolioID", "holdingID"))

	// TRANSACTIONS API
	apiRoutes.Handle("POST /api/portfolios/{portfolioID}/transactions",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.CreateTransaction), "portfolioID"))
	apiRoutes.Handle("GET /api/portfolios/{portfolioID}/holdings/{holdingID}/transactions",
		h.ValidateTrackerPathParamsMiddleware(http.HandlerFunc(h.GetTransactions), "portfolioID", "holdingID"))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", apiRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func main() {
	if err := checkConfiguration(); err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	dbService, err := database.NewDBService()
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := dbService.EnsureSchema(); err != nil {
		log.Fatalf("Could not prepare database schema: %v", err)
	}

	marketDataClient := marketdata.NewCoinGeckoClient(os.Getenv("MARKET_DATA_BASE_URL"))

	holdingRepo := holdings.NewHoldingRepository(dbService.DB)
	portfolioRepo := portfolios.NewPortfolioRepository(dbService.DB)
	portfolioService := portfolios.NewPortfolioService(portfolioRepo, holdingRepo)

	transactionRepo := transactions.NewTransactionRepository(dbService.DB)
	transactionService := transactions.NewTransactionService(transactionRepo)

	holdingService := holdings.NewHoldingService(holdingRepo, transactionService, portfolioService)

	priceRefresher := refresher.New(marketDataClient, holdingRepo, portfolioService)

	trackerHandler := tracker.NewTrackerHandler(
		portfolioService,
		holdingService,
		transactionService,
		priceRefresher,
		respondJSON,
		respondError,
	)

	server := NewServer(trackerHandler, dbService)
	server.RegisterRoutes()

	scheduler, err := StartPriceRefreshScheduler(priceRefresher)
	if err != nil {
		log.Fatalf("Scheduler didn't start, stoping the app ...")
	}
	defer scheduler.Stop()

	handler := loggingMiddleware(server.router)
	log.Println("Server starting on port 8080...")
	if err := http.ListenAndServe(":8080", handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// StartPriceRefreshScheduler runs a full price refresh cycle on a fixed
// period. PRICE_REFRESH_INTERVAL accepts a Go duration (default 30s).
func StartPriceRefreshScheduler(priceRefresher *refresher.Scheduler) (*cron.Cron, error) {
	interval := 30 * time.Second
	if raw := os.Getenv("PRICE_REFRESH_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("Invalid PRICE_REFRESH_INTERVAL %q, falling back to %s", raw, interval)
		} else {
			interval = parsed
		}
	}

	c := cron.New()
	_, err := c.AddFunc("@every "+interval.String(), func() {
		if err := priceRefresher.RunCycle(context.Background()); err != nil {
			log.Printf("Error refreshing holding prices: %v", err)
		} else {
			log.Println("Holding prices refreshed successfully.")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
