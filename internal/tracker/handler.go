package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	apperrors "cryptofolio/internal/errors"
	holdings "cryptofolio/internal/holding"
	portfolios "cryptofolio/internal/portfolio"
	transactions "cryptofolio/internal/transaction"
)

// Refresher is the on-demand slice of the price refresh scheduler.
type Refresher interface {
	RefreshPortfolio(ctx context.Context, portfolioID uuid.UUID) error
}

type TrackerHandler struct {
	portfolioService   portfolios.Service
	holdingService     holdings.Service
	transactionService transactions.Service
	refresher          Refresher
	respondJSON        func(w http.ResponseWriter, status int, payload interface{})
	respondError       func(w http.ResponseWriter, status int, message string)
}

func NewTrackerHandler(
	portfolioService portfolios.Service,
	holdingService holdings.Service,
	transactionService transactions.Service,
	refresher Refresher,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string),
) *TrackerHandler {
	return &TrackerHandler{
		portfolioService:   portfolioService,
		holdingService:     holdingService,
		transactionService: transactionService,
		refresher:          refresher,
		respondJSON:        respondJSON,
		respondError:       respondError,
	}
}

type createPortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *TrackerHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "Portfolio name is required")
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, portfolios.ErrPortfolioNameTaken) {
			h.respondError(w, http.StatusConflict, "Portfolio name already exists")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to create portfolio")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Portfolio successfully created.",
		"data":    portfolio,
	})
}

func (h *TrackerHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)

	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), portfolioID)
	if err != nil {
		if errors.Is(err, portfolios.ErrPortfolioNotFound) {
			h.respondError(w, http.StatusNotFound, "Portfolio not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   portfolio,
	})
}

func (h *TrackerHandler) GetAllPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolioList, err := h.portfolioService.GetAllPortfolios(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolios list")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   portfolioList,
	})
}

func (h *TrackerHandler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)

	if err := h.portfolioService.DeletePortfolio(r.Context(), portfolioID); err != nil {
		if errors.Is(err, portfolios.ErrPortfolioNotFound) {
			h.respondError(w, http.StatusNotFound, "Portfolio not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to delete portfolio")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Portfolio deleted successfully.",
	})
}

func (h *TrackerHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)

	holdingList, err := h.holdingService.GetActiveHoldings(r.Context(), portfolioID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve holdings")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   holdingList,
	})
}

func (h *TrackerHandler) DeactivateHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)
	holdingID := r.Context().Value("holdingID").(uuid.UUID)

	if err := h.holdingService.DeactivateHolding(r.Context(), holdingID); err != nil {
		if errors.Is(err, holdings.ErrHoldingNotFound) {
			h.respondError(w, http.StatusNotFound, "Holding not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to deactivate holding")
		return
	}

	if _, err := h.portfolioService.RecalculateValue(r.Context(), portfolioID); err != nil {
		log.Printf("Failed to recalculate portfolio %s after deactivation: %v", portfolioID, err)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Holding deactivated successfully.",
	})
}

func (h *TrackerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)

	var req holdings.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.portfolioService.GetPortfolio(r.Context(), portfolioID); err != nil {
		if errors.Is(err, portfolios.ErrPortfolioNotFound) {
			h.respondError(w, http.StatusNotFound, "Portfolio not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	holding, err := h.holdingService.ApplyTransaction(r.Context(), portfolioID, req)
	if err != nil {
		if apperrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, holdings.ErrInsufficientQuantity) {
			h.respondError(w, http.StatusConflict, "Insufficient holdings for this transaction")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to apply transaction")
		return
	}

	// Pull a fresh price for the portfolio right away rather than waiting
	// for the next scheduled cycle.
	go func() {
		if err := h.refresher.RefreshPortfolio(context.Background(), portfolioID); err != nil {
			log.Printf("On-demand refresh for portfolio %s failed: %v", portfolioID, err)
		}
	}()

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Transaction recorded successfully.",
		"data":    holding,
	})
}

func (h *TrackerHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	holdingID := r.Context().Value("holdingID").(uuid.UUID)

	transactionList, err := h.transactionService.GetAllTransactions(r.Context(), holdingID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   transactionList,
	})
}

func (h *TrackerHandler) RefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.Context().Value("portfolioID").(uuid.UUID)

	if err := h.refresher.RefreshPortfolio(r.Context(), portfolioID); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "Price refresh failed, try again later")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Portfolio prices refreshed.",
	})
}
