package holdings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "cryptofolio/internal/errors"
	"cryptofolio/internal/models"
)

var (
	ErrInsufficientQuantity = errors.New("insufficient holding quantity")
	ErrHoldingNotFound      = errors.New("holding doesn't exist in this portfolio")
	ErrConcurrentUpdate     = errors.New("holding was modified concurrently, giving up")
)

// maxApplyAttempts bounds the compare-and-swap retry loop when two callers
// hit the same holding at once.
const maxApplyAttempts = 3

// TransactionRecorder appends the immutable audit record for an applied
// transaction.
type TransactionRecorder interface {
	Record(ctx context.Context, transaction *models.Transaction) error
}

// PortfolioValuer recomputes a portfolio's aggregate value after a holding
// changed.
type PortfolioValuer interface {
	RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error)
}

// TransactionRequest is a caller's buy/sell/transfer/reward entry.
type TransactionRequest struct {
	Symbol     string                 `json:"symbol"`
	Name       string                 `json:"name"`
	Quantity   decimal.Decimal        `json:"quantity"`
	Price      decimal.Decimal        `json:"price"`
	Fees       decimal.Decimal        `json:"fees"`
	Type       models.TransactionType `json:"type"`
	ExecutedAt *time.Time             `json:"executed_at"`
	Source     string                 `json:"source"`
	Notes      string                 `json:"notes"`
}

func (r *TransactionRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return apperrors.NewValidationError("Symbol is required")
	}
	if !r.Quantity.IsPositive() {
		return apperrors.NewValidationError("Quantity must be greater than zero")
	}
	if r.Price.IsNegative() {
		return apperrors.NewValidationError("Price cannot be negative")
	}
	if r.Fees.IsNegative() {
		return apperrors.NewValidationError("Fees cannot be negative")
	}
	if r.Type != "" && !r.Type.Valid() {
		return apperrors.NewValidationErrorf("Unknown transaction type %q", r.Type)
	}
	return nil
}

type Service interface {
	ApplyTransaction(ctx context.Context, portfolioID uuid.UUID, req TransactionRequest) (*models.Holding, error)
	GetActiveHoldings(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error)
	DeactivateHolding(ctx context.Context, holdingID uuid.UUID) error
}

type service struct {
	holdingRepo  HoldingRepository
	transactions TransactionRecorder
	portfolios   PortfolioValuer
}

func NewHoldingService(repo HoldingRepository, transactions TransactionRecorder, portfolios PortfolioValuer) Service {
	return &service{
		holdingRepo:  repo,
		transactions: transactions,
		portfolios:   portfolios,
	}
}

// ApplyTransaction folds one transaction into the portfolio's holding for
// the symbol. Buys (and transfers in, dividends, staking rewards) recompute
// the volume-weighted average cost; sells reduce the cost basis in
// proportion to the quantity sold and leave the average cost untouched.
// A sell larger than the position is rejected with ErrInsufficientQuantity
// and no state changes. The transaction record is appended after the
// position update and the portfolio total is recomputed as a consequence.
func (s *service) ApplyTransaction(ctx context.Context, portfolioID uuid.UUID, req TransactionRequest) (*models.Holding, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	txType := req.Type
	if txType == "" {
		txType = models.TransactionBuy
	}
	now := time.Now()
	executedAt := now
	if req.ExecutedAt != nil {
		executedAt = *req.ExecutedAt
	}

	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		holding, err := s.holdingRepo.FindActiveBySymbol(ctx, portfolioID, symbol)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		if holding == nil {
			if txType.Disposes() {
				return nil, ErrInsufficientQuantity
			}
			holding = &models.Holding{
				ID:          uuid.New(),
				PortfolioID: portfolioID,
				Symbol:      symbol,
				Name:        req.Name,
				Quantity:    req.Quantity,
				AverageCost: req.Price,
				TotalCost:   req.Quantity.Mul(req.Price).Add(req.Fees),
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.holdingRepo.Create(ctx, holding); err != nil {
				return nil, fmt.Errorf("create holding %s: %w", symbol, err)
			}
		} else {
			prevQuantity := holding.Quantity
			prevTotalCost := holding.TotalCost

			if txType.Disposes() {
				if req.Quantity.GreaterThan(holding.Quantity) {
					return nil, ErrInsufficientQuantity
				}
				// Reduce cost basis by the fraction of the pre-sell
				// position being disposed; average cost is preserved.
				costReduction := req.Quantity.Div(prevQuantity).Mul(prevTotalCost)
				holding.Quantity = holding.Quantity.Sub(req.Quantity)
				holding.TotalCost = holding.TotalCost.Sub(costReduction)
				if holding.TotalCost.IsNegative() {
					holding.TotalCost = decimal.Zero
				}
			} else {
				existingValue := holding.Quantity.Mul(holding.AverageCost)
				incomingValue := req.Quantity.Mul(req.Price)
				newQuantity := holding.Quantity.Add(req.Quantity)
				if !newQuantity.IsZero() {
					holding.AverageCost = existingValue.Add(incomingValue).Div(newQuantity)
				}
				holding.TotalCost = holding.TotalCost.Add(incomingValue).Add(req.Fees)
				holding.Quantity = newQuantity
			}
			holding.UpdatedAt = now

			affected, err := s.holdingRepo.UpdatePosition(ctx, holding, prevQuantity, prevTotalCost)
			if err != nil {
				return nil, fmt.Errorf("update holding %s: %w", symbol, err)
			}
			if affected == 0 {
				// Lost the race against another writer, reload and redo.
				if attempt == maxApplyAttempts {
					return nil, ErrConcurrentUpdate
				}
				continue
			}
		}

		record := &models.Transaction{
			ID:         uuid.New(),
			HoldingID:  holding.ID,
			Symbol:     symbol,
			Type:       txType,
			Quantity:   req.Quantity,
			Price:      req.Price,
			Total:      req.Quantity.Mul(req.Price),
			Fees:       req.Fees,
			Source:     req.Source,
			Notes:      req.Notes,
			ExecutedAt: executedAt,
			CreatedAt:  now,
		}
		if err := s.transactions.Record(ctx, record); err != nil {
			return nil, fmt.Errorf("record transaction: %w", err)
		}

		if _, err := s.portfolios.RecalculateValue(ctx, portfolioID); err != nil {
			return nil, fmt.Errorf("recalculate portfolio value: %w", err)
		}
		return holding, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *service) GetActiveHoldings(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error) {
	return s.holdingRepo.FindActiveByPortfolioID(ctx, portfolioID)
}

func (s *service) DeactivateHolding(ctx context.Context, holdingID uuid.UUID) error {
	affected, err := s.holdingRepo.Deactivate(ctx, holdingID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHoldingNotFound
	}
	return nil
}
