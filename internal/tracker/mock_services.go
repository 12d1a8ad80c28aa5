package tracker

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	holdings "cryptofolio/internal/holding"
	"cryptofolio/internal/models"
	portfolios "cryptofolio/internal/portfolio"
)

// Mock services for handler tests.

type MockPortfolioService struct {
	CreatePortfolioFn  func(ctx context.Context, name, description string) (*portfolios.Portfolio, error)
	GetPortfolioFn     func(ctx context.Context, portfolioID uuid.UUID) (*portfolios.Portfolio, error)
	GetAllPortfoliosFn func(ctx context.Context) ([]portfolios.Portfolio, error)
	DeletePortfolioFn  func(ctx context.Context, portfolioID uuid.UUID) error
	RecalculateValueFn func(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error)
}

func (m *MockPortfolioService) CreatePortfolio(ctx context.Context, name, description string) (*portfolios.Portfolio, error) {
	return m.CreatePortfolioFn(ctx, name, description)
}

func (m *MockPortfolioService) GetPortfolio(ctx context.Context, portfolioID uuid.UUID) (*portfolios.Portfolio, error) {
	return m.GetPortfolioFn(ctx, portfolioID)
}

func (m *MockPortfolioService) GetAllPortfolios(ctx context.Context) ([]portfolios.Portfolio, error) {
	return m.GetAllPortfoliosFn(ctx)
}

func (m *MockPortfolioService) DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	return m.DeletePortfolioFn(ctx, portfolioID)
}

func (m *MockPortfolioService) RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error) {
	if m.RecalculateValueFn == nil {
		return decimal.Zero, nil
	}
	return m.RecalculateValueFn(ctx, portfolioID)
}

type MockHoldingService struct {
	ApplyTransactionFn  func(ctx context.Context, portfolioID uuid.UUID, req holdings.TransactionRequest) (*models.Holding, error)
	GetActiveHoldingsFn func(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error)
	DeactivateHoldingFn func(ctx context.Context, holdingID uuid.UUID) error
}

func (m *MockHoldingService) ApplyTransaction(ctx context.Context, portfolioID uuid.UUID, req holdings.TransactionRequest) (*models.Holding, error) {
	return m.ApplyTransactionFn(ctx, portfolioID, req)
}

func (m *MockHoldingService) GetActiveHoldings(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error) {
	return m.GetActiveHoldingsFn(ctx, portfolioID)
}

func (m *MockHoldingService) DeactivateHolding(ctx context.Context, holdingID uuid.UUID) error {
	return m.DeactivateHoldingFn(ctx, holdingID)
}

type MockTransactionService struct {
	RecordFn             func(ctx context.Context, transaction *models.Transaction) error
	GetAllTransactionsFn func(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error)
}

func (m *MockTransactionService) Record(ctx context.Context, transaction *models.Transaction) error {
	return m.RecordFn(ctx, transaction)
}

func (m *MockTransactionService) GetAllTransactions(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error) {
	return m.GetAllTransactionsFn(ctx, holdingID)
}

type MockRefresher struct {
	RefreshPortfolioFn func(ctx context.Context, portfolioID uuid.UUID) error
}

func (m *MockRefresher) RefreshPortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	if m.RefreshPortfolioFn == nil {
		return nil
	}
	return m.RefreshPortfolioFn(ctx, portfolioID)
}
