package portfolios

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/models"
)

var (
	ErrPortfolioNotFound  = errors.New("portfolio not found")
	ErrPortfolioNameTaken = errors.New("portfolio with this name already exists")
)

// HoldingReader is the slice of the holdings layer the aggregator needs.
type HoldingReader interface {
	FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error)
}

type Service interface {
	CreatePortfolio(ctx context.Context, name, description string) (*Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID uuid.UUID) (*Portfolio, error)
	GetAllPortfolios(ctx context.Context) ([]Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error
	RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	portfolioRepo PortfolioRepository
	holdings      HoldingReader
}

func NewPortfolioService(repo PortfolioRepository, holdings HoldingReader) Service {
	return &service{portfolioRepo: repo, holdings: holdings}
}

func (s *service) CreatePortfolio(ctx context.Context, name, description string) (*Portfolio, error) {
	exists, err := s.portfolioRepo.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPortfolioNameTaken
	}
	portfolio := &Portfolio{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		TotalValue:  decimal.Zero,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	err = s.portfolioRepo.Create(ctx, portfolio)
	return portfolio, err
}

func (s *service) GetPortfolio(ctx context.Context, portfolioID uuid.UUID) (*Portfolio, error) {
	var portfolio Portfolio
	err := s.portfolioRepo.FindByID(ctx, portfolioID, &portfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPortfolioNotFound
		}
		return nil, err
	}
	return &portfolio, nil
}

func (s *service) GetAllPortfolios(ctx context.Context) ([]Portfolio, error) {
	var portfolioList []Portfolio
	if err := s.portfolioRepo.FindAll(ctx, &portfolioList); err != nil {
		return nil, err
	}
	return portfolioList, nil
}

func (s *service) DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	var portfolio Portfolio
	err := s.portfolioRepo.FindByID(ctx, portfolioID, &portfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPortfolioNotFound
		}
		return err
	}
	return s.portfolioRepo.DeletePortfolio(ctx, portfolioID)
}

// RecalculateValue sums the current value of every active holding in the
// portfolio and writes the total back. Holdings that were never priced
// count at cost basis, so the total is defined even before the first
// refresh cycle. Calling it twice without intervening mutation yields the
// same total.
func (s *service) RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error) {
	holdings, err := s.holdings.FindActiveByPortfolioID(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}

	totalValue := decimal.Zero
	for _, h := range holdings {
		if h.CurrentValue.Valid {
			totalValue = totalValue.Add(h.CurrentValue.Decimal)
		} else {
			totalValue = totalValue.Add(h.TotalCost)
		}
	}

	affected, err := s.portfolioRepo.UpdateTotalValue(ctx, portfolioID, totalValue, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	if affected == 0 {
		return decimal.Zero, ErrPortfolioNotFound
	}
	return totalValue, nil
}
