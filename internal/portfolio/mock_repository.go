package portfolios

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/models"
)

// MockPortfolioRepository is an in-memory PortfolioRepository for tests.
type MockPortfolioRepository struct {
	mu         sync.Mutex
	Portfolios map[uuid.UUID]*Portfolio
}

func NewMockPortfolioRepository() *MockPortfolioRepository {
	return &MockPortfolioRepository{Portfolios: make(map[uuid.UUID]*Portfolio)}
}

func (m *MockPortfolioRepository) Create(ctx context.Context, portfolio *Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *portfolio
	m.Portfolios[portfolio.ID] = &copied
	return nil
}

func (m *MockPortfolioRepository) FindByID(ctx context.Context, portfolioID uuid.UUID, portfolio *Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Portfolios[portfolioID]
	if !ok {
		return sql.ErrNoRows
	}
	*portfolio = *stored
	return nil
}

func (m *MockPortfolioRepository) FindAll(ctx context.Context, portfolios *[]Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Portfolios {
		*portfolios = append(*portfolios, *p)
	}
	return nil
}

func (m *MockPortfolioRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Portfolios {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPortfolioRepository) UpdateTotalValue(ctx context.Context, portfolioID uuid.UUID, totalValue decimal.Decimal, updatedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Portfolios[portfolioID]
	if !ok {
		return 0, nil
	}
	stored.TotalValue = totalValue
	stored.UpdatedAt = updatedAt
	return 1, nil
}

func (m *MockPortfolioRepository) DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Portfolios, portfolioID)
	return nil
}

// MockHoldingReader serves a fixed holding list per portfolio.
type MockHoldingReader struct {
	Holdings map[uuid.UUID][]models.Holding
}

func (m *MockHoldingReader) FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error) {
	return m.Holdings[portfolioID], nil
}
