package holdings

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/models"
)

// MockHoldingRepository is an in-memory HoldingRepository honouring the
// same compare-and-swap contract as the SQL implementation.
type MockHoldingRepository struct {
	mu       sync.Mutex
	Holdings map[uuid.UUID]*models.Holding

	// ForceUpdateConflicts makes the next N UpdatePosition calls report
	// zero affected rows, simulating a concurrent writer.
	ForceUpdateConflicts int
}

func NewMockHoldingRepository() *MockHoldingRepository {
	return &MockHoldingRepository{Holdings: make(map[uuid.UUID]*models.Holding)}
}

func (m *MockHoldingRepository) Create(ctx context.Context, holding *models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *holding
	m.Holdings[holding.ID] = &copied
	return nil
}

func (m *MockHoldingRepository) FindActiveBySymbol(ctx context.Context, portfolioID uuid.UUID, symbol string) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.Holdings {
		if h.PortfolioID == portfolioID && h.Symbol == symbol && h.IsActive {
			copied := *h
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockHoldingRepository) FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var holdings []models.Holding
	for _, h := range m.Holdings {
		if h.PortfolioID == portfolioID && h.IsActive {
			holdings = append(holdings, *h)
		}
	}
	return holdings, nil
}

func (m *MockHoldingRepository) FindAllActive(ctx context.Context) ([]models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var holdings []models.Holding
	for _, h := range m.Holdings {
		if h.IsActive {
			holdings = append(holdings, *h)
		}
	}
	return holdings, nil
}

func (m *MockHoldingRepository) UpdatePosition(ctx context.Context, holding *models.Holding, prevQuantity, prevTotalCost decimal.Decimal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceUpdateConflicts > 0 {
		m.ForceUpdateConflicts--
		return 0, nil
	}
	stored, ok := m.Holdings[holding.ID]
	if !ok || !stored.IsActive || !stored.Quantity.Equal(prevQuantity) || !stored.TotalCost.Equal(prevTotalCost) {
		return 0, nil
	}
	stored.Quantity = holding.Quantity
	stored.AverageCost = holding.AverageCost
	stored.TotalCost = holding.TotalCost
	stored.UpdatedAt = holding.UpdatedAt
	return 1, nil
}

func (m *MockHoldingRepository) UpdateMarketData(ctx context.Context, holdingID uuid.UUID, update models.MarketDataUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Holdings[holdingID]
	if !ok || !stored.IsActive {
		return nil
	}
	stored.CurrentPrice = decimal.NullDecimal{Decimal: update.Price, Valid: true}
	stored.CurrentValue = decimal.NullDecimal{Decimal: update.Value, Valid: true}
	stored.ProfitLoss = decimal.NullDecimal{Decimal: update.ProfitLoss, Valid: true}
	stored.ProfitLossPercentage = decimal.NullDecimal{Decimal: update.ProfitLossPercentage, Valid: true}
	at := update.UpdatedAt
	stored.LastPriceUpdate = &at
	stored.UpdatedAt = at
	return nil
}

func (m *MockHoldingRepository) Deactivate(ctx context.Context, holdingID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Holdings[holdingID]
	if !ok || !stored.IsActive {
		return 0, nil
	}
	stored.IsActive = false
	return 1, nil
}

// Get returns the stored holding, for assertions.
func (m *MockHoldingRepository) Get(holdingID uuid.UUID) *models.Holding {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.Holdings[holdingID]; ok {
		copied := *h
		return &copied
	}
	return nil
}
