package holdings

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/models"
)

type HoldingRepository interface {
	Create(ctx context.Context, holding *models.Holding) error
	FindActiveBySymbol(ctx context.Context, portfolioID uuid.UUID, symbol string) (*models.Holding, error)
	FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error)
	FindAllActive(ctx context.Context) ([]models.Holding, error)
	// UpdatePosition writes quantity/cost fields guarded by the previous
	// quantity and total cost, so two concurrent writers on the same
	// holding cannot both win. Returns the number of rows updated.
	UpdatePosition(ctx context.Context, holding *models.Holding, prevQuantity, prevTotalCost decimal.Decimal) (int64, error)
	UpdateMarketData(ctx context.Context, holdingID uuid.UUID, update models.MarketDataUpdate) error
	Deactivate(ctx context.Context, holdingID uuid.UUID) (int64, error)
}

const holdingColumns = `id, portfolio_id, symbol, name, quantity, average_cost, total_cost,
       current_price, current_value, profit_loss, profit_loss_percentage,
       is_active, last_price_update, created_at, updated_at`

type holdingRepository struct {
	db *sql.DB
}

func NewHoldingRepository(db *sql.DB) HoldingRepository {
	return &holdingRepository{db: db}
}

func scanHolding(row interface{ Scan(...interface{}) error }, h *models.Holding) error {
	return row.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.Name, &h.Quantity, &h.AverageCost, &h.TotalCost,
		&h.CurrentPrice, &h.CurrentValue, &h.ProfitLoss, &h.ProfitLossPercentage,
		&h.IsActive, &h.LastPriceUpdate, &h.CreatedAt, &h.UpdatedAt)
}

func (r *holdingRepository) Create(ctx context.Context, holding *models.Holding) error {
	query := `
        INSERT INTO holdings (id, portfolio_id, symbol, name, quantity, average_cost, total_cost, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.ExecContext(ctx, query, holding.ID, holding.PortfolioID, holding.Symbol, holding.Name,
		holding.Quantity, holding.AverageCost, holding.TotalCost, holding.IsActive,
		holding.CreatedAt, holding.UpdatedAt)
	return err
}

func (r *holdingRepository) FindActiveBySymbol(ctx context.Context, portfolioID uuid.UUID, symbol string) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + `
              FROM holdings WHERE portfolio_id = $1 AND symbol = $2 AND is_active`

	var holding models.Holding
	if err := scanHolding(r.db.QueryRowContext(ctx, query, portfolioID, symbol), &holding); err != nil {
		return nil, err
	}
	return &holding, nil
}

func (r *holdingRepository) FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error) {
	query := `SELECT ` + holdingColumns + `
              FROM holdings WHERE portfolio_id = $1 AND is_active ORDER BY symbol`
	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHoldings(rows)
}

func (r *holdingRepository) FindAllActive(ctx context.Context) ([]models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE is_active`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHoldings(rows)
}

func collectHoldings(rows *sql.Rows) ([]models.Holding, error) {
	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := scanHolding(rows, &h); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *holdingRepository) UpdatePosition(ctx context.Context, holding *models.Holding, prevQuantity, prevTotalCost decimal.Decimal) (int64, error) {
	query := `
        UPDATE holdings
        SET quantity = $1, average_cost = $2, total_cost = $3, updated_at = $4
        WHERE id = $5 AND quantity = $6 AND total_cost = $7 AND is_active
    `
	result, err := r.db.ExecContext(ctx, query, holding.Quantity, holding.AverageCost, holding.TotalCost,
		holding.UpdatedAt, holding.ID, prevQuantity, prevTotalCost)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *holdingRepository) UpdateMarketData(ctx context.Context, holdingID uuid.UUID, update models.MarketDataUpdate) error {
	query := `
        UPDATE holdings
        SET current_price = $1, current_value = $2, profit_loss = $3, profit_loss_percentage = $4,
            last_price_update = $5, updated_at = $5
        WHERE id = $6 AND is_active
    `
	_, err := r.db.ExecContext(ctx, query, update.Price, update.Value, update.ProfitLoss,
		update.ProfitLossPercentage, update.UpdatedAt, holdingID)
	return err
}

func (r *holdingRepository) Deactivate(ctx context.Context, holdingID uuid.UUID) (int64, error) {
	query := `UPDATE holdings SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, holdingID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
