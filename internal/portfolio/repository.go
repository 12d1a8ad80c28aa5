package portfolios

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TotalValue  decimal.Decimal `json:"total_value"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *Portfolio) error
	FindByID(ctx context.Context, portfolioID uuid.UUID, portfolio *Portfolio) error
	FindAll(ctx context.Context, portfolios *[]Portfolio) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	UpdateTotalValue(ctx context.Context, portfolioID uuid.UUID, totalValue decimal.Decimal, updatedAt time.Time) (int64, error)
	DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error
}

type portfolioRepository struct {
	db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Create(ctx context.Context, portfolio *Portfolio) error {
	query := `INSERT INTO portfolios (id, name, description, total_value, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, portfolio.ID, portfolio.Name, portfolio.Description,
		portfolio.TotalValue, portfolio.CreatedAt, portfolio.UpdatedAt)
	return err
}

func (r *portfolioRepository) FindByID(ctx context.Context, portfolioID uuid.UUID, portfolio *Portfolio) error {
	query := `SELECT id, name, description, total_value, created_at, updated_at
              FROM portfolios WHERE id = $1`

	return r.db.QueryRowContext(ctx, query, portfolioID).Scan(
		&portfolio.ID, &portfolio.Name, &portfolio.Description, &portfolio.TotalValue,
		&portfolio.CreatedAt, &portfolio.UpdatedAt)
}

func (r *portfolioRepository) FindAll(ctx context.Context, portfolios *[]Portfolio) error {
	query := `SELECT id, name, description, total_value, created_at, updated_at
              FROM portfolios ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var portfolio Portfolio
		if err := rows.Scan(&portfolio.ID, &portfolio.Name, &portfolio.Description,
			&portfolio.TotalValue, &portfolio.CreatedAt, &portfolio.UpdatedAt); err != nil {
			return err
		}
		*portfolios = append(*portfolios, portfolio)
	}
	return rows.Err()
}

func (r *portfolioRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT COUNT(1) FROM portfolios WHERE name = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *portfolioRepository) UpdateTotalValue(ctx context.Context, portfolioID uuid.UUID, totalValue decimal.Decimal, updatedAt time.Time) (int64, error) {
	query := `UPDATE portfolios SET total_value = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, totalValue, updatedAt, portfolioID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *portfolioRepository) DeletePortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	// Holdings and transactions go with it via ON DELETE CASCADE.
	query := `DELETE FROM portfolios WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, portfolioID)
	return err
}
