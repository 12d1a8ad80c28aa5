package transactions

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"cryptofolio/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	FindByHoldingID(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `
        INSERT INTO transactions (id, holding_id, symbol, type, quantity, price, total, fees, source, notes, executed_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.db.ExecContext(ctx, query, transaction.ID, transaction.HoldingID, transaction.Symbol,
		transaction.Type, transaction.Quantity, transaction.Price, transaction.Total, transaction.Fees,
		transaction.Source, transaction.Notes, transaction.ExecutedAt, transaction.CreatedAt)
	return err
}

func (r *transactionRepository) FindByHoldingID(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error) {
	query := `SELECT id, holding_id, symbol, type, quantity, price, total, fees, source, notes, executed_at, created_at
              FROM transactions WHERE holding_id = $1 ORDER BY executed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, holdingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.HoldingID, &t.Symbol, &t.Type, &t.Quantity, &t.Price, &t.Total,
			&t.Fees, &t.Source, &t.Notes, &t.ExecutedAt, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
