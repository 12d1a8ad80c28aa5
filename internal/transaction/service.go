package transactions

import (
	"context"

	"github.com/google/uuid"

	"cryptofolio/internal/models"
)

// Service records immutable transaction history. Records are never updated
// or deleted once written; they are the audit trail a holding's state can
// be rebuilt from.
type Service interface {
	Record(ctx context.Context, transaction *models.Transaction) error
	GetAllTransactions(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error)
}

type service struct {
	transactionRepo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) Service {
	return &service{transactionRepo: repo}
}

func (s *service) Record(ctx context.Context, transaction *models.Transaction) error {
	return s.transactionRepo.Create(ctx, transaction)
}

func (s *service) GetAllTransactions(ctx context.Context, holdingID uuid.UUID) ([]models.Transaction, error) {
	return s.transactionRepo.FindByHoldingID(ctx, holdingID)
}
