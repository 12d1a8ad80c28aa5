package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBuy           TransactionType = "BUY"
	TransactionSell          TransactionType = "SELL"
	TransactionTransferIn    TransactionType = "TRANSFER_IN"
	TransactionTransferOut   TransactionType = "TRANSFER_OUT"
	TransactionDividend      TransactionType = "DIVIDEND"
	TransactionStakingReward TransactionType = "STAKING_REWARD"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionTransferIn,
		TransactionTransferOut, TransactionDividend, TransactionStakingReward:
		return true
	}
	return false
}

// Disposes reports whether the transaction removes quantity from a holding.
// Every other valid type adds quantity and goes through the buy branch of
// the ledger (rewards come in at price zero and lower the average cost).
func (t TransactionType) Disposes() bool {
	return t == TransactionSell || t == TransactionTransferOut
}

type Holding struct {
	ID                   uuid.UUID           `json:"id"`
	PortfolioID          uuid.UUID           `json:"portfolio_id"`
	Symbol               string              `json:"symbol"`
	Name                 string              `json:"name"`
	Quantity             decimal.Decimal     `json:"quantity"`
	AverageCost          decimal.Decimal     `json:"average_cost"`
	TotalCost            decimal.Decimal     `json:"total_cost"`
	CurrentPrice         decimal.NullDecimal `json:"current_price"`
	CurrentValue         decimal.NullDecimal `json:"current_value"`
	ProfitLoss           decimal.NullDecimal `json:"profit_loss"`
	ProfitLossPercentage decimal.NullDecimal `json:"profit_loss_percentage"`
	IsActive             bool                `json:"is_active"`
	LastPriceUpdate      *time.Time          `json:"last_price_update,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	HoldingID  uuid.UUID       `json:"holding_id"`
	Symbol     string          `json:"symbol"`
	Type       TransactionType `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	Fees       decimal.Decimal `json:"fees"`
	Source     string          `json:"source,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	ExecutedAt time.Time       `json:"executed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MarketDataUpdate carries the derived price fields written onto a holding
// by one refresh cycle.
type MarketDataUpdate struct {
	Price                decimal.Decimal
	Value                decimal.Decimal
	ProfitLoss           decimal.Decimal
	ProfitLossPercentage decimal.Decimal
	UpdatedAt            time.Time
}
