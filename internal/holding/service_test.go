package holdings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cryptofolio/internal/errors"
	"cryptofolio/internal/models"
)

type recordingTransactions struct {
	Records []models.Transaction
}

func (r *recordingTransactions) Record(ctx context.Context, transaction *models.Transaction) error {
	r.Records = append(r.Records, *transaction)
	return nil
}

type countingValuer struct {
	Calls int
}

func (v *countingValuer) RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error) {
	v.Calls++
	return decimal.Zero, nil
}

func newTestService() (Service, *MockHoldingRepository, *recordingTransactions, *countingValuer) {
	repo := NewMockHoldingRepository()
	recorder := &recordingTransactions{}
	valuer := &countingValuer{}
	return NewHoldingService(repo, recorder, valuer), repo, recorder, valuer
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// assertDecimalEqual compares with a small tolerance to absorb division
// rounding.
func assertDecimalEqual(t *testing.T, expected float64, actual decimal.Decimal) {
	t.Helper()
	diff := actual.Sub(dec(expected)).Abs()
	assert.True(t, diff.LessThan(dec(0.01)), "expected %v, got %s", expected, actual)
}

func TestApplyTransaction_FirstBuyCreatesHolding(t *testing.T) {
	service, _, recorder, valuer := newTestService()
	portfolioID := uuid.New()

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol:   "BTC",
		Quantity: dec(1.0),
		Price:    dec(40000),
		Type:     models.TransactionBuy,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, 1.0, holding.Quantity)
	assertDecimalEqual(t, 40000, holding.AverageCost)
	assertDecimalEqual(t, 40000, holding.TotalCost)
	assert.True(t, holding.IsActive)
	assert.False(t, holding.CurrentPrice.Valid, "price fields unset until first refresh")

	require.Len(t, recorder.Records, 1)
	record := recorder.Records[0]
	assert.Equal(t, models.TransactionBuy, record.Type)
	assertDecimalEqual(t, 40000, record.Total)
	assert.Equal(t, 1, valuer.Calls)
}

func TestApplyTransaction_SecondBuyWeightedAverage(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1.0), Price: dec(40000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(0.5), Price: dec(50000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, 1.5, holding.Quantity)
	assertDecimalEqual(t, 43333.33, holding.AverageCost)
	assertDecimalEqual(t, 65000, holding.TotalCost)
}

func TestApplyTransaction_BuyFeesGoIntoTotalCostOnly(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "ETH", Quantity: dec(2), Price: dec(2000), Fees: dec(10), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, 2000, holding.AverageCost)
	assertDecimalEqual(t, 4010, holding.TotalCost)
}

func TestApplyTransaction_SellPreservesAverageCost(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(10), Price: dec(100), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(4), Price: dec(250), Type: models.TransactionSell,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, 6, holding.Quantity)
	assertDecimalEqual(t, 100, holding.AverageCost)
	// 4/10 of the 1000 cost basis leaves with the sale.
	assertDecimalEqual(t, 600, holding.TotalCost)
}

func TestApplyTransaction_OversizedSellRejected(t *testing.T) {
	service, repo, recorder, _ := newTestService()
	portfolioID := uuid.New()

	created, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1.5), Price: dec(40000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	_, err = service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(2.0), Price: dec(45000), Type: models.TransactionSell,
	})
	assert.ErrorIs(t, err, ErrInsufficientQuantity)

	// Holding untouched, no record appended for the rejected sell.
	stored := repo.Get(created.ID)
	assertDecimalEqual(t, 1.5, stored.Quantity)
	assert.Len(t, recorder.Records, 1)
}

func TestApplyTransaction_SellWithoutHoldingRejected(t *testing.T) {
	service, _, _, _ := newTestService()

	_, err := service.ApplyTransaction(context.Background(), uuid.New(), TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(40000), Type: models.TransactionSell,
	})
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
}

func TestApplyTransaction_SymbolNormalized(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "btc", Quantity: dec(1), Price: dec(40000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: " BTC ", Quantity: dec(1), Price: dec(42000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTC", holding.Symbol)
	assertDecimalEqual(t, 2, holding.Quantity)
}

func TestApplyTransaction_TypeDefaultsToBuy(t *testing.T) {
	service, _, recorder, _ := newTestService()

	_, err := service.ApplyTransaction(context.Background(), uuid.New(), TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(40000),
	})
	require.NoError(t, err)
	require.Len(t, recorder.Records, 1)
	assert.Equal(t, models.TransactionBuy, recorder.Records[0].Type)
}

func TestApplyTransaction_StakingRewardLowersAverageCost(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "ETH", Quantity: dec(4), Price: dec(2000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "ETH", Quantity: dec(1), Price: decimal.Zero, Type: models.TransactionStakingReward,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, 5, holding.Quantity)
	assertDecimalEqual(t, 1600, holding.AverageCost)
	assertDecimalEqual(t, 8000, holding.TotalCost)
}

func TestApplyTransaction_ValidationErrors(t *testing.T) {
	service, _, recorder, _ := newTestService()
	portfolioID := uuid.New()

	cases := []TransactionRequest{
		{Symbol: "", Quantity: dec(1), Price: dec(1)},
		{Symbol: "BTC", Quantity: decimal.Zero, Price: dec(1)},
		{Symbol: "BTC", Quantity: dec(-1), Price: dec(1)},
		{Symbol: "BTC", Quantity: dec(1), Price: dec(-1)},
		{Symbol: "BTC", Quantity: dec(1), Price: dec(1), Fees: dec(-1)},
		{Symbol: "BTC", Quantity: dec(1), Price: dec(1), Type: "SHORT"},
	}
	for _, req := range cases {
		_, err := service.ApplyTransaction(context.Background(), portfolioID, req)
		assert.True(t, apperrors.IsValidationError(err), "expected validation error for %+v, got %v", req, err)
	}
	assert.Empty(t, recorder.Records)
}

func TestApplyTransaction_RetriesOnConcurrentConflict(t *testing.T) {
	service, repo, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(40000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	repo.ForceUpdateConflicts = 1
	holding, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(42000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)
	assertDecimalEqual(t, 2, holding.Quantity)
}

func TestApplyTransaction_GivesUpAfterRepeatedConflicts(t *testing.T) {
	service, repo, _, _ := newTestService()
	portfolioID := uuid.New()

	_, err := service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(40000), Type: models.TransactionBuy,
	})
	require.NoError(t, err)

	repo.ForceUpdateConflicts = maxApplyAttempts
	_, err = service.ApplyTransaction(context.Background(), portfolioID, TransactionRequest{
		Symbol: "BTC", Quantity: dec(1), Price: dec(42000), Type: models.TransactionBuy,
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestQuantityNeverNegativeAcrossSequence(t *testing.T) {
	service, _, _, _ := newTestService()
	portfolioID := uuid.New()

	steps := []TransactionRequest{
		{Symbol: "BTC", Quantity: dec(2), Price: dec(30000), Type: models.TransactionBuy},
		{Symbol: "BTC", Quantity: dec(1.5), Price: dec(35000), Type: models.TransactionSell},
		{Symbol: "BTC", Quantity: dec(1), Price: dec(35000), Type: models.TransactionSell}, // rejected
		{Symbol: "BTC", Quantity: dec(0.5), Price: dec(36000), Type: models.TransactionSell},
	}

	var last *models.Holding
	for _, step := range steps {
		h, err := service.ApplyTransaction(context.Background(), portfolioID, step)
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientQuantity)
			continue
		}
		last = h
		assert.False(t, h.Quantity.IsNegative())
		assert.False(t, h.TotalCost.IsNegative())
	}
	require.NotNil(t, last)
	assert.True(t, last.Quantity.IsZero())
}

func TestDeactivateHolding_NotFound(t *testing.T) {
	service, _, _, _ := newTestService()
	err := service.DeactivateHolding(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrHoldingNotFound)
}
