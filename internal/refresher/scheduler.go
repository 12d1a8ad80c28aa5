package refresher

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/marketdata"
	"cryptofolio/internal/models"
)

// HoldingStore is the slice of the holdings layer one refresh cycle needs.
type HoldingStore interface {
	FindAllActive(ctx context.Context) ([]models.Holding, error)
	FindActiveByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]models.Holding, error)
	UpdateMarketData(ctx context.Context, holdingID uuid.UUID, update models.MarketDataUpdate) error
}

type PortfolioValuer interface {
	RecalculateValue(ctx context.Context, portfolioID uuid.UUID) (decimal.Decimal, error)
}

// Scheduler drives price refresh cycles. It is owned by the composition
// root and invoked on a fixed period; RefreshPortfolio serves the
// on-demand single-portfolio variant. A cycle either updates holdings from
// a successful provider call or, when the provider fails, changes nothing
// and leaves recovery to the next tick.
type Scheduler struct {
	provider   marketdata.Provider
	holdings   HoldingStore
	portfolios PortfolioValuer

	fetchTimeout  time.Duration
	maxConcurrent int

	mu         sync.Mutex
	refreshing bool
}

func New(provider marketdata.Provider, holdings HoldingStore, portfolios PortfolioValuer) *Scheduler {
	return &Scheduler{
		provider:      provider,
		holdings:      holdings,
		portfolios:    portfolios,
		fetchTimeout:  20 * time.Second,
		maxConcurrent: 10,
	}
}

// RunCycle refreshes every active holding in the system. If the previous
// cycle is still in flight the tick is skipped, so a slow provider cannot
// stack unbounded concurrent cycles.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		log.Println("Price refresh cycle still running, skipping this tick")
		return nil
	}
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	holdings, err := s.holdings.FindAllActive(ctx)
	if err != nil {
		return fmt.Errorf("load active holdings: %w", err)
	}
	return s.refresh(ctx, holdings)
}

// RefreshPortfolio refreshes a single portfolio's holdings, typically right
// after a transaction was entered.
func (s *Scheduler) RefreshPortfolio(ctx context.Context, portfolioID uuid.UUID) error {
	holdings, err := s.holdings.FindActiveByPortfolioID(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("load portfolio holdings: %w", err)
	}
	return s.refresh(ctx, holdings)
}

func (s *Scheduler) refresh(ctx context.Context, holdings []models.Holding) error {
	if len(holdings) == 0 {
		return nil
	}

	// One provider call per cycle: N holdings of the same symbol share a
	// single price fetch.
	seen := make(map[string]bool)
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbol := strings.ToUpper(h.Symbol)
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	prices, err := s.provider.GetCurrentPrices(fetchCtx, symbols)
	if err != nil {
		// No partial effect: stale prices stand until the next cycle.
		log.Printf("Price refresh cycle aborted, provider call failed: %v", err)
		return fmt.Errorf("fetch prices: %w", err)
	}

	now := time.Now()
	touched := make(map[uuid.UUID]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)

	for _, holding := range holdings {
		price, ok := prices[strings.ToUpper(holding.Symbol)]
		if !ok {
			// No price this cycle, holding keeps its last known value.
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(h models.Holding, price decimal.Decimal) {
			defer wg.Done()
			defer func() { <-sem }()

			value := h.Quantity.Mul(price)
			profitLoss := value.Sub(h.TotalCost)
			profitLossPct := decimal.Zero
			if !h.TotalCost.IsZero() {
				profitLossPct = profitLoss.Div(h.TotalCost).Mul(decimal.NewFromInt(100))
			}

			update := models.MarketDataUpdate{
				Price:                price,
				Value:                value,
				ProfitLoss:           profitLoss,
				ProfitLossPercentage: profitLossPct,
				UpdatedAt:            now,
			}
			if err := s.holdings.UpdateMarketData(ctx, h.ID, update); err != nil {
				log.Printf("Failed to update market data for %s: %v", h.Symbol, err)
				return
			}

			mu.Lock()
			touched[h.PortfolioID] = struct{}{}
			mu.Unlock()
		}(holding, price)
	}

	// All per-holding writes must land before aggregating, otherwise the
	// portfolio totals would read stale values.
	wg.Wait()

	for portfolioID := range touched {
		if _, err := s.portfolios.RecalculateValue(ctx, portfolioID); err != nil {
			log.Printf("Failed to recalculate portfolio %s value: %v", portfolioID, err)
		}
	}
	return nil
}
