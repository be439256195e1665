package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actapp/backend/internal/domain"
)

// stubQuotes serves fixed prices and can be told to fail.
type stubQuotes struct {
	prices map[string]float64
	err    error
	calls  int
}

func (s *stubQuotes) GetPrice(ctx context.Context, symbol string) (domain.Quote, error) {
	s.calls++
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return domain.Quote{
		Symbol:   symbol,
		Price:    s.prices[symbol],
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}

func setupTestService(t *testing.T, quotes domain.QuoteProvider) (*Service, func()) {
	t.Helper()
	repo, cleanup := setupTestRepo(t)
	svc := NewService(repo, quotes, domain.AssetClassCrypto, domain.CryptoAssets, zerolog.Nop())
	return svc, cleanup
}

func TestService_Acquire(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"BTC": 10}}
	svc, cleanup := setupTestService(t, quotes)
	defer cleanup()

	t.Run("rejects unsupported symbol", func(t *testing.T) {
		_, _, err := svc.Acquire(context.Background(), "user-1", "DOGE", 1)
		require.Error(t, err)
		assert.Equal(t, domain.KindUnsupportedAsset, domain.KindOf(err))
		assert.Zero(t, quotes.calls)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, _, err := svc.Acquire(context.Background(), "user-1", "BTC", 0)
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		_, _, err = svc.Acquire(context.Background(), "user-1", "BTC", -2)
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Zero(t, quotes.calls)
	})

	t.Run("records acquisition at the current quote", func(t *testing.T) {
		pos, quote, err := svc.Acquire(context.Background(), "user-1", "BTC", 2)
		require.NoError(t, err)
		assert.Equal(t, 10.0, quote.Price)
		assert.Equal(t, 2.0, pos.Quantity)
		assert.Equal(t, 10.0, pos.AvgPrice)
	})

	t.Run("folds later acquisitions into the average", func(t *testing.T) {
		quotes.prices["BTC"] = 20
		pos, _, err := svc.Acquire(context.Background(), "user-1", "BTC", 3)
		require.NoError(t, err)
		assert.Equal(t, 5.0, pos.Quantity)
		assert.Equal(t, 16.0, pos.AvgPrice)
	})

	t.Run("quote failure leaves the ledger untouched", func(t *testing.T) {
		quotes.err = domain.E(domain.KindUpstream, "quote provider error")
		_, _, err := svc.Acquire(context.Background(), "user-1", "BTC", 1)
		require.Error(t, err)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
		quotes.err = nil

		valuation, err := svc.Value(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, valuation.Positions, 1)
		assert.Equal(t, 5.0, valuation.Positions[0].Quantity)
	})
}

func TestService_Value(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"BTC": 10, "ETH": 100}}
	svc, cleanup := setupTestService(t, quotes)
	defer cleanup()

	t.Run("empty ledger values to zero", func(t *testing.T) {
		valuation, err := svc.Value(context.Background(), "user-1")
		require.NoError(t, err)
		assert.NotNil(t, valuation.Positions)
		assert.Empty(t, valuation.Positions)
		assert.Equal(t, 0.0, valuation.TotalValue)
		assert.Equal(t, 0, valuation.AssetCount)
	})

	t.Run("prices positions at fresh quotes", func(t *testing.T) {
		_, _, err := svc.Acquire(context.Background(), "user-1", "BTC", 2)
		require.NoError(t, err)
		quotes.prices["BTC"] = 20
		_, _, err = svc.Acquire(context.Background(), "user-1", "BTC", 3)
		require.NoError(t, err)

		// 5 BTC at avg 16, current price 25
		quotes.prices["BTC"] = 25
		valuation, err := svc.Value(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, valuation.Positions, 1)

		pos := valuation.Positions[0]
		assert.Equal(t, "BTC", pos.Symbol)
		assert.Equal(t, "Bitcoin", pos.Name)
		assert.Equal(t, 5.0, pos.Quantity)
		assert.Equal(t, 16.0, pos.AvgPrice)
		assert.Equal(t, 25.0, pos.CurrentPrice)
		assert.Equal(t, 125.0, pos.CurrentValue)
		assert.Equal(t, 45.0, pos.ProfitLoss)
		assert.InDelta(t, 56.25, pos.ProfitLossPct, 1e-9)

		assert.Equal(t, 125.0, valuation.TotalValue)
		assert.Equal(t, 1, valuation.AssetCount)
	})

	t.Run("sums across positions", func(t *testing.T) {
		_, _, err := svc.Acquire(context.Background(), "user-1", "ETH", 1)
		require.NoError(t, err)

		valuation, err := svc.Value(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, valuation.AssetCount)
		assert.Equal(t, 225.0, valuation.TotalValue) // 5*25 + 1*100
	})

	t.Run("quote failure aborts the whole valuation", func(t *testing.T) {
		quotes.err = domain.E(domain.KindUpstream, "quote provider error")
		_, err := svc.Value(context.Background(), "user-1")
		require.Error(t, err)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
		quotes.err = nil
	})
}

func TestService_Price(t *testing.T) {
	quotes := &stubQuotes{prices: map[string]float64{"BTC": 50000}}
	svc, cleanup := setupTestService(t, quotes)
	defer cleanup()

	t.Run("returns quote for supported symbol", func(t *testing.T) {
		quote, err := svc.Price(context.Background(), "BTC")
		require.NoError(t, err)
		assert.Equal(t, 50000.0, quote.Price)
	})

	t.Run("rejects unsupported symbol without an upstream call", func(t *testing.T) {
		before := quotes.calls
		_, err := svc.Price(context.Background(), "DOGE")
		require.Error(t, err)
		assert.Equal(t, domain.KindUnsupportedAsset, domain.KindOf(err))
		assert.Equal(t, before, quotes.calls)
	})
}

func TestService_Available(t *testing.T) {
	svc, cleanup := setupTestService(t, &stubQuotes{})
	defer cleanup()

	available := svc.Available()
	assert.Len(t, available, len(domain.CryptoAssets))
	assert.Equal(t, "Bitcoin", available["BTC"])
}
