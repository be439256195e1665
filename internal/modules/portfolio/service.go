package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/domain"
)

// Service ties one asset class's allow-list and quote provider to the shared
// position ledger. The stocks and crypto modules each own one instance.
type Service struct {
	repo   *Repository
	quotes domain.QuoteProvider
	class  domain.AssetClass
	assets map[string]string // symbol -> display name allow-list
	log    zerolog.Logger
}

// NewService creates a portfolio service for one asset class.
func NewService(repo *Repository, quotes domain.QuoteProvider, class domain.AssetClass, assets map[string]string, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		class:  class,
		assets: assets,
		log:    log.With().Str("service", "portfolio").Str("class", string(class)).Logger(),
	}
}

// Available returns the allow-list as symbol/name pairs.
func (s *Service) Available() map[string]string {
	return s.assets
}

// Price returns a fresh quote for an allow-listed symbol.
func (s *Service) Price(ctx context.Context, symbol string) (domain.Quote, error) {
	if _, ok := s.assets[symbol]; !ok {
		return domain.Quote{}, domain.E(domain.KindUnsupportedAsset, "unsupported asset symbol")
	}
	return s.quotes.GetPrice(ctx, symbol)
}

// Acquire validates the input, prices the acquisition at the current quote
// and folds it into the user's position. The ledger is never touched when
// validation or the quote fails.
func (s *Service) Acquire(ctx context.Context, userID, symbol string, quantity float64) (*domain.Position, domain.Quote, error) {
	if _, ok := s.assets[symbol]; !ok {
		return nil, domain.Quote{}, domain.E(domain.KindUnsupportedAsset, "unsupported asset symbol")
	}
	if quantity <= 0 {
		return nil, domain.Quote{}, domain.E(domain.KindValidation, "quantity must be positive")
	}

	quote, err := s.quotes.GetPrice(ctx, symbol)
	if err != nil {
		return nil, domain.Quote{}, err
	}
	if quote.Price <= 0 {
		return nil, domain.Quote{}, domain.Wrap(domain.KindUpstream, "quote provider error",
			fmt.Errorf("non-positive price %f for %s", quote.Price, symbol))
	}

	position, err := s.repo.Acquire(userID, s.class, symbol, quantity, quote.Price)
	if err != nil {
		return nil, domain.Quote{}, err
	}

	s.log.Info().
		Str("user", userID).
		Str("symbol", symbol).
		Float64("quantity", quantity).
		Float64("price", quote.Price).
		Msg("Acquisition recorded")

	return position, quote, nil
}

// Value prices every position in the user's ledger at a fresh quote.
// Any per-symbol quote failure aborts the whole valuation; there are no
// partial results. An empty ledger values to zero with an empty list.
func (s *Service) Value(ctx context.Context, userID string) (*domain.Valuation, error) {
	positions, err := s.repo.ListByUser(userID, s.class)
	if err != nil {
		return nil, err
	}

	valuation := &domain.Valuation{
		Positions:   []domain.PositionValue{},
		LastUpdated: time.Now().UTC(),
	}

	for _, pos := range positions {
		quote, err := s.quotes.GetPrice(ctx, pos.Symbol)
		if err != nil {
			return nil, err
		}

		currentValue := pos.Quantity * quote.Price
		profitLoss := currentValue - pos.Quantity*pos.AvgPrice

		// avg_price == 0 is unreachable while every acquisition carries a
		// positive price; report 0 rather than dividing if the invariant is
		// ever violated by a data-layer bypass.
		profitLossPct := 0.0
		if pos.AvgPrice > 0 {
			profitLossPct = (quote.Price - pos.AvgPrice) / pos.AvgPrice * 100
		}

		valuation.Positions = append(valuation.Positions, domain.PositionValue{
			Symbol:        pos.Symbol,
			Name:          s.assets[pos.Symbol],
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			CurrentPrice:  quote.Price,
			CurrentValue:  currentValue,
			ProfitLoss:    profitLoss,
			ProfitLossPct: profitLossPct,
		})
		valuation.TotalValue += currentValue
	}

	valuation.AssetCount = len(valuation.Positions)
	return valuation, nil
}
