package oracle

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service resolves reference prices with a short-lived cache and stored
// quotes as fallback when the feed is unavailable.
type Service struct {
	client *Client
	repo   QuoteRepository
	cache  *priceCache
}

// NewService creates a new reference price service. repo may be nil.
func NewService(client *Client, repo QuoteRepository) *Service {
	if client == nil {
		panic("oracle.NewService: client is nil")
	}
	return &Service{
		client: client,
		repo:   repo,
		cache:  newPriceCache(),
	}
}

// FetchAndStoreQuotes fetches all feed prices and persists them.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	prices, err := s.client.FetchPrices(ctx)
	if err != nil {
		return fmt.Errorf("fetching reference prices: %w", err)
	}

	for symbol, price := range prices {
		d := decimal.NewFromFloat(price)
		s.cache.set(symbol, d)
		if s.repo == nil {
			continue
		}
		if err := s.repo.SaveQuote(ctx, symbol, d); err != nil {
			return fmt.Errorf("storing quote for %s: %w", symbol, err)
		}
	}

	return nil
}

// ReferencePrice resolves a symbol's current reference price: cache first,
// then the live feed, then the last stored quote.
func (s *Service) ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := s.cache.get(symbol); ok {
		return price, nil
	}

	prices, err := s.client.FetchPrices(ctx)
	if err == nil {
		for sym, p := range prices {
			s.cache.set(sym, decimal.NewFromFloat(p))
		}
		if price, ok := s.cache.get(symbol); ok {
			return price, nil
		}
	}

	if s.repo != nil {
		q, repoErr := s.repo.GetQuote(ctx, symbol)
		if repoErr == nil {
			return q.PriceInUSD, nil
		}
	}

	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, fmt.Errorf("no reference price for %s", symbol)
}
