package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Quote is a stored reference price.
type Quote struct {
	Symbol     string          `json:"symbol"`
	PriceInUSD decimal.Decimal `json:"priceInUsd"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for reference quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, symbol string, priceInUSD decimal.Decimal) error
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, symbol string, priceInUSD decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reference_quotes (symbol, price_in_usd, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (symbol) DO UPDATE SET price_in_usd = $2, updated_at = NOW()`,
		symbol, priceInUSD)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", symbol, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT symbol, price_in_usd, updated_at FROM reference_quotes WHERE symbol = $1`,
		symbol).Scan(&q.Symbol, &q.PriceInUSD, &q.UpdatedAt)
	if err != nil {
		return Quote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return q, nil
}
