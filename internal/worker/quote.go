package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher refreshes stored reference quotes for the underlyings.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker keeps marketplace reference prices fresh by polling the
// external feed on a fixed interval.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
// Quotes refresh once at startup so the marketplace never serves an empty
// price table, then on every tick.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *QuoteWorker) refresh(ctx context.Context) {
	if err := w.fetcher.FetchAndStoreQuotes(ctx); err != nil {
		slog.Error("QuoteWorker: quote refresh failed", "error", err)
		return
	}
	slog.Info("QuoteWorker: quote refresh completed")
}
