// Package worker runs the periodic background loops: coupon accrual, holder
// statements, and reference-quote refresh.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// CouponAccruer runs one coupon accrual pass over every issued product.
type CouponAccruer interface {
	AccrueIssued(ctx context.Context, operator string) error
}

// CouponWorker periodically accrues the weekly coupon on issued products.
type CouponWorker struct {
	accruer  CouponAccruer
	operator string
	interval time.Duration
}

// NewCouponWorker creates a new CouponWorker acting as the given operator.
func NewCouponWorker(accruer CouponAccruer, operator string, interval time.Duration) *CouponWorker {
	return &CouponWorker{
		accruer:  accruer,
		operator: operator,
		interval: interval,
	}
}

// Run starts the coupon worker loop. It blocks until the context is cancelled.
// The first accrual happens after one full interval, never at startup: a
// restart must not double-pay the current period.
func (w *CouponWorker) Run(ctx context.Context) {
	slog.Info("CouponWorker: starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("CouponWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.accruer.AccrueIssued(ctx, w.operator); err != nil {
				slog.Error("CouponWorker: accrual failed", "error", err)
			} else {
				slog.Info("CouponWorker: accrual completed")
			}
		}
	}
}
