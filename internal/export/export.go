// Package export renders holder statements and writes them to spreadsheet
// destinations.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/product"
)

// StatementRow is one holder's position in one product, denominated in the
// settlement asset's smallest unit.
type StatementRow struct {
	Product      string
	Status       string
	CycleID      int64
	Holder       string
	Units        int64
	RolledUnits  int64
	Principal    decimal.Decimal
	CouponOwed   decimal.Decimal
	OptionOwed   decimal.Decimal
	CouponBps    int64
	MaturityDate time.Time
}

// StatementWriter writes statement rows to a destination.
type StatementWriter interface {
	Write(ctx context.Context, rows []StatementRow) error
}

// ProductSource yields every product ledger to report on.
type ProductSource interface {
	All() []*product.Ledger
}

// Service builds holder statements across all products and fans them out to
// one or more writers.
type Service struct {
	products ProductSource
	writers  []StatementWriter
}

// NewService creates a statement export service.
func NewService(products ProductSource, writers ...StatementWriter) *Service {
	if products == nil {
		panic("export.NewService: products is nil")
	}
	return &Service{products: products, writers: writers}
}

// Export builds the current statement rows and writes them to every
// configured writer. A writer failure aborts the run.
func (s *Service) Export(ctx context.Context) error {
	rows := s.BuildRows()
	slog.Info("exporting holder statements", "rows", len(rows), "writers", len(s.writers))

	for _, w := range s.writers {
		if err := w.Write(ctx, rows); err != nil {
			return fmt.Errorf("writing statements: %w", err)
		}
	}
	return nil
}

// BuildRows flattens every product's holder positions into statement rows.
func (s *Service) BuildRows() []StatementRow {
	return lo.FlatMap(s.products.All(), func(led *product.Ledger, _ int) []StatementRow {
		state := led.Snapshot()
		return lo.Map(led.Positions(), func(p product.Position, _ int) StatementRow {
			return StatementRow{
				Product:      state.Name,
				Status:       state.Status.String(),
				CycleID:      state.CurrentCycle,
				Holder:       p.Holder,
				Units:        p.Units,
				RolledUnits:  p.RolledUnits,
				Principal:    state.LotSize.Mul(decimal.NewFromInt(p.Units)),
				CouponOwed:   p.CouponOwed,
				OptionOwed:   p.OptionOwed,
				CouponBps:    state.Cycle.CouponBps,
				MaturityDate: state.Cycle.MaturityDate,
			}
		})
	})
}
