package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hedgeline/issuance/internal/domain"
)

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL event repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, e domain.Event) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("marshaling event attrs: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO ledger_events (id, product, kind, attrs, occurred_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Product, string(e.Kind), attrs, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByProduct(ctx context.Context, productName string, limit int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product, kind, attrs, occurred_at
		 FROM ledger_events
		 WHERE product = $1
		 ORDER BY occurred_at DESC
		 LIMIT $2`,
		productName, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var kind string
		var attrs []byte
		if err := rows.Scan(&e.ID, &e.Product, &kind, &attrs, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &e.Attrs); err != nil {
				return nil, fmt.Errorf("unmarshaling event attrs: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
