// Package journal records the events the core emits: a structured log line
// always, plus best-effort persistence for indexing.
package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hedgeline/issuance/internal/domain"
)

// Repository defines persistent storage for events.
type Repository interface {
	Save(ctx context.Context, e domain.Event) error
	ListByProduct(ctx context.Context, productName string, limit int) ([]domain.Event, error)
}

// Recorder logs and persists events. A nil repository disables persistence.
// Persistence failures are logged and swallowed: observability must never
// abort a ledger operation.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a Recorder. repo may be nil.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record logs the event and stores it when a repository is configured.
func (r *Recorder) Record(ctx context.Context, e domain.Event) {
	slog.Info("ledger event",
		"kind", e.Kind,
		"product", e.Product,
		"attrs", e.Attrs,
	)
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(ctx, e); err != nil {
		slog.Warn("failed to persist event", "kind", e.Kind, "product", e.Product, "error", err)
	}
}

// MemoryRepository is an in-memory event store for tests and db-less runs.
type MemoryRepository struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewMemoryRepository creates an empty in-memory event store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Save(_ context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryRepository) ListByProduct(_ context.Context, productName string, limit int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].Product == productName {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// All returns every stored event in emit order.
func (m *MemoryRepository) All() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}
