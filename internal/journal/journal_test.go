package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/hedgeline/issuance/internal/domain"
)

func TestRecorderPersistsEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	rec := NewRecorder(repo)

	rec.Record(ctx, domain.NewEvent("p1", domain.EventDeposit, map[string]any{"lots": 2}))
	rec.Record(ctx, domain.NewEvent("p2", domain.EventFundLock, nil))
	rec.Record(ctx, domain.NewEvent("p1", domain.EventFundLock, nil))

	events, err := repo.ListByProduct(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	// Newest first
	if events[0].Kind != domain.EventFundLock || events[1].Kind != domain.EventDeposit {
		t.Errorf("order = %s, %s", events[0].Kind, events[1].Kind)
	}
}

func TestRecorderNilRepository(t *testing.T) {
	rec := NewRecorder(nil)
	// Must not panic
	rec.Record(context.Background(), domain.NewEvent("p1", domain.EventDeposit, nil))
}

type failingRepo struct{}

func (failingRepo) Save(context.Context, domain.Event) error {
	return errors.New("db down")
}

func (failingRepo) ListByProduct(context.Context, string, int) ([]domain.Event, error) {
	return nil, errors.New("db down")
}

func TestRecorderSwallowsSaveFailure(t *testing.T) {
	rec := NewRecorder(failingRepo{})
	// Persistence failure must not propagate
	rec.Record(context.Background(), domain.NewEvent("p1", domain.EventDeposit, nil))
}

func TestListByProductHonorsLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for range 5 {
		repo.Save(ctx, domain.NewEvent("p1", domain.EventWeeklyCoupon, nil))
	}

	events, err := repo.ListByProduct(ctx, "p1", 3)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("len(events) = %d, want 3", len(events))
	}
	if got := len(repo.All()); got != 5 {
		t.Errorf("All = %d, want 5", got)
	}
}
