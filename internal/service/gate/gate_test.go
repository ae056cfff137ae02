package gate

import (
	"context"
	"errors"
	"testing"

	"ThreadForge/internal/domain/models"
	"ThreadForge/pkg/logger"
)

type fakeStore struct {
	plan    string
	used    int
	planErr error
	readErr error
	incErr  error
	incs    int
}

func (f *fakeStore) GetDailyUsage(ctx context.Context, userID string) (int, error) {
	return f.used, f.readErr
}

func (f *fakeStore) GetPlan(ctx context.Context, userID string) (string, error) {
	if f.planErr != nil {
		return "", f.planErr
	}
	if f.plan == "" {
		return models.PlanFree, nil
	}
	return f.plan, nil
}

func (f *fakeStore) IncrementUsage(ctx context.Context, userID string) (int, error) {
	if f.incErr != nil {
		return 0, f.incErr
	}
	f.incs++
	f.used++
	return f.used, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return lgr
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	store := &fakeStore{used: 1}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	d, err := g.Check(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.CanGenerate || d.Remaining != 2 || d.Limit != 3 || d.Plan != models.PlanFree {
		t.Fatalf("decision = %+v", d)
	}
}

func TestCheckRefusesAtLimit(t *testing.T) {
	store := &fakeStore{used: 3}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	d, err := g.Check(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if d.CanGenerate {
		t.Fatal("expected refusal at limit")
	}
	if d.Remaining != 0 {
		t.Fatalf("remaining = %d", d.Remaining)
	}
	if store.incs != 0 {
		t.Fatal("check must not write")
	}
}

func TestCheckUsesProLimit(t *testing.T) {
	store := &fakeStore{plan: models.PlanPro, used: 10}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	d, err := g.Check(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.CanGenerate || d.Limit != 50 || d.Remaining != 40 {
		t.Fatalf("decision = %+v", d)
	}
}

func TestCheckStoreFailure(t *testing.T) {
	store := &fakeStore{readErr: errors.New("redis down")}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	_, err := g.Check(context.Background(), "u1")
	if !errors.Is(err, models.ErrUsageStoreUnavailable) {
		t.Fatalf("err = %v, want ErrUsageStoreUnavailable", err)
	}
}

func TestCommitIncrements(t *testing.T) {
	store := &fakeStore{used: 1}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	if err := g.Commit(context.Background(), "u1", models.PlanFree); err != nil {
		t.Fatal(err)
	}
	if store.incs != 1 {
		t.Fatalf("incs = %d", store.incs)
	}
}

func TestCommitStoreFailure(t *testing.T) {
	store := &fakeStore{incErr: errors.New("redis down")}
	g := NewUsageGate(store, Limits{FreeDaily: 3, ProDaily: 50}, testLogger(t))

	err := g.Commit(context.Background(), "u1", models.PlanFree)
	if !errors.Is(err, models.ErrUsageStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
