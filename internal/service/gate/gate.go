// Package gate enforces per-plan daily generation quotas.
package gate

import (
	"context"
	"fmt"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/logger"
)

// Limits holds per-plan daily quotas.
type Limits struct {
	FreeDaily int
	ProDaily  int
}

// UsageGate decides whether a user may generate, and charges quota only
// after a run produced an artifact. Check never writes; Commit is the only
// mutation and relies on an atomic counter, so concurrent requests cannot
// double-spend the last slot unnoticed.
type UsageGate struct {
	store  repository.UsageStore
	limits Limits
	logger *logger.Logger
}

func NewUsageGate(store repository.UsageStore, limits Limits, lgr *logger.Logger) *UsageGate {
	return &UsageGate{
		store:  store,
		limits: limits,
		logger: lgr,
	}
}

// Check returns the user's current quota position without consuming anything.
func (g *UsageGate) Check(ctx context.Context, userID string) (*models.UsageDecision, error) {
	plan, err := g.store.GetPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUsageStoreUnavailable, err)
	}

	used, err := g.store.GetDailyUsage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUsageStoreUnavailable, err)
	}

	limit := g.limitFor(plan)
	decision := &models.UsageDecision{
		CanGenerate: used < limit,
		Plan:        plan,
		Used:        used,
		Limit:       limit,
		Remaining:   limit - used,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

// Commit consumes one generation slot. Callers invoke it only after a run
// succeeded; failed runs are free. The post-increment value is checked so a
// race that overshoots the limit is at least visible in logs.
func (g *UsageGate) Commit(ctx context.Context, userID, plan string) error {
	count, err := g.store.IncrementUsage(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUsageStoreUnavailable, err)
	}

	if limit := g.limitFor(plan); count > limit {
		g.logger.Warn("usage commit exceeded plan limit",
			logger.String("user_id", userID),
			logger.String("plan", plan),
			logger.Int("count", count),
			logger.Int("limit", limit),
		)
	}
	return nil
}

func (g *UsageGate) limitFor(plan string) int {
	if plan == models.PlanPro {
		return g.limits.ProDaily
	}
	return g.limits.FreeDaily
}
