package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/cache"
	"ThreadForge/pkg/logger"
)

// usageKeyTTL keeps daily counters around past midnight so late queries and
// timezone skew cannot resurrect a spent quota.
const usageKeyTTL = 48 * time.Hour

// RedisUsageStore keeps per-user daily counters and plan assignments in Redis.
type RedisUsageStore struct {
	cache  *cache.RedisCache
	logger *logger.Logger
}

func NewRedisUsageStore(c *cache.RedisCache, lgr *logger.Logger) repository.UsageStore {
	return &RedisUsageStore{
		cache:  c,
		logger: lgr,
	}
}

func (s *RedisUsageStore) GetDailyUsage(ctx context.Context, userID string) (int, error) {
	var raw string
	err := s.cache.Get(ctx, s.usageKey(userID), &raw)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("read usage counter: %w", err)
	}

	var count int
	if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
		s.logger.Warn("malformed usage counter, resetting",
			logger.String("user_id", userID),
			logger.String("value", raw),
		)
		return 0, nil
	}
	return count, nil
}

func (s *RedisUsageStore) GetPlan(ctx context.Context, userID string) (string, error) {
	var plan string
	err := s.cache.Get(ctx, s.planKey(userID), &plan)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.PlanFree, nil
		}
		return "", fmt.Errorf("read plan: %w", err)
	}
	if plan != models.PlanFree && plan != models.PlanPro {
		return models.PlanFree, nil
	}
	return plan, nil
}

// IncrementUsage is the only write path for the counter. INCR is atomic, so
// two concurrent generations can never both observe the pre-increment value.
func (s *RedisUsageStore) IncrementUsage(ctx context.Context, userID string) (int, error) {
	key := s.usageKey(userID)

	count, err := s.cache.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}

	if count == 1 {
		if _, err := s.cache.Expire(ctx, key, usageKeyTTL); err != nil {
			s.logger.Warn("failed to set usage key ttl",
				logger.String("user_id", userID),
				logger.Error(err),
			)
		}
	}

	return int(count), nil
}

// SetPlan assigns a subscription plan. Used by the admin surface and tests.
func (s *RedisUsageStore) SetPlan(ctx context.Context, userID, plan string) error {
	if plan != models.PlanFree && plan != models.PlanPro {
		return fmt.Errorf("unknown plan %q", plan)
	}
	return s.cache.Set(ctx, s.planKey(userID), plan, 0)
}

func (s *RedisUsageStore) usageKey(userID string) string {
	return fmt.Sprintf("usage:%s:%s", userID, time.Now().UTC().Format("2006-01-02"))
}

func (s *RedisUsageStore) planKey(userID string) string {
	return fmt.Sprintf("plan:%s", userID)
}
