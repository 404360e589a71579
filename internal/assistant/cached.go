package assistant

import (
	"context"
	"strconv"
	"strings"
	"time"

	"silverlink/internal/cache"
	"silverlink/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedAnalyzer caches analysis results in Redis keyed by the request.
// A nil client disables caching.
type CachedAnalyzer struct {
	next ProfileAnalyzer
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedAnalyzer wraps next with a Redis response cache.
func NewCachedAnalyzer(next ProfileAnalyzer, rdb *redis.Client, ttl time.Duration) *CachedAnalyzer {
	if ttl <= 0 {
		ttl = cache.AnalysisTTL
	}
	return &CachedAnalyzer{next: next, rdb: rdb, ttl: ttl}
}

// AnalyzeProfile implements ProfileAnalyzer.
func (c *CachedAnalyzer) AnalyzeProfile(ctx context.Context, req AnalysisRequest) (ProfileAnalysis, error) {
	key := cache.AnalysisKey(cache.Fingerprint(req.Intro, strings.Join(req.RawInterests, ","), req.Region))
	var result ProfileAnalysis
	err := cache.AsideWith(ctx, c.rdb, key, &result, c.ttl, func() error {
		var err error
		result, err = c.next.AnalyzeProfile(ctx, req)
		return err
	})
	if err != nil {
		return ProfileAnalysis{}, err
	}
	return result, nil
}

// CachedPlanner caches suggestions keyed by the fields the planner reads.
type CachedPlanner struct {
	next ActivityPlanner
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedPlanner wraps next with a Redis response cache.
func NewCachedPlanner(next ActivityPlanner, rdb *redis.Client, ttl time.Duration) *CachedPlanner {
	if ttl <= 0 {
		ttl = cache.PlanTTL
	}
	return &CachedPlanner{next: next, rdb: rdb, ttl: ttl}
}

// SuggestActivities implements ActivityPlanner.
func (c *CachedPlanner) SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error) {
	key := cache.PlanKey(cache.Fingerprint(
		user.ID,
		user.Name,
		strconv.Itoa(user.Age),
		user.Region,
		strings.Join(user.Interests, ","),
		strings.Join(user.Tags, ","),
	))
	var plans []models.ActivityPlan
	err := cache.AsideWith(ctx, c.rdb, key, &plans, c.ttl, func() error {
		var err error
		plans, err = c.next.SuggestActivities(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}
