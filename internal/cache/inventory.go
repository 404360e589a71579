package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"silverlink/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	AnalysisKeyPrefix = "assistant:analysis:%s"
	PlanKeyPrefix     = "assistant:plan:%s"
)

const (
	AnalysisTTL = 60 * time.Minute
	PlanTTL     = 10 * time.Minute
)

// Fingerprint hashes the given parts into a stable cache key component.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:12])
}

func AnalysisKey(fingerprint string) string {
	return fmt.Sprintf(AnalysisKeyPrefix, fingerprint)
}

func PlanKey(fingerprint string) string {
	return fmt.Sprintf(PlanKeyPrefix, fingerprint)
}

// AsideWith reads key into dest from rdb. On a miss it calls load, which
// must populate dest, and stores the JSON encoding under key for ttl.
// A nil client or a Redis failure falls through to load. Errors from load
// are returned and nothing is cached.
func AsideWith(ctx context.Context, rdb *redis.Client, key string, dest any, ttl time.Duration, load func() error) error {
	if rdb == nil {
		return load()
	}

	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "cache_aside")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	raw, err := rdb.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return nil
		}
		rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return load()
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	if err := load(); err != nil {
		return err
	}

	encoded, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	rdb.Set(ctx, key, encoded, ttl)
	return nil
}
