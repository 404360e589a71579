package assistant

import (
	"context"
	"time"

	"silverlink/internal/models"
	"silverlink/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Instrument wraps every service with latency metrics, a client span and a
// debug log line per call. backend names the implementation in telemetry.
// Nil services stay nil so callers can still detect them.
func Instrument(s Services, backend string) Services {
	var out Services
	if s.Matcher != nil {
		out.Matcher = &instrumentedMatcher{next: s.Matcher, backend: backend}
	}
	if s.Analyzer != nil {
		out.Analyzer = &instrumentedAnalyzer{next: s.Analyzer, backend: backend}
	}
	if s.Planner != nil {
		out.Planner = &instrumentedPlanner{next: s.Planner, backend: backend}
	}
	return out
}

func track(ctx context.Context, service, method, backend string) (context.Context, func(err error, attrs ...attribute.KeyValue)) {
	start := time.Now()
	ctx, span := observability.GetTraceLayer().TraceAssistantCall(ctx, service, method)
	span.SetAttributes(attribute.String("assistant.backend", backend))
	observability.LogServiceCall(ctx, service, method, map[string]interface{}{"backend": backend})
	return ctx, func(err error, attrs ...attribute.KeyValue) {
		span.SetAttributes(attrs...)
		if err != nil {
			observability.RecordErrorInContext(ctx, err)
		}
		observability.ObserveAssistantCall(service, start, err)
		span.End()
	}
}

type instrumentedMatcher struct {
	next    Matcher
	backend string
}

func (m *instrumentedMatcher) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	ctx, done := track(ctx, "matcher", "MatchFriends", m.backend)
	matches, err := m.next.MatchFriends(ctx, user, pool)
	done(err, attribute.Int("assistant.pool_size", len(pool)), attribute.Int("assistant.matches", len(matches)))
	return matches, err
}

type instrumentedAnalyzer struct {
	next    ProfileAnalyzer
	backend string
}

func (a *instrumentedAnalyzer) AnalyzeProfile(ctx context.Context, req AnalysisRequest) (ProfileAnalysis, error) {
	ctx, done := track(ctx, "analyzer", "AnalyzeProfile", a.backend)
	result, err := a.next.AnalyzeProfile(ctx, req)
	done(err, attribute.Int("assistant.tags", len(result.Tags)))
	return result, err
}

type instrumentedPlanner struct {
	next    ActivityPlanner
	backend string
}

func (p *instrumentedPlanner) SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error) {
	ctx, done := track(ctx, "planner", "SuggestActivities", p.backend)
	plans, err := p.next.SuggestActivities(ctx, user)
	done(err, attribute.Int("assistant.plans", len(plans)))
	return plans, err
}
