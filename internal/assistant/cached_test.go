package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"silverlink/internal/cache"
	"silverlink/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := cache.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCachedAnalyzer(t *testing.T) {
	rdb := newRedis(t)
	req := AnalysisRequest{Intro: "hi", RawInterests: []string{"书法"}, Region: "香港, 东区"}

	inner := new(mockAnalyzer)
	inner.On("AnalyzeProfile", mock.Anything, req).Return(ProfileAnalysis{Tags: []string{"书法爱好者"}, Summary: "s"}, nil).Once()

	cached := NewCachedAnalyzer(inner, rdb, time.Minute)
	for i := 0; i < 3; i++ {
		got, err := cached.AnalyzeProfile(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"书法爱好者"}, got.Tags)
	}
	inner.AssertNumberOfCalls(t, "AnalyzeProfile", 1)
}

func TestCachedAnalyzer_ErrorsAreNotCached(t *testing.T) {
	rdb := newRedis(t)
	req := AnalysisRequest{Intro: "x"}

	inner := new(mockAnalyzer)
	inner.On("AnalyzeProfile", mock.Anything, req).Return(ProfileAnalysis{}, errors.New("down")).Once()
	inner.On("AnalyzeProfile", mock.Anything, req).Return(ProfileAnalysis{Tags: []string{"ok"}}, nil).Once()

	cached := NewCachedAnalyzer(inner, rdb, time.Minute)
	_, err := cached.AnalyzeProfile(context.Background(), req)
	require.Error(t, err)

	got, err := cached.AnalyzeProfile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got.Tags)
}

func TestCachedPlanner_NilClientPassesThrough(t *testing.T) {
	calls := 0
	inner := &plannerStub{suggestFn: func(context.Context, models.UserProfile) ([]models.ActivityPlan, error) {
		calls++
		return []models.ActivityPlan{{Title: "t"}}, nil
	}}

	cached := NewCachedPlanner(inner, nil, 0)
	for i := 0; i < 2; i++ {
		plans, err := cached.SuggestActivities(context.Background(), models.UserProfile{ID: "u"})
		require.NoError(t, err)
		assert.Len(t, plans, 1)
	}
	assert.Equal(t, 2, calls)
}

func TestCachedPlanner_KeyedByProfile(t *testing.T) {
	rdb := newRedis(t)
	calls := 0
	inner := &plannerStub{suggestFn: func(_ context.Context, u models.UserProfile) ([]models.ActivityPlan, error) {
		calls++
		return []models.ActivityPlan{{Title: u.Region}}, nil
	}}
	cached := NewCachedPlanner(inner, rdb, time.Minute)

	a, err := cached.SuggestActivities(context.Background(), models.UserProfile{ID: "u", Region: "香港, 东区"})
	require.NoError(t, err)
	b, err := cached.SuggestActivities(context.Background(), models.UserProfile{ID: "u", Region: "香港, 南区"})
	require.NoError(t, err)
	_, err = cached.SuggestActivities(context.Background(), models.UserProfile{ID: "u", Region: "香港, 东区"})
	require.NoError(t, err)

	assert.Equal(t, "香港, 东区", a[0].Title)
	assert.Equal(t, "香港, 南区", b[0].Title)
	assert.Equal(t, 2, calls)
}

func TestNewServices_LocalBackend(t *testing.T) {
	s := NewServices(Options{ReviewSize: 2})

	matches, err := s.Matcher.MatchFriends(context.Background(),
		models.UserProfile{ID: "me", Gender: models.GenderOther},
		[]models.UserProfile{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	analysis, err := s.Analyzer.AnalyzeProfile(context.Background(), AnalysisRequest{RawInterests: []string{"园艺"}})
	require.NoError(t, err)
	assert.Equal(t, "园艺爱好者", analysis.Tags[0])

	plans, err := s.Planner.SuggestActivities(context.Background(), models.UserProfile{Interests: []string{"园艺"}})
	require.NoError(t, err)
	assert.Equal(t, "社区种植日", plans[0].Title)
}
