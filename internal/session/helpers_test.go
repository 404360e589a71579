package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"silverlink/internal/assistant"
	"silverlink/internal/directory"
	"silverlink/internal/featureflags"
	"silverlink/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeClock is the part of clockwork's fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type matcherFunc func(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error)

func (f matcherFunc) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	return f(ctx, user, pool)
}

type analyzerFunc func(ctx context.Context, req assistant.AnalysisRequest) (assistant.ProfileAnalysis, error)

func (f analyzerFunc) AnalyzeProfile(ctx context.Context, req assistant.AnalysisRequest) (assistant.ProfileAnalysis, error) {
	return f(ctx, req)
}

type plannerFunc func(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error)

func (f plannerFunc) SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error) {
	return f(ctx, user)
}

// countingMatcher returns fixed matches and counts calls.
type countingMatcher struct {
	calls   atomic.Int32
	matches []models.FriendMatch
	failOn  map[int32]bool
}

func (m *countingMatcher) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	n := m.calls.Add(1)
	if m.failOn[n] {
		return nil, context.DeadlineExceeded
	}
	return append([]models.FriendMatch(nil), m.matches...), nil
}

type matchReply struct {
	matches []models.FriendMatch
	err     error
}

type gatedCall struct {
	user  models.UserProfile
	pool  []models.UserProfile
	reply chan matchReply
}

// gatedMatcher blocks every call until the test replies to it.
type gatedMatcher struct {
	calls chan gatedCall
}

func newGatedMatcher() *gatedMatcher {
	return &gatedMatcher{calls: make(chan gatedCall, 8)}
}

func (g *gatedMatcher) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	c := gatedCall{user: user, pool: pool, reply: make(chan matchReply, 1)}
	select {
	case g.calls <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r.matches, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedMatcher) next(t *testing.T) gatedCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("matcher was not called")
		return gatedCall{}
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func fixtureMatches(ids ...string) []models.FriendMatch {
	out := make([]models.FriendMatch, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.FriendMatch{
			UserID:             id,
			CompatibilityScore: float64(90 - i*10),
			MatchingReason:     "reason " + id,
		})
	}
	return out
}

type harness struct {
	session  *Session
	clock    fakeClock
	events   *recorder
	matcher  assistant.Matcher
	fixtures *directory.Fixtures
}

type harnessOption func(*Options)

func withMatcher(m assistant.Matcher) harnessOption {
	return func(o *Options) { o.Services.Matcher = m }
}

func withAnalyzer(a assistant.ProfileAnalyzer) harnessOption {
	return func(o *Options) { o.Services.Analyzer = a }
}

func withPlanner(p assistant.ActivityPlanner) harnessOption {
	return func(o *Options) { o.Services.Planner = p }
}

func withFlags(raw string) harnessOption {
	return func(o *Options) { o.Flags = featureflags.NewManager(raw) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	fixtures := directory.MustFixtures()
	clock := clockwork.NewFakeClockAt(testStart)
	rec := &recorder{}
	o := Options{
		ID:        "test-session",
		Services:  assistant.LocalServices(DefaultReviewSize),
		Directory: directory.NewStatic(fixtures),
		Clock:     clock,
		Listener:  rec.listen,
	}
	for _, opt := range opts {
		opt(&o)
	}
	s, err := New(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &harness{session: s, clock: clock, events: rec, matcher: o.Services.Matcher, fixtures: fixtures}
}

func sampleDraft() models.ProfileDraft {
	return models.ProfileDraft{
		Name:         "陈美玲",
		Gender:       models.GenderFemale,
		Age:          68,
		District:     "湾仔区",
		Introduction: "我退休了，喜欢饮茶和带孙子。",
		Interests:    []string{"饮茶", " 散步", "饮茶", ""},
	}
}

// awaitHistory waits for the conversation with partnerID to reach n
// messages. Fake clock timers fire on their own goroutine.
func (h *harness) awaitHistory(t *testing.T, partnerID string, n int) []models.ChatMessage {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.session.History(partnerID)) == n
	}, 2*time.Second, 5*time.Millisecond)
	return h.session.History(partnerID)
}

// onboard completes onboarding and waits for the initial refresh.
func (h *harness) onboard(t *testing.T) *models.UserProfile {
	t.Helper()
	p, err := h.session.CompleteOnboarding(context.Background(), sampleDraft())
	require.NoError(t, err)
	h.session.Wait()
	return p
}
