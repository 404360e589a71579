package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func member(h *harness, id string) *models.UserProfile {
	for i := range h.fixtures.Members {
		if h.fixtures.Members[i].ID == id {
			return h.fixtures.Members[i].Clone()
		}
	}
	return nil
}

func queueIDs(v MatchView) []string {
	out := make([]string, 0, len(v.Queue))
	for _, m := range v.Queue {
		out = append(out, m.UserID)
	}
	return out
}

func likedIDs(v MatchView) []string {
	out := make([]string, 0, len(v.Liked))
	for _, p := range v.Liked {
		out = append(out, p.ID)
	}
	return out
}

func TestRefreshMatches_NoUserIsNoop(t *testing.T) {
	matcher := &countingMatcher{}
	h := newHarness(t, withMatcher(matcher))

	h.session.RefreshMatches(context.Background(), nil)
	h.session.Wait()

	assert.Equal(t, int32(0), matcher.calls.Load())
	assert.Equal(t, models.PhaseIdle, h.session.Matches().Phase)
}

func TestRefreshMatches_PoolExcludesUserAndUnknownMatchesDropped(t *testing.T) {
	g := newGatedMatcher()
	h := newHarness(t, withMatcher(g))
	user := member(h, "2")

	h.session.RefreshMatches(context.Background(), user)
	assert.True(t, h.session.Matches().Loading)

	call := g.next(t)
	assert.Equal(t, "2", call.user.ID)
	assert.Len(t, call.pool, 5)
	for _, p := range call.pool {
		assert.NotEqual(t, "2", p.ID)
	}
	call.reply <- matchReply{matches: fixtureMatches("3", "ghost", "5", "7", "4")}
	h.session.Wait()

	view := h.session.Matches()
	assert.False(t, view.Loading)
	assert.Equal(t, models.PhaseReviewing, view.Phase)
	assert.Len(t, view.Matches, 4)
	assert.Equal(t, []string{"3", "5", "7"}, queueIDs(view))
	require.NotNil(t, view.Current)
	assert.Equal(t, "3", view.Current.UserID)
	require.NotNil(t, view.Current.Profile)
	assert.Equal(t, "张先生", view.Current.Profile.Name)
}

func TestRefreshMatches_LastIssuedWins(t *testing.T) {
	for _, order := range [][]string{{"2", "4"}, {"4", "2"}} {
		order := order
		t.Run("reply order "+order[0]+" then "+order[1], func(t *testing.T) {
			g := newGatedMatcher()
			h := newHarness(t, withMatcher(g))

			h.session.RefreshMatches(context.Background(), member(h, "2"))
			h.session.RefreshMatches(context.Background(), member(h, "4"))

			calls := map[string]gatedCall{}
			for i := 0; i < 2; i++ {
				c := g.next(t)
				calls[c.user.ID] = c
			}
			replies := map[string][]models.FriendMatch{
				"2": fixtureMatches("3"),
				"4": fixtureMatches("5", "7"),
			}
			for _, id := range order {
				calls[id].reply <- matchReply{matches: replies[id]}
			}
			h.session.Wait()

			view := h.session.Matches()
			assert.False(t, view.Loading)
			assert.Equal(t, []string{"5", "7"}, queueIDs(view))
		})
	}
}

func TestRefreshMatches_StaleCompletionKeepsLoading(t *testing.T) {
	g := newGatedMatcher()
	h := newHarness(t, withMatcher(g))

	h.session.RefreshMatches(context.Background(), member(h, "2"))
	first := g.next(t)
	h.session.RefreshMatches(context.Background(), member(h, "4"))
	second := g.next(t)

	stale := testutil.ToFloat64(observability.StaleResults.WithLabelValues("match"))
	first.reply <- matchReply{matches: fixtureMatches("3")}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.StaleResults.WithLabelValues("match")) > stale
	}, 2*time.Second, 10*time.Millisecond)
	// Only the newer refresh may clear the loading flag.
	assert.True(t, h.session.Matches().Loading)

	second.reply <- matchReply{err: errors.New("boom")}
	h.session.Wait()
	assert.False(t, h.session.Matches().Loading)
	assert.Equal(t, models.PhaseIdle, h.session.Matches().Phase)
}

func TestRefreshMatches_FailureKeepsPriorResults(t *testing.T) {
	matcher := &countingMatcher{
		matches: fixtureMatches("3", "5"),
		failOn:  map[int32]bool{2: true},
	}
	h := newHarness(t, withMatcher(matcher))
	h.onboard(t)
	h.session.Decide(true)
	before := h.session.Matches()

	h.session.RefreshMatches(context.Background(), nil)
	h.session.Wait()

	after := h.session.Matches()
	assert.False(t, after.Loading)
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, queueIDs(before), queueIDs(after))
	assert.Equal(t, likedIDs(before), likedIDs(after))
	assert.True(t, after.Requested, "loaded matches keep the Friends entry from refreshing")
	assert.Contains(t, h.events.types(), EventMatchesFailed)
}

func TestRefreshMatches_FailureThenFriendsEntryKeepsReview(t *testing.T) {
	matcher := &countingMatcher{
		matches: fixtureMatches("3", "5"),
		failOn:  map[int32]bool{2: true},
	}
	h := newHarness(t, withMatcher(matcher))
	h.onboard(t)
	h.session.Decide(true)

	h.session.RefreshMatches(context.Background(), nil)
	h.session.Wait()
	require.Equal(t, int32(2), matcher.calls.Load())

	h.session.Navigate(context.Background(), models.ScreenFriends)
	h.session.Wait()

	view := h.session.Matches()
	assert.Equal(t, int32(2), matcher.calls.Load())
	assert.Equal(t, models.ScreenFriends, h.session.Screen())
	assert.Equal(t, models.PhaseReviewing, view.Phase)
	assert.Equal(t, 1, view.Cursor)
	assert.Equal(t, []string{"3"}, likedIDs(view))
}

func TestRefreshMatches_RecordsSpan(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("session-test")
	t.Cleanup(func() { observability.Tracer = prev })

	matcher := &countingMatcher{failOn: map[int32]bool{1: true}}
	h := newHarness(t, withMatcher(matcher))
	h.onboard(t)

	var refresh []sdktrace.ReadOnlySpan
	for _, span := range spans.Ended() {
		if span.Name() == "session.match_refresh" {
			refresh = append(refresh, span)
		}
	}
	require.Len(t, refresh, 1)
	assert.Equal(t, codes.Error, refresh[0].Status().Code)
	assert.Equal(t, trace.SpanKindInternal, refresh[0].SpanKind())
	assert.NotEmpty(t, refresh[0].Events(), "error recorded on the span")
}

func TestRefreshMatches_EmptyResultGoesToResults(t *testing.T) {
	h := newHarness(t, withMatcher(&countingMatcher{}))
	h.onboard(t)

	view := h.session.Matches()
	assert.Equal(t, models.PhaseResults, view.Phase)
	assert.Empty(t, view.Queue)
	assert.Empty(t, view.Liked)
	assert.Nil(t, view.Current)
}

func TestRefreshMatches_ResetsReview(t *testing.T) {
	h := newHarness(t, withMatcher(&countingMatcher{matches: fixtureMatches("3", "5")}))
	h.onboard(t)
	h.session.Decide(true)
	h.session.Decide(false)
	require.Equal(t, models.PhaseResults, h.session.Matches().Phase)

	h.session.RefreshMatches(context.Background(), nil)
	h.session.Wait()

	view := h.session.Matches()
	assert.Equal(t, models.PhaseReviewing, view.Phase)
	assert.Equal(t, 0, view.Cursor)
	assert.Empty(t, view.Liked)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		decisions []bool
		phase     models.MatchPhase
		cursor    int
		liked     []string
	}{
		{name: "no decisions", decisions: nil, phase: models.PhaseReviewing, cursor: 0, liked: []string{}},
		{name: "one like", decisions: []bool{true}, phase: models.PhaseReviewing, cursor: 1, liked: []string{"3"}},
		{name: "like pass like", decisions: []bool{true, false, true}, phase: models.PhaseResults, cursor: 3, liked: []string{"3", "7"}},
		{name: "all passes", decisions: []bool{false, false, false}, phase: models.PhaseResults, cursor: 3, liked: []string{}},
		{name: "extra decisions ignored", decisions: []bool{true, true, true, true, false}, phase: models.PhaseResults, cursor: 3, liked: []string{"3", "5", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, withMatcher(&countingMatcher{matches: fixtureMatches("3", "5", "7", "4")}))
			h.onboard(t)

			for _, liked := range tt.decisions {
				h.session.Decide(liked)
			}

			view := h.session.Matches()
			assert.Equal(t, tt.phase, view.Phase)
			assert.Equal(t, tt.cursor, view.Cursor)
			assert.Equal(t, tt.liked, likedIDs(view))
			assert.Len(t, view.Matches, 4)
		})
	}
}

func TestDecide_IdleIsNoop(t *testing.T) {
	h := newHarness(t)

	h.session.Decide(true)

	view := h.session.Matches()
	assert.Equal(t, models.PhaseIdle, view.Phase)
	assert.Equal(t, 0, view.Cursor)
	assert.Empty(t, h.events.types())
}

func TestLogout_DiscardsPendingRefresh(t *testing.T) {
	g := newGatedMatcher()
	h := newHarness(t, withMatcher(g))
	_, err := h.session.CompleteOnboarding(context.Background(), sampleDraft())
	require.NoError(t, err)
	call := g.next(t)

	h.session.Logout(context.Background())
	call.reply <- matchReply{matches: fixtureMatches("3")}
	h.session.Wait()

	view := h.session.Matches()
	assert.Equal(t, models.PhaseIdle, view.Phase)
	assert.Empty(t, view.Matches)
	assert.False(t, view.Loading)
	assert.NotContains(t, h.events.types(), EventMatchesUpdated)
}

func TestClose_CancelsPendingRefresh(t *testing.T) {
	g := newGatedMatcher()
	h := newHarness(t, withMatcher(g))
	h.session.RefreshMatches(context.Background(), member(h, "2"))
	g.next(t)

	h.session.Close()

	assert.True(t, h.session.Matches().Loading, "closed sessions apply nothing")
	assert.NotContains(t, h.events.types(), EventMatchesUpdated)
}
