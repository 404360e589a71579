package session

import (
	"context"
	"errors"
	"time"

	"silverlink/internal/models"
	"silverlink/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type matchState struct {
	phase      models.MatchPhase
	loading    bool
	requested  bool
	generation uint64
	matches    []models.FriendMatch
	queue      []models.FriendMatch
	cursor     int
	liked      []models.UserProfile
}

func newMatchState() matchState {
	return matchState{
		phase:   models.PhaseIdle,
		matches: []models.FriendMatch{},
		queue:   []models.FriendMatch{},
		liked:   []models.UserProfile{},
	}
}

// MatchView is the externally visible match session state.
type MatchView struct {
	Phase     models.MatchPhase    `json:"phase"`
	Loading   bool                 `json:"loading"`
	Requested bool                 `json:"requested"`
	Matches   []models.FriendMatch `json:"matches"`
	Queue     []models.FriendMatch `json:"queue"`
	Cursor    int                  `json:"cursor"`
	Current   *models.FriendMatch  `json:"current,omitempty"`
	Liked     []models.UserProfile `json:"liked"`
}

func (m *matchState) view() MatchView {
	v := MatchView{
		Phase:     m.phase,
		Loading:   m.loading,
		Requested: m.requested,
		Matches:   cloneMatches(m.matches),
		Queue:     cloneMatches(m.queue),
		Cursor:    m.cursor,
		Liked:     make([]models.UserProfile, 0, len(m.liked)),
	}
	if m.phase == models.PhaseReviewing && m.cursor < len(m.queue) {
		current := cloneMatch(m.queue[m.cursor])
		v.Current = &current
	}
	for i := range m.liked {
		v.Liked = append(v.Liked, *m.liked[i].Clone())
	}
	return v
}

// find returns a copy of a matched candidate's profile.
func (m *matchState) find(userID string) *models.UserProfile {
	for _, match := range m.matches {
		if match.UserID == userID && match.Profile != nil {
			return match.Profile.Clone()
		}
	}
	return nil
}

type refreshTicket struct {
	generation uint64
	epoch      uint64
	user       models.UserProfile
}

// beginRefreshLocked stamps a new generation and marks the session loading.
func (s *Session) beginRefreshLocked(user models.UserProfile) *refreshTicket {
	s.match.generation++
	s.match.loading = true
	s.match.requested = true
	s.emit(EventMatchesLoading, map[string]uint64{"generation": s.match.generation})
	return &refreshTicket{
		generation: s.match.generation,
		epoch:      s.epoch,
		user:       *user.Clone(),
	}
}

// Matches returns the match session state.
func (s *Session) Matches() MatchView {
	s.mu.Lock()
	defer s.unlock()
	return s.match.view()
}

// RefreshMatches asks the matcher for candidates for user, or for the
// current profile when user is nil. It returns immediately; the result is
// applied in the background only if no newer refresh was issued and the
// session was not reset in the meantime.
func (s *Session) RefreshMatches(ctx context.Context, user *models.UserProfile) {
	s.mu.Lock()
	if user == nil {
		user = s.profile
	}
	if user == nil || s.closed {
		s.unlock()
		return
	}
	ticket := s.beginRefreshLocked(*user)
	s.unlock()

	s.runRefreshAsync(ctx, ticket)
}

func (s *Session) runRefreshAsync(ctx context.Context, ticket *refreshTicket) {
	bg := s.detach(ctx)
	s.tasks.Go(func() {
		s.runRefresh(bg, ticket)
	})
}

func (s *Session) runRefresh(ctx context.Context, t *refreshTicket) {
	span, ctx := observability.NewSpan(ctx, "session.match_refresh",
		observability.WithSpanKind(observability.SpanKindInternal))
	defer span.End()
	span.AddAttributes(
		attribute.String("session.id", s.id),
		attribute.Int64("match.generation", int64(t.generation)),
	)

	fields := map[string]interface{}{
		"session_id": s.id,
		"generation": t.generation,
		"trace_id":   span.TraceID(),
		"span_id":    span.SpanID(),
	}
	observability.LogAsyncOperationStart(ctx, "match_refresh", fields)
	start := time.Now()

	matches, err := s.fetchMatches(ctx, t.user)

	s.mu.Lock()
	defer s.unlock()

	if s.closed || t.generation != s.match.generation || t.epoch != s.epoch {
		observability.StaleResults.WithLabelValues("match").Inc()
		observability.MatchRefreshes.WithLabelValues("stale").Inc()
		span.AddAttributes(attribute.Bool("match.stale", true))
		s.log.LogDiscard(ctx, "match_refresh", "stale", fields)
		return
	}

	s.match.loading = false
	if err != nil {
		// Friends entry may retry only while nothing has been loaded yet.
		if len(s.match.matches) == 0 {
			s.match.requested = false
		}
		span.SetError(err)
		observability.MatchRefreshes.WithLabelValues("failed").Inc()
		s.log.LogError(ctx, "match_refresh", err, fields)
		s.emit(EventMatchesFailed, map[string]string{"error": err.Error()})
		return
	}

	s.match.matches = matches
	n := s.reviewSize
	if n > len(matches) {
		n = len(matches)
	}
	s.match.queue = cloneMatches(matches[:n])
	s.match.cursor = 0
	s.match.liked = []models.UserProfile{}
	if len(s.match.queue) == 0 {
		s.match.phase = models.PhaseResults
	} else {
		s.match.phase = models.PhaseReviewing
	}
	observability.MatchRefreshes.WithLabelValues("applied").Inc()
	span.AddAttributes(attribute.Int("match.count", len(matches)))
	fields["matches"] = len(matches)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	observability.LogAsyncOperationEnd(ctx, "match_refresh", fields)
	s.emit(EventMatchesUpdated, s.match.view())
}

// fetchMatches loads the pool and calls the matcher. It runs without mu.
func (s *Session) fetchMatches(ctx context.Context, user models.UserProfile) ([]models.FriendMatch, error) {
	if s.services.Matcher == nil {
		return nil, errors.New("matcher not configured")
	}
	members, err := s.dir.Members(ctx)
	if err != nil {
		return nil, err
	}
	pool := make([]models.UserProfile, 0, len(members))
	for _, m := range members {
		if m.ID != user.ID {
			pool = append(pool, m)
		}
	}
	scored, err := s.services.Matcher.MatchFriends(ctx, user, pool)
	if err != nil {
		return nil, err
	}
	return models.ResolveMatches(scored, pool), nil
}

// Decide records a like or pass for the current candidate. It does nothing
// unless a candidate is under review.
func (s *Session) Decide(liked bool) {
	s.mu.Lock()
	defer s.unlock()
	m := &s.match
	if m.phase != models.PhaseReviewing || m.cursor >= len(m.queue) {
		return
	}
	candidate := m.queue[m.cursor]
	if liked && candidate.Profile != nil {
		m.liked = append(m.liked, *candidate.Profile.Clone())
	}
	m.cursor++
	if m.cursor >= len(m.queue) {
		m.phase = models.PhaseResults
	}
	s.emit(EventMatchDecided, map[string]interface{}{
		"userId": candidate.UserID,
		"liked":  liked,
		"phase":  m.phase,
	})
}

func cloneMatch(m models.FriendMatch) models.FriendMatch {
	m.Profile = m.Profile.Clone()
	return m
}

func cloneMatches(in []models.FriendMatch) []models.FriendMatch {
	out := make([]models.FriendMatch, 0, len(in))
	for _, m := range in {
		out = append(out, cloneMatch(m))
	}
	return out
}
