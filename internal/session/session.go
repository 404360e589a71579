// Package session implements the per-user state machine of the community
// app: screen navigation, onboarding, friend matching, activities and chat.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"silverlink/internal/assistant"
	"silverlink/internal/directory"
	"silverlink/internal/featureflags"
	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultReviewSize     = 3
	DefaultAutoReplyDelay = 2 * time.Second
	DefaultAutoReplyText  = "很高兴收到你的消息！我们确实有很多共同话题。"
)

// ErrSuperseded is returned by onboarding when the session was reset or
// already onboarded while the profile was being analysed.
var ErrSuperseded = errors.New("session changed while onboarding")

// Options configures a Session. Clock supplies the current time and the
// auto-reply timers; nil uses the wall clock.
type Options struct {
	ID             string
	Services       assistant.Services
	Directory      directory.Directory
	Flags          *featureflags.Manager
	Clock          clockwork.Clock
	Listener       Listener
	ReviewSize     int
	AutoReplyDelay time.Duration
	AutoReplyText  string
}

// Session owns every store of one app user. All mutation happens under mu;
// calls into assistant services and the directory happen without it.
type Session struct {
	id       string
	services assistant.Services
	dir      directory.Directory
	flags    *featureflags.Manager
	clock    clockwork.Clock
	listener Listener
	log      *observability.SessionLogger

	reviewSize     int
	autoReplyDelay time.Duration
	autoReplyText  string

	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup

	mu         sync.Mutex
	closed     bool
	epoch      uint64
	outbox     []Event
	profile    *models.UserProfile
	screen     models.Screen
	prevScreen models.Screen
	partner    *models.UserProfile
	match      matchState
	activities []models.Activity
	chats      map[string][]models.ChatMessage
	replies    map[string]map[uint64]clockwork.Timer
	replySeq   uint64
}

// New creates a session seeded with the directory's activities.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Directory == nil {
		return nil, errors.New("session: directory is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ReviewSize <= 0 {
		opts.ReviewSize = DefaultReviewSize
	}
	if opts.AutoReplyDelay <= 0 {
		opts.AutoReplyDelay = DefaultAutoReplyDelay
	}
	if opts.AutoReplyText == "" {
		opts.AutoReplyText = DefaultAutoReplyText
	}

	activities, err := opts.Directory.Activities(ctx)
	if err != nil {
		return nil, err
	}

	root, cancel := context.WithCancel(observability.WithSessionID(context.Background(), opts.ID))
	s := &Session{
		id:             opts.ID,
		services:       opts.Services,
		dir:            opts.Directory,
		flags:          opts.Flags,
		clock:          opts.Clock,
		listener:       opts.Listener,
		log:            observability.NewSessionLogger(opts.ID),
		reviewSize:     opts.ReviewSize,
		autoReplyDelay: opts.AutoReplyDelay,
		autoReplyText:  opts.AutoReplyText,
		ctx:            root,
		cancel:         cancel,
		screen:         models.ScreenOnboarding,
		prevScreen:     models.ScreenHome,
		match:          newMatchState(),
		activities:     activities,
		chats:          make(map[string][]models.ChatMessage),
		replies:        make(map[string]map[uint64]clockwork.Timer),
	}
	s.log.LogEvent(ctx, "lifecycle", "created", map[string]interface{}{"activities": len(activities)})
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SetListener replaces the event listener.
func (s *Session) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// unlock releases mu and then delivers the events queued while it was held.
func (s *Session) unlock() {
	events := s.outbox
	s.outbox = nil
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return
	}
	for _, ev := range events {
		listener(ev)
	}
}

// emit queues an event; mu must be held.
func (s *Session) emit(t EventType, data any) {
	s.outbox = append(s.outbox, Event{
		Type:      t,
		SessionID: s.id,
		At:        s.clock.Now(),
		Data:      data,
	})
}

// detach returns a context for background work that outlives the caller's
// request but stops when the session closes.
func (s *Session) detach(ctx context.Context) context.Context {
	bg := s.ctx
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		bg = observability.WithCorrelationID(bg, id)
	}
	return bg
}

// Wait blocks until every background task started so far has finished.
func (s *Session) Wait() {
	s.tasks.Wait()
}

// Close cancels pending work and waits for running tasks. A closed session
// discards every late result.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.match.generation++
	s.cancelAllRepliesLocked()
	s.unlock()

	s.cancel()
	s.tasks.Wait()
	s.log.LogEvent(context.Background(), "lifecycle", "closed", nil)
}

// Snapshot is a read-only view of the whole session.
type Snapshot struct {
	ID         string              `json:"id"`
	Screen     models.Screen       `json:"screen"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
	Partner    *models.UserProfile `json:"partner,omitempty"`
	Match      MatchView           `json:"match"`
	Activities []models.Activity   `json:"activities"`
	Flags      map[string]bool     `json:"flags,omitempty"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.unlock()
	snap := Snapshot{
		ID:         s.id,
		Screen:     s.effectiveScreenLocked(),
		Profile:    s.profile.Clone(),
		Partner:    s.partner.Clone(),
		Match:      s.match.view(),
		Activities: cloneActivities(s.activities),
	}
	if s.profile != nil {
		snap.Flags = s.flags.Snapshot(s.profile.ID)
	}
	return snap
}

// Profile returns a copy of the current profile, or nil before onboarding.
func (s *Session) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.unlock()
	return s.profile.Clone()
}
