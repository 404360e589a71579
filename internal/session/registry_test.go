package session

import (
	"context"
	"testing"
	"time"

	"silverlink/internal/assistant"
	"silverlink/internal/directory"
	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(clock clockwork.Clock) *Registry {
	dir := directory.NewStatic(directory.MustFixtures())
	return NewRegistry(func(id string) Options {
		return Options{
			Services:  assistant.LocalServices(DefaultReviewSize),
			Directory: dir,
			Clock:     clock,
		}
	}, clock)
}

func TestRegistry(t *testing.T) {
	r := newTestRegistry(clockwork.NewFakeClockAt(testStart))

	s, err := r.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, r.Count())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get("missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, r.Delete(s.ID()))
	assert.Equal(t, 0, r.Count())
	assert.True(t, models.HasCode(r.Delete(s.ID()), models.CodeNotFound))

	_, err = r.Create(context.Background())
	require.NoError(t, err)
	_, err = r.Create(context.Background())
	require.NoError(t, err)
	r.CloseAll()
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_SweepIdle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	r := newTestRegistry(clock)
	t.Cleanup(r.CloseAll)

	idle, err := r.Create(context.Background())
	require.NoError(t, err)
	active, err := r.Create(context.Background())
	require.NoError(t, err)
	watched, err := r.Create(context.Background())
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	_, err = r.Get(active.ID())
	require.NoError(t, err)
	assert.Empty(t, r.Sweep(30*time.Minute, nil), "nothing idle yet")

	clock.Advance(20 * time.Minute)
	expired := testutil.ToFloat64(observability.SessionsExpired)
	removed := r.Sweep(30*time.Minute, func(id string) bool { return id == watched.ID() })

	assert.Equal(t, []string{idle.ID()}, removed)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, expired+1, testutil.ToFloat64(observability.SessionsExpired))
	_, err = r.Get(idle.ID())
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	// The in-use session was marked active by the sweep; the other one
	// was last looked up 40 minutes ago.
	clock.Advance(20 * time.Minute)
	assert.Equal(t, []string{active.ID()}, r.Sweep(30*time.Minute, nil))
	_, err = r.Get(watched.ID())
	assert.NoError(t, err)
}

func TestRegistry_SweepDisabled(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	r := newTestRegistry(clock)
	t.Cleanup(r.CloseAll)

	_, err := r.Create(context.Background())
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)

	assert.Nil(t, r.Sweep(0, nil))
	assert.Equal(t, 1, r.Count())
}
