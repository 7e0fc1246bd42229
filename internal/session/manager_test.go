package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/store"
	"github.com/roach88/jeamlit/internal/testutil"
	"github.com/roach88/jeamlit/internal/widget"
)

// counterScript counts button clicks and buffers one form field.
func counterScript(r *engine.Run) error {
	r.State().SetDefault("clicks", 0)
	if r.Button("Click me!", engine.Key("click")) {
		r.State().Set("clicks", r.State().Number("clicks")+1)
	}
	r.Textf("clicks = %v", r.State().Number("clicks"))

	f := r.Form("f", false)
	f.NumberInput("Value", engine.Key("val"))
	f.SubmitButton("Save", engine.Key("save"))
	return nil
}

type memJournal struct {
	mu     sync.Mutex
	events []store.Event
}

func (j *memJournal) WriteEvent(_ context.Context, ev store.Event) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return int64(len(j.events)), nil
}

func (j *memJournal) snapshot() []store.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]store.Event(nil), j.events...)
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithIDGenerator(testutil.NewSequentialIDs("s"))}, opts...)
	m := NewManager(engine.New(counterScript), opts...)
	t.Cleanup(m.Shutdown)
	return m
}

func TestManager_GetOrCreateRunsInitialLoad(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	id, res, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)
	assert.Equal(t, int64(1), res.Seq)
	assert.True(t, res.Output.Contains("clicks = 0"))

	again, res2, err := m.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, int64(1), res2.Seq, "attaching to a loaded session does not rerun")
	assert.True(t, res.Output.Equal(res2.Output))
	assert.Equal(t, 1, m.Len())
}

func TestManager_GetOrCreateWithExplicitID(t *testing.T) {
	m := newTestManager(t)

	id, _, err := m.GetOrCreate(context.Background(), "browser-tab")
	require.NoError(t, err)
	assert.Equal(t, "browser-tab", id)
	assert.Equal(t, []string{"browser-tab"}, m.IDs())
}

func TestManager_HandleEvent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)

	res, err := m.HandleEvent(ctx, id, "click", true)
	require.NoError(t, err)
	assert.True(t, res.Rerun)
	assert.True(t, res.Output.Contains("clicks = 1"))

	res, err = m.HandleEvent(ctx, id, "val", 4)
	require.NoError(t, err)
	assert.False(t, res.Rerun)
	assert.Equal(t, widget.FormBuffered, res.Classification)

	err = m.Inspect(ctx, id, func(s *engine.Session) {
		assert.Equal(t, 1, s.Buffer.Len())
		v, ok := s.Store.Lookup("clicks")
		assert.True(t, ok)
		assert.Equal(t, ir.Number(1), v)
	})
	require.NoError(t, err)
}

func TestManager_UnknownSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.HandleEvent(ctx, "nope", "click", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Rerun(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close("nope"), ErrSessionNotFound)
}

func TestManager_RunErrorKeepsSessionUsable(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)

	_, err = m.HandleEvent(ctx, id, "missing", 1)
	require.Error(t, err)
	assert.Equal(t, engine.ErrCodeUnknownWidget, engine.CodeOf(err))

	res, err := m.HandleEvent(ctx, id, "click", true)
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("clicks = 1"))
}

func TestManager_EventsForOneSessionAreSerialized(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const clicks = 50
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.HandleEvent(ctx, id, "click", true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	res, err := m.Rerun(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Output.Contains(fmt.Sprintf("clicks = %d", clicks)))
	assert.Equal(t, int64(clicks+2), res.Seq, "every event ran exactly once")
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	a, _, err := m.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	b, _, err := m.GetOrCreate(ctx, "b")
	require.NoError(t, err)

	_, err = m.HandleEvent(ctx, a, "click", true)
	require.NoError(t, err)

	res, err := m.Rerun(ctx, b)
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("clicks = 0"))
}

func TestManager_MaxSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithMaxSessions(1))

	_, _, err := m.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	_, _, err = m.GetOrCreate(ctx, "b")
	assert.ErrorIs(t, err, ErrTooManySessions)

	_, _, err = m.GetOrCreate(ctx, "a")
	assert.NoError(t, err, "existing sessions are still reachable")

	require.NoError(t, m.Close("a"))
	_, _, err = m.GetOrCreate(ctx, "b")
	assert.NoError(t, err)
}

func TestManager_SweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewManualClock(time.Time{})
	m := newTestManager(t, WithIdleTimeout(time.Minute), WithNow(clock.Now))

	_, _, err := m.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	_, _, err = m.GetOrCreate(ctx, "new")
	require.NoError(t, err)

	assert.Empty(t, m.Sweep(clock.Now()))

	assert.Equal(t, []string{"old"}, m.Sweep(clock.Advance(16*time.Second)))
	assert.Equal(t, []string{"new"}, m.IDs())

	_, err = m.Rerun(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SweepSkipsSessionWithRunInFlight(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewManualClock(time.Time{})
	started := make(chan struct{})
	release := make(chan struct{})
	eng := engine.New(func(r *engine.Run) error {
		if r.Button("Wait", engine.Key("wait")) {
			close(started)
			<-release
		}
		r.Text("ready")
		return nil
	})
	m := NewManager(eng, WithIdleTimeout(time.Minute), WithNow(clock.Now))
	t.Cleanup(m.Shutdown)

	id, _, err := m.GetOrCreate(ctx, "slow")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := m.HandleEvent(ctx, id, "wait", true)
		done <- err
	}()
	<-started

	assert.Empty(t, m.Sweep(clock.Now().Add(time.Hour)), "a running session is not idle")
	assert.Equal(t, []string{"slow"}, m.IDs())

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"slow"}, m.Sweep(clock.Now().Add(time.Hour)))
}

func TestManager_CacheIsSharedAcrossSessions(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(func(r *engine.Run) error {
		r.Cache().SetDefault("counter", 0)
		r.Textf("Total app visits: %v", r.Cache().Add("counter", 1))
		return nil
	})
	m := NewManager(eng, WithIDGenerator(testutil.NewSequentialIDs("s")))
	t.Cleanup(m.Shutdown)

	_, res, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("Total app visits: 1"))

	_, res, err = m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("Total app visits: 2"))

	res, err = m.Rerun(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("Total app visits: 3"))

	v, err := eng.Cache().Get("counter")
	require.NoError(t, err)
	assert.Equal(t, ir.Number(3), v)
}

func TestManager_SweepDisabledWithoutTimeout(t *testing.T) {
	m := newTestManager(t)
	_, _, err := m.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)

	assert.Nil(t, m.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestManager_RerunAll(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(counterScript)
	m := NewManager(eng, WithIDGenerator(testutil.NewSequentialIDs("s")))
	t.Cleanup(m.Shutdown)

	for _, id := range []string{"b", "a"} {
		_, _, err := m.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	eng.SetScript(func(r *engine.Run) error {
		r.Title("reloaded")
		return nil
	})

	updates := m.RerunAll(ctx)
	require.Len(t, updates, 2)
	assert.Equal(t, "a", updates[0].SessionID)
	assert.Equal(t, "b", updates[1].SessionID)
	for _, u := range updates {
		require.NoError(t, u.Err)
		assert.Equal(t, []string{"reloaded"}, u.Result.Output.Texts())
	}
}

func TestManager_CancelledRequestIsSkipped(t *testing.T) {
	m := newTestManager(t)
	id, _, err := m.GetOrCreate(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.HandleEvent(ctx, id, "click", true)
	assert.ErrorIs(t, err, context.Canceled)

	res, err := m.Rerun(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Output.Contains("clicks = 0"))
}

func TestManager_Shutdown(t *testing.T) {
	ctx := context.Background()
	m := NewManager(engine.New(counterScript))
	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 0, m.Len())
	_, _, err = m.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, ErrManagerClosed)
	_, err = m.Rerun(ctx, id)
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestManager_JournalsEveryEvent(t *testing.T) {
	ctx := context.Background()
	j := &memJournal{}
	m := newTestManager(t, WithJournal(j))

	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = m.HandleEvent(ctx, id, "val", 3)
	require.NoError(t, err)
	res, err := m.HandleEvent(ctx, id, "click", true)
	require.NoError(t, err)
	_, err = m.HandleEvent(ctx, id, "missing", 1)
	require.Error(t, err)
	_, _, err = m.GetOrCreate(ctx, id)
	require.NoError(t, err)

	events := j.snapshot()
	require.Len(t, events, 4, "attaching to a loaded session is not journaled")

	assert.Equal(t, store.EventLoad, events[0].Kind)
	assert.Nil(t, events[0].Value)

	assert.Equal(t, store.EventBuffered, events[1].Kind)
	assert.Equal(t, "val", events[1].WidgetID)
	assert.Equal(t, ir.Number(3), events[1].Value)

	assert.Equal(t, store.EventImmediate, events[2].Kind)
	assert.Equal(t, store.StatusOK, events[2].Status)
	digest, err := res.Output.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, events[2].OutputDigest)

	assert.Equal(t, store.StatusFailed, events[3].Status)
	assert.Equal(t, string(engine.ErrCodeUnknownWidget), events[3].ErrorCode)
	assert.Equal(t, digest, events[3].OutputDigest, "a failed event keeps the previous output")

	for _, ev := range events {
		assert.Equal(t, id, ev.SessionID)
	}
}

func TestManager_JournalToSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := newTestManager(t, WithJournal(db))
	id, _, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = m.HandleEvent(ctx, id, "click", true)
	require.NoError(t, err)

	events, err := db.ReadEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, ir.Bool(true), events[1].Value)
}
