package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/store"
	"github.com/roach88/jeamlit/internal/widget"
)

// Journal records handled events. *store.Store implements it.
type Journal interface {
	WriteEvent(ctx context.Context, ev store.Event) (int64, error)
}

// Update is the outcome of rerunning one session in RerunAll.
type Update struct {
	SessionID string
	Result    engine.Result
	Err       error
}

// Manager owns every live session and serializes the work done on each.
//
// Each session has a request queue drained by one worker goroutine, so a
// run always reaches DONE (or FAILED) before the next request for that
// session is applied. Workers of different sessions run in parallel.
type Manager struct {
	engine      *engine.Engine
	ids         IDGenerator
	journal     Journal
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*handle
	closed   bool
	wg       sync.WaitGroup
}

// handle is a live session and its worker state.
type handle struct {
	sess       *engine.Session
	queue      *requestQueue
	lastActive atomic.Int64 // unix nanos
	busy       atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithJournal records every handled event. A nil journal disables
// journaling.
func WithJournal(j Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithMaxSessions bounds the number of live sessions. Zero means no limit.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithIdleTimeout sets how long a session may go without a request before
// Sweep evicts it. Zero disables eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithIDGenerator sets the generator for ids of sessions created without
// one.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// WithNow sets the wall clock used for idle tracking.
//
// Default: time.Now
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager running scripts through eng.
func NewManager(eng *engine.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:   eng,
		ids:      UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the session with the given id, creating it when it
// does not exist. An empty id creates a session with a generated id.
//
// A session's first request runs the initial load. For an existing,
// loaded session the result carries its current output without a run.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (string, engine.Result, error) {
	h, id, err := m.getOrCreate(id)
	if err != nil {
		return id, engine.Result{}, err
	}
	res, err := m.submit(ctx, h, request{kind: requestAttach})
	return id, res, err
}

func (m *Manager) getOrCreate(id string) (*handle, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, id, ErrManagerClosed
	}
	if id != "" {
		if h, ok := m.sessions[id]; ok {
			return h, id, nil
		}
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, id, ErrTooManySessions
	}
	if id == "" {
		id = m.ids.Generate()
		if _, taken := m.sessions[id]; taken {
			return nil, id, fmt.Errorf("generated session id %q already in use", id)
		}
	}

	h := &handle{
		sess:  engine.NewSession(id),
		queue: newRequestQueue(),
	}
	h.touch(m.now())
	m.sessions[id] = h

	m.wg.Add(1)
	go m.work(h)

	m.logger.Info("session created", "session_id", id, "sessions", len(m.sessions))
	return h, id, nil
}

// HandleEvent applies a widget edit to a session and returns the
// resulting output. Requests for the same session are applied strictly in
// arrival order.
func (m *Manager) HandleEvent(ctx context.Context, id, widgetID string, value any) (engine.Result, error) {
	h, err := m.lookup(id)
	if err != nil {
		return engine.Result{}, err
	}
	return m.submit(ctx, h, request{kind: requestEvent, widgetID: widgetID, value: value})
}

// Rerun runs a session's script without a trigger.
func (m *Manager) Rerun(ctx context.Context, id string) (engine.Result, error) {
	h, err := m.lookup(id)
	if err != nil {
		return engine.Result{}, err
	}
	return m.submit(ctx, h, request{kind: requestRerun})
}

// RerunAll reruns every live session, as after a script reload. Sessions
// rerun in parallel; updates are ordered by session id.
func (m *Manager) RerunAll(ctx context.Context) []Update {
	m.mu.RLock()
	pending := make(map[string]chan reply, len(m.sessions))
	for id, h := range m.sessions {
		ch := make(chan reply, 1)
		if h.queue.Enqueue(request{ctx: ctx, kind: requestRerun, reply: ch}) {
			pending[id] = ch
		}
	}
	m.mu.RUnlock()

	updates := make([]Update, 0, len(pending))
	for id, ch := range pending {
		u := Update{SessionID: id}
		select {
		case rep := <-ch:
			u.Result, u.Err = rep.result, rep.err
		case <-ctx.Done():
			u.Err = ctx.Err()
		}
		updates = append(updates, u)
	}
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].SessionID < updates[j].SessionID
	})
	return updates
}

// Inspect calls fn with the session's engine state from the session's
// worker, between runs. fn must not retain the session.
func (m *Manager) Inspect(ctx context.Context, id string, fn func(*engine.Session)) error {
	h, err := m.lookup(id)
	if err != nil {
		return err
	}
	_, err = m.submit(ctx, h, request{kind: requestInspect, inspect: fn})
	return err
}

// Close ends a session. Requests already queued are still processed.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	h, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	h.queue.Close()
	m.logger.Info("session closed", "session_id", id)
	return nil
}

// Sweep closes sessions idle since before now minus the idle timeout and
// returns their ids in order. A session with a request queued or in
// flight is never idle.
func (m *Manager) Sweep(now time.Time) []string {
	if m.idleTimeout <= 0 {
		return nil
	}
	cutoff := now.Add(-m.idleTimeout).UnixNano()

	m.mu.Lock()
	var evicted []string
	for id, h := range m.sessions {
		if h.busy.Load() || h.queue.Len() > 0 {
			continue
		}
		if h.lastActive.Load() < cutoff {
			delete(m.sessions, id)
			h.queue.Close()
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	sort.Strings(evicted)
	for _, id := range evicted {
		m.logger.Info("session evicted", "session_id", id, "idle_timeout", m.idleTimeout)
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Shutdown closes every session and waits for their workers to drain.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, h := range m.sessions {
		h.queue.Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("session manager stopped")
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the ids of live sessions in order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) lookup(id string) (*handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	h, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return h, nil
}

// submit enqueues req and waits for its reply or ctx.
func (m *Manager) submit(ctx context.Context, h *handle, req request) (engine.Result, error) {
	req.ctx = ctx
	req.reply = make(chan reply, 1)
	if !h.queue.Enqueue(req) {
		return engine.Result{}, ErrSessionClosed
	}
	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-ctx.Done():
		return engine.Result{}, ctx.Err()
	}
}

// work drains h's queue until it is closed and empty.
func (m *Manager) work(h *handle) {
	defer m.wg.Done()
	for {
		for {
			// busy is raised before the dequeue so Sweep never sees an
			// empty queue without it.
			h.busy.Store(true)
			req, ok := h.queue.TryDequeue()
			if !ok {
				h.busy.Store(false)
				break
			}
			rep := m.process(h, req)
			h.touch(m.now())
			h.busy.Store(false)
			req.reply <- rep
		}
		if h.queue.Drained() {
			return
		}
		<-h.queue.Wait()
	}
}

func (m *Manager) process(h *handle, req request) reply {
	if err := req.ctx.Err(); err != nil {
		m.logger.Debug("request skipped",
			"session_id", h.sess.ID,
			"request", req.kind.String(),
			"error", err,
		)
		return reply{err: err}
	}
	h.touch(m.now())

	sess := h.sess
	switch req.kind {
	case requestAttach:
		if sess.Loaded() {
			return reply{result: engine.Result{Seq: sess.Clock.Current(), Output: sess.Output()}}
		}
		res, err := m.engine.Load(req.ctx, sess)
		m.record(req.ctx, sess, store.EventLoad, "", nil, res, err)
		return reply{result: res, err: err}

	case requestRerun:
		res, err := m.engine.Load(req.ctx, sess)
		m.record(req.ctx, sess, store.EventLoad, "", nil, res, err)
		return reply{result: res, err: err}

	case requestEvent:
		res, err := m.engine.HandleEvent(req.ctx, sess, req.widgetID, req.value)
		kind := store.EventImmediate
		if err == nil && res.Classification == widget.FormBuffered {
			kind = store.EventBuffered
		}
		m.record(req.ctx, sess, kind, req.widgetID, req.value, res, err)
		return reply{result: res, err: err}

	case requestInspect:
		req.inspect(sess)
		return reply{result: engine.Result{Seq: sess.Clock.Current(), Output: sess.Output()}}

	default:
		return reply{err: fmt.Errorf("unknown request kind %d", req.kind)}
	}
}

// record journals one handled event. Journal failures are logged and never
// fail the request.
func (m *Manager) record(ctx context.Context, sess *engine.Session, kind store.EventKind, widgetID string, raw any, res engine.Result, runErr error) {
	if m.journal == nil {
		return
	}
	log := m.logger.With("session_id", sess.ID, "seq", res.Seq)

	ev := store.Event{
		SessionID: sess.ID,
		Seq:       res.Seq,
		Kind:      kind,
		WidgetID:  widgetID,
		Status:    store.StatusOK,
	}
	if kind != store.EventLoad {
		v, err := ir.FromAny(raw)
		if err != nil {
			log.Warn("event not journaled", "widget_id", widgetID, "error", err)
			return
		}
		ev.Value = v
	}
	if runErr != nil {
		ev.Status = store.StatusFailed
		ev.ErrorCode = string(engine.CodeOf(runErr))
	}
	digest, err := res.Output.Digest()
	if err != nil {
		log.Warn("output digest failed", "error", err)
	}
	ev.OutputDigest = digest

	if _, err := m.journal.WriteEvent(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("journal write failed", "error", err)
	}
}

func (h *handle) touch(t time.Time) {
	h.lastActive.Store(t.UnixNano())
}
