package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/onnwee/musicnerd/telemetry"
)

// ErrAlreadyActive is returned when a user who already owns a live session
// tries to start another one. The existing session is left untouched.
var ErrAlreadyActive = errors.New("nerdout session already active")

// ErrNothingPlaying is returned when the initial poll finds no current track,
// so no session is created.
var ErrNothingPlaying = errors.New("nothing playing")

// Options tune the engine. Zero values fall back to the reference behavior.
type Options struct {
	PollInterval time.Duration // tick period, default 5s
	Lifetime     time.Duration // hard session ceiling, default 2h
	PacingMin    time.Duration // lower bound of the emission gap, default 20s
	PacingMax    time.Duration // upper bound of the emission gap, default 40s
	DailyCap     int           // expensive-path calls per user per day, default 10
}

func (o *Options) fillDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.Lifetime <= 0 {
		o.Lifetime = 2 * time.Hour
	}
	if o.PacingMin <= 0 {
		o.PacingMin = 20 * time.Second
	}
	if o.PacingMax <= 0 {
		o.PacingMax = 40 * time.Second
	}
	if o.DailyCap <= 0 {
		o.DailyCap = 10
	}
}

// Manager owns the registry of live sessions and the collaborators every
// session shares. One Manager per process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	poller    TrackPoller
	generator FragmentGenerator
	messenger Messenger
	opts      Options

	// now and randFloat are swapped out in tests for deterministic clocks
	// and pacing draws.
	now       func() time.Time
	randFloat func() float64
}

// NewManager wires a session manager. Collaborators must be non-nil.
func NewManager(poller TrackPoller, generator FragmentGenerator, messenger Messenger, opts Options) *Manager {
	opts.fillDefaults()
	return &Manager{
		sessions:  make(map[string]*Session),
		poller:    poller,
		generator: generator,
		messenger: messenger,
		opts:      opts,
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// Start creates and registers a session for owner, announcing and generating
// commentary for the currently playing track before the clock begins ticking.
// Fails with ErrAlreadyActive if the owner already has one, and with
// ErrNothingPlaying when the initial poll comes back empty.
func (m *Manager) Start(ctx context.Context, owner, channel string, simple bool) (*Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[owner]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	m.mu.Unlock()

	track, err := m.poller.CurrentTrack(ctx, owner)
	if err != nil {
		slog.Warn("initial track poll failed",
			slog.String("owner", owner),
			slog.Any("error", err),
			slog.String("component", "session"))
		track = nil
	}
	if track == nil {
		return nil, ErrNothingPlaying
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Owner:      owner,
		Channel:    channel,
		SimpleMode: simple,
		budgetDay:  dayOf(m.now()),
		cancel:     cancel,
	}

	m.mu.Lock()
	if _, ok := m.sessions[owner]; ok {
		// Lost the race to a concurrent start.
		m.mu.Unlock()
		cancel()
		return nil, ErrAlreadyActive
	}
	m.sessions[owner] = s
	size := len(m.sessions)
	m.mu.Unlock()

	telemetry.Inc(telemetry.SessionsStarted)
	telemetry.SetActiveSessions(size)
	slog.Info("nerdout session started",
		slog.String("owner", owner),
		slog.String("channel", channel),
		slog.Bool("simple", simple),
		slog.String("component", "session"))

	m.handleTrackChange(ctx, s, track, true)

	go m.run(runCtx, s)
	return s, nil
}

// Stop cancels and removes the owner's session. Reports whether one existed.
func (m *Manager) Stop(owner string) bool {
	m.mu.Lock()
	s, ok := m.sessions[owner]
	if ok {
		delete(m.sessions, owner)
	}
	size := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	telemetry.Inc(telemetry.SessionsStopped)
	telemetry.SetActiveSessions(size)
	slog.Info("nerdout session stopped", slog.String("owner", owner), slog.String("component", "session"))
	return true
}

// Get returns the owner's live session, or nil.
func (m *Manager) Get(owner string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[owner]
}

// Active reports the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// TeardownAll cancels every live session. Called at process shutdown so no
// clock goroutine outlives the process's graceful-stop window.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
	telemetry.SetActiveSessions(0)
	if len(sessions) > 0 {
		slog.Info("tore down all nerdout sessions", slog.Int("count", len(sessions)), slog.String("component", "session"))
	}
}

// remove deletes the session from the registry if it is still the registered
// one, cancelling its clock. Used by the self-healing and expiry paths.
func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.Owner]; ok && cur == s {
		delete(m.sessions, s.Owner)
	}
	size := len(m.sessions)
	m.mu.Unlock()
	s.cancel()
	telemetry.SetActiveSessions(size)
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartNotice builds the acknowledgement text for a session start.
func (m *Manager) StartNotice(simple bool) string {
	if simple {
		return "Starting your session in **simple mode** (no web search). I'll share knowledge-based facts about your music as tracks change."
	}
	return fmt.Sprintf("Starting your session with **web search enabled**. You have %d searches available today. I'll share current facts about your music as tracks change.", m.opts.DailyCap)
}
