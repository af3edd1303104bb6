package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/musicnerd/telemetry"
)

// run is the session's clock goroutine: a recurring poll tick plus a one-shot
// lifetime timer. Returns when the session is stopped, expires, or self-heals.
func (m *Manager) run(ctx context.Context, s *Session) {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	expiry := time.NewTimer(m.opts.Lifetime)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
			m.expire(ctx, s)
			return
		case <-ticker.C:
			var alive bool
			telemetry.TimeFunc(telemetry.TickDuration, func() {
				alive = m.tick(ctx, s)
			})
			if !alive {
				return
			}
		}
	}
}

// tick runs one poll cycle. Returns false when the session should stop
// ticking (nothing playing, or the registry entry is gone). Every error
// inside a tick is logged and swallowed; the session survives transient
// provider failures.
func (m *Manager) tick(ctx context.Context, s *Session) bool {
	track, err := m.poller.CurrentTrack(ctx, s.Owner)
	if err != nil {
		telemetry.Inc(telemetry.PollErrors)
		slog.Warn("track poll failed",
			slog.String("owner", s.Owner),
			slog.Any("error", err),
			slog.String("component", "session"))
		track = nil
	}

	// Self-healing: if playback stopped or the session was concurrently
	// removed, this clock must not outlive the registry entry.
	if track == nil || m.Get(s.Owner) != s {
		if m.Get(s.Owner) == s {
			slog.Info("nothing playing, ending session", slog.String("owner", s.Owner), slog.String("component", "session"))
		} else {
			telemetry.Inc(telemetry.SessionsSelfHealed)
		}
		m.remove(s)
		return false
	}

	s.mu.Lock()
	changed := track.ID != s.currentTrackID
	s.mu.Unlock()

	if changed {
		telemetry.Inc(telemetry.TrackChanges)
		m.handleTrackChange(ctx, s, track, false)
		return true
	}
	m.paceEmission(ctx, s)
	return true
}

// handleTrackChange replaces the fragment buffer for the new track and emits
// the first fragment immediately. Also the place where the daily budget
// lazily rolls over and the expensive/cheap path is chosen.
func (m *Manager) handleTrackChange(ctx context.Context, s *Session, track *Track, initial bool) {
	s.mu.Lock()
	s.currentTrackID = track.ID

	today := dayOf(m.now())
	if s.budgetDay != today {
		s.callsUsedToday = 0
		s.budgetDay = today
		s.capNotified = false
	}

	expensive := !s.SimpleMode && s.callsUsedToday < m.opts.DailyCap
	atCap := !s.SimpleMode && !expensive && !s.capNotified
	if atCap {
		s.capNotified = true
	}
	if expensive {
		// Counted per attempt, before the outcome is known: a failed
		// expensive call still spent the budget.
		s.callsUsedToday++
	}
	s.mu.Unlock()

	if initial {
		m.send(ctx, s, fmt.Sprintf("Now playing %q by %s", track.Title, track.Artist))
	} else {
		m.send(ctx, s, fmt.Sprintf("Oh, %q by %s", track.Title, track.Artist))
	}
	if atCap {
		telemetry.Inc(telemetry.BudgetExhaustions)
		m.send(ctx, s, fmt.Sprintf("You've reached your daily limit of %d web searches. Using simple mode for the rest of today.", m.opts.DailyCap))
	}

	frags := m.generator.Generate(ctx, track.Artist, track.Title, expensive)

	s.mu.Lock()
	s.fragments = frags
	s.cursor = 0
	s.lastEmission = m.now()
	var first string
	if len(frags) > 0 {
		first = frags[0]
		s.cursor = 1
	}
	s.mu.Unlock()

	if first != "" {
		m.send(ctx, s, first)
		telemetry.Inc(telemetry.FragmentsEmitted)
	}
}

// paceEmission emits the next buffered fragment once the gap since the last
// emission beats a threshold drawn uniformly from the pacing window.
func (m *Manager) paceEmission(ctx context.Context, s *Session) {
	now := m.now()
	threshold := m.opts.PacingMin + time.Duration(m.randFloat()*float64(m.opts.PacingMax-m.opts.PacingMin))

	s.mu.Lock()
	if s.cursor >= len(s.fragments) || now.Sub(s.lastEmission) <= threshold {
		s.mu.Unlock()
		return
	}
	frag := s.fragments[s.cursor]
	s.cursor++
	s.lastEmission = now
	s.mu.Unlock()

	// Cursor already advanced: a failed send is dropped, never replayed.
	m.send(ctx, s, frag)
	telemetry.Inc(telemetry.FragmentsEmitted)
}

// expire handles the hard lifetime ceiling: tear down and tell the channel,
// best effort.
func (m *Manager) expire(_ context.Context, s *Session) {
	telemetry.Inc(telemetry.SessionsExpired)
	slog.Info("nerdout session hit lifetime ceiling", slog.String("owner", s.Owner), slog.String("component", "session"))
	m.remove(s)
	// remove cancelled the session context, so the notice gets its own.
	sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.send(sendCtx, s, "Your nerdout session has ended after 2 hours. Use /nerdout to start a new one!")
}

// send delivers text to the session's channel, swallowing failures.
func (m *Manager) send(ctx context.Context, s *Session, text string) {
	if err := m.messenger.SendMessage(ctx, s.Channel, text); err != nil {
		telemetry.Inc(telemetry.SendErrors)
		slog.Warn("fragment delivery failed",
			slog.String("owner", s.Owner),
			slog.String("channel", s.Channel),
			slog.Any("error", err),
			slog.String("component", "session"))
	}
}
