// Package session implements the nerdout engine: per-user, timer-driven
// sessions that poll the listener's current track, regenerate commentary on
// track changes, and drip the buffered fragments into the origin channel on a
// humanlike cadence. One session per user, bounded lifetime, daily budget on
// the web-search generation path.
package session

import (
	"context"
	"sync"
	"time"
)

// Track is the ephemeral now-playing snapshot used for change detection and
// prompt construction. Never persisted.
type Track struct {
	ID     string
	Title  string
	Artist string
}

// TrackPoller reports what the user is listening to right now. Implementations
// fail soft: provider errors surface as (nil, nil) or (nil, err), both of
// which the clock treats as "nothing playing".
type TrackPoller interface {
	CurrentTrack(ctx context.Context, userID string) (*Track, error)
}

// FragmentGenerator produces the ordered commentary fragments for a track.
// Must never return an empty slice.
type FragmentGenerator interface {
	Generate(ctx context.Context, artist, track string, expensive bool) []string
}

// Messenger delivers text to a channel, best effort.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, text string) error
}

// Session is the per-user state machine. All mutable fields are guarded by mu;
// mutation happens from the session's own clock goroutine and from the
// manager's start/stop entry points.
type Session struct {
	Owner      string
	Channel    string
	SimpleMode bool

	mu             sync.Mutex
	currentTrackID string
	fragments      []string
	cursor         int
	lastEmission   time.Time
	callsUsedToday int
	budgetDay      string
	capNotified    bool

	cancel context.CancelFunc
}

// CallsUsedToday reports the expensive-path calls consumed in the current
// budget day.
func (s *Session) CallsUsedToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callsUsedToday
}

// CurrentTrackID returns the id of the most recently observed track.
func (s *Session) CurrentTrackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTrackID
}

// PendingFragments reports how many buffered fragments remain unsent.
func (s *Session) PendingFragments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fragments) - s.cursor
}
