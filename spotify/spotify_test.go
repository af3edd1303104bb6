package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
	scope   string
	upserts int
}

func (s *memStore) UpsertToken(ctx context.Context, userID, access, refresh string, expiry time.Time, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh, s.expiry, s.scope = access, refresh, expiry, scope
	s.upserts++
	return nil
}

func (s *memStore) GetToken(ctx context.Context, userID string) (string, string, time.Time, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, s.expiry, s.scope, nil
}

func newTestClient(store *memStore, apiHandler http.Handler) (*Client, func()) {
	api := httptest.NewServer(apiHandler)
	c := New("cid", "secret", "http://localhost/callback", "user-read-currently-playing", store)
	c.APIBase = api.URL
	return c, api.Close
}

func validStore() *memStore {
	return &memStore{access: "tok", refresh: "ref", expiry: time.Now().Add(time.Hour)}
}

func TestCurrentTrack(t *testing.T) {
	store := validStore()
	c, done := newTestClient(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player/currently-playing" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"is_playing": true,
			"item": map[string]any{
				"id":            "abc123",
				"name":          "Aloha",
				"artists":       []map[string]any{{"name": "X"}, {"name": "Y"}},
				"external_urls": map[string]any{"spotify": "https://open.spotify.com/track/abc123"},
			},
		})
	}))
	defer done()

	np, err := c.CurrentTrack(context.Background(), "user")
	if err != nil {
		t.Fatal(err)
	}
	if np == nil {
		t.Fatal("got nil, want track")
	}
	if np.TrackID != "abc123" || np.Title != "Aloha" || np.Artist != "X" {
		t.Errorf("got %+v", np)
	}
}

func TestCurrentTrackNothingPlaying(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"204 no content", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}},
		{"paused", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"is_playing": false,
				"item":       map[string]any{"id": "abc", "name": "T"},
			})
		}},
		{"no item", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"is_playing": true})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, done := newTestClient(validStore(), tt.handler)
			defer done()
			np, err := c.CurrentTrack(context.Background(), "user")
			if err != nil {
				t.Fatal(err)
			}
			if np != nil {
				t.Errorf("got %+v, want nil", np)
			}
		})
	}
}

func TestCurrentTrackNotLinked(t *testing.T) {
	c, done := newTestClient(&memStore{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API should not be called without tokens")
	}))
	defer done()

	if _, err := c.CurrentTrack(context.Background(), "user"); err != ErrNotLinked {
		t.Errorf("err = %v, want ErrNotLinked", err)
	}
}

func TestExpiredTokenRefreshesAndPersists(t *testing.T) {
	store := &memStore{access: "stale", refresh: "ref", expiry: time.Now().Add(-time.Hour)}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "ref2",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenSrv.Close()

	c, done := newTestClient(store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("Authorization = %q, want refreshed token", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer done()
	c.SetTokenEndpoint(tokenSrv.URL)

	if _, err := c.CurrentTrack(context.Background(), "user"); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.access != "fresh" || store.refresh != "ref2" {
		t.Errorf("store = access %q refresh %q, want refreshed pair persisted", store.access, store.refresh)
	}
}

func TestRecentlyPlayed(t *testing.T) {
	played := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c, done := newTestClient(validStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"track":     map[string]any{"id": "1", "name": "One", "artists": []map[string]any{{"name": "A"}}},
					"played_at": played,
				},
				{
					"track":     map[string]any{"id": "2", "name": "Two", "artists": []map[string]any{{"name": "B"}}},
					"played_at": played.Add(-4 * time.Minute),
				},
			},
		})
	}))
	defer done()

	got, err := c.RecentlyPlayed(context.Background(), "user", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0].Title != "One" || got[0].Artist != "A" || !got[0].PlayedAt.Equal(played) {
		t.Errorf("item[0] = %+v", got[0])
	}
}

func TestTopArtists(t *testing.T) {
	c, done := newTestClient(validStore(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"name": "A", "genres": []string{"cumbia", "folk"}},
				{"name": "B", "genres": []string{}},
			},
		})
	}))
	defer done()

	got, err := c.TopArtists(context.Background(), "user", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "A" || len(got[0].Genres) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestAuthorizeURLContainsParams(t *testing.T) {
	c := New("cid", "secret", "http://localhost/callback", "scope-a scope-b", nil)
	u := c.AuthorizeURL("state123")
	for _, want := range []string{"client_id=cid", "state=state123", "response_type=code"} {
		if !strings.Contains(u, want) {
			t.Errorf("authorize URL %q missing %q", u, want)
		}
	}
}
