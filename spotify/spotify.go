// Package spotify implements the OAuth link flow and the small slice of the
// Spotify Web API this bot needs: now-playing polling, recent history, and
// top artists. Tokens live in the TokenStore and are refreshed on demand.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"
)

// ErrNotLinked is returned when the user has no stored token set.
var ErrNotLinked = errors.New("spotify account not linked")

// TokenStore persists per-user OAuth tokens. Implemented by db.TokenStoreAdapter.
type TokenStore interface {
	UpsertToken(ctx context.Context, userID, access, refresh string, expiry time.Time, scope string) error
	GetToken(ctx context.Context, userID string) (access, refresh string, expiry time.Time, scope string, err error)
}

// Client talks to the Spotify Web API on behalf of linked users.
type Client struct {
	oauth *oauth2.Config
	store TokenStore

	// APIBase is overridable for tests against httptest servers.
	APIBase string
	httpc   *http.Client
}

// New builds a client. Scopes are space- or comma-separated.
func New(clientID, clientSecret, redirectURI, scopes string, store TokenStore) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       strings.Fields(strings.ReplaceAll(scopes, ",", " ")),
			Endpoint:     spotifyauth.Endpoint,
		},
		store:   store,
		APIBase: "https://api.spotify.com",
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthorizeURL builds the user consent URL for the authorization code grant.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens and persists them.
func (c *Client) ExchangeCode(ctx context.Context, userID, code string) error {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("spotify code exchange: %w", err)
	}
	scope, _ := tok.Extra("scope").(string)
	if err := c.store.UpsertToken(ctx, userID, tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
		return fmt.Errorf("persist spotify tokens: %w", err)
	}
	return nil
}

// SetTokenEndpoint points the token exchange at a test server.
func (c *Client) SetTokenEndpoint(tokenURL string) {
	c.oauth.Endpoint = oauth2.Endpoint{AuthURL: c.oauth.Endpoint.AuthURL, TokenURL: tokenURL}
}

// accessToken returns a valid access token for the user, refreshing and
// re-persisting when the stored one is expired.
func (c *Client) accessToken(ctx context.Context, userID string) (string, error) {
	access, refresh, expiry, scope, err := c.store.GetToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load spotify tokens: %w", err)
	}
	if access == "" && refresh == "" {
		return "", ErrNotLinked
	}
	if access != "" && time.Until(expiry) > time.Minute {
		return access, nil
	}
	if refresh == "" {
		return "", ErrNotLinked
	}

	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return "", fmt.Errorf("spotify token refresh: %w", err)
	}
	newRefresh := tok.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}
	if err := c.store.UpsertToken(ctx, userID, tok.AccessToken, newRefresh, tok.Expiry, scope); err != nil {
		slog.Warn("failed to persist refreshed spotify token",
			slog.String("user", userID),
			slog.Any("error", err),
			slog.String("component", "spotify"))
	}
	return tok.AccessToken, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
// A 204 yields errNoContent so callers can distinguish "nothing playing".
var errNoContent = errors.New("no content")

func (c *Client) get(ctx context.Context, userID, path string, out any) error {
	token, err := c.accessToken(ctx, userID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNoContent {
		return errNoContent
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("spotify GET %s failed: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// NowPlaying is the currently playing snapshot.
type NowPlaying struct {
	TrackID string
	Title   string
	Artist  string
	URL     string
	Playing bool
}

type trackItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

func (t *trackItem) primaryArtist() string {
	if len(t.Artists) > 0 {
		return t.Artists[0].Name
	}
	return ""
}

// CurrentTrack returns what the user is listening to, or nil when playback is
// stopped, paused, or the player endpoint has nothing to report.
func (c *Client) CurrentTrack(ctx context.Context, userID string) (*NowPlaying, error) {
	var body struct {
		IsPlaying bool       `json:"is_playing"`
		Item      *trackItem `json:"item"`
	}
	err := c.get(ctx, userID, "/v1/me/player/currently-playing", &body)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if body.Item == nil || !body.IsPlaying {
		return nil, nil
	}
	return &NowPlaying{
		TrackID: body.Item.ID,
		Title:   body.Item.Name,
		Artist:  body.Item.primaryArtist(),
		URL:     body.Item.ExternalURLs.Spotify,
		Playing: true,
	}, nil
}

// PlayedTrack is one entry of the listening history.
type PlayedTrack struct {
	Title    string
	Artist   string
	PlayedAt time.Time
}

// RecentlyPlayed returns up to limit recently played tracks, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, userID string, limit int) ([]PlayedTrack, error) {
	if limit <= 0 {
		limit = 5
	}
	var body struct {
		Items []struct {
			Track    trackItem `json:"track"`
			PlayedAt time.Time `json:"played_at"`
		} `json:"items"`
	}
	if err := c.get(ctx, userID, fmt.Sprintf("/v1/me/player/recently-played?limit=%d", limit), &body); err != nil {
		return nil, err
	}
	out := make([]PlayedTrack, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, PlayedTrack{
			Title:    it.Track.Name,
			Artist:   it.Track.primaryArtist(),
			PlayedAt: it.PlayedAt,
		})
	}
	return out, nil
}

// TopArtist is one entry of the user's long-term favorites.
type TopArtist struct {
	Name   string
	Genres []string
}

// TopArtists returns the user's top artists.
func (c *Client) TopArtists(ctx context.Context, userID string, limit int) ([]TopArtist, error) {
	if limit <= 0 {
		limit = 5
	}
	var body struct {
		Items []struct {
			Name   string   `json:"name"`
			Genres []string `json:"genres"`
		} `json:"items"`
	}
	if err := c.get(ctx, userID, fmt.Sprintf("/v1/me/top/artists?limit=%d", limit), &body); err != nil {
		return nil, err
	}
	out := make([]TopArtist, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, TopArtist{Name: it.Name, Genres: it.Genres})
	}
	return out, nil
}
