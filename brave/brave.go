// Package brave is a small Brave web-search client used for auxiliary artist
// lookups (news, reviews, biography, support links). Responses are cached
// process-wide with per-category TTLs, and calls are spaced at least one
// second apart to stay inside the API's rate limits.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Cache TTLs per lookup category.
const (
	newsTTL      = time.Hour
	reviewsTTL   = 24 * time.Hour
	biographyTTL = 7 * 24 * time.Hour
	supportTTL   = 24 * time.Hour
)

const minCallSpacing = time.Second

// Result is one web search hit.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Date        string `json:"date,omitempty"`
}

type cacheEntry struct {
	results []Result
	expires time.Time
}

// Client queries the Brave search API.
type Client struct {
	APIKey string

	// BaseURL is overridable for tests.
	BaseURL    string
	HTTPClient *http.Client

	mu       sync.Mutex
	cache    map[string]cacheEntry
	lastCall time.Time

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(d time.Duration)
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    "https://api.search.brave.com",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		cache:      make(map[string]cacheEntry),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

func cacheKey(category, query string) string {
	return category + ":" + strings.ToLower(query)
}

// search performs one API call with rate spacing. Fails soft: every error
// yields an empty result set.
func (c *Client) search(ctx context.Context, query string) []Result {
	c.mu.Lock()
	if wait := minCallSpacing - c.now().Sub(c.lastCall); wait > 0 {
		c.sleep(wait)
	}
	c.lastCall = c.now()
	c.mu.Unlock()

	v := url.Values{}
	v.Set("q", query)
	v.Set("count", "5")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/res/v1/web/search?"+v.Encode(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		slog.Warn("brave search failed", slog.Any("error", err), slog.String("component", "brave"))
		return nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		slog.Warn("brave search non-OK response",
			slog.String("status", resp.Status),
			slog.String("body", string(b)),
			slog.String("component", "brave"))
		return nil
	}

	var body struct {
		Web struct {
			Results []Result `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Warn("brave search decode failed", slog.Any("error", err), slog.String("component", "brave"))
		return nil
	}
	return body.Web.Results
}

// cached runs the lookup through the TTL cache.
func (c *Client) cached(ctx context.Context, category, cacheQuery, searchQuery string, ttl time.Duration) []Result {
	key := cacheKey(category, cacheQuery)

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.results
	}
	c.mu.Unlock()

	results := c.search(ctx, searchQuery)

	c.mu.Lock()
	c.cache[key] = cacheEntry{results: results, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return results
}

// GetArtistNews looks up recent news about the artist. Cached for an hour.
func (c *Client) GetArtistNews(ctx context.Context, artist string) []Result {
	return c.cached(ctx, "news", artist, artist+" music news recent", newsTTL)
}

// GetAlbumReviews looks up reviews for an album. Cached for a day.
func (c *Client) GetAlbumReviews(ctx context.Context, album, artist string) []Result {
	return c.cached(ctx, "reviews", artist+" "+album, fmt.Sprintf("%s %s album review", artist, album), reviewsTTL)
}

// GetArtistBiography looks up biographical material. Cached for a week.
func (c *Client) GetArtistBiography(ctx context.Context, artist string) []Result {
	return c.cached(ctx, "biography", artist, artist+" musician biography", biographyTTL)
}

// SearchSupportLinks runs a raw query, used to find Bandcamp/merch/official
// pages for an artist. Cached for a day.
func (c *Client) SearchSupportLinks(ctx context.Context, query string) []Result {
	return c.cached(ctx, "support", query, query, supportTTL)
}
