package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/onnwee/musicnerd/db"
)

// HandleSpotifyOAuthStart initiates the Spotify OAuth flow for a Discord user
// by redirecting to the Spotify consent page. The user id arrives as a query
// parameter because the link is built by the /link command.
func (h *Handlers) HandleSpotifyOAuthStart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	st := uuid.New().String()
	h.addOAuthState(st, userID, h.now().Add(10*time.Minute))
	http.Redirect(w, r, h.spotify.AuthorizeURL(st), http.StatusFound)
}

// HandleSpotifyOAuthCallback completes the link flow: validates state, swaps
// the code for tokens, marks the profile linked, and drops a confirmation in
// the channel the user linked from.
func (h *Handlers) HandleSpotifyOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		writeLinkPage(w, http.StatusBadRequest, "Spotify link cancelled", "You declined the Spotify authorization. You can run /link again anytime.")
		return
	}
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	userID, ok := h.takeOAuthState(st)
	if !ok {
		writeLinkPage(w, http.StatusBadRequest, "Link expired", "That link is no longer valid. Run /link in Discord to get a fresh one.")
		return
	}

	ctx := r.Context()
	if err := h.spotify.ExchangeCode(ctx, userID, code); err != nil {
		slog.Error("spotify code exchange failed", slog.String("user", userID), slog.Any("error", err), slog.String("component", "http"))
		writeLinkPage(w, http.StatusInternalServerError, "Something went wrong", "Spotify didn't accept the authorization. Run /link in Discord to try again.")
		return
	}
	if err := dbpkg.UpsertProfile(ctx, h.db, userID, ""); err != nil {
		slog.Warn("failed to mark profile linked", slog.String("user", userID), slog.Any("error", err), slog.String("component", "http"))
	}

	// Best-effort confirmation back in Discord.
	if ch, err := dbpkg.GetLastChannel(ctx, h.db, userID); err == nil && ch != "" {
		if err := h.messenger.SendMessage(ctx, ch, "Your Spotify account is now connected! Try `/track` or `/nerdout`."); err != nil {
			slog.Warn("link confirmation send failed", slog.String("channel", ch), slog.Any("error", err), slog.String("component", "http"))
		}
	}

	writeLinkPage(w, http.StatusOK, "Spotify connected", "You're all set. Head back to Discord and try /track or /nerdout.")
}

func writeLinkPage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!doctype html><html><head><title>%s</title></head><body style="font-family:sans-serif;max-width:32rem;margin:4rem auto"><h1>%s</h1><p>%s</p></body></html>`, title, title, body)
}
