package server

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/onnwee/musicnerd/discordapi"
	"github.com/onnwee/musicnerd/session"
)

// SpotifyLinker is the slice of the Spotify client the OAuth flow uses.
type SpotifyLinker interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, userID, code string) error
}

// InteractionHandler dispatches a parsed slash command.
type InteractionHandler interface {
	Handle(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse
}

// ActiveCounter reports the number of live nerdout sessions for /status.
type ActiveCounter interface {
	Active() int
}

// Handlers contains HTTP handler dependencies.
type Handlers struct {
	db        *sql.DB
	spotify   SpotifyLinker
	bot       InteractionHandler
	messenger session.Messenger
	sessions  ActiveCounter
	publicKey ed25519.PublicKey

	stateMu sync.Mutex
	// states maps an OAuth state nonce to the Discord user it was issued for.
	states map[string]oauthState

	now func() time.Time
}

type oauthState struct {
	userID  string
	expires time.Time
}

// NewHandlers creates the handler set. discordPublicKey is the hex-encoded
// Ed25519 verification key from the Discord application settings.
func NewHandlers(db *sql.DB, sp SpotifyLinker, bot InteractionHandler, messenger session.Messenger, sessions ActiveCounter, discordPublicKey string) (*Handlers, error) {
	raw, err := hex.DecodeString(discordPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode discord public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord public key: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return &Handlers{
		db:        db,
		spotify:   sp,
		bot:       bot,
		messenger: messenger,
		sessions:  sessions,
		publicKey: ed25519.PublicKey(raw),
		states:    make(map[string]oauthState),
		now:       time.Now,
	}, nil
}

func (h *Handlers) addOAuthState(state, userID string, expires time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	h.states[state] = oauthState{userID: userID, expires: expires}
}

// takeOAuthState consumes a state nonce, returning the user it was issued for.
func (h *Handlers) takeOAuthState(state string) (string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	st, ok := h.states[state]
	if !ok {
		return "", false
	}
	delete(h.states, state)
	if h.now().After(st.expires) {
		return "", false
	}
	return st.userID, true
}
