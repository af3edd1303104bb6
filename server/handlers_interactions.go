package server

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/onnwee/musicnerd/discordapi"
	"github.com/onnwee/musicnerd/telemetry"
)

const maxInteractionBody = 1 << 20

// HandleInteractions serves the Discord interactions webhook. Every request is
// verified against the application's Ed25519 key before parsing; Discord also
// probes the endpoint with signed PING interactions which must be answered
// with a PONG.
func (h *Handlers) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInteractionBody))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r, body) {
		slog.Warn("interaction signature rejected", slog.String("remote_addr", r.RemoteAddr), slog.String("component", "http"))
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var in discordapi.Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "malformed interaction", http.StatusBadRequest)
		return
	}

	var resp discordapi.InteractionResponse
	switch in.Type {
	case discordapi.InteractionPing:
		resp = discordapi.Pong()
	case discordapi.InteractionApplicationCommand:
		resp = h.bot.Handle(r.Context(), &in)
	default:
		resp = discordapi.Reply("Unsupported interaction.", true)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("failed to encode interaction response", slog.Any("err", err), slog.String("component", "http"))
	}
}

// verifySignature checks X-Signature-Ed25519 over timestamp+body per the
// Discord interactions security requirements.
func (h *Handlers) verifySignature(r *http.Request, body []byte) bool {
	sigHex := r.Header.Get("X-Signature-Ed25519")
	timestamp := r.Header.Get("X-Signature-Timestamp")
	if sigHex == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(h.publicKey, msg, sig)
}
