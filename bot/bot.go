// Package bot implements the slash-command layer: parsing interaction
// payloads, enforcing linked-account preconditions, and formatting replies.
// Slow work (Spotify calls, persona generation) happens off the interaction
// response path; results land in the channel as regular bot messages.
package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/musicnerd/brave"
	"github.com/onnwee/musicnerd/discordapi"
	"github.com/onnwee/musicnerd/llm"
	"github.com/onnwee/musicnerd/session"
	"github.com/onnwee/musicnerd/spotify"
)

// SpotifyAPI is the slice of the Spotify client the commands use.
type SpotifyAPI interface {
	CurrentTrack(ctx context.Context, userID string) (*spotify.NowPlaying, error)
	RecentlyPlayed(ctx context.Context, userID string, limit int) ([]spotify.PlayedTrack, error)
	TopArtists(ctx context.Context, userID string, limit int) ([]spotify.TopArtist, error)
}

// ProfileStore is the persistence surface for link state.
type ProfileStore interface {
	IsLinked(ctx context.Context, userID string) (bool, error)
	SetLastChannel(ctx context.Context, userID, channelID string) error
	Unlink(ctx context.Context, userID string) error
}

// Searcher finds support links (Bandcamp, merch, official site).
type Searcher interface {
	SearchSupportLinks(ctx context.Context, query string) []brave.Result
}

// Sessions is the nerdout engine surface the /nerdout command drives.
type Sessions interface {
	Start(ctx context.Context, owner, channel string, simple bool) (*session.Session, error)
	Stop(owner string) bool
	Get(owner string) *session.Session
	StartNotice(simple bool) string
}

// Bot wires the command handlers to their collaborators.
type Bot struct {
	Profiles  ProfileStore
	Spotify   SpotifyAPI
	Search    Searcher
	Messenger session.Messenger
	Sessions  Sessions
	Persona   llm.TextGenerator

	// PublicBaseURL is the externally reachable base of the HTTP server,
	// used to build the OAuth start link.
	PublicBaseURL string

	// asyncTimeout bounds background command work.
	asyncTimeout time.Duration
	// spawn runs background work; tests replace it to run inline.
	spawn func(fn func(ctx context.Context))
}

func New(profiles ProfileStore, sp SpotifyAPI, search Searcher, messenger session.Messenger, sessions Sessions, persona llm.TextGenerator, publicBaseURL string) *Bot {
	b := &Bot{
		Profiles:      profiles,
		Spotify:       sp,
		Search:        search,
		Messenger:     messenger,
		Sessions:      sessions,
		Persona:       persona,
		PublicBaseURL: publicBaseURL,
		asyncTimeout:  90 * time.Second,
	}
	b.spawn = func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), b.asyncTimeout)
			defer cancel()
			fn(ctx)
		}()
	}
	return b
}

// Commands returns the slash command definitions for registration.
func Commands() []discordapi.Command {
	return []discordapi.Command{
		{Name: "link", Description: "Link your Spotify account to get personalized music commentary"},
		{Name: "unlink", Description: "Unlink your Spotify account"},
		{Name: "track", Description: "Get commentary on your current Spotify track"},
		{Name: "history", Description: "See your recently played tracks"},
		{Name: "taste", Description: "Get an analysis of your music taste based on your top artists"},
		{Name: "help", Description: "Get help with using the bot"},
		{
			Name:        "nerdout",
			Description: "Start a nerdout session - fascinating facts about your music as tracks change",
			Options: []discordapi.CommandOption{
				{
					Type:        discordapi.OptionTypeString,
					Name:        "action",
					Description: "What to do",
					Choices: []discordapi.OptionChoice{
						{Name: "Start session", Value: "start"},
						{Name: "Stop session", Value: "stop"},
					},
				},
				{
					Type:        discordapi.OptionTypeBoolean,
					Name:        "simple",
					Description: "Use simple mode (no web search, unlimited use)",
				},
			},
		},
	}
}

// Handle dispatches an application command interaction and returns the
// synchronous response to serve from the webhook.
func (b *Bot) Handle(ctx context.Context, in *discordapi.Interaction) discordapi.InteractionResponse {
	user := in.InvokingUser()
	if user == nil || in.Data == nil {
		return discordapi.Reply("Sorry, I couldn't work out who sent that.", true)
	}

	switch in.Data.Name {
	case "link":
		return b.handleLink(ctx, user.ID, in.ChannelID)
	case "unlink":
		return b.handleUnlink(ctx, user.ID)
	case "track":
		return b.handleTrack(ctx, user.ID, in.ChannelID)
	case "history":
		return b.handleHistory(ctx, user.ID, in.ChannelID)
	case "taste":
		return b.handleTaste(ctx, user.ID, user.Username, in.ChannelID)
	case "help":
		return b.handleHelp()
	case "nerdout":
		return b.handleNerdout(ctx, user.ID, in.ChannelID, in.OptionString("action"), in.OptionBool("simple"))
	default:
		slog.Warn("unknown command", slog.String("command", in.Data.Name), slog.String("component", "bot"))
		return discordapi.Reply("I don't know that command.", true)
	}
}
