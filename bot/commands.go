package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/musicnerd/discordapi"
	"github.com/onnwee/musicnerd/llm"
	"github.com/onnwee/musicnerd/session"
)

const notLinkedMessage = "You need to connect your Spotify account first! Use `/link` to get started."

func (b *Bot) linked(ctx context.Context, userID string) bool {
	ok, err := b.Profiles.IsLinked(ctx, userID)
	if err != nil {
		slog.Warn("link-state lookup failed", slog.String("user", userID), slog.Any("error", err), slog.String("component", "bot"))
		return false
	}
	return ok
}

func (b *Bot) handleLink(ctx context.Context, userID, channelID string) discordapi.InteractionResponse {
	if b.linked(ctx, userID) {
		return discordapi.Reply("You're already connected to Spotify! Use `/track` to get your current track info.", true)
	}
	// Remember where the user asked from so the OAuth callback can confirm
	// in the right channel.
	if err := b.Profiles.SetLastChannel(ctx, userID, channelID); err != nil {
		slog.Warn("failed to store origin channel", slog.String("user", userID), slog.Any("error", err), slog.String("component", "bot"))
	}
	authURL := fmt.Sprintf("%s/auth/spotify/start?user=%s", strings.TrimRight(b.PublicBaseURL, "/"), userID)
	return discordapi.Reply(fmt.Sprintf("Click [here](%s) to connect your Spotify account.", authURL), true)
}

func (b *Bot) handleUnlink(ctx context.Context, userID string) discordapi.InteractionResponse {
	if err := b.Profiles.Unlink(ctx, userID); err != nil {
		slog.Error("unlink failed", slog.String("user", userID), slog.Any("error", err), slog.String("component", "bot"))
		return discordapi.Reply("Sorry, there was a problem unlinking your Spotify account. Please try again later.", true)
	}
	return discordapi.Reply("Your Spotify account has been unlinked. You can use `/link` to connect again anytime!", true)
}

func (b *Bot) handleTrack(ctx context.Context, userID, channelID string) discordapi.InteractionResponse {
	if !b.linked(ctx, userID) {
		return discordapi.Reply(notLinkedMessage, true)
	}
	b.spawn(func(ctx context.Context) {
		np, err := b.Spotify.CurrentTrack(ctx, userID)
		if err != nil || np == nil {
			b.say(ctx, channelID, "I can't see you listening to anything on Spotify right now. Make sure you're playing something and try again!")
			return
		}

		text := llm.GenerateWithRetry(ctx, b.Persona, trackCommentPrompt(np.Title, np.Artist))
		if text == "" {
			text = fmt.Sprintf("%s by %s", np.Title, np.Artist)
		}
		if np.URL != "" {
			text += "\n\n" + np.URL
		}
		if support := b.supportLine(ctx, np.Artist); support != "" {
			text += "\n\n" + support
		}
		b.say(ctx, channelID, text)
	})
	return discordapi.Reply("Having a listen...", true)
}

func (b *Bot) handleHistory(ctx context.Context, userID, channelID string) discordapi.InteractionResponse {
	if !b.linked(ctx, userID) {
		return discordapi.Reply(notLinkedMessage, true)
	}
	b.spawn(func(ctx context.Context) {
		tracks, err := b.Spotify.RecentlyPlayed(ctx, userID, 5)
		if err != nil || len(tracks) == 0 {
			b.say(ctx, channelID, "I couldn't find any recently played tracks. Make sure you've been listening to some music!")
			return
		}
		var sb strings.Builder
		sb.WriteString("Your recently played tracks:\n")
		for i, tr := range tracks {
			fmt.Fprintf(&sb, "\n%d. %s by %s", i+1, tr.Title, tr.Artist)
			if !tr.PlayedAt.IsZero() {
				fmt.Fprintf(&sb, " (played at %s)", tr.PlayedAt.Format("Jan 2 15:04"))
			}
		}
		b.say(ctx, channelID, sb.String())
	})
	return discordapi.Reply("Digging through your recent plays...", true)
}

func (b *Bot) handleTaste(ctx context.Context, userID, username, channelID string) discordapi.InteractionResponse {
	if !b.linked(ctx, userID) {
		return discordapi.Reply(notLinkedMessage, true)
	}
	b.spawn(func(ctx context.Context) {
		artists, err := b.Spotify.TopArtists(ctx, userID, 5)
		if err != nil || len(artists) == 0 {
			b.say(ctx, channelID, "I don't have enough data to analyze your music taste yet. Keep listening to music and try again later!")
			return
		}

		names := make([]string, 0, len(artists))
		seen := map[string]bool{}
		var genres []string
		for _, a := range artists {
			names = append(names, a.Name)
			for _, g := range a.Genres {
				if !seen[g] && len(genres) < 5 {
					seen[g] = true
					genres = append(genres, g)
				}
			}
		}

		text := llm.GenerateWithRetry(ctx, b.Persona, tastePrompt(names, genres))
		if text == "" {
			text = "My crystal ball is cloudy right now. Try again in a bit!"
		}
		b.say(ctx, channelID, text)
	})
	return discordapi.Reply("Judging your taste (lovingly)...", true)
}

func (b *Bot) handleHelp() discordapi.InteractionResponse {
	help := "**MusicNerdCarl Help**\n\n" +
		"**Commands:**\n" +
		"• `/link` - Connect your Spotify account\n" +
		"• `/unlink` - Remove your Spotify link\n" +
		"• `/track` - Get commentary on your current track\n" +
		"• `/history` - See your recently played tracks\n" +
		"• `/taste` - Get an analysis of your music taste\n" +
		"• `/nerdout` - Start a session: I'll share facts about your music as tracks change\n" +
		"• `/nerdout action:Stop session` - End your nerdout session\n\n" +
		"**Tips:**\n" +
		"• Make sure you're playing music on Spotify when using commands\n" +
		"• Use `/link` first to connect your Spotify account\n" +
		"• Add `simple:True` to `/nerdout` for unlimited no-web-search mode"
	return discordapi.Reply(help, true)
}

func (b *Bot) handleNerdout(ctx context.Context, userID, channelID, action string, simple bool) discordapi.InteractionResponse {
	if action == "" {
		action = "start"
	}

	if action == "stop" {
		if b.Sessions.Stop(userID) {
			return discordapi.Reply("Session ended. Use `/nerdout` again anytime to start a new session.", false)
		}
		return discordapi.Reply("You don't have an active nerdout session!", true)
	}

	if b.Sessions.Get(userID) != nil {
		return discordapi.Reply("You already have an active nerdout session! Use `/nerdout` with action Stop to end it first.", true)
	}
	if !b.linked(ctx, userID) {
		return discordapi.Reply(notLinkedMessage, true)
	}

	b.spawn(func(ctx context.Context) {
		_, err := b.Sessions.Start(ctx, userID, channelID, simple)
		switch {
		case err == nil, errors.Is(err, session.ErrAlreadyActive):
		case errors.Is(err, session.ErrNothingPlaying):
			b.say(ctx, channelID, "I can't see what you're listening to! Make sure your Spotify is playing and you're linked with `/link`.")
		default:
			slog.Error("nerdout start failed", slog.String("user", userID), slog.Any("error", err), slog.String("component", "bot"))
			b.say(ctx, channelID, "Sorry, there was a problem setting up your nerdout session. Please try again later.")
		}
	})
	return discordapi.Reply(b.Sessions.StartNotice(simple), true)
}

// say posts to the channel, best effort.
func (b *Bot) say(ctx context.Context, channelID, text string) {
	if err := b.Messenger.SendMessage(ctx, channelID, text); err != nil {
		slog.Warn("channel send failed", slog.String("channel", channelID), slog.Any("error", err), slog.String("component", "bot"))
	}
}
