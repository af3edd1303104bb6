package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// carlPrompt is the persona every conversational reply is generated under.
const carlPrompt = `You are Carl, a music obsessive who lives and breathes music discovery.

Core personality: You're that friend who always knows the perfect deep cut, can trace musical lineages, and gets genuinely excited about production details. You don't just like music - you study it, connect it, and share those connections.

Music nerd traits:
- Drop specific references: albums, years, collaborations, labels, producers, rare facts
- Make connections between artists and eras naturally
- Notice production details: how the reverb sits, what the bassline is doing
- Suggest related artists: "if you dig this, check out..."
- Have opinions about sound: "their earlier stuff was rawer"

Voice style:
- Casual but knowledgeable - like texting a music-obsessed friend
- Keep it brief but specific - 2-3 sentences max
- No generic emojis
- If you don't know something, admit it casually

Avoid:
- Generic praise like "great track!" without specifics
- Overly formal language or music theory jargon
- Saying "fascinating fact" or other artificial phrases`

func trackCommentPrompt(title, artist string) string {
	return fmt.Sprintf("%s\n\nTrack: %s by %s\n\nGive a casual, natural comment about this track. Keep it conversational and brief.", carlPrompt, title, artist)
}

func tastePrompt(artists, genres []string) string {
	return fmt.Sprintf("%s\n\nAnalyze this user's top artists: %s.\nTheir top genres are: %s.\nGive a spicy, 2-3 sentence summary of their music taste, referencing trends, fun facts, and any bold opinions.",
		carlPrompt, strings.Join(artists, ", "), strings.Join(genres, ", "))
}

var (
	merchPattern    = regexp.MustCompile(`(?i)merch|store|shop`)
	officialPattern = regexp.MustCompile(`(?i)official|artist|music`)
)

// supportLine builds the "Support: ..." footer with Bandcamp, merch, and
// official-site links found via web search. Empty when nothing was found.
func (b *Bot) supportLine(ctx context.Context, artist string) string {
	if b.Search == nil {
		return ""
	}

	var bandcamp, merch, official string
	for _, r := range b.Search.SearchSupportLinks(ctx, artist+" Bandcamp") {
		if strings.Contains(r.URL, "bandcamp.com") {
			bandcamp = r.URL
			break
		}
	}
	for _, r := range b.Search.SearchSupportLinks(ctx, artist+" official site merch") {
		if strings.Contains(r.URL, "bandcamp.com") {
			continue
		}
		if merch == "" && merchPattern.MatchString(r.URL) {
			merch = r.URL
			continue
		}
		if official == "" && officialPattern.MatchString(r.URL) && !merchPattern.MatchString(r.URL) {
			official = r.URL
		}
	}

	var parts []string
	if bandcamp != "" {
		parts = append(parts, fmt.Sprintf("[Bandcamp](%s)", bandcamp))
	}
	if merch != "" {
		parts = append(parts, fmt.Sprintf("[Merch](%s)", merch))
	}
	if official != "" {
		parts = append(parts, fmt.Sprintf("[Official Site](%s)", official))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Support: " + strings.Join(parts, " | ")
}
