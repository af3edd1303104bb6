package story

import "fmt"

// researchPrompt asks the web-search model for raw factual material about the
// track. Output feeds the synthesis stage, so conversational framing is
// explicitly discouraged.
func researchPrompt(artist, track string) string {
	return fmt.Sprintf(`Search for information about the song %q by %s. Provide raw facts and details including:
- Background story or inspiration behind the song
- Chart performance and commercial success
- Cultural impact or interesting trivia
- Musical analysis or notable production elements
- Any unique or fascinating details about this specific track

Return factual information only, no conversational formatting.`, track, artist)
}

// synthesisPrompt turns stage-1 research material into sentinel-tagged
// insights sized for gradual delivery.
func synthesisPrompt(artist, track, research string) string {
	return fmt.Sprintf(`You're a knowledgeable music friend sharing fascinating details about %q by %s.

Here's the information I found:
%s

Create a detailed, engaging story about this track that can be delivered in small pieces throughout the song. Write 6-8 short, conversational insights that build on each other. Each should:
- Be under 140 characters
- Feel natural and engaging
- Focus on different aspects (musical, cultural, personal, technical)
- Make me appreciate what I'm hearing right now

Format each insight starting with "SNIPPET:" on separate lines.`, track, artist, research)
}

// simplePrompt is the single-stage variant used by the cheap path.
func simplePrompt(artist, track string) string {
	return fmt.Sprintf(`Create 6-8 short, conversational insights about %q by %s that can be delivered throughout the song duration.

Each insight should:
- Be under 140 characters
- Build understanding of the music
- Feel natural and engaging
- Cover different aspects (musical, cultural, emotional)

Format each insight starting with "SNIPPET:" on separate lines.

Now create flowing insights for %q by %s:`, track, artist, track, artist)
}
