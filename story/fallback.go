package story

import (
	"fmt"
	"strings"
)

const maxFallbackFragments = 6

// FallbackNarrative builds a deterministic, offline narrative for the track.
// A few keyword categories pick a themed template; everything else gets a
// generic one built from the literal names. Always returns 1-6 fragments.
func FallbackNarrative(track, artist string) []string {
	trackLower := strings.ToLower(track)
	artistLower := strings.ToLower(artist)

	var lines []string
	switch {
	case strings.Contains(trackLower, "colombia") || strings.Contains(trackLower, "panamá"):
		lines = []string{
			fmt.Sprintf("%q is a musical journey through Colombian heritage", track),
			"The rhythms carry stories of the Caribbean coast",
			"Each beat connects to generations of musical tradition",
		}
	case strings.Contains(trackLower, "antonio") || strings.Contains(trackLower, "santo"):
		lines = []string{
			fmt.Sprintf("%q invokes the spiritual heart of Colombian folk music", track),
			"You can hear the reverence in every note",
			"This is music that bridges the sacred and the everyday",
		}
	case strings.Contains(artistLower, "bulla"):
		lines = []string{
			fmt.Sprintf("%q showcases the authentic bullerengue tradition", track),
			"The drums speak the language of Colombia's Caribbean coast",
			"Each rhythm tells a story passed down through generations",
		}
	default:
		lines = []string{
			fmt.Sprintf("%q reveals %s's unique musical vision", track, artist),
			"The composition unfolds like a carefully crafted story",
			"Every element serves the deeper emotional journey",
		}
	}

	if len(lines) > maxFallbackFragments {
		lines = lines[:maxFallbackFragments]
	}
	return lines
}
