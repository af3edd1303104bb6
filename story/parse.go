package story

import "strings"

// sentinel marks one fragment per line in the model's response.
const sentinel = "SNIPPET:"

const maxSentenceFragments = 8

// ExtractFragments parses model output into fragments. Sentinel-tagged lines
// are preferred; when none survive the length window, whole sentences are
// salvaged instead. Returns nil when nothing usable is found.
func ExtractFragments(raw string) []string {
	if frags := parseSentinelLines(raw); len(frags) > 0 {
		return frags
	}
	return extractSentences(raw)
}

// parseSentinelLines keeps lines tagged with the sentinel, stripped and
// trimmed, within the (15, 160) exclusive length window.
func parseSentinelLines(raw string) []string {
	var frags []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, sentinel) {
			continue
		}
		frag := strings.TrimSpace(strings.TrimPrefix(line, sentinel))
		if len(frag) > 15 && len(frag) < 160 {
			frags = append(frags, frag)
		}
	}
	return frags
}

// extractSentences splits on sentence terminators and keeps up to 8 sentences
// in the (25, 160) window, skipping meta-commentary lead-ins.
func extractSentences(raw string) []string {
	var frags []string
	for _, s := range strings.FieldsFunc(raw, isSentenceTerminator) {
		s = strings.TrimSpace(s)
		if len(s) <= 25 || len(s) >= 160 {
			continue
		}
		lower := strings.ToLower(s)
		if strings.Contains(lower, "here are") || strings.Contains(lower, "based on") {
			continue
		}
		frags = append(frags, s)
		if len(frags) == maxSentenceFragments {
			break
		}
	}
	return frags
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
