package story

import (
	"strings"
	"testing"
)

func TestParseSentinelLines(t *testing.T) {
	raw := strings.Join([]string{
		"Here are some insights:",
		"SNIPPET: The track was recorded live in a single take",
		"  SNIPPET: The bassline borrows from 70s dub records",
		"SNIPPET: short", // under the lower bound
		"SNIPPET: " + strings.Repeat("x", 200), // over the upper bound
		"not a snippet line",
		"SNIPPET:The producer layered twelve vocal tracks here",
	}, "\n")

	got := ExtractFragments(raw)
	want := []string{
		"The track was recorded live in a single take",
		"The bassline borrows from 70s dub records",
		"The producer layered twelve vocal tracks here",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractFragmentsSevenSnippets(t *testing.T) {
	var lines []string
	for i := 0; i < 7; i++ {
		lines = append(lines, "SNIPPET: This is a perfectly sized insight about the song number "+strings.Repeat("i", i+1))
	}
	got := ExtractFragments(strings.Join(lines, "\n"))
	if len(got) != 7 {
		t.Errorf("got %d fragments, want 7", len(got))
	}
}

func TestSentenceFallbackWhenNoSentinels(t *testing.T) {
	raw := "Here are some facts about the song. " +
		"The melody was written on a broken piano in Berlin! " +
		"Based on interviews, the band nearly shelved it. " +
		"Its chorus samples a 1963 field recording from the Pacific coast? " +
		"Ok. " +
		"The final mix took place over a single frantic weekend in the studio."

	got := ExtractFragments(raw)
	want := []string{
		"The melody was written on a broken piano in Berlin",
		"Its chorus samples a 1963 field recording from the Pacific coast",
		"The final mix took place over a single frantic weekend in the studio",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSentenceFallbackCapsAtEight(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("This sentence is comfortably inside the length window for extraction. ")
	}
	got := ExtractFragments(sb.String())
	if len(got) != 8 {
		t.Errorf("got %d sentences, want cap of 8", len(got))
	}
}

func TestExtractFragmentsNothingUsable(t *testing.T) {
	if got := ExtractFragments("ok. no. hm."); got != nil {
		t.Errorf("got %v, want nil for unusable input", got)
	}
	if got := ExtractFragments(""); got != nil {
		t.Errorf("got %v, want nil for empty input", got)
	}
}
