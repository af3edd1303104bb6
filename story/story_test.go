package story

import (
	"context"
	"strings"
	"testing"

	"github.com/onnwee/musicnerd/llm"
)

// fakeGen implements llm.TextGenerator, recording prompts and replaying a
// fixed response.
type fakeGen struct {
	response string
	calls    int
	prompts  []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

// newTestGenerator builds a Generator whose retry step runs one attempt with
// no back-off, keeping failure-path tests fast.
func newTestGenerator(cheap, research llm.TextGenerator) *Generator {
	g := New(cheap, research)
	g.retry = func(ctx context.Context, gen llm.TextGenerator, prompt string) string {
		text, err := gen.Generate(ctx, prompt)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}
	return g
}

func snippets(n int) string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, "SNIPPET: A fascinating and well sized detail about this track, part "+strings.Repeat("x", i+1))
	}
	return strings.Join(lines, "\n")
}

func TestGenerateExpensiveTwoStageSuccess(t *testing.T) {
	research := &fakeGen{response: strings.Repeat("The song charted in 14 countries. ", 10)}
	cheap := &fakeGen{response: snippets(7)}
	g := newTestGenerator(cheap, research)

	got := g.Generate(context.Background(), "X", "Aloha", true)
	if len(got) != 7 {
		t.Fatalf("got %d fragments, want 7", len(got))
	}
	if research.calls != 1 {
		t.Errorf("research calls = %d, want 1", research.calls)
	}
	if cheap.calls != 1 {
		t.Errorf("cheap calls = %d, want 1", cheap.calls)
	}
	// Stage 2 must carry the research material into its prompt.
	if !strings.Contains(cheap.prompts[0], "charted in 14 countries") {
		t.Error("synthesis prompt does not include research material")
	}
}

func TestGenerateExpensiveShortResearchSkipsStageTwo(t *testing.T) {
	research := &fakeGen{response: "Only forty characters of thin material.."} // < 100 chars
	cheap := &fakeGen{response: snippets(7)}
	g := newTestGenerator(cheap, research)

	got := g.Generate(context.Background(), "X", "Aloha", true)
	if cheap.calls != 0 {
		t.Errorf("cheap calls = %d, want 0 (stage 2 must be skipped)", cheap.calls)
	}
	if len(got) < 1 || len(got) > 6 {
		t.Errorf("got %d fragments, want 1-6 fallback fragments", len(got))
	}
}

func TestGenerateCheapPath(t *testing.T) {
	research := &fakeGen{response: "should never be called"}
	cheap := &fakeGen{response: snippets(6)}
	g := newTestGenerator(cheap, research)

	got := g.Generate(context.Background(), "X", "Aloha", false)
	if len(got) != 6 {
		t.Fatalf("got %d fragments, want 6", len(got))
	}
	if research.calls != 0 {
		t.Errorf("research calls = %d, want 0 on cheap path", research.calls)
	}
}

func TestGenerateNeverEmpty(t *testing.T) {
	tests := []struct {
		name      string
		cheap     string
		research  string
		expensive bool
	}{
		{"cheap garbage", "hm. no. ok.", "", false},
		{"cheap blank", "", "", false},
		{"expensive garbage synthesis", "hm. no. ok.", strings.Repeat("facts ", 50), true},
		{"expensive blank research", "unused", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(&fakeGen{response: tt.cheap}, &fakeGen{response: tt.research})
			got := g.Generate(context.Background(), "Artist", "Track", tt.expensive)
			if len(got) == 0 {
				t.Fatal("Generate returned no fragments")
			}
		})
	}
}

func TestGenerateExpensiveWithoutResearchGenerator(t *testing.T) {
	cheap := &fakeGen{response: snippets(6)}
	g := newTestGenerator(cheap, nil)
	got := g.Generate(context.Background(), "X", "Aloha", true)
	if len(got) != 6 {
		t.Errorf("got %d fragments, want cheap-path result when research is unavailable", len(got))
	}
	if cheap.calls != 1 {
		t.Errorf("cheap calls = %d, want 1", cheap.calls)
	}
}

func TestGenerateSentenceSalvage(t *testing.T) {
	cheap := &fakeGen{response: "The song was cut live with the whole band in one room. " +
		"Its producer insisted on analog tape for the whole record."}
	g := newTestGenerator(cheap, nil)
	got := g.Generate(context.Background(), "X", "Aloha", false)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 salvaged sentences", got)
	}
}
