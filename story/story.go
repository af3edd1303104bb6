// Package story turns an artist/track pair into an ordered list of short
// commentary fragments for gradual delivery. Generation never fails outright:
// when both model stages come up empty the deterministic fallback narrative
// takes over, so callers always get at least one fragment.
package story

import (
	"context"
	"log/slog"
	"strings"

	"github.com/onnwee/musicnerd/llm"
	"github.com/onnwee/musicnerd/telemetry"
)

// minResearchChars is the floor below which the research stage is considered
// to have found nothing worth synthesizing.
const minResearchChars = 100

// Generator is the two-path fragment pipeline. Cheap handles single-call
// generation; Research is the web-search-augmented stage used by the
// expensive path.
type Generator struct {
	Cheap    llm.TextGenerator
	Research llm.TextGenerator

	// retry runs one generator call through the retry ladder. Replaced in
	// tests to avoid real back-off sleeps.
	retry func(ctx context.Context, gen llm.TextGenerator, prompt string) string
}

func New(cheap, research llm.TextGenerator) *Generator {
	return &Generator{Cheap: cheap, Research: research, retry: llm.GenerateWithRetry}
}

// Generate produces 1-8 fragments for the track. The expensive flag selects
// the two-stage web-search path; budget enforcement is the caller's job.
func (g *Generator) Generate(ctx context.Context, artist, track string, expensive bool) []string {
	if expensive && g.Research != nil {
		telemetry.Inc(telemetry.ExpensiveCalls)
		if frags := g.twoStage(ctx, artist, track); len(frags) > 0 {
			return frags
		}
		telemetry.Inc(telemetry.GeneratorFallbacks)
		return FallbackNarrative(track, artist)
	}

	telemetry.Inc(telemetry.CheapCalls)
	raw := g.retry(ctx, g.Cheap, simplePrompt(artist, track))
	if frags := ExtractFragments(raw); len(frags) > 0 {
		return frags
	}
	telemetry.Inc(telemetry.GeneratorFallbacks)
	return FallbackNarrative(track, artist)
}

// twoStage runs research then synthesis. Returns nil when either stage fails,
// leaving the fallback decision to the caller.
func (g *Generator) twoStage(ctx context.Context, artist, track string) []string {
	raw := g.retry(ctx, g.Research, researchPrompt(artist, track))
	if len(strings.TrimSpace(raw)) < minResearchChars {
		slog.Warn("research stage returned too little material",
			slog.Int("chars", len(strings.TrimSpace(raw))),
			slog.String("track", track),
			slog.String("component", "story"))
		return nil
	}

	storyText := g.retry(ctx, g.Cheap, synthesisPrompt(artist, track, raw))
	frags := ExtractFragments(storyText)
	if len(frags) == 0 {
		slog.Warn("synthesis stage produced no extractable fragments",
			slog.String("track", track),
			slog.String("component", "story"))
	}
	return frags
}
