package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client wraps the Anthropic SDK with the two models used by the commentary
// pipeline: a cheap text-only model and a research model that is allowed to
// use the web_search server tool.
type Client struct {
	api           anthropic.Client
	cheapModel    string
	researchModel string
}

// NewClient builds an Anthropic-backed client. Model names come from config
// so deployments can pin different versions without a rebuild.
func NewClient(apiKey, cheapModel, researchModel string) *Client {
	return &Client{
		api:           anthropic.NewClient(option.WithAPIKey(apiKey)),
		cheapModel:    cheapModel,
		researchModel: researchModel,
	}
}

// Cheap returns the single-call text generator (no tools).
func (c *Client) Cheap() TextGenerator {
	return GeneratorFunc(c.generateCheap)
}

// Research returns the web-search-augmented generator.
func (c *Client) Research() TextGenerator {
	return GeneratorFunc(c.generateResearch)
}

func (c *Client) generateCheap(ctx context.Context, prompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cheapModel),
		MaxTokens: 2000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapAPIError(err)
	}
	return joinTextBlocks(msg), nil
}

func (c *Client) generateResearch(ctx context.Context, prompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.researchModel),
		MaxTokens: 2000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(3),
			},
		}},
	})
	if err != nil {
		return "", wrapAPIError(err)
	}
	return meaningfulText(msg), nil
}

// joinTextBlocks concatenates every text block of the response.
func joinTextBlocks(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

// meaningfulText extracts the substantive text blocks from a tool-use
// response. The model interleaves short "let me search..." preambles between
// tool calls; the real answer lands in the later, longer blocks.
func meaningfulText(msg *anthropic.Message) string {
	var all, meaningful []string
	for _, block := range msg.Content {
		tb, ok := block.AsAny().(anthropic.TextBlock)
		if !ok {
			continue
		}
		text := strings.TrimSpace(tb.Text)
		if text == "" {
			continue
		}
		all = append(all, text)
		lower := strings.ToLower(text)
		if len(text) > 50 &&
			!strings.Contains(lower, "i'll search") &&
			!strings.Contains(lower, "let me search") &&
			!strings.Contains(lower, "let me do that search") {
			meaningful = append(meaningful, text)
		}
	}
	if len(meaningful) > 0 {
		return strings.Join(meaningful, "\n\n")
	}
	return strings.Join(all, "\n\n")
}

// wrapAPIError converts an SDK error into APIError so the retry ladder can
// classify it by status code. Non-API errors (timeouts, DNS) pass through.
func wrapAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Message: http.StatusText(apiErr.StatusCode)}
	}
	return err
}
