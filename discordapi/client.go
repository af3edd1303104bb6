// Package discordapi contains a minimal Discord REST client for the features
// this bot needs: sending channel messages, and registering the slash
// commands served over the interactions webhook.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://discord.com/api/v10"

// Client is an authenticated Discord REST client.
type Client struct {
	BotToken string
	AppID    string

	// BaseURL is overridable for tests.
	BaseURL    string
	HTTPClient *http.Client
}

func New(botToken, appID string) *Client {
	return &Client{
		BotToken:   botToken,
		AppID:      appID,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) do(ctx context.Context, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord %s %s failed: %s: %s", method, path, resp.Status, string(b))
	}
	return nil
}

// SendMessage posts plain text to a channel. Satisfies the session engine's
// Messenger interface.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", map[string]any{
		"content": content,
	})
}

// Embed is the subset of Discord's embed object we produce.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// SendEmbed posts an embed to a channel.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed Embed) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", map[string]any{
		"embeds": []Embed{embed},
	})
}

// RegisterCommands bulk-overwrites the application's slash commands. With a
// guild id the commands are guild-scoped (instant propagation, handy in dev);
// without one they register globally.
func (c *Client) RegisterCommands(ctx context.Context, guildID string, cmds []Command) error {
	path := "/applications/" + c.AppID + "/commands"
	if guildID != "" {
		path = "/applications/" + c.AppID + "/guilds/" + guildID + "/commands"
	}
	return c.do(ctx, http.MethodPut, path, cmds)
}
