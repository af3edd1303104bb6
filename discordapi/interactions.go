package discordapi

import "encoding/json"

// Interaction types (the ones served by the webhook).
const (
	InteractionPing               = 1
	InteractionApplicationCommand = 2
)

// Interaction callback types.
const (
	ResponsePong                     = 1
	ResponseChannelMessageWithSource = 4
)

// MessageFlagEphemeral marks a response visible only to the invoking user.
const MessageFlagEphemeral = 64

// Application command option types.
const (
	OptionTypeString  = 3
	OptionTypeBoolean = 5
)

// Command describes a slash command for registration.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

type CommandOption struct {
	Type        int            `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Required    bool           `json:"required"`
	Choices     []OptionChoice `json:"choices,omitempty"`
}

type OptionChoice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Interaction is the inbound webhook payload, trimmed to the fields we read.
type Interaction struct {
	Type      int              `json:"type"`
	ID        string           `json:"id"`
	Token     string           `json:"token"`
	ChannelID string           `json:"channel_id"`
	Data      *InteractionData `json:"data"`
	Member    *Member          `json:"member"`
	User      *User            `json:"user"`
}

type InteractionData struct {
	Name    string              `json:"name"`
	Options []InteractionOption `json:"options"`
}

type InteractionOption struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type Member struct {
	User *User `json:"user"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// InvokingUser resolves the user regardless of guild vs DM context.
func (i *Interaction) InvokingUser() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// OptionString returns the named string option, or "" when absent.
func (i *Interaction) OptionString(name string) string {
	if i.Data == nil {
		return ""
	}
	for _, opt := range i.Data.Options {
		if opt.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(opt.Value, &s); err == nil {
			return s
		}
	}
	return ""
}

// OptionBool returns the named boolean option, or false when absent.
func (i *Interaction) OptionBool(name string) bool {
	if i.Data == nil {
		return false
	}
	for _, opt := range i.Data.Options {
		if opt.Name != name {
			continue
		}
		var b bool
		if err := json.Unmarshal(opt.Value, &b); err == nil {
			return b
		}
	}
	return false
}

// InteractionResponse is the webhook's synchronous reply.
type InteractionResponse struct {
	Type int                      `json:"type"`
	Data *InteractionResponseData `json:"data,omitempty"`
}

type InteractionResponseData struct {
	Content string `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
	Flags   int    `json:"flags,omitempty"`
}

// Pong is the reply to a verification ping.
func Pong() InteractionResponse {
	return InteractionResponse{Type: ResponsePong}
}

// Reply builds a plain message response.
func Reply(content string, ephemeral bool) InteractionResponse {
	data := &InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = MessageFlagEphemeral
	}
	return InteractionResponse{Type: ResponseChannelMessageWithSource, Data: data}
}
