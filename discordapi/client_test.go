package discordapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("tok", "app")
	c.BaseURL = srv.URL
	if err := c.SendMessage(context.Background(), "chan1", "hello there"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/channels/chan1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bot tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(gotBody), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Content != "hello there" {
		t.Errorf("content = %q", payload.Content)
	}
}

func TestSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Missing Access"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("tok", "app")
	c.BaseURL = srv.URL
	if err := c.SendMessage(context.Background(), "chan1", "hi"); err == nil {
		t.Fatal("want error for 403 response")
	}
}

func TestRegisterCommandsGuildVsGlobal(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("tok", "app123")
	c.BaseURL = srv.URL
	cmds := []Command{{Name: "nerdout", Description: "start a session"}}

	if err := c.RegisterCommands(context.Background(), "guild9", cmds); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/applications/app123/guilds/guild9/commands" || gotMethod != http.MethodPut {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}

	if err := c.RegisterCommands(context.Background(), "", cmds); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/applications/app123/commands" {
		t.Errorf("global path = %q", gotPath)
	}
}

func TestInteractionOptionAccessors(t *testing.T) {
	raw := `{
		"type": 2,
		"channel_id": "c1",
		"data": {
			"name": "nerdout",
			"options": [
				{"name": "action", "value": "stop"},
				{"name": "simple", "value": true}
			]
		},
		"member": {"user": {"id": "u1", "username": "nerd"}}
	}`
	var in Interaction
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	if got := in.OptionString("action"); got != "stop" {
		t.Errorf("action = %q", got)
	}
	if !in.OptionBool("simple") {
		t.Error("simple = false, want true")
	}
	if got := in.OptionString("missing"); got != "" {
		t.Errorf("missing option = %q, want empty", got)
	}
	if u := in.InvokingUser(); u == nil || u.ID != "u1" {
		t.Errorf("invoking user = %+v", u)
	}
}

func TestInvokingUserDMContext(t *testing.T) {
	in := Interaction{User: &User{ID: "u2"}}
	if u := in.InvokingUser(); u == nil || u.ID != "u2" {
		t.Errorf("got %+v, want DM user", u)
	}
}
