package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/triageline/internal/triage"
)

func TestToSDKMessages_TextBlock(t *testing.T) {
	t.Parallel()

	msgs := []triage.Message{{
		Role:    "user",
		Content: []triage.ContentBlock{{Type: "text", Text: "hello"}},
	}}

	result := toSDKMessages(msgs)

	if len(result) != 1 {
		t.Fatalf("len = %d, want 1", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("role = %q, want %q", result[0].Role, "user")
	}
	if len(result[0].Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result[0].Content))
	}
	if result[0].Content[0].OfText == nil {
		t.Fatal("expected OfText to be set")
	}
	if result[0].Content[0].OfText.Text != "hello" {
		t.Errorf("text = %q, want %q", result[0].Content[0].OfText.Text, "hello")
	}
}

func TestToSDKMessages_SkipsNonText(t *testing.T) {
	t.Parallel()

	msgs := []triage.Message{{
		Role: "user",
		Content: []triage.ContentBlock{
			{Type: "image"},
			{Type: "text", Text: "vitals follow"},
		},
	}}

	result := toSDKMessages(msgs)

	if len(result[0].Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result[0].Content))
	}
	if result[0].Content[0].OfText == nil || result[0].Content[0].OfText.Text != "vitals follow" {
		t.Error("expected only the text block to survive")
	}
}

func TestFromSDKResponse_TextContent(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking", Thinking: "hmm"},
			{Type: "text", Text: "- consider sepsis workup"},
		},
		Model:      "claude-sonnet-4-20250514",
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 100, OutputTokens: 50},
	}

	result := fromSDKResponse(msg)

	if len(result.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result.Content))
	}
	if result.Content[0].Text != "- consider sepsis workup" {
		t.Errorf("text = %q", result.Content[0].Text)
	}
	if result.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", result.Model)
	}
}

func TestFromSDKResponse_StopReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sdk      anthropic.StopReason
		expected triage.StopReason
	}{
		{"end_turn", anthropic.StopReasonEndTurn, triage.StopEnd},
		{"max_tokens", anthropic.StopReasonMaxTokens, triage.StopMaxTokens},
		{"unknown", anthropic.StopReason("refusal"), triage.StopReason("refusal")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := fromSDKResponse(&anthropic.Message{StopReason: tt.sdk})
			if result.StopReason != tt.expected {
				t.Errorf("stop reason = %q, want %q", result.StopReason, tt.expected)
			}
		})
	}
}

func TestFromSDKResponse_Usage(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 1234, OutputTokens: 567},
	}

	result := fromSDKResponse(msg)

	if result.Usage.InputTokens != 1234 {
		t.Errorf("input tokens = %d, want 1234", result.Usage.InputTokens)
	}
	if result.Usage.OutputTokens != 567 {
		t.Errorf("output tokens = %d, want 567", result.Usage.OutputTokens)
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "test-key" {
			t.Errorf("api key = %q", key)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "- repeat SpO2"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 321, "output_tokens": 12}
		}`)
	}))
	defer srv.Close()

	c := New("test-key", "claude-sonnet-4-20250514", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	resp, err := c.Send(context.Background(), &triage.LLMRequest{
		MaxTokens: 256,
		System:    "be brief",
		Messages: []triage.Message{{
			Role:    "user",
			Content: []triage.ContentBlock{{Type: "text", Text: "patient summary"}},
		}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(resp.Content) != 1 || resp.Content[0].Text != "- repeat SpO2" {
		t.Errorf("content = %+v", resp.Content)
	}
	if resp.Usage.InputTokens != 321 || resp.Usage.OutputTokens != 12 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != triage.StopEnd {
		t.Errorf("stop reason = %q", resp.StopReason)
	}

	if got["model"] != "claude-sonnet-4-20250514" {
		t.Errorf("request model = %v", got["model"])
	}
	if got["max_tokens"] != float64(256) {
		t.Errorf("request max_tokens = %v", got["max_tokens"])
	}
	raw, _ := json.Marshal(got["system"])
	if !strings.Contains(string(raw), "be brief") {
		t.Errorf("request system = %s", raw)
	}
}

func TestSend_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	c := New("bad-key", "claude-sonnet-4-20250514", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	_, err := c.Send(context.Background(), &triage.LLMRequest{
		MaxTokens: 16,
		Messages:  []triage.Message{{Role: "user", Content: []triage.ContentBlock{{Type: "text", Text: "x"}}}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "claude messages.new") {
		t.Errorf("err = %v, want wrapped context", err)
	}
}
