package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/vocalis/core/llms"
)

type capturedRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	Stream         bool      `json:"stream"`
	ResponseFormat *struct {
		Type       string `json:"type"`
		JSONSchema *struct {
			Name   string          `json:"name"`
			Schema json.RawMessage `json:"schema"`
			Strict bool            `json:"strict"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func newTestServer(t *testing.T, handler func(t *testing.T, req capturedRequest, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		handler(t, req, w)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPromptSendsHistoryInOrder(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, req capturedRequest, w http.ResponseWriter) {
		roles := []messageRole{}
		for _, m := range req.Messages {
			roles = append(roles, m.Role)
		}
		want := []messageRole{messageRoleSystem, messageRoleUser, messageRoleAssistant, messageRoleSystem, messageRoleUser}
		if len(roles) != len(want) {
			t.Errorf("expected roles %v, got %v", want, roles)
			return
		}
		for i := range want {
			if roles[i] != want[i] {
				t.Errorf("expected roles %v, got %v", want, roles)
			}
		}
		if req.Messages[4].Content != "what now?" {
			t.Errorf("expected prompt as last message, got %q", req.Messages[4].Content)
		}
		if req.Model != "test-model" || req.Stream {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"All good."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	})

	client := NewClient(WithBaseURL(server.URL+"/v1/"), WithAPIKey("test-key"), WithModel("test-model"))
	resp, err := client.Prompt(context.Background(), "what now?",
		llms.WithSystemPrompt("be brief"),
		llms.WithTurns(
			llms.UserTurn("hi"),
			llms.AssistantTurn("hello"),
			llms.SystemTurn("[context]"),
		),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "All good." || resp.FinishReason != "stop" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 5 {
		t.Fatalf("expected usage to be reported, got %+v", resp.Usage)
	}
}

func TestPromptWithResponseSchema(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, req capturedRequest, w http.ResponseWriter) {
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" || req.ResponseFormat.JSONSchema == nil {
			t.Errorf("expected json_schema response format, got %+v", req.ResponseFormat)
		} else if req.ResponseFormat.JSONSchema.Name != "Analysis" {
			t.Errorf("unexpected schema name %q", req.ResponseFormat.JSONSchema.Name)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	})

	type analysis struct {
		OK bool `json:"ok"`
	}
	schema := (&jsonschema.Reflector{DoNotReference: true}).Reflect(analysis{})
	client := NewClient(WithBaseURL(server.URL+"/v1"), WithAPIKey("test-key"))
	resp, err := client.Prompt(context.Background(), "classify", llms.WithResponseSchema("Analysis", schema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", resp.Content)
	}
}

func TestPromptNonOKStatus(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, req capturedRequest, w http.ResponseWriter) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	client := NewClient(WithBaseURL(server.URL+"/v1"), WithAPIKey("test-key"))
	_, err := client.Prompt(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected non-OK status error, got %v", err)
	}
}

func TestPromptNoChoices(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, req capturedRequest, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	client := NewClient(WithBaseURL(server.URL+"/v1"), WithAPIKey("test-key"))
	if _, err := client.Prompt(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestPromptHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(t *testing.T, req capturedRequest, w http.ResponseWriter) {
		<-release
	})
	defer close(release)

	client := NewClient(WithBaseURL(server.URL+"/v1"), WithAPIKey("test-key"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Prompt(ctx, "hi"); err == nil {
		t.Fatalf("expected deadline error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("prompt did not return promptly after the deadline")
	}
}
