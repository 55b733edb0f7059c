package aigw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/framerhq/framer/internal/config"
)

func testAIConfig(provider, endpoint string) config.AIConfig {
	cfg := config.DefaultAIConfig()
	cfg.Provider = provider
	cfg.Endpoint = endpoint
	cfg.APIKey = "test-key"
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(testAIConfig("cohere", ""))
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if KindOf(err) != KindUnsupportedProvider {
		t.Errorf("kind = %v, want %v", KindOf(err), KindUnsupportedProvider)
	}
}

func TestNew_FamilySelection(t *testing.T) {
	cases := map[string]string{
		"openai":       "openai",
		"azure-openai": "openai",
		"openrouter":   "openai",
		"ollama":       "openai",
		"custom":       "openai",
		"anthropic":    "anthropic",
	}
	for provider, family := range cases {
		p, err := New(testAIConfig(provider, ""))
		if err != nil {
			t.Fatalf("New(%q) error = %v", provider, err)
		}
		if p.Family() != family {
			t.Errorf("New(%q).Family() = %q, want %q", provider, p.Family(), family)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testAIConfig("openai", "")
	cfg.Temperature = 3.5
	if _, err := New(cfg); err == nil {
		t.Error("expected error for temperature out of range")
	}
	cfg = testAIConfig("openai", "")
	cfg.MaxTokens = 0
	if _, err := New(cfg); err == nil {
		t.Error("expected error for max tokens < 1")
	}
}

func TestOpenAI_StructuredCall(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"response": "hello"}`}},
			},
		})
	}))
	defer srv.Close()

	p, err := New(testAIConfig("openai", srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := p.SendStructured(context.Background(), "be brief", []Turn{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("SendStructured() error = %v", err)
	}
	if out["response"] != "hello" {
		t.Errorf("response = %v, want hello", out["response"])
	}

	// System instruction rides as the first chat message.
	msgs := gotReq["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("first message = %v, want system instruction", first)
	}
	if rf, ok := gotReq["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotReq["response_format"])
	}
}

func TestOpenAI_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p, _ := New(testAIConfig("openai", srv.URL))
	_, err := p.SendText(context.Background(), "", []Turn{{Role: "user", Content: "hi"}})
	if KindOf(err) != KindParseEmpty {
		t.Errorf("kind = %v, want %v", KindOf(err), KindParseEmpty)
	}
}

func TestOpenAI_StatusClassification(t *testing.T) {
	cases := map[int]ErrorKind{
		http.StatusUnauthorized:        KindUpstreamAuth,
		http.StatusForbidden:           KindUpstreamAuth,
		http.StatusTooManyRequests:     KindUpstreamQuota,
		http.StatusInternalServerError: KindUpstreamConnectivity,
	}
	for status, wantKind := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		p, _ := New(testAIConfig("openai", srv.URL))
		_, err := p.SendText(context.Background(), "", []Turn{{Role: "user", Content: "hi"}})
		if KindOf(err) != wantKind {
			t.Errorf("status %d: kind = %v, want %v", status, KindOf(err), wantKind)
		}
		if IsTransient(err) {
			t.Errorf("status %d must not classify transient", status)
		}
		srv.Close()
	}
}

func TestAnthropic_SystemFieldAndContentBlocks(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"},
			},
		})
	}))
	defer srv.Close()

	p, err := New(testAIConfig("anthropic", srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := p.SendText(context.Background(), "persona", []Turn{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if out != "part one part two" {
		t.Errorf("SendText() = %q", out)
	}

	// System instruction travels in its own field, not the messages array.
	if gotReq["system"] != "persona" {
		t.Errorf("system field = %v, want persona", gotReq["system"])
	}
	if len(gotReq["messages"].([]any)) != 1 {
		t.Errorf("messages = %v, want single user turn", gotReq["messages"])
	}
}

func TestAnthropic_EmptyContentBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer srv.Close()

	p, _ := New(testAIConfig("anthropic", srv.URL))
	_, err := p.SendText(context.Background(), "", []Turn{{Role: "user", Content: "hi"}})
	if KindOf(err) != KindParseEmpty {
		t.Errorf("kind = %v, want %v", KindOf(err), KindParseEmpty)
	}
}
