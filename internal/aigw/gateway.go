// Package aigw is the gateway to upstream text-generation providers.
//
// It normalizes the two wire families Framer speaks — OpenAI-compatible
// chat completions and Anthropic-style messages — behind one Provider
// interface, classifies every failure into a closed error taxonomy, and
// extracts JSON payloads from free-form model output. The provider
// family is selected once at construction; nothing re-dispatches on the
// provider string per call.
package aigw

import (
	"crypto/tls"
	"net/http"

	"context"

	"github.com/framerhq/framer/internal/config"
)

// Turn is one {role, content} dialogue message on the wire.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the uniform call contract for an upstream model.
type Provider interface {
	// SendStructured instructs the model to reply with a single JSON
	// object and returns the parsed payload.
	SendStructured(ctx context.Context, system string, turns []Turn) (map[string]any, error)

	// SendText imposes no output-format constraint and returns the raw
	// reply text. Used as the degradation path for models that refuse
	// structured output.
	SendText(ctx context.Context, system string, turns []Turn) (string, error)

	// Family identifies the wire family ("openai" or "anthropic").
	Family() string
}

// openAICompatible lists the provider identifiers served by the OpenAI
// chat-completions wire path.
var openAICompatible = map[string]bool{
	"openai":       true,
	"azure-openai": true,
	"openrouter":   true,
	"ollama":       true,
	"custom":       true,
}

// New selects the provider family for the given configuration. An
// unrecognized provider identifier fails fast; it never silently
// defaults to a family.
func New(cfg config.AIConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := newHTTPClient(cfg)
	switch {
	case openAICompatible[cfg.Provider]:
		return &openAIProvider{cfg: cfg, client: client}, nil
	case cfg.Provider == "anthropic":
		return &anthropicProvider{cfg: cfg, client: client}, nil
	}
	return nil, newError(KindUnsupportedProvider, "unsupported provider: %q", cfg.Provider)
}

// newHTTPClient applies the timeout and TLS-verification policy
// uniformly, regardless of provider family.
func newHTTPClient(cfg config.AIConfig) *http.Client {
	client := &http.Client{Timeout: cfg.Timeout}
	if !cfg.VerifyTLS {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}

// classifyStatus maps a non-2xx upstream status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUpstreamAuth
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return KindUpstreamQuota
	}
	return KindUpstreamConnectivity
}
