package aigw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/framerhq/framer/internal/config"
)

// anthropicProvider speaks the Anthropic messages wire format: the
// system instruction travels in its own field and the reply arrives as
// a list of content blocks.
type anthropicProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

type anthropicRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Messages    []Turn  `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Family() string { return "anthropic" }

func (p *anthropicProvider) SendStructured(ctx context.Context, system string, turns []Turn) (map[string]any, error) {
	// No native JSON response mode; the instruction rides in the system
	// prompt and the normalizer handles whatever comes back.
	raw, err := p.send(ctx, system, turns)
	if err != nil {
		return nil, err
	}
	return ParseJSONResponse(raw)
}

func (p *anthropicProvider) SendText(ctx context.Context, system string, turns []Turn) (string, error) {
	return p.send(ctx, system, turns)
}

func (p *anthropicProvider) send(ctx context.Context, system string, turns []Turn) (string, error) {
	endpoint := p.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.cfg.Model,
		System:      system,
		Messages:    turns,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "anthropic: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "anthropic: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "anthropic: request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", newError(classifyStatus(httpResp.StatusCode), "anthropic: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var anthResp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&anthResp); err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "anthropic: decode response")
	}

	var sb strings.Builder
	for _, block := range anthResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", newError(KindParseEmpty, "anthropic: empty content in response")
	}
	return sb.String(), nil
}
