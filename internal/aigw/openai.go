package aigw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/framerhq/framer/internal/config"
)

// openAIProvider speaks the OpenAI chat-completions wire format, which
// also covers Azure OpenAI, OpenRouter, Ollama, and self-hosted
// OpenAI-compatible endpoints.
type openAIProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []Turn          `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) Family() string { return "openai" }

func (p *openAIProvider) SendStructured(ctx context.Context, system string, turns []Turn) (map[string]any, error) {
	raw, err := p.send(ctx, system, turns, true)
	if err != nil {
		return nil, err
	}
	return ParseJSONResponse(raw)
}

func (p *openAIProvider) SendText(ctx context.Context, system string, turns []Turn) (string, error) {
	return p.send(ctx, system, turns, false)
}

func (p *openAIProvider) send(ctx context.Context, system string, turns []Turn, structured bool) (string, error) {
	endpoint := p.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	messages := make([]Turn, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, Turn{Role: "system", Content: system})
	}
	messages = append(messages, turns...)

	reqBody := openAIRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	if structured {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "openai: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "openai: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		if p.cfg.Provider == "azure-openai" {
			httpReq.Header.Set("api-key", p.cfg.APIKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		}
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "openai: request failed")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", newError(classifyStatus(httpResp.StatusCode), "openai: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return "", wrapError(KindUpstreamConnectivity, err, "openai: decode response")
	}

	if len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message.Content == "" {
		return "", newError(KindParseEmpty, "openai: empty content in response")
	}
	return oaiResp.Choices[0].Message.Content, nil
}
