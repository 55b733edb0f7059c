package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/agents"
	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/internal/config"
)

// ══════════════════════════════════════════════════════════════
// ── AI Handlers ──────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// EvaluateFrame scores a frame's content and persists the result as the
// frame's current evaluation.
func (h *Handlers) EvaluateFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	frame, err := h.Store.GetFrame(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	eval, err := h.getEvaluator().Evaluate(r.Context(), agents.RenderFrame(frame.Content))
	if err != nil {
		log.Error().Err(err).Str("frame_id", id).Msg("Frame evaluation failed")
		respondAIError(w, err)
		return
	}
	if err := h.Store.SaveEvaluation(r.Context(), id, eval); err != nil {
		respondStoreError(w, err)
		return
	}

	frame.Evaluation = eval
	h.indexFrame(frame)
	respondJSON(w, http.StatusOK, eval)
}

type generateRequest struct {
	Section string          `json:"section"`
	Answers []agents.Answer `json:"answers"`
}

// GenerateSection drafts content for one frame section from
// questionnaire answers. The draft is returned, not written to the
// frame; the user decides what to keep.
func (h *Handlers) GenerateSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetFrame(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Section == "" {
		respondError(w, http.StatusBadRequest, "Section is required")
		return
	}

	result, err := h.getGenerator().GenerateFromQuestionnaire(r.Context(), req.Section, req.Answers)
	if err != nil {
		log.Error().Err(err).Str("frame_id", id).Msg("Section generation failed")
		respondAIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type refineRequest struct {
	Content     string `json:"content"`
	Instruction string `json:"instruction"`
}

// RefineSection rewrites a piece of frame content per the user's
// instruction. Like generation, the result is returned for the user to
// accept, not written to the frame.
func (h *Handlers) RefineSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetFrame(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Instruction == "" {
		respondError(w, http.StatusBadRequest, "Instruction is required")
		return
	}

	result, err := h.getRefiner().Refine(r.Context(), req.Content, req.Instruction)
	if err != nil {
		log.Error().Err(err).Str("frame_id", id).Msg("Section refinement failed")
		respondAIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// Chat is the free-form refinement assistant used from the frame
// editor.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.getRefiner().Refine(r.Context(), req.Context, req.Message)
	if err != nil {
		log.Error().Err(err).Msg("Chat refinement failed")
		respondAIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"response": result.Content})
}

// ── Admin: AI configuration ──────────────────────────────────

type aiConfigResponse struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key"`
	Endpoint    string  `json:"endpoint,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Timeout     string  `json:"timeout"`
	VerifyTLS   bool    `json:"verify_tls"`
}

func toAIConfigResponse(cfg config.AIConfig) aiConfigResponse {
	return aiConfigResponse{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      maskKey(cfg.APIKey),
		Endpoint:    cfg.Endpoint,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout.String(),
		VerifyTLS:   cfg.VerifyTLS,
	}
}

// maskKey redacts an API key before returning it to API consumers.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > 4 {
		return key[:4] + "****"
	}
	return "****"
}

func (h *Handlers) GetAIConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toAIConfigResponse(h.getAIConfig()))
}

type aiConfigUpdateRequest struct {
	Provider    *string  `json:"provider"`
	Model       *string  `json:"model"`
	APIKey      *string  `json:"api_key"`
	Endpoint    *string  `json:"endpoint"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	Timeout     *string  `json:"timeout"`
	VerifyTLS   *bool    `json:"verify_tls"`
}

func (r *aiConfigUpdateRequest) fields() map[string]any {
	out := map[string]any{}
	if r.Provider != nil {
		out["provider"] = *r.Provider
	}
	if r.Model != nil {
		out["model"] = *r.Model
	}
	if r.APIKey != nil {
		out["api_key"] = *r.APIKey
	}
	if r.Endpoint != nil {
		out["endpoint"] = *r.Endpoint
	}
	if r.Temperature != nil {
		out["temperature"] = *r.Temperature
	}
	if r.MaxTokens != nil {
		out["max_tokens"] = *r.MaxTokens
	}
	if r.Timeout != nil {
		out["timeout"] = *r.Timeout
	}
	if r.VerifyTLS != nil {
		out["verify_tls"] = *r.VerifyTLS
	}
	return out
}

// ReloadAIConfig re-reads the AI provider configuration from its
// sources and swaps the live provider. Used after editing the config
// file out-of-band.
func (h *Handlers) ReloadAIConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.ReloadAIConfig()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	provider, err := aigw.New(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.setProvider(cfg, provider)
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("AI provider configuration reloaded")
	respondJSON(w, http.StatusOK, toAIConfigResponse(cfg))
}

// UpdateAIConfig applies a partial update to the AI provider config
// file, then swaps the live provider so subsequent requests use the new
// settings. In-flight requests finish on the old provider.
func (h *Handlers) UpdateAIConfig(w http.ResponseWriter, r *http.Request) {
	var req aiConfigUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := config.UpdateAIConfigFile(req.fields())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	provider, err := aigw.New(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.setProvider(cfg, provider)
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("AI provider configuration reloaded")
	respondJSON(w, http.StatusOK, toAIConfigResponse(cfg))
}
