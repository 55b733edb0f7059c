package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/agents"
	"github.com/framerhq/framer/internal/api/middleware"
	"github.com/framerhq/framer/internal/besteffort"
	"github.com/framerhq/framer/internal/coach"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Conversation Handlers ────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type startConversationRequest struct {
	Owner     string `json:"owner"`
	Purpose   string `json:"purpose"`
	FrameID   string `json:"frame_id"`
	ProjectID string `json:"project_id"`
}

// StartConversation opens a new conversation in the active state with a
// zeroed coverage state.
func (h *Handlers) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" {
		req.Owner = middleware.Owner(r.Context())
	}

	purpose := models.PurposeAuthoring
	if req.Purpose != "" {
		switch models.ConversationPurpose(req.Purpose) {
		case models.PurposeAuthoring, models.PurposeReview:
			purpose = models.ConversationPurpose(req.Purpose)
		default:
			respondError(w, http.StatusBadRequest, "Invalid conversation purpose: "+req.Purpose)
			return
		}
	}
	if purpose == models.PurposeReview && req.FrameID == "" {
		respondError(w, http.StatusBadRequest, "Review conversations require a frame_id")
		return
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        models.NewConversationID(),
		Owner:     req.Owner,
		Purpose:   purpose,
		Status:    models.ConversationActive,
		FrameID:   req.FrameID,
		ProjectID: req.ProjectID,
		Messages:  []models.Message{},
		State:     models.NewConversationState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.CreateConversation(r.Context(), conv); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

type conversationListItem struct {
	ID           string                     `json:"id"`
	Owner        string                     `json:"owner"`
	Status       models.ConversationStatus  `json:"status"`
	Purpose      models.ConversationPurpose `json:"purpose"`
	FrameID      string                     `json:"frame_id,omitempty"`
	ProjectID    string                     `json:"project_id,omitempty"`
	MessageCount int                        `json:"message_count"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ConversationFilter{
		Owner:   q.Get("owner"),
		Purpose: models.ConversationPurpose(q.Get("purpose")),
		Status:  models.ConversationStatus(q.Get("status")),
		FrameID: q.Get("frame_id"),
	}
	convs, err := h.Store.ListConversations(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	items := make([]conversationListItem, 0, len(convs))
	for _, c := range convs {
		items = append(items, conversationListItem{
			ID:           c.ID,
			Owner:        c.Owner,
			Status:       c.Status,
			Purpose:      c.Purpose,
			FrameID:      c.FrameID,
			ProjectID:    c.ProjectID,
			MessageCount: len(c.Messages),
			UpdatedAt:    c.UpdatedAt,
		})
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.Store.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

type sendMessageRequest struct {
	Content    string `json:"content"`
	SenderName string `json:"sender_name"`
	Language   string `json:"language"`
}

type sendMessageResponse struct {
	Message    *models.Message          `json:"message"`
	AIResponse *models.Message          `json:"ai_response"`
	State      models.ConversationState `json:"state"`

	// CoverageComplete is the audit view of readiness: every applicable
	// section at or above the coverage threshold. The model's own
	// ready_to_synthesize flag can disagree with it.
	CoverageComplete bool `json:"coverage_complete"`

	RelevantKnowledge []models.KnowledgeRef `json:"relevant_knowledge"`
}

// SendMessage runs one dialogue turn. The AI call happens before any
// persistence so a failed call cannot leave a half-written turn behind;
// messages and state are only saved once the model has answered.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "Message content is required")
		return
	}

	conv, err := h.Store.GetConversation(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	// A synthesized conversation reactivates on a new message; its
	// accumulated state carries over. Abandoned conversations do not.
	if conv.Status == models.ConversationSynthesized {
		if err := h.Store.UpdateConversationStatus(r.Context(), id, models.ConversationActive); err != nil {
			respondStoreError(w, err)
			return
		}
		conv.Status = models.ConversationActive
	} else if conv.Status != models.ConversationActive {
		respondError(w, http.StatusBadRequest, "Conversation is not active")
		return
	}

	knowledgeContext := h.searchKnowledgeContext(r.Context(), req.Content)

	var result *coach.TurnResult
	if conv.Purpose == models.PurposeReview {
		reply, err := h.getCoach().ProcessReviewTurn(r.Context(), conv.Messages, req.Content, h.reviewFrameContext(r.Context(), conv.FrameID), req.Language)
		if err != nil {
			log.Error().Err(err).Str("conversation_id", id).Msg("Review turn failed")
			respondAIError(w, err)
			return
		}
		result = &coach.TurnResult{Reply: reply, State: conv.State.Clone()}
	} else {
		result, err = h.getCoach().ProcessTurn(r.Context(), conv.Messages, conv.State, req.Content, knowledgeContext, req.Language)
		if err != nil {
			log.Error().Err(err).Str("conversation_id", id).Msg("Authoring turn failed")
			respondAIError(w, err)
			return
		}
	}

	userMsg, err := h.Store.AddMessage(r.Context(), id, models.Message{
		Role:         models.RoleUser,
		Content:      req.Content,
		SenderName:   req.SenderName,
		Translations: result.UserTranslations,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	assistantMsg := models.Message{
		Role:         models.RoleAssistant,
		Content:      result.Reply,
		Translations: result.ReplyTranslations,
	}
	if result.Degraded {
		assistantMsg.Metadata = map[string]any{"degraded": true}
	}
	aiMsg, err := h.Store.AddMessage(r.Context(), id, assistantMsg)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	// A degraded turn produced no structured state; keep the old one.
	if conv.Purpose == models.PurposeAuthoring && !result.Degraded {
		if err := h.Store.UpdateState(r.Context(), id, result.State); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	refs := result.KnowledgeRefs
	if refs == nil {
		refs = []models.KnowledgeRef{}
	}
	covered := result.State.CoverageComplete()
	if conv.Purpose == models.PurposeAuthoring {
		log.Debug().
			Str("conversation_id", id).
			Bool("coverage_complete", covered).
			Bool("ready_to_synthesize", result.State.ReadyToSynthesize).
			Msg("Turn processed")
	}
	respondJSON(w, http.StatusOK, sendMessageResponse{
		Message:           userMsg,
		AIResponse:        aiMsg,
		State:             result.State,
		CoverageComplete:  covered,
		RelevantKnowledge: refs,
	})
}

// searchKnowledgeContext looks up advisory knowledge for a turn. The
// lookup degrades to no context; it never fails the turn.
func (h *Handlers) searchKnowledgeContext(ctx context.Context, query string) string {
	if h.Vectors == nil {
		return ""
	}
	return besteffort.Value(ctx, "knowledge search", "", func(ctx context.Context) (string, error) {
		results, err := h.Vectors.Search(ctx, query, "knowledge", 3)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(results))
		for _, res := range results {
			lines = append(lines, "- "+res.Content)
		}
		return strings.Join(lines, "\n"), nil
	})
}

// reviewFrameContext renders the frame under review for the coach. A
// missing or unreadable frame yields a placeholder rather than an error
// so the review dialogue can still proceed.
func (h *Handlers) reviewFrameContext(ctx context.Context, frameID string) string {
	if frameID == "" {
		return "(Frame content unavailable)"
	}
	frame, err := h.Store.GetFrame(ctx, frameID)
	if err != nil {
		log.Warn().Err(err).Str("frame_id", frameID).Msg("Review frame lookup failed")
		return "(Frame content unavailable)"
	}
	return agents.RenderFrame(frame.Content)
}

// PreviewFrame synthesizes frame content without persisting anything.
func (h *Handlers) PreviewFrame(w http.ResponseWriter, r *http.Request) {
	conv, err := h.Store.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if conv.Status != models.ConversationActive && conv.Status != models.ConversationSynthesized {
		respondError(w, http.StatusBadRequest, "Conversation is not active")
		return
	}

	content, err := h.getCoach().SynthesizeFrame(r.Context(), conv.Messages, conv.State, "")
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conv.ID).Msg("Preview synthesis failed")
		respondAIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]models.FrameContent{"content": content})
}

type synthesizeRequest struct {
	// Content, when set, is pre-computed frame content from a preview
	// the user accepted; synthesis is skipped.
	Content *models.FrameContent `json:"content"`
}

type synthesizeResponse struct {
	FrameID string              `json:"frame_id"`
	Content models.FrameContent `json:"content"`
}

// SynthesizeFrame reduces the conversation into a frame, creating it on
// first synthesis and updating the linked frame on re-synthesis.
func (h *Handlers) SynthesizeFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.Store.GetConversation(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if conv.Status != models.ConversationActive && conv.Status != models.ConversationSynthesized {
		respondError(w, http.StatusBadRequest, "Conversation is not active")
		return
	}

	var req synthesizeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var content models.FrameContent
	if req.Content != nil {
		content = *req.Content
	} else {
		content, err = h.getCoach().SynthesizeFrame(r.Context(), conv.Messages, conv.State, "")
		if err != nil {
			log.Error().Err(err).Str("conversation_id", id).Msg("Synthesis failed")
			respondAIError(w, err)
			return
		}
	}

	frameType := models.FrameTypeFeature
	if ft, err := models.ParseFrameType(conv.State.FrameType); err == nil {
		frameType = ft
	}

	frame, isUpdate, err := h.upsertSynthesizedFrame(r.Context(), conv, frameType, content)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if err := h.Store.UpdateConversationStatus(r.Context(), id, models.ConversationSynthesized); err != nil {
		respondStoreError(w, err)
		return
	}

	h.commitFrameHistory(frame.ID, conv.Owner, synthesisCommitMessage(isUpdate))
	h.indexFrame(frame)
	h.embedFrame(frame)
	h.autoEvaluate(frame)

	respondJSON(w, http.StatusOK, synthesizeResponse{FrameID: frame.ID, Content: content})
}

// upsertSynthesizedFrame updates the conversation's linked frame, or
// creates and links a new one when none exists (or the linked frame was
// deleted out from under us).
func (h *Handlers) upsertSynthesizedFrame(ctx context.Context, conv *models.Conversation, frameType models.FrameType, content models.FrameContent) (*models.Frame, bool, error) {
	if conv.FrameID != "" {
		if err := h.Store.UpdateFrameContent(ctx, conv.FrameID, content); err == nil {
			frame, err := h.Store.GetFrame(ctx, conv.FrameID)
			return frame, true, err
		}
	}

	now := time.Now().UTC()
	frame := &models.Frame{
		ID:        models.NewFrameID(),
		Type:      frameType,
		Status:    models.FrameStatusDraft,
		Owner:     conv.Owner,
		ProjectID: conv.ProjectID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.CreateFrame(ctx, frame); err != nil {
		return nil, false, err
	}
	if err := h.Store.LinkFrame(ctx, conv.ID, frame.ID); err != nil {
		return nil, false, err
	}
	return frame, false, nil
}

func synthesisCommitMessage(isUpdate bool) string {
	if isUpdate {
		return "Re-synthesize frame from conversation"
	}
	return "Synthesize frame from conversation"
}

// autoEvaluate scores a freshly synthesized frame so its page shows a
// quality score immediately. Failures only cost the score.
func (h *Handlers) autoEvaluate(frame *models.Frame) {
	evaluator := h.getEvaluator()
	besteffort.Go("auto evaluation", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), h.getAIConfig().Timeout)
		defer cancel()
		eval, err := evaluator.Evaluate(ctx, agents.RenderFrame(frame.Content))
		if err != nil {
			return err
		}
		return h.Store.SaveEvaluation(ctx, frame.ID, eval)
	})
}

// SummarizeReview condenses a review conversation into a verdict and
// attaches it to the reviewed frame.
func (h *Handlers) SummarizeReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.Store.GetConversation(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if conv.Purpose != models.PurposeReview {
		respondError(w, http.StatusBadRequest, "Only review conversations can be summarized")
		return
	}

	summary, err := h.getCoach().SummarizeReview(r.Context(), conv.Messages, "")
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Review summarization failed")
		respondAIError(w, err)
		return
	}

	if conv.FrameID != "" {
		besteffort.Do("save review summary", func() error {
			return h.Store.SaveReviewSummary(r.Context(), conv.FrameID, &summary, conv.Owner)
		})
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
