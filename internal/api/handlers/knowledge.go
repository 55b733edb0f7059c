package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framerhq/framer/internal/besteffort"
	"github.com/framerhq/framer/internal/vectorstore"
	"github.com/framerhq/framer/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Knowledge Handlers ───────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type createKnowledgeRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Source   string   `json:"source"`
	SourceID string   `json:"source_id"`
	TeamID   string   `json:"team_id"`
	Author   string   `json:"author"`
	Tags     []string `json:"tags"`
}

func (h *Handlers) CreateKnowledge(w http.ResponseWriter, r *http.Request) {
	var req createKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	category, err := models.ParseKnowledgeCategory(req.Category)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "Knowledge title and content are required")
		return
	}
	source := models.KnowledgeSourceManual
	if req.Source != "" {
		source = models.KnowledgeSource(req.Source)
	}

	now := time.Now().UTC()
	entry := &models.KnowledgeEntry{
		ID:        models.NewKnowledgeID(),
		Title:     req.Title,
		Content:   req.Content,
		Category:  category,
		Source:    source,
		SourceID:  req.SourceID,
		TeamID:    req.TeamID,
		Author:    req.Author,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.CreateKnowledge(r.Context(), entry); err != nil {
		respondStoreError(w, err)
		return
	}
	h.embedKnowledge(entry)
	respondJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	category := models.KnowledgeCategory(r.URL.Query().Get("category"))
	entries, err := h.Store.ListKnowledge(r.Context(), category)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []models.KnowledgeEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handlers) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Store.GetKnowledge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

type updateKnowledgeRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

// UpdateKnowledge applies a partial update; absent fields keep their
// current values.
func (h *Handlers) UpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Store.GetKnowledge(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.Category != nil {
		category, err := models.ParseKnowledgeCategory(*req.Category)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		entry.Category = category
	}
	if req.Tags != nil {
		entry.Tags = *req.Tags
	}

	if err := h.Store.UpdateKnowledge(r.Context(), entry); err != nil {
		respondStoreError(w, err)
		return
	}
	h.embedKnowledge(entry)
	respondJSON(w, http.StatusOK, entry)
}

func (h *Handlers) DeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteKnowledge(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	if h.Vectors != nil {
		besteffort.Do("knowledge embedding delete", func() error {
			return h.Vectors.Delete(context.Background(), "knowledge", []string{id})
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchKnowledgeRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SearchKnowledge runs a semantic search over the knowledge base. A
// search failure returns an empty result set, not an error.
func (h *Handlers) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	var req searchKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	results := []vectorstore.SearchResult{}
	if h.Vectors != nil {
		results = besteffort.Value(r.Context(), "knowledge search", results, func(ctx context.Context) ([]vectorstore.SearchResult, error) {
			return h.Vectors.Search(ctx, req.Query, "knowledge", req.Limit)
		})
	}
	respondJSON(w, http.StatusOK, results)
}

type distillRequest struct {
	FrameID        string `json:"frame_id"`
	Feedback       string `json:"feedback"`
	ConversationID string `json:"conversation_id"`
}

// DistillKnowledge extracts reusable knowledge entries from frame
// feedback or a whole conversation and stores them.
func (h *Handlers) DistillKnowledge(w http.ResponseWriter, r *http.Request) {
	var req distillRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var content string
	source := models.KnowledgeSourceFeedback
	sourceID := req.FrameID

	switch {
	case req.FrameID != "" && req.Feedback != "":
		content = "Feedback: " + req.Feedback
		// The frame gives the feedback its setting; distillation still
		// proceeds if the frame is gone.
		if frame, err := h.Store.GetFrame(r.Context(), req.FrameID); err == nil {
			content = "Frame: " + frame.Content.ProblemStatement + "\n" + content
		}
	case req.ConversationID != "":
		source = models.KnowledgeSourceConversation
		sourceID = req.ConversationID
		conv, err := h.Store.GetConversation(r.Context(), req.ConversationID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Could not load conversation")
			return
		}
		lines := make([]string, 0, len(conv.Messages))
		for _, m := range conv.Messages {
			lines = append(lines, m.Role+": "+m.Content)
		}
		content = strings.Join(lines, "\n")
	}

	if content == "" {
		respondError(w, http.StatusBadRequest, "No content to distill from")
		return
	}

	entries, err := h.getDistiller().Distill(r.Context(), content, source, sourceID)
	if err != nil {
		respondAIError(w, err)
		return
	}
	for i := range entries {
		h.embedKnowledge(&entries[i])
	}
	if entries == nil {
		entries = []models.KnowledgeEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// embedKnowledge keeps the semantic index in step with the entry. The
// entry id rides along in metadata so search hits can be traced back.
func (h *Handlers) embedKnowledge(entry *models.KnowledgeEntry) {
	if h.Vectors == nil {
		return
	}
	doc := vectorDocument(entry.ID, entry.Title+"\n"+entry.Content, map[string]any{
		"id":       entry.ID,
		"category": string(entry.Category),
		"author":   entry.Author,
	})
	besteffort.Do("knowledge embedding upsert", func() error {
		return h.Vectors.Upsert(context.Background(), "knowledge", doc)
	})
}
