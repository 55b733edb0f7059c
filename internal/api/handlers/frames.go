package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framerhq/framer/internal/besteffort"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Frame Handlers ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type createFrameRequest struct {
	Type      string               `json:"type"`
	Owner     string               `json:"owner"`
	ProjectID string               `json:"project_id"`
	Content   *models.FrameContent `json:"content"`
}

func (h *Handlers) CreateFrame(w http.ResponseWriter, r *http.Request) {
	var req createFrameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	frameType, err := models.ParseFrameType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Owner == "" {
		respondError(w, http.StatusBadRequest, "Frame owner is required")
		return
	}

	now := time.Now().UTC()
	frame := &models.Frame{
		ID:        models.NewFrameID(),
		Type:      frameType,
		Status:    models.FrameStatusDraft,
		Owner:     req.Owner,
		ProjectID: req.ProjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Content != nil {
		frame.Content = *req.Content
	}
	if err := h.Store.CreateFrame(r.Context(), frame); err != nil {
		respondStoreError(w, err)
		return
	}

	h.commitFrameHistory(frame.ID, frame.Owner, "Create frame")
	h.indexFrame(frame)
	h.embedFrame(frame)

	respondJSON(w, http.StatusCreated, frame)
}

func (h *Handlers) GetFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := h.Store.GetFrame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, frame)
}

func (h *Handlers) ListFrames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.FrameFilter{
		Owner:     q.Get("owner"),
		Status:    models.FrameStatus(q.Get("status")),
		Type:      models.FrameType(q.Get("type")),
		ProjectID: q.Get("project_id"),
	}
	frames, err := h.Store.ListFrames(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if frames == nil {
		frames = []models.Frame{}
	}
	respondJSON(w, http.StatusOK, frames)
}

// FrameStats returns frame counts grouped by status, served from the
// query index.
func (h *Handlers) FrameStats(w http.ResponseWriter, r *http.Request) {
	if h.Index == nil {
		respondError(w, http.StatusServiceUnavailable, "frame index not configured")
		return
	}
	counts, err := h.Index.StatusCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

type updateFrameRequest struct {
	Content models.FrameContent `json:"content"`
}

func (h *Handlers) UpdateFrameContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateFrameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Store.UpdateFrameContent(r.Context(), id, req.Content); err != nil {
		respondStoreError(w, err)
		return
	}
	frame, err := h.Store.GetFrame(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.commitFrameHistory(frame.ID, frame.Owner, "Update frame content")
	h.indexFrame(frame)
	h.embedFrame(frame)

	respondJSON(w, http.StatusOK, frame)
}

type updateStatusRequest struct {
	Status   string `json:"status"`
	Reviewer string `json:"reviewer"`
	Approver string `json:"approver"`
}

// UpdateFrameStatus moves a frame through its review lifecycle. The
// store enforces the transition table; disallowed moves come back as
// bad requests.
func (h *Handlers) UpdateFrameStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := models.FrameStatus(req.Status)
	switch status {
	case models.FrameStatusDraft, models.FrameStatusInReview, models.FrameStatusReady,
		models.FrameStatusFeedback, models.FrameStatusArchived:
	default:
		respondError(w, http.StatusBadRequest, "Invalid frame status: "+req.Status)
		return
	}

	if err := h.Store.UpdateFrameStatus(r.Context(), id, status); err != nil {
		respondStoreError(w, err)
		return
	}
	frame, err := h.Store.GetFrame(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	h.indexFrame(frame)
	respondJSON(w, http.StatusOK, frame)
}

func (h *Handlers) DeleteFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteFrame(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	if h.Index != nil {
		besteffort.Do("frame index delete", func() error {
			return h.Index.DeleteFrame(context.Background(), id)
		})
	}
	if h.Vectors != nil {
		besteffort.Do("frame embedding delete", func() error {
			return h.Vectors.Delete(context.Background(), "frames", []string{id})
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// FrameHistory returns the most recent version-history entries for the
// frame data directory.
func (h *Handlers) FrameHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		respondError(w, http.StatusServiceUnavailable, "version history not configured")
		return
	}
	entries, err := h.History.Log(r.Context(), 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// ── Side effects ─────────────────────────────────────────────
//
// History commits, index rows, and embeddings are derived data; keeping
// them fresh is best-effort and never fails the primary write.

func (h *Handlers) commitFrameHistory(frameID, owner, message string) {
	if h.History == nil {
		return
	}
	if owner == "" {
		owner = "system"
	}
	besteffort.Do("frame history commit", func() error {
		// Force the snapshot out before committing; otherwise the commit
		// would stage the pre-mutation file.
		if err := h.Store.Flush(); err != nil {
			return err
		}
		return h.History.Commit(context.Background(), message+" "+frameID+" by "+owner)
	})
}

func (h *Handlers) indexFrame(frame *models.Frame) {
	if h.Index == nil {
		return
	}
	besteffort.Do("frame index upsert", func() error {
		return h.Index.UpsertFrame(context.Background(), frame)
	})
}

func (h *Handlers) embedFrame(frame *models.Frame) {
	if h.Vectors == nil {
		return
	}
	c := frame.Content
	text := strings.TrimSpace(strings.Join([]string{
		c.ProblemStatement, c.UserPerspective, c.EngineeringFraming, c.ValidationThinking,
	}, " "))
	if text == "" {
		return
	}
	doc := vectorDocument(frame.ID, text, map[string]any{
		"type":  string(frame.Type),
		"owner": frame.Owner,
	})
	besteffort.Do("frame embedding upsert", func() error {
		return h.Vectors.Upsert(context.Background(), "frames", doc)
	})
}
