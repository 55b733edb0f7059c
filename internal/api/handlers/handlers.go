// Package handlers implements the HTTP handlers for the Framer backend.
// All handlers use the Store interface; the AI provider is held behind a
// lock so admin config reloads can swap it without a restart.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/framerhq/framer/internal/agents"
	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/internal/coach"
	"github.com/framerhq/framer/internal/config"
	"github.com/framerhq/framer/internal/distill"
	"github.com/framerhq/framer/internal/history"
	"github.com/framerhq/framer/internal/index"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/internal/templates"
	"github.com/framerhq/framer/internal/vectorstore"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store     store.Store
	Vectors   *vectorstore.EmbeddedStore
	History   *history.Tracker
	Index     *index.Index       // nil disables the query index
	Templates *templates.Catalog // nil disables the template catalog
	Config    *config.Config

	mu        sync.RWMutex
	aiCfg     config.AIConfig
	provider  aigw.Provider
	coach     *coach.Coach
	evaluator *agents.Evaluator
	generator *agents.Generator
	refiner   *agents.Refiner
	distiller *distill.Distiller
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, provider aigw.Provider, vectors *vectorstore.EmbeddedStore, hist *history.Tracker, idx *index.Index, tmpl *templates.Catalog, cfg *config.Config) *Handlers {
	h := &Handlers{
		Store:     s,
		Vectors:   vectors,
		History:   hist,
		Index:     idx,
		Templates: tmpl,
		Config:    cfg,
	}
	h.setProvider(cfg.AI, provider)
	return h
}

// setProvider swaps the upstream provider and rebuilds every AI agent
// on top of it. In-flight requests finish on the provider they started
// with.
func (h *Handlers) setProvider(aiCfg config.AIConfig, p aigw.Provider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aiCfg = aiCfg
	h.provider = p
	h.coach = coach.New(p)
	h.evaluator = agents.NewEvaluator(p)
	h.generator = agents.NewGenerator(p)
	h.refiner = agents.NewRefiner(p)
	h.distiller = distill.New(p, h.Store)
}

func (h *Handlers) getDistiller() *distill.Distiller {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.distiller
}

func (h *Handlers) getCoach() *coach.Coach {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.coach
}

func (h *Handlers) getEvaluator() *agents.Evaluator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.evaluator
}

func (h *Handlers) getGenerator() *agents.Generator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generator
}

func (h *Handlers) getRefiner() *agents.Refiner {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.refiner
}

func (h *Handlers) getAIConfig() config.AIConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.aiCfg
}

// ── Health ───────────────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ServiceVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.Config.Version})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps storage errors onto HTTP status codes.
func respondStoreError(w http.ResponseWriter, err error) {
	var notFound *store.ErrNotFound
	var badState *store.ErrBadState
	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &badState):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondAIError reports an upstream AI failure as a bad gateway.
func respondAIError(w http.ResponseWriter, err error) {
	respondError(w, http.StatusBadGateway, "AI service error: "+err.Error())
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func vectorDocument(id, content string, metadata map[string]any) []vectorstore.Document {
	return []vectorstore.Document{{ID: id, Content: content, Metadata: metadata}}
}
