package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/framerhq/framer/internal/templates"
)

// ══════════════════════════════════════════════════════════════
// ── Template Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type templateListItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type templateResponse struct {
	Name          string                   `json:"name"`
	Type          string                   `json:"type"`
	Description   string                   `json:"description"`
	Sections      []templates.Section      `json:"sections"`
	Questionnaire *templates.Questionnaire `json:"questionnaire"`
	Prompts       []string                 `json:"prompts"`
}

func toTemplateResponse(tmpl *templates.Template) templateResponse {
	prompts := make([]string, 0, len(tmpl.Prompts))
	for name := range tmpl.Prompts {
		prompts = append(prompts, name)
	}
	sort.Strings(prompts)
	return templateResponse{
		Name:          tmpl.Name,
		Type:          string(tmpl.Type),
		Description:   tmpl.Description,
		Sections:      tmpl.Sections,
		Questionnaire: tmpl.Questionnaire,
		Prompts:       prompts,
	}
}

// ListTemplates returns every frame template in the catalog.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if h.Templates == nil {
		respondError(w, http.StatusServiceUnavailable, "templates not configured")
		return
	}
	all, err := h.Templates.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]templateListItem, 0, len(all))
	for _, tmpl := range all {
		items = append(items, templateListItem{
			Name:        tmpl.Name,
			Type:        string(tmpl.Type),
			Description: tmpl.Description,
		})
	}
	respondJSON(w, http.StatusOK, items)
}

// GetTemplate returns one template by its directory name.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	if h.Templates == nil {
		respondError(w, http.StatusServiceUnavailable, "templates not configured")
		return
	}
	name := chi.URLParam(r, "name")
	tmpl, err := h.Templates.Load(name)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Template not found: "+name)
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}
