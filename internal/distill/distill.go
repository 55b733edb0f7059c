// Package distill turns finished work — frame feedback, framing
// conversations — into reusable knowledge entries. Long inputs are
// chunked so each extraction call stays within a bounded context.
package distill

import (
	"context"
	"strings"
	"time"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

const distillSystem = "Extract knowledge entries from content. Respond with JSON."

const distillPrompt = `Extract reusable knowledge from this content. For each learning, provide:
- title: short descriptive title
- content: the full learning or pattern
- category: one of (pattern, decision, prediction, context, lesson)
- tags: relevant tags

Content:
{content}

Respond with JSON:
{"entries": [{"title": "...", "content": "...", "category": "...", "tags": ["..."]}]}`

// Distiller extracts knowledge entries from raw text and persists
// them.
type Distiller struct {
	provider aigw.Provider
	retry    *aigw.Supervisor
	store    store.KnowledgeStore
}

// New builds a Distiller with the default retry supervisor.
func New(provider aigw.Provider, s store.KnowledgeStore) *Distiller {
	return &Distiller{provider: provider, retry: aigw.NewSupervisor(), store: s}
}

// NewWithSupervisor builds a Distiller with an explicit supervisor.
func NewWithSupervisor(provider aigw.Provider, sup *aigw.Supervisor, s store.KnowledgeStore) *Distiller {
	return &Distiller{provider: provider, retry: sup, store: s}
}

// Distill extracts knowledge entries from content and stores each one,
// attributed to the AI and traced back to its source. A failed
// extraction call fails the whole operation; entries already stored
// from earlier chunks stay.
func (d *Distiller) Distill(ctx context.Context, content string, source models.KnowledgeSource, sourceID string) ([]models.KnowledgeEntry, error) {
	var entries []models.KnowledgeEntry
	for _, chunk := range chunkText(content) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		prompt := strings.ReplaceAll(distillPrompt, "{content}", chunk)

		var parsed map[string]any
		err := d.retry.Do(ctx, func() error {
			var callErr error
			parsed, callErr = d.provider.SendStructured(ctx, distillSystem, []aigw.Turn{
				{Role: models.RoleUser, Content: prompt},
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, entry := range parseEntries(parsed, source, sourceID) {
			if err := d.store.CreateKnowledge(ctx, &entry); err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// parseEntries normalizes the model's entry list. Unknown categories
// coerce to lesson rather than dropping the learning.
func parseEntries(parsed map[string]any, source models.KnowledgeSource, sourceID string) []models.KnowledgeEntry {
	items, ok := parsed["entries"].([]any)
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	var out []models.KnowledgeEntry
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content, _ := item["content"].(string)
		if strings.TrimSpace(content) == "" {
			continue
		}
		title, _ := item["title"].(string)
		if title == "" {
			title = "Untitled"
		}
		category := models.KnowledgeLesson
		if s, ok := item["category"].(string); ok {
			if parsed, err := models.ParseKnowledgeCategory(s); err == nil {
				category = parsed
			}
		}
		var tags []string
		if rawTags, ok := item["tags"].([]any); ok {
			for _, t := range rawTags {
				if s, ok := t.(string); ok && s != "" {
					tags = append(tags, s)
				}
			}
		}
		out = append(out, models.KnowledgeEntry{
			ID:        models.NewKnowledgeID(),
			Title:     title,
			Content:   content,
			Category:  category,
			Source:    source,
			SourceID:  sourceID,
			Author:    "ai",
			Tags:      tags,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}
