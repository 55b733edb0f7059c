package agents

import (
	"context"
	"fmt"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/pkg/models"
)

// RefinementResult is the coerced output of a refinement call.
type RefinementResult struct {
	Content string   `json:"content"`
	Changes []string `json:"changes"`
}

// Refiner rewrites content per user instructions. Besides one-shot
// refinement it supports an iterative mode that carries a private
// rolling history across calls — distinct from any conversation's
// message list.
type Refiner struct {
	agent
	Template string

	history []aigw.Turn
}

// NewRefiner builds a Refiner over the default refinement template.
func NewRefiner(provider aigw.Provider) *Refiner {
	return &Refiner{agent: newAgent(provider), Template: RefinePrompt}
}

// Refine runs a one-shot refinement of content against an instruction.
// A reply that omits the refined text falls back to the original
// content unchanged.
func (r *Refiner) Refine(ctx context.Context, content, instruction string) (*RefinementResult, error) {
	prompt := BuildPrompt(r.Template, map[string]string{
		"content":     content,
		"instruction": instruction,
	})
	parsed, err := r.callStructured(ctx, refineSystem, []aigw.Turn{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("refine content: %w", err)
	}

	result := &RefinementResult{
		Content: strField(parsed, "content"),
		Changes: strList(parsed, "changes"),
	}
	if result.Content == "" {
		result.Content = content
	}
	return result, nil
}

// RefineWithHistory refines iteratively: the private history plus the
// new instruction go to the model, and on success both the instruction
// and the refined content are appended to the history for the next
// round.
func (r *Refiner) RefineWithHistory(ctx context.Context, instruction string) (*RefinementResult, error) {
	turns := make([]aigw.Turn, 0, len(r.history)+1)
	turns = append(turns, r.history...)
	turns = append(turns, aigw.Turn{Role: models.RoleUser, Content: instruction})

	parsed, err := r.callStructured(ctx, historySystem, turns)
	if err != nil {
		return nil, fmt.Errorf("refine with history: %w", err)
	}

	result := &RefinementResult{
		Content: strField(parsed, "content"),
		Changes: strList(parsed, "changes"),
	}
	r.history = append(r.history,
		aigw.Turn{Role: models.RoleUser, Content: instruction},
		aigw.Turn{Role: models.RoleAssistant, Content: result.Content},
	)
	return result, nil
}

// ClearHistory resets the private refinement history.
func (r *Refiner) ClearHistory() {
	r.history = nil
}
