package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/pkg/models"
)

// Evaluator scores frame quality and produces actionable feedback.
type Evaluator struct {
	agent
	Template string
}

// NewEvaluator builds an Evaluator over the default rubric template.
func NewEvaluator(provider aigw.Provider) *Evaluator {
	return &Evaluator{agent: newAgent(provider), Template: EvaluatePrompt}
}

// Evaluate scores rendered frame content. Missing response fields fall
// back to zero values, but an out-of-range score is rejected outright:
// the [0,100] bound is a correctness contract, never clamped.
func (e *Evaluator) Evaluate(ctx context.Context, frameContent string) (*models.Evaluation, error) {
	prompt := BuildPrompt(e.Template, map[string]string{"frame_content": frameContent})
	parsed, err := e.callStructured(ctx, evaluateSystem, []aigw.Turn{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("evaluate frame: %w", err)
	}

	eval := &models.Evaluation{
		Score:       intField(parsed, "score"),
		Breakdown:   intMap(parsed, "breakdown"),
		Feedback:    strField(parsed, "feedback"),
		Issues:      strList(parsed, "issues"),
		EvaluatedAt: time.Now().UTC(),
	}
	if err := eval.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate frame: %w", err)
	}
	return eval, nil
}

// RenderFrame flattens frame content into the markdown document the
// rubric scores. The root cause heading only appears when the section
// has content.
func RenderFrame(content models.FrameContent) string {
	rootCause := ""
	if content.RootCause != "" {
		rootCause = fmt.Sprintf("\n## Root Cause\n%s\n", content.RootCause)
	}
	return fmt.Sprintf(`# Problem Statement
%s
%s
## User Perspective
%s

## Engineering Framing
%s

## Validation Thinking
%s
`, content.ProblemStatement, rootCause, content.UserPerspective, content.EngineeringFraming, content.ValidationThinking)
}
