package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/pkg/models"
)

// ── Coach ──────────────────────────────────────────────────────────────

// Coach drives the framing conversation: it turns raw user messages
// into state updates, synthesizes frames, and runs review dialogues.
// All model traffic goes through the retry supervisor.
type Coach struct {
	provider aigw.Provider
	retry    *aigw.Supervisor
}

// New builds a Coach over the given provider with the default retry
// supervisor.
func New(provider aigw.Provider) *Coach {
	return &Coach{provider: provider, retry: aigw.NewSupervisor()}
}

// NewWithSupervisor builds a Coach with an explicit supervisor. Used by
// tests to inject deterministic retry timing.
func NewWithSupervisor(provider aigw.Provider, sup *aigw.Supervisor) *Coach {
	return &Coach{provider: provider, retry: sup}
}

// TurnResult is the outcome of one authoring turn.
type TurnResult struct {
	// Reply is the assistant's conversational message.
	Reply string

	// ReplyTranslations holds parallel language variants of Reply,
	// keyed by language code, when the model supplied them.
	ReplyTranslations map[string]string

	// UserTranslations holds translations of the user's latest
	// message, keyed by language code.
	UserTranslations map[string]string

	// State is the merged conversation state after this turn.
	State models.ConversationState

	// KnowledgeRefs are knowledge entries the model flagged as
	// relevant this turn.
	KnowledgeRefs []models.KnowledgeRef

	// Degraded reports that the structured call failed after retries
	// and the reply came from the free-text fallback. State is the
	// previous state, unchanged.
	Degraded bool
}

// ProcessTurn runs one authoring turn: the user's message plus the
// prior transcript and state go to the model, and the structured reply
// is merged field-by-field into the state. If structured parsing keeps
// failing after retries the turn degrades to a free-text reply and the
// state is left untouched.
func (c *Coach) ProcessTurn(ctx context.Context, history []models.Message, state models.ConversationState, userText, knowledgeContext, language string) (*TurnResult, error) {
	system := systemPrompt
	if knowledgeContext != "" {
		system += "\n\nRelevant knowledge from past work:\n" + knowledgeContext
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode conversation state: %w", err)
	}
	system += "\n\nCurrent conversation state:\n" + string(stateJSON)
	system += directiveFor(language)

	turns := toTurns(history)
	turns = append(turns, aigw.Turn{Role: models.RoleUser, Content: userText})

	var parsed map[string]any
	err = c.retry.Do(ctx, func() error {
		var callErr error
		parsed, callErr = c.provider.SendStructured(ctx, system, turns)
		return callErr
	})
	if err != nil {
		if !aigw.IsTransient(err) {
			return nil, err
		}
		// Parsing kept failing: fall back to plain text so the
		// conversation can continue, and leave the state alone.
		log.Warn().Err(err).Msg("structured turn failed after retries, degrading to free text")
		text, textErr := c.provider.SendText(ctx, system, turns)
		if textErr != nil {
			return nil, textErr
		}
		return &TurnResult{Reply: text, State: state.Clone(), Degraded: true}, nil
	}

	result := &TurnResult{
		Reply:             stringField(parsed, "response"),
		ReplyTranslations: translations(parsed, "response_en", "response_zh"),
		UserTranslations:  translations(parsed, "user_message_en", "user_message_zh"),
		State:             mergeState(state, parsed["updated_state"]),
		KnowledgeRefs:     normalizeKnowledgeRefs(parsed["relevant_knowledge"]),
	}
	return result, nil
}

// SynthesizeFrame reduces a finished conversation into frame content.
// Unlike ProcessTurn there is no degradation path: a terminal call
// that cannot produce structure is a hard failure.
func (c *Coach) SynthesizeFrame(ctx context.Context, history []models.Message, state models.ConversationState, language string) (models.FrameContent, error) {
	extracted, err := json.Marshal(state.ExtractedContent)
	if err != nil {
		return models.FrameContent{}, fmt.Errorf("encode extracted content: %w", err)
	}
	prompt := strings.NewReplacer(
		"{messages}", transcript(history),
		"{extracted_content}", string(extracted),
	).Replace(synthesizePrompt)

	system := synthesizeSystemPrompt + directiveFor(language)
	turns := []aigw.Turn{{Role: models.RoleUser, Content: prompt}}

	var parsed map[string]any
	err = c.retry.Do(ctx, func() error {
		var callErr error
		parsed, callErr = c.provider.SendStructured(ctx, system, turns)
		return callErr
	})
	if err != nil {
		return models.FrameContent{}, fmt.Errorf("synthesize frame: %w", err)
	}

	content := models.FrameContent{
		ProblemStatement:   stringField(parsed, models.SectionProblemStatement),
		RootCause:          stringField(parsed, models.SectionRootCause),
		UserPerspective:    stringField(parsed, models.SectionUserPerspective),
		EngineeringFraming: stringField(parsed, models.SectionEngineeringFraming),
		ValidationThinking: stringField(parsed, models.SectionValidationThinking),
	}
	for _, section := range models.FrameSections {
		tr := translations(parsed, section+"_en", section+"_zh")
		for lang, text := range tr {
			content.SetTranslation(lang, section, text)
		}
	}
	return content, nil
}

// ProcessReviewTurn runs one turn of a review dialogue. The frame is
// read-only context, the reply is free text, and no state is produced.
func (c *Coach) ProcessReviewTurn(ctx context.Context, history []models.Message, userText, frameContext, language string) (string, error) {
	system := strings.Replace(reviewSystemPrompt, "{frame_content}", frameContext, 1)
	system += directiveFor(language)

	turns := toTurns(history)
	turns = append(turns, aigw.Turn{Role: models.RoleUser, Content: userText})

	reply, err := c.provider.SendText(ctx, system, turns)
	if err != nil {
		return "", fmt.Errorf("review turn: %w", err)
	}
	return reply, nil
}

// SummarizeReview reduces a review dialogue into a structured verdict.
// A missing recommendation defaults to revise; an unrecognized one is
// rejected.
func (c *Coach) SummarizeReview(ctx context.Context, history []models.Message, language string) (models.ReviewSummary, error) {
	prompt := strings.Replace(summarizeReviewPrompt, "{messages}", transcript(history), 1)
	system := synthesizeSystemPrompt + directiveFor(language)
	turns := []aigw.Turn{{Role: models.RoleUser, Content: prompt}}

	var parsed map[string]any
	err := c.retry.Do(ctx, func() error {
		var callErr error
		parsed, callErr = c.provider.SendStructured(ctx, system, turns)
		return callErr
	})
	if err != nil {
		return models.ReviewSummary{}, fmt.Errorf("summarize review: %w", err)
	}

	summary := models.ReviewSummary{
		Summary:        stringField(parsed, "summary"),
		Recommendation: stringField(parsed, "recommendation"),
		Comments:       normalizeComments(parsed["comments"]),
	}
	if summary.Recommendation == "" {
		summary.Recommendation = models.RecommendationRevise
	}
	if err := summary.Validate(); err != nil {
		return models.ReviewSummary{}, fmt.Errorf("summarize review: %w", err)
	}
	return summary, nil
}

// ── Prompt assembly helpers ────────────────────────────────────────────

func directiveFor(language string) string {
	name, ok := languageNames[language]
	if !ok {
		return ""
	}
	return fmt.Sprintf(languageDirective, name)
}

func toTurns(history []models.Message) []aigw.Turn {
	turns := make([]aigw.Turn, 0, len(history)+1)
	for _, m := range history {
		turns = append(turns, aigw.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func transcript(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// ── Response normalization ─────────────────────────────────────────────

// mergeState folds the model's updated_state into the previous state
// field by field. Any field that is missing or has the wrong shape
// keeps its previous value, so one sloppy reply never wipes
// accumulated progress.
func mergeState(prev models.ConversationState, raw any) models.ConversationState {
	next := prev.Clone()
	m, ok := raw.(map[string]any)
	if !ok {
		return next
	}

	if s, ok := m["frame_type"].(string); ok {
		if ft, err := models.ParseFrameType(s); err == nil {
			next.FrameType = string(ft)
		}
	}
	if covered, ok := m["sections_covered"].(map[string]any); ok {
		merged := make(map[string]float64, len(next.SectionsCovered))
		for k, v := range next.SectionsCovered {
			merged[k] = v
		}
		for k, v := range covered {
			if f, ok := toFloat(v); ok {
				merged[k] = f
			}
		}
		next.SectionsCovered = merged
	}
	if extracted, ok := m["extracted_content"].(map[string]any); ok {
		merged := make(map[string]string, len(next.ExtractedContent))
		for k, v := range next.ExtractedContent {
			merged[k] = v
		}
		for k, v := range extracted {
			if s, ok := v.(string); ok {
				merged[k] = s
			}
		}
		next.ExtractedContent = merged
	}
	if rawGaps, ok := m["gaps"].([]any); ok {
		gaps := make([]string, 0, len(rawGaps))
		for _, g := range rawGaps {
			if s, ok := g.(string); ok {
				gaps = append(gaps, s)
			}
		}
		next.Gaps = gaps
	}
	if ready, ok := m["ready_to_synthesize"].(bool); ok {
		next.ReadyToSynthesize = ready
	}
	return next
}

// normalizeKnowledgeRefs accepts both shapes models actually emit:
// bare strings and {id, content, metadata} objects.
func normalizeKnowledgeRefs(raw any) []models.KnowledgeRef {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	refs := make([]models.KnowledgeRef, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v != "" {
				refs = append(refs, models.KnowledgeRef{Content: v})
			}
		case map[string]any:
			ref := models.KnowledgeRef{
				ID:      stringField(v, "id"),
				Content: stringField(v, "content"),
			}
			if md, ok := v["metadata"].(map[string]any); ok {
				ref.Metadata = md
			}
			if ref.ID != "" || ref.Content != "" {
				refs = append(refs, ref)
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

func normalizeComments(raw any) []models.ReviewComment {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	comments := make([]models.ReviewComment, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := models.ReviewComment{
			Section:  stringField(m, "section"),
			Comment:  stringField(m, "comment"),
			Severity: stringField(m, "severity"),
		}
		if c.Comment != "" {
			comments = append(comments, c)
		}
	}
	return comments
}

func translations(m map[string]any, enKey, zhKey string) map[string]string {
	out := map[string]string{}
	if s := stringField(m, enKey); s != "" {
		out["en"] = s
	}
	if s := stringField(m, zhKey); s != "" {
		out["zh"] = s
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
