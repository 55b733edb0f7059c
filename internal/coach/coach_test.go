package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/pkg/models"
)

// fakeProvider scripts structured and text responses and records the
// prompts it received.
type fakeProvider struct {
	structured     []map[string]any
	structuredErrs []error
	structuredCall int

	textReply string
	textErr   error
	textCalls int

	lastSystem string
	lastTurns  []aigw.Turn
}

func (f *fakeProvider) Family() string { return "fake" }

func (f *fakeProvider) SendStructured(ctx context.Context, system string, turns []aigw.Turn) (map[string]any, error) {
	f.lastSystem = system
	f.lastTurns = turns
	i := f.structuredCall
	f.structuredCall++
	if i < len(f.structuredErrs) && f.structuredErrs[i] != nil {
		return nil, f.structuredErrs[i]
	}
	if i < len(f.structured) {
		return f.structured[i], nil
	}
	return nil, errors.New("no scripted response")
}

func (f *fakeProvider) SendText(ctx context.Context, system string, turns []aigw.Turn) (string, error) {
	f.lastSystem = system
	f.lastTurns = turns
	f.textCalls++
	return f.textReply, f.textErr
}

// fastSupervisor keeps retry delays negligible in tests.
func fastSupervisor() *aigw.Supervisor {
	return &aigw.Supervisor{MaxRetries: 1, BaseDelay: time.Millisecond}
}

func transientErr() error {
	_, err := aigw.ParseJSONResponse(`{"a": [1, 2`)
	return err
}

func TestProcessTurn_MergesState(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{
		"response": "Got it. What makes you think the cache is involved?",
		"updated_state": map[string]any{
			"frame_type": "bug",
			"sections_covered": map[string]any{
				models.SectionProblemStatement: 0.8,
				models.SectionRootCause:        0.3,
			},
			"extracted_content": map[string]any{
				models.SectionProblemStatement: "Login fails after password reset.",
			},
			"gaps":                []any{"root cause evidence"},
			"ready_to_synthesize": false,
		},
		"relevant_knowledge": []any{"Reset tokens are single-use."},
	}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	prev := models.NewConversationState()
	res, err := c.ProcessTurn(context.Background(), nil, prev, "Users can't log in after a password reset", "", "")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Degraded {
		t.Error("Degraded = true, want false")
	}
	if res.State.FrameType != "bug" {
		t.Errorf("FrameType = %q, want %q", res.State.FrameType, "bug")
	}
	if got := res.State.SectionsCovered[models.SectionProblemStatement]; got != 0.8 {
		t.Errorf("problem_statement coverage = %v, want 0.8", got)
	}
	if got := res.State.SectionsCovered[models.SectionUserPerspective]; got != 0.0 {
		t.Errorf("user_perspective coverage = %v, want 0.0", got)
	}
	if got := res.State.ExtractedContent[models.SectionProblemStatement]; got != "Login fails after password reset." {
		t.Errorf("extracted problem_statement = %q", got)
	}
	if len(res.State.Gaps) != 1 || res.State.Gaps[0] != "root cause evidence" {
		t.Errorf("Gaps = %v", res.State.Gaps)
	}
	if len(res.KnowledgeRefs) != 1 || res.KnowledgeRefs[0].Content != "Reset tokens are single-use." {
		t.Errorf("KnowledgeRefs = %+v", res.KnowledgeRefs)
	}
	if !strings.Contains(res.Reply, "cache") {
		t.Errorf("Reply = %q", res.Reply)
	}
}

func TestProcessTurn_MissingFieldsKeepPreviousState(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{
		"response": "Tell me more.",
		"updated_state": map[string]any{
			"frame_type": "spaceship",
			"gaps":       "not a list",
		},
	}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	prev := models.NewConversationState()
	prev.FrameType = "feature"
	prev.SectionsCovered[models.SectionProblemStatement] = 0.5
	prev.ExtractedContent[models.SectionProblemStatement] = "kept"
	prev.Gaps = []string{"user journey"}
	prev.ReadyToSynthesize = true

	res, err := c.ProcessTurn(context.Background(), nil, prev, "hm", "", "")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.State.FrameType != "feature" {
		t.Errorf("FrameType = %q, want previous %q kept", res.State.FrameType, "feature")
	}
	if got := res.State.SectionsCovered[models.SectionProblemStatement]; got != 0.5 {
		t.Errorf("coverage = %v, want previous 0.5 kept", got)
	}
	if res.State.ExtractedContent[models.SectionProblemStatement] != "kept" {
		t.Errorf("extracted content not preserved: %v", res.State.ExtractedContent)
	}
	if len(res.State.Gaps) != 1 || res.State.Gaps[0] != "user journey" {
		t.Errorf("Gaps = %v, want previous kept", res.State.Gaps)
	}
	if !res.State.ReadyToSynthesize {
		t.Error("ReadyToSynthesize = false, want previous true kept")
	}
}

func TestProcessTurn_DegradesToFreeText(t *testing.T) {
	fp := &fakeProvider{
		structuredErrs: []error{transientErr(), transientErr()},
		textReply:      "Let me rephrase that without the structure.",
	}
	c := NewWithSupervisor(fp, fastSupervisor())

	prev := models.NewConversationState()
	prev.SectionsCovered[models.SectionProblemStatement] = 0.7

	res, err := c.ProcessTurn(context.Background(), nil, prev, "hello", "", "")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !res.Degraded {
		t.Fatal("Degraded = false, want true")
	}
	if res.Reply != "Let me rephrase that without the structure." {
		t.Errorf("Reply = %q", res.Reply)
	}
	if got := res.State.SectionsCovered[models.SectionProblemStatement]; got != 0.7 {
		t.Errorf("state mutated on degraded turn: coverage = %v, want 0.7", got)
	}
	if fp.structuredCall != 2 {
		t.Errorf("structured calls = %d, want 2 (one retry)", fp.structuredCall)
	}
	if fp.textCalls != 1 {
		t.Errorf("text calls = %d, want 1", fp.textCalls)
	}
}

func TestProcessTurn_FatalErrorPropagates(t *testing.T) {
	authErr := &aigw.Error{Kind: aigw.KindUpstreamAuth, Msg: "invalid api key"}
	fp := &fakeProvider{structuredErrs: []error{authErr}}
	c := NewWithSupervisor(fp, fastSupervisor())

	_, err := c.ProcessTurn(context.Background(), nil, models.NewConversationState(), "hi", "", "")
	if !errors.Is(err, authErr) {
		t.Fatalf("ProcessTurn() error = %v, want auth error", err)
	}
	if fp.structuredCall != 1 {
		t.Errorf("structured calls = %d, want 1 (no retry on fatal)", fp.structuredCall)
	}
	if fp.textCalls != 0 {
		t.Errorf("text calls = %d, want 0 (no degrade on fatal)", fp.textCalls)
	}
}

func TestProcessTurn_PromptCarriesContext(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{"response": "ok"}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	history := []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "second"},
	}
	state := models.NewConversationState()
	state.Gaps = []string{"validation signals"}

	_, err := c.ProcessTurn(context.Background(), history, state, "third", "Reset tokens expire in 15m.", "zh")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !strings.Contains(fp.lastSystem, "Reset tokens expire in 15m.") {
		t.Error("system prompt missing knowledge context")
	}
	if !strings.Contains(fp.lastSystem, "validation signals") {
		t.Error("system prompt missing current state")
	}
	if !strings.Contains(fp.lastSystem, "Chinese") {
		t.Error("system prompt missing language directive")
	}
	if len(fp.lastTurns) != 3 || fp.lastTurns[2].Content != "third" {
		t.Errorf("turns = %+v", fp.lastTurns)
	}
}

func TestProcessTurn_KnowledgeRefObjects(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{
		"response": "ok",
		"relevant_knowledge": []any{
			map[string]any{"id": "k-2026-01-05-ab12cd", "content": "Prefer idempotent resets.", "metadata": map[string]any{"category": "lesson"}},
			"Plain string ref.",
			map[string]any{"irrelevant": true},
		},
	}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	res, err := c.ProcessTurn(context.Background(), nil, models.NewConversationState(), "hi", "", "")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if len(res.KnowledgeRefs) != 2 {
		t.Fatalf("KnowledgeRefs = %+v, want 2 entries", res.KnowledgeRefs)
	}
	if res.KnowledgeRefs[0].ID != "k-2026-01-05-ab12cd" {
		t.Errorf("ref ID = %q", res.KnowledgeRefs[0].ID)
	}
	if res.KnowledgeRefs[0].Metadata["category"] != "lesson" {
		t.Errorf("ref metadata = %v", res.KnowledgeRefs[0].Metadata)
	}
	if res.KnowledgeRefs[1].Content != "Plain string ref." {
		t.Errorf("ref content = %q", res.KnowledgeRefs[1].Content)
	}
}

func TestSynthesizeFrame(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{
		models.SectionProblemStatement:   "Password resets invalidate active sessions.",
		models.SectionRootCause:          "Token table purge races session refresh.",
		models.SectionUserPerspective:    "Users locked out mid-task lose trust.",
		models.SectionEngineeringFraming: "Resets must be atomic with session state.",
		models.SectionValidationThinking: "Zero lockout reports in the week after rollout.",
		"problem_statement_zh":           "密码重置使活动会话失效。",
	}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	state := models.NewConversationState()
	state.ExtractedContent[models.SectionProblemStatement] = "resets break logins"
	history := []models.Message{{Role: models.RoleUser, Content: "it broke"}}

	content, err := c.SynthesizeFrame(context.Background(), history, state, "en")
	if err != nil {
		t.Fatalf("SynthesizeFrame() error = %v", err)
	}
	if content.ProblemStatement != "Password resets invalidate active sessions." {
		t.Errorf("ProblemStatement = %q", content.ProblemStatement)
	}
	if content.RootCause == "" || content.ValidationThinking == "" {
		t.Errorf("incomplete content: %+v", content)
	}
	if got := content.Translations["zh"][models.SectionProblemStatement]; got != "密码重置使活动会话失效。" {
		t.Errorf("zh translation = %q", got)
	}
	if !strings.Contains(fp.lastTurns[0].Content, "resets break logins") {
		t.Error("synthesis prompt missing extracted content")
	}
	if !strings.Contains(fp.lastTurns[0].Content, "user: it broke") {
		t.Error("synthesis prompt missing transcript")
	}
}

func TestSynthesizeFrame_HardFailure(t *testing.T) {
	fp := &fakeProvider{structuredErrs: []error{transientErr(), transientErr()}}
	c := NewWithSupervisor(fp, fastSupervisor())

	_, err := c.SynthesizeFrame(context.Background(), nil, models.NewConversationState(), "")
	if err == nil {
		t.Fatal("SynthesizeFrame() error = nil, want failure after retries")
	}
	if fp.textCalls != 0 {
		t.Errorf("text calls = %d, synthesis must not degrade to free text", fp.textCalls)
	}
}

func TestProcessReviewTurn(t *testing.T) {
	fp := &fakeProvider{textReply: "The validation section reads like a hope, not a test."}
	c := NewWithSupervisor(fp, fastSupervisor())

	reply, err := c.ProcessReviewTurn(context.Background(), nil, "What do you think of the validation plan?", "problem_statement: resets break logins", "")
	if err != nil {
		t.Fatalf("ProcessReviewTurn() error = %v", err)
	}
	if reply != "The validation section reads like a hope, not a test." {
		t.Errorf("reply = %q", reply)
	}
	if !strings.Contains(fp.lastSystem, "resets break logins") {
		t.Error("review system prompt missing frame content")
	}
	if fp.structuredCall != 0 {
		t.Errorf("structured calls = %d, review turns are free text", fp.structuredCall)
	}
}

func TestSummarizeReview(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{{
		"summary": "Solid framing, weak validation.",
		"comments": []any{
			map[string]any{"section": models.SectionValidationThinking, "comment": "No falsification criteria.", "severity": "major"},
			map[string]any{"comment": ""},
		},
		"recommendation": "revise",
	}}}
	c := NewWithSupervisor(fp, fastSupervisor())

	sum, err := c.SummarizeReview(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("SummarizeReview() error = %v", err)
	}
	if sum.Recommendation != models.RecommendationRevise {
		t.Errorf("Recommendation = %q", sum.Recommendation)
	}
	if len(sum.Comments) != 1 || sum.Comments[0].Severity != "major" {
		t.Errorf("Comments = %+v", sum.Comments)
	}
}

func TestSummarizeReview_DefaultsAndRejects(t *testing.T) {
	fp := &fakeProvider{structured: []map[string]any{
		{"summary": "Fine."},
		{"summary": "Fine.", "recommendation": "ship it"},
	}}
	c := NewWithSupervisor(fp, fastSupervisor())

	sum, err := c.SummarizeReview(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("SummarizeReview() error = %v", err)
	}
	if sum.Recommendation != models.RecommendationRevise {
		t.Errorf("missing recommendation = %q, want default revise", sum.Recommendation)
	}

	if _, err := c.SummarizeReview(context.Background(), nil, ""); err == nil {
		t.Fatal("SummarizeReview() error = nil, want rejection of unknown recommendation")
	}
}
