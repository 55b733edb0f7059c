// Package models defines the core data model of the Framer backend:
// Frames, Conversations, and Knowledge entries, plus the AI artifacts
// (evaluations, review summaries) attached to them.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── Frame Type & Status ─────────────────────────────────────

// FrameType determines which sections apply and which template is used.
type FrameType string

const (
	FrameTypeBug         FrameType = "bug"
	FrameTypeFeature     FrameType = "feature"
	FrameTypeExploration FrameType = "exploration"
)

// ParseFrameType validates a frame type string. Unknown values are
// rejected rather than coerced.
func ParseFrameType(s string) (FrameType, error) {
	switch FrameType(s) {
	case FrameTypeBug, FrameTypeFeature, FrameTypeExploration:
		return FrameType(s), nil
	}
	return "", fmt.Errorf("invalid frame type: %q", s)
}

// FrameStatus is the review/approval lifecycle of a frame.
type FrameStatus string

const (
	FrameStatusDraft    FrameStatus = "draft"
	FrameStatusInReview FrameStatus = "in_review"
	FrameStatusReady    FrameStatus = "ready"
	FrameStatusFeedback FrameStatus = "feedback"
	FrameStatusArchived FrameStatus = "archived"
)

// frameTransitions is the closed set of allowed status transitions.
var frameTransitions = map[FrameStatus][]FrameStatus{
	FrameStatusDraft:    {FrameStatusInReview, FrameStatusArchived},
	FrameStatusInReview: {FrameStatusReady, FrameStatusFeedback, FrameStatusArchived},
	FrameStatusFeedback: {FrameStatusDraft, FrameStatusInReview, FrameStatusArchived},
	FrameStatusReady:    {FrameStatusArchived},
	FrameStatusArchived: {FrameStatusDraft},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s FrameStatus) CanTransitionTo(next FrameStatus) bool {
	for _, allowed := range frameTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ── Sections ────────────────────────────────────────────────

// Section names of a frame, in display order.
const (
	SectionProblemStatement   = "problem_statement"
	SectionRootCause          = "root_cause"
	SectionUserPerspective    = "user_perspective"
	SectionEngineeringFraming = "engineering_framing"
	SectionValidationThinking = "validation_thinking"
)

// FrameSections lists every section in canonical order.
var FrameSections = []string{
	SectionProblemStatement,
	SectionRootCause,
	SectionUserPerspective,
	SectionEngineeringFraming,
	SectionValidationThinking,
}

// CoverageThreshold is the minimum per-section coverage score required
// before a conversation is considered synthesizable.
const CoverageThreshold = 0.6

// ApplicableSections returns the sections relevant to a frame type.
// Root cause analysis only applies to bug frames.
func ApplicableSections(t FrameType) []string {
	if t == FrameTypeBug {
		return FrameSections
	}
	out := make([]string, 0, len(FrameSections)-1)
	for _, s := range FrameSections {
		if s != SectionRootCause {
			out = append(out, s)
		}
	}
	return out
}

// ── Frame Content ───────────────────────────────────────────

// FrameContent holds the five long-text sections of a frame. Every
// section is independently optional. Translations carries per-language
// variants keyed by language code, then section name.
type FrameContent struct {
	ProblemStatement   string `json:"problem_statement,omitempty"`
	RootCause          string `json:"root_cause,omitempty"`
	UserPerspective    string `json:"user_perspective,omitempty"`
	EngineeringFraming string `json:"engineering_framing,omitempty"`
	ValidationThinking string `json:"validation_thinking,omitempty"`

	Translations map[string]map[string]string `json:"translations,omitempty"`
}

// Section returns the text of a named section ("" for unknown names).
func (c *FrameContent) Section(name string) string {
	switch name {
	case SectionProblemStatement:
		return c.ProblemStatement
	case SectionRootCause:
		return c.RootCause
	case SectionUserPerspective:
		return c.UserPerspective
	case SectionEngineeringFraming:
		return c.EngineeringFraming
	case SectionValidationThinking:
		return c.ValidationThinking
	}
	return ""
}

// SetSection assigns the text of a named section. Unknown names are ignored.
func (c *FrameContent) SetSection(name, text string) {
	switch name {
	case SectionProblemStatement:
		c.ProblemStatement = text
	case SectionRootCause:
		c.RootCause = text
	case SectionUserPerspective:
		c.UserPerspective = text
	case SectionEngineeringFraming:
		c.EngineeringFraming = text
	case SectionValidationThinking:
		c.ValidationThinking = text
	}
}

// SetTranslation records the text of a section in a given language.
func (c *FrameContent) SetTranslation(lang, section, text string) {
	if c.Translations == nil {
		c.Translations = make(map[string]map[string]string)
	}
	if c.Translations[lang] == nil {
		c.Translations[lang] = make(map[string]string)
	}
	c.Translations[lang][section] = text
}

// ── AI annotations ──────────────────────────────────────────

// Evaluation is the most recent AI quality assessment of a frame.
// It is a side annotation, not versioned with the content.
type Evaluation struct {
	Score       int            `json:"score"`
	Breakdown   map[string]int `json:"breakdown,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	Issues      []string       `json:"issues,omitempty"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// Validate enforces the score contract. An out-of-range score is a
// correctness failure, never clamped.
func (e *Evaluation) Validate() error {
	if e.Score < 0 || e.Score > 100 {
		return fmt.Errorf("evaluation score must be between 0 and 100, got %d", e.Score)
	}
	return nil
}

// Review recommendation values.
const (
	RecommendationApprove = "approve"
	RecommendationRevise  = "revise"
	RecommendationRethink = "rethink"
)

// ReviewComment is one piece of section-scoped review feedback.
type ReviewComment struct {
	Section  string `json:"section"`
	Comment  string `json:"comment"`
	Severity string `json:"severity"`
}

// ReviewSummary condenses a review conversation into a verdict.
type ReviewSummary struct {
	Summary        string          `json:"summary"`
	Comments       []ReviewComment `json:"comments,omitempty"`
	Recommendation string          `json:"recommendation"`
}

// Validate checks the recommendation is one of the closed set.
func (r *ReviewSummary) Validate() error {
	switch r.Recommendation {
	case RecommendationApprove, RecommendationRevise, RecommendationRethink:
		return nil
	}
	return fmt.Errorf("invalid review recommendation: %q", r.Recommendation)
}

// ── Frame ───────────────────────────────────────────────────

// Frame is the structured five-section document produced from a
// framing conversation, with its review lifecycle metadata.
type Frame struct {
	ID        string      `json:"id"`
	Type      FrameType   `json:"type"`
	Status    FrameStatus `json:"status"`
	Owner     string      `json:"owner"`
	ProjectID string      `json:"project_id,omitempty"`
	Reviewer  string      `json:"reviewer,omitempty"`
	Approver  string      `json:"approver,omitempty"`

	Content FrameContent `json:"content"`

	Evaluation *Evaluation    `json:"evaluation,omitempty"`
	Review     *ReviewSummary `json:"review,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFrameID generates an ID of the form f-YYYY-MM-DD-xxxxxx.
func NewFrameID() string {
	return newDatedID("f")
}

func newDatedID(prefix string) string {
	date := time.Now().UTC().Format("2006-01-02")
	suffix := uuid.NewString()[:6]
	return fmt.Sprintf("%s-%s-%s", prefix, date, suffix)
}
