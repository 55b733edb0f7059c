package models

import (
	"fmt"
	"time"
)

// ── Status & Purpose ────────────────────────────────────────

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive      ConversationStatus = "active"
	ConversationSynthesized ConversationStatus = "synthesized"
	ConversationAbandoned   ConversationStatus = "abandoned"
)

// ConversationPurpose distinguishes authoring dialogues (which build
// coverage state) from review dialogues (which never touch it).
type ConversationPurpose string

const (
	PurposeAuthoring ConversationPurpose = "authoring"
	PurposeReview    ConversationPurpose = "review"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ── Message ─────────────────────────────────────────────────

// Message is one append-only dialogue turn. Messages are immutable once
// appended; edits create new messages. Translations carries optional
// parallel-language variants keyed by language code.
type Message struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SenderName string         `json:"sender_name,omitempty"`

	Translations map[string]string `json:"translations,omitempty"`
}

// NewMessageID formats the sequential message ID msg-001, msg-002, ...
func NewMessageID(seq int) string {
	return fmt.Sprintf("msg-%03d", seq)
}

// ── Conversation State ──────────────────────────────────────

// ConversationState tracks what the coach has learned so far. It is
// replaced wholesale after each successful turn; missing fields in a
// model response fall back to the prior state's values, never to empty
// defaults.
type ConversationState struct {
	FrameType         string             `json:"frame_type,omitempty"`
	SectionsCovered   map[string]float64 `json:"sections_covered"`
	ExtractedContent  map[string]string  `json:"extracted_content"`
	Gaps              []string           `json:"gaps"`
	ReadyToSynthesize bool               `json:"ready_to_synthesize"`
}

// NewConversationState returns a zeroed state with every section at 0.0.
func NewConversationState() ConversationState {
	covered := make(map[string]float64, len(FrameSections))
	for _, s := range FrameSections {
		covered[s] = 0.0
	}
	return ConversationState{
		SectionsCovered:  covered,
		ExtractedContent: map[string]string{},
		Gaps:             []string{},
	}
}

// CoverageComplete reports whether every section applicable to the
// detected frame type has reached the coverage threshold. This is the
// audit-trail view of readiness; ReadyToSynthesize itself is asserted
// by the model and not recomputed from these numbers.
func (s *ConversationState) CoverageComplete() bool {
	t := FrameType(s.FrameType)
	if t == "" {
		t = FrameTypeFeature
	}
	for _, section := range ApplicableSections(t) {
		if s.SectionsCovered[section] < CoverageThreshold {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can snapshot state before a turn.
func (s *ConversationState) Clone() ConversationState {
	cp := *s
	cp.SectionsCovered = make(map[string]float64, len(s.SectionsCovered))
	for k, v := range s.SectionsCovered {
		cp.SectionsCovered[k] = v
	}
	cp.ExtractedContent = make(map[string]string, len(s.ExtractedContent))
	for k, v := range s.ExtractedContent {
		cp.ExtractedContent[k] = v
	}
	cp.Gaps = append([]string(nil), s.Gaps...)
	return cp
}

// ── Conversation ────────────────────────────────────────────

// Conversation owns an ordered message sequence and exactly one state.
// A conversation produces at most one live frame, linked via FrameID;
// re-synthesis updates that frame rather than creating another.
type Conversation struct {
	ID        string              `json:"id"`
	Owner     string              `json:"owner"`
	Purpose   ConversationPurpose `json:"purpose"`
	Status    ConversationStatus  `json:"status"`
	FrameID   string              `json:"frame_id,omitempty"`
	ProjectID string              `json:"project_id,omitempty"`

	Messages []Message         `json:"messages"`
	State    ConversationState `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationID generates an ID of the form conv-YYYY-MM-DD-xxxxxx.
func NewConversationID() string {
	return newDatedID("conv")
}

// KnowledgeRef is one advisory knowledge snippet surfaced during a turn.
// The model may return these as plain strings or structured objects;
// both normalize into this shape.
type KnowledgeRef struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
