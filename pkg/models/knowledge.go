package models

import (
	"fmt"
	"time"
)

// KnowledgeCategory classifies a knowledge entry.
type KnowledgeCategory string

const (
	KnowledgePattern    KnowledgeCategory = "pattern"
	KnowledgeDecision   KnowledgeCategory = "decision"
	KnowledgePrediction KnowledgeCategory = "prediction"
	KnowledgeContext    KnowledgeCategory = "context"
	KnowledgeLesson     KnowledgeCategory = "lesson"
)

// KnowledgeSource records how an entry was created.
type KnowledgeSource string

const (
	KnowledgeSourceManual       KnowledgeSource = "manual"
	KnowledgeSourceFeedback     KnowledgeSource = "feedback"
	KnowledgeSourceConversation KnowledgeSource = "conversation"
	KnowledgeSourceImport       KnowledgeSource = "import"
)

// ParseKnowledgeCategory validates a category string.
func ParseKnowledgeCategory(s string) (KnowledgeCategory, error) {
	switch KnowledgeCategory(s) {
	case KnowledgePattern, KnowledgeDecision, KnowledgePrediction, KnowledgeContext, KnowledgeLesson:
		return KnowledgeCategory(s), nil
	}
	return "", fmt.Errorf("invalid knowledge category: %q", s)
}

// KnowledgeEntry is a team learning, pattern, or decision that feeds
// advisory context into future framing conversations.
type KnowledgeEntry struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Category KnowledgeCategory `json:"category"`
	Source   KnowledgeSource   `json:"source"`
	SourceID string            `json:"source_id,omitempty"`
	TeamID   string            `json:"team_id,omitempty"`
	Author   string            `json:"author"`
	Tags     []string          `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewKnowledgeID generates an ID of the form k-YYYY-MM-DD-xxxxxx.
func NewKnowledgeID() string {
	return newDatedID("k")
}
