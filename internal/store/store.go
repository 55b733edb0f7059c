// Package store provides the storage interface and implementations for
// the Framer backend. The in-memory store with JSON snapshots is the
// default; handler code depends only on the interface.
package store

import (
	"context"

	"github.com/framerhq/framer/pkg/models"
)

// Store is the primary storage interface. All handler code depends on
// this interface, not on a concrete implementation.
type Store interface {
	ConversationStore
	FrameStore
	KnowledgeStore

	// Ping checks whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Flush synchronously persists pending writes, bypassing any
	// write-coalescing delay. Callers that snapshot the data directory
	// (version history) flush first so they capture the current state.
	Flush() error

	// Close flushes pending writes and releases resources.
	Close() error
}

// ── Conversation Store ──────────────────────────────────────

// ConversationFilter narrows conversation listings. Zero values match
// everything.
type ConversationFilter struct {
	Owner   string
	Purpose models.ConversationPurpose
	Status  models.ConversationStatus
	FrameID string
}

type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, filter ConversationFilter) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// AddMessage appends a message, assigning its sequential ID and
	// timestamp, and returns the stored copy.
	AddMessage(ctx context.Context, id string, msg models.Message) (*models.Message, error)

	// UpdateState replaces the conversation state wholesale.
	UpdateState(ctx context.Context, id string, state models.ConversationState) error

	UpdateConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error

	// LinkFrame records the one live frame a conversation produced.
	LinkFrame(ctx context.Context, id, frameID string) error
}

// ── Frame Store ─────────────────────────────────────────────

// FrameFilter narrows frame listings. Zero values match everything.
type FrameFilter struct {
	Owner     string
	Status    models.FrameStatus
	Type      models.FrameType
	ProjectID string
}

type FrameStore interface {
	CreateFrame(ctx context.Context, frame *models.Frame) error
	GetFrame(ctx context.Context, id string) (*models.Frame, error)
	ListFrames(ctx context.Context, filter FrameFilter) ([]models.Frame, error)
	DeleteFrame(ctx context.Context, id string) error

	UpdateFrameContent(ctx context.Context, id string, content models.FrameContent) error

	// UpdateFrameStatus enforces the lifecycle transition table and
	// returns *ErrBadState on a disallowed move.
	UpdateFrameStatus(ctx context.Context, id string, status models.FrameStatus) error

	// SaveEvaluation attaches the most recent AI evaluation. It is a
	// side annotation replacing any prior one, not versioned.
	SaveEvaluation(ctx context.Context, id string, eval *models.Evaluation) error

	// SaveReviewSummary attaches the review verdict and records the
	// reviewer.
	SaveReviewSummary(ctx context.Context, id string, review *models.ReviewSummary, reviewer string) error
}

// ── Knowledge Store ─────────────────────────────────────────

type KnowledgeStore interface {
	CreateKnowledge(ctx context.Context, entry *models.KnowledgeEntry) error
	GetKnowledge(ctx context.Context, id string) (*models.KnowledgeEntry, error)
	ListKnowledge(ctx context.Context, category models.KnowledgeCategory) ([]models.KnowledgeEntry, error)
	UpdateKnowledge(ctx context.Context, entry *models.KnowledgeEntry) error
	DeleteKnowledge(ctx context.Context, id string) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// ErrBadState is returned when an operation targets an entity in a
// lifecycle state that does not permit it.
type ErrBadState struct {
	Entity string
	Key    string
	Reason string
}

func (e *ErrBadState) Error() string {
	return e.Entity + " " + e.Key + ": " + e.Reason
}
