// Package store — in-memory Store implementation with file-based JSON
// snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/pkg/models"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Conversations map[string]*models.Conversation   `json:"conversations"`
	Frames        map[string]*models.Frame          `json:"frames"`
	Knowledge     map[string]*models.KnowledgeEntry `json:"knowledge"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	frames        map[string]*models.Frame
	knowledge     map[string]*models.KnowledgeEntry

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals the save goroutine to stop
	closeOnce    sync.Once
}

// NewMemoryStore creates an in-memory store. If dataDir is non-empty,
// data is persisted to data.json in that directory and reloaded on
// startup.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		frames:        make(map[string]*models.Frame),
		knowledge:     make(map[string]*models.KnowledgeEntry),
		saveCh:        make(chan struct{}, 1),
		doneCh:        make(chan struct{}),
	}

	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			if err := m.saveSnapshot(); err != nil {
				log.Error().Err(err).Msg("Background snapshot failed")
			}
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() error {
	m.mu.RLock()
	snap := snapshot{
		Conversations: m.conversations,
		Frames:        m.frames,
		Knowledge:     m.knowledge,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
	return nil
}

// Flush writes the snapshot immediately, skipping the debounce. A store
// without persistence configured flushes trivially.
func (m *MemoryStore) Flush() error {
	if m.snapshotPath == "" {
		return nil
	}
	return m.saveSnapshot()
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Conversations != nil {
		m.conversations = snap.Conversations
	}
	if snap.Frames != nil {
		m.frames = snap.Frames
	}
	if snap.Knowledge != nil {
		m.knowledge = snap.Knowledge
	}

	log.Info().
		Int("conversations", len(m.conversations)).
		Int("frames", len(m.frames)).
		Int("knowledge", len(m.knowledge)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the save goroutine and forces a final snapshot write.
// Safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		if m.snapshotPath != "" {
			if err := m.saveSnapshot(); err != nil {
				log.Error().Err(err).Msg("Final snapshot failed")
			}
		}
		log.Info().Msg("Memory store closed")
	})
	return nil
}

// ── Conversation Store ──────────────────────────────────────

func (m *MemoryStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	cp := *conv
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.conversations[cp.ID] = &cp
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "conversation", Key: id}
	}
	cp := cloneConversation(conv)
	return &cp, nil
}

func (m *MemoryStore) ListConversations(_ context.Context, filter ConversationFilter) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Conversation, 0)
	for _, conv := range m.conversations {
		if filter.Owner != "" && conv.Owner != filter.Owner {
			continue
		}
		if filter.Purpose != "" && conv.Purpose != filter.Purpose {
			continue
		}
		if filter.Status != "" && conv.Status != filter.Status {
			continue
		}
		if filter.FrameID != "" && conv.FrameID != filter.FrameID {
			continue
		}
		result = append(result, cloneConversation(conv))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return &ErrNotFound{Entity: "conversation", Key: id}
	}
	delete(m.conversations, id)
	m.requestSave()
	return nil
}

func (m *MemoryStore) AddMessage(_ context.Context, id string, msg models.Message) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "conversation", Key: id}
	}

	if msg.ID == "" {
		msg.ID = models.NewMessageID(len(conv.Messages) + 1)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()

	m.requestSave()
	stored := msg
	return &stored, nil
}

func (m *MemoryStore) UpdateState(_ context.Context, id string, state models.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return &ErrNotFound{Entity: "conversation", Key: id}
	}
	conv.State = state.Clone()
	conv.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateConversationStatus(_ context.Context, id string, status models.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return &ErrNotFound{Entity: "conversation", Key: id}
	}
	conv.Status = status
	conv.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

func (m *MemoryStore) LinkFrame(_ context.Context, id, frameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return &ErrNotFound{Entity: "conversation", Key: id}
	}
	conv.FrameID = frameID
	conv.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

// ── Frame Store ─────────────────────────────────────────────

func (m *MemoryStore) CreateFrame(_ context.Context, frame *models.Frame) error {
	m.mu.Lock()
	cp := *frame
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Status == "" {
		cp.Status = models.FrameStatusDraft
	}
	m.frames[cp.ID] = &cp
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) GetFrame(_ context.Context, id string) (*models.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	frame, ok := m.frames[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "frame", Key: id}
	}
	cp := *frame
	return &cp, nil
}

func (m *MemoryStore) ListFrames(_ context.Context, filter FrameFilter) ([]models.Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Frame, 0)
	for _, frame := range m.frames {
		if filter.Owner != "" && frame.Owner != filter.Owner {
			continue
		}
		if filter.Status != "" && frame.Status != filter.Status {
			continue
		}
		if filter.Type != "" && frame.Type != filter.Type {
			continue
		}
		if filter.ProjectID != "" && frame.ProjectID != filter.ProjectID {
			continue
		}
		result = append(result, *frame)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *MemoryStore) DeleteFrame(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.frames[id]; !ok {
		return &ErrNotFound{Entity: "frame", Key: id}
	}
	delete(m.frames, id)
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateFrameContent(_ context.Context, id string, content models.FrameContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.frames[id]
	if !ok {
		return &ErrNotFound{Entity: "frame", Key: id}
	}
	frame.Content = content
	frame.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateFrameStatus(_ context.Context, id string, status models.FrameStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.frames[id]
	if !ok {
		return &ErrNotFound{Entity: "frame", Key: id}
	}
	if !frame.Status.CanTransitionTo(status) {
		return &ErrBadState{
			Entity: "frame",
			Key:    id,
			Reason: "cannot transition from " + string(frame.Status) + " to " + string(status),
		}
	}
	frame.Status = status
	frame.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

func (m *MemoryStore) SaveEvaluation(_ context.Context, id string, eval *models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.frames[id]
	if !ok {
		return &ErrNotFound{Entity: "frame", Key: id}
	}
	cp := *eval
	frame.Evaluation = &cp
	frame.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

func (m *MemoryStore) SaveReviewSummary(_ context.Context, id string, review *models.ReviewSummary, reviewer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.frames[id]
	if !ok {
		return &ErrNotFound{Entity: "frame", Key: id}
	}
	cp := *review
	frame.Review = &cp
	frame.Reviewer = reviewer
	frame.UpdatedAt = time.Now().UTC()

	m.requestSave()
	return nil
}

// ── Knowledge Store ─────────────────────────────────────────

func (m *MemoryStore) CreateKnowledge(_ context.Context, entry *models.KnowledgeEntry) error {
	m.mu.Lock()
	cp := *entry
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.knowledge[cp.ID] = &cp
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) GetKnowledge(_ context.Context, id string) (*models.KnowledgeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.knowledge[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "knowledge entry", Key: id}
	}
	cp := *entry
	return &cp, nil
}

func (m *MemoryStore) ListKnowledge(_ context.Context, category models.KnowledgeCategory) ([]models.KnowledgeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.KnowledgeEntry, 0)
	for _, entry := range m.knowledge {
		if category != "" && entry.Category != category {
			continue
		}
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *MemoryStore) UpdateKnowledge(_ context.Context, entry *models.KnowledgeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.knowledge[entry.ID]; !ok {
		return &ErrNotFound{Entity: "knowledge entry", Key: entry.ID}
	}
	cp := *entry
	cp.UpdatedAt = time.Now().UTC()
	m.knowledge[cp.ID] = &cp

	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteKnowledge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.knowledge[id]; !ok {
		return &ErrNotFound{Entity: "knowledge entry", Key: id}
	}
	delete(m.knowledge, id)
	m.requestSave()
	return nil
}

// cloneConversation deep-copies the message slice and state so callers
// can never mutate stored data through the returned value.
func cloneConversation(conv *models.Conversation) models.Conversation {
	cp := *conv
	cp.Messages = append([]models.Message(nil), conv.Messages...)
	cp.State = conv.State.Clone()
	return cp
}
