// Package vectorstore provides semantic search over knowledge and frame
// content. The embedded store keeps everything in memory and searches by
// brute-force cosine similarity over hashed term-frequency vectors, so
// it needs no external embedding service.
package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultMaxVectors is the default cap for the embedded store (50K).
const DefaultMaxVectors = 50_000

// vectorDims is the size of the hashed term-frequency space.
const vectorDims = 256

// Document is one indexed piece of content.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Vector     []float64      `json:"vector,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SearchResult is one search hit in the shape prompts consume.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// Searcher is the narrow contract the conversation layer depends on.
// Failures are advisory: callers degrade to "no extra context".
type Searcher interface {
	Search(ctx context.Context, query, collection string, limit int) ([]SearchResult, error)
}

// EmbeddedStore is a lightweight in-memory vector store using
// brute-force cosine similarity. Suitable for development and small
// workloads (≤50K documents).
type EmbeddedStore struct {
	mu         sync.RWMutex
	docs       map[string]*Document // key: collection:id
	maxVectors int
}

// Option configures the embedded store.
type Option func(*EmbeddedStore)

// WithMaxVectors sets the maximum number of documents (default 50K).
func WithMaxVectors(max int) Option {
	return func(s *EmbeddedStore) { s.maxVectors = max }
}

// NewEmbeddedStore creates an in-memory vector store.
func NewEmbeddedStore(opts ...Option) *EmbeddedStore {
	s := &EmbeddedStore{
		docs:       make(map[string]*Document),
		maxVectors: DefaultMaxVectors,
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Info().Int("max_vectors", s.maxVectors).Msg("Embedded vector store initialized")
	return s
}

// Upsert indexes documents into a collection, embedding their content.
func (s *EmbeddedStore) Upsert(_ context.Context, collection string, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCount := 0
	for _, d := range docs {
		if _, exists := s.docs[key(collection, d.ID)]; !exists {
			newCount++
		}
	}
	total := len(s.docs) + newCount
	if total > s.maxVectors {
		return fmt.Errorf("embedded vector store capacity exceeded: %d > %d", total, s.maxVectors)
	}
	if total > int(float64(s.maxVectors)*0.9) {
		log.Warn().Int("count", total).Int("max", s.maxVectors).Msg("Embedded vector store nearing capacity")
	}

	now := time.Now().UTC()
	for _, d := range docs {
		cp := d
		cp.Collection = collection
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.Vector = embedText(cp.Content)
		s.docs[key(collection, cp.ID)] = &cp
	}
	return nil
}

// Search returns the top-limit documents of a collection ranked by
// cosine similarity to the query.
func (s *EmbeddedStore) Search(_ context.Context, query, collection string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryVec := embedText(query)

	type scored struct {
		doc   *Document
		score float64
	}
	var candidates []scored
	for _, d := range s.docs {
		if d.Collection != collection {
			continue
		}
		score := cosineSimilarity(queryVec, d.Vector)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{doc: d, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]SearchResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = SearchResult{
			Content:  candidates[i].doc.Content,
			Metadata: candidates[i].doc.Metadata,
			Score:    candidates[i].score,
		}
	}
	return results, nil
}

// Delete removes documents from a collection by ID.
func (s *EmbeddedStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, key(collection, id))
	}
	return nil
}

// Count returns the document count of a collection.
func (s *EmbeddedStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, d := range s.docs {
		if d.Collection == collection {
			count++
		}
	}
	return count, nil
}

// ── Helpers ─────────────────────────────────────────────────

func key(collection, id string) string {
	return collection + ":" + id
}

// embedText maps text into a fixed hashed term-frequency space. Terms
// are lowercased and hashed into vectorDims buckets; the vector is the
// raw bucket counts. Deterministic, so equal text always embeds
// identically.
func embedText(text string) []float64 {
	vec := make([]float64, vectorDims)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		term = strings.Trim(term, ".,;:!?\"'()[]{}")
		if term == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%vectorDims]++
	}
	return vec
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
