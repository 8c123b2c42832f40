// Package vectorindex provides a namespaced in-memory vector index with
// cosine-similarity search. It backs knowledge-state retrieval and content
// matching, and can snapshot itself into a persistent key-value store.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates invalid arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Record is a stored vector with its metadata.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string

	// seq is the insertion position within the namespace. Overwrites keep
	// the original position so equal-similarity results sort stably.
	seq uint64
}

// Result is a single search hit. Embedding is a copy of the stored vector.
type Result struct {
	ID         string
	Similarity float64
	Metadata   map[string]string
	Embedding  []float32
}

// Persister stores and retrieves index snapshots. *sessionstore.SQLiteStore
// and *sessionstore.MemoryStore satisfy it.
type Persister interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// Config holds configuration for the index.
type Config struct {
	// Persister, when set, enables snapshot persistence.
	Persister Persister

	// SnapshotKey is the store key for snapshots. Default: "vectorindex/snapshot".
	SnapshotKey string
}

type namespace struct {
	records map[string]*Record
	nextSeq uint64
}

// Index is a thread-safe namespaced vector index.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace

	config  Config
	logger  *zap.Logger
	metrics *Metrics
}

// NewIndex creates a new index. If a persister is configured, a previous
// snapshot is restored; restore failures are logged and the index starts empty.
func NewIndex(config Config, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SnapshotKey == "" {
		config.SnapshotKey = "vectorindex/snapshot"
	}

	idx := &Index{
		namespaces: make(map[string]*namespace),
		config:     config,
		logger:     logger,
		metrics:    NewMetrics(),
	}

	if config.Persister != nil {
		if err := idx.restore(context.Background()); err != nil {
			logger.Warn("vector index snapshot restore failed, starting empty", zap.Error(err))
		}
	}

	return idx
}

// Upsert inserts or replaces a record. Replacing keeps the record's original
// insertion position. The embedding and metadata are copied.
func (idx *Index) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]string, ns string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	if ns == "" {
		return fmt.Errorf("%w: namespace required", ErrInvalidInput)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, ok := idx.namespaces[ns]
	if !ok {
		n = &namespace{records: make(map[string]*Record)}
		idx.namespaces[ns] = n
	}

	rec := &Record{
		ID:        id,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  copyMetadata(metadata),
	}
	if existing, ok := n.records[id]; ok {
		rec.seq = existing.seq
	} else {
		rec.seq = n.nextSeq
		n.nextSeq++
	}
	n.records[id] = rec

	idx.metrics.RecordUpsert(ctx, ns)
	return nil
}

// Search returns up to topK records from the namespace ordered by similarity
// descending, ties broken by insertion order. Similarity is cosine remapped to
// [0, 1]; a zero-norm vector on either side scores 0. Filters require exact
// metadata matches on every key. A non-positive topK or an unknown namespace
// yields an empty result.
func (idx *Index) Search(ctx context.Context, query []float32, topK int, ns string, filters map[string]string) []Result {
	idx.metrics.RecordSearch(ctx, ns)

	if topK <= 0 {
		return []Result{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, ok := idx.namespaces[ns]
	if !ok {
		return []Result{}
	}

	candidates := make([]*Record, 0, len(n.records))
	for _, rec := range n.records {
		if matchesFilters(rec.Metadata, filters) {
			candidates = append(candidates, rec)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})

	results := make([]Result, 0, len(candidates))
	for _, rec := range candidates {
		results = append(results, Result{
			ID:         rec.ID,
			Similarity: similarity(query, rec.Embedding),
			Metadata:   copyMetadata(rec.Metadata),
			Embedding:  append([]float32(nil), rec.Embedding...),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// GetEmbedding returns a copy of the stored embedding.
func (idx *Index) GetEmbedding(id, ns string) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, ok := idx.namespaces[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ns, id)
	}
	rec, ok := n.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ns, id)
	}
	return append([]float32(nil), rec.Embedding...), nil
}

// Delete removes a record.
func (idx *Index) Delete(id, ns string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, ok := idx.namespaces[ns]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ns, id)
	}
	if _, ok := n.records[id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ns, id)
	}
	delete(n.records, id)
	return nil
}

// Count returns the number of records in the namespace.
func (idx *Index) Count(ns string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n, ok := idx.namespaces[ns]
	if !ok {
		return 0
	}
	return len(n.records)
}

// similarity computes cosine similarity remapped to [0, 1]. Mismatched
// dimensions or a zero-norm vector on either side yield 0.
func similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
