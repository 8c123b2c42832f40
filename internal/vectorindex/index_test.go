package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(Config{}, zap.NewNop())
}

func TestIndex_UpsertAndGet(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, map[string]string{"subject": "math"}, "content"))

	vec, err := idx.GetEmbedding("a", "content")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	_, err = idx.GetEmbedding("missing", "content")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = idx.GetEmbedding("a", "missing-ns")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, idx.Upsert(ctx, "", []float32{1}, nil, "content"), ErrInvalidInput)
	require.ErrorIs(t, idx.Upsert(ctx, "a", []float32{1}, nil, ""), ErrInvalidInput)
}

func TestIndex_UpsertIsIdempotentByID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil, "content"))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}, nil, "content"))

	assert.Equal(t, 1, idx.Count("content"))
	vec, err := idx.GetEmbedding("a", "content")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
}

func TestIndex_SearchOrdering(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Orthogonal, aligned, and opposite vectors relative to the query.
	require.NoError(t, idx.Upsert(ctx, "orthogonal", []float32{0, 1}, nil, "ns"))
	require.NoError(t, idx.Upsert(ctx, "aligned", []float32{1, 0}, nil, "ns"))
	require.NoError(t, idx.Upsert(ctx, "opposite", []float32{-1, 0}, nil, "ns"))

	results := idx.Search(ctx, []float32{1, 0}, 10, "ns", nil)
	require.Len(t, results, 3)
	assert.Equal(t, "aligned", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "orthogonal", results[1].ID)
	assert.InDelta(t, 0.5, results[1].Similarity, 1e-9)
	assert.Equal(t, "opposite", results[2].ID)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-9)

	// Each hit carries a copy of the stored embedding.
	assert.Equal(t, []float32{1, 0}, results[0].Embedding)
	results[0].Embedding[0] = 99
	stored, err := idx.GetEmbedding("aligned", "ns")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, stored)
}

func TestIndex_SearchStableTies(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// All three have identical similarity to the query; insertion order wins.
	require.NoError(t, idx.Upsert(ctx, "first", []float32{1, 0}, nil, "ns"))
	require.NoError(t, idx.Upsert(ctx, "second", []float32{2, 0}, nil, "ns"))
	require.NoError(t, idx.Upsert(ctx, "third", []float32{3, 0}, nil, "ns"))

	// Overwriting keeps the original position.
	require.NoError(t, idx.Upsert(ctx, "first", []float32{4, 0}, nil, "ns"))

	results := idx.Search(ctx, []float32{1, 0}, 10, "ns", nil)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].ID, results[1].ID, results[2].ID})
}

func TestIndex_SearchZeroVector(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "zero", []float32{0, 0}, nil, "ns"))
	require.NoError(t, idx.Upsert(ctx, "unit", []float32{1, 0}, nil, "ns"))

	results := idx.Search(ctx, []float32{0, 0}, 10, "ns", nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Zero(t, r.Similarity)
	}

	results = idx.Search(ctx, []float32{1, 0}, 10, "ns", nil)
	require.Len(t, results, 2)
	assert.Equal(t, "unit", results[0].ID)
	assert.Zero(t, results[1].Similarity)
}

func TestIndex_SearchFilters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "math-lesson", []float32{1, 0},
		map[string]string{"subject": "math", "content_type": "lesson"}, "content"))
	require.NoError(t, idx.Upsert(ctx, "math-quiz", []float32{1, 0},
		map[string]string{"subject": "math", "content_type": "quiz"}, "content"))
	require.NoError(t, idx.Upsert(ctx, "science-lesson", []float32{1, 0},
		map[string]string{"subject": "science", "content_type": "lesson"}, "content"))

	results := idx.Search(ctx, []float32{1, 0}, 10, "content",
		map[string]string{"subject": "math", "content_type": "lesson"})
	require.Len(t, results, 1)
	assert.Equal(t, "math-lesson", results[0].ID)
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil, "ns"))

	assert.Empty(t, idx.Search(ctx, []float32{1, 0}, 0, "ns", nil))
	assert.Empty(t, idx.Search(ctx, []float32{1, 0}, -1, "ns", nil))
	assert.Empty(t, idx.Search(ctx, []float32{1, 0}, 5, "unknown", nil))

	// topK truncation
	require.NoError(t, idx.Upsert(ctx, "b", []float32{1, 0}, nil, "ns"))
	assert.Len(t, idx.Search(ctx, []float32{1, 0}, 1, "ns", nil), 1)
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1}, nil, "ns"))
	require.NoError(t, idx.Delete("a", "ns"))
	require.ErrorIs(t, idx.Delete("a", "ns"), ErrNotFound)
	require.ErrorIs(t, idx.Delete("a", "other"), ErrNotFound)
	assert.Equal(t, 0, idx.Count("ns"))
}

func TestIndex_UserKnowledgeState(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	id, err := idx.UpsertUserKnowledgeState(ctx, "alice", []float32{1, 0}, "math")
	require.NoError(t, err)
	assert.Equal(t, "user_knowledge_alice_math", id)

	// Same user+subject overwrites.
	_, err = idx.UpsertUserKnowledgeState(ctx, "alice", []float32{0, 1}, "math")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Count(NamespaceUsers))

	_, err = idx.UpsertUserKnowledgeState(ctx, "", []float32{1}, "math")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = idx.UpsertUserKnowledgeState(ctx, "alice", []float32{1}, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIndex_FindSimilarUsers(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.UpsertUserKnowledgeState(ctx, "alice", []float32{1, 0}, "math")
	require.NoError(t, err)
	_, err = idx.UpsertUserKnowledgeState(ctx, "bob", []float32{0.9, 0.1}, "math")
	require.NoError(t, err)
	_, err = idx.UpsertUserKnowledgeState(ctx, "carol", []float32{1, 0}, "science")
	require.NoError(t, err)

	results := idx.FindSimilarUsers(ctx, []float32{1, 0}, "math", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "user_knowledge_alice_math", results[0].ID)
	assert.Equal(t, "alice", results[0].Metadata["user_id"])
}

func TestIndex_FindRelevantContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	id, err := idx.UpsertContent(ctx, "algebra-1", []float32{1, 0}, "lesson", "math",
		map[string]string{"difficulty": "easy"})
	require.NoError(t, err)
	assert.Equal(t, "content_algebra-1", id)

	_, err = idx.UpsertContent(ctx, "algebra-quiz", []float32{1, 0}, "quiz", "math", nil)
	require.NoError(t, err)

	results := idx.FindRelevantContent(ctx, []float32{1, 0}, "math", 10, "lesson")
	require.Len(t, results, 1)
	assert.Equal(t, "content_algebra-1", results[0].ID)
	assert.Equal(t, "easy", results[0].Metadata["difficulty"])

	// Without a content type both match.
	results = idx.FindRelevantContent(ctx, []float32{1, 0}, "math", 10, "")
	assert.Len(t, results, 2)
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			ids := []string{"a", "b", "c", "d"}
			for j := 0; j < 50; j++ {
				_ = idx.Upsert(ctx, ids[(n+j)%len(ids)], []float32{1, 0}, nil, "ns")
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				idx.Search(ctx, []float32{1, 0}, 3, "ns", nil)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, idx.Count("ns"), 4)
}

type failingPersister struct{}

func (failingPersister) Save(ctx context.Context, key string, value []byte) error {
	return errors.New("store down")
}

func (failingPersister) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store down")
}

func TestIndex_SnapshotFailuresNonFatal(t *testing.T) {
	idx := NewIndex(Config{Persister: failingPersister{}}, zap.NewNop())
	require.NoError(t, idx.Upsert(context.Background(), "a", []float32{1}, nil, "ns"))
	require.Error(t, idx.SaveSnapshot(context.Background()))
	assert.Equal(t, 1, idx.Count("ns"))
}

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (p *memPersister) Save(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = append([]byte(nil), value...)
	return nil
}

func (p *memPersister) Load(ctx context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func TestIndex_SnapshotRoundTrip(t *testing.T) {
	persister := newMemPersister()
	ctx := context.Background()

	idx := NewIndex(Config{Persister: persister}, zap.NewNop())
	require.NoError(t, idx.Upsert(ctx, "first", []float32{1, 0}, map[string]string{"subject": "math"}, "ns"))
	require.NoError(t, idx.Upsert(ctx, "second", []float32{1, 0}, nil, "ns"))
	require.NoError(t, idx.SaveSnapshot(ctx))

	restored := NewIndex(Config{Persister: persister}, zap.NewNop())
	assert.Equal(t, 2, restored.Count("ns"))

	vec, err := restored.GetEmbedding("first", "ns")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	// Insertion order survives the round trip.
	results := restored.Search(ctx, []float32{1, 0}, 10, "ns", nil)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
	assert.Equal(t, "math", results[0].Metadata["subject"])
}

func TestSimilarity(t *testing.T) {
	assert.Zero(t, similarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, similarity(nil, nil))
	assert.InDelta(t, 1.0, similarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, similarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}
