package vectorindex

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

type snapshotRecord struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
	Seq       uint64
}

type snapshot struct {
	Namespaces map[string][]snapshotRecord
}

// SaveSnapshot gob-encodes the full index and writes it to the configured
// persister. It is a no-op without one.
func (idx *Index) SaveSnapshot(ctx context.Context) error {
	if idx.config.Persister == nil {
		return nil
	}

	idx.mu.RLock()
	snap := snapshot{Namespaces: make(map[string][]snapshotRecord, len(idx.namespaces))}
	for name, n := range idx.namespaces {
		records := make([]snapshotRecord, 0, len(n.records))
		for _, rec := range n.records {
			records = append(records, snapshotRecord{
				ID:        rec.ID,
				Embedding: rec.Embedding,
				Metadata:  rec.Metadata,
				Seq:       rec.seq,
			})
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
		snap.Namespaces[name] = records
	}
	idx.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := idx.config.Persister.Save(ctx, idx.config.SnapshotKey, buf.Bytes()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	idx.logger.Debug("vector index snapshot saved",
		zap.Int("namespaces", len(snap.Namespaces)),
		zap.Int("bytes", buf.Len()))
	return nil
}

func (idx *Index) restore(ctx context.Context) error {
	data, err := idx.config.Persister.Load(ctx, idx.config.SnapshotKey)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for name, records := range snap.Namespaces {
		n := &namespace{records: make(map[string]*Record, len(records))}
		for i := range records {
			rec := records[i]
			n.records[rec.ID] = &Record{
				ID:        rec.ID,
				Embedding: rec.Embedding,
				Metadata:  rec.Metadata,
				seq:       rec.Seq,
			}
			if rec.Seq >= n.nextSeq {
				n.nextSeq = rec.Seq + 1
			}
		}
		idx.namespaces[name] = n
	}
	return nil
}
