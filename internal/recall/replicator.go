package recall

import (
	"context"

	"github.com/google/uuid"
	"github.com/nidhogg/mnemo/internal/embedding"
	"github.com/nidhogg/mnemo/internal/oracle"
	"go.uber.org/zap"
)

// significanceThreshold gates replication into the durable store: a fact is
// significant when its importance reaches the threshold or it records a
// decision.
const significanceThreshold = 0.6

// Record is one fact headed for a vector store.
type Record struct {
	ID         string
	Content    string
	Type       string
	Importance float64
	Tags       []string
}

// VectorStore is a single recall backend. Implementations must treat Upsert
// as idempotent per ID.
type VectorStore interface {
	Upsert(ctx context.Context, rec Record, vector []float32) error
}

// Counts reports per-backend replication totals for one batch.
type Counts struct {
	Fast    int `json:"fast_upserted"`
	Durable int `json:"durable_upserted"`
}

// Replicator fans accepted extractions out to the auxiliary vector stores.
// Every write is best-effort: failures are logged and never propagate to the
// extraction job. Either backend may be nil when unconfigured.
type Replicator struct {
	fast     VectorStore
	durable  VectorStore
	embedder embedding.Provider
	logger   *zap.Logger
}

// NewReplicator creates a replicator over the given backends.
func NewReplicator(fast, durable VectorStore, embedder embedding.Provider, logger *zap.Logger) *Replicator {
	return &Replicator{fast: fast, durable: durable, embedder: embedder, logger: logger}
}

// Replicate writes each extraction to the fast store and, when significant,
// to the durable store. The two writes share one embedding and are logically
// independent: no cross-store transaction, no retry.
func (r *Replicator) Replicate(ctx context.Context, extractions []oracle.MemoryExtraction) Counts {
	var counts Counts
	for _, e := range extractions {
		rec := Record{
			ID:         uuid.New().String(),
			Content:    e.Content,
			Type:       e.Type,
			Importance: e.Importance,
			Tags:       e.Tags,
		}

		vectors, err := r.embedder.Embed(ctx, []string{rec.Content})
		if err != nil || len(vectors) == 0 {
			r.logger.Warn("recall embed failed, skipping record", zap.Error(err))
			continue
		}
		vec := vectors[0]

		if r.fast != nil {
			if err := r.fast.Upsert(ctx, rec, vec); err != nil {
				r.logger.Warn("fast recall upsert failed", zap.String("id", rec.ID), zap.Error(err))
			} else {
				counts.Fast++
			}
		}

		if r.durable != nil && significant(e) {
			if err := r.durable.Upsert(ctx, rec, vec); err != nil {
				r.logger.Warn("durable recall upsert failed", zap.String("id", rec.ID), zap.Error(err))
			} else {
				counts.Durable++
			}
		}
	}
	return counts
}

func significant(e oracle.MemoryExtraction) bool {
	return e.Importance >= significanceThreshold || e.Type == "decision"
}
