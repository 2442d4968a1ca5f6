package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/nidhogg/mnemo/internal/oracle"
	"go.uber.org/zap"
)

// fakeBackend records upserts and optionally fails.
type fakeBackend struct {
	records []Record
	err     error
}

func (f *fakeBackend) Upsert(_ context.Context, rec Record, _ []float32) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

// fixedEmbedder returns the same vector for any input.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (fixedEmbedder) Dimension() int { return 3 }

func TestReplicateSignificanceThreshold(t *testing.T) {
	fast := &fakeBackend{}
	durable := &fakeBackend{}
	r := NewReplicator(fast, durable, fixedEmbedder{}, zap.NewNop())

	counts := r.Replicate(context.Background(), []oracle.MemoryExtraction{
		{Type: "learning", Content: "minor fact", Importance: 0.3},
		{Type: "learning", Content: "major fact", Importance: 0.7},
		{Type: "decision", Content: "we decided", Importance: 0.1},
	})

	if counts.Fast != 3 {
		t.Errorf("fast count = %d, want 3 (always attempted)", counts.Fast)
	}
	if counts.Durable != 2 {
		t.Errorf("durable count = %d, want 2 (importance>=0.6 or decision)", counts.Durable)
	}
	for _, rec := range durable.records {
		if rec.Importance < significanceThreshold && rec.Type != "decision" {
			t.Errorf("insignificant record reached durable store: %+v", rec)
		}
	}
}

func TestReplicateBackendFailureIsIsolated(t *testing.T) {
	fast := &fakeBackend{err: errors.New("fast store down")}
	durable := &fakeBackend{}
	r := NewReplicator(fast, durable, fixedEmbedder{}, zap.NewNop())

	counts := r.Replicate(context.Background(), []oracle.MemoryExtraction{
		{Type: "decision", Content: "still replicated", Importance: 0.9},
	})

	if counts.Fast != 0 {
		t.Errorf("fast count = %d, want 0", counts.Fast)
	}
	if counts.Durable != 1 {
		t.Errorf("durable count = %d, want 1 despite fast failure", counts.Durable)
	}
}

func TestReplicateNilBackends(t *testing.T) {
	r := NewReplicator(nil, nil, fixedEmbedder{}, zap.NewNop())

	counts := r.Replicate(context.Background(), []oracle.MemoryExtraction{
		{Type: "decision", Content: "nowhere to go", Importance: 0.9},
	})
	if counts.Fast != 0 || counts.Durable != 0 {
		t.Errorf("counts = %+v, want zero with no backends", counts)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder offline")
}

func (failingEmbedder) Dimension() int { return 0 }

func TestReplicateEmbedFailureSkipsRecord(t *testing.T) {
	fast := &fakeBackend{}
	r := NewReplicator(fast, nil, failingEmbedder{}, zap.NewNop())

	counts := r.Replicate(context.Background(), []oracle.MemoryExtraction{
		{Type: "learning", Content: "cannot embed", Importance: 0.9},
	})
	if counts.Fast != 0 {
		t.Errorf("fast count = %d, want 0 when embedding fails", counts.Fast)
	}
	if len(fast.records) != 0 {
		t.Errorf("no records should reach the backend, got %d", len(fast.records))
	}
}
