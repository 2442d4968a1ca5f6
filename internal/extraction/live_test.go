package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

// stubRelationOracle returns fixed candidates and counts calls.
type stubRelationOracle struct {
	mu         sync.Mutex
	candidates []relation.Candidate
	err        error
	calls      int
}

func (s *stubRelationOracle) ExtractRelations(_ context.Context, _ string) ([]relation.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func (s *stubRelationOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeSink collects upserted candidates.
type fakeSink struct {
	mu       sync.Mutex
	upserted []relation.Candidate
	err      error
}

func (f *fakeSink) Upsert(_ context.Context, c *relation.Candidate) (relation.UpsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.upserted = append(f.upserted, *c)
	return relation.OutcomeCreated, nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

func TestOnExchangeTrivialGuard(t *testing.T) {
	o := &stubRelationOracle{}
	sink := &fakeSink{}
	l := NewLiveExtractor(o, sink, 150, zap.NewNop())
	defer l.Close()

	l.OnExchange("hi", "hello there")
	l.Wait()

	if o.callCount() != 0 {
		t.Errorf("oracle calls = %d, want 0 for trivial exchange", o.callCount())
	}
}

func TestOnExchangeGuardCountsTextOnly(t *testing.T) {
	o := &stubRelationOracle{}
	sink := &fakeSink{}
	l := NewLiveExtractor(o, sink, 150, zap.NewNop())
	defer l.Close()

	// 75 + 74 = 149 chars of exchange text; the joining separator must not
	// push it over the threshold.
	l.OnExchange(strings.Repeat("u", 75), strings.Repeat("a", 74))
	l.Wait()
	if o.callCount() != 0 {
		t.Fatalf("oracle calls = %d, want 0 at 149 combined chars", o.callCount())
	}

	l.OnExchange(strings.Repeat("u", 75), strings.Repeat("a", 75))
	l.Wait()
	if o.callCount() != 1 {
		t.Errorf("oracle calls = %d, want 1 at 150 combined chars", o.callCount())
	}
}

func TestOnExchangeExtractsAndUpserts(t *testing.T) {
	o := &stubRelationOracle{candidates: []relation.Candidate{
		{Source: "Alice", Target: "SBOS", Type: relation.TypeWorksOn},
		{Source: "SBOS", Target: "Dashboard", Type: relation.TypePartOf},
	}}
	sink := &fakeSink{}
	l := NewLiveExtractor(o, sink, 150, zap.NewNop())
	defer l.Close()

	long := strings.Repeat("Alice discussed the SBOS dashboard roadmap. ", 5)
	l.OnExchange(long, long)
	l.Wait()

	if o.callCount() != 1 {
		t.Fatalf("oracle calls = %d, want 1", o.callCount())
	}
	if sink.count() != 2 {
		t.Errorf("upserted %d relations, want 2", sink.count())
	}
}

func TestOnExchangeSwallowsOracleFailure(t *testing.T) {
	o := &stubRelationOracle{err: errors.New("model unavailable")}
	sink := &fakeSink{}
	l := NewLiveExtractor(o, sink, 150, zap.NewNop())
	defer l.Close()

	long := strings.Repeat("substantial conversation content here. ", 10)
	l.OnExchange(long, long)
	l.Wait()

	if sink.count() != 0 {
		t.Errorf("upserted %d relations, want 0 after oracle failure", sink.count())
	}
}

func TestOnExchangeSwallowsSinkFailure(t *testing.T) {
	o := &stubRelationOracle{candidates: []relation.Candidate{
		{Source: "Alice", Target: "SBOS", Type: relation.TypeWorksOn},
	}}
	sink := &fakeSink{err: errors.New("store down")}
	l := NewLiveExtractor(o, sink, 150, zap.NewNop())

	long := strings.Repeat("substantial conversation content here. ", 10)
	l.OnExchange(long, long)

	// Close waits for in-flight work; reaching here without panic is the
	// contract, the caller's outcome is unaffected.
	l.Close()
}
