package extraction

import (
	"context"
	"sync"

	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

// RelationOracle extracts entity relationships from exchange text.
type RelationOracle interface {
	ExtractRelations(ctx context.Context, text string) ([]relation.Candidate, error)
}

// RelationSink receives validated relation candidates. *relation.Store
// satisfies it.
type RelationSink interface {
	Upsert(ctx context.Context, c *relation.Candidate) (relation.UpsertOutcome, error)
}

// LiveExtractor is the synchronous-trigger sibling of the batch job: after
// each conversational exchange it derives entity relationships in a detached
// goroutine. It can never affect the caller's outcome: every failure flows
// into an error channel that feeds logging and nothing else.
type LiveExtractor struct {
	oracle   RelationOracle
	sink     RelationSink
	minChars int
	logger   *zap.Logger

	wg   sync.WaitGroup
	errs chan error
}

// NewLiveExtractor creates a live relation extractor. Exchanges whose
// combined text is shorter than minChars are skipped without an oracle call.
func NewLiveExtractor(o RelationOracle, sink RelationSink, minChars int, logger *zap.Logger) *LiveExtractor {
	if minChars <= 0 {
		minChars = 150
	}
	l := &LiveExtractor{
		oracle:   o,
		sink:     sink,
		minChars: minChars,
		logger:   logger,
		errs:     make(chan error, 16),
	}
	go l.drain()
	return l
}

func (l *LiveExtractor) drain() {
	for err := range l.errs {
		l.logger.Warn("live relation extraction failed", zap.Error(err))
	}
}

// OnExchange dispatches relation extraction for one user/assistant exchange.
// It returns immediately; the work runs detached.
func (l *LiveExtractor) OnExchange(userText, assistantText string) {
	// The separator added below is not part of the exchange, so it does not
	// count toward the threshold.
	if len(userText)+len(assistantText) < l.minChars {
		return
	}
	combined := userText + "\n" + assistantText

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.extract(context.Background(), combined)
	}()
}

func (l *LiveExtractor) extract(ctx context.Context, text string) {
	candidates, err := l.oracle.ExtractRelations(ctx, text)
	if err != nil {
		l.errs <- err
		return
	}
	for i := range candidates {
		if _, err := l.sink.Upsert(ctx, &candidates[i]); err != nil {
			l.errs <- err
		}
	}
}

// Wait blocks until all in-flight extractions finish. Used on shutdown and in
// tests.
func (l *LiveExtractor) Wait() {
	l.wg.Wait()
}

// Close waits for in-flight work and stops the error drain.
func (l *LiveExtractor) Close() {
	l.wg.Wait()
	close(l.errs)
}
