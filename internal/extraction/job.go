package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nidhogg/mnemo/internal/oracle"
	"github.com/nidhogg/mnemo/internal/recall"
	"github.com/nidhogg/mnemo/internal/store"
	"go.uber.org/zap"
)

// provenanceTag marks memories created by the batch job.
const provenanceTag = "session-extraction"

// LogStore is the relational surface the job needs. *store.Store satisfies it.
type LogStore interface {
	UnprocessedLogs(ctx context.Context, source string) ([]store.SessionLog, error)
	MarkProcessed(ctx context.Context, id string) error
	InsertMemory(ctx context.Context, m *store.Memory) (string, error)
	EnsureAgent(ctx context.Context, id, name, kind string) error
}

// MemoryOracle extracts memory-style facts from batch text.
type MemoryOracle interface {
	ExtractMemories(ctx context.Context, text string) ([]oracle.MemoryExtraction, error)
}

// Replicator fans extractions out to the recall stores.
type Replicator interface {
	Replicate(ctx context.Context, extractions []oracle.MemoryExtraction) recall.Counts
}

// Locker serializes job runs across processes. Optional.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// JobConfig tunes one batch job instance.
type JobConfig struct {
	SourceTag string
	AgentID   string
	BatchSize int
}

// Result is the aggregate outcome of one job run.
type Result struct {
	Processed       int `json:"processed"`
	Extracted       int `json:"extracted"`
	FastUpserted    int `json:"fast_upserted"`
	DurableUpserted int `json:"durable_upserted"`
}

// Job is the batch orchestrator: it drains unprocessed session logs through
// the oracle, persists the extracted memories, replicates them, and marks the
// source records processed. Nothing retries: every failure is logged and the
// run moves on.
type Job struct {
	logs       LogStore
	oracle     MemoryOracle
	replicator Replicator
	lock       Locker
	cfg        JobConfig
	logger     *zap.Logger

	sentinelMu   sync.Mutex
	sentinelDone bool
}

// NewJob creates a batch extraction job. replicator and lock may be nil.
func NewJob(logs LogStore, o MemoryOracle, replicator Replicator, lock Locker, cfg JobConfig, logger *zap.Logger) *Job {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.SourceTag == "" {
		cfg.SourceTag = "session"
	}
	if cfg.AgentID == "" {
		cfg.AgentID = "mnemo-extractor"
	}
	return &Job{
		logs:       logs,
		oracle:     o,
		replicator: replicator,
		lock:       lock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one job invocation. Re-running is always safe: only
// unprocessed records are selected, and a record is never reprocessed once
// marked, even when its batch's extraction failed.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if j.lock != nil {
		ok, err := j.lock.Acquire(ctx)
		if err != nil {
			j.logger.Warn("run lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !ok {
			j.logger.Info("another extraction run holds the lock, skipping")
			return result, nil
		} else {
			defer func() {
				if err := j.lock.Release(ctx); err != nil {
					j.logger.Warn("release run lock", zap.Error(err))
				}
			}()
		}
	}

	logs, err := j.logs.UnprocessedLogs(ctx, j.cfg.SourceTag)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed logs: %w", err)
	}
	if len(logs) == 0 {
		return result, nil
	}

	j.ensureSentinel(ctx)

	// Every record whose batch went through an extraction attempt gets
	// marked, whether or not the attempt produced anything.
	var toMark []string
	for start := 0; start < len(logs); start += j.cfg.BatchSize {
		end := start + j.cfg.BatchSize
		if end > len(logs) {
			end = len(logs)
		}
		batch := logs[start:end]

		extractions, err := j.oracle.ExtractMemories(ctx, batchPayload(batch))
		if err != nil {
			j.logger.Warn("oracle extraction failed, batch marked without facts",
				zap.Int("batch_size", len(batch)), zap.Error(err))
			extractions = nil
		}

		for _, e := range extractions {
			mem := &store.Memory{
				AgentID:    j.cfg.AgentID,
				MemoryType: e.Type,
				Content:    e.Content,
				Importance: e.Importance,
				Scope:      "shared",
				Tags:       append([]string{provenanceTag}, e.Tags...),
			}
			if _, err := j.logs.InsertMemory(ctx, mem); err != nil {
				j.logger.Warn("memory insert failed, skipping item", zap.Error(err))
				continue
			}
			result.Extracted++
		}

		if j.replicator != nil && len(extractions) > 0 {
			counts := j.replicator.Replicate(ctx, extractions)
			result.FastUpserted += counts.Fast
			result.DurableUpserted += counts.Durable
		}

		for _, l := range batch {
			toMark = append(toMark, l.ID)
		}
	}

	for _, id := range toMark {
		if err := j.logs.MarkProcessed(ctx, id); err != nil {
			j.logger.Warn("mark processed failed", zap.String("id", id), zap.Error(err))
			continue
		}
		result.Processed++
	}

	j.logger.Info("extraction run complete",
		zap.Int("processed", result.Processed),
		zap.Int("extracted", result.Extracted),
		zap.Int("fast_upserted", result.FastUpserted),
		zap.Int("durable_upserted", result.DurableUpserted))
	return result, nil
}

// ensureSentinel creates the sentinel owner row once per process. The upsert
// itself is idempotent on the agent id, so the in-process flag only saves a
// round trip.
func (j *Job) ensureSentinel(ctx context.Context) {
	j.sentinelMu.Lock()
	defer j.sentinelMu.Unlock()
	if j.sentinelDone {
		return
	}
	if err := j.logs.EnsureAgent(ctx, j.cfg.AgentID, "Memory Extractor", "system"); err != nil {
		j.logger.Warn("ensure sentinel agent", zap.Error(err))
		return
	}
	j.sentinelDone = true
}

// batchPayload concatenates member summaries with enumerated separators.
func batchPayload(batch []store.SessionLog) string {
	var b strings.Builder
	for i, l := range batch {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, l.Summary)
	}
	return b.String()
}
