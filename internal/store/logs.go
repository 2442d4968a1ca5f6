package store

import (
	"context"
	"fmt"
	"time"
)

// SessionLog is a raw conversational record awaiting extraction. Rows are
// created by the ingester; this subsystem only reads them and flips the
// processed flag.
type SessionLog struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertLog stores a new session log and returns its id.
func (s *Store) InsertLog(ctx context.Context, source, summary string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO session_logs (source, summary)
		VALUES ($1, $2)
		RETURNING id`,
		source, summary,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert session log: %w", err)
	}
	return id, nil
}

// UnprocessedLogs returns every unprocessed log with the given source tag,
// oldest first. No time window: the backlog accumulates until drained.
func (s *Store) UnprocessedLogs(ctx context.Context, source string) ([]SessionLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, source, summary, processed, created_at
		FROM session_logs
		WHERE source = $1 AND NOT processed
		ORDER BY created_at ASC`, source)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed logs: %w", err)
	}
	defer rows.Close()

	var logs []SessionLog
	for rows.Next() {
		var l SessionLog
		if err := rows.Scan(&l.ID, &l.Source, &l.Summary, &l.Processed, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// MarkProcessed flips the processed flag for a single log.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE session_logs SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark log %s processed: %w", id, err)
	}
	return nil
}
