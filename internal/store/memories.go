package store

import (
	"context"
	"fmt"
	"time"
)

// Memory is a durable fact derived by extraction. Rows are insert-only.
type Memory struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	MemoryType string    `json:"memory_type"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Scope      string    `json:"scope"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// InsertMemory stores a new memory row and returns its id.
func (s *Store) InsertMemory(ctx context.Context, m *Memory) (string, error) {
	if m.Scope == "" {
		m.Scope = "shared"
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO memories (agent_id, memory_type, content, importance, scope, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.AgentID, m.MemoryType, m.Content, m.Importance, m.Scope, m.Tags,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	return id, nil
}

// MemoriesByAgent returns recent memories for an agent, newest first.
func (s *Store) MemoriesByAgent(ctx context.Context, agentID string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, memory_type, content, importance, scope, tags, created_at
		FROM memories
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("select memories: %w", err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.AgentID, &m.MemoryType, &m.Content,
			&m.Importance, &m.Scope, &m.Tags, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
