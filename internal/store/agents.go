package store

import (
	"context"
	"fmt"
)

// EnsureAgent creates an agent row if it does not exist. The upsert keys on
// the natural id, so it is safe to call from any number of processes.
func (s *Store) EnsureAgent(ctx context.Context, id, name, kind string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (id, name, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		id, name, kind)
	if err != nil {
		return fmt.Errorf("ensure agent %s: %w", id, err)
	}
	return nil
}

// AgentExists reports whether an agent row is present.
func (s *Store) AgentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("agent exists %s: %w", id, err)
	}
	return exists, nil
}
