package graphquery

import (
	"context"

	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

// Graph is the read surface of the relation store.
type Graph interface {
	RelatedTo(ctx context.Context, name string) ([]relation.Related, error)
	Neighborhood(ctx context.Context, name string, maxHops int) ([]relation.NeighborhoodEntry, error)
	SearchEntities(ctx context.Context, query string, limit int) ([]relation.Entity, error)
}

// EntityMatch joins a matched entity with its one-hop relations.
type EntityMatch struct {
	relation.Entity
	Relations []relation.Related `json:"relations"`
}

// Service is a thin read facade over the relation graph. It never mutates and
// never caches: every call reads current store state.
type Service struct {
	graph  Graph
	logger *zap.Logger
}

// NewService creates a graph query service.
func NewService(graph Graph, logger *zap.Logger) *Service {
	return &Service{graph: graph, logger: logger}
}

// Related returns the one-hop relations of an entity.
func (s *Service) Related(ctx context.Context, name string) ([]relation.Related, error) {
	return s.graph.RelatedTo(ctx, name)
}

// Neighborhood returns the multi-hop neighborhood of an entity.
func (s *Service) Neighborhood(ctx context.Context, name string, maxHops int) ([]relation.NeighborhoodEntry, error) {
	return s.graph.Neighborhood(ctx, name, maxHops)
}

// Search finds entities by substring and joins each with its one-hop
// relations for a combined view.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]EntityMatch, error) {
	entities, err := s.graph.SearchEntities(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]EntityMatch, 0, len(entities))
	for _, e := range entities {
		related, err := s.graph.RelatedTo(ctx, e.Name)
		if err != nil {
			s.logger.Warn("one-hop join failed", zap.String("entity", e.Name), zap.Error(err))
			related = nil
		}
		matches = append(matches, EntityMatch{Entity: e, Relations: related})
	}
	return matches, nil
}
