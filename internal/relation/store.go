package relation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Store persists the entity-relationship graph in Neo4j. Entities are nodes
// keyed by lowercased name; edges carry the relation type, strength and
// mention count.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a Neo4j-backed relation store.
func NewStore(uri, user, password string, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Store{driver: driver, logger: logger}, nil
}

// Migrate creates the uniqueness constraint on the entity key. Without it,
// two transactions MERGE-creating the same previously unseen entity can both
// commit a node; the constraint makes concurrent MERGEs serialize on the key.
func (s *Store) Migrate(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`CREATE CONSTRAINT entity_key IF NOT EXISTS
		 FOR (e:Entity) REQUIRE e.key IS UNIQUE`, nil)
	if err != nil {
		return fmt.Errorf("create entity key constraint: %w", err)
	}
	return nil
}

// Close shuts down the Neo4j driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the Neo4j connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Upsert records one observation of a relation as a single conditional write.
// A new edge starts at strength 0.5 with mention count 1; a repeat observation
// bumps the count, adds 0.05 strength up to the 1.0 cap, refreshes last_seen,
// and replaces the context only when the candidate supplies a non-empty one.
// The MERGE keys on (lower(source), lower(target), type), so concurrent writers
// cannot lose updates to the same edge.
func (s *Store) Upsert(ctx context.Context, c *Candidate) (UpsertOutcome, error) {
	if c.Source == "" || c.Target == "" {
		return "", fmt.Errorf("upsert relation: empty endpoint")
	}
	if !c.Type.Valid() {
		return "", fmt.Errorf("upsert relation: unknown type %q", c.Type)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MERGE (a:Entity {key: $skey})
		 ON CREATE SET a.name = $sname
		 SET a.type = CASE WHEN $stype <> '' THEN $stype ELSE a.type END
		 MERGE (b:Entity {key: $tkey})
		 ON CREATE SET b.name = $tname
		 SET b.type = CASE WHEN $ttype <> '' THEN $ttype ELSE b.type END
		 MERGE (a)-[r:RELATES_TO {type: $rtype}]->(b)
		 ON CREATE SET
			r.strength = 0.5,
			r.mention_count = 1,
			r.context = $context,
			r.last_seen = datetime($now)
		 ON MATCH SET
			r.mention_count = r.mention_count + 1,
			r.strength = CASE WHEN r.strength + 0.05 > 1.0 THEN 1.0 ELSE r.strength + 0.05 END,
			r.context = CASE WHEN $context <> '' THEN $context ELSE r.context END,
			r.last_seen = datetime($now)
		 RETURN r.mention_count AS mentions`,
		map[string]interface{}{
			"skey":    strings.ToLower(c.Source),
			"sname":   c.Source,
			"stype":   c.SourceType,
			"tkey":    strings.ToLower(c.Target),
			"tname":   c.Target,
			"ttype":   c.TargetType,
			"rtype":   string(c.Type),
			"context": c.Context,
			"now":     time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return "", fmt.Errorf("upsert relation: %w", err)
	}
	if !result.Next(ctx) {
		return "", fmt.Errorf("upsert relation: no row returned")
	}
	mentions, _ := result.Record().Get("mentions")
	if n, ok := mentions.(int64); ok && n > 1 {
		return OutcomeUpdated, nil
	}
	return OutcomeCreated, nil
}

// RelatedTo returns all one-hop relations touching the named entity,
// case-insensitively, with the direction seen from the query entity.
func (s *Store) RelatedTo(ctx context.Context, name string) ([]Related, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Entity {key: $key})-[r:RELATES_TO]->(b:Entity)
		 RETURN b.name AS name, b.type AS type, r.type AS relation,
			r.strength AS strength, r.mention_count AS mentions, 'outgoing' AS direction
		 UNION
		 MATCH (b:Entity)-[r:RELATES_TO]->(a:Entity {key: $key})
		 RETURN b.name AS name, b.type AS type, r.type AS relation,
			r.strength AS strength, r.mention_count AS mentions, 'incoming' AS direction`,
		map[string]interface{}{"key": strings.ToLower(name)})
	if err != nil {
		return nil, fmt.Errorf("related to %s: %w", name, err)
	}

	var related []Related
	for result.Next(ctx) {
		rec := result.Record()
		related = append(related, Related{
			Name:         stringValue(rec, "name"),
			EntityType:   stringValue(rec, "type"),
			Relation:     Type(stringValue(rec, "relation")),
			Direction:    Direction(stringValue(rec, "direction")),
			Strength:     floatValue(rec, "strength"),
			MentionCount: intValue(rec, "mentions"),
		})
	}
	return related, result.Err()
}

// Neighbors returns the undirected one-hop edges of the named entity. Traversal
// walks edges from either endpoint, so direction is dropped here.
func (s *Store) Neighbors(ctx context.Context, name string) ([]Neighbor, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Entity {key: $key})-[r:RELATES_TO]-(b:Entity)
		 RETURN b.name AS name, b.type AS type, r.type AS relation`,
		map[string]interface{}{"key": strings.ToLower(name)})
	if err != nil {
		return nil, fmt.Errorf("neighbors of %s: %w", name, err)
	}

	var neighbors []Neighbor
	for result.Next(ctx) {
		rec := result.Record()
		neighbors = append(neighbors, Neighbor{
			Name:       stringValue(rec, "name"),
			EntityType: stringValue(rec, "type"),
			Relation:   Type(stringValue(rec, "relation")),
		})
	}
	return neighbors, result.Err()
}

// Neighborhood runs a bounded breadth-first traversal from the named entity.
func (s *Store) Neighborhood(ctx context.Context, name string, maxHops int) ([]NeighborhoodEntry, error) {
	return traverse(ctx, s, name, maxHops)
}

// SearchEntities returns entities whose name contains the query,
// case-insensitively, deduplicated.
func (s *Store) SearchEntities(ctx context.Context, query string, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (e:Entity)
		 WHERE e.key CONTAINS $q
		 RETURN DISTINCT e.name AS name, e.type AS type
		 LIMIT $limit`,
		map[string]interface{}{"q": strings.ToLower(query), "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("search entities %q: %w", query, err)
	}

	var entities []Entity
	for result.Next(ctx) {
		rec := result.Record()
		entities = append(entities, Entity{
			Name:       stringValue(rec, "name"),
			EntityType: stringValue(rec, "type"),
		})
	}
	return entities, result.Err()
}

// GetEdge reads back the stored state of a single edge, or nil when absent.
func (s *Store) GetEdge(ctx context.Context, source, target string, relType Type) (*Edge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Entity {key: $skey})-[r:RELATES_TO {type: $rtype}]->(b:Entity {key: $tkey})
		 RETURN a.name AS source, b.name AS target, r.strength AS strength,
			r.mention_count AS mentions, r.context AS context`,
		map[string]interface{}{
			"skey":  strings.ToLower(source),
			"tkey":  strings.ToLower(target),
			"rtype": string(relType),
		})
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	if !result.Next(ctx) {
		return nil, nil
	}
	rec := result.Record()
	return &Edge{
		Source:       stringValue(rec, "source"),
		Target:       stringValue(rec, "target"),
		Type:         relType,
		Strength:     floatValue(rec, "strength"),
		MentionCount: intValue(rec, "mentions"),
		Context:      stringValue(rec, "context"),
	}, nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func floatValue(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func intValue(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return 0
}
