package relation

import (
	"context"
	"strings"
)

const (
	minHops   = 1
	maxHops   = 3
	resultCap = 50
)

// neighborSource yields undirected one-hop edges for a node. The Store
// satisfies it; tests substitute an in-memory graph.
type neighborSource interface {
	Neighbors(ctx context.Context, name string) ([]Neighbor, error)
}

type frontierNode struct {
	name string
	hop  int
}

// traverse performs a breadth-first walk from origin up to hops levels deep.
// The hop count is clamped to [1,3]. The origin itself is never emitted, each
// node appears once at the smallest hop it was reached (guaranteed by visiting
// level by level), and the walk stops after 50 results. Edges are walkable from
// either endpoint; the emitted entry still carries the underlying relation type
// and the node it was reached through.
func traverse(ctx context.Context, src neighborSource, origin string, hops int) ([]NeighborhoodEntry, error) {
	if hops < minHops {
		hops = minHops
	}
	if hops > maxHops {
		hops = maxHops
	}

	originKey := strings.ToLower(origin)
	visited := map[string]bool{originKey: true}
	frontier := []frontierNode{{name: origin, hop: 0}}

	var entries []NeighborhoodEntry
	for len(frontier) > 0 && len(entries) < resultCap {
		node := frontier[0]
		frontier = frontier[1:]
		if node.hop >= hops {
			continue
		}

		neighbors, err := src.Neighbors(ctx, node.name)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			key := strings.ToLower(n.Name)
			if visited[key] {
				continue
			}
			visited[key] = true
			entries = append(entries, NeighborhoodEntry{
				Name:       n.Name,
				EntityType: n.EntityType,
				Relation:   n.Relation,
				Hop:        node.hop + 1,
				Via:        node.name,
			})
			if len(entries) >= resultCap {
				break
			}
			frontier = append(frontier, frontierNode{name: n.Name, hop: node.hop + 1})
		}
	}
	return entries, nil
}
