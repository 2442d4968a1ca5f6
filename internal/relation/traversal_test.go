package relation

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// memGraph is an in-memory undirected graph for traversal tests.
type memGraph struct {
	edges map[string][]Neighbor // lowercased name -> neighbors
}

func newMemGraph(pairs ...[2]string) *memGraph {
	g := &memGraph{edges: make(map[string][]Neighbor)}
	for _, p := range pairs {
		g.add(p[0], p[1], TypeRelatedTo)
	}
	return g
}

func (g *memGraph) add(a, b string, rel Type) {
	ka, kb := strings.ToLower(a), strings.ToLower(b)
	g.edges[ka] = append(g.edges[ka], Neighbor{Name: b, Relation: rel})
	g.edges[kb] = append(g.edges[kb], Neighbor{Name: a, Relation: rel})
}

func (g *memGraph) Neighbors(_ context.Context, name string) ([]Neighbor, error) {
	return g.edges[strings.ToLower(name)], nil
}

func entryNames(entries []NeighborhoodEntry) map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		m[e.Name] = e.Hop
	}
	return m
}

func TestTraverseChain(t *testing.T) {
	// A - B - C - D
	g := newMemGraph([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"})

	entries, err := traverse(context.Background(), g, "A", 2)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	hops := entryNames(entries)
	if len(hops) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(hops), hops)
	}
	if hops["B"] != 1 {
		t.Errorf("B at hop %d, want 1", hops["B"])
	}
	if hops["C"] != 2 {
		t.Errorf("C at hop %d, want 2", hops["C"])
	}
	if _, ok := hops["A"]; ok {
		t.Error("origin A must not appear in results")
	}
	if _, ok := hops["D"]; ok {
		t.Error("D is 3 hops out, must not appear with maxHops=2")
	}
}

func TestTraverseSingleHop(t *testing.T) {
	g := newMemGraph([2]string{"A", "B"}, [2]string{"B", "C"})

	entries, err := traverse(context.Background(), g, "A", 1)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "B" {
		t.Fatalf("got %v, want only B", entries)
	}
	if entries[0].Via != "A" {
		t.Errorf("via = %q, want A", entries[0].Via)
	}
}

func TestTraverseCycle(t *testing.T) {
	// A - B - C - A: cycle must not revisit nodes or the origin.
	g := newMemGraph([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})

	entries, err := traverse(context.Background(), g, "A", 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	hops := entryNames(entries)
	if len(hops) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(hops), hops)
	}
	// Both B and C are direct neighbors of A.
	if hops["B"] != 1 || hops["C"] != 1 {
		t.Errorf("expected B and C at hop 1, got %v", hops)
	}
}

func TestTraverseSmallestHopWins(t *testing.T) {
	// Diamond: A-B, A-C, B-D, C-D. D is reachable at hop 2 twice; it must
	// appear exactly once.
	g := newMemGraph(
		[2]string{"A", "B"}, [2]string{"A", "C"},
		[2]string{"B", "D"}, [2]string{"C", "D"},
	)

	entries, err := traverse(context.Background(), g, "A", 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	seen := 0
	for _, e := range entries {
		if e.Name == "D" {
			seen++
			if e.Hop != 2 {
				t.Errorf("D at hop %d, want 2", e.Hop)
			}
		}
	}
	if seen != 1 {
		t.Errorf("D appeared %d times, want 1", seen)
	}
}

func TestTraverseCaseInsensitiveVisited(t *testing.T) {
	g := &memGraph{edges: make(map[string][]Neighbor)}
	g.add("Alice", "SBOS", TypeWorksOn)
	g.add("sbos", "Dashboard", TypePartOf)

	entries, err := traverse(context.Background(), g, "alice", 2)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	hops := entryNames(entries)
	if _, ok := hops["Alice"]; ok {
		t.Error("origin must be excluded regardless of case")
	}
	if hops["Dashboard"] != 2 {
		t.Errorf("Dashboard at hop %d, want 2", hops["Dashboard"])
	}
}

func TestTraverseClampsHops(t *testing.T) {
	// Chain of 6: with a requested depth of 10, clamping to 3 stops at hop 3.
	g := newMemGraph(
		[2]string{"N1", "N2"}, [2]string{"N2", "N3"}, [2]string{"N3", "N4"},
		[2]string{"N4", "N5"}, [2]string{"N5", "N6"},
	)

	entries, err := traverse(context.Background(), g, "N1", 10)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	for _, e := range entries {
		if e.Hop > 3 {
			t.Errorf("entry %s at hop %d, hops must clamp to 3", e.Name, e.Hop)
		}
	}
	hops := entryNames(entries)
	if _, ok := hops["N5"]; ok {
		t.Error("N5 is 4 hops out, must not appear")
	}
}

func TestTraverseResultCap(t *testing.T) {
	// Star with 60 leaves: results must cap at 50.
	g := &memGraph{edges: make(map[string][]Neighbor)}
	for i := 0; i < 60; i++ {
		g.add("hub", fmt.Sprintf("leaf-%02d", i), TypeRelatedTo)
	}

	entries, err := traverse(context.Background(), g, "hub", 1)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(entries) != 50 {
		t.Errorf("got %d entries, want cap of 50", len(entries))
	}
}
