package graphquery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

// fakeGraph serves canned graph data.
type fakeGraph struct {
	entities   []relation.Entity
	related    map[string][]relation.Related
	relatedErr error
}

func (f *fakeGraph) RelatedTo(_ context.Context, name string) ([]relation.Related, error) {
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return f.related[strings.ToLower(name)], nil
}

func (f *fakeGraph) Neighborhood(_ context.Context, _ string, _ int) ([]relation.NeighborhoodEntry, error) {
	return nil, nil
}

func (f *fakeGraph) SearchEntities(_ context.Context, query string, _ int) ([]relation.Entity, error) {
	var out []relation.Entity
	for _, e := range f.entities {
		if strings.Contains(strings.ToLower(e.Name), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestSearchJoinsOneHopRelations(t *testing.T) {
	g := &fakeGraph{
		entities: []relation.Entity{
			{Name: "SBOS", EntityType: "project"},
			{Name: "SBOS Dashboard", EntityType: "component"},
		},
		related: map[string][]relation.Related{
			"sbos": {
				{Name: "Alice", Relation: relation.TypeWorksOn, Direction: relation.DirectionIncoming},
			},
		},
	}
	svc := NewService(g, zap.NewNop())

	matches, err := svc.Search(context.Background(), "sbos", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if len(matches[0].Relations) != 1 || matches[0].Relations[0].Name != "Alice" {
		t.Errorf("first match relations = %+v, want Alice incoming", matches[0].Relations)
	}
	if len(matches[1].Relations) != 0 {
		t.Errorf("second match should have no relations, got %+v", matches[1].Relations)
	}
}

func TestSearchToleratesJoinFailure(t *testing.T) {
	g := &fakeGraph{
		entities:   []relation.Entity{{Name: "SBOS"}},
		relatedErr: errors.New("graph down"),
	}
	svc := NewService(g, zap.NewNop())

	matches, err := svc.Search(context.Background(), "sbos", 10)
	if err != nil {
		t.Fatalf("search must tolerate join failure: %v", err)
	}
	if len(matches) != 1 || matches[0].Relations != nil {
		t.Errorf("matches = %+v, want one match with nil relations", matches)
	}
}
