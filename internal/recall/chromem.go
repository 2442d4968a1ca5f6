package recall

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is the fast recall backend: an embedded, in-process vector
// store with no external dependency. Latency is a map lookup; durability is
// the process lifetime.
type ChromemStore struct {
	collection *chromem.Collection
}

// NewChromemStore creates the embedded store with a single collection.
func NewChromemStore() (*ChromemStore, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("recall", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create chromem collection: %w", err)
	}
	return &ChromemStore{collection: col}, nil
}

// Upsert adds one embedded document to the collection.
func (s *ChromemStore) Upsert(ctx context.Context, rec Record, vector []float32) error {
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: vector,
		Metadata: map[string]string{
			"type":       rec.Type,
			"importance": fmt.Sprintf("%.2f", rec.Importance),
			"tags":       strings.Join(rec.Tags, ","),
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem add document: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}
