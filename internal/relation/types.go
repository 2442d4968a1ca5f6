package relation

import "time"

// Type categorizes the relationship between two entities. The set is closed:
// anything outside it is rejected at validation time.
type Type string

const (
	TypeWorksAt          Type = "works_at"
	TypeWorksOn          Type = "works_on"
	TypeCollaboratesWith Type = "collaborates_with"
	TypePartOf           Type = "part_of"
	TypeRelatedTo        Type = "related_to"
	TypeDependsOn        Type = "depends_on"
	TypeOwns             Type = "owns"
	TypeMentions         Type = "mentions"
	TypeInfluencedBy     Type = "influenced_by"
)

var validTypes = map[Type]bool{
	TypeWorksAt:          true,
	TypeWorksOn:          true,
	TypeCollaboratesWith: true,
	TypePartOf:           true,
	TypeRelatedTo:        true,
	TypeDependsOn:        true,
	TypeOwns:             true,
	TypeMentions:         true,
	TypeInfluencedBy:     true,
}

// Valid reports whether t is a member of the closed relation-type set.
func (t Type) Valid() bool {
	return validTypes[t]
}

// Candidate is an observed relation before it reaches the store. An edge is
// identified by (lower(Source), lower(Target), Type); display case is preserved
// on the entity nodes but ignored for identity.
type Candidate struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type,omitempty"`
	Target     string `json:"target"`
	TargetType string `json:"target_type,omitempty"`
	Type       Type   `json:"relation"`
	Context    string `json:"context,omitempty"`
}

// Direction indicates which side of an edge matched a one-hop query.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Related is a one-hop query result row.
type Related struct {
	Name         string    `json:"name"`
	EntityType   string    `json:"type,omitempty"`
	Relation     Type      `json:"relation"`
	Direction    Direction `json:"direction"`
	Strength     float64   `json:"strength"`
	MentionCount int       `json:"mention_count"`
}

// Neighbor is an undirected one-hop edge used by traversal.
type Neighbor struct {
	Name       string `json:"name"`
	EntityType string `json:"type,omitempty"`
	Relation   Type   `json:"relation"`
}

// NeighborhoodEntry is a multi-hop traversal result row.
type NeighborhoodEntry struct {
	Name       string `json:"name"`
	EntityType string `json:"type,omitempty"`
	Relation   Type   `json:"relation"`
	Hop        int    `json:"hop"`
	Via        string `json:"via"`
}

// Entity is a fuzzy-search result row.
type Entity struct {
	Name       string `json:"name"`
	EntityType string `json:"type,omitempty"`
}

// Edge is the full stored state of a relation, as read back from the graph.
type Edge struct {
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	Type         Type      `json:"relation"`
	Strength     float64   `json:"strength"`
	MentionCount int       `json:"mention_count"`
	Context      string    `json:"context,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
}

// UpsertOutcome distinguishes a first observation from a repeat one.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)
