// Package types defines the two primitive entities of the knowledge graph —
// nouns (typed vertices carrying an embedding and metadata) and verbs
// (typed directed edges) — plus the enumerations and filters shared across
// the indexes and the query engine.
package types

import (
	"time"

	"github.com/google/uuid"
)

// NounType is a closed enumeration at runtime (spec.md §9 "Polymorphism over
// type variants"): per-type HNSW subindexes key off this tag.
type NounType string

const (
	NounPerson       NounType = "Person"
	NounDocument     NounType = "Document"
	NounConcept      NounType = "Concept"
	NounEvent        NounType = "Event"
	NounOrganization NounType = "Organization"
	NounLocation     NounType = "Location"
	NounProduct      NounType = "Product"
	NounProject      NounType = "Project"
	NounTask         NounType = "Task"
	NounMessage      NounType = "Message"
	NounThing        NounType = "Thing"
	NounMedia        NounType = "Media"
	NounFile         NounType = "File"
	NounCollection   NounType = "Collection"
)

// KnownNounTypes lists every built-in NounType, used to pre-size per-type
// index maps and to validate input.
func KnownNounTypes() []NounType {
	return []NounType{
		NounPerson, NounDocument, NounConcept, NounEvent, NounOrganization,
		NounLocation, NounProduct, NounProject, NounTask, NounMessage,
		NounThing, NounMedia, NounFile, NounCollection,
	}
}

// VerbType is the closed enumeration for edges.
type VerbType string

const (
	VerbContains    VerbType = "Contains"
	VerbRelatedTo   VerbType = "RelatedTo"
	VerbFriendOf    VerbType = "FriendOf"
	VerbWorksWith   VerbType = "WorksWith"
	VerbCreatedBy   VerbType = "CreatedBy"
	VerbLocatedAt   VerbType = "LocatedAt"
	VerbPartOf      VerbType = "PartOf"
	VerbMemberOf    VerbType = "MemberOf"
	VerbReportsTo   VerbType = "ReportsTo"
	VerbChildOf     VerbType = "ChildOf"
)

// Metadata is an entity's arbitrary JSON-valued field bag.
type Metadata map[string]interface{}

// Clone returns a shallow copy of m, safe for a caller to mutate without
// affecting the stored entity (index postings are derived from a snapshot
// at write time).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Noun is a typed vertex carrying a dense embedding and metadata.
type Noun struct {
	ID         string     `json:"id"`
	Type       NounType   `json:"type"`
	Vector     []float32  `json:"vector"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	Data       []byte     `json:"data,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Weight     *float64   `json:"weight,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CreatedBy  string     `json:"createdBy,omitempty"`
}

// Verb is a typed directed edge between two nouns.
type Verb struct {
	ID        string    `json:"id"`
	Type      VerbType  `json:"type"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

// NewID returns a fresh random entity id. Grounded on the teacher's use of
// google/uuid for beads/session/resource identifiers.
func NewID() string {
	return uuid.NewString()
}

// NounInput is the caller-supplied shape for add(). ID is optional; when
// empty a fresh UUID is assigned.
type NounInput struct {
	ID         string
	Type       NounType
	Vector     []float32
	Metadata   Metadata
	Data       []byte
	Confidence *float64
	Weight     *float64
	CreatedBy  string
}

// VerbInput is the caller-supplied shape for relate().
type VerbInput struct {
	ID        string
	Type      VerbType
	From      string
	To        string
	Metadata  Metadata
	Weight    *float64
	CreatedBy string
}

// NounUpdate carries the partial-update fields for update(). Nil pointers
// mean "leave unchanged"; Metadata, when non-nil, replaces the full bag
// (the metadata index removes the old posting set before inserting the new
// one — spec.md §4.6's "v7.5 fix" symmetry requirement).
type NounUpdate struct {
	ID         string
	Data       []byte
	DataSet    bool
	Metadata   Metadata
	Confidence *float64
	Weight     *float64
}

// Direction constrains adjacency traversal (spec.md §4.10 "connected").
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// IssueFilter-equivalent for this domain: WhereClause is the operator-
// grammar payload accepted by the metadata field index (spec.md §4.6).
// Each key is either a field name mapped to a scalar/operator object, or
// one of the boolean combinators "$and"/"$or" mapped to a slice of
// WhereClause.
type WhereClause map[string]interface{}

const (
	OpEq       = "$eq"
	OpNe       = "$ne"
	OpGt       = "$gt"
	OpGte      = "$gte"
	OpLt       = "$lt"
	OpLte      = "$lte"
	OpIn       = "$in"
	OpContains = "$contains"
	OpAnd      = "$and"
	OpOr       = "$or"
)

// Connected describes a graph-traversal query dimension.
type Connected struct {
	From     string
	MaxDepth int
	Dir      Direction
	Type     *VerbType
}

// FindQuery is the unified query engine's input shape (spec.md §4.10).
type FindQuery struct {
	Query       string
	Vector      []float32
	Connected   *Connected
	Where       WhereClause
	Type        []NounType
	Limit       int
	IncludeVFS  bool
	ExcludeVFS  bool
	SearchMode  string
}

// SearchTypes records which query dimensions contributed to a fused result.
type SearchTypes struct {
	Vector bool
	Graph  bool
	Field  bool
}

// FindResult is one row of a fused query response.
type FindResult struct {
	ID          string
	Score       float64
	Entity      *Noun
	SearchTypes SearchTypes
	Type        NounType
	Metadata    Metadata
	Data        []byte
	Confidence  *float64
	Weight      *float64
}

// RelationQuery selects verbs for getRelations (spec.md §4.7).
type RelationQuery struct {
	From   string
	To     string
	Type   *VerbType
	Limit  int
	Cursor string
}
