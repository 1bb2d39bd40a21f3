package model

import (
	"fmt"
	"time"
)

// RelationKind is the fixed set of edge types in the world graph.
type RelationKind string

const (
	RelBelongsTo RelationKind = "belongs_to"
	RelEnemyOf   RelationKind = "enemy_of"
	RelCauses    RelationKind = "causes"
	RelControls  RelationKind = "controls"
	RelLocatedIn RelationKind = "located_in"
	RelViolates  RelationKind = "violates"
)

var RelationKinds = []RelationKind{
	RelBelongsTo,
	RelEnemyOf,
	RelCauses,
	RelControls,
	RelLocatedIn,
	RelViolates,
}

func (k RelationKind) Valid() bool {
	switch k {
	case RelBelongsTo, RelEnemyOf, RelCauses, RelControls, RelLocatedIn, RelViolates:
		return true
	}
	return false
}

// Relation is a directed typed edge between two entities. SourceType and
// TargetType are denormalized copies of the endpoints' types at creation time
// so rendering and rule checks need no join.
type Relation struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"project_id"`
	SourceID   string       `json:"source_id"`
	TargetID   string       `json:"target_id"`
	SourceType EntityType   `json:"source_type"`
	TargetType EntityType   `json:"target_type"`
	Relation   RelationKind `json:"relation"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (r *Relation) Validate() error {
	if r.ProjectID == "" {
		return fmt.Errorf("relation: missing project_id")
	}
	if r.SourceID == "" || r.TargetID == "" {
		return fmt.Errorf("relation: missing endpoint id")
	}
	if !r.Relation.Valid() {
		return fmt.Errorf("relation: unknown kind %q", r.Relation)
	}
	return nil
}
