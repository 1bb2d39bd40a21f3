package model

import (
	"fmt"
	"time"
)

// EntityType is the fixed set of node types in the world graph.
type EntityType string

const (
	TypeCharacter EntityType = "character"
	TypePlace     EntityType = "place"
	TypeConcept   EntityType = "concept"
	TypeItem      EntityType = "item"
	TypeRule      EntityType = "rule"
	TypeEvent     EntityType = "event"
)

// EntityTypes lists all types in canonical order, used for grouping buckets.
var EntityTypes = []EntityType{
	TypeCharacter,
	TypePlace,
	TypeConcept,
	TypeItem,
	TypeRule,
	TypeEvent,
}

func (t EntityType) Valid() bool {
	switch t {
	case TypeCharacter, TypePlace, TypeConcept, TypeItem, TypeRule, TypeEvent:
		return true
	}
	return false
}

// HasPositionColumns reports whether the persistence layer keeps dedicated
// coordinate columns for this type. Other types embed their position in the
// attribute bag under "graphPosition".
func HasPositionColumns(t EntityType) bool {
	return t == TypeCharacter || t == TypePlace
}

type Entity struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	EntityType  EntityType `json:"entity_type"`
	SubType     string     `json:"sub_type,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PositionX   int        `json:"position_x"`
	PositionY   int        `json:"position_y"`
	Attributes  Attributes `json:"attributes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EffectiveType is the subtype refinement when present, else the base type.
func (e *Entity) EffectiveType() string {
	if e.SubType != "" {
		return e.SubType
	}
	return string(e.EntityType)
}

func (e *Entity) Validate() error {
	if e.ProjectID == "" {
		return fmt.Errorf("entity: missing project_id")
	}
	if e.Name == "" {
		return fmt.Errorf("entity: missing name")
	}
	if !e.EntityType.Valid() {
		return fmt.Errorf("entity: unknown entity_type %q", e.EntityType)
	}
	return nil
}
