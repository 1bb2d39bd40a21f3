// Package rules holds the relation-compatibility table: for each ordered pair
// of entity types, the one relation kind considered the natural default when
// the user draws a connection on the canvas. Pairs without an entry cannot be
// connected by gesture.
package rules

import "github.com/storyloom/atlas/internal/core/model"

var defaults = map[model.EntityType]map[model.EntityType]model.RelationKind{
	model.TypeCharacter: {
		model.TypeCharacter: model.RelEnemyOf,
		model.TypePlace:     model.RelLocatedIn,
		model.TypeConcept:   model.RelBelongsTo,
		model.TypeItem:      model.RelControls,
		model.TypeEvent:     model.RelCauses,
		model.TypeRule:      model.RelViolates,
	},
	model.TypePlace: {
		model.TypePlace:   model.RelBelongsTo,
		model.TypeConcept: model.RelBelongsTo,
	},
	model.TypeItem: {
		model.TypeCharacter: model.RelBelongsTo,
		model.TypePlace:     model.RelLocatedIn,
		model.TypeConcept:   model.RelBelongsTo,
	},
	model.TypeEvent: {
		model.TypeCharacter: model.RelCauses,
		model.TypePlace:     model.RelLocatedIn,
		model.TypeEvent:     model.RelCauses,
		model.TypeRule:      model.RelViolates,
	},
	model.TypeConcept: {
		model.TypeConcept: model.RelBelongsTo,
	},
	model.TypeRule: {
		model.TypeConcept: model.RelBelongsTo,
	},
	// rule→rule intentionally absent: rules do not relate to each other.
}

// DefaultKind returns the default relation for a (source, target) type pair,
// or false when the pair cannot be connected.
func DefaultKind(source, target model.EntityType) (model.RelationKind, bool) {
	kinds, ok := defaults[source]
	if !ok {
		return "", false
	}
	kind, ok := kinds[target]
	return kind, ok
}
