// Package mentions resolves manuscript backlinks for a selected entity.
// Results are recomputed per selection and never cached: the entity's name
// may have changed since the last lookup.
package mentions

import (
	"context"
	"log"

	"github.com/storyloom/atlas/internal/core/model"
)

// Source is the manuscript/search collaborator.
type Source interface {
	GetMentions(ctx context.Context, projectID, entityID string, entityType model.EntityType, name string) ([]model.Mention, error)
}

type Resolver struct {
	source Source
}

func NewResolver(s Source) *Resolver {
	return &Resolver{source: s}
}

// Resolve fetches passages mentioning the entity's current name. When the
// lookup returns, stillSelected re-checks the live selection against the
// entity id captured at request time; a stale result is discarded (ok=false)
// rather than applied. Lookup failures degrade to an empty list; mentions
// are supplementary, never a hard error.
func (r *Resolver) Resolve(ctx context.Context, e model.Entity, stillSelected func(entityID string) bool) ([]model.Mention, bool) {
	requested := e.ID

	found, err := r.source.GetMentions(ctx, e.ProjectID, e.ID, e.EntityType, e.Name)

	if stillSelected != nil && !stillSelected(requested) {
		return nil, false
	}
	if err != nil {
		log.Printf("Mention lookup for %s failed: %v", e.ID, err)
		return []model.Mention{}, true
	}
	if found == nil {
		found = []model.Mention{}
	}
	return found, true
}
