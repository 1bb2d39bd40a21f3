package driver

import (
	"context"

	"github.com/storyloom/atlas/internal/core/model"
)

// GraphDriver is the persistence collaborator: project-scoped CRUD for
// entities and relations plus the position shortcut for coordinate-backed
// types. Implementations must cascade relation removal when an entity is
// deleted.
type GraphDriver interface {
	ListEntities(ctx context.Context, projectID string) ([]model.Entity, error)
	ListRelations(ctx context.Context, projectID string) ([]model.Relation, error)

	CreateEntity(ctx context.Context, e *model.Entity) error
	UpdateEntity(ctx context.Context, e *model.Entity) error
	DeleteEntity(ctx context.Context, id string) error
	UpdatePosition(ctx context.Context, id string, x, y int) error

	CreateRelation(ctx context.Context, r *model.Relation) error
	UpdateRelation(ctx context.Context, r *model.Relation) error
	DeleteRelation(ctx context.Context, id string) error

	Close(ctx context.Context) error
}
