package driver

import (
	"context"
	"testing"
	"time"

	"github.com/storyloom/atlas/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDriver(t *testing.T) *SQLiteDriver {
	t.Helper()
	d, err := NewSQLiteDriver(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })
	return d
}

func testEntity(id, projectID string, typ model.EntityType, name string) *model.Entity {
	return &model.Entity{
		ID:         id,
		ProjectID:  projectID,
		EntityType: typ,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestSQLiteEntityRoundTrip(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	e := testEntity("a", "p1", model.TypeCharacter, "Mira")
	e.PositionX = 120
	e.PositionY = 80
	e.Attributes = model.Attributes{"tags": []string{"royal"}}
	require.NoError(t, d.CreateEntity(ctx, e))

	got, err := d.ListEntities(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mira", got[0].Name)
	assert.Equal(t, 120, got[0].PositionX)
	assert.Equal(t, []string{"royal"}, got[0].Attributes.Tags())

	// Scoped by project.
	other, err := d.ListEntities(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteUpdateMissingEntityFails(t *testing.T) {
	d := openTestDriver(t)
	e := testEntity("ghost", "p1", model.TypePlace, "Nowhere")
	assert.Error(t, d.UpdateEntity(context.Background(), e))
	assert.Error(t, d.UpdatePosition(context.Background(), "ghost", 1, 2))
}

func TestSQLiteDeleteEntityCascades(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.CreateEntity(ctx, testEntity("a", "p1", model.TypeCharacter, "Mira")))
	require.NoError(t, d.CreateEntity(ctx, testEntity("b", "p1", model.TypePlace, "Saltmarsh")))
	require.NoError(t, d.CreateEntity(ctx, testEntity("c", "p1", model.TypeItem, "Lantern")))

	rels := []*model.Relation{
		{ID: "r1", ProjectID: "p1", SourceID: "a", TargetID: "b", SourceType: model.TypeCharacter, TargetType: model.TypePlace, Relation: model.RelLocatedIn, CreatedAt: time.Now()},
		{ID: "r2", ProjectID: "p1", SourceID: "c", TargetID: "a", SourceType: model.TypeItem, TargetType: model.TypeCharacter, Relation: model.RelBelongsTo, CreatedAt: time.Now()},
		{ID: "r3", ProjectID: "p1", SourceID: "c", TargetID: "b", SourceType: model.TypeItem, TargetType: model.TypePlace, Relation: model.RelLocatedIn, CreatedAt: time.Now()},
	}
	for _, r := range rels {
		require.NoError(t, d.CreateRelation(ctx, r))
	}

	require.NoError(t, d.DeleteEntity(ctx, "a"))

	entities, err := d.ListEntities(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	relations, err := d.ListRelations(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, "r3", relations[0].ID)
}

func TestSQLiteRelationUpdate(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.CreateEntity(ctx, testEntity("a", "p1", model.TypeCharacter, "Mira")))
	require.NoError(t, d.CreateEntity(ctx, testEntity("b", "p1", model.TypeCharacter, "Doran")))
	r := &model.Relation{
		ID: "r1", ProjectID: "p1", SourceID: "a", TargetID: "b",
		SourceType: model.TypeCharacter, TargetType: model.TypeCharacter,
		Relation: model.RelEnemyOf, CreatedAt: time.Now(),
	}
	require.NoError(t, d.CreateRelation(ctx, r))

	r.Relation = model.RelBelongsTo
	require.NoError(t, d.UpdateRelation(ctx, r))

	got, err := d.ListRelations(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.RelBelongsTo, got[0].Relation)
}
