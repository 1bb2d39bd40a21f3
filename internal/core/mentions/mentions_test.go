package mentions

import (
	"context"
	"errors"
	"testing"

	"github.com/storyloom/atlas/internal/core/model"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	mentions []model.Mention
	err      error
	// onLookup fires during the lookup, before the stale check runs.
	onLookup func()
}

func (f *fakeSource) GetMentions(ctx context.Context, projectID, entityID string, entityType model.EntityType, name string) ([]model.Mention, error) {
	if f.onLookup != nil {
		f.onLookup()
	}
	return f.mentions, f.err
}

func selected(id string) func(string) bool {
	return func(candidate string) bool { return candidate == id }
}

func TestResolveReturnsMentions(t *testing.T) {
	src := &fakeSource{mentions: []model.Mention{
		{ChapterID: "ch1", ChapterTitle: "Prologue", Context: "Mira rises."},
	}}
	r := NewResolver(src)

	e := model.Entity{ID: "e1", ProjectID: "p1", EntityType: model.TypeCharacter, Name: "Mira"}
	got, ok := r.Resolve(context.Background(), e, selected("e1"))
	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "Prologue", got[0].ChapterTitle)
}

func TestResolveDiscardsStaleResult(t *testing.T) {
	current := "e1"
	src := &fakeSource{
		mentions: []model.Mention{{ChapterID: "ch1"}},
		onLookup: func() { current = "e2" }, // selection changes mid-flight
	}
	r := NewResolver(src)

	e := model.Entity{ID: "e1", ProjectID: "p1", EntityType: model.TypeCharacter, Name: "Mira"}
	got, ok := r.Resolve(context.Background(), e, func(id string) bool { return id == current })
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResolveFailureDegradesToEmpty(t *testing.T) {
	src := &fakeSource{err: errors.New("search backend down")}
	r := NewResolver(src)

	e := model.Entity{ID: "e1", ProjectID: "p1", EntityType: model.TypeCharacter, Name: "Mira"}
	got, ok := r.Resolve(context.Background(), e, selected("e1"))
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolveNoMatchesYieldsEmptyNotNil(t *testing.T) {
	r := NewResolver(&fakeSource{})
	e := model.Entity{ID: "e1", ProjectID: "p1", EntityType: model.TypePlace, Name: "Saltmarsh"}
	got, ok := r.Resolve(context.Background(), e, nil)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
