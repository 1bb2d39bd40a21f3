package core

import (
	"context"

	"github.com/storyloom/atlas/internal/core/model"
)

// MockDriver records every persistence call and serves canned list results.
type MockDriver struct {
	Entities  []model.Entity
	Relations []model.Relation

	Err         error // returned from every mutation when set
	RelationErr error // returned from UpdateRelation only
	ListErr     error

	// OnUpdatePosition fires inside UpdatePosition, standing in for work
	// that commits while the position persist is in flight.
	OnUpdatePosition func()

	ListCalls     int
	Ops           []string
	LastEntity    *model.Entity
	LastRelation  *model.Relation
	LastPositionX int
	LastPositionY int
}

func (m *MockDriver) ListEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]model.Entity, len(m.Entities))
	copy(out, m.Entities)
	return out, nil
}

func (m *MockDriver) ListRelations(ctx context.Context, projectID string) ([]model.Relation, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]model.Relation, len(m.Relations))
	copy(out, m.Relations)
	return out, nil
}

func (m *MockDriver) CreateEntity(ctx context.Context, e *model.Entity) error {
	m.Ops = append(m.Ops, "create_entity")
	cp := *e
	m.LastEntity = &cp
	return m.Err
}

func (m *MockDriver) UpdateEntity(ctx context.Context, e *model.Entity) error {
	m.Ops = append(m.Ops, "update_entity")
	cp := *e
	m.LastEntity = &cp
	return m.Err
}

func (m *MockDriver) DeleteEntity(ctx context.Context, id string) error {
	m.Ops = append(m.Ops, "delete_entity")
	return m.Err
}

func (m *MockDriver) UpdatePosition(ctx context.Context, id string, x, y int) error {
	m.Ops = append(m.Ops, "update_position")
	m.LastPositionX = x
	m.LastPositionY = y
	if m.OnUpdatePosition != nil {
		m.OnUpdatePosition()
	}
	return m.Err
}

func (m *MockDriver) CreateRelation(ctx context.Context, r *model.Relation) error {
	m.Ops = append(m.Ops, "create_relation")
	cp := *r
	m.LastRelation = &cp
	return m.Err
}

func (m *MockDriver) UpdateRelation(ctx context.Context, r *model.Relation) error {
	m.Ops = append(m.Ops, "update_relation")
	cp := *r
	m.LastRelation = &cp
	if m.RelationErr != nil {
		return m.RelationErr
	}
	return m.Err
}

func (m *MockDriver) DeleteRelation(ctx context.Context, id string) error {
	m.Ops = append(m.Ops, "delete_relation")
	return m.Err
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

// yesConfirmer approves every destructive action.
type yesConfirmer struct{}

func (yesConfirmer) Confirm(ctx context.Context, prompt string) bool { return true }

// noConfirmer denies every destructive action.
type noConfirmer struct{}

func (noConfirmer) Confirm(ctx context.Context, prompt string) bool { return false }
