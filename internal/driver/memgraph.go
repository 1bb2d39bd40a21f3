package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/storyloom/atlas/internal/core/model"
)

// MemgraphDriver persists the world graph as labeled nodes and RELATES_TO
// edges in Memgraph (or any Bolt-speaking Neo4j-compatible store).
type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(uri, username, password string) (*MemgraphDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to Memgraph")
	return &MemgraphDriver{Driver: d}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) executeQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// BuildIndices creates id and project_id indices. Failures are logged and
// skipped since the index may already exist.
func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Entity(id);",
		"CREATE INDEX ON :Entity(project_id);",
	}
	for _, q := range queries {
		if _, err := d.executeQuery(ctx, q, nil); err != nil {
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}
	return nil
}

func (d *MemgraphDriver) CreateEntity(ctx context.Context, e *model.Entity) error {
	return d.saveEntity(ctx, e)
}

func (d *MemgraphDriver) UpdateEntity(ctx context.Context, e *model.Entity) error {
	return d.saveEntity(ctx, e)
}

func (d *MemgraphDriver) saveEntity(ctx context.Context, e *model.Entity) error {
	attrs, err := marshalAttributes(e.Attributes)
	if err != nil {
		return err
	}
	params := map[string]interface{}{
		"id":          e.ID,
		"project_id":  e.ProjectID,
		"entity_type": string(e.EntityType),
		"sub_type":    e.SubType,
		"name":        e.Name,
		"description": e.Description,
		"position_x":  int64(e.PositionX),
		"position_y":  int64(e.PositionY),
		"attributes":  attrs,
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	_, err = d.executeQuery(ctx, SaveEntityQuery, params)
	return err
}

func (d *MemgraphDriver) DeleteEntity(ctx context.Context, id string) error {
	_, err := d.executeQuery(ctx, DeleteEntityQuery, map[string]interface{}{"id": id})
	return err
}

func (d *MemgraphDriver) UpdatePosition(ctx context.Context, id string, x, y int) error {
	_, err := d.executeQuery(ctx, UpdatePositionQuery, map[string]interface{}{
		"id":         id,
		"position_x": int64(x),
		"position_y": int64(y),
	})
	return err
}

func (d *MemgraphDriver) CreateRelation(ctx context.Context, r *model.Relation) error {
	params := map[string]interface{}{
		"id":          r.ID,
		"project_id":  r.ProjectID,
		"source_id":   r.SourceID,
		"target_id":   r.TargetID,
		"source_type": string(r.SourceType),
		"target_type": string(r.TargetType),
		"relation":    string(r.Relation),
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	_, err := d.executeQuery(ctx, SaveRelationQuery, params)
	return err
}

func (d *MemgraphDriver) UpdateRelation(ctx context.Context, r *model.Relation) error {
	params := map[string]interface{}{
		"id":          r.ID,
		"relation":    string(r.Relation),
		"source_type": string(r.SourceType),
		"target_type": string(r.TargetType),
	}
	_, err := d.executeQuery(ctx, UpdateRelationQuery, params)
	return err
}

func (d *MemgraphDriver) DeleteRelation(ctx context.Context, id string) error {
	_, err := d.executeQuery(ctx, DeleteRelationQuery, map[string]interface{}{"id": id})
	return err
}

func (d *MemgraphDriver) ListEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	res, err := d.executeQuery(ctx, ListEntitiesQuery, map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}

	entities := make([]model.Entity, 0, len(res.Records))
	for _, rec := range res.Records {
		e := model.Entity{
			ProjectID:   projectID,
			ID:          recString(rec, "id"),
			EntityType:  model.EntityType(recString(rec, "entity_type")),
			SubType:     recString(rec, "sub_type"),
			Name:        recString(rec, "name"),
			Description: recString(rec, "description"),
			PositionX:   recInt(rec, "position_x"),
			PositionY:   recInt(rec, "position_y"),
			CreatedAt:   recTime(rec, "created_at"),
		}
		if attrs := recString(rec, "attributes"); attrs != "" {
			var bag model.Attributes
			if err := json.Unmarshal([]byte(attrs), &bag); err == nil {
				e.Attributes = bag
			}
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (d *MemgraphDriver) ListRelations(ctx context.Context, projectID string) ([]model.Relation, error) {
	res, err := d.executeQuery(ctx, ListRelationsQuery, map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}

	relations := make([]model.Relation, 0, len(res.Records))
	for _, rec := range res.Records {
		relations = append(relations, model.Relation{
			ProjectID:  projectID,
			ID:         recString(rec, "id"),
			SourceID:   recString(rec, "source_id"),
			TargetID:   recString(rec, "target_id"),
			SourceType: model.EntityType(recString(rec, "source_type")),
			TargetType: model.EntityType(recString(rec, "target_type")),
			Relation:   model.RelationKind(recString(rec, "relation")),
			CreatedAt:  recTime(rec, "created_at"),
		})
	}
	return relations, nil
}

// Attributes travel as a JSON string property since Bolt properties cannot
// hold nested maps.
func marshalAttributes(a model.Attributes) (string, error) {
	if len(a) == 0 {
		return "", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return string(data), nil
}

func recString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func recInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func recTime(rec *neo4j.Record, key string) time.Time {
	s := recString(rec, key)
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
