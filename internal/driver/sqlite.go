package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/storyloom/atlas/internal/core/model"
)

// schema is executed on every open; IF NOT EXISTS keeps it idempotent.
const graphSchema = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    sub_type    TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    position_x  INTEGER NOT NULL DEFAULT 0,
    position_y  INTEGER NOT NULL DEFAULT 0,
    attributes  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_project ON entities(project_id);

CREATE TABLE IF NOT EXISTS relations (
    id          TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    source_id   TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    source_type TEXT NOT NULL,
    target_type TEXT NOT NULL,
    relation    TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relations_project ON relations(project_id);
CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id);
`

// SQLiteDriver is the embedded persistence backend: the same GraphDriver
// contract as Memgraph, without external infrastructure.
type SQLiteDriver struct {
	db *sql.DB
}

func NewSQLiteDriver(path string) (*SQLiteDriver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows a single writer; one pooled connection avoids
	// SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(graphSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteDriver{db: db}, nil
}

func (d *SQLiteDriver) Close(ctx context.Context) error {
	return d.db.Close()
}

func (d *SQLiteDriver) CreateEntity(ctx context.Context, e *model.Entity) error {
	attrs, err := marshalAttributes(e.Attributes)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO entities (id, project_id, entity_type, sub_type, name, description, position_x, position_y, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = d.db.ExecContext(ctx, q,
		e.ID, e.ProjectID, string(e.EntityType), e.SubType, e.Name, e.Description,
		e.PositionX, e.PositionY, attrs, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert entity %s: %w", e.ID, err)
	}
	return nil
}

func (d *SQLiteDriver) UpdateEntity(ctx context.Context, e *model.Entity) error {
	attrs, err := marshalAttributes(e.Attributes)
	if err != nil {
		return err
	}
	const q = `
		UPDATE entities
		SET entity_type = ?, sub_type = ?, name = ?, description = ?,
			position_x = ?, position_y = ?, attributes = ?
		WHERE id = ?`
	res, err := d.db.ExecContext(ctx, q,
		string(e.EntityType), e.SubType, e.Name, e.Description,
		e.PositionX, e.PositionY, attrs, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entity %s: %w", e.ID, err)
	}
	return requireRow(res, e.ID)
}

// DeleteEntity removes the entity and every relation touching it in one
// transaction.
func (d *SQLiteDriver) DeleteEntity(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return fmt.Errorf("failed to cascade relations for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete entity %s: %w", id, err)
	}
	return tx.Commit()
}

func (d *SQLiteDriver) UpdatePosition(ctx context.Context, id string, x, y int) error {
	res, err := d.db.ExecContext(ctx, `UPDATE entities SET position_x = ?, position_y = ? WHERE id = ?`, x, y, id)
	if err != nil {
		return fmt.Errorf("failed to update position for %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (d *SQLiteDriver) CreateRelation(ctx context.Context, r *model.Relation) error {
	const q = `
		INSERT INTO relations (id, project_id, source_id, target_id, source_type, target_type, relation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := d.db.ExecContext(ctx, q,
		r.ID, r.ProjectID, r.SourceID, r.TargetID,
		string(r.SourceType), string(r.TargetType), string(r.Relation), r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert relation %s: %w", r.ID, err)
	}
	return nil
}

func (d *SQLiteDriver) UpdateRelation(ctx context.Context, r *model.Relation) error {
	const q = `UPDATE relations SET relation = ?, source_type = ?, target_type = ? WHERE id = ?`
	res, err := d.db.ExecContext(ctx, q, string(r.Relation), string(r.SourceType), string(r.TargetType), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update relation %s: %w", r.ID, err)
	}
	return requireRow(res, r.ID)
}

func (d *SQLiteDriver) DeleteRelation(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM relations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relation %s: %w", id, err)
	}
	return nil
}

func (d *SQLiteDriver) ListEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	const q = `
		SELECT id, entity_type, sub_type, name, description, position_x, position_y, attributes, created_at
		FROM entities WHERE project_id = ? ORDER BY created_at, id`
	rows, err := d.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var (
			e         model.Entity
			attrs     string
			createdAt time.Time
		)
		e.ProjectID = projectID
		if err := rows.Scan(&e.ID, &e.EntityType, &e.SubType, &e.Name, &e.Description,
			&e.PositionX, &e.PositionY, &attrs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.CreatedAt = createdAt
		if attrs != "" {
			var bag model.Attributes
			if err := json.Unmarshal([]byte(attrs), &bag); err == nil {
				e.Attributes = bag
			}
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (d *SQLiteDriver) ListRelations(ctx context.Context, projectID string) ([]model.Relation, error) {
	const q = `
		SELECT id, source_id, target_id, source_type, target_type, relation, created_at
		FROM relations WHERE project_id = ? ORDER BY created_at, id`
	rows, err := d.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	var relations []model.Relation
	for rows.Next() {
		var (
			r         model.Relation
			createdAt time.Time
		)
		r.ProjectID = projectID
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.SourceType, &r.TargetType, &r.Relation, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		r.CreatedAt = createdAt
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no record with id %s", id)
	}
	return nil
}
