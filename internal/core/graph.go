// Package core owns the in-memory world graph for the active project. Every
// mutation funnels through WorldGraph, which validates input, talks to the
// persistence driver, and only commits to memory once the driver succeeded.
// A failed call leaves the graph exactly as it was.
package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyloom/atlas/internal/core/layout"
	"github.com/storyloom/atlas/internal/core/model"
	"github.com/storyloom/atlas/internal/core/rules"
	"github.com/storyloom/atlas/internal/driver"
)

// Confirmer gates destructive deletes. The UI collaborator implements it;
// a delete never proceeds until it answers yes.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type CreateEntityInput struct {
	ProjectID  string           `json:"project_id"`
	EntityType model.EntityType `json:"entity_type"`
	SubType    string           `json:"sub_type"`
	Name       string           `json:"name"`
	PositionX  int              `json:"position_x"`
	PositionY  int              `json:"position_y"`
	Attributes model.Attributes `json:"attributes"`
}

// EntityPatch updates an entity: nil pointer fields are left alone, set ones
// replace wholesale; Attributes merge additively into the existing bag.
type EntityPatch struct {
	ID          string            `json:"id"`
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	EntityType  *model.EntityType `json:"entity_type"`
	SubType     *string           `json:"sub_type"`
	Attributes  model.Attributes  `json:"attributes"`
}

type CreateRelationInput struct {
	SourceID string             `json:"source_id"`
	TargetID string             `json:"target_id"`
	Relation model.RelationKind `json:"relation"`
}

// WorldGraph is the authoritative graph state for one loaded project.
type WorldGraph struct {
	driver driver.GraphDriver

	mu           sync.Mutex
	projectID    string
	requestedID  string // single-flight load marker
	nodes        []model.Entity
	edges        []model.Relation
	selectedNode string
	selectedEdge string
	pending      map[string][2]int // optimistic positions awaiting persist
	revision     uint64
	subs         map[int]func()
	nextSubID    int
}

func NewWorldGraph(d driver.GraphDriver) *WorldGraph {
	return &WorldGraph{
		driver:  d,
		pending: make(map[string][2]int),
		subs:    make(map[int]func()),
	}
}

// LoadGraph replaces the in-memory graph with the project's stored nodes and
// edges. Repeat calls for the already-loaded or in-flight project are no-ops;
// a failed load resets the marker so a retry can go through.
func (g *WorldGraph) LoadGraph(ctx context.Context, projectID string) bool {
	if projectID == "" {
		return false
	}

	g.mu.Lock()
	if g.projectID == projectID && g.requestedID == "" {
		g.mu.Unlock()
		return true
	}
	if g.requestedID == projectID {
		g.mu.Unlock()
		return true
	}
	g.requestedID = projectID
	g.mu.Unlock()

	nodes, err := g.driver.ListEntities(ctx, projectID)
	if err == nil {
		var edges []model.Relation
		edges, err = g.driver.ListRelations(ctx, projectID)
		if err == nil {
			g.mu.Lock()
			if g.requestedID != projectID {
				// The active project changed while this load was in flight.
				g.mu.Unlock()
				return false
			}
			g.projectID = projectID
			g.requestedID = ""
			g.nodes = nodes
			g.edges = edges
			g.selectedNode = ""
			g.selectedEdge = ""
			g.pending = make(map[string][2]int)
			g.mu.Unlock()
			g.notify()
			return true
		}
	}

	log.Printf("Failed to load graph for project %s: %v", projectID, err)
	g.mu.Lock()
	if g.requestedID == projectID {
		g.requestedID = ""
	}
	g.mu.Unlock()
	return false
}

// CreateEntity validates, persists and inserts a new entity, returning nil on
// any failure. The position comes from the caller (the canvas coordinate
// under the pointer at gesture time).
func (g *WorldGraph) CreateEntity(ctx context.Context, in CreateEntityInput) *model.Entity {
	e := model.Entity{
		ID:         uuid.New().String(),
		ProjectID:  in.ProjectID,
		EntityType: in.EntityType,
		SubType:    in.SubType,
		Name:       in.Name,
		Attributes: in.Attributes.Clone(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		log.Printf("Rejected entity: %v", err)
		return nil
	}
	if in.PositionX != 0 || in.PositionY != 0 {
		layout.WriteBack(&e, in.PositionX, in.PositionY)
	}

	g.mu.Lock()
	if in.ProjectID != g.projectID {
		g.mu.Unlock()
		log.Printf("Rejected entity for project %s: project not loaded", in.ProjectID)
		return nil
	}
	if err := g.driver.CreateEntity(ctx, &e); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to persist entity %s: %v", e.ID, err)
		return nil
	}
	g.nodes = append(g.nodes, e)
	g.mu.Unlock()
	g.notify()
	return &e
}

// UpdateEntity merges a patch into the stored record. When the entity type
// changes, the denormalized type copies on touching relations are refreshed;
// the relation kinds themselves are left as created, even if the new pair
// would no longer be connectable.
func (g *WorldGraph) UpdateEntity(ctx context.Context, patch EntityPatch) bool {
	g.mu.Lock()
	idx := g.nodeIndex(patch.ID)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}

	next := g.nodes[idx]
	next.Attributes = next.Attributes.Merge(patch.Attributes)
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.SubType != nil {
		next.SubType = *patch.SubType
	}
	typeChanged := false
	if patch.EntityType != nil && *patch.EntityType != next.EntityType {
		next.EntityType = *patch.EntityType
		typeChanged = true
	}
	if err := next.Validate(); err != nil {
		g.mu.Unlock()
		log.Printf("Rejected entity patch for %s: %v", patch.ID, err)
		return false
	}

	if err := g.driver.UpdateEntity(ctx, &next); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to persist entity %s: %v", next.ID, err)
		return false
	}
	g.nodes[idx] = next

	if typeChanged {
		for i := range g.edges {
			refreshed := g.edges[i]
			switch {
			case refreshed.SourceID == next.ID:
				refreshed.SourceType = next.EntityType
			case refreshed.TargetID == next.ID:
				refreshed.TargetType = next.EntityType
			default:
				continue
			}
			// Commit each refreshed copy only once the driver confirms, so
			// a failure leaves that relation at its pre-call value.
			if err := g.driver.UpdateRelation(ctx, &refreshed); err != nil {
				log.Printf("Warning: failed to refresh relation %s after type change: %v", refreshed.ID, err)
				continue
			}
			g.edges[i] = refreshed
		}
	}
	g.mu.Unlock()
	g.notify()
	return true
}

// DeleteEntity removes the entity and cascades removal of every relation
// where it is source or target. The confirmer must approve first.
func (g *WorldGraph) DeleteEntity(ctx context.Context, id string, confirm Confirmer) bool {
	g.mu.Lock()
	idx := g.nodeIndex(id)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}
	name := g.nodes[idx].Name
	g.mu.Unlock()

	if confirm == nil || !confirm.Confirm(ctx, fmt.Sprintf("Delete %q and all its relations?", name)) {
		return false
	}

	g.mu.Lock()
	idx = g.nodeIndex(id)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}
	if err := g.driver.DeleteEntity(ctx, id); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to delete entity %s: %v", id, err)
		return false
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	kept := g.edges[:0]
	for _, r := range g.edges {
		if r.SourceID == id || r.TargetID == id {
			if g.selectedEdge == r.ID {
				g.selectedEdge = ""
			}
			continue
		}
		kept = append(kept, r)
	}
	g.edges = kept
	if g.selectedNode == id {
		g.selectedNode = ""
	}
	delete(g.pending, id)
	g.mu.Unlock()
	g.notify()
	return true
}

// CreateRelation connects two loaded entities. With no explicit kind the
// compatibility table supplies the default and incompatible pairs abort with
// no side effect. An explicit kind only has to be a member of the enum.
func (g *WorldGraph) CreateRelation(ctx context.Context, in CreateRelationInput) *model.Relation {
	g.mu.Lock()
	src := g.nodeIndex(in.SourceID)
	tgt := g.nodeIndex(in.TargetID)
	if src < 0 || tgt < 0 {
		g.mu.Unlock()
		return nil
	}
	if in.SourceID == in.TargetID {
		g.mu.Unlock()
		return nil
	}

	sourceType := g.nodes[src].EntityType
	targetType := g.nodes[tgt].EntityType
	kind := in.Relation
	if kind == "" {
		var ok bool
		kind, ok = rules.DefaultKind(sourceType, targetType)
		if !ok {
			g.mu.Unlock()
			log.Printf("Rejected relation %s -> %s: no compatible kind", sourceType, targetType)
			return nil
		}
	} else if !kind.Valid() {
		g.mu.Unlock()
		return nil
	}

	r := model.Relation{
		ID:         uuid.New().String(),
		ProjectID:  g.projectID,
		SourceID:   in.SourceID,
		TargetID:   in.TargetID,
		SourceType: sourceType,
		TargetType: targetType,
		Relation:   kind,
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.driver.CreateRelation(ctx, &r); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to persist relation %s: %v", r.ID, err)
		return nil
	}
	g.edges = append(g.edges, r)
	g.mu.Unlock()
	g.notify()
	return &r
}

// UpdateRelation replaces the relation kind only. The compatibility table is
// not consulted again.
func (g *WorldGraph) UpdateRelation(ctx context.Context, id string, kind model.RelationKind) bool {
	if !kind.Valid() {
		return false
	}
	g.mu.Lock()
	idx := g.edgeIndex(id)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}
	next := g.edges[idx]
	next.Relation = kind
	if err := g.driver.UpdateRelation(ctx, &next); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to persist relation %s: %v", id, err)
		return false
	}
	g.edges[idx] = next
	g.mu.Unlock()
	g.notify()
	return true
}

func (g *WorldGraph) DeleteRelation(ctx context.Context, id string, confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm(ctx, "Delete this relation?") {
		return false
	}
	g.mu.Lock()
	idx := g.edgeIndex(id)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}
	if err := g.driver.DeleteRelation(ctx, id); err != nil {
		g.mu.Unlock()
		log.Printf("Failed to delete relation %s: %v", id, err)
		return false
	}
	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	if g.selectedEdge == id {
		g.selectedEdge = ""
	}
	g.mu.Unlock()
	g.notify()
	return true
}

// UpdateEntityPosition commits a completed drag. The new coordinates show up
// immediately as a pending overlay in Snapshot and are promoted into the
// canonical record once the driver confirms, or dropped if it fails.
func (g *WorldGraph) UpdateEntityPosition(ctx context.Context, id string, x, y int) bool {
	g.mu.Lock()
	idx := g.nodeIndex(id)
	if idx < 0 {
		g.mu.Unlock()
		return false
	}
	next := g.nodes[idx]
	next.Attributes = next.Attributes.Clone()
	layout.WriteBack(&next, x, y)
	g.pending[id] = [2]int{x, y}
	g.mu.Unlock()

	var err error
	if model.HasPositionColumns(next.EntityType) {
		err = g.driver.UpdatePosition(ctx, id, x, y)
	} else {
		err = g.driver.UpdateEntity(ctx, &next)
	}

	g.mu.Lock()
	delete(g.pending, id)
	if err != nil {
		g.mu.Unlock()
		log.Printf("Failed to persist position for %s: %v", id, err)
		g.notify()
		return false
	}
	// Promote onto the latest record, not the pre-call snapshot: another
	// mutation may have committed while the persist was in flight, and only
	// the position belongs to this operation.
	if idx = g.nodeIndex(id); idx >= 0 {
		latest := g.nodes[idx]
		latest.Attributes = latest.Attributes.Clone()
		layout.WriteBack(&latest, x, y)
		g.nodes[idx] = latest
	}
	g.mu.Unlock()
	g.notify()
	return true
}

// SelectNode makes the node the current selection; node and edge selection
// are mutually exclusive. An empty id clears the selection.
func (g *WorldGraph) SelectNode(id string) {
	g.mu.Lock()
	g.selectedNode = id
	g.selectedEdge = ""
	g.mu.Unlock()
	g.notify()
}

func (g *WorldGraph) SelectEdge(id string) {
	g.mu.Lock()
	g.selectedEdge = id
	g.selectedNode = ""
	g.mu.Unlock()
	g.notify()
}

func (g *WorldGraph) Selection() (nodeID, edgeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selectedNode, g.selectedEdge
}

// SelectedEntity returns a copy of the currently selected entity, if any.
func (g *WorldGraph) SelectedEntity() (model.Entity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.nodeIndex(g.selectedNode)
	if idx < 0 {
		return model.Entity{}, false
	}
	return g.nodes[idx], true
}

// ProjectID reports the currently loaded project, empty if none.
func (g *WorldGraph) ProjectID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.projectID
}

// Snapshot returns copies of the graph in load order, with any pending drag
// positions overlaid on the committed records.
func (g *WorldGraph) Snapshot() ([]model.Entity, []model.Relation) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make([]model.Entity, len(g.nodes))
	copy(nodes, g.nodes)
	for i := range nodes {
		if pos, ok := g.pending[nodes[i].ID]; ok {
			nodes[i].Attributes = nodes[i].Attributes.Clone()
			layout.WriteBack(&nodes[i], pos[0], pos[1])
		}
	}
	edges := make([]model.Relation, len(g.edges))
	copy(edges, g.edges)
	return nodes, edges
}

// Subscribe registers a change callback and returns its cancel func. This is
// the explicit notification contract: no ambient global store.
func (g *WorldGraph) Subscribe(fn func()) func() {
	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	g.subs[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// Revision increments on every committed change, for consumers that poll.
func (g *WorldGraph) Revision() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revision
}

func (g *WorldGraph) notify() {
	g.mu.Lock()
	g.revision++
	subs := make([]func(), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (g *WorldGraph) nodeIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *WorldGraph) edgeIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range g.edges {
		if g.edges[i].ID == id {
			return i
		}
	}
	return -1
}
