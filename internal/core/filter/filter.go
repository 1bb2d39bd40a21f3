// Package filter derives the visible subgraph from the full graph. Node
// visibility is decided first; an edge is only ever shown between two visible
// endpoints, so the canvas never renders a dangling edge.
package filter

import (
	"strings"

	"github.com/storyloom/atlas/internal/core/model"
)

// State is the ephemeral view filter. Empty sets and an empty query mean
// "show everything".
type State struct {
	EntityTypes   []string             `json:"entity_types"`
	RelationKinds []model.RelationKind `json:"relation_kinds"`
	SearchQuery   string               `json:"search_query"`
}

type Subgraph struct {
	Nodes []model.Entity   `json:"nodes"`
	Edges []model.Relation `json:"edges"`
}

// Bucket groups filtered nodes by effective type for the library sidebar.
type Bucket struct {
	Type  string         `json:"type"`
	Nodes []model.Entity `json:"nodes"`
}

// Apply returns the subgraph passing the filter, preserving input order.
func Apply(nodes []model.Entity, edges []model.Relation, s State) Subgraph {
	typeSet := make(map[string]bool, len(s.EntityTypes))
	for _, t := range s.EntityTypes {
		typeSet[t] = true
	}
	kindSet := make(map[model.RelationKind]bool, len(s.RelationKinds))
	for _, k := range s.RelationKinds {
		kindSet[k] = true
	}
	query := strings.ToLower(strings.TrimSpace(s.SearchQuery))

	visible := make(map[string]bool, len(nodes))
	out := Subgraph{Nodes: []model.Entity{}, Edges: []model.Relation{}}
	for _, n := range nodes {
		if len(typeSet) > 0 && !typeSet[n.EffectiveType()] {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(n.Name), query) {
			continue
		}
		visible[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}

	for _, e := range edges {
		if !visible[e.SourceID] || !visible[e.TargetID] {
			continue
		}
		if len(kindSet) > 0 && !kindSet[e.Relation] {
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out
}

// Group partitions the filtered nodes by effective type. Types named in an
// active type filter always get a bucket, even when empty, so the sidebar can
// show "0 results"; unfiltered empty types are omitted. Buckets follow the
// entity-type enumeration order, with subtype buckets appended in first-seen
// order.
func Group(sub Subgraph, s State) []Bucket {
	filtered := make(map[string]bool, len(s.EntityTypes))
	for _, t := range s.EntityTypes {
		filtered[t] = true
	}

	byType := make(map[string][]model.Entity)
	var extraOrder []string
	known := make(map[string]bool, len(model.EntityTypes))
	for _, t := range model.EntityTypes {
		known[string(t)] = true
	}
	for _, n := range sub.Nodes {
		et := n.EffectiveType()
		if _, seen := byType[et]; !seen && !known[et] {
			extraOrder = append(extraOrder, et)
		}
		byType[et] = append(byType[et], n)
	}

	var buckets []Bucket
	emit := func(name string) {
		nodes := byType[name]
		if len(nodes) == 0 && !filtered[name] {
			return
		}
		if nodes == nil {
			nodes = []model.Entity{}
		}
		buckets = append(buckets, Bucket{Type: name, Nodes: nodes})
	}
	for _, t := range model.EntityTypes {
		emit(string(t))
	}
	for _, et := range extraOrder {
		emit(et)
	}
	// Filtered subtypes with no matches still deserve their empty bucket.
	for _, t := range s.EntityTypes {
		if _, present := byType[t]; !present && !known[t] {
			buckets = append(buckets, Bucket{Type: t, Nodes: []model.Entity{}})
		}
	}
	return buckets
}
