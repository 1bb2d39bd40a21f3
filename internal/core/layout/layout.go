// Package layout assigns canvas coordinates to entities that do not carry an
// explicit position, so a freshly loaded graph renders the same way in every
// process without persisting anything.
package layout

import (
	"math"

	"github.com/storyloom/atlas/internal/core/model"
)

const (
	columns     = 4
	cellWidth   = 280
	cellHeight  = 180
	brickOffset = 90
	jitterX     = 42
	jitterY     = 36
)

// Hash derives a non-negative integer from the entity id using the classic
// polynomial rolling hash. All fallback placement decisions key off it.
func Hash(id string) int {
	h := 0
	for _, c := range id {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// Fallback computes the deterministic grid-with-jitter position for an entity
// with no stored coordinates. It is a pure function of (id, index): columns
// come from the hash, rows from the load order, odd rows shift half a brick,
// and bounded jitter from different bit slices of the hash keeps same-column
// nodes from stacking.
func Fallback(id string, index int) (x, y int) {
	h := Hash(id)
	col := h % columns
	row := index / columns

	x = col * cellWidth
	if row%2 == 1 {
		x += brickOffset
	}
	x += (h>>3)%(2*jitterX+1) - jitterX

	y = row*cellHeight + (h>>7)%(2*jitterY+1) - jitterY
	return x, y
}

// Resolve returns the render position for an entity using the stored-position
// precedence: explicit columns first, then an attribute-embedded position,
// then the deterministic fallback.
func Resolve(e *model.Entity, index int) (x, y int) {
	if e.PositionX != 0 || e.PositionY != 0 {
		return e.PositionX, e.PositionY
	}
	if gx, gy, ok := e.Attributes.GraphPosition(); ok {
		return int(math.Round(gx)), int(math.Round(gy))
	}
	return Fallback(e.ID, index)
}

// WriteBack records a completed drag on the entity record: into the dedicated
// position fields when the type is backed by coordinate columns, otherwise
// merged into the attribute bag without disturbing other keys.
func WriteBack(e *model.Entity, x, y int) {
	if model.HasPositionColumns(e.EntityType) {
		e.PositionX = x
		e.PositionY = y
		return
	}
	if e.Attributes == nil {
		e.Attributes = model.Attributes{}
	}
	e.Attributes.SetGraphPosition(x, y)
}
