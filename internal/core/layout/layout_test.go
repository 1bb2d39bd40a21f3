package layout

import (
	"fmt"
	"testing"

	"github.com/storyloom/atlas/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestFallbackDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("entity-%d", i)
		x1, y1 := Fallback(id, i)
		x2, y2 := Fallback(id, i)
		assert.Equal(t, x1, x2)
		assert.Equal(t, y1, y2)
	}
}

func TestFallbackJitterBounded(t *testing.T) {
	// Column and row anchor the cell; jitter may not leave it by more than
	// the documented bounds.
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("node-%c-%d", 'a'+i%26, i)
		h := Hash(id)
		col := h % columns
		row := i / columns

		baseX := col * cellWidth
		if row%2 == 1 {
			baseX += brickOffset
		}
		baseY := row * cellHeight

		x, y := Fallback(id, i)
		assert.LessOrEqual(t, x, baseX+jitterX)
		assert.GreaterOrEqual(t, x, baseX-jitterX)
		assert.LessOrEqual(t, y, baseY+jitterY)
		assert.GreaterOrEqual(t, y, baseY-jitterY)
	}
}

func TestResolvePrecedence(t *testing.T) {
	// Explicit position wins over everything.
	e := &model.Entity{
		ID:         "hero",
		EntityType: model.TypeCharacter,
		PositionX:  500,
		PositionY:  300,
		Attributes: model.Attributes{},
	}
	e.Attributes.SetGraphPosition(1, 2)
	x, y := Resolve(e, 0)
	assert.Equal(t, 500, x)
	assert.Equal(t, 300, y)

	// A single non-zero axis still counts as explicit.
	e2 := &model.Entity{ID: "hero", EntityType: model.TypeCharacter, PositionY: 10}
	x, y = Resolve(e2, 0)
	assert.Equal(t, 0, x)
	assert.Equal(t, 10, y)

	// No explicit position: attribute-embedded wins over the fallback.
	e3 := &model.Entity{ID: "law", EntityType: model.TypeRule, Attributes: model.Attributes{}}
	e3.Attributes.SetGraphPosition(77, 88)
	x, y = Resolve(e3, 4)
	assert.Equal(t, 77, x)
	assert.Equal(t, 88, y)

	// Nothing stored: fallback.
	e4 := &model.Entity{ID: "law", EntityType: model.TypeRule}
	x, y = Resolve(e4, 4)
	fx, fy := Fallback("law", 4)
	assert.Equal(t, fx, x)
	assert.Equal(t, fy, y)
}

func TestResolveIgnoresMalformedGraphPosition(t *testing.T) {
	e := &model.Entity{
		ID:         "fog",
		EntityType: model.TypeConcept,
		Attributes: model.Attributes{"graphPosition": "nope"},
	}
	x, y := Resolve(e, 2)
	fx, fy := Fallback("fog", 2)
	assert.Equal(t, fx, x)
	assert.Equal(t, fy, y)
}

func TestWriteBackSplitsByType(t *testing.T) {
	char := &model.Entity{ID: "c1", EntityType: model.TypeCharacter}
	WriteBack(char, 150, -60)
	assert.Equal(t, 150, char.PositionX)
	assert.Equal(t, -60, char.PositionY)
	assert.Nil(t, char.Attributes)

	item := &model.Entity{
		ID:         "i1",
		EntityType: model.TypeItem,
		Attributes: model.Attributes{"tags": []string{"cursed"}},
	}
	WriteBack(item, 30, 40)
	assert.Zero(t, item.PositionX)
	assert.Zero(t, item.PositionY)
	x, y, ok := item.Attributes.GraphPosition()
	assert.True(t, ok)
	assert.Equal(t, 30.0, x)
	assert.Equal(t, 40.0, y)
	// Other attribute keys survive the write-back.
	assert.Equal(t, []string{"cursed"}, item.Attributes.Tags())
}
