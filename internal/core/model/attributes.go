package model

import "math"

// Attributes is the open key/value bag carried by every entity: tags,
// importance rating, free-form region/time fields, and, for types without
// dedicated coordinate columns, an embedded graph position. Access goes
// through the typed helpers below so callers never reinterpret raw values.
type Attributes map[string]interface{}

const (
	attrGraphPosition = "graphPosition"
	attrTags          = "tags"
	attrImportance    = "importance"
)

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge applies patch additively: existing keys not named in patch survive.
func (a Attributes) Merge(patch Attributes) Attributes {
	if len(patch) == 0 {
		return a
	}
	out := a.Clone()
	if out == nil {
		out = make(Attributes, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// GraphPosition returns the embedded position if it is a well-formed
// {x, y} pair of finite numbers.
func (a Attributes) GraphPosition() (x, y float64, ok bool) {
	raw, present := a[attrGraphPosition]
	if !present {
		return 0, 0, false
	}
	m, isMap := raw.(map[string]interface{})
	if !isMap {
		return 0, 0, false
	}
	x, xok := toFloat(m["x"])
	y, yok := toFloat(m["y"])
	if !xok || !yok {
		return 0, 0, false
	}
	return x, y, true
}

func (a Attributes) SetGraphPosition(x, y int) {
	a[attrGraphPosition] = map[string]interface{}{"x": float64(x), "y": float64(y)}
}

// Importance returns the 1–5 rating when set.
func (a Attributes) Importance() (int, bool) {
	f, ok := toFloat(a[attrImportance])
	if !ok {
		return 0, false
	}
	return int(f), true
}

// SetImportance clamps the rating into 1–5.
func (a Attributes) SetImportance(rating int) {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	a[attrImportance] = float64(rating)
}

func (a Attributes) Tags() []string {
	raw, present := a[attrTags]
	if !present {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (a Attributes) SetTags(tags []string) {
	a[attrTags] = tags
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return toFloat(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
