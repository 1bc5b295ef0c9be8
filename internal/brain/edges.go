package brain

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Edges is the weighted successor set of one graph node. Successors keep
// their first-insertion order through updates and serialization.
type Edges struct {
	m *orderedmap.OrderedMap[string, float64]
}

// NewEdges returns an empty successor set.
func NewEdges() *Edges {
	return &Edges{m: orderedmap.New[string, float64]()}
}

func (e *Edges) init() {
	if e.m == nil {
		e.m = orderedmap.New[string, float64]()
	}
}

// Len returns the number of successors.
func (e *Edges) Len() int {
	if e == nil || e.m == nil {
		return 0
	}
	return e.m.Len()
}

// Weight returns the weight of the edge to the given successor.
func (e *Edges) Weight(to string) (float64, bool) {
	if e == nil || e.m == nil {
		return 0, false
	}
	return e.m.Get(to)
}

// Add increments the edge to the given successor, creating it if needed.
// The result is clamped to zero.
func (e *Edges) Add(to string, delta float64) {
	e.init()
	w, _ := e.m.Get(to)
	e.m.Set(to, clamp(w+delta))
}

// Set overwrites the edge weight, creating the edge if needed.
func (e *Edges) Set(to string, w float64) {
	e.init()
	e.m.Set(to, clamp(w))
}

// Each calls fn for every successor in insertion order.
func (e *Edges) Each(fn func(to string, w float64)) {
	if e == nil || e.m == nil {
		return
	}
	for p := e.m.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

func (e *Edges) hasUpper() bool {
	found := false
	e.Each(func(to string, _ float64) {
		if !found && strings.ToLower(to) != to {
			found = true
		}
	})
	return found
}

// Total sums all edge weights.
func (e *Edges) Total() float64 {
	var total float64
	e.Each(func(_ string, w float64) { total += w })
	return total
}

// Max returns the heaviest successor. Ties go to the first inserted.
func (e *Edges) Max() (string, bool) {
	if e.Len() == 0 {
		return "", false
	}
	first := e.m.Oldest()
	best, bestW := first.Key, first.Value
	for p := first.Next(); p != nil; p = p.Next() {
		if p.Value > bestW {
			best, bestW = p.Key, p.Value
		}
	}
	return best, true
}

// Scale multiplies every weight by f, flooring at zero.
func (e *Edges) Scale(f float64) {
	if e == nil || e.m == nil {
		return
	}
	for p := e.m.Oldest(); p != nil; p = p.Next() {
		p.Value = clamp(p.Value * f)
	}
}

// MarshalJSON writes the successors as a JSON object in insertion order.
func (e *Edges) MarshalJSON() ([]byte, error) {
	if e.m == nil {
		return []byte("{}"), nil
	}
	return e.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object of weights, preserving key order.
// Negative weights are clamped to zero.
func (e *Edges) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	m := orderedmap.New[string, float64]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("edges: %w", err)
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		p.Value = clamp(p.Value)
	}
	e.m = m
	return nil
}

// MarshalYAML keeps insertion order in YAML output as well.
func (e *Edges) MarshalYAML() (any, error) {
	if e.m == nil {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	return e.m.MarshalYAML()
}

func clamp(w float64) float64 {
	switch {
	case math.IsNaN(w) || w < 0:
		return 0
	case math.IsInf(w, 1):
		return math.MaxFloat64
	}
	return w
}
