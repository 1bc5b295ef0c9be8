// Package brain defines the per-user learned state: context facts, the word
// and letter transition graphs, and the presentation tone.
package brain

import (
	"slices"
	"strings"
)

// MaxToneLen bounds the stored tone, in characters.
const MaxToneLen = 30

// Tone is the presentation style applied to replies.
type Tone string

const (
	Neutral  Tone = "neutral"
	Friendly Tone = "friendly"
	Formal   Tone = "formal"
	Funny    Tone = "funny"
)

// Tones lists the known tones.
var Tones = []Tone{Neutral, Friendly, Formal, Funny}

// ParseTone resolves a known tone name, case-insensitively.
func ParseTone(s string) (Tone, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tones {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// TruncateTone bounds a raw tone value to MaxToneLen characters.
func TruncateTone(s string) Tone {
	r := []rune(s)
	if len(r) > MaxToneLen {
		r = r[:MaxToneLen]
	}
	return Tone(r)
}

// Graph is a directed weighted graph from a node to its successors.
type Graph map[string]*Edges

// Edges returns the successors of a node, or nil.
func (g Graph) Edges(from string) *Edges {
	return g[from]
}

// Add increments the edge from -> to, creating nodes as needed.
func (g Graph) Add(from, to string, delta float64) {
	e, ok := g[from]
	if !ok || e == nil {
		e = NewEdges()
		g[from] = e
	}
	e.Add(to, delta)
}

// Scale multiplies every edge weight in the graph by f, flooring at zero.
func (g Graph) Scale(f float64) {
	for _, e := range g {
		e.Scale(f)
	}
}

// EdgeCount returns the number of edges in the graph.
func (g Graph) EdgeCount() int {
	n := 0
	for _, e := range g {
		n += e.Len()
	}
	return n
}

// foldCase lowercases every node and successor, summing the weights of
// edges that collide.
func (g Graph) foldCase() {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		e := g[k]
		lk := strings.ToLower(k)
		if lk == k && !e.hasUpper() {
			continue
		}
		folded := NewEdges()
		e.Each(func(to string, w float64) { folded.Add(strings.ToLower(to), w) })
		delete(g, k)
		if dst, ok := g[lk]; ok {
			folded.Each(dst.Add)
			continue
		}
		g[lk] = folded
	}
}

// Meta holds presentation settings.
type Meta struct {
	Tone Tone `json:"tone" yaml:"tone"`
}

// Brain is one user's persisted state.
type Brain struct {
	Context map[string]string `json:"context" yaml:"context"`
	Words   Graph             `json:"words" yaml:"words"`
	Letters Graph             `json:"letters" yaml:"letters"`
	Meta    Meta              `json:"meta" yaml:"meta"`
}

// New returns an empty brain with neutral tone.
func New() *Brain {
	return &Brain{
		Context: make(map[string]string),
		Words:   make(Graph),
		Letters: make(Graph),
		Meta:    Meta{Tone: Neutral},
	}
}

// Normalize fills missing maps, drops null nodes, lowercases words and
// defaults the tone, so a decoded document satisfies the same invariants as
// New.
func (b *Brain) Normalize() {
	if b.Context == nil {
		b.Context = make(map[string]string)
	}
	if b.Words == nil {
		b.Words = make(Graph)
	}
	if b.Letters == nil {
		b.Letters = make(Graph)
	}
	for k, e := range b.Words {
		if e == nil {
			delete(b.Words, k)
		}
	}
	for k, e := range b.Letters {
		if e == nil {
			delete(b.Letters, k)
		}
	}
	b.Words.foldCase()
	if b.Meta.Tone == "" {
		b.Meta.Tone = Neutral
	}
	b.Meta.Tone = TruncateTone(string(b.Meta.Tone))
}

// Name returns the best known name for the user: context.name, then
// context.you.
func (b *Brain) Name() string {
	if n := b.Context["name"]; n != "" {
		return n
	}
	return b.Context["you"]
}
