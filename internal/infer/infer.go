// Package infer produces replies by walking a brain's word graph, falling
// back to the letter graph, and decorating the result with the user's tone.
package infer

import (
	"strings"

	"github.com/lazypower/nanobrain/internal/brain"
)

// DefaultMaxLength is the longest generated sequence, in tokens.
const DefaultMaxLength = 8

// Fillers are used when generation adds nothing to the seed.
var Fillers = []string{"Tell me more.", "Interesting.", "I see.", "Okay."}

// identityQueries are matched as substrings of the lowercased message.
var identityQueries = []string{"who am i", "who i am", "what is my name"}

// Kind says how a reply was produced.
type Kind string

const (
	KindIdentity  Kind = "identity"
	KindGenerated Kind = "generated"
	KindFiller    Kind = "filler"
	KindGreeting  Kind = "greeting"
)

// Reply is an undecorated response.
type Reply struct {
	Text string
	Kind Kind
}

// Responder reads brains to produce replies. It never mutates a brain.
type Responder struct {
	rng       Rand
	maxLength int
}

// New returns a Responder drawing from rng. A nil rng uses the shared
// math/rand/v2 source; maxLength <= 0 uses DefaultMaxLength.
func New(rng Rand, maxLength int) *Responder {
	if rng == nil {
		rng = globalRand{}
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Responder{rng: rng, maxLength: maxLength}
}

// PredictNext picks a successor for token. Word edges are sampled in
// proportion to weight; without usable word edges, the heaviest letter
// successor of the token's last character is appended to the token.
// Returns false when neither graph has anything to offer.
func (r *Responder) PredictNext(b *brain.Brain, token string) (string, bool) {
	token = strings.ToLower(token)

	if edges := b.Words.Edges(token); edges.Len() > 0 {
		if total := edges.Total(); total > 0 {
			return r.pick(edges, total), true
		}
	}

	runes := []rune(token)
	if len(runes) == 0 {
		return "", false
	}
	last := string(runes[len(runes)-1])
	if next, ok := b.Letters.Edges(last).Max(); ok {
		return token + next, true
	}
	return "", false
}

func (r *Responder) pick(edges *brain.Edges, total float64) string {
	target := r.rng.Float64() * total
	var (
		cum    float64
		chosen string
		done   bool
	)
	edges.Each(func(to string, w float64) {
		if done || w <= 0 {
			return
		}
		cum += w
		chosen = to
		if target < cum {
			done = true
		}
	})
	// Float rounding can leave target >= cum; chosen is then the last
	// positive edge.
	return chosen
}

// Generate walks the graph from seed. It stops on no prediction, on a token
// already in the sequence, or once the sequence holds maxLength tokens.
func (r *Responder) Generate(b *brain.Brain, seed string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = r.maxLength
	}
	seq := []string{seed}
	seen := map[string]bool{seed: true}
	for len(seq) < maxLength {
		next, ok := r.PredictNext(b, seq[len(seq)-1])
		if !ok || next == "" || seen[next] {
			break
		}
		seq = append(seq, next)
		seen[next] = true
	}
	return seq
}

// Respond answers identity questions from context, otherwise generates from
// the message's last token, falling back to a filler line.
func (r *Responder) Respond(b *brain.Brain, text string) Reply {
	lower := strings.ToLower(text)
	for _, q := range identityQueries {
		if strings.Contains(lower, q) {
			return identityReply(b)
		}
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Reply{Text: "Hello", Kind: KindGreeting}
	}
	start := tokens[len(tokens)-1]
	generated := strings.Join(r.Generate(b, start, r.maxLength), " ")
	if generated != "" && generated != start {
		return Reply{Text: generated, Kind: KindGenerated}
	}
	return Reply{Text: Fillers[r.rng.IntN(len(Fillers))], Kind: KindFiller}
}

func identityReply(b *brain.Brain) Reply {
	name := b.Context["you"]
	if name == "" {
		name = b.Context["name"]
	}
	if name == "" {
		return Reply{Text: "I don't know your name yet. You can say: 'My name is ...'", Kind: KindIdentity}
	}
	return Reply{Text: "Your name is " + name + ".", Kind: KindIdentity}
}

// ApplyTone decorates text according to the brain's tone and known name.
// Unknown tones behave as neutral.
func ApplyTone(b *brain.Brain, text string) string {
	name := b.Name()
	switch b.Meta.Tone {
	case brain.Friendly:
		if name != "" {
			return "Hey " + name + "! " + text + " 😊"
		}
		return text + " 😊"
	case brain.Funny:
		return text + " 😂"
	case brain.Formal:
		if name != "" {
			return "Hello " + name + ". " + text
		}
		return text
	default:
		return text
	}
}
