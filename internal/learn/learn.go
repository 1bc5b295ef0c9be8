// Package learn updates a brain from observed text: context facts, word and
// letter transition graphs, and recency decay.
package learn

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lazypower/nanobrain/internal/brain"
)

// Defaults for Options.
const (
	DefaultWordIncrement   = 1.0
	DefaultLetterIncrement = 0.05
	DefaultDecay           = 0.997
)

// Options tunes reinforcement and decay.
type Options struct {
	WordIncrement   float64
	LetterIncrement float64
	Decay           float64 // multiplier in [0, 1] applied to every word edge per ingest
}

// DefaultOptions returns the stock learning parameters.
func DefaultOptions() Options {
	return Options{
		WordIncrement:   DefaultWordIncrement,
		LetterIncrement: DefaultLetterIncrement,
		Decay:           DefaultDecay,
	}
}

// Learner applies observed text to a brain. It holds no per-user state and
// is safe for concurrent use on distinct brains.
type Learner struct {
	opts Options
}

// New returns a Learner. Out-of-range options fall back to their defaults.
func New(opts Options, log zerolog.Logger) *Learner {
	def := DefaultOptions()
	if !ValidIncrement(opts.WordIncrement) {
		log.Warn().Float64("word_increment", opts.WordIncrement).Msg("invalid increment, using default")
		opts.WordIncrement = def.WordIncrement
	}
	if !ValidIncrement(opts.LetterIncrement) {
		log.Warn().Float64("letter_increment", opts.LetterIncrement).Msg("invalid increment, using default")
		opts.LetterIncrement = def.LetterIncrement
	}
	if !ValidDecay(opts.Decay) {
		log.Warn().Float64("decay", opts.Decay).Msg("decay outside [0,1], using default")
		opts.Decay = def.Decay
	}
	return &Learner{opts: opts}
}

// ValidIncrement reports whether x is a finite, non-negative increment.
func ValidIncrement(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}

// ValidDecay reports whether d lies in [0, 1]. NaN does not.
func ValidDecay(d float64) bool {
	return d >= 0 && d <= 1
}

// Options returns the effective options.
func (l *Learner) Options() Options { return l.opts }

// Ingest learns from one message. The steps run in a fixed order: context
// extraction, word reinforcement, letter reinforcement, then decay of the
// word graph, so decay observes this call's increments. Blank text is a no-op.
func (l *Learner) Ingest(b *brain.Brain, text string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return
	}

	ExtractContext(b, tokens)
	l.reinforceWords(b, tokens)
	l.reinforceLetters(b, tokens)
	l.decay(b)
}

func (l *Learner) reinforceWords(b *brain.Brain, tokens []string) {
	for i := 0; i+1 < len(tokens); i++ {
		a, c := strings.ToLower(tokens[i]), strings.ToLower(tokens[i+1])
		b.Words.Add(a, c, l.opts.WordIncrement)
	}
}

func (l *Learner) reinforceLetters(b *brain.Brain, tokens []string) {
	for _, tok := range tokens {
		runes := []rune(tok)
		for i := 0; i+1 < len(runes); i++ {
			b.Letters.Add(string(runes[i]), string(runes[i+1]), l.opts.LetterIncrement)
		}
	}
}

func (l *Learner) decay(b *brain.Brain) {
	b.Words.Scale(l.opts.Decay)
}
