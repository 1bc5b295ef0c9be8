package infer

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness the responder draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// lockedRand makes a seeded source safe to share between request handlers.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a deterministic, goroutine-safe source.
func NewSeeded(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
