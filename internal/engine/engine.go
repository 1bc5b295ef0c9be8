package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moby/locker"
	"github.com/rs/zerolog"

	"github.com/lazypower/nanobrain/internal/brain"
	"github.com/lazypower/nanobrain/internal/infer"
	"github.com/lazypower/nanobrain/internal/learn"
	"github.com/lazypower/nanobrain/internal/metrics"
	"github.com/lazypower/nanobrain/internal/store"
	"github.com/lazypower/nanobrain/internal/teach"
)

// Store persists one brain per user.
type Store interface {
	Load(userID string) (*brain.Brain, error)
	Save(userID string, b *brain.Brain) error
	ListUsers() ([]string, error)
}

// Engine orchestrates load, learn, respond and save for each user request.
type Engine struct {
	Store     Store
	Learner   *learn.Learner
	Responder *infer.Responder

	locks *locker.Locker
	log   zerolog.Logger
}

// New creates a new Engine. A nil learner or responder gets the defaults.
func New(st Store, learner *learn.Learner, responder *infer.Responder, log zerolog.Logger) *Engine {
	if learner == nil {
		learner = learn.New(learn.DefaultOptions(), log)
	}
	if responder == nil {
		responder = infer.New(nil, infer.DefaultMaxLength)
	}
	return &Engine{
		Store:     st,
		Learner:   learner,
		Responder: responder,
		locks:     locker.New(),
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Memory is the view of a brain returned by GetMemory. Words and Letters
// are nil for unprivileged callers.
type Memory struct {
	Context map[string]string `json:"context" yaml:"context"`
	Words   *brain.Graph      `json:"words,omitempty" yaml:"words,omitempty"`
	Letters *brain.Graph      `json:"letters,omitempty" yaml:"letters,omitempty"`
	Meta    brain.Meta        `json:"meta" yaml:"meta"`
}

// withBrain runs fn against the user's brain under the per-user lock and
// saves the result. fn's return value is passed through.
func (e *Engine) withBrain(userID string, fn func(b *brain.Brain) string) (string, error) {
	id := store.SanitizeUserID(userID)

	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	b, err := e.Store.Load(id)
	if err != nil {
		return "", e.storageFailure(err)
	}

	out := fn(b)

	if err := e.Store.Save(id, b); err != nil {
		return "", e.storageFailure(err)
	}
	return out, nil
}

// load reads the user's brain under the per-user lock without saving.
func (e *Engine) load(userID string) (*brain.Brain, error) {
	id := store.SanitizeUserID(userID)

	e.locks.Lock(id)
	b, err := e.Store.Load(id)
	e.locks.Unlock(id)
	if err != nil {
		return nil, e.storageFailure(err)
	}
	return b, nil
}

// SubmitMessage learns from text and returns a toned reply. Blank text
// only greets; nothing is learned or written.
func (e *Engine) SubmitMessage(userID, text string) (string, error) {
	if len(strings.Fields(text)) == 0 {
		b, err := e.load(userID)
		if err != nil {
			return "", err
		}
		r := e.Responder.Respond(b, text)
		metrics.Replies.WithLabelValues(string(r.Kind)).Inc()
		return infer.ApplyTone(b, r.Text), nil
	}

	var kind infer.Kind
	reply, err := e.withBrain(userID, func(b *brain.Brain) string {
		e.Learner.Ingest(b, text)
		r := e.Responder.Respond(b, text)
		kind = r.Kind
		return infer.ApplyTone(b, r.Text)
	})
	if err != nil {
		return "", err
	}

	metrics.MessagesIngested.Inc()
	metrics.Replies.WithLabelValues(string(kind)).Inc()
	e.log.Debug().Str("user", userID).Str("kind", string(kind)).Msg("message handled")
	return reply, nil
}

// Teach applies a privileged key=value command.
func (e *Engine) Teach(userID, command string) (string, error) {
	result, err := e.withBrain(userID, func(b *brain.Brain) string {
		return teach.ApplyCommand(b, command)
	})
	if err != nil {
		return "", err
	}

	outcome := "applied"
	if result == teach.Invalid {
		outcome = "invalid"
	}
	metrics.TeachCommands.WithLabelValues(outcome).Inc()
	e.log.Info().Str("user", userID).Str("outcome", outcome).Msg("teach")
	return result, nil
}

// SetTone stores tone (truncated) and returns what was stored.
func (e *Engine) SetTone(userID, tone string) (string, error) {
	stored, err := e.withBrain(userID, func(b *brain.Brain) string {
		b.Meta.Tone = brain.TruncateTone(tone)
		return string(b.Meta.Tone)
	})
	if err != nil {
		return "", err
	}
	e.log.Info().Str("user", userID).Str("tone", stored).Msg("tone set")
	return stored, nil
}

// GetMemory returns the user's brain. Unprivileged callers see only the
// context facts and the tone. Nothing is written.
func (e *Engine) GetMemory(userID string, privileged bool) (Memory, error) {
	b, err := e.load(userID)
	if err != nil {
		return Memory{}, err
	}

	m := Memory{Context: b.Context, Meta: b.Meta}
	if privileged {
		m.Words = &b.Words
		m.Letters = &b.Letters
	}
	return m, nil
}

// ListUsers returns every user with a persisted brain.
func (e *Engine) ListUsers() ([]string, error) {
	users, err := e.Store.ListUsers()
	if err != nil {
		return nil, e.storageFailure(err)
	}
	return users, nil
}

// Flush exists for clients that expect an explicit save call. Every
// mutating operation already persists before returning.
func (e *Engine) Flush() string {
	return "saved"
}

// Describe names the backing store, if it can say.
func (e *Engine) Describe() string {
	if d, ok := e.Store.(interface{ Describe() string }); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", e.Store)
}

func (e *Engine) storageFailure(err error) error {
	var se *store.StorageError
	if errors.As(err, &se) {
		metrics.StorageErrors.WithLabelValues(se.Op).Inc()
		e.log.Error().Err(err).Str("op", se.Op).Str("user", se.UserID).Msg("storage failure")
		return err
	}
	metrics.StorageErrors.WithLabelValues("unknown").Inc()
	e.log.Error().Err(err).Msg("storage failure")
	return err
}
