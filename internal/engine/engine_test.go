package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/moby/locker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/nanobrain/internal/brain"
	"github.com/lazypower/nanobrain/internal/infer"
	"github.com/lazypower/nanobrain/internal/learn"
	"github.com/lazypower/nanobrain/internal/store"
)

func testEngine(t *testing.T, seed uint64) (*Engine, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	e := New(fs,
		learn.New(learn.DefaultOptions(), zerolog.Nop()),
		infer.New(infer.NewSeeded(seed), infer.DefaultMaxLength),
		zerolog.Nop(),
	)
	return e, fs
}

// failingStore loads fresh brains and fails every save.
type failingStore struct{}

func (failingStore) Load(string) (*brain.Brain, error) { return brain.New(), nil }
func (failingStore) Save(id string, _ *brain.Brain) error {
	return &store.StorageError{Op: "save", UserID: id, Err: errors.New("disk full")}
}
func (failingStore) ListUsers() ([]string, error) {
	return nil, &store.StorageError{Op: "list", Err: errors.New("disk gone")}
}

func TestSubmitMessageRemembersName(t *testing.T) {
	e, _ := testEngine(t, 1)

	_, err := e.SubmitMessage("ava-user", "My name is Ava")
	require.NoError(t, err)

	reply, err := e.SubmitMessage("ava-user", "what is my name")
	require.NoError(t, err)
	assert.Contains(t, reply, "Ava")
}

func TestSubmitMessagePersists(t *testing.T) {
	e, fs := testEngine(t, 1)

	_, err := e.SubmitMessage("u1", "hello world")
	require.NoError(t, err)

	b, err := fs.Load("u1")
	require.NoError(t, err)
	w, ok := b.Words.Edges("hello").Weight("world")
	require.True(t, ok)
	assert.InDelta(t, 0.997, w, 1e-9)
}

func TestSubmitMessageIdentityMissSavesLearning(t *testing.T) {
	e, fs := testEngine(t, 1)

	reply, err := e.SubmitMessage("u1", "who am i anyway")
	require.NoError(t, err)
	assert.Contains(t, reply, "I don't know your name yet")

	b, err := fs.Load("u1")
	require.NoError(t, err)
	_, ok := b.Words.Edges("am").Weight("i")
	assert.True(t, ok)
}

func TestSubmitMessageAppliesTone(t *testing.T) {
	e, _ := testEngine(t, 1)

	_, err := e.SetTone("u1", "funny")
	require.NoError(t, err)

	reply, err := e.SubmitMessage("u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello 😂", reply)
}

func TestBlankMessageWritesNothing(t *testing.T) {
	e, _ := testEngine(t, 1)

	for _, text := range []string{"", "  \t\n"} {
		reply, err := e.SubmitMessage("newbie", text)
		require.NoError(t, err)
		assert.Equal(t, "Hello", reply)
	}

	users, err := e.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestConcurrentSubmissionsLoseNothing(t *testing.T) {
	e, fs := testEngine(t, 1)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		// "u/1" and "u1" land in the same document.
		id := "u1"
		if i%2 == 0 {
			id = "u/1"
		}
		go func() {
			defer wg.Done()
			_, err := e.SubmitMessage(id, "alpha beta")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := fs.Load("u1")
	require.NoError(t, err)

	want := 0.0
	for i := 0; i < n; i++ {
		want = (want + learn.DefaultWordIncrement) * learn.DefaultDecay
	}
	w, _ := b.Words.Edges("alpha").Weight("beta")
	assert.InDelta(t, want, w, 1e-9)

	lw, _ := b.Letters.Edges("a").Weight("l")
	assert.InDelta(t, n*learn.DefaultLetterIncrement, lw, 1e-9)

	// Every per-user lock was released and forgotten.
	assert.ErrorIs(t, e.locks.Unlock("u1"), locker.ErrNoSuchLock)
}

func TestUnusableIDsShareOneBrain(t *testing.T) {
	e, _ := testEngine(t, 1)

	_, err := e.Teach("../", "name=Nobody")
	require.NoError(t, err)

	_, err = e.SetTone("///", "formal")
	require.NoError(t, err)

	mem, err := e.GetMemory("...", true)
	require.NoError(t, err)
	assert.Equal(t, "Nobody", mem.Context["name"])
	assert.Equal(t, brain.Formal, mem.Meta.Tone)

	reply, err := e.SubmitMessage("", "who am i")
	require.NoError(t, err)
	assert.Equal(t, "Hello Nobody. Your name is Nobody.", reply)

	users, err := e.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, users)
}

func TestStorageErrorPropagates(t *testing.T) {
	e := New(failingStore{}, nil, nil, zerolog.Nop())

	_, err := e.SubmitMessage("u1", "hello")
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save", se.Op)

	_, err = e.Teach("u1", "name=x")
	require.ErrorAs(t, err, &se)

	_, err = e.ListUsers()
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list", se.Op)
}

func TestTeach(t *testing.T) {
	e, fs := testEngine(t, 1)

	res, err := e.Teach("u1", "name=Anwar")
	require.NoError(t, err)
	assert.Equal(t, "context name set to Anwar", res)

	res, err = e.Teach("u1", "garbage")
	require.NoError(t, err)
	assert.Equal(t, "invalid command", res)

	b, err := fs.Load("u1")
	require.NoError(t, err)
	assert.Equal(t, "Anwar", b.Context["name"])
}

func TestSetToneTruncates(t *testing.T) {
	e, _ := testEngine(t, 1)

	got, err := e.SetTone("u1", strings.Repeat("z", 50))
	require.NoError(t, err)
	assert.Len(t, got, brain.MaxToneLen)
}

func TestGetMemory(t *testing.T) {
	e, _ := testEngine(t, 1)

	_, err := e.SubmitMessage("u1", "My name is Ava")
	require.NoError(t, err)

	full, err := e.GetMemory("u1", true)
	require.NoError(t, err)
	require.NotNil(t, full.Words)
	assert.NotZero(t, full.Words.EdgeCount())
	assert.Equal(t, "Ava", full.Context["name"])

	limited, err := e.GetMemory("u1", false)
	require.NoError(t, err)
	assert.Nil(t, limited.Words)
	assert.Nil(t, limited.Letters)

	data, err := json.Marshal(limited)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "context")
	assert.Contains(t, doc, "meta")
	assert.NotContains(t, doc, "words")
	assert.NotContains(t, doc, "letters")
}

func TestGetMemoryDoesNotPersist(t *testing.T) {
	e, _ := testEngine(t, 1)

	_, err := e.GetMemory("ghost", true)
	require.NoError(t, err)

	users, err := e.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListUsersAndFlush(t *testing.T) {
	e, _ := testEngine(t, 1)

	for _, id := range []string{"bob", "ava"} {
		_, err := e.SubmitMessage(id, "hi there")
		require.NoError(t, err)
	}

	users, err := e.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"ava", "bob"}, users)
	assert.Equal(t, "saved", e.Flush())
}

func TestDescribe(t *testing.T) {
	e, fs := testEngine(t, 1)
	assert.Equal(t, "file:"+fs.Dir, e.Describe())
}
