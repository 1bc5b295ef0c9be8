package store

import (
	"path/filepath"
	"testing"

	"github.com/lazypower/nanobrain/internal/brain"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion after re-migrate = %d, want %d", v, len(migrations))
	}
}

func TestBrainsRejectInvalidJSON(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO brains (user_id, document, created_at, updated_at) VALUES ('x', 'not json', 1, 1)`)
	if err == nil {
		t.Error("expected error for invalid document, got nil")
	}
}

func TestSQLiteLoadUnseenUser(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	b, err := db.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Meta.Tone != brain.Neutral || len(b.Words) != 0 || len(b.Context) != 0 {
		t.Errorf("unseen user should get an empty neutral brain, got %+v", b)
	}
}

func TestSQLiteSaveLoadList(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "brains.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	b := brain.New()
	b.Context["name"] = "Ava"
	b.Words.Add("hello", "there", 1)
	b.Meta.Tone = brain.Formal

	if err := db.Save("ava", b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b.Words.Add("hello", "there", 1)
	if err := db.Save("ava", b); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if err := db.Save("b/o/b", brain.New()); err != nil {
		t.Fatalf("Save bob: %v", err)
	}

	got, err := db.Load("ava")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Context["name"] != "Ava" {
		t.Errorf("name = %q, want Ava", got.Context["name"])
	}
	if w, _ := got.Words.Edges("hello").Weight("there"); w != 2 {
		t.Errorf("weight = %v, want 2", w)
	}
	if got.Meta.Tone != brain.Formal {
		t.Errorf("tone = %q, want formal", got.Meta.Tone)
	}

	users, err := db.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0] != "ava" || users[1] != "bob" {
		t.Errorf("users = %v, want [ava bob]", users)
	}
}

func TestSQLiteMalformedRowIsDefault(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Valid JSON, wrong shape.
	_, err = db.Exec(`INSERT INTO brains (user_id, document, created_at, updated_at) VALUES ('odd', '{"words":[1,2,3]}', 1, 1)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	b, err := db.Load("odd")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Words) != 0 || b.Meta.Tone != brain.Neutral {
		t.Errorf("malformed row should load as default brain, got %+v", b)
	}
}
