package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/lazypower/nanobrain/internal/brain"
)

// StorageError reports a persistence failure. The previously stored
// document, if any, is left intact.
type StorageError struct {
	Op     string // "load", "save", "list"
	UserID string
	Err    error
}

func (e *StorageError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.UserID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// validUserIDChar returns true if the character may appear in a stored id.
// Allowed: letters, digits, hyphens, underscores.
func validUserIDChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

// SanitizeUserID strips every character that is not allowed in a stored id.
// Ids with no usable characters all map to the empty id, which still names
// one shared brain.
func SanitizeUserID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if validUserIDChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeBrain parses a persisted document. Malformed input yields a fresh
// brain and ok=false; callers treat that as "absent".
func decodeBrain(data []byte) (b *brain.Brain, ok bool) {
	var doc brain.Brain
	if err := json.Unmarshal(data, &doc); err != nil {
		return brain.New(), false
	}
	doc.Normalize()
	return &doc, true
}

func encodeBrain(b *brain.Brain) ([]byte, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
