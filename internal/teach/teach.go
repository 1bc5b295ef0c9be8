// Package teach applies privileged key=value overrides to a brain,
// bypassing passive learning.
package teach

import (
	"strings"

	"github.com/lazypower/nanobrain/internal/brain"
)

// ToneKey is the reserved key that sets the tone instead of a context fact.
const ToneKey = "tone"

// Invalid is returned for commands that are not key=value.
const Invalid = "invalid command"

// Parse splits a command on its first '=' and trims both halves.
func Parse(command string) (key, value string, ok bool) {
	key, value, found := strings.Cut(strings.TrimSpace(command), "=")
	if !found {
		return "", "", false
	}
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// ApplyCommand executes one teach command against b and returns a
// human-readable result. Malformed commands yield Invalid and leave b
// unchanged; this never fails.
func ApplyCommand(b *brain.Brain, command string) string {
	key, value, ok := Parse(command)
	if !ok {
		return Invalid
	}
	if key == ToneKey {
		b.Meta.Tone = brain.TruncateTone(value)
		return "tone set to " + string(b.Meta.Tone)
	}
	b.Context[key] = value
	return "context " + key + " set to " + value
}
