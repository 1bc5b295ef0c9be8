package learn

import (
	"strings"

	"github.com/lazypower/nanobrain/internal/brain"
)

// Context keys written by extraction.
const (
	KeyName  = "name"
	KeyYou   = "you"
	KeyLikes = "likes"
)

// ExtractContext records literal self-descriptions found in the tokens.
// Matching is case-insensitive; captured values keep their original casing.
//
//	"my name is X"   -> name  (token after the last occurrence)
//	"... i am X ..." -> you   (only when "my name is" did not match)
//	"i like|love X"  -> likes (must open the message)
func ExtractContext(b *brain.Brain, tokens []string) {
	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}

	if at := lastPhrase(lower, "my", "name", "is"); at >= 0 {
		if at+3 < len(tokens) {
			b.Context[KeyName] = tokens[at+3]
		}
	} else if lastPhrase(lower, "i", "am") >= 0 {
		for i, t := range lower {
			if t == "am" {
				if i+1 < len(tokens) {
					b.Context[KeyYou] = tokens[i+1]
				}
				break
			}
		}
	}

	if len(lower) > 2 && lower[0] == "i" && (lower[1] == "like" || lower[1] == "love") {
		b.Context[KeyLikes] = tokens[2]
	}
}

// lastPhrase returns the index of the last occurrence of phrase in tokens,
// or -1.
func lastPhrase(tokens []string, phrase ...string) int {
	for i := len(tokens) - len(phrase); i >= 0; i-- {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
