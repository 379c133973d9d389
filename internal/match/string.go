package match

import (
	"regexp"
	"strings"
)

// StringKind tags a StringMatch variant.
type StringKind int

const (
	StringIs StringKind = iota
	StringContains
	StringStartsWith
	StringEndsWith
	StringRegex
)

// StringMatch is a predicate over strings, compiled from a single-key
// mapping per spec §4.2.
type StringMatch struct {
	kind    StringKind
	literal string
	re      *regexp.Regexp
}

func (m StringMatch) Matches(s string) bool {
	switch m.kind {
	case StringIs:
		return s == m.literal
	case StringContains:
		return strings.Contains(s, m.literal)
	case StringStartsWith:
		return strings.HasPrefix(s, m.literal)
	case StringEndsWith:
		return strings.HasSuffix(s, m.literal)
	case StringRegex:
		return m.re.MatchString(s)
	default:
		return false
	}
}

func (m StringMatch) Kind() StringKind { return m.kind }

// Literal returns the comparison string for Is/Contains/StartsWith/EndsWith
// matches. Meaningless for StringRegex.
func (m StringMatch) Literal() string { return m.literal }

// Pattern returns the source regex for a StringRegex match. Meaningless for
// any other kind.
func (m StringMatch) Pattern() string { return m.re.String() }

var stringMatchKeys = []string{"is", "contains", "starts_with", "ends_with", "regex"}

// CompileString compiles a single-key mapping (exactly one of is, contains,
// starts_with, ends_with, regex) into a StringMatch.
func CompileString(n RawNode) (StringMatch, error) {
	if n == nil || !n.IsMapping() {
		return StringMatch{}, errAt(n, "string matcher must be a mapping with one of %v", stringMatchKeys)
	}

	keys := n.MapKeys()
	if len(keys) != 1 {
		return StringMatch{}, errAt(n, "string matcher must have exactly one key, got %v", keys)
	}

	key := keys[0]
	valueNode, _ := n.MapGet(key)
	str, ok := valueNode.IsScalarString()
	if !ok {
		return StringMatch{}, errAt(valueNode, "%s must be a string", key)
	}

	switch key {
	case "is":
		return StringMatch{kind: StringIs, literal: str}, nil
	case "contains":
		return StringMatch{kind: StringContains, literal: str}, nil
	case "starts_with":
		return StringMatch{kind: StringStartsWith, literal: str}, nil
	case "ends_with":
		return StringMatch{kind: StringEndsWith, literal: str}, nil
	case "regex":
		re, err := regexp.Compile(str)
		if err != nil {
			return StringMatch{}, errAt(valueNode, "invalid regex %q: %v", str, err)
		}
		return StringMatch{kind: StringRegex, re: re}, nil
	default:
		return StringMatch{}, errAt(n, "unknown string matcher key %q, want one of %v", key, stringMatchKeys)
	}
}

