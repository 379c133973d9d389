// Package match implements the two small predicate algebras the config
// parser compiles field values into: bounded-integer value-matches and
// string matches. Both are built once at parse time and evaluated many
// times on the dispatch hot path.
package match

import "fmt"

// ValueKind tags a ValueMatch variant.
type ValueKind int

const (
	KindAny ValueKind = iota
	KindSingle
	KindList
	KindRange
	KindUnion
)

// ValueMatch is a predicate over a bounded non-negative integer field.
// The zero value is KindAny (matches everything), which is deliberate: a
// ValueMatch built via Any() or by Compile for a missing/null node needs no
// further initialization.
type ValueMatch struct {
	kind  ValueKind
	single uint32
	list   []uint32
	min    *uint32
	max    *uint32
	union  []ValueMatch
}

// Bounds describes the inclusive range a field's raw integers must fall
// within; it is supplied per-field by the configuration parser from the
// tables in spec §6.2/§6.3.
type Bounds struct {
	Min uint32
	Max uint32
}

func (b Bounds) contains(v uint32) bool {
	return v >= b.Min && v <= b.Max
}

// Any returns the wildcard match.
func Any() ValueMatch { return ValueMatch{kind: KindAny} }

// Single returns a match for exactly one value. The caller is responsible
// for bounds-checking v before calling this (the parser does so).
func Single(v uint32) ValueMatch { return ValueMatch{kind: KindSingle, single: v} }

// List returns a match for any of the given values.
func List(vs []uint32) ValueMatch {
	cp := make([]uint32, len(vs))
	copy(cp, vs)
	return ValueMatch{kind: KindList, list: cp}
}

// Range returns a closed-interval match. At least one of min/max must be
// non-nil; Compile enforces this before calling Range.
func Range(min, max *uint32) ValueMatch {
	return ValueMatch{kind: KindRange, min: min, max: max}
}

// Union returns a match that is satisfied if any element is.
func Union(elems []ValueMatch) ValueMatch {
	cp := make([]ValueMatch, len(elems))
	copy(cp, elems)
	return ValueMatch{kind: KindUnion, union: cp}
}

// Matches reports whether v satisfies the predicate. O(|union|), no
// allocation.
func (m ValueMatch) Matches(v uint32) bool {
	switch m.kind {
	case KindAny:
		return true
	case KindSingle:
		return v == m.single
	case KindList:
		for _, e := range m.list {
			if v == e {
				return true
			}
		}
		return false
	case KindRange:
		if m.min != nil && v < *m.min {
			return false
		}
		if m.max != nil && v > *m.max {
			return false
		}
		return true
	case KindUnion:
		for _, e := range m.union {
			if e.Matches(v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Kind exposes the variant tag, mainly for tests and canonical
// re-serialization.
func (m ValueMatch) Kind() ValueKind { return m.kind }

// SingleValue returns the exact value a KindSingle match holds. Meaningless
// for any other kind.
func (m ValueMatch) SingleValue() uint32 { return m.single }

// ListValues returns the values a KindList match holds.
func (m ValueMatch) ListValues() []uint32 {
	cp := make([]uint32, len(m.list))
	copy(cp, m.list)
	return cp
}

// RangeBounds returns the min/max a KindRange match holds; either may be nil.
func (m ValueMatch) RangeBounds() (min, max *uint32) { return m.min, m.max }

// UnionMembers returns the elements a KindUnion match holds.
func (m ValueMatch) UnionMembers() []ValueMatch {
	cp := make([]ValueMatch, len(m.union))
	copy(cp, m.union)
	return cp
}

// RawNode is the minimal shape Compile needs from the generic configuration
// tree; internal/rawconfig.Node satisfies it. Kept as an interface here so
// the match package has no dependency on the YAML library.
type RawNode interface {
	IsNull() bool
	IsScalarInt() (uint32, bool)
	IsScalarString() (string, bool)
	IsSequence() bool
	Sequence() ([]RawNode, error)
	IsMapping() bool
	MapKeys() []string
	MapGet(key string) (RawNode, bool)
	Location() string
}

// ParseError is a configuration error localized to a node.
type ParseError struct {
	Location string
	Message  string
}

func (e *ParseError) Error() string {
	if e.Location == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

func errAt(n RawNode, format string, args ...interface{}) error {
	return &ParseError{Location: n.Location(), Message: fmt.Sprintf(format, args...)}
}

// Compile translates a raw node into a ValueMatch bound to the given field
// range, per spec §4.1.
func Compile(n RawNode, bounds Bounds) (ValueMatch, error) {
	if n == nil || n.IsNull() {
		return Any(), nil
	}

	if v, ok := n.IsScalarInt(); ok {
		if !bounds.contains(v) {
			return ValueMatch{}, errAt(n, "value %d out of range [%d,%d]", v, bounds.Min, bounds.Max)
		}
		return Single(v), nil
	}

	if n.IsSequence() {
		elems, err := n.Sequence()
		if err != nil {
			return ValueMatch{}, err
		}
		if len(elems) == 0 {
			return ValueMatch{}, errAt(n, "sequence must not be empty")
		}
		compiled := make([]ValueMatch, 0, len(elems))
		for _, el := range elems {
			if el.IsMapping() {
				rangeMatch, err := compileRange(el, bounds)
				if err != nil {
					return ValueMatch{}, err
				}
				compiled = append(compiled, rangeMatch)
				continue
			}
			v, ok := el.IsScalarInt()
			if !ok {
				return ValueMatch{}, errAt(el, "sequence element must be an integer or a range mapping")
			}
			if !bounds.contains(v) {
				return ValueMatch{}, errAt(el, "value %d out of range [%d,%d]", v, bounds.Min, bounds.Max)
			}
			compiled = append(compiled, Single(v))
		}
		return Union(compiled), nil
	}

	if n.IsMapping() {
		return compileRange(n, bounds)
	}

	return ValueMatch{}, errAt(n, "expected an integer, a list, or a {min,max} range")
}

func compileRange(n RawNode, bounds Bounds) (ValueMatch, error) {
	for _, k := range n.MapKeys() {
		if k != "min" && k != "max" {
			return ValueMatch{}, errAt(n, "unknown range key %q", k)
		}
	}

	var min, max *uint32

	if minNode, ok := n.MapGet("min"); ok {
		v, ok := minNode.IsScalarInt()
		if !ok {
			return ValueMatch{}, errAt(minNode, "min must be an integer")
		}
		if !bounds.contains(v) {
			return ValueMatch{}, errAt(minNode, "min %d out of range [%d,%d]", v, bounds.Min, bounds.Max)
		}
		min = &v
	}

	if maxNode, ok := n.MapGet("max"); ok {
		v, ok := maxNode.IsScalarInt()
		if !ok {
			return ValueMatch{}, errAt(maxNode, "max must be an integer")
		}
		if !bounds.contains(v) {
			return ValueMatch{}, errAt(maxNode, "max %d out of range [%d,%d]", v, bounds.Min, bounds.Max)
		}
		max = &v
	}

	if min == nil && max == nil {
		return ValueMatch{}, errAt(n, "range requires at least one of min, max")
	}

	if min != nil && max != nil && *min > *max {
		return ValueMatch{}, errAt(n, "range min %d is greater than max %d", *min, *max)
	}

	return Range(min, max), nil
}
