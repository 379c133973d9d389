// Package rawconfig provides a generic, schema-agnostic tree over a decoded
// YAML document, the "Raw configuration tree" of spec §2 component 3.
// configparser walks this tree; nothing downstream of configparser touches
// yaml.Node directly. The shape is the same deferred-decode idea as the
// teacher's configuration.Action.RawTarget yaml.Node (types.go), generalized
// to the whole document.
package rawconfig

import (
	"fmt"
	"strconv"

	"github.com/michd/mmpd/internal/match"
	"gopkg.in/yaml.v3"
)

// Node wraps a single *yaml.Node with location-aware, schema-agnostic
// accessors. A nil *Node behaves like a null node.
type Node struct {
	raw  *yaml.Node
	path string // dotted/bracketed path for error messages, e.g. "scopes[0].macros[2].actions[0]"
}

// Parse decodes YAML source into the root Node of the tree.
func Parse(source []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return &Node{raw: nil, path: "$"}, nil
	}
	return &Node{raw: doc.Content[0], path: "$"}, nil
}

func wrap(raw *yaml.Node, path string) *Node {
	if raw == nil {
		return &Node{raw: nil, path: path}
	}
	// Resolve YAML aliases transparently; the domain model never sees them.
	for raw.Kind == yaml.AliasNode && raw.Alias != nil {
		raw = raw.Alias
	}
	return &Node{raw: raw, path: path}
}

// Location returns a human-readable path to this node, used in parse error
// messages (spec §7: "citing file path and node location").
func (n *Node) Location() string {
	if n == nil {
		return "$"
	}
	return n.path
}

// Line returns the 1-based source line, or 0 if unknown (e.g. a synthesized
// node from shorthand expansion).
func (n *Node) Line() int {
	if n == nil || n.raw == nil {
		return 0
	}
	return n.raw.Line
}

func (n *Node) IsNull() bool {
	return n == nil || n.raw == nil || n.raw.Tag == "!!null"
}

// IsScalarInt reports whether the node is a scalar that parses as a
// non-negative integer.
func (n *Node) IsScalarInt() (uint32, bool) {
	if n == nil || n.raw == nil || n.raw.Kind != yaml.ScalarNode {
		return 0, false
	}
	v, err := strconv.ParseUint(n.raw.Value, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// IsScalarString reports whether the node is a scalar string (any scalar
// tag is accepted and returned as its literal text, matching YAML's loose
// scalar typing).
func (n *Node) IsScalarString() (string, bool) {
	if n == nil || n.raw == nil || n.raw.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.raw.Value, true
}

// AsString requires the node to be a non-null scalar string.
func (n *Node) AsString() (string, error) {
	s, ok := n.IsScalarString()
	if !ok {
		return "", fmt.Errorf("%s: expected a string", n.Location())
	}
	return s, nil
}

// AsInt requires the node to be an integer scalar. Negative values are
// accepted; callers do their own range checks.
func (n *Node) AsInt() (int64, error) {
	if n == nil || n.raw == nil || n.raw.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%s: expected an integer", n.Location())
	}
	v, err := strconv.ParseInt(n.raw.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected an integer, got %q", n.Location(), n.raw.Value)
	}
	return v, nil
}

// AsBool requires the node to be a boolean scalar.
func (n *Node) AsBool() (bool, error) {
	if n == nil || n.raw == nil || n.raw.Kind != yaml.ScalarNode {
		return false, fmt.Errorf("%s: expected a boolean", n.Location())
	}
	switch n.raw.Value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s: expected a boolean, got %q", n.Location(), n.raw.Value)
	}
}

func (n *Node) IsSequence() bool {
	return n != nil && n.raw != nil && n.raw.Kind == yaml.SequenceNode
}

func (n *Node) IsMapping() bool {
	return n != nil && n.raw != nil && n.raw.Kind == yaml.MappingNode
}

// AsSequence returns the elements of a sequence node in order.
func (n *Node) AsSequence() ([]*Node, error) {
	if !n.IsSequence() {
		return nil, fmt.Errorf("%s: expected a list", n.Location())
	}
	out := make([]*Node, len(n.raw.Content))
	for i, c := range n.raw.Content {
		out[i] = wrap(c, fmt.Sprintf("%s[%d]", n.path, i))
	}
	return out, nil
}

// Sequence implements match.RawNode.
func (n *Node) Sequence() ([]match.RawNode, error) {
	elems, err := n.AsSequence()
	if err != nil {
		return nil, err
	}
	out := make([]match.RawNode, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out, nil
}

// AsMapping decodes a mapping node into an ordered key/value view.
func (n *Node) AsMapping() (*Mapping, error) {
	if !n.IsMapping() {
		return nil, fmt.Errorf("%s: expected a mapping", n.Location())
	}
	m := &Mapping{node: n, index: make(map[string]int, len(n.raw.Content)/2)}
	for i := 0; i+1 < len(n.raw.Content); i += 2 {
		key := n.raw.Content[i].Value
		m.keys = append(m.keys, key)
		m.index[key] = i + 1
	}
	return m, nil
}

// MapKeys returns the mapping's keys in source order, or nil if this is not
// a mapping node.
func (n *Node) MapKeys() []string {
	if !n.IsMapping() {
		return nil
	}
	m, _ := n.AsMapping()
	return m.keys
}

// MapGet implements match.RawNode: looks up a key in a mapping node.
func (n *Node) MapGet(key string) (match.RawNode, bool) {
	child, ok := n.Child(key)
	if !ok {
		return nil, false
	}
	return child, true
}

// Child returns the value mapped to key, if n is a mapping containing it.
func (n *Node) Child(key string) (*Node, bool) {
	if !n.IsMapping() {
		return nil, false
	}
	for i := 0; i+1 < len(n.raw.Content); i += 2 {
		if n.raw.Content[i].Value == key {
			return wrap(n.raw.Content[i+1], fmt.Sprintf("%s.%s", n.path, key)), true
		}
	}
	return nil, false
}

// Mapping is an ordered view over a mapping node's keys.
type Mapping struct {
	node  *Node
	keys  []string
	index map[string]int
}

func (m *Mapping) Keys() []string { return m.keys }

func (m *Mapping) Get(key string) (*Node, bool) {
	return m.node.Child(key)
}

func (m *Mapping) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}
