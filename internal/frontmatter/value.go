// Package frontmatter models note metadata as a closed tree of
// JSON-compatible values decoded from a YAML block.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one node of a frontmatter tree. The set of implementations is
// closed: Null, Bool, Number, String, Sequence and *Mapping.
type Value interface {
	Kind() Kind
	// Interface returns the value shaped the way encoding/json decodes
	// documents with UseNumber: nil, bool, json.Number, string, []any,
	// map[string]any.
	Interface() any

	node() *yaml.Node
}

// Null is the YAML/JSON null.
type Null struct{}

// Bool is a boolean scalar.
type Bool bool

// Number holds a canonical JSON number literal.
type Number string

// String is a string scalar. Scalars YAML would read as timestamps or
// binary are kept as their source text.
type String string

// Sequence is an ordered list of values.
type Sequence []Value

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Sequence) Kind() Kind { return KindSequence }
func (*Mapping) Kind() Kind { return KindMapping }

func (Null) Interface() any     { return nil }
func (b Bool) Interface() any   { return bool(b) }
func (n Number) Interface() any { return json.Number(n) }
func (s String) Interface() any { return string(s) }

func (s Sequence) Interface() any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v.Interface()
	}
	return out
}

// Int64 parses the number as an integer.
func (n Number) Int64() (int64, error) { return strconv.ParseInt(string(n), 10, 64) }

// Float64 parses the number as a float.
func (n Number) Float64() (float64, error) { return strconv.ParseFloat(string(n), 64) }

func (Null) node() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func (b Bool) node() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(b))}
}

func (n Number) node() *yaml.Node {
	tag := "!!int"
	if strings.ContainsAny(string(n), ".eE") {
		tag = "!!float"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(n)}
}

func (s String) node() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(s)}
}

func (s Sequence) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range s {
		n.Content = append(n.Content, v.node())
	}
	return n
}

func (Null) MarshalJSON() ([]byte, error)     { return []byte("null"), nil }
func (b Bool) MarshalJSON() ([]byte, error)   { return json.Marshal(bool(b)) }
func (n Number) MarshalJSON() ([]byte, error) { return json.Marshal(json.Number(n)) }
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (s Sequence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Entry is a key/value pair used to build a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is an insertion-ordered string-keyed map of values. A nil
// *Mapping behaves as an empty one.
type Mapping struct {
	keys   []string
	values map[string]Value
}

// NewMapping builds a mapping from entries. A repeated key keeps its first
// position and takes the last value.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{values: make(map[string]Value, len(entries))}
	for _, e := range entries {
		m.set(e.Key, e.Value)
	}
	return m
}

func (m *Mapping) set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present, whatever its value.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// All iterates over the entries in document order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Interface returns the mapping as map[string]any.
func (m *Mapping) Interface() any {
	out := make(map[string]any, m.Len())
	for k, v := range m.All() {
		out[k] = v.Interface()
	}
	return out
}

func (m *Mapping) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range m.All() {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			v.node(),
		)
	}
	return n
}

// MarshalJSON encodes the mapping as a JSON object in document order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range m.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the mapping as a YAML mapping in document order.
func (m *Mapping) MarshalYAML() (any, error) {
	return m.node(), nil
}

// Encode renders the mapping as a YAML document, the inverse of Decode.
func Encode(m *Mapping) ([]byte, error) {
	return yaml.Marshal(m.node())
}

// Equal reports whether a and b hold the same data. Mapping key order is
// ignored; sequence order is not.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case Sequence:
		bv := b.(Sequence)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv := b.(*Mapping)
		if av.Len() != bv.Len() {
			return false
		}
		for k, v := range av.All() {
			w, ok := bv.Get(k)
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return false
}
