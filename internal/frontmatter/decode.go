package frontmatter

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a block decodes to a scalar or sequence.
var ErrNotMapping = errors.New("frontmatter: document is not a mapping")

// ErrTooLarge is returned when alias expansion would build more values than
// a note's frontmatter can reasonably hold.
var ErrTooLarge = errors.New("frontmatter: document expands to too many values")

const (
	maxDepth = 64
	maxNodes = 10000
)

// decoder converts a yaml.Node tree while counting every value it builds,
// so a small document full of aliases cannot expand without bound.
type decoder struct {
	nodes int
}

// Decode parses a YAML document into a Mapping. Empty and null documents
// decode to an empty mapping.
func Decode(data []byte) (*Mapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: decode: %w", err)
	}
	if doc.Kind == 0 {
		return NewMapping(), nil
	}

	var d decoder
	v, err := d.convert(&doc, 0)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Mapping:
		return t, nil
	case Null:
		return NewMapping(), nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrNotMapping, v.Kind())
	}
}

func (d *decoder) convert(n *yaml.Node, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("frontmatter: nesting deeper than %d at line %d", maxDepth, n.Line)
	}
	if d.nodes++; d.nodes > maxNodes {
		return nil, fmt.Errorf("%w: more than %d at line %d", ErrTooLarge, maxNodes, n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null{}, nil
		}
		return d.convert(n.Content[0], depth+1)
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("frontmatter: unresolved alias at line %d", n.Line)
		}
		return d.convert(n.Alias, depth+1)
	case yaml.ScalarNode:
		return scalar(n), nil
	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.convert(c, depth+1)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		return d.mapping(n, depth)
	}
	return nil, fmt.Errorf("frontmatter: unsupported node kind %d at line %d", n.Kind, n.Line)
}

func scalar(n *yaml.Node) Value {
	switch n.ShortTag() {
	case "!!null":
		return Null{}
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Number(strconv.FormatInt(i, 10))
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return Number(strconv.FormatUint(u, 10))
		}
		if num, ok := float(n); ok {
			return num
		}
	case "!!float":
		if num, ok := float(n); ok {
			return num
		}
	}
	return String(n.Value)
}

// float decodes a finite float. NaN and infinities have no JSON form and
// stay strings.
func float(n *yaml.Node) (Number, bool) {
	var f float64
	if err := n.Decode(&f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return Number(strconv.FormatFloat(f, 'g', -1, 64)), true
}

func (d *decoder) mapping(n *yaml.Node, depth int) (*Mapping, error) {
	m := NewMapping()
	var merged []*Mapping
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() == "!!merge" {
			ms, err := d.mergeSources(v, depth+1)
			if err != nil {
				return nil, err
			}
			merged = append(merged, ms...)
			continue
		}
		key, err := keyString(k)
		if err != nil {
			return nil, err
		}
		val, err := d.convert(v, depth+1)
		if err != nil {
			return nil, err
		}
		m.set(key, val)
	}
	// Explicit keys win over merged ones; earlier merge sources win over later.
	for _, src := range merged {
		for k, v := range src.All() {
			if !m.Has(k) {
				m.set(k, v)
			}
		}
	}
	return m, nil
}

func (d *decoder) mergeSources(n *yaml.Node, depth int) ([]*Mapping, error) {
	v, err := d.convert(n, depth)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Mapping:
		return []*Mapping{t}, nil
	case Sequence:
		out := make([]*Mapping, 0, len(t))
		for _, item := range t {
			m, ok := item.(*Mapping)
			if !ok {
				return nil, fmt.Errorf("frontmatter: merge of non-mapping at line %d", n.Line)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("frontmatter: merge of non-mapping at line %d", n.Line)
}

func keyString(k *yaml.Node) (string, error) {
	for k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("frontmatter: non-scalar key at line %d", k.Line)
	}
	return k.Value, nil
}
