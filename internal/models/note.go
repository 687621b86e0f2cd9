// Package models defines the domain types for obvault.
package models

import (
	"encoding/json"
	"iter"
	"maps"
	"path"
	"slices"

	"github.com/starford/obvault/internal/frontmatter"
)

// Subpath is a note's slash-separated path relative to the vault root.
// It is the note's identity: equal subpaths mean the same note.
type Subpath string

func (s Subpath) String() string { return string(s) }

// Dir returns the subpath's parent directory ("." at the vault root).
func (s Subpath) Dir() string { return path.Dir(string(s)) }

// Note is a parsed note. It is immutable and its accessors do no I/O.
type Note struct {
	subpath     Subpath
	frontmatter *frontmatter.Mapping
	tags        TagSet
	lines       []string
	checksum    string
}

// NewNote builds a Note. A nil frontmatter is stored as an empty mapping.
func NewNote(subpath Subpath, fm *frontmatter.Mapping, tags []string, lines []string, checksum string) *Note {
	if fm == nil {
		fm = frontmatter.NewMapping()
	}
	return &Note{
		subpath:     subpath,
		frontmatter: fm,
		tags:        NewTagSet(tags...),
		lines:       slices.Clone(lines),
		checksum:    checksum,
	}
}

// Subpath returns the note's identity.
func (n *Note) Subpath() Subpath { return n.subpath }

// Key returns the comparable identity used for set membership.
func (n *Note) Key() Subpath { return n.subpath }

// Equal reports whether both notes have the same subpath, whatever their
// content.
func (n *Note) Equal(other *Note) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.subpath == other.subpath
}

// Frontmatter returns the metadata mapping; never nil.
func (n *Note) Frontmatter() *frontmatter.Mapping { return n.frontmatter }

// Tags returns the note's hashtags.
func (n *Note) Tags() TagSet { return n.tags }

// Lines returns a copy of the body lines.
func (n *Note) Lines() []string { return slices.Clone(n.lines) }

// Checksum is the hex SHA-256 of the note's raw bytes.
func (n *Note) Checksum() string { return n.checksum }

// AwaitingTriage reports whether the note has not been classified yet: its
// frontmatter carries no keys at all (missing, empty or rejected block).
func (n *Note) AwaitingTriage() bool { return n.frontmatter.Len() == 0 }

// TagSet is an immutable set of exact tag strings. "todo" and "todo/now"
// are unrelated members.
type TagSet struct {
	m map[string]struct{}
}

// NewTagSet builds a set from tags.
func NewTagSet(tags ...string) TagSet {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return TagSet{m: m}
}

// Has reports whether tag is a member.
func (s TagSet) Has(tag string) bool {
	_, ok := s.m[tag]
	return ok
}

// HasAny reports whether any of tags is a member.
func (s TagSet) HasAny(tags ...string) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Len returns the number of tags.
func (s TagSet) Len() int { return len(s.m) }

// All iterates over the tags in no particular order.
func (s TagSet) All() iter.Seq[string] { return maps.Keys(s.m) }

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := slices.Collect(maps.Keys(s.m))
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// NoteSet deduplicates notes by subpath.
type NoteSet map[Subpath]*Note

// Add inserts n; a note already present under the same subpath is kept.
func (s NoteSet) Add(n *Note) {
	if _, ok := s[n.Key()]; !ok {
		s[n.Key()] = n
	}
}

// Has reports whether a note with n's subpath is present.
func (s NoteSet) Has(n *Note) bool {
	_, ok := s[n.Key()]
	return ok
}

// Subpaths returns the member subpaths in lexical order.
func (s NoteSet) Subpaths() []Subpath {
	out := slices.Collect(maps.Keys(s))
	slices.Sort(out)
	if out == nil {
		out = []Subpath{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
