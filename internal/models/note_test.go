package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/obvault/internal/frontmatter"
)

func TestNote_IdentityIsSubpath(t *testing.T) {
	a := NewNote("a/x.md", frontmatter.NewMapping(frontmatter.Entry{Key: "status", Value: frontmatter.String("done")}), []string{"todo"}, []string{"one"}, "c1")
	b := NewNote("a/x.md", nil, nil, []string{"changed"}, "c2")
	c := NewNote("b/x.md", nil, nil, nil, "c1")

	if !a.Equal(b) {
		t.Error("notes with the same subpath must be equal")
	}
	if a.Equal(c) {
		t.Error("notes with different subpaths must differ")
	}

	set := NoteSet{}
	set.Add(a)
	set.Add(b)
	set.Add(c)
	if len(set) != 2 {
		t.Errorf("set size = %d, want 2", len(set))
	}
	if set["a/x.md"] != a {
		t.Error("first note added under a subpath should be kept")
	}
	if diff := cmp.Diff([]Subpath{"a/x.md", "b/x.md"}, set.Subpaths()); diff != "" {
		t.Errorf("subpaths (-want +got):\n%s", diff)
	}
}

func TestNote_AwaitingTriage(t *testing.T) {
	untriaged := NewNote("inbox.md", nil, nil, nil, "")
	if !untriaged.AwaitingTriage() {
		t.Error("note without frontmatter should await triage")
	}
	triaged := NewNote("done.md", frontmatter.NewMapping(frontmatter.Entry{Key: "status", Value: frontmatter.Null{}}), nil, nil, "")
	if triaged.AwaitingTriage() {
		t.Error("note with any frontmatter key should not await triage")
	}
}

func TestNote_LinesAreCopies(t *testing.T) {
	n := NewNote("x.md", nil, nil, []string{"a", "b"}, "")
	lines := n.Lines()
	lines[0] = "mutated"
	if n.Lines()[0] != "a" {
		t.Error("Lines must not expose internal storage")
	}
}

func TestTagSet_ExactMatch(t *testing.T) {
	s := NewTagSet("todo/now", "learn/anki")
	if s.Has("todo") {
		t.Error("todo/now must not imply todo")
	}
	if !s.HasAny("todo", "todo/now") {
		t.Error("HasAny should match todo/now")
	}
	if diff := cmp.Diff([]string{"learn/anki", "todo/now"}, s.Sorted()); diff != "" {
		t.Errorf("sorted (-want +got):\n%s", diff)
	}
	if NewTagSet().Sorted() == nil {
		t.Error("Sorted of an empty set should be non-nil")
	}
}
