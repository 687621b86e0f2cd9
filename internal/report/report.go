// Package report folds the notes of a vault into the reports served by the
// CLI, the HTTP API and the MCP server. Every report consumes the sequence
// once and returns the first error it yields.
package report

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/starford/obvault/internal/frontmatter"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/schema"
)

// Notes is the sequence every report consumes; vault.Vault.Notes returns one.
type Notes = iter.Seq2[*models.Note, error]

// Defaults used when options are left empty.
const (
	DefaultTodoMarker = "#todo"
	DefaultAnkiTag    = "learn/anki"
)

// DefaultTodoTags mark a whole note as a todo.
var DefaultTodoTags = []string{"todo", "todo/now"}

// Checker validates a frontmatter mapping. *schema.Validator implements it.
type Checker interface {
	Validate(m *frontmatter.Mapping) []schema.Issue
}

// InvalidNote is a note whose frontmatter failed validation.
type InvalidNote struct {
	Subpath models.Subpath `json:"subpath"`
	Issues  []schema.Issue `json:"issues"`
}

// ValidateFrontmatter checks the frontmatter of every note that is not
// awaiting triage. Only notes with at least one issue are returned, in
// traversal order, with their issues most relevant first.
func ValidateFrontmatter(notes Notes, checker Checker) ([]InvalidNote, error) {
	out := []InvalidNote{}
	for n, err := range notes {
		if err != nil {
			return nil, err
		}
		if n.AwaitingTriage() {
			continue
		}
		issues := checker.Validate(n.Frontmatter())
		if len(issues) == 0 {
			continue
		}
		out = append(out, InvalidNote{Subpath: n.Subpath(), Issues: issues})
	}
	return out, nil
}

// TodoOptions configures Todo. Empty fields take the defaults.
type TodoOptions struct {
	// Tags mark a whole note as a todo.
	Tags []string
	// Marker identifies task lines.
	Marker string
}

func (o TodoOptions) withDefaults() TodoOptions {
	if len(o.Tags) == 0 {
		o.Tags = DefaultTodoTags
	}
	if o.Marker == "" {
		o.Marker = DefaultTodoMarker
	}
	return o
}

// Task holds the task lines found in one note.
type Task struct {
	Subpath models.Subpath `json:"subpath"`
	Lines   []string       `json:"lines"`
}

// TodoReport lists whole-note todos and individual task lines.
type TodoReport struct {
	// Notes are the notes tagged as todos, sorted by subpath.
	Notes []models.Subpath `json:"notes"`
	// Tasks are the notes with marker lines, in traversal order.
	Tasks []Task `json:"tasks"`
}

// Todo collects notes tagged with any of the todo tags and every body line
// containing the marker.
func Todo(notes Notes, opts TodoOptions) (TodoReport, error) {
	opts = opts.withDefaults()
	tagged := models.NoteSet{}
	tasks := []Task{}
	for n, err := range notes {
		if err != nil {
			return TodoReport{}, err
		}
		if n.Tags().HasAny(opts.Tags...) {
			tagged.Add(n)
		}
		var lines []string
		for _, line := range n.Lines() {
			if strings.Contains(line, opts.Marker) {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			tasks = append(tasks, Task{Subpath: n.Subpath(), Lines: lines})
		}
	}
	return TodoReport{Notes: tagged.Subpaths(), Tasks: tasks}, nil
}

// TagCount is the number of notes carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Tags counts the notes carrying each tag, most used first; ties are
// ordered by tag.
func Tags(notes Notes) ([]TagCount, error) {
	counts := map[string]int{}
	for n, err := range notes {
		if err != nil {
			return nil, err
		}
		for tag := range n.Tags().All() {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for _, tag := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, TagCount{Tag: tag, Count: counts[tag]})
	}
	slices.SortStableFunc(out, func(a, b TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out, nil
}

// Labelled returns the notes carrying exactly tag, in traversal order.
func Labelled(notes Notes, tag string) ([]models.Subpath, error) {
	out := []models.Subpath{}
	for n, err := range notes {
		if err != nil {
			return nil, err
		}
		if n.Tags().Has(tag) {
			out = append(out, n.Subpath())
		}
	}
	return out, nil
}

// Anki returns the notes labelled for Anki deck inclusion.
func Anki(notes Notes) ([]models.Subpath, error) {
	return Labelled(notes, DefaultAnkiTag)
}

// Triage returns the notes awaiting triage, in traversal order.
func Triage(notes Notes) ([]models.Subpath, error) {
	out := []models.Subpath{}
	for n, err := range notes {
		if err != nil {
			return nil, err
		}
		if n.AwaitingTriage() {
			out = append(out, n.Subpath())
		}
	}
	return out, nil
}
