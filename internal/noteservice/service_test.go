package noteservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/testutil"
	"github.com/starford/obvault/internal/vault"
)

func newTestService(t *testing.T, files map[string]string, opts Options) *Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	v := vault.New(testutil.TempVault(t, files), vault.WithLogger(logger))
	return NewService(v, opts, logger)
}

func TestGetNote(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"dir/n.md": "---\nstatus: done\n---\nhello #world\nbye\n",
	}, Options{})

	got, err := svc.GetNote(context.Background(), "dir/n.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Path != "dir/n.md" || got.AwaitingTriage {
		t.Errorf("detail = %+v", got)
	}
	if string(got.Frontmatter) != `{"status":"done"}` {
		t.Errorf("frontmatter = %s", got.Frontmatter)
	}
	if got.Content != "hello #world\nbye" {
		t.Errorf("content = %q", got.Content)
	}
	if diff := cmp.Diff([]string{"world"}, got.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	if _, err := svc.GetNote(context.Background(), "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestValidateFrontmatter_SchemaErrors(t *testing.T) {
	files := map[string]string{"n.md": "---\nstatus: maybe\n---\n"}

	svc := newTestService(t, files, Options{})
	if _, err := svc.ValidateFrontmatter(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing schema err = %v, want ErrNotFound", err)
	}

	files["schema.json"] = `{"type": "nonsense"}`
	svc = newTestService(t, files, Options{})
	if _, err := svc.ValidateFrontmatter(context.Background()); !errors.Is(err, apperr.ErrSchemaInvalid) {
		t.Errorf("broken schema err = %v, want ErrSchemaInvalid", err)
	}
}

func TestValidateFrontmatter_CustomSchemaFile(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"meta/notes.schema.json": `{"properties": {"status": {"enum": ["todo", "done"]}}}`,
		"a.md":                   "---\nstatus: maybe\n---\n",
		"b.md":                   "---\nstatus: done\n---\n",
	}, Options{SchemaFile: "meta/notes.schema.json"})

	got, err := svc.ValidateFrontmatter(context.Background())
	if err != nil {
		t.Fatalf("ValidateFrontmatter: %v", err)
	}
	if len(got) != 1 || got[0].Subpath != "a.md" || len(got[0].Issues) != 1 {
		t.Errorf("invalid = %+v", got)
	}
}

func TestReportsUseOptions(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"a.md": "#flashcard",
		"b.md": "#learn/anki\n- [ ] FIXME later",
		"c.md": "#urgent",
	}, Options{AnkiTag: "flashcard", TodoTags: []string{"urgent"}, TodoMarker: "FIXME"})
	ctx := context.Background()

	anki, err := svc.Anki(ctx)
	if err != nil {
		t.Fatalf("Anki: %v", err)
	}
	if diff := cmp.Diff([]models.Subpath{"a.md"}, anki); diff != "" {
		t.Errorf("anki (-want +got):\n%s", diff)
	}

	todo, err := svc.Todo(ctx)
	if err != nil {
		t.Fatalf("Todo: %v", err)
	}
	if diff := cmp.Diff([]models.Subpath{"c.md"}, todo.Notes); diff != "" {
		t.Errorf("todo notes (-want +got):\n%s", diff)
	}
	if len(todo.Tasks) != 1 || todo.Tasks[0].Subpath != "b.md" {
		t.Errorf("tasks = %+v", todo.Tasks)
	}
}

func TestLabelled(t *testing.T) {
	svc := newTestService(t, map[string]string{"a.md": "#x", "b.md": "#y"}, Options{})
	ctx := context.Background()

	got, err := svc.Labelled(ctx, "#x")
	if err != nil {
		t.Fatalf("Labelled: %v", err)
	}
	if diff := cmp.Diff([]models.Subpath{"a.md"}, got); diff != "" {
		t.Errorf("labelled (-want +got):\n%s", diff)
	}
	if _, err := svc.Labelled(ctx, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty tag err = %v, want ErrInvalidInput", err)
	}
}

func TestTriageAndTags(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"inbox.md":  "#idea raw",
		"sorted.md": "---\ntype: idea\n---\n#idea",
	}, Options{})
	ctx := context.Background()

	triage, err := svc.Triage(ctx)
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if diff := cmp.Diff([]models.Subpath{"inbox.md"}, triage); diff != "" {
		t.Errorf("triage (-want +got):\n%s", diff)
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Tag != "idea" || tags[0].Count != 2 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestMissingVault(t *testing.T) {
	v := vault.New(t.TempDir() + "/nope")
	svc := NewService(v, Options{}, nil)
	if _, err := svc.Tags(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
