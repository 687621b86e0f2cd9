package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/noteservice"
	"github.com/starford/obvault/internal/report"
	"github.com/starford/obvault/internal/testutil"
	"github.com/starford/obvault/internal/vault"
)

var fixture = map[string]string{
	"topics/go.md": "---\nstatus: doing\n---\nGo #lang #learn/anki\n- [ ] finish the tour #todo\n",
	"inbox/raw.md": "unsorted thought #lang\n",
	"bad.md":       "---\nstatus: maybe\n---\n",
	"schema.json":  `{"properties": {"status": {"enum": ["todo", "doing", "done"]}}}`,
}

func testServer(t *testing.T, files map[string]string, withCatalog bool) *Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	v := vault.New(testutil.TempVault(t, files), vault.WithLogger(logger))
	svc := noteservice.NewService(v, noteservice.Options{}, logger)
	if !withCatalog {
		return New(svc, nil, "test")
	}

	db, err := index.Open(testutil.TempDBPath(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := index.Sync(context.Background(), db, v, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return New(svc, db, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions by name.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "list_todos":
		result, err = srv.listTodos(ctx, req)
	case "list_labelled":
		result, err = srv.listLabelled(ctx, req)
	case "list_anki":
		result, err = srv.listAnki(ctx, req)
	case "list_triage":
		result, err = srv.listTriage(ctx, req)
	case "validate_frontmatter":
		result, err = srv.validateFrontmatter(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_note_format":
		result, err = srv.getNoteFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadNote(t *testing.T) {
	srv := testServer(t, fixture, false)

	r := callTool(t, srv, "read_note", map[string]any{"path": "topics/go.md"})
	if r.IsError {
		t.Fatalf("read_note error: %s", resultText(r))
	}
	var note noteservice.NoteDetail
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.Path != "topics/go.md" || len(note.Tags) != 3 {
		t.Errorf("note = %+v", note)
	}
}

func TestReadNoteErrors(t *testing.T) {
	srv := testServer(t, fixture, false)

	if r := callTool(t, srv, "read_note", map[string]any{"path": "nope.md"}); !r.IsError {
		t.Error("expected error for missing note")
	}
	if r := callTool(t, srv, "read_note", map[string]any{}); !r.IsError {
		t.Error("expected error for missing path argument")
	}
}

func TestListTags(t *testing.T) {
	srv := testServer(t, fixture, false)

	r := callTool(t, srv, "list_tags", nil)
	var tags []report.TagCount
	if err := json.Unmarshal([]byte(resultText(r)), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags) == 0 || tags[0] != (report.TagCount{Tag: "lang", Count: 2}) {
		t.Errorf("tags = %+v", tags)
	}
}

func TestListTodos(t *testing.T) {
	srv := testServer(t, fixture, false)

	text := resultText(callTool(t, srv, "list_todos", nil))
	if !strings.Contains(text, "- [ ] finish the tour #todo") {
		t.Errorf("todos = %s", text)
	}
}

func TestSubpathLists(t *testing.T) {
	srv := testServer(t, fixture, false)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"list_labelled", map[string]any{"tag": "#lang"}, "inbox/raw.md\ntopics/go.md"},
		{"list_labelled", map[string]any{"tag": "missing"}, "no notes found"},
		{"list_anki", nil, "topics/go.md"},
		{"list_triage", nil, "inbox/raw.md"},
	}
	for _, tt := range tests {
		r := callTool(t, srv, tt.tool, tt.args)
		if r.IsError {
			t.Errorf("%s %v: error %s", tt.tool, tt.args, resultText(r))
			continue
		}
		if got := resultText(r); got != tt.want {
			t.Errorf("%s %v = %q, want %q", tt.tool, tt.args, got, tt.want)
		}
	}
}

func TestValidateFrontmatter(t *testing.T) {
	srv := testServer(t, fixture, false)

	text := resultText(callTool(t, srv, "validate_frontmatter", nil))
	var invalid []report.InvalidNote
	if err := json.Unmarshal([]byte(text), &invalid); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	if len(invalid) != 1 || invalid[0].Subpath != "bad.md" {
		t.Errorf("invalid = %+v", invalid)
	}

	clean := testServer(t, map[string]string{"a.md": "---\nstatus: done\n---\n", "schema.json": fixture["schema.json"]}, false)
	if got := resultText(callTool(t, clean, "validate_frontmatter", nil)); got != "All notes are valid." {
		t.Errorf("clean vault = %q", got)
	}

	noSchema := testServer(t, map[string]string{"a.md": "x"}, false)
	if r := callTool(t, noSchema, "validate_frontmatter", nil); !r.IsError {
		t.Error("expected error without schema.json")
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t, fixture, true)

	r := callTool(t, srv, "search_notes", map[string]any{"query": "tour"})
	var results []index.SearchResult
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Path != "topics/go.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchToolRegistration(t *testing.T) {
	without := testServer(t, fixture, false)
	if without.MCPServer().GetTool("search_notes") != nil {
		t.Error("search_notes registered without a catalog")
	}
	with := testServer(t, fixture, true)
	if with.MCPServer().GetTool("search_notes") == nil {
		t.Error("search_notes missing with a catalog")
	}
}

func TestNoteFormat(t *testing.T) {
	srv := testServer(t, nil, false)
	if got := resultText(callTool(t, srv, "get_note_format", nil)); got != NoteFormat {
		t.Error("get_note_format does not return the note format document")
	}

	contents, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != noteFormatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
