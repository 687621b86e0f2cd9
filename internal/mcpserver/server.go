// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault reports for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/noteservice"
)

const noteFormatURI = "obvault://note-format"

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *noteservice.Service
	catalog index.Catalog
}

// New creates a new MCP server with all tools registered. search_notes is
// only offered when catalog is non-nil.
func New(svc *noteservice.Service, catalog index.Catalog, version string) *Server {
	s := &Server{svc: svc, catalog: catalog}

	s.mcp = server.NewMCPServer(
		"obvault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note: its frontmatter, tags, triage state and body."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note relative to the vault root (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("Count notes per tag, most used first."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List notes tagged as todo and every line containing the todo marker."),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("list_labelled",
		mcp.WithDescription("List notes carrying exactly the given tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag with or without the leading # (e.g. learn/anki)")),
	), s.listLabelled)

	s.mcp.AddTool(mcp.NewTool("list_anki",
		mcp.WithDescription("List notes labelled for Anki deck inclusion."),
	), s.listAnki)

	s.mcp.AddTool(mcp.NewTool("list_triage",
		mcp.WithDescription("List notes awaiting triage (no frontmatter keys)."),
	), s.listTriage)

	s.mcp.AddTool(mcp.NewTool("validate_frontmatter",
		mcp.WithDescription("Validate the frontmatter of every triaged note against the vault's schema.json."),
	), s.validateFrontmatter)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Describe how notes, tags and the schema are interpreted. "+
			"Also available as the "+noteFormatURI+" resource."),
	), s.getNoteFormat)

	if catalog != nil {
		s.mcp.AddTool(mcp.NewTool("search_notes",
			mcp.WithDescription("Full-text search through the catalogued note bodies, tags and paths."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		), s.searchNotes)
	}

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("How obvault reads notes, tags and the frontmatter schema."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func subpathsResult(paths []models.Subpath, empty string) (*mcp.CallToolResult, error) {
	if len(paths) == 0 {
		return mcp.NewToolResultText(empty), nil
	}
	lines := make([]string, len(paths))
	for i, p := range paths {
		lines[i] = p.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) listTodos(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Todo(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) listLabelled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.Labelled(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return subpathsResult(paths, "no notes found")
}

func (s *Server) listAnki(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.svc.Anki(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return subpathsResult(paths, "no notes found")
}

func (s *Server) listTriage(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.svc.Triage(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return subpathsResult(paths, "no notes awaiting triage")
}

func (s *Server) validateFrontmatter(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	invalid, err := s.svc.ValidateFrontmatter(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(invalid) == 0 {
		return mcp.NewToolResultText("All notes are valid."), nil
	}
	return jsonResult(invalid)
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.catalog.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getNoteFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
