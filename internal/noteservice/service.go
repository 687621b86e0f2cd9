// Package noteservice binds a vault to the report options and the schema
// document, giving the CLI, the HTTP API and the MCP server one entry point
// for every report.
package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/report"
	"github.com/starford/obvault/internal/schema"
	"github.com/starford/obvault/internal/vault"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path           string          `json:"path"`
	Checksum       string          `json:"checksum"`
	Frontmatter    json.RawMessage `json:"frontmatter"`
	Tags           []string        `json:"tags"`
	AwaitingTriage bool            `json:"awaiting_triage"`
	Content        string          `json:"content"`
}

// Options configures the reports.
type Options struct {
	SchemaFile string
	TodoTags   []string
	TodoMarker string
	AnkiTag    string
}

// Service runs reports over a vault.
type Service struct {
	vault  *vault.Vault
	opts   Options
	logger *slog.Logger
}

// NewService creates a note service. Empty options take the report defaults.
func NewService(v *vault.Vault, opts Options, logger *slog.Logger) *Service {
	if opts.SchemaFile == "" {
		opts.SchemaFile = schema.DefaultFile
	}
	if opts.AnkiTag == "" {
		opts.AnkiTag = report.DefaultAnkiTag
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{vault: v, opts: opts, logger: logger}
}

// Vault returns the underlying vault.
func (s *Service) Vault() *vault.Vault { return s.vault }

// GetNote reads and parses a single note.
func (s *Service) GetNote(ctx context.Context, path string) (*NoteDetail, error) {
	n, err := s.vault.Note(ctx, path)
	if err != nil {
		return nil, err
	}
	return newDetail(n)
}

func newDetail(n *models.Note) (*NoteDetail, error) {
	fm, err := json.Marshal(n.Frontmatter())
	if err != nil {
		return nil, fmt.Errorf("noteservice: encode frontmatter: %w", err)
	}
	return &NoteDetail{
		Path:           n.Subpath().String(),
		Checksum:       n.Checksum(),
		Frontmatter:    fm,
		Tags:           n.Tags().Sorted(),
		AwaitingTriage: n.AwaitingTriage(),
		Content:        strings.Join(n.Lines(), "\n"),
	}, nil
}

// Validator loads and compiles the vault's schema document.
func (s *Service) Validator() (*schema.Validator, error) {
	return schema.Load(s.vault.Child(s.opts.SchemaFile))
}

// ValidateFrontmatter validates every triaged note against the vault schema.
// A missing or broken schema fails before any note is read.
func (s *Service) ValidateFrontmatter(ctx context.Context) ([]report.InvalidNote, error) {
	v, err := s.Validator()
	if err != nil {
		return nil, err
	}
	invalid, err := report.ValidateFrontmatter(s.vault.Notes(ctx), v)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("noteservice: validated", slog.String("schema", v.Name()), slog.Int("invalid", len(invalid)))
	return invalid, nil
}

// Todo collects todo notes and task lines.
func (s *Service) Todo(ctx context.Context) (report.TodoReport, error) {
	return report.Todo(s.vault.Notes(ctx), report.TodoOptions{
		Tags:   s.opts.TodoTags,
		Marker: s.opts.TodoMarker,
	})
}

// Tags counts notes per tag.
func (s *Service) Tags(ctx context.Context) ([]report.TagCount, error) {
	return report.Tags(s.vault.Notes(ctx))
}

// Labelled lists the notes carrying tag.
func (s *Service) Labelled(ctx context.Context, tag string) ([]models.Subpath, error) {
	tag = strings.TrimPrefix(tag, "#")
	if tag == "" {
		return nil, fmt.Errorf("noteservice: labelled: %w: empty tag", apperr.ErrInvalidInput)
	}
	return report.Labelled(s.vault.Notes(ctx), tag)
}

// Anki lists the notes labelled for Anki.
func (s *Service) Anki(ctx context.Context) ([]models.Subpath, error) {
	return report.Labelled(s.vault.Notes(ctx), s.opts.AnkiTag)
}

// Triage lists the notes awaiting triage.
func (s *Service) Triage(ctx context.Context) ([]models.Subpath, error) {
	return report.Triage(s.vault.Notes(ctx))
}
