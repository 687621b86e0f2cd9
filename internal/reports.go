package internal

import (
	"context"
	"encoding/json"

	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/report"
)

// emit writes v as indented JSON when JSON output is selected, otherwise
// runs the text renderer.
func (a *application) emit(v any, text func() error) error {
	if !a.asJSON {
		return text()
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *application) emitSubpaths(paths []models.Subpath) error {
	if paths == nil {
		paths = []models.Subpath{}
	}
	return a.emit(paths, func() error { return report.WriteSubpaths(a.stdout, paths) })
}

// ValidateFrontmatter prints every triaged note whose frontmatter violates
// the vault schema, with its issues most relevant first.
func ValidateFrontmatter(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	invalid, err := svc.ValidateFrontmatter(ctx)
	if err != nil {
		return err
	}
	if invalid == nil {
		invalid = []report.InvalidNote{}
	}
	return app.emit(invalid, func() error { return report.WriteInvalid(app.stdout, invalid) })
}

// Todo prints notes tagged as todo and the task lines carrying the marker.
func Todo(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	rep, err := svc.Todo(ctx)
	if err != nil {
		return err
	}
	return app.emit(rep, func() error { return report.WriteTodo(app.stdout, rep) })
}

// Tags prints every tag with the number of notes carrying it.
func Tags(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	counts, err := svc.Tags(ctx)
	if err != nil {
		return err
	}
	return app.emit(counts, func() error { return report.WriteTags(app.stdout, counts) })
}

// Anki prints the notes labelled for Anki deck inclusion.
func Anki(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	paths, err := svc.Anki(ctx)
	if err != nil {
		return err
	}
	return app.emitSubpaths(paths)
}

// Labelled prints the notes carrying tag.
func Labelled(ctx context.Context, tag string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	paths, err := svc.Labelled(ctx, tag)
	if err != nil {
		return err
	}
	return app.emitSubpaths(paths)
}

// Triage prints the notes awaiting triage.
func Triage(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, _ := app.service(app.logger())
	paths, err := svc.Triage(ctx)
	if err != nil {
		return err
	}
	return app.emitSubpaths(paths)
}
