// Package schema validates note frontmatter against a JSON Schema document
// and ranks the resulting issues by relevance.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tailscale/hujson"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/frontmatter"
)

// DefaultFile is the vault-relative name of the schema document.
const DefaultFile = "schema.json"

// resourceURL is the in-memory name the document is registered under.
const resourceURL = "file:///schema.json"

// Source provides the raw schema document. vault.File satisfies it.
type Source interface {
	Name() string
	ReadBytes() ([]byte, error)
}

// Validator checks frontmatter mappings against a compiled schema. It is
// safe for concurrent use.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Load reads and compiles the schema provided by src. A missing document is
// returned as is (it matches apperr.ErrNotFound for vault files).
func Load(src Source) (*Validator, error) {
	data, err := src.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", src.Name(), err)
	}
	return Compile(src.Name(), data)
}

// Compile builds a Validator from a JSON (or JSONC) schema document. The
// document is checked against its meta-schema; a broken schema yields an
// error matching apperr.ErrSchemaInvalid and no validator.
func Compile(name string, data []byte) (*Validator, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w: %w", name, apperr.ErrSchemaInvalid, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(resourceURL, bytes.NewReader(std)); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w: %w", name, apperr.ErrSchemaInvalid, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w: %w", name, apperr.ErrSchemaInvalid, err)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// Name returns the name of the schema document.
func (v *Validator) Name() string { return v.name }

// Validate returns the issues found in m, most relevant first. A valid
// mapping yields nil.
func (v *Validator) Validate(m *frontmatter.Mapping) []Issue {
	if m == nil {
		m = frontmatter.NewMapping()
	}
	err := v.schema.Validate(m.Interface())
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Message: err.Error()}}
	}
	issues := collect(ve)
	Rank(issues)
	return issues
}

// collect flattens the cause tree into its leaves, which carry the concrete
// keyword failures.
func collect(root *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, newIssue(node))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(root)
	return issues
}

func newIssue(e *jsonschema.ValidationError) Issue {
	return Issue{
		InstanceLocation: strings.TrimSpace(e.InstanceLocation),
		KeywordLocation:  strings.TrimSpace(e.KeywordLocation),
		Keyword:          keyword(e.KeywordLocation),
		Message:          strings.TrimSpace(e.Message),
	}
}

// keyword returns the last segment of a keyword location such as
// "/properties/status/enum".
func keyword(loc string) string {
	loc = strings.TrimRight(loc, "/")
	if loc == "" {
		return ""
	}
	return path.Base(loc)
}
