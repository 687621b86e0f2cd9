package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/noteservice"
	"github.com/starford/obvault/internal/report"
	"github.com/starford/obvault/internal/schema"
	"github.com/starford/obvault/internal/vault"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

const maxWorkers = 64

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9_-]+$`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Reports ReportsConfig     `yaml:"reports"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Reports.Validate(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := c.Catalog.Validate(c.Vault.Path); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the notes directory and how it is walked.
type VaultConfig struct {
	Path          string `yaml:"path"`
	Extension     string `yaml:"extension"`
	Workers       int    `yaml:"workers"`
	IncludeHidden bool   `yaml:"include_hidden"`
	Schema        string `yaml:"schema"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extensionRe)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(maxWorkers)),
		validation.Field(&c.Schema, validation.Required),
	)
}

// Open builds the vault view described by the configuration.
func (c *VaultConfig) Open(logger *slog.Logger) *vault.Vault {
	return vault.New(c.Path,
		vault.WithExtension(c.Extension),
		vault.WithWorkers(c.Workers),
		vault.WithHidden(c.IncludeHidden),
		vault.WithLogger(logger),
	)
}

// ReportsConfig tunes the todo and anki reports.
type ReportsConfig struct {
	TodoTags   []string `yaml:"todo_tags"`
	TodoMarker string   `yaml:"todo_marker"`
	AnkiTag    string   `yaml:"anki_tag"`
}

// Validate validates the reports configuration.
func (c *ReportsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TodoTags, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.TodoMarker, validation.Required),
		validation.Field(&c.AnkiTag, validation.Required),
	)
}

// CatalogConfig holds the SQLite catalog location. An empty path keeps the
// catalog in the user cache directory, one file per vault root.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate rejects an explicit catalog path inside the vault at root.
func (c *CatalogConfig) Validate(root string) error {
	if c.Path == "" {
		return nil
	}
	_, err := catalogOutside(root, c.Path)
	return err
}

// Resolve returns the absolute catalog path for the vault at root.
func (c *CatalogConfig) Resolve(root string) (string, error) {
	p := c.Path
	if p == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("catalog: locate cache dir: %w", err)
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("catalog: resolve vault: %w", err)
		}
		sum := sha256.Sum256([]byte(absRoot))
		p = filepath.Join(cache, "obvault", hex.EncodeToString(sum[:8])+".db")
	}
	return catalogOutside(root, p)
}

func catalogOutside(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve vault: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve catalog: %w", err)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is inside the vault %s", apperr.ErrInvalidInput, abs, absRoot)
	}
	return abs, nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ServiceOptions maps the configuration onto the note service options.
func (c *Config) ServiceOptions() noteservice.Options {
	return noteservice.Options{
		SchemaFile: c.Vault.Schema,
		TodoTags:   c.Reports.TodoTags,
		TodoMarker: c.Reports.TodoMarker,
		AnkiTag:    c.Reports.AnkiTag,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:      ".",
			Extension: vault.DefaultExtension,
			Workers:   vault.DefaultWorkers,
			Schema:    schema.DefaultFile,
		},
		Reports: ReportsConfig{
			TodoTags:   append([]string(nil), report.DefaultTodoTags...),
			TodoMarker: report.DefaultTodoMarker,
			AnkiTag:    report.DefaultAnkiTag,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
