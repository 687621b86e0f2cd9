package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	stdout  io.Writer
	stderr  io.Writer
	asJSON  bool
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where reports are written (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLogOutput sets where structured logs are written (default os.Stderr).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.stderr = w
	}
}

// WithJSON switches report output from text to indented JSON.
func WithJSON(enabled bool) Option {
	return func(a *application) {
		a.asJSON = enabled
	}
}

// WithVersion sets the version announced by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
