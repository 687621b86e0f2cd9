package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/obvault/internal"
	pkgconfig "github.com/starford/obvault/pkg/config"
)

var version = "dev"

const defaultConfigFile = "obvault.yaml"

// loadConfig reads the config file (optional unless named explicitly) and
// applies flag overrides on top.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadIfExists(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("vault") {
		cfg.Vault.Path = cmd.String("vault")
	}
	if cmd.IsSet("catalog") {
		cfg.Catalog.Path = cmd.String("catalog")
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithJSON(cmd.Bool("json")),
		internal.WithVersion(version),
	}, nil
}

// action adapts an internal runner to a cli action.
func action(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		return run(ctx, opts...)
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the report as JSON",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "ob",
		Usage:   "Tools for working with Obsidian vaults",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigFile,
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("OB_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "The path to an Obsidian vault",
				Sources: cli.EnvVars("OBSIDIAN_VAULT"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to the SQLite catalog (default: a per-vault file in the user cache directory)",
				Sources: cli.EnvVars("OB_CATALOG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "validate-frontmatter",
				Usage:  "Validate the frontmatter of all notes in the vault against a JSON Schema",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.ValidateFrontmatter),
			},
			{
				Name:   "todo",
				Usage:  "Show notes and tasks with todos",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.Todo),
			},
			{
				Name:   "tags",
				Usage:  "Show all tags used in the vault, ordered by frequency",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.Tags),
			},
			{
				Name:   "anki",
				Usage:  "Show all notes labelled for Anki deck inclusion",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.Anki),
			},
			{
				Name:   "triage",
				Usage:  "Show notes whose frontmatter is still empty",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.Triage),
			},
			{
				Name:      "labelled",
				Usage:     "Show all notes carrying a tag",
				ArgsUsage: "<tag>",
				Flags:     []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return cli.Exit("labelled takes exactly one tag", 2)
					}
					opts, err := options(cmd)
					if err != nil {
						return err
					}
					return internal.Labelled(ctx, cmd.Args().First(), opts...)
				},
			},
			{
				Name:   "index",
				Usage:  "Sync the SQLite catalog with the vault",
				Flags:  []cli.Flag{jsonFlag()},
				Action: action(internal.Index),
			},
			{
				Name:   "watch",
				Usage:  "Keep the catalog in step with the vault until interrupted",
				Action: action(internal.Watch),
			},
			{
				Name:   "serve",
				Usage:  "Serve the read-only HTTP API",
				Action: action(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the vault tools over MCP stdio",
				Action: action(internal.MCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
