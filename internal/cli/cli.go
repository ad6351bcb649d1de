// Package cli implements the labgraph command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labgraph/pkg/buildinfo"
	"github.com/matzehuels/labgraph/pkg/cache"
	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/observability"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/source/fixture"
	"github.com/matzehuels/labgraph/pkg/source/mongo"
	"github.com/matzehuels/labgraph/pkg/source/rest"
	"github.com/matzehuels/labgraph/pkg/table"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "labgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	overrides  sourceFlags
}

// sourceFlags are the persistent flags that override the config file.
type sourceFlags struct {
	kind    string
	url     string
	fixture string
	noCache bool
	refresh bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Labgraph browses lab process records as tables and graphs",
		Long:         `Labgraph reads samples, materials, actions, analyses and measurements from the lab dashboard API or MongoDB and shows them as filterable tables or as a process graph.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			hooks := observability.NewLogHooks(c.Logger)
			observability.SetViewHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/labgraph/config.toml)")
	flags.StringVar(&c.overrides.kind, "source", "", "data source: rest, mongo, fixture")
	flags.StringVar(&c.overrides.url, "url", "", "dashboard API URL (rest) or connection URI (mongo)")
	flags.StringVar(&c.overrides.fixture, "fixture", "", "JSON fixture file (implies --source fixture)")
	flags.BoolVar(&c.overrides.noCache, "no-cache", false, "disable the response cache")
	flags.BoolVar(&c.overrides.refresh, "refresh", false, "bypass cached responses")

	root.AddCommand(c.samplesCommand())
	root.AddCommand(c.entitiesCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config and Sources
// =============================================================================

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	applyOverrides(&cfg, c.overrides)
	return cfg, cfg.Validate()
}

func applyOverrides(cfg *config.Config, f sourceFlags) {
	if f.fixture != "" {
		cfg.Source.Kind = config.SourceFixture
		cfg.Source.Fixture = f.fixture
	}
	if f.kind != "" {
		cfg.Source.Kind = f.kind
	}
	if f.url != "" {
		if cfg.Source.Kind == config.SourceMongo {
			cfg.Mongo.URI = f.url
		} else {
			cfg.Source.URL = f.url
		}
	}
	if f.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
}

// openSource builds the configured data source. The caller closes it.
func (c *CLI) openSource(ctx context.Context, cfg config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceMongo:
		src, err := mongo.Connect(ctx, mongo.Options{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Source.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceFixture:
		src, err := fixture.Load(cfg.Source.Fixture)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	ch, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := rest.New(rest.Options{
		BaseURL:  cfg.Source.URL,
		Timeout:  cfg.Source.Timeout.Duration,
		Cache:    ch,
		CacheTTL: cfg.Cache.TTL.Duration,
		Refresh:  c.overrides.refresh,
		Headers:  map[string]string{"User-Agent": buildinfo.UserAgent()},
		Logger:   c.Logger,
	})
	if err != nil {
		ch.Close()
		return nil, err
	}
	return client, nil
}

// newCache builds the configured response cache. An unusable file cache
// directory degrades to no caching; an unreachable Redis is an error.
func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			URL:    cfg.Cache.RedisURL,
			Prefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// projector returns the table projector for the configured locale.
func projector(cfg config.Config) *table.Projector {
	return table.NewProjector(cfg.Locale())
}
