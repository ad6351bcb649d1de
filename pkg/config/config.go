// Package config loads labgraph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/labgraph/config.toml (falling back to
// ~/.config/labgraph/config.toml). Every key is optional; missing keys keep
// the values from [Default]. Command-line flags override the file.
//
//	[source]
//	kind = "rest"                      # rest | mongo | fixture
//	url = "http://localhost:8895/api"
//	timeout = "31s"
//	sample_limit = 0                   # 0 lists every sample
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "labgraph"
//
//	[cache]
//	backend = "file"                   # file | redis | none
//	ttl = "5m"
//	redis_url = "redis://localhost:6379/0"
//
//	[table]
//	page_size = 10
//	locale = "en"
//
//	[server]
//	addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/matzehuels/labgraph/pkg/errors"
)

const appName = "labgraph"

// Source kinds.
const (
	SourceREST    = "rest"
	SourceMongo   = "mongo"
	SourceFixture = "fixture"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Duration is a time.Duration written as a string ("31s", "5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete labgraph configuration.
type Config struct {
	Source SourceConfig `toml:"source"`
	Mongo  MongoConfig  `toml:"mongo"`
	Cache  CacheConfig  `toml:"cache"`
	Table  TableConfig  `toml:"table"`
	Server ServerConfig `toml:"server"`
}

// SourceConfig selects and configures the data source.
type SourceConfig struct {
	Kind        string   `toml:"kind"`
	URL         string   `toml:"url"`
	Timeout     Duration `toml:"timeout"`
	Fixture     string   `toml:"fixture"`
	SampleLimit int      `toml:"sample_limit"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// CacheConfig configures the REST response cache.
type CacheConfig struct {
	Backend     string   `toml:"backend"`
	Dir         string   `toml:"dir"` // Empty means the XDG cache directory
	TTL         Duration `toml:"ttl"`
	RedisURL    string   `toml:"redis_url"`
	RedisPrefix string   `toml:"redis_prefix"`
}

type TableConfig struct {
	PageSize int    `toml:"page_size"`
	Locale   string `toml:"locale"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration: the dashboard API on
// localhost with a file cache.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Kind:    SourceREST,
			URL:     "http://localhost:8895/api",
			Timeout: Duration{31 * time.Second},
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: appName,
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			TTL:         Duration{5 * time.Minute},
			RedisURL:    "redis://localhost:6379/0",
			RedisPrefix: appName + ":",
		},
		Table: TableConfig{
			PageSize: 10,
			Locale:   "en",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the file at path over the defaults. An empty path means
// [Path]; a missing default file is not an error, but a missing explicit
// file is. Unknown keys are rejected so that typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}

	switch c.Source.Kind {
	case SourceREST:
		if c.Source.URL == "" {
			return invalid("source.url is required for the rest source")
		}
	case SourceMongo:
		if c.Mongo.URI == "" {
			return invalid("mongo.uri is required for the mongo source")
		}
	case SourceFixture:
		if c.Source.Fixture == "" {
			return invalid("source.fixture is required for the fixture source")
		}
	default:
		return invalid("source.kind must be one of rest, mongo, fixture; got %q", c.Source.Kind)
	}
	if c.Source.Timeout.Duration < 0 {
		return invalid("source.timeout must not be negative")
	}
	if c.Source.SampleLimit < 0 {
		return invalid("source.sample_limit must not be negative")
	}

	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return invalid("cache.backend must be one of file, redis, none; got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return invalid("cache.redis_url is required for the redis backend")
	}
	if c.Cache.TTL.Duration < 0 {
		return invalid("cache.ttl must not be negative")
	}

	if c.Table.PageSize <= 0 {
		return invalid("table.page_size must be positive, got %d", c.Table.PageSize)
	}
	if _, err := language.Parse(c.Table.Locale); err != nil {
		return invalid("table.locale %q is not a BCP 47 tag", c.Table.Locale)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	return nil
}

// Locale returns the parsed table locale, or English if it does not parse.
func (c Config) Locale() language.Tag {
	tag, err := language.Parse(c.Table.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the response cache directory: cache.dir if set, else
// $XDG_CACHE_HOME/labgraph, else ~/.cache/labgraph.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
