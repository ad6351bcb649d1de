package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/labgraph/pkg/cache"
	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/table"
)

const labFixture = "../../pkg/source/fixture/testdata/lab.json"

// isolate points the config and cache directories at empty temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	applyOverrides(&cfg, sourceFlags{fixture: "lab.json", noCache: true})
	if cfg.Source.Kind != config.SourceFixture || cfg.Source.Fixture != "lab.json" {
		t.Errorf("fixture override: source = %+v", cfg.Source)
	}
	if cfg.Cache.Backend != config.CacheNone {
		t.Errorf("no-cache override: backend = %q", cfg.Cache.Backend)
	}

	cfg = config.Default()
	applyOverrides(&cfg, sourceFlags{kind: config.SourceMongo, url: "mongodb://lab:27017"})
	if cfg.Mongo.URI != "mongodb://lab:27017" || cfg.Source.URL != config.Default().Source.URL {
		t.Errorf("mongo url override: mongo = %+v, source url = %q", cfg.Mongo, cfg.Source.URL)
	}

	cfg = config.Default()
	applyOverrides(&cfg, sourceFlags{url: "http://dashboard/api"})
	if cfg.Source.URL != "http://dashboard/api" {
		t.Errorf("rest url override: %q", cfg.Source.URL)
	}
}

func TestLoadConfigRejectsBadOverride(t *testing.T) {
	isolate(t)
	c := New(io.Discard, LogInfo)
	c.overrides.kind = "ftp"
	if _, err := c.loadConfig(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("loadConfig() = %v, want INVALID_CONFIG", err)
	}
}

func TestOpenSourceFixture(t *testing.T) {
	isolate(t)
	c := New(io.Discard, LogInfo)
	c.overrides.fixture = labFixture
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	src, err := c.openSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openSource() error: %v", err)
	}
	defer src.Close()

	materials, err := src.ListEntities(context.Background(), entity.KindMaterial)
	if err != nil || len(materials) != 4 {
		t.Errorf("ListEntities() = %d, %v", len(materials), err)
	}
}

func TestOpenSourceRESTRejectsBadURL(t *testing.T) {
	isolate(t)
	c := New(io.Discard, LogInfo)
	cfg := config.Default()
	cfg.Source.URL = "::not a url"
	cfg.Cache.Backend = config.CacheNone
	if _, err := c.openSource(context.Background(), cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("openSource() = %v, want INVALID_CONFIG", err)
	}
}

func TestNewCache(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Cache.Backend = config.CacheNone
	ch, err := newCache(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T", ch)
	}

	cfg = config.Default()
	cfg.Cache.Dir = t.TempDir()
	ch, err = newCache(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := ch.(*cache.FileCache)
	if !ok || fc.Dir() != cfg.Cache.Dir {
		t.Errorf("file backend = %T", ch)
	}

	mr := miniredis.RunT(t)
	cfg = config.Default()
	cfg.Cache.Backend = config.CacheRedis
	cfg.Cache.RedisURL = "redis://" + mr.Addr()
	ch, err = newCache(ctx, cfg)
	if err != nil {
		t.Fatalf("redis backend error: %v", err)
	}
	defer ch.Close()
	if _, ok := ch.(*cache.RedisCache); !ok {
		t.Errorf("redis backend = %T", ch)
	}
}

func TestCacheLocation(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	cfg.Cache.Dir = "/srv/labgraph"
	if got := cacheLocation(cfg); got != "/srv/labgraph" {
		t.Errorf("file location = %q", got)
	}
	cfg.Cache.Backend = config.CacheRedis
	if got := cacheLocation(cfg); !strings.Contains(got, cfg.Cache.RedisURL) || !strings.Contains(got, "labgraph:") {
		t.Errorf("redis location = %q", got)
	}
	cfg.Cache.Backend = config.CacheNone
	if got := cacheLocation(cfg); got != "disabled" {
		t.Errorf("none location = %q", got)
	}
}

func TestQueryOpts(t *testing.T) {
	opts := queryOpts{search: "li", tags: []string{"cathode"}, sort: "name", desc: true, page: 2, format: "table"}
	if err := opts.validate(); err != nil {
		t.Fatalf("validate() error: %v", err)
	}
	q := table.NewQuery(10)
	opts.apply(q)
	if q.Search != "li" || len(q.Tags) != 1 || q.SortKey != "name" || !q.Reversed || q.Page != 2 {
		t.Errorf("apply() = %+v", q)
	}

	for _, bad := range []queryOpts{
		{page: 0, format: "table"},
		{page: 1, pageSize: -1, format: "table"},
		{page: 1, format: "xml"},
	} {
		if err := bad.validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("validate(%+v) = %v, want INVALID_INPUT", bad, err)
		}
	}
}

func TestEntitiesCommandJSON(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--fixture", labFixture, "entities", "material",
		"--tag", "cathode", "--sort", "name", "--format", "json")
	if err != nil {
		t.Fatalf("entities error: %v", err)
	}

	var v struct {
		Rows       []map[string]any `json:"rows"`
		TotalCount int              `json:"total_count"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if v.TotalCount != 2 || v.Rows[0]["name"] != "LiCoO2" {
		t.Errorf("rows = %v", v.Rows)
	}
}

func TestSamplesCommandPlain(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--fixture", labFixture, "samples", "--limit", "2", "--format", "plain")
	if err != nil {
		t.Fatalf("samples error: %v", err)
	}
	if !strings.Contains(out, "NMC811 trial") || strings.Contains(out, "placeholder") {
		t.Errorf("samples output should list the 2 newest samples:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		args []string
		code errors.Code
	}{
		{[]string{"--fixture", labFixture, "entities", "widget"}, errors.ErrCodeInvalidKind},
		{[]string{"--fixture", labFixture, "entities", "material", "--page", "0"}, errors.ErrCodeInvalidInput},
		{[]string{"--fixture", labFixture, "show", "material", "nope"}, errors.ErrCodeNotFound},
		{[]string{"--fixture", labFixture, "graph", "--format", "png"}, errors.ErrCodeInvalidInput},
		{[]string{"--fixture", "missing.json", "samples"}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[2:], " "), func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestShowCommandJSON(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--fixture", labFixture, "show", "material", "m2", "--json")
	if err != nil {
		t.Fatalf("show error: %v", err)
	}
	var e map[string]any
	if err := json.Unmarshal([]byte(out), &e); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if e["_id"] != "m2" {
		t.Errorf("show = %v", e)
	}
}

func TestGraphCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--fixture", labFixture, "graph", "s2", "--format", "dot")
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}
	if !strings.HasPrefix(out, "digraph") || !strings.Contains(out, `"m1"`) {
		t.Errorf("dot output:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "lab.json")
	if _, err := execute(t, "--fixture", labFixture, "graph", "-o", path); err != nil {
		t.Fatalf("graph -o error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var g struct {
		Nodes []any `json:"nodes"`
		Edges []any `json:"edges"`
	}
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("format should follow the .json extension: %v", err)
	}
	if len(g.Nodes) != 8 || len(g.Edges) != 7 {
		t.Errorf("graph file = %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{"out.svg": "svg", "out.DOT": "dot", "g.json": "json", "g.png": "", "g": ""}
	for path, want := range tests {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCacheClearCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	fc.Set(ctx, "a", []byte("1"), 0)
	fc.Set(ctx, "b", []byte("2"), 0)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\ndir = \""+dir+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", cfgPath, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("cache clear should remove entries")
	}
}

func TestKindStyleFollowsGraphPalette(t *testing.T) {
	if got := kindStyle(entity.KindMaterial).GetForeground(); got != lipgloss.Color("#1f77b4") {
		t.Errorf("material foreground = %v, want #1f77b4", got)
	}
	if got := kindStyle(entity.KindActor).GetForeground(); got != StyleTitle.GetForeground() {
		t.Errorf("actor foreground = %v, want title color", got)
	}
}

func TestCachePruneCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	fc.Set(ctx, "stale", []byte("1"), time.Nanosecond)
	fc.Set(ctx, "fresh", []byte("2"), time.Hour)
	time.Sleep(5 * time.Millisecond)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\ndir = \""+dir+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", cfgPath, "cache", "prune"); err != nil {
		t.Fatalf("cache prune error: %v", err)
	}
	if _, ok, _ := fc.Get(ctx, "fresh"); !ok {
		t.Error("cache prune should keep live entries")
	}
	if n, _ := fc.Clear(ctx); n != 1 {
		t.Errorf("%d entries left after prune, want 1", n)
	}
}
