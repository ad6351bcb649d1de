package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/render/tablesink"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/table"
	"github.com/matzehuels/labgraph/pkg/view"
)

// queryOpts holds the table query flags shared by samples and entities.
type queryOpts struct {
	search   string
	tags     []string
	sort     string
	desc     bool
	page     int
	pageSize int
	format   string // table, plain or json
}

func (o *queryOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "free-text filter over every column")
	cmd.Flags().StringSliceVarP(&o.tags, "tag", "t", nil, "only rows carrying all of these tags (repeatable)")
	cmd.Flags().StringVar(&o.sort, "sort", "", "column to sort by (e.g. name, created_at)")
	cmd.Flags().BoolVar(&o.desc, "desc", false, "sort descending")
	cmd.Flags().IntVarP(&o.page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "rows per page (default from config)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "table", "output format: table, plain, json")
}

func (o *queryOpts) validate() error {
	if o.page <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "--page must be positive, got %d", o.page)
	}
	if o.pageSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "--page-size must be positive, got %d", o.pageSize)
	}
	if !slices.Contains([]string{"table", "plain", "json"}, o.format) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %s (must be 'table', 'plain' or 'json')", o.format)
	}
	return nil
}

// apply drives the query through the same callbacks an interactive table
// would fire.
func (o *queryOpts) apply(q *table.Query) {
	if o.search != "" {
		q.OnSearchChange(o.search)
	}
	if len(o.tags) > 0 {
		q.OnTagSelectionChange(o.tags)
	}
	if o.sort != "" {
		q.OnSortChange(o.sort)
		if o.desc {
			q.OnSortChange(o.sort)
		}
	}
	q.OnPageChange(o.page)
}

// withSource loads the config, opens the source and runs fn with both.
func (c *CLI) withSource(ctx context.Context, fn func(context.Context, config.Config, source.Source) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	src, err := c.openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	return fn(ctx, cfg, src)
}

// =============================================================================
// samples / entities
// =============================================================================

func (c *CLI) samplesCommand() *cobra.Command {
	var opts queryOpts
	var limit int

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List sample summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			if limit < 0 {
				return errors.New(errors.ErrCodeInvalidInput, "--limit must not be negative")
			}
			return c.withSource(cmd.Context(), func(ctx context.Context, cfg config.Config, src source.Source) error {
				if !cmd.Flags().Changed("limit") {
					limit = cfg.Source.SampleLimit
				}
				return c.runTable(ctx, cmd.OutOrStdout(), cfg, src, entity.KindSample, limit, &opts)
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "fetch at most this many samples (0 for all)")
	return cmd
}

func (c *CLI) entitiesCommand() *cobra.Command {
	var opts queryOpts

	cmd := &cobra.Command{
		Use:       "entities <kind>",
		Short:     "List an entity collection as a table",
		Long:      "List materials, actions, analyses, measurements, samples or actors with search, tag filters, sorting and paging.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}
			if err := opts.validate(); err != nil {
				return err
			}
			return c.withSource(cmd.Context(), func(ctx context.Context, cfg config.Config, src source.Source) error {
				return c.runTable(ctx, cmd.OutOrStdout(), cfg, src, kind, cfg.Source.SampleLimit, &opts)
			})
		},
	}
	opts.register(cmd)
	return cmd
}

func (c *CLI) runTable(ctx context.Context, w io.Writer, cfg config.Config, src source.Source, kind entity.Kind, limit int, opts *queryOpts) error {
	pageSize := opts.pageSize
	if pageSize == 0 {
		pageSize = cfg.Table.PageSize
	}
	tv := view.NewTableView(src, kind, view.TableOptions{
		PageSize:    pageSize,
		SampleLimit: limit,
		Projector:   projector(cfg),
		Logger:      loggerFromContext(ctx),
	})

	prog := newProgress(loggerFromContext(ctx))
	err := spin(ctx, fmt.Sprintf("Fetching %s...", kind.Collection()), tv.Refresh)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Fetched %d %s", len(tv.Rows()), kind.Collection()))

	tv.Update(opts.apply)
	v := tv.Render()

	switch opts.format {
	case "json":
		return writeIndentedJSON(w, v)
	case "plain":
		fmt.Fprint(w, tablesink.Render(v, tablesink.Options{Cursor: -1, Plain: true}))
	default:
		fmt.Fprint(w, tablesink.Render(v, tablesink.DefaultOptions()))
		if v.PageCount > 1 && v.Page.Page < v.PageCount {
			printNextStep("Next page", fmt.Sprintf("%s %s --page %d", appName, commandFor(kind), v.Page.Page+1))
		}
	}
	return nil
}

func commandFor(k entity.Kind) string {
	if k == entity.KindSample {
		return "samples"
	}
	return "entities " + string(k)
}

func kindNames() []string {
	kinds := entity.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// =============================================================================
// show
// =============================================================================

func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Print one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entity.ParseKind(args[0])
			if err != nil {
				return err
			}
			return c.withSource(cmd.Context(), func(ctx context.Context, _ config.Config, src source.Source) error {
				e, err := src.GetEntity(ctx, kind, args[1])
				if err != nil {
					return err
				}
				if asJSON {
					return writeIndentedJSON(cmd.OutOrStdout(), e)
				}
				printEntity(&e)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw record")
	return cmd
}

func printEntity(e *entity.Entity) {
	fmt.Println(kindStyle(e.Kind()).Render(e.Kind().Title()) + " " + StyleHighlight.Render(e.ID))
	for _, f := range entity.Schema(e.Kind()) {
		switch f.Name {
		case entity.FieldID, entity.FieldUpstream, entity.FieldDownstream:
			continue
		}
		if v := f.Get(e); v != "" {
			printKeyValue(f.Name, v)
		}
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		printKeyValue(k, entity.Canonical(e.Extra[k]))
	}

	for _, dir := range []struct {
		label string
		refs  []entity.Ref
	}{{"upstream", e.Upstream()}, {"downstream", e.Downstream()}} {
		if len(dir.refs) == 0 {
			continue
		}
		parts := make([]string, len(dir.refs))
		for i, r := range dir.refs {
			parts[i] = fmt.Sprintf("%s %s", r.Kind, r.ID)
		}
		printDetail("%s: %s", dir.label, strings.Join(parts, ", "))
	}
}
