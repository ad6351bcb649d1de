package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labgraph/internal/server"
	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/render/nodelink"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/view"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string // output file; empty writes to stdout
	format   string // dot, svg or json
	detailed bool   // include kind and tags in node labels
	strict   bool   // fail when the payload had issues
}

// graphFormats maps output formats to their file extensions.
var graphFormats = map[string]string{"dot": ".dot", "svg": ".svg", "json": ".json"}

func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: "svg"}

	cmd := &cobra.Command{
		Use:   "graph [sample-id...]",
		Short: "Render the process graph",
		Long: `Render the process graph as Graphviz DOT, SVG or JSON.

With no arguments the complete graph is rendered. With sample ids only the
members of those samples and their direct neighbours are included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && !cmd.Flags().Changed("format") {
				if f := formatFromPath(opts.output); f != "" {
					opts.format = f
				}
			}
			if _, ok := graphFormats[opts.format]; !ok {
				return errors.New(errors.ErrCodeInvalidInput, "invalid format: %s (must be 'dot', 'svg' or 'json')", opts.format)
			}
			return c.withSource(cmd.Context(), func(ctx context.Context, _ config.Config, src source.Source) error {
				return runGraph(ctx, cmd.OutOrStdout(), src, args, &opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot, json")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show kind and tags in node labels")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail if the graph payload has dangling edges or duplicate ids")
	return cmd
}

func formatFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for f, e := range graphFormats {
		if e == ext {
			return f
		}
	}
	return ""
}

func runGraph(ctx context.Context, w io.Writer, src source.Source, samples []string, opts *graphOpts) error {
	logger := loggerFromContext(ctx)
	gv := view.NewGraphView(src, view.GraphOptions{SampleIDs: samples, Logger: logger})

	prog := newProgress(logger)
	if err := spin(ctx, "Fetching graph...", gv.Refresh); err != nil {
		return err
	}
	m, report := gv.Render(ctx)
	prog.done(fmt.Sprintf("Built graph with %d nodes", m.NodeCount()))

	for _, issue := range report.Issues {
		logger.Warn("graph payload", "issue", issue.Kind, "id", issue.ID, "error", issue.Err)
	}
	if opts.strict && !report.OK() {
		return errors.Wrap(errors.ErrCodeInvalidRecord, report.Err(), "graph payload has %d issues", len(report.Issues))
	}

	data, err := encodeGraph(ctx, m, report, opts)
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered graph")
	fmt.Println(formatGraphStats(m.NodeCount(), m.EdgeCount(), len(report.Issues)))
	printFile(opts.output)
	return nil
}

func encodeGraph(ctx context.Context, m *graph.Model, report graph.Report, opts *graphOpts) ([]byte, error) {
	nl := nodelink.Options{Detailed: opts.detailed}
	switch opts.format {
	case "dot":
		return []byte(nodelink.ToDOT(m, nl)), nil
	case "json":
		var buf strings.Builder
		if err := writeIndentedJSON(&buf, server.EncodeGraph(m, report)); err != nil {
			return nil, err
		}
		return []byte(buf.String()), nil
	}
	svg, err := nodelink.Render(ctx, m, nl)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
	}
	return svg, nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
