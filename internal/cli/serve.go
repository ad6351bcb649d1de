package cli

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labgraph/internal/server"
	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/source"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tables and graphs as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSource(cmd.Context(), func(ctx context.Context, cfg config.Config, src source.Source) error {
				if addr == "" {
					addr = cfg.Server.Addr
				}
				srv := server.New(src, server.Options{
					PageSize:    cfg.Table.PageSize,
					SampleLimit: cfg.Source.SampleLimit,
					Projector:   projector(cfg),
					Logger:      c.Logger,
				})
				printInfo("Serving on %s", StyleHighlight.Render(addr))
				err := srv.ListenAndServe(ctx, addr)
				if stderrors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
