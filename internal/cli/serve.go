package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the circle and its tasks over HTTP",
		Long: `Serve the planner as a JSON API with the rendered circle at
/circle.svg. See the server package documentation for every route.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, func(cfg *config.Config) {
				if addr != "" {
					cfg.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			defer ws.Close()

			runner, err := c.newRunner(ctx, ws.cfg.Cache, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(ws.planner, ws.store, runner, renderOptions(ws.cfg), loggerFromContext(ctx))
			printInfo("Serving %s circle on %s", ws.planner.Variant(), StyleLink.Render(ws.cfg.Server.Addr))
			return srv.ListenAndServe(ctx, ws.cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the artifact cache")
	return cmd
}
