package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/pkg/calsync"
	"github.com/matzehuels/fractal/pkg/session"
)

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push pending task changes to the calendar",
		Long: `Push queued task changes (create, update, delete) to the configured
calendar, oldest first. Sync stops at the first failure and leaves the
rest queued; an operation that fails five times is dropped.

The access token comes from FRACTAL_CALENDAR_TOKEN or 'fractal auth token'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			if dryRun {
				return c.printPending(ctx, ws)
			}

			logger := loggerFromContext(ctx)
			token, err := calendarToken(ws.cfg.Sync)
			if err != nil {
				return err
			}
			client := calsync.NewClient(calsync.Config{
				BaseURL:    ws.cfg.Sync.BaseURL,
				CalendarID: ws.cfg.Sync.CalendarID,
				Token:      token,
			})
			proc := calsync.NewProcessor(ws.store, client,
				calsync.WithBatchSize(ws.cfg.Sync.BatchSize),
				calsync.WithClock(c.clock),
				calsync.WithLogger(logger))

			prog := newProgress(logger)
			res, err := proc.Run(ctx)
			prog.done("sync finished", "pushed", res.Pushed, "failed", res.Failed, "dropped", res.Dropped)
			if res.Dropped > 0 {
				printWarning("Dropped %d operations after repeated failures", res.Dropped)
			}
			if err != nil {
				return fmt.Errorf("sync stopped after %d operations: %w", res.Pushed, err)
			}
			if res.Pushed == 0 {
				printInfo("Nothing to sync")
				return nil
			}
			printSuccess("Synced %d changes", res.Pushed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending operations without pushing them")
	return cmd
}

// calendarToken prefers the environment token over the stored session.
func calendarToken(sc config.SyncConfig) (calsync.TokenFunc, error) {
	if sc.Token != "" {
		return calsync.StaticToken(sc.Token), nil
	}
	dir, err := config.SessionDir()
	if err != nil {
		return nil, err
	}
	ts, err := session.NewTokenStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return ts.Token, nil
}

func (c *CLI) printPending(ctx context.Context, ws *workspace) error {
	ops, err := ws.store.PendingOps(ctx, ws.cfg.Sync.BatchSize)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		printInfo("Nothing to sync")
		return nil
	}
	for _, op := range ops {
		line := fmt.Sprintf("%-6s %s  %s", op.Kind, shortID(op.TaskID), op.Task.Title)
		if op.Tries > 0 {
			line += StyleWarning.Render(fmt.Sprintf("  (%d tries: %s)", op.Tries, op.LastError))
		}
		fmt.Println(line)
	}
	printDetail("%d pending", len(ops))
	return nil
}
