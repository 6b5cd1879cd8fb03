package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/store"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Back up every task as JSON or YAML",
		Long: `Write every task, archived ones included, to FILE or stdout. The format
follows the file extension unless --format is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := ""
			if len(args) == 1 {
				if err := errors.ValidatePath(args[0]); err != nil {
					return err
				}
				path = args[0]
			}
			f, err := backupFormat(format, path)
			if err != nil {
				return err
			}

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			var w io.Writer = cmd.OutOrStdout()
			if path != "" {
				out, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer out.Close()
				w = out
			}
			if err := store.Export(ctx, ws.store, w, f, ws.planner.Now()); err != nil {
				return err
			}
			if path != "" {
				printSuccess("Exported tasks")
				printFile(path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or yaml")
	return cmd
}

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Restore tasks from a backup",
		Long: `Restore tasks from a JSON or YAML backup written by 'fractal export'.
Existing tasks with the same id are overwritten. Imported tasks are not
queued for calendar sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := errors.ValidatePath(args[0]); err != nil {
				return err
			}
			f, err := backupFormat(format, args[0])
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer in.Close()

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			n, err := store.Import(ctx, ws.store, in, f)
			if err != nil {
				return err
			}
			printSuccess("Imported %d tasks", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from extension)")
	return cmd
}

func backupFormat(flag, path string) (store.Format, error) {
	if flag != "" {
		return store.ParseFormat(flag)
	}
	return store.FormatFromPath(path), nil
}
