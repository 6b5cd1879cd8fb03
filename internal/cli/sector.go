package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/planner"
)

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var screen string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify X Y",
		Short: "Show which sector a point falls in",
		Long: `Classify hit-tests a point given in view-box coordinates (the circle's
center is at width/2, height/2). With --screen the point is measured in a
box of that size, e.g. a browser element the SVG was scaled into.`,
		Example: `  fractal classify 300 200
  fractal classify 610 380 --screen 800x800 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := parseXY(args[0], args[1])
			if err != nil {
				return err
			}

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			if screen != "" {
				if p, err = toView(ws.planner.Geometry(), p, screen); err != nil {
					return err
				}
			}

			sel, ok, err := ws.planner.Select(ctx, p.X, p.Y)
			if err != nil {
				return err
			}
			if asJSON {
				return writeClassifyJSON(cmd.OutOrStdout(), p, sel, ok)
			}
			if !ok {
				printInfo("(%g, %g) is outside the circle", p.X, p.Y)
				return nil
			}
			printSelection(sel)
			return nil
		},
	}

	cmd.Flags().StringVar(&screen, "screen", "", "on-screen box size WIDTHxHEIGHT the point is measured in")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// dropCommand creates the drop command.
func (c *CLI) dropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop X Y NOTE...",
		Short: "Create a task from a note dropped at a point",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := parseXY(args[0], args[1])
			if err != nil {
				return err
			}

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			t, ok, err := ws.planner.Drop(ctx, p.X, p.Y, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if !ok {
				printInfo("Nothing dropped")
				printDetail("the point is outside the circle or the note is blank")
				return nil
			}
			printSuccess("Added %q to %s", t.Title, t.Key())
			printDetail("id %s", t.ID)
			return nil
		},
	}
}

// sectorCommand creates the sector command with subcommands.
func (c *CLI) sectorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sector",
		Short: "Inspect or clear one sector",
		Long: `Sectors are written ring/index: core, middle/0..N-1, outer/0..3.

The middle ring has 16 sectors for the day and plain variants and 12
(March..February) for the year variant.`,
	}

	cmd.AddCommand(c.sectorListCommand())
	cmd.AddCommand(c.sectorClearCommand())
	cmd.AddCommand(c.sectorsCommand())
	return cmd
}

func (c *CLI) sectorListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list SECTOR",
		Short: "List the tasks of a sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			sel, err := ws.planner.SelectAddress(ctx, a)
			if err != nil {
				return err
			}
			printSelection(sel)
			return nil
		},
	}
}

func (c *CLI) sectorClearCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "clear [SECTOR]",
		Short: "Archive every task of a sector",
		Example: `  fractal sector clear middle/4
  fractal sector clear --at 300,200`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if (len(args) == 1) == (at != "") {
				return errors.New(errors.ErrCodeInvalidArgument, "give either a sector or --at x,y")
			}
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			n, err := c.clearSector(ctx, ws.planner, args, at)
			if err != nil {
				return err
			}
			printSuccess("Archived %d tasks", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "clear the sector under the view-box point x,y")
	return cmd
}

func (c *CLI) clearSector(ctx context.Context, p *planner.Planner, args []string, at string) (int, error) {
	if at == "" {
		a, err := parseAddress(args[0])
		if err != nil {
			return 0, err
		}
		return p.ClearAddress(ctx, a)
	}
	pt, err := parsePoint(at)
	if err != nil {
		return 0, err
	}
	n, ok, err := p.ClearSector(ctx, pt.X, pt.Y)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New(errors.ErrCodeOutOfRange, "(%g, %g) is outside the circle", pt.X, pt.Y)
	}
	return n, nil
}

// sectorsCommand lists every sector with its label and task count.
func (c *CLI) sectorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List every sector with its label and task count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			counts, err := ws.planner.Counts(ctx)
			if err != nil {
				return err
			}
			v := ws.planner.Variant()
			for _, a := range ws.planner.Geometry().Addresses() {
				n := ""
				if counts[a] > 0 {
					n = StyleNumber.Render(strconv.Itoa(counts[a]))
				}
				fmt.Printf("%-10s %-16s %s\n", a, StyleDim.Render(planner.Label(v, a)), n)
			}
			return nil
		},
	}
}

// printSelection prints a sector and its tasks.
func printSelection(sel planner.Selection) {
	title := sel.Address.String()
	if sel.Label != "" {
		title += "  " + sel.Label
	}
	fmt.Println(StyleTitle.Render(title))
	printKeyValue("Key", sel.Key.String())
	printKeyValue("Quarter", fmt.Sprintf("Q%d", sel.Quarter+1))
	if sel.Window != nil {
		printKeyValue("Window", fmt.Sprintf("%s %s %s",
			sel.Window.Start.Local().Format("Jan 2 15:04"), iconArrow,
			sel.Window.End.Local().Format("Jan 2 15:04")))
	}
	printNewline()
	if len(sel.Tasks) == 0 {
		printDetail("no tasks")
		return
	}
	fmt.Println(taskTable(sel.Tasks))
}

type classifyJSON struct {
	Hit       bool               `json:"hit"`
	Point     geometry.Point     `json:"point"`
	Selection *planner.Selection `json:"selection,omitempty"`
}

func writeClassifyJSON(w io.Writer, p geometry.Point, sel planner.Selection, ok bool) error {
	out := classifyJSON{Hit: ok, Point: p}
	if ok {
		out.Selection = &sel
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseXY(xs, ys string) (geometry.Point, error) {
	return parsePoint(xs + "," + ys)
}

// toView maps a point measured in an on-screen box onto the view box.
func toView(g geometry.Geometry, p geometry.Point, screen string) (geometry.Point, error) {
	sw, sh, err := parseScreen(screen)
	if err != nil {
		return geometry.Point{}, err
	}
	c := g.Center()
	return geometry.Viewport{ViewWidth: 2 * c.X, ViewHeight: 2 * c.Y}.ToView(p.X, p.Y, sw, sh)
}
