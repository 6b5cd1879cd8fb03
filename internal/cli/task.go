package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

// taskCommand creates the task command with subcommands.
func (c *CLI) taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, list and complete tasks",
		Long: `Manage tasks directly. Task ids may be shortened to any unique prefix.`,
	}

	cmd.AddCommand(c.taskAddCommand())
	cmd.AddCommand(c.taskListCommand())
	cmd.AddCommand(c.taskShowCommand())
	cmd.AddCommand(c.taskDoneCommand())
	cmd.AddCommand(c.taskRemoveCommand())
	return cmd
}

// taskAddOpts holds the flags of "task add".
type taskAddOpts struct {
	sector      string
	description string
	start, end  string
	priority    string
	tags        []string
	important   bool
}

func (o taskAddOpts) draft(title string) (task.Task, error) {
	d := task.Task{
		Title:       title,
		Description: o.description,
		Tags:        o.tags,
		Important:   o.important,
	}
	var err error
	if o.start != "" {
		if d.Start, err = parseTime(o.start); err != nil {
			return task.Task{}, err
		}
	}
	if o.end != "" {
		if d.End, err = parseTime(o.end); err != nil {
			return task.Task{}, err
		}
	}
	if o.priority != "" {
		if d.Priority, err = task.ParsePriority(o.priority); err != nil {
			return task.Task{}, err
		}
	}
	return d, nil
}

func (c *CLI) taskAddCommand() *cobra.Command {
	var opts taskAddOpts

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task to a sector",
		Long: `Add a task to a sector. Without --start the task takes the sector's time
window (a month or quarter for the year variant, a time slot for the day
variant) or a one-hour window starting now.`,
		Example: `  fractal task add --sector middle/3 Renew passport
  fractal task add -s outer/1 --priority high --tag work Plan offsite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := parseAddress(opts.sector)
			if err != nil {
				return err
			}
			draft, err := opts.draft(strings.Join(args, " "))
			if err != nil {
				return err
			}

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			t, err := ws.planner.CreateInSector(ctx, a, draft)
			if err != nil {
				return err
			}
			printSuccess("Added %q to %s", t.Title, t.Key())
			printDetail("id %s", t.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.sector, "sector", "s", "core", "sector ring/index")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "notes")
	cmd.Flags().StringVar(&opts.start, "start", "", "start time (RFC 3339, \"2006-01-02 15:04\" or a date)")
	cmd.Flags().StringVar(&opts.end, "end", "", "end time (default start + 1h)")
	cmd.Flags().StringVarP(&opts.priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&opts.important, "important", false, "mark as important")
	return cmd
}

func (c *CLI) taskListCommand() *cobra.Command {
	var cycle, status string
	var archived bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := store.Filter{IncludeArchived: archived}
			var err error
			if cycle != "" {
				if f.Cycle, err = task.ParseCycle(cycle); err != nil {
					return err
				}
			}
			if status != "" {
				if f.Status, err = task.ParseStatus(status); err != nil {
					return err
				}
			}

			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			tasks, err := ws.store.List(ctx, f)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				printInfo("No tasks")
				return nil
			}
			fmt.Println(taskTable(tasks))
			printDetail("%d tasks", len(tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&cycle, "cycle", "", "daily, monthly or quarterly (or core, middle, outer)")
	cmd.Flags().StringVar(&status, "status", "", "not_started, in_progress, paused, cancelled or done")
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived tasks")
	return cmd
}

func (c *CLI) taskShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			t, err := resolveTask(ctx, ws.store, args[0])
			if err != nil {
				return err
			}
			printTask(t)
			return nil
		},
	}
}

func (c *CLI) taskDoneCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task done (or set another status)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := task.ParseStatus(status)
			if err != nil {
				return err
			}
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			t, err := resolveTask(ctx, ws.store, args[0])
			if err != nil {
				return err
			}
			t, err = ws.store.Update(ctx, t.ID, task.Patch{Status: &st})
			if err != nil {
				return err
			}
			printSuccess("%s is %s", t.Title, renderStatus(t.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(task.StatusDone), "status to set")
	return cmd
}

func (c *CLI) taskRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Archive a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			t, err := resolveTask(ctx, ws.store, args[0])
			if err != nil {
				return err
			}
			if err := ws.store.Delete(ctx, t.ID); err != nil {
				return err
			}
			printSuccess("Archived %s", t.Title)
			return nil
		},
	}
}

// resolveTask finds a task by id or by a unique id prefix.
func resolveTask(ctx context.Context, tasks store.Tasks, ref string) (task.Task, error) {
	t, err := tasks.Get(ctx, ref)
	if err == nil || !errors.Is(err, errors.ErrCodeTaskNotFound) {
		return t, err
	}

	all, err := tasks.List(ctx, store.Filter{IncludeArchived: true})
	if err != nil {
		return task.Task{}, err
	}
	var matches []task.Task
	for _, t := range all {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return task.Task{}, store.ErrNotFound
	case 1:
		return matches[0], nil
	}
	return task.Task{}, errors.New(errors.ErrCodeConflict, "id prefix %q matches %d tasks", ref, len(matches))
}
