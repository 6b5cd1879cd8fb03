package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the interactive browse command.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse sectors and tick off tasks interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			m := newBrowseModel(ctx, ws.planner, ws.store)
			final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(browseModel); ok && fm.err != nil {
				return fm.err
			}
			return nil
		},
	}
}

// =============================================================================
// browseModel - sector list and sector detail
// =============================================================================

type (
	countsMsg    map[geometry.Address]int
	selectionMsg planner.Selection
	errMsg       struct{ err error }
)

// browseModel is the bubbletea model behind `fractal browse`. It shows every
// sector with its task count; enter opens a sector and space toggles a
// task between done and not started.
type browseModel struct {
	ctx     context.Context
	planner *planner.Planner
	tasks   store.Tasks

	sectors []geometry.Address
	counts  map[geometry.Address]int
	cursor  int
	offset  int
	height  int

	open       *planner.Selection
	taskCursor int

	err error
}

func newBrowseModel(ctx context.Context, p *planner.Planner, tasks store.Tasks) browseModel {
	return browseModel{
		ctx:     ctx,
		planner: p,
		tasks:   tasks,
		sectors: p.Geometry().Addresses(),
		counts:  map[geometry.Address]int{},
		height:  15,
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.loadCounts
}

func (m browseModel) loadCounts() tea.Msg {
	counts, err := m.planner.Counts(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return countsMsg(counts)
}

func (m browseModel) loadSelection(a geometry.Address) tea.Cmd {
	return func() tea.Msg {
		sel, err := m.planner.SelectAddress(m.ctx, a)
		if err != nil {
			return errMsg{err}
		}
		return selectionMsg(sel)
	}
}

// toggle flips t between done and not started, then reloads the view.
func (m browseModel) toggle(t task.Task) tea.Cmd {
	a := m.open.Address
	return func() tea.Msg {
		next := task.StatusDone
		if t.Status == task.StatusDone {
			next = task.StatusNotStarted
		}
		if _, err := m.tasks.Update(m.ctx, t.ID, task.Patch{Status: &next}); err != nil {
			return errMsg{err}
		}
		return m.loadSelection(a)()
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case countsMsg:
		m.counts = msg
	case selectionMsg:
		sel := planner.Selection(msg)
		m.open = &sel
		if m.taskCursor >= len(sel.Tasks) {
			m.taskCursor = max(len(sel.Tasks)-1, 0)
		}
	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
	case tea.KeyMsg:
		if m.open != nil {
			return m.updateSector(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		}
	case "down", "j":
		if m.cursor < len(m.sectors)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	case "enter":
		m.taskCursor = 0
		return m, m.loadSelection(m.sectors[m.cursor])
	}
	return m, nil
}

func (m browseModel) updateSector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace", "left", "h":
		m.open = nil
		return m, m.loadCounts
	case "up", "k":
		if m.taskCursor > 0 {
			m.taskCursor--
		}
	case "down", "j":
		if m.taskCursor < len(m.open.Tasks)-1 {
			m.taskCursor++
		}
	case " ", "x":
		if len(m.open.Tasks) > 0 {
			return m, m.toggle(m.open.Tasks[m.taskCursor])
		}
	}
	return m, nil
}

func (m browseModel) View() string {
	if m.open != nil {
		return m.sectorView()
	}
	return m.listView()
}

func (m browseModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Fractal · %s", m.planner.Variant())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.sectors))
	v := m.planner.Variant()

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		a := m.sectors[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		count := ""
		if n := m.counts[a]; n > 0 {
			count = fmt.Sprintf("%d", n)
		}
		rows = append(rows, []string{cursor, a.String(), planner.Label(v, a), count})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Sector", "Label", "Tasks").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			switch {
			case idx == m.cursor:
				return listSelectedStyle
			case m.counts[m.sectors[idx]] > 0:
				return listNormalStyle
			}
			return listDimStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.sectors))))
	return b.String()
}

func (m browseModel) sectorView() string {
	var b strings.Builder
	sel := m.open

	title := sel.Address.String()
	if sel.Label != "" {
		title += " · " + sel.Label
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle done  esc back  q quit"))
	b.WriteString("\n\n")

	if len(sel.Tasks) == 0 {
		b.WriteString(listDimStyle.Render("  no tasks"))
		b.WriteString("\n")
		return b.String()
	}
	for i, t := range sel.Tasks {
		cursor := "  "
		if i == m.taskCursor {
			cursor = "> "
		}
		check := "[ ]"
		if t.Status == task.StatusDone {
			check = StyleSuccess.Render("[" + iconSuccess + "]")
		}
		line := fmt.Sprintf("%s%s %s", cursor, check, t.Title)
		if i == m.taskCursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("  " + listDimStyle.Render(string(t.Priority)))
		b.WriteString("\n")
	}
	return b.String()
}
