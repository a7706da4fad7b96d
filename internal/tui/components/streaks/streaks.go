// Package streaks ranks habits by their current streak.
package streaks

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/models"
)

type Model struct {
	table table.Model
	count int
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height, 3)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("205")).
		Bold(true)
	t.SetStyles(s)
	return Model{table: t}
}

func columns(width int) []table.Column {
	title := max(width-36, 16)
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Habit", Width: title},
		{Title: "Frequency", Width: 10},
		{Title: "Streak", Width: 12},
	}
}

// SetHabits takes habits already ordered by streak.
func (m *Model) SetHabits(habits []models.Habit) {
	rows := make([]table.Row, len(habits))
	for i, h := range habits {
		rows[i] = table.Row{
			strconv.Itoa(i + 1),
			h.Title,
			h.Frequency.Label(),
			strconv.Itoa(h.StreakCount) + " days",
		}
	}
	m.count = len(habits)
	m.table.SetRows(rows)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.count == 0 {
		return "\n  No streaks yet. Complete a habit to start one."
	}
	return m.table.View()
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height, 3))
}
