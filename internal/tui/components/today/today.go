// Package today is the list of the user's habits with today's status.
package today

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitual/internal/models"
)

// EmptyMessage is shown when the user has no habits.
const EmptyMessage = "No habit available for today"

type CompleteHabitMsg struct {
	ID string
}

type DeleteHabitMsg struct {
	ID    string
	Title string
}

type LogoutMsg struct{}

type Item struct {
	Habit     models.Habit
	Completed bool
}

func (i Item) Title() string {
	if i.Completed {
		return "✓ " + i.Habit.Title
	}
	return "○ " + i.Habit.Title
}

func (i Item) Description() string {
	status := "incomplete"
	if i.Completed {
		status = "Completed"
	}
	return fmt.Sprintf("%s · %s · %d day streak · %s", i.Habit.Description, i.Habit.Frequency.Label(), i.Habit.StreakCount, status)
}

func (i Item) FilterValue() string { return i.Habit.Title }

type KeyMap struct {
	Complete key.Binding
	Delete   key.Binding
	Logout   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Today's Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Complete, keys.Delete, keys.Logout}
	}

	return Model{list: l, keys: keys}
}

// SetHabits replaces the items. completed reports today's status per habit.
func (m *Model) SetHabits(habits []models.Habit, completed func(id string) bool) {
	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = Item{Habit: h, Completed: completed(h.ID)}
	}
	m.list.SetItems(items)
}

// Items returns the current rows.
func (m Model) Items() []Item {
	out := make([]Item, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if i, ok := it.(Item); ok {
			out = append(out, i)
		}
	}
	return out
}

// Select moves the cursor to index.
func (m *Model) Select(index int) {
	m.list.Select(index)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Complete):
			if i, ok := m.list.SelectedItem().(Item); ok && !i.Completed {
				return m, func() tea.Msg { return CompleteHabitMsg{ID: i.Habit.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{ID: i.Habit.ID, Title: i.Habit.Title} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			return m, func() tea.Msg { return LogoutMsg{} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  " + EmptyMessage + "\n  Press 'tab' to add one, 'L' to log out."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// ShortHelp lists the actions available on the selected habit.
func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Complete, m.keys.Delete, m.keys.Logout}
}
