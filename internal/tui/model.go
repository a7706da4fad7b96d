// Package tui is the interactive front end: a sign-in area and a tabbed area
// for signed-in users, kept apart by the route guard.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/guard"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/tui/components/streaks"
	"github.com/julianstephens/habitual/internal/tui/components/today"
	"github.com/julianstephens/habitual/internal/validation"
)

// IdentityMsg carries a session change into the program.
type IdentityMsg struct {
	State session.State
}

// ListsChangedMsg reports that habits or completions changed.
type ListsChangedMsg struct{}

type authDoneMsg struct {
	err error
}

type habitCreatedMsg struct {
	habit models.Habit
	err   error
}

type actionDoneMsg struct {
	op  string
	err error
}

type authFormModel struct {
	Email    string
	Password string
	Confirm  string
}

var tabs = []constants.Tab{constants.TabToday, constants.TabStreaks, constants.TabAddHabit}

type Model struct {
	ctx      context.Context
	sessions *session.Manager
	service  *habits.Service

	location guard.Location
	identity models.Identity
	loading  bool

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	form       *huh.Form
	auth       *authFormModel
	signUp     bool
	habitInput *validation.HabitInput
	busy       bool
	rootErr    string

	today         today.Model
	streaks       streaks.Model
	confirmDelete *today.DeleteHabitMsg

	quitting bool
	width    int
	height   int
}

func NewModel(ctx context.Context, sessions *session.Manager, service *habits.Service) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	state := sessions.State()
	m := Model{
		ctx:        ctx,
		sessions:   sessions,
		service:    service,
		location:   guard.SignInScreen,
		identity:   state.Identity,
		loading:    state.Loading,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		auth:       &authFormModel{},
		habitInput: newHabitInput(),
		today:      today.New(0, 0),
		streaks:    streaks.New(0, 0),
	}
	m.navigate(m.location)
	return m
}

func newHabitInput() *validation.HabitInput {
	return &validation.HabitInput{Frequency: models.FrequencyDaily}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.refreshIdentity()}
	if m.form != nil {
		cmds = append(cmds, m.form.Init())
	}
	return tea.Batch(cmds...)
}

// Run starts the program and feeds it session and list changes until the
// user quits or ctx ends.
func Run(ctx context.Context, sessions *session.Manager, service *habits.Service) error {
	p := tea.NewProgram(NewModel(ctx, sessions, service), tea.WithAltScreen(), tea.WithContext(ctx))

	// Observers fire from service goroutines; Send returns once the program
	// has stopped, so late notifications are dropped.
	removeIdentity := sessions.OnChange(func(s session.State) { p.Send(IdentityMsg{State: s}) })
	removeLists := service.OnChange(func() { p.Send(ListsChangedMsg{}) })
	defer func() {
		removeLists()
		removeIdentity()
		service.Stop()
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// navigate moves to to, unless the guard redirects elsewhere. Every change of
// location and every identity change goes through here.
func (m *Model) navigate(to guard.Location) tea.Cmd {
	dest := guard.Resolve(guard.State{
		HasIdentity: !m.identity.IsZero(),
		Location:    to,
		Loading:     m.loading,
	})

	changed := dest != m.location
	m.location = dest
	m.confirmDelete = nil

	switch {
	case dest.Area == constants.AreaAuth:
		if changed || m.form == nil {
			m.rootErr = ""
			return m.resetAuthForm()
		}
	case dest.Tab == constants.TabAddHabit:
		if changed || m.form == nil {
			m.rootErr = ""
			return m.resetHabitForm()
		}
	default:
		m.form = nil
	}
	return nil
}

func (m *Model) resetAuthForm() tea.Cmd {
	m.auth.Password = ""
	m.auth.Confirm = ""
	m.form = newAuthForm(m.auth, m.signUp, m.formWidth())
	return m.form.Init()
}

func (m *Model) resetHabitForm() tea.Cmd {
	m.form = newHabitForm(m.habitInput, m.formWidth())
	return m.form.Init()
}

func (m Model) formWidth() int {
	if m.width == 0 {
		return 60
	}
	return min(m.width-4, 72)
}

func (m Model) currentTab() int {
	for i, t := range tabs {
		if t == m.location.Tab {
			return i
		}
	}
	return 0
}

func (m *Model) syncLists() {
	m.today.SetHabits(m.service.Habits(), m.service.IsCompleted)
	m.streaks.SetHabits(m.service.Streaks())
}

func (m *Model) resize() {
	height := m.height - lipgloss.Height(m.viewTabs()) - 4
	m.today.SetSize(m.width-4, height)
	m.streaks.SetSize(m.width-4, height)
	m.help.Width = m.width
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.ForceQuit}
	switch {
	case m.location.Area == constants.AreaAuth:
		keys = append(keys, m.keys.ToggleMode)
	case m.location.Tab == constants.TabToday:
		keys = append(keys, m.keys.Tab, m.keys.Quit)
		keys = append(keys, m.today.ShortHelp()...)
	case m.location.Tab == constants.TabAddHabit:
		keys = append(keys, m.keys.Back)
	default:
		keys = append(keys, m.keys.Tab, m.keys.ShiftTab, m.keys.Quit)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp(), {m.keys.Help}}
}
