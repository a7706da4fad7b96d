package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/guard"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/tui/components/today"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if m.form != nil {
			m.form = m.form.WithWidth(m.formWidth())
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case IdentityMsg:
		return m.handleIdentity(msg)

	case ListsChangedMsg:
		m.syncLists()
		return m, nil

	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			fallback := constants.SignInFallbackMessage
			if m.signUp {
				fallback = constants.SignUpFallbackMessage
			}
			m.rootErr = apperrors.Message(msg.err, fallback)
			return m, m.resetAuthForm()
		}
		m.rootErr = ""
		return m, nil

	case habitCreatedMsg:
		m.busy = false
		if msg.err != nil {
			m.rootErr = apperrors.Message(msg.err, constants.CreateFallbackMessage)
			return m, m.resetHabitForm()
		}
		m.rootErr = ""
		m.habitInput = newHabitInput()
		m.syncLists()
		return m, m.navigate(guard.Location{Area: constants.AreaTabs, Tab: constants.TabToday})

	case actionDoneMsg:
		// Remote failures here are logged by the service and otherwise ignored;
		// the lists converge on the next change event.
		if msg.err != nil {
			logger.Debug("Action failed", "op", msg.op, "error", msg.err)
		}
		m.syncLists()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.loading {
		return m, nil
	}
	if m.confirmDelete != nil {
		return m.updateConfirmDelete(msg)
	}
	if m.location.Area == constants.AreaAuth {
		return m.updateAuth(msg)
	}
	return m.updateTabs(msg)
}

func (m Model) handleIdentity(msg IdentityMsg) (tea.Model, tea.Cmd) {
	previous := m.identity
	m.identity = msg.State.Identity
	m.loading = msg.State.Loading

	var cmds []tea.Cmd
	switch {
	case m.identity.IsZero():
		cmds = append(cmds, m.stopService())
	case m.identity.ID != previous.ID:
		cmds = append(cmds, m.startService(!previous.IsZero()))
	}
	cmds = append(cmds, m.navigate(m.location))
	return m, tea.Batch(cmds...)
}

func (m Model) updateAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.busy || m.form == nil {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.ToggleMode) {
		m.signUp = !m.signUp
		m.rootErr = ""
		return m, m.resetAuthForm()
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.submitAuth())
	case huh.StateAborted:
		m.rootErr = ""
		return m, m.resetAuthForm()
	}
	return m, cmd
}

func (m Model) updateTabs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.location.Tab == constants.TabAddHabit {
		return m.updateAddHabit(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			return m, m.navigate(guard.Location{Area: constants.AreaTabs, Tab: tabs[(m.currentTab()+1)%len(tabs)]})
		case key.Matches(msg, m.keys.ShiftTab):
			return m, m.navigate(guard.Location{Area: constants.AreaTabs, Tab: tabs[(m.currentTab()-1+len(tabs))%len(tabs)]})
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	switch msg := msg.(type) {
	case today.CompleteHabitMsg:
		return m, m.complete(msg.ID)
	case today.DeleteHabitMsg:
		m.confirmDelete = &msg
		return m, nil
	case today.LogoutMsg:
		return m, m.logOut()
	}

	var cmd tea.Cmd
	switch m.location.Tab {
	case constants.TabToday:
		m.today, cmd = m.today.Update(msg)
	case constants.TabStreaks:
		m.streaks, cmd = m.streaks.Update(msg)
	}
	return m, cmd
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.busy || m.form == nil {
		return m, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, m.navigate(guard.Location{Area: constants.AreaTabs, Tab: constants.TabToday})
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.createHabit())
	case huh.StateAborted:
		return m, m.navigate(guard.Location{Area: constants.AreaTabs, Tab: constants.TabToday})
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		id := m.confirmDelete.ID
		m.confirmDelete = nil
		return m, m.remove(id)
	case key.Matches(keyMsg, m.keys.Cancel):
		m.confirmDelete = nil
	}
	return m, nil
}

// Remote calls run as commands: their observers send messages back into the
// program, which would block if called from Update.

func (m Model) refreshIdentity() tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		sessions.Refresh(ctx)
		return nil
	}
}

func (m Model) submitAuth() tea.Cmd {
	sessions, ctx, signUp := m.sessions, m.ctx, m.signUp
	email, password := strings.TrimSpace(m.auth.Email), m.auth.Password
	return func() tea.Msg {
		var err error
		if signUp {
			err = sessions.SignUp(ctx, email, password)
		} else {
			err = sessions.SignIn(ctx, email, password)
		}
		return authDoneMsg{err: err}
	}
}

func (m Model) createHabit() tea.Cmd {
	service, ctx, input := m.service, m.ctx, *m.habitInput
	return func() tea.Msg {
		habit, err := service.Create(ctx, input)
		return habitCreatedMsg{habit: habit, err: err}
	}
}

func (m Model) complete(id string) tea.Cmd {
	service, ctx := m.service, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: "complete", err: service.Complete(ctx, id)}
	}
}

func (m Model) remove(id string) tea.Cmd {
	service, ctx := m.service, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: "delete", err: service.Remove(ctx, id)}
	}
}

func (m Model) logOut() tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		sessions.LogOut(ctx)
		return nil
	}
}

// startService (re)binds the lists to the signed-in user.
func (m Model) startService(restart bool) tea.Cmd {
	service, ctx := m.service, m.ctx
	return func() tea.Msg {
		if restart {
			service.Stop()
		}
		return actionDoneMsg{op: "start", err: service.Start(ctx)}
	}
}

func (m Model) stopService() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		service.Stop()
		return actionDoneMsg{op: "stop"}
	}
}
