package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.loading {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Checking session...",
		)
	}

	if m.location.Area == constants.AreaAuth {
		return m.viewAuth()
	}

	var content string
	switch {
	case m.confirmDelete != nil:
		content = m.viewConfirmDelete()
	case m.location.Tab == constants.TabToday:
		content = m.today.View()
	case m.location.Tab == constants.TabStreaks:
		content = m.streaks.View()
	case m.location.Tab == constants.TabAddHabit:
		content = m.viewForm()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var rendered []string
	for _, tab := range tabs {
		if m.location.Tab == tab {
			rendered = append(rendered, activeTabStyle.Render(tab.String()))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab.String()))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if m.identity.Email != "" {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, mutedStyle.Render("  "+m.identity.Email))
	}
	return bar
}

func (m Model) viewAuth() string {
	title := "Welcome Back"
	hint := "ctrl+t: don't have an account? Sign up"
	if m.signUp {
		title = "Create Account"
		hint = "ctrl+t: already have an account? Sign in"
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(constants.AppName+" · "+title),
		m.viewForm(),
		mutedStyle.Render(hint),
	)
	return lipgloss.JoinVertical(lipgloss.Left, docStyle.Render(body), m.help.View(m))
}

// viewForm renders the active form with the root error line under it.
func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	parts := []string{m.form.View()}
	if m.busy {
		parts = append(parts, m.spinner.View()+" Working...")
	}
	if m.rootErr != "" {
		parts = append(parts, errorStyle.Render(m.rootErr))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width-4, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q?", m.confirmDelete.Title)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
