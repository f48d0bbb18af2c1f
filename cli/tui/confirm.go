package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap defines key bindings shared by the prompts.
type keyMap struct {
	Yes    key.Binding
	No     key.Binding
	Toggle key.Binding
	Submit key.Binding
	Abort  key.Binding
}

var keys = keyMap{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "no"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("left", "right", "tab", "h", "l"),
		key.WithHelp("←/→", "toggle"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Abort: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// ConfirmModel is a yes/no prompt. Enter accepts the highlighted answer.
type ConfirmModel struct {
	question string
	yes      bool
	done     bool
	aborted  bool
}

// NewConfirmModel creates a confirmation prompt for question with def
// highlighted.
func NewConfirmModel(question string, def bool) ConfirmModel {
	return ConfirmModel{question: question, yes: def}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, keys.Abort):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(km, keys.Yes):
		m.yes, m.done = true, true
		return m, tea.Quit
	case key.Matches(km, keys.No):
		m.yes, m.done = false, true
		return m, tea.Quit
	case key.Matches(km, keys.Toggle):
		m.yes = !m.yes
	case key.Matches(km, keys.Submit):
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.done || m.aborted {
		answer := "no"
		if m.Confirmed() {
			answer = "yes"
		}
		return QuestionStyle.Render(m.question) + " " + answer + "\n"
	}

	yes, no := "Yes", "No"
	if m.yes {
		yes = SelectedStyle.Render(yes)
	} else {
		no = SelectedStyle.Render(no)
	}

	var b strings.Builder
	b.WriteString(QuestionStyle.Render(m.question))
	b.WriteString("  ")
	b.WriteString(yes + " / " + no)
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("y/n, ←/→ to toggle, enter to submit, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Confirmed reports whether the user answered yes.
func (m ConfirmModel) Confirmed() bool {
	return m.done && !m.aborted && m.yes
}

// Aborted reports whether the prompt was cancelled.
func (m ConfirmModel) Aborted() bool {
	return m.aborted
}
