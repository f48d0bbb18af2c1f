package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputModel prompts for a single line of text, such as a wallet path.
type InputModel struct {
	label   string
	input   textinput.Model
	errMsg  string
	done    bool
	aborted bool
}

// NewInputModel creates a text prompt with an optional placeholder.
func NewInputModel(label, placeholder string) InputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 60
	ti.Focus()
	return InputModel{label: label, input: ti}
}

// Init implements tea.Model.
func (m InputModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Abort):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(km, keys.Submit):
			if m.Value() == "" {
				m.errMsg = "a value is required"
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.errMsg = ""
	return m, cmd
}

// View implements tea.Model.
func (m InputModel) View() string {
	if m.done || m.aborted {
		return QuestionStyle.Render(m.label) + " " + m.Value() + "\n"
	}

	var b strings.Builder
	b.WriteString(QuestionStyle.Render(m.label))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(ErrorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(HelpStyle.Render("enter to submit, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Value returns the trimmed input.
func (m InputModel) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// Submitted reports whether a value was entered and accepted.
func (m InputModel) Submitted() bool {
	return m.done && !m.aborted
}
