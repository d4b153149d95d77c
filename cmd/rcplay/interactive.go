package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/refptr/linmem"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// scrollback is the number of transcript lines kept on screen.
const scrollback = 20

type interactiveModel struct {
	session *session
	out     *bytes.Buffer
	input   textinput.Model
	lines   []string
	history []string
	histIdx int
}

func newInteractiveModel(memCfg *linmem.Config) *interactiveModel {
	out := &bytes.Buffer{}

	ti := textinput.New()
	ti.Placeholder = "make a root 1 2"
	ti.Prompt = promptStyle.Render("> ")
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		session: newSession(context.Background(), out, memCfg),
		out:     out,
		input:   ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.session.Close()
			return m, tea.Quit

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			return m, nil

		case "enter":
			m.execute(m.input.Value())
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) execute(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	m.history = append(m.history, line)
	m.histIdx = len(m.history)
	m.append(promptStyle.Render("> ") + line)

	m.out.Reset()
	err := m.session.Exec(line)
	for _, l := range strings.Split(strings.TrimRight(m.out.String(), "\n"), "\n") {
		if l != "" {
			m.append(resultStyle.Render(l))
		}
	}
	if err != nil {
		m.append(errorStyle.Render(fmt.Sprintf("error: %v", err)))
	}
}

func (m *interactiveModel) append(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > scrollback {
		m.lines = m.lines[len(m.lines)-scrollback:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Refcount Playground"))
	b.WriteString("\n\n")
	for _, l := range m.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • help commands • esc quit"))

	return b.String()
}

func runInteractive(memCfg *linmem.Config) error {
	p := tea.NewProgram(newInteractiveModel(memCfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
