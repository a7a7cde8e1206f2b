// Package tui provides the interactive terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/librarian/internal/librarian"
)

// Chatter is the TUI-facing subset of the librarian service.
type Chatter interface {
	Chat(ctx context.Context, message string, history []librarian.Turn) librarian.Result
}

type replyMsg struct {
	result librarian.Result
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	service  Chatter
	input    textinput.Model
	viewport viewport.Model
	history  []librarian.Turn
	lines    []string
	status   string
	waiting  bool
	ready    bool
}

func New(service Chatter) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask for a book recommendation"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		input:    ti,
		viewport: vp,
		status:   "Ready. Ctrl+C to quit.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		vh := msg.Height - ih - ch - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case replyMsg:
		m.waiting = false
		res := msg.result
		m.lines = append(m.lines, assistantStyle.Render("librarian: ")+res.Message, "")
		switch {
		case res.Filtered:
			m.status = "Message was redirected."
		case !res.Success:
			m.status = "Error: " + res.Error
		default:
			m.status = fmt.Sprintf("%d tool calls, %d search hits", len(res.FunctionCalls), len(res.SearchResults))
		}
		if res.Success {
			m.history = append(m.history,
				librarian.Turn{Role: "assistant", Content: res.Message},
			)
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.lines = append(m.lines, userStyle.Render("you: ")+text)
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
			m.waiting = true
			m.status = "Thinking..."

			history := make([]librarian.Turn, len(m.history))
			copy(history, m.history)
			m.history = append(m.history, librarian.Turn{Role: "user", Content: text})

			service := m.service
			return m, func() tea.Msg {
				return replyMsg{result: service.Chat(context.Background(), text, history)}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Smart Librarian")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
