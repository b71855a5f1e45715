// Package tui is a terminal chat client for one session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/render"
	"github.com/lumina-ai/lumina/internal/service"
)

// Chatter is the part of the chat service the terminal client uses
type Chatter interface {
	Chat(ctx context.Context, sessionID, userMessage string) (*service.Reply, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
}

type historyMsg struct {
	messages []domain.Message
	err      error
}

type replyMsg struct {
	html string
	err  error
}

type line struct {
	sender domain.Sender
	text   string
}

// Model is the Bubble Tea model of the chat screen
type Model struct {
	svc       Chatter
	sessionID string
	timeout   time.Duration

	input    textinput.Model
	viewport viewport.Model
	lines    []line
	status   string
	waiting  bool
	ready    bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// New creates the chat screen for sessionID
func New(svc Chatter, sessionID string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()

	return Model{
		svc:       svc,
		sessionID: sessionID,
		timeout:   timeout,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Loading history...",
	}
}

// Init starts the cursor blink and loads earlier messages
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistory())
}

func (m Model) callContext() (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		messages, err := m.svc.History(ctx, m.sessionID)
		return historyMsg{messages: messages, err: err}
	}
}

func (m Model) send(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		reply, err := m.svc.Chat(ctx, m.sessionID, question)
		if err != nil {
			return replyMsg{err: err}
		}
		return replyMsg{html: reply.HTML}
	}
}

// Update handles keys, window resizes and service responses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := boxStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-frame-6)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
			return m, nil
		}
		for _, h := range msg.messages {
			m.lines = append(m.lines, toLine(h.Sender, h.Content))
		}
		m.status = fmt.Sprintf("Session %s", m.sessionID)
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
			return m, nil
		}
		m.lines = append(m.lines, toLine(domain.SenderBot, msg.html))
		m.status = fmt.Sprintf("Session %s", m.sessionID)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.lines = append(m.lines, line{sender: domain.SenderUser, text: question})
			m.status = "Thinking..."
			m.refresh()
			return m, m.send(question)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func toLine(sender domain.Sender, content string) line {
	if sender == domain.SenderBot {
		content = render.PlainText(content)
	}
	return line{sender: sender, text: content}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.lines) == 0 {
		return statusStyle.Render("No messages yet.")
	}
	width := max(10, m.viewport.Width)
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := userStyle.Render("You")
		if l.sender == domain.SenderBot {
			label = botStyle.Render("Lumina")
		}
		b.WriteString(label + "\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(l.text))
	}
	return b.String()
}

// View renders the transcript, the input box and the status line
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return titleStyle.Render("Lumina") + "\n" +
		boxStyle.Render(m.viewport.View()) + "\n" +
		m.input.View() + "\n" +
		statusStyle.Render(m.status)
}

// Run starts the terminal client and blocks until the user quits
func Run(svc Chatter, sessionID string, timeout time.Duration) error {
	_, err := tea.NewProgram(New(svc, sessionID, timeout), tea.WithAltScreen()).Run()
	return err
}
