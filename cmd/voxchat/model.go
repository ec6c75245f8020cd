package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	session "github.com/voxloop/vox-core/core"
)

type stateMsg session.State

type conversationMsg []session.ConversationEntry

type errorMsg string

// levelTickMsg drives the input level meter while recording.
type levelTickMsg time.Time

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	meterStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	badgeStyles = map[session.State]lipgloss.Style{
		session.StateIdle:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session.StateRecording:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		session.StateProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		session.StateSpeaking:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		session.StateError:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

type model struct {
	orchestrator *session.Orchestrator

	transcript viewport.Model
	input      textinput.Model

	entries      []session.ConversationEntry
	state        session.State
	errorMessage string
	inputLevel   float64

	width  int
	height int
	ready  bool
}

func newModel(orchestrator *session.Orchestrator) model {
	input := textinput.New()
	input.Placeholder = "Type a message, or press ctrl+r to talk"
	input.Focus()

	return model{
		orchestrator: orchestrator,
		input:        input,
		state:        session.StateIdle,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func levelTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return levelTickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			if m.state == session.StateRecording {
				m.orchestrator.EndRecording()
			} else {
				m.orchestrator.BeginRecording()
			}
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.orchestrator.SubmitText(text)
				m.input.Reset()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case stateMsg:
		m.state = session.State(msg)
		if m.state != session.StateError {
			m.errorMessage = ""
		}
		if m.state == session.StateRecording {
			cmds = append(cmds, levelTick())
		}

	case conversationMsg:
		m.entries = msg
		m.refreshTranscript()

	case errorMsg:
		m.errorMessage = string(msg)

	case levelTickMsg:
		if m.state == session.StateRecording {
			m.inputLevel = m.orchestrator.InputLevel()
			cmds = append(cmds, levelTick())
		} else {
			m.inputLevel = 0
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) resize() {
	transcriptHeight := m.height - 6
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}

	if !m.ready {
		m.transcript = viewport.New(m.width, transcriptHeight)
		m.ready = true
	} else {
		m.transcript.Width = m.width
		m.transcript.Height = transcriptHeight
	}

	m.input.Width = m.width - 4
	m.refreshTranscript()
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}

	wrapWidth := m.width - 2
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	var lines []string
	for _, entry := range m.entries {
		lines = append(lines, renderEntry(entry, wrapWidth), "")
	}

	m.transcript.SetContent(strings.Join(lines, "\n"))
	m.transcript.GotoBottom()
}

func renderEntry(entry session.ConversationEntry, width int) string {
	label := userStyle.Render("you")
	if entry.Sender == session.SenderAssistant {
		label = assistantStyle.Render("vox")
	}

	body := wordwrap.String(entry.Content, width)
	switch entry.Status {
	case session.StatusSending:
		body = pendingStyle.Render(body + " …")
	case session.StatusError:
		body = errorStyle.Render(body + "  ✗ " + entry.ErrorDetail)
	}

	timestamp := helpStyle.Render(entry.Timestamp.Format("15:04:05"))
	return fmt.Sprintf("%s %s\n%s", label, timestamp, body)
}

func (m model) View() string {
	if !m.ready {
		return "starting…"
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("voxchat"),
		"  ",
		m.statusBadge(),
	)

	footer := helpStyle.Render("ctrl+r talk  ·  enter send  ·  esc quit")

	return strings.Join([]string{
		header,
		m.transcript.View(),
		m.input.View(),
		footer,
	}, "\n")
}

func (m model) statusBadge() string {
	style, ok := badgeStyles[m.state]
	if !ok {
		style = badgeStyles[session.StateIdle]
	}

	switch m.state {
	case session.StateRecording:
		return style.Render("● recording") + " " + m.levelMeter()
	case session.StateProcessing:
		return style.Render("◌ thinking")
	case session.StateSpeaking:
		return style.Render("▶ speaking")
	case session.StateError:
		return style.Render("✗ " + m.errorMessage)
	}
	return style.Render("idle")
}

func (m model) levelMeter() string {
	const cells = 12

	filled := int(m.inputLevel * cells)
	if filled > cells {
		filled = cells
	}

	return meterStyle.Render(strings.Repeat("█", filled) + strings.Repeat("░", cells-filled))
}
