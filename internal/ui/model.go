// ABOUTME: Bubbletea model for the silence player status view
// ABOUTME: Shows the negotiated stream, loop state and counters, recent log lines
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gwwtests/play-silence/internal/version"
	"github.com/gwwtests/play-silence/pkg/audio"
)

// maxLogLines is how many recent log lines the view keeps
const maxLogLines = 8

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#68FF6B")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BFFB8")).Italic(true)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg time.Time

// Model represents the TUI state
type Model struct {
	// Stream
	device     string
	backend    string
	sampleRate int
	channels   int
	bitDepth   int

	// Loop
	state   string
	started time.Time
	uptime  time.Duration

	// Stats
	frames           int64
	writes           int64
	partialWrites    int64
	underruns        int64
	recoveries       int64
	failedRecoveries int64

	logs      []string
	showDebug bool
	stopping  bool
	done      bool
	err       string

	onStop func()

	// Dimensions
	width  int
	height int
}

// NewModel creates the model. onStop is called when the user asks to quit.
func NewModel(onStop func()) Model {
	return Model{
		state:  "opening",
		onStop: onStop,
	}
}

// Init starts the uptime ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if !m.started.IsZero() && !m.done {
			m.uptime = time.Time(msg).Sub(m.started).Truncate(time.Second)
		}
		return m, tick()
	case StatusMsg:
		m.applyStatus(msg)
	case LogMsg:
		m.appendLog(string(msg))
	case DoneMsg:
		m.done = true
		if msg.Err != nil {
			m.err = msg.Err.Error()
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(version.Banner()))
	b.WriteString("\n\n")
	b.WriteString(m.renderStream())
	b.WriteString("\n")
	b.WriteString(m.renderState())
	b.WriteString("\n")
	b.WriteString(m.renderStats())

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return frameStyle.Render(b.String())
}

func (m Model) renderStream() string {
	if m.device == "" {
		return labelStyle.Render("Device: ") + "(opening)"
	}
	format := audio.Format{SampleRate: m.sampleRate, Channels: m.channels, BitDepth: m.bitDepth}
	return fmt.Sprintf("%s%s (%s)\n%s%s",
		labelStyle.Render("Device: "), m.device, m.backend,
		labelStyle.Render("Format: "), format)
}

func (m Model) renderState() string {
	var state string
	switch m.state {
	case "writing":
		state = okStyle.Render("Playing silence")
	case "recovering":
		state = warnStyle.Render("Recovering from underrun")
	case "aborted":
		state = errorStyle.Render("Aborted")
	case "stopped":
		state = "Stopped"
	default:
		state = m.state
	}
	if m.stopping && !m.done {
		state += labelStyle.Render(" (stopping...)")
	}

	s := labelStyle.Render("State:  ") + state
	if m.uptime > 0 {
		s += labelStyle.Render("  Uptime: ") + m.uptime.String()
	}
	if m.err != "" {
		s += "\n" + errorStyle.Render(truncate(m.err, 70))
	}
	return s
}

func (m Model) renderStats() string {
	return fmt.Sprintf("%s%d  %s%d  %s%d\n%s%d  %s%d  %s%d",
		labelStyle.Render("Frames: "), m.frames,
		labelStyle.Render("Writes: "), m.writes,
		labelStyle.Render("Partial: "), m.partialWrites,
		labelStyle.Render("Underruns: "), m.underruns,
		labelStyle.Render("Recovered: "), m.recoveries,
		labelStyle.Render("Failed: "), m.failedRecoveries)
}

func (m Model) renderLogs() string {
	if len(m.logs) == 0 {
		return logStyle.Render("(no log lines)")
	}
	lines := make([]string, len(m.logs))
	for i, l := range m.logs {
		lines[i] = logStyle.Render(truncate(l, 70))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	return footerStyle.Render("d:Logs  q:Quit")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if !m.stopping {
			m.stopping = true
			if m.onStop != nil {
				m.onStop()
			}
		}
		if m.done {
			return m, tea.Quit
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Device != "" {
		m.device = msg.Device
		m.backend = msg.Backend
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.State != "" {
		m.state = msg.State
		if m.started.IsZero() && msg.State == "writing" {
			m.started = time.Now()
		}
	}
	if msg.Writes != 0 {
		m.frames = msg.Frames
		m.writes = msg.Writes
		m.partialWrites = msg.PartialWrites
		m.underruns = msg.Underruns
		m.recoveries = msg.Recoveries
		m.failedRecoveries = msg.FailedRecoveries
	}
}

func (m *Model) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Device     string
	Backend    string
	SampleRate int
	Channels   int
	BitDepth   int

	State string

	Frames           int64
	Writes           int64
	PartialWrites    int64
	Underruns        int64
	Recoveries       int64
	FailedRecoveries int64
}

// LogMsg carries one log line into the view
type LogMsg string

// DoneMsg reports that playback has ended and closes the view
type DoneMsg struct {
	Err error
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
