// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Renders playback status and maps keys to transport commands
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yako-player/yako-go/internal/version"
	"github.com/yako-player/yako-go/pkg/yako"
)

const (
	// SeekStep is the jump for left/right
	SeekStep = 5 * time.Second

	// VolumeStep is the level change for up/down
	VolumeStep = 0.05

	refreshInterval = 250 * time.Millisecond
	boxWidth        = 52
)

// Controller is the player surface the TUI drives. *yako.Player implements it.
type Controller interface {
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(level float64) error
	SetMute(muted bool) error
	Status() yako.PlayerState
}

// Model represents the TUI state
type Model struct {
	player Controller
	name   string

	status  yako.PlayerState
	lastErr error

	remoteAddr string
	sessions   int

	showDebug bool

	// Dimensions
	width  int
	height int
}

// StatusMsg replaces the displayed player state
type StatusMsg struct {
	State yako.PlayerState
}

// RemoteMsg updates the remote-control line
type RemoteMsg struct {
	Addr     string
	Sessions int
}

// ErrorMsg reports a failed command
type ErrorMsg struct {
	Err error
}

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = msg.State
	case RemoteMsg:
		m.remoteAddr = msg.Addr
		m.sessions = msg.Sessions
	case ErrorMsg:
		m.lastErr = msg.Err
	case tickMsg:
		if m.player != nil {
			m.status = m.player.Status()
		}
		return m, tick()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderProgress())
	b.WriteString(m.renderControls())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

// line pads s into one box row
func line(s string) string {
	return fmt.Sprintf("│ %-*s │\n", boxWidth, truncate(s, boxWidth))
}

func (m Model) renderHeader() string {
	title := fmt.Sprintf("─ %s %s ", version.Product, version.Version)
	s := "┌" + title + strings.Repeat("─", max(0, boxWidth+2-len([]rune(title)))) + "┐\n"

	device := "No device"
	if m.status.Device.SampleRate > 0 {
		device = fmt.Sprintf("%dHz %s", m.status.Device.SampleRate, channelName(m.status.Device.Channels))
		if !m.status.Available {
			device += " (unavailable)"
		}
	}
	s += line("Player: " + m.name)
	s += line("Output: " + device)
	return s + "├" + strings.Repeat("─", boxWidth+2) + "┤\n"
}

func (m Model) renderTrack() string {
	if m.status.URI == "" {
		return line("No file open")
	}

	s := line("State:  " + stateLabel(m.status.State))
	title := m.status.Title
	if title == "" {
		title = m.status.URI
	}
	s += line("Track:  " + title)
	if m.status.Artist != "" {
		s += line("Artist: " + m.status.Artist)
	}
	if m.status.Bitrate > 0 {
		s += line(fmt.Sprintf("Rate:   %d kbps", m.status.Bitrate/1000))
	}
	return s
}

func (m Model) renderProgress() string {
	if m.status.URI == "" {
		return ""
	}
	const barWidth = 30
	filled := 0
	if m.status.Duration > 0 {
		filled = int(int64(barWidth) * int64(m.status.Position) / int64(m.status.Duration))
	}
	return line(fmt.Sprintf("%s [%s] %s",
		formatDuration(m.status.Position), renderBar(filled, barWidth), formatDuration(m.status.Duration)))
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.status.Muted {
		muteIcon = " (muted)"
	}
	level := int(m.status.Volume*100 + 0.5)
	s := line(fmt.Sprintf("Volume: [%s] %d%%%s", renderBar(level/10, 10), level, muteIcon))
	if m.remoteAddr != "" {
		s += line(fmt.Sprintf("Remote: %s (%d connected)", m.remoteAddr, m.sessions))
	}
	if m.lastErr != nil {
		s += line("Error:  " + m.lastErr.Error())
	}
	return s
}

func (m Model) renderDebug() string {
	return line("DEBUG:") +
		line(fmt.Sprintf("  eos=%v available=%v", m.status.EndOfStream, m.status.Available)) +
		line(fmt.Sprintf("  position=%v", m.status.Position))
}

func (m Model) renderHelp() string {
	return "├" + strings.Repeat("─", boxWidth+2) + "┤\n" +
		line("space:Play/Pause  s:Stop  ←/→:Seek  ↑/↓:Volume") +
		line("m:Mute  d:Debug  q:Quit") +
		"└" + strings.Repeat("─", boxWidth+2) + "┘\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
		return m, nil
	}

	if m.player == nil {
		return m, nil
	}
	p := m.player

	switch msg.String() {
	case " ", "p":
		if m.status.State == "playing" {
			m.status.State = "paused"
			return m, command(p.Pause)
		}
		m.status.State = "playing"
		return m, command(p.Play)
	case "s":
		return m, command(p.Stop)
	case "left", "right":
		pos := m.status.Position - SeekStep
		if msg.String() == "right" {
			pos = m.status.Position + SeekStep
		}
		pos = max(pos, 0)
		if m.status.Duration > 0 {
			pos = min(pos, m.status.Duration)
		}
		m.status.Position = pos
		return m, command(func() error { return p.Seek(pos) })
	case "up", "down":
		level := m.status.Volume + VolumeStep
		if msg.String() == "down" {
			level = m.status.Volume - VolumeStep
		}
		level = min(max(level, 0), 1)
		m.status.Volume = level
		return m, command(func() error { return p.SetVolume(level) })
	case "m":
		m.status.Muted = !m.status.Muted
		muted := m.status.Muted
		return m, command(func() error { return p.SetMute(muted) })
	}

	return m, nil
}

// command runs fn off the UI loop and reports its error
func command(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

func stateLabel(state string) string {
	switch state {
	case "playing":
		return "▶ Playing"
	case "paused":
		return "⏸ Paused"
	case "ended":
		return "■ Ended"
	}
	return state
}

func renderBar(filled, width int) string {
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	secs := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	}
	return fmt.Sprintf("%dch", channels)
}
