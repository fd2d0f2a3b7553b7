package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-smfplay/control"
	"go-smfplay/midi"
	"go-smfplay/theme"
	"go-smfplay/timeline"
	"go-smfplay/widgets"
)

// refreshRate is how often the position display is redrawn
const refreshRate = 100 * time.Millisecond

// seekStep is how far the arrow keys move the transport
const seekStep = 5 * time.Second

// layoutBounds holds cached layout info
type layoutBounds struct {
	stripTop    int
	stripHeight int
}

type Model struct {
	Session  *control.Session
	Ports    *midi.PortManager
	Theme    *theme.Theme
	PortName string

	cursor   int
	showHelp bool
	status   string // last error or port change
	quitting bool
	width    int
	bounds   *layoutBounds
}

type UpdateMsg struct{}

type PortEventMsg midi.PortEvent

type tickMsg time.Time

func NewModel(session *control.Session, ports *midi.PortManager, th *theme.Theme, portName string) Model {
	return Model{
		Session:  session,
		Ports:    ports,
		Theme:    th,
		PortName: portName,
		width:    80,
		bounds:   &layoutBounds{},
	}
}

func ListenForUpdates(session *control.Session) tea.Cmd {
	return func() tea.Msg {
		<-session.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(ports *midi.PortManager) tea.Cmd {
	if ports == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ports.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(event)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Session),
		ListenForPorts(m.Ports),
		tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if row, ok := m.hitTest(msg.X, msg.Y); ok {
				m.cursor = row
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Session)

	case tickMsg:
		return m, tick()

	case PortEventMsg:
		event := midi.PortEvent(msg)
		m.status = fmt.Sprintf("output %s: %s", event.Type, event.Name)
		if event.Name == m.PortName {
			switch event.Type {
			case midi.PortRemoved:
				m.Session.Stop()
				m.status = fmt.Sprintf("output %s disconnected, playback stopped", event.Name)
			case midi.PortAdded:
				m.status = fmt.Sprintf("output %s reconnected", event.Name)
			}
		}
		return m, ListenForPorts(m.Ports)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Session.Stop()
		return m, tea.Quit

	case " ", "p":
		err = m.Session.TogglePlay()

	case "home", "0":
		err = m.Session.Locate(0)

	case "left", "h":
		err = m.Session.Locate(max(m.Session.Status().Position-seekStep, 0))

	case "right", "l":
		err = m.Session.Locate(m.Session.Status().Position + seekStep)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < timeline.NumChannels-1 {
			m.cursor++
		}

	case "m":
		err = m.Session.ToggleMute(m.cursor)

	case "s":
		err = m.Session.ToggleSolo(m.cursor)

	case "u":
		err = m.Session.Unsolo()

	case "x":
		m.Session.SetSendSysex(!m.Session.SendSysex())

	case "?":
		m.showHelp = !m.showHelp
	}

	m.status = ""
	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

func (m Model) hitTest(x, y int) (int, bool) {
	if y >= m.bounds.stripTop && y < m.bounds.stripTop+m.bounds.stripHeight {
		return y - m.bounds.stripTop, true
	}
	return 0, false
}

var keyHelp = []widgets.KeySection{
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "space / p", Desc: "play / stop"},
		{Key: "0 / home", Desc: "back to start"},
		{Key: "h l ← →", Desc: "seek 5 seconds"},
	}},
	{Title: "Channels", Keys: []widgets.KeyBinding{
		{Key: "j k ↑ ↓", Desc: "select channel"},
		{Key: "m", Desc: "mute / unmute"},
		{Key: "s", Desc: "solo / unsolo"},
		{Key: "u", Desc: "clear solo"},
		{Key: "x", Desc: "sysex on / off"},
	}},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Session.Status()
	th := m.Theme

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	statusStyle := lipgloss.NewStyle().
		Foreground(th.FG()).
		Background(th.Surface()).
		Padding(0, 1)

	// Header with transport status
	playState := string(th.Symbols.Stopped)
	if st.Playing {
		playState = string(th.Symbols.Playing)
	}
	port := m.PortName
	if port == "" {
		port = "no output"
	}
	header := headerStyle.Render(fmt.Sprintf("go-smfplay  %s  %s / %s  %5.1fbpm  sysex:%s  → %s",
		playState, widgets.FormatClock(st.Position), widgets.FormatClock(st.Duration),
		st.BPM, onOff(st.SendSysex), port))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")

	if !st.Loaded {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render("no file loaded"))
		out.WriteString("\n")
		m.bounds.stripHeight = 0
	} else {
		file := fmt.Sprintf("%s  time base %d  %d tracks  %d events",
			filepath.Base(st.Filename), st.TimeBase, st.Tracks, st.Events)
		chs := channelsFrom(m.Session.Channels())

		out.WriteString(dimStyle.Render(file))
		out.WriteString("\n")
		out.WriteString(widgets.RenderProgress(th, st.Position, st.Duration, max(m.width-2, 10)))
		out.WriteString("\n")
		out.WriteString(widgets.RenderActivity(th, chs))
		out.WriteString("\n\n")

		// Compute layout bounds
		m.bounds.stripTop = lipgloss.Height(out.String()) - 1
		m.bounds.stripHeight = len(chs)
		out.WriteString(widgets.RenderChannelStrip(th, chs, m.cursor))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(widgets.RenderKeyHelp(keyHelp))
	} else {
		out.WriteString(dimStyle.Render("space:play  h/l:seek  j/k:channel  m:mute  s:solo  x:sysex  ?:help  q:quit"))
	}

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}

	return out.String()
}

func channelsFrom(chs []control.ChannelStatus) []widgets.Channel {
	out := make([]widgets.Channel, len(chs))
	for i, c := range chs {
		out[i] = widgets.Channel{
			Number:  c.Number,
			Program: c.Program,
			HasData: c.HasData,
			Muted:   c.Muted,
			Soloed:  c.Soloed,
			Audible: c.Audible,
		}
	}
	return out
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
