package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-smfplay/control"
	"go-smfplay/midi"
	"go-smfplay/player"
	"go-smfplay/theme"
	"go-smfplay/timeline"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func loadedModel(t *testing.T) Model {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, gomidi.ProgramChange(1, 73))
	tr.Add(0, gomidi.NoteOn(1, 72, 90))
	tr.Add(96, gomidi.NoteOff(1, 72))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "flute.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	session := control.NewSession(player.NewEngine(), 44100)
	if err := session.Load(path); err != nil {
		t.Fatal(err)
	}
	return NewModel(session, nil, theme.New(theme.DefaultPalette()), "Test Port")
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysDriveSession(t *testing.T) {
	m := loadedModel(t)
	root := m.Session.Root()

	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, runes("m"))
	if !root.ChannelMuted(1) {
		t.Fatal("m did not mute the selected channel")
	}
	m = press(m, runes("s"))
	if root.SoloChannel() != 1 {
		t.Fatalf("solo = %d", root.SoloChannel())
	}
	m = press(m, runes("u"), runes("x"))
	if root.SoloChannel() != timeline.NoSolo || root.SendSysex() {
		t.Fatal("u or x had no effect")
	}
	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	if !m.Session.Engine().Playing() {
		t.Fatal("space did not start playback")
	}
	m = press(m, runes("p"))
	if m.Session.Engine().Playing() {
		t.Fatal("p did not stop playback")
	}

	// the cursor stays inside the strip
	for i := 0; i < 20; i++ {
		m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	for i := 0; i < 20; i++ {
		m = press(m, runes("j"))
	}
	if m.cursor != 15 {
		t.Fatalf("cursor = %d", m.cursor)
	}
}

func TestViewShowsChannels(t *testing.T) {
	m := loadedModel(t)
	view := m.View()
	for _, want := range []string{"go-smfplay", "flute.mid", "time base 96", "Flute", "Test Port"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}

	// clicking a strip row selects it
	next, _ := m.Update(tea.MouseMsg{X: 3, Y: m.bounds.stripTop + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := next.(Model).cursor; got != 5 {
		t.Fatalf("cursor after click = %d", got)
	}
}

func TestViewWithoutFile(t *testing.T) {
	session := control.NewSession(player.NewEngine(), 44100)
	m := NewModel(session, nil, theme.New(theme.DefaultPalette()), "")
	view := m.View()
	if !strings.Contains(view, "no file loaded") || !strings.Contains(view, "no output") {
		t.Fatalf("view:\n%s", view)
	}
	m = press(m, runes("m"))
	if m.status != control.ErrNotLoaded.Error() {
		t.Fatalf("status = %q", m.status)
	}
}

func TestPortEvents(t *testing.T) {
	m := loadedModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeySpace})

	next, _ := m.Update(PortEventMsg{Type: midi.PortRemoved, Name: "Test Port"})
	m = next.(Model)
	if m.Session.Engine().Playing() || !strings.Contains(m.status, "disconnected") {
		t.Fatalf("after unplug: playing %v, status %q", m.Session.Engine().Playing(), m.status)
	}
	next, _ = m.Update(PortEventMsg{Type: midi.PortAdded, Name: "Test Port"})
	if got := next.(Model).status; got != "output Test Port reconnected" {
		t.Fatalf("after replug: status %q", got)
	}
}
