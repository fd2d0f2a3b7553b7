package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go-smfplay/theme"
)

// Channel is what the channel strip shows for one MIDI channel
type Channel struct {
	Number  int
	Program string
	HasData bool
	Muted   bool
	Soloed  bool
	Audible bool
}

// programWidth is the column width of the program name
const programWidth = 24

// RenderChannelRow renders one line of the channel strip:
// cursor, number, data marker, mute and solo flags, program name.
func RenderChannelRow(th *theme.Theme, ch Channel, selected bool) string {
	sym := th.Symbols
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	fg := lipgloss.NewStyle().Foreground(th.FG())

	cursor := " "
	if selected {
		cursor = lipgloss.NewStyle().Foreground(th.Cursor()).Render(string(sym.Cursor))
	}

	data := dim.Render(string(sym.NoData))
	if ch.HasData {
		data = lipgloss.NewStyle().Foreground(th.Accent()).Render(string(sym.HasData))
	}

	mute := " "
	if ch.Muted {
		mute = lipgloss.NewStyle().Foreground(th.Warning()).Render(string(sym.Muted))
	}
	solo := " "
	if ch.Soloed {
		solo = lipgloss.NewStyle().Foreground(th.Success()).Render(string(sym.Soloed))
	}

	name := ch.Program
	if name == "" {
		name = "-"
	}
	if len(name) > programWidth {
		name = name[:programWidth]
	}
	style := fg
	if !ch.Audible || !ch.HasData {
		style = dim
	}

	return fmt.Sprintf("%s %2d %s %s%s %s", cursor, ch.Number, data, mute, solo, style.Render(name))
}

// RenderChannelStrip renders all rows, marking the selected one
func RenderChannelStrip(th *theme.Theme, chs []Channel, selected int) string {
	lines := make([]string, len(chs))
	for i, ch := range chs {
		lines[i] = RenderChannelRow(th, ch, i == selected)
	}
	return strings.Join(lines, "\n")
}

// RenderActivity renders one pad per channel: bright when audible,
// dim when silenced, surface colored when the channel is empty.
func RenderActivity(th *theme.Theme, chs []Channel) string {
	colors := make([][3]uint8, len(chs))
	for i, ch := range chs {
		switch {
		case !ch.HasData:
			colors[i] = th.RGB(theme.RoleSurface)
		case ch.Audible:
			colors[i] = th.RGB(theme.RoleSuccess)
		default:
			colors[i] = th.RGB(theme.RoleMuted)
		}
	}
	return RenderPadRow(colors, th.Symbols.Solid)
}

// RenderProgress renders a position bar of the given width
func RenderProgress(th *theme.Theme, pos, total time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = int(int64(width) * int64(pos) / int64(total))
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	done := lipgloss.NewStyle().Foreground(th.Accent()).Render(strings.Repeat("━", filled))
	rest := lipgloss.NewStyle().Foreground(th.Muted()).Render(strings.Repeat("─", width-filled))
	return done + rest
}

// FormatClock formats d as m:ss.t
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(100 * time.Millisecond)
	m := d / time.Minute
	s := d % time.Minute
	return fmt.Sprintf("%d:%02d.%d", m, s/time.Second, (s%time.Second)/(100*time.Millisecond))
}
