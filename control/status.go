package control

import (
	"fmt"
	"strings"
	"time"

	"go-smfplay/timeline"
)

// Status is a snapshot of the transport and the loaded file.
type Status struct {
	Loaded    bool
	Filename  string
	TimeBase  uint16
	Tracks    int
	Events    int
	Duration  time.Duration
	Position  time.Duration
	Tick      uint32
	BPM       float64
	Playing   bool
	Ended     bool
	Solo      int // zero-based, or timeline.NoSolo
	SendSysex bool
}

// ChannelStatus describes one channel for display.
type ChannelStatus struct {
	Number  int // 1-16
	Program string
	HasData bool
	Muted   bool
	Soloed  bool
	Audible bool
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	r := s.root
	st := Status{
		Playing:   s.engine.Playing(),
		Ended:     s.engine.Ended(),
		Solo:      timeline.NoSolo,
		SendSysex: s.sendSysex,
	}
	s.mu.Unlock()

	if r == nil {
		return st
	}
	frame := s.engine.Position()
	tm := r.Tempo()
	st.Loaded = true
	st.Filename = r.Filename()
	st.TimeBase = r.TimeBase()
	st.Tracks = len(r.TrackNames())
	st.Events = r.EventCount()
	st.Duration = r.Duration()
	st.Position = timeline.FramesToDuration(frame, r.SampleRate())
	st.Tick = tm.TickAt(frame)
	st.BPM = 60000000.0 / float64(tm.TempoAt(st.Tick))
	st.Solo = r.SoloChannel()
	return st
}

// Channels returns the 16 channel descriptors, or nil with no file loaded.
func (s *Session) Channels() []ChannelStatus {
	r := s.Root()
	if r == nil {
		return nil
	}
	solo := r.SoloChannel()
	out := make([]ChannelStatus, timeline.NumChannels)
	for ch := range out {
		c := r.Channel(ch)
		out[ch] = ChannelStatus{
			Number:  c.Number(),
			Program: c.Program(),
			HasData: c.HasData(),
			Muted:   r.ChannelMuted(ch),
			Soloed:  solo == ch,
			Audible: r.ChannelAudible(ch),
		}
	}
	return out
}

func (st Status) String() string {
	if !st.Loaded {
		return "no file loaded"
	}
	state := "stopped"
	switch {
	case st.Playing && st.Ended:
		state = "playing (end)"
	case st.Playing:
		state = "playing"
	}
	solo := "off"
	if st.Solo != timeline.NoSolo {
		solo = fmt.Sprint(st.Solo + 1)
	}
	return fmt.Sprintf("%s\n%s %s / %s  tick %d  %.1f bpm\ntime base %d, %d tracks, %d events, solo %s, sysex %s",
		st.Filename, state, formatClock(st.Position), formatClock(st.Duration),
		st.Tick, st.BPM, st.TimeBase, st.Tracks, st.Events, solo, onOff(st.SendSysex))
}

// FormatChannels renders the channel table of the command line interface.
func FormatChannels(chs []ChannelStatus) string {
	var b strings.Builder
	for _, c := range chs {
		flags := []byte("   ")
		if c.HasData {
			flags[0] = '*'
		}
		if c.Muted {
			flags[1] = 'M'
		}
		if c.Soloed {
			flags[2] = 'S'
		}
		fmt.Fprintf(&b, "%2d %s %s\n", c.Number, flags, c.Program)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatClock(d time.Duration) string {
	d = d.Truncate(time.Millisecond)
	m := d / time.Minute
	sec := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%06.3f", m, sec)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
