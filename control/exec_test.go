package control

import (
	"errors"
	"strings"
	"testing"

	"go-smfplay/timeline"
)

func TestExecCommands(t *testing.T) {
	s := newSession()
	path := writeSong(t, "song.mid")

	out, err := s.Exec("load " + path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "loaded song.mid (0:02.000)" {
		t.Fatalf("load output = %q", out)
	}
	r := s.Root()

	steps := []struct {
		line  string
		check func() bool
	}{
		{"mute 1", func() bool { return r.ChannelMuted(0) }},
		{"  UNMUTE   1 ", func() bool { return !r.ChannelMuted(0) }},
		{"solo 10", func() bool { return r.SoloChannel() == 9 }},
		{"solo off", func() bool { return r.SoloChannel() == timeline.NoSolo }},
		{"sysex off", func() bool { return !r.SendSysex() }},
		{"sysex on", func() bool { return r.SendSysex() }},
		{"play", func() bool { return s.Engine().Playing() }},
		{"stop", func() bool { return !s.Engine().Playing() }},
		{"locate 1.5", func() bool { return true }},
		{"", func() bool { return true }},
	}
	for _, st := range steps {
		if _, err := s.Exec(st.line); err != nil {
			t.Fatalf("%q: %v", st.line, err)
		}
		if !st.check() {
			t.Fatalf("%q had no effect", st.line)
		}
	}

	out, err = s.Exec("channels")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 16 || lines[0] != " 1 *   Acoustic Grand Piano" || lines[9] != "10 *   Standard Kit" {
		t.Fatalf("channels output:\n%s", out)
	}

	out, _ = s.Exec("status")
	if !strings.HasPrefix(out, path+"\n") {
		t.Fatalf("status output:\n%s", out)
	}

	if _, err := s.Exec("unload"); err != nil || s.Root() != nil {
		t.Fatalf("unload: %v", err)
	}
}

func TestExecErrors(t *testing.T) {
	s := newSession()
	if _, err := s.Exec("load " + writeSong(t, "song.mid")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		line string
		want error
	}{
		{"dance", ErrUnknownCommand},
		{"load", ErrUsage},
		{"mute", ErrUsage},
		{"mute one", ErrUsage},
		{"mute 0", timeline.ErrInvalidChannel},
		{"unmute 17", timeline.ErrInvalidChannel},
		{"solo 17", timeline.ErrInvalidChannel},
		{"sysex maybe", ErrUsage},
		{"locate", ErrUsage},
		{"locate -3", ErrUsage},
	}
	for _, tt := range tests {
		if _, err := s.Exec(tt.line); !errors.Is(err, tt.want) {
			t.Fatalf("%q: err = %v, want %v", tt.line, err, tt.want)
		}
	}

	if _, err := s.Exec("unload"); err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"channels", "mute 1", "play", "unload"} {
		if _, err := s.Exec(line); !errors.Is(err, ErrNotLoaded) {
			t.Fatalf("%q without a file: %v", line, err)
		}
	}
	if out, err := s.Exec("help"); err != nil || !strings.Contains(out, "solo N|off") {
		t.Fatalf("help = %q, %v", out, err)
	}
}
