package midi

import (
	"errors"
	"sort"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestMatch(t *testing.T) {
	names := []string{"Midi Through Port-0", "FluidSynth virtual port", "USB MIDI Interface"}
	tests := []struct {
		query string
		want  int
	}{
		{"USB MIDI Interface", 2},
		{"fluidsynth", 1},
		{"through", 0},
		{"1", 1},
		{"2", 2},
	}
	for _, tt := range tests {
		got, err := Match(names, tt.query)
		if err != nil || got != tt.want {
			t.Fatalf("Match(%q) = %d, %v, want %d", tt.query, got, err, tt.want)
		}
	}

	for _, q := range []string{"", "7", "-1", "timidity"} {
		if _, err := Match(names, q); !errors.Is(err, ErrNoPort) {
			t.Fatalf("Match(%q): err = %v, want ErrNoPort", q, err)
		}
	}
}

func TestScanReportsHotPlug(t *testing.T) {
	pm := NewPortManager()
	current := []string{"a", "b"}
	pm.list = func() ([]string, error) { return current, nil }

	pm.scan()
	got := drain(pm)
	if len(got) != 2 || got[0] != (PortEvent{PortAdded, "a"}) || got[1] != (PortEvent{PortAdded, "b"}) {
		t.Fatalf("first scan: %v", got)
	}

	current = []string{"b", "c"}
	pm.scan()
	got = drain(pm)
	if len(got) != 2 || got[0] != (PortEvent{PortAdded, "c"}) || got[1] != (PortEvent{PortRemoved, "a"}) {
		t.Fatalf("second scan: %v", got)
	}

	ports := pm.Ports()
	sort.Strings(ports)
	if len(ports) != 2 || ports[0] != "b" || ports[1] != "c" {
		t.Fatalf("ports = %v", ports)
	}

	// a failed scan changes nothing
	pm.list = func() ([]string, error) { return nil, ErrScanTimeout }
	pm.scan()
	if got := drain(pm); len(got) != 0 || len(pm.Ports()) != 2 {
		t.Fatalf("failed scan emitted %v", got)
	}
}

func drain(pm *PortManager) []PortEvent {
	var out []PortEvent
	for {
		select {
		case ev := <-pm.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPortEventTypeString(t *testing.T) {
	if PortAdded.String() != "added" || PortRemoved.String() != "removed" || PortEventType(9).String() != "unknown" {
		t.Fatal("unexpected names")
	}
}

func TestSenderFollowsReplug(t *testing.T) {
	pm := NewPortManager()
	current := []string{"synth"}
	pm.list = func() ([]string, error) { return current, nil }

	var first, second int
	pm.senders["synth"] = func(gomidi.Message) error { first++; return nil }
	pm.wanted["synth"] = true
	var opened []string
	pm.open = func(name string) (func(gomidi.Message) error, error) {
		opened = append(opened, name)
		return func(gomidi.Message) error { second++; return nil }, nil
	}
	send := pm.sender("synth")
	note := gomidi.NoteOn(0, 60, 100)

	pm.scan()
	if err := send(note); err != nil || first != 1 || len(opened) != 0 {
		t.Fatalf("before unplug: err %v, first %d, opened %v", err, first, opened)
	}

	current = nil
	pm.scan()
	if err := send(note); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("send while unplugged: %v", err)
	}

	current = []string{"synth", "other"}
	pm.scan()
	if len(opened) != 1 || opened[0] != "synth" {
		t.Fatalf("reopened %v", opened)
	}
	if err := send(note); err != nil || second != 1 || first != 1 {
		t.Fatalf("after replug: err %v, first %d, second %d", err, first, second)
	}
	if got := drain(pm); len(got) != 4 {
		t.Fatalf("events = %v", got)
	}
}
