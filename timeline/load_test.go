package timeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-smfplay/song"
)

func writeSMF(t *testing.T) string {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(60))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		t.Fatal(err)
	}

	var piano smf.Track
	piano.Add(0, midi.ProgramChange(2, 0))
	piano.Add(0, midi.NoteOn(2, 60, 100))
	piano.Add(96, midi.NoteOff(2, 60))
	piano.Close(0)
	if err := s.Add(piano); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "song.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

type recorder struct {
	calls []*Root
}

func (r *recorder) listen(root *Root) {
	r.calls = append(r.calls, root)
}

func TestLoadUnloadNotification(t *testing.T) {
	reg := NewRegistry()
	var rec recorder
	reg.Add(rec.listen)

	root, err := Load(reg, writeSMF(t), 48000)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != root || root == nil {
		t.Fatalf("after load: %d calls", len(rec.calls))
	}

	if root.TimeBase() != 96 {
		t.Fatalf("time base = %d", root.TimeBase())
	}
	if p := root.Channel(2).Program(); p != "Acoustic Grand Piano" {
		t.Fatalf("program = %q", p)
	}
	// one quarter at 60 BPM is one second
	if off := root.TimeAt(96); off == nil || off.Frame() != 48000 {
		t.Fatalf("note off node = %v", describe(off))
	}

	Unload(reg, root)
	if len(rec.calls) != 2 || rec.calls[1] != nil {
		t.Fatalf("after unload: %d calls, last %v", len(rec.calls), rec.calls[len(rec.calls)-1])
	}
	if root.Head() != nil {
		t.Fatal("unloaded root still has nodes")
	}
}

func TestFailedLoadNotifiesNobody(t *testing.T) {
	reg := NewRegistry()
	var rec recorder
	reg.Add(rec.listen)

	_, err := Load(reg, filepath.Join(t.TempDir(), "missing.mid"), 48000)
	if !errors.Is(err, song.ErrNotFound) {
		t.Fatalf("missing file: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.mid")
	if err := os.WriteFile(bad, []byte("MThd garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(reg, bad, 48000)
	if !errors.Is(err, song.ErrMalformed) {
		t.Fatalf("malformed file: %v", err)
	}

	if len(rec.calls) != 0 {
		t.Fatalf("listener called %d times on failed loads", len(rec.calls))
	}
}

func TestRegistryOrderAndRemove(t *testing.T) {
	reg := NewRegistry()
	var order []string
	a := reg.Add(func(*Root) { order = append(order, "a") })
	reg.Add(func(*Root) { order = append(order, "b") })
	// the same function registered twice is called twice
	c := func(*Root) { order = append(order, "c") }
	reg.Add(c)
	reg.Add(c)

	reg.Notify(nil)
	if got := join(order); got != "abcc" {
		t.Fatalf("order = %s", got)
	}

	if !reg.Remove(a) {
		t.Fatal("remove failed")
	}
	if reg.Remove(a) {
		t.Fatal("second remove should report false")
	}
	order = nil
	reg.Notify(nil)
	if got := join(order); got != "bcc" || reg.Len() != 3 {
		t.Fatalf("after remove: order = %s, len = %d", got, reg.Len())
	}
}

func join(s []string) string {
	out := ""
	for _, v := range s {
		out += v
	}
	return out
}

func TestNilRegistry(t *testing.T) {
	root, err := Load(nil, writeSMF(t), 44100)
	if err != nil {
		t.Fatal(err)
	}
	Unload(nil, root)
	Unload(nil, nil)
}
