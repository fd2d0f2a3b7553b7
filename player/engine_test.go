package player

import (
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-smfplay/song"
	"go-smfplay/timeline"
)

type sent struct {
	offset uint32
	data   string
}

type recordSink struct {
	got []sent
}

func (s *recordSink) Emit(offset uint32, data []byte) {
	s.got = append(s.got, sent{offset, string(data)})
}

func (s *recordSink) take() []sent {
	got := s.got
	s.got = nil
	return got
}

// newRoot builds a one track timeline at 1000 Hz with time base 1, so each
// tick is 500 frames at the default tempo.
func newRoot(t *testing.T, msgs ...[]byte) *timeline.Root {
	t.Helper()
	tr := song.Track{}
	for i := 0; i < len(msgs); i += 2 {
		delta := uint32(msgs[i][0])
		tr.Elements = append(tr.Elements, song.Element{Index: len(tr.Elements), Delta: delta, Message: smf.Message(msgs[i+1])})
	}
	r, err := timeline.NewRoot("test.mid", &song.Tree{TimeBase: 1, Tracks: []song.Track{tr}}, 1000, timeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

var (
	noteA = []byte{0x90, 60, 100} // channel 1, frame 0
	noteB = []byte{0x91, 62, 100} // channel 2, frame 500
	noteC = []byte{0x90, 64, 100} // channel 1, frame 2000
)

func fixture(t *testing.T) *timeline.Root {
	return newRoot(t,
		[]byte{0}, noteA,
		[]byte{1}, noteB,
		[]byte{3}, noteC,
	)
}

func TestProcessOffsets(t *testing.T) {
	e := NewEngine()
	e.SetRoot(fixture(t))
	var sink recordSink

	e.Process(256, &sink)
	if len(sink.take()) != 0 {
		t.Fatal("stopped engine emitted events")
	}
	if e.Position() != 0 {
		t.Fatalf("stopped engine moved to %d", e.Position())
	}

	e.Start()
	var all []sent
	for i := 0; i < 10; i++ {
		e.Process(256, &sink)
		all = append(all, sink.take()...)
	}
	want := []sent{
		{0, string(noteA)},
		{500 - 256, string(noteB)},
		{2000 - 7*256, string(noteC)},
	}
	if len(all) != len(want) {
		t.Fatalf("emitted %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, all[i], want[i])
		}
	}
	if e.Position() != 2560 || !e.Ended() {
		t.Fatalf("position = %d ended = %v", e.Position(), e.Ended())
	}
}

func TestProcessHonoursMuteAndSolo(t *testing.T) {
	r := fixture(t)
	e := NewEngine()
	e.SetRoot(r)
	e.Start()
	var sink recordSink

	if err := r.Mute(1); err != nil {
		t.Fatal(err)
	}
	e.Process(1000, &sink)
	if got := sink.take(); len(got) != 1 || got[0].data != string(noteA) {
		t.Fatalf("muted channel 2 leaked: %v", got)
	}

	e.Locate(0)
	if err := r.Solo(1); err != nil {
		t.Fatal(err)
	}
	e.Process(1000, &sink)
	if got := sink.take(); len(got) != 1 || got[0].data != string(noteB) {
		t.Fatalf("solo on muted channel 2: %v", got)
	}
}

func TestLocateCatchesUp(t *testing.T) {
	e := NewEngine()
	e.SetRoot(fixture(t))
	e.Start()
	var sink recordSink

	// within one second of the node at 500: it is replayed at offset 0
	e.Locate(1500)
	e.Process(256, &sink)
	if got := sink.take(); len(got) != 1 || got[0] != (sent{0, string(noteB)}) {
		t.Fatalf("locate 1500: %v", got)
	}

	// more than a second after it: playback resumes at the next node
	e.Locate(1600)
	e.Process(512, &sink)
	if got := sink.take(); len(got) != 1 || got[0] != (sent{400, string(noteC)}) {
		t.Fatalf("locate 1600: %v", got)
	}

	e.Locate(5000)
	e.Process(512, &sink)
	if got := sink.take(); len(got) != 0 || !e.Ended() {
		t.Fatalf("locate past the end: %v", got)
	}
}

func TestRootSwap(t *testing.T) {
	e := NewEngine()
	e.SetRoot(fixture(t))
	e.Start()
	var sink recordSink
	e.Process(1000, &sink)
	sink.take()

	other := newRoot(t, []byte{0}, []byte{0x95, 70, 1})
	before := e.Resets()
	e.SetRoot(other)
	if e.Resets() == before {
		t.Fatal("root swap should bump the reset counter")
	}
	e.Process(100, &sink)
	if got := sink.take(); len(got) != 1 || got[0].data != string([]byte{0x95, 70, 1}) {
		t.Fatalf("after swap: %v", got)
	}

	e.SetRoot(nil)
	e.Process(100, &sink)
	if len(sink.take()) != 0 || e.Root() != nil {
		t.Fatal("detached engine emitted events")
	}
}

type countSink struct{ n int }

func (s *countSink) Emit(uint32, []byte) { s.n++ }

func TestProcessDoesNotAllocate(t *testing.T) {
	var msgs [][]byte
	for i := 0; i < 200; i++ {
		msgs = append(msgs, []byte{1}, []byte{0x90 | byte(i%16), byte(i % 128), 100})
	}
	e := NewEngine()
	e.SetRoot(newRoot(t, msgs...))
	e.Start()
	sink := &countSink{}

	allocs := testing.AllocsPerRun(50, func() {
		e.Locate(0)
		for i := 0; i < 400; i++ {
			e.Process(256, sink)
		}
	})
	if allocs != 0 {
		t.Fatalf("allocs per run = %v, want 0", allocs)
	}
	if sink.n == 0 {
		t.Fatal("nothing was played")
	}
}

func TestWaitReleased(t *testing.T) {
	r := fixture(t)
	e := NewEngine()
	e.SetRoot(r)
	e.Start()
	e.Process(256, &countSink{})

	e.SetRoot(nil)
	if !e.WaitReleased(r, 0) {
		t.Fatal("root still marked in use after Process returned")
	}
	if !e.WaitReleased(nil, 0) {
		t.Fatal("nil root is always released")
	}
}
