package timeline

import (
	"testing"

	"go-smfplay/song"
)

func TestLookupEntrypointTolerance(t *testing.T) {
	// time base 1 at 1000 Hz: 500 frames per tick
	tr := tree(1, []song.Element{el(0, 0x90, 60, 100), el(10, 0x80, 60, 0)})
	r := build(t, tr, 1000, false)
	first, second := r.TimeAt(0), r.TimeAt(10)
	if second.Frame() != 5000 {
		t.Fatalf("second frame = %d", second.Frame())
	}

	tests := []struct {
		frame uint32
		want  *Time
	}{
		{0, first},
		{999, first},
		{1000, first}, // exactly one second after
		{1001, nil},   // one frame too far
		{4999, nil},
		{5000, second},
		{6000, second},
		{6001, nil}, // past the end
	}
	for _, tt := range tests {
		if got := r.LookupEntrypoint(tt.frame); got != tt.want {
			t.Fatalf("LookupEntrypoint(%d) = %v, want %v", tt.frame, describe(got), describe(tt.want))
		}
	}
}

func describe(t *Time) any {
	if t == nil {
		return nil
	}
	return t.Tick()
}

func TestLookupEntrypointBeforeStart(t *testing.T) {
	tr := tree(1, []song.Element{el(4, 0x90, 60, 100)})
	r := build(t, tr, 1000, false)
	if r.Head().Frame() != 2000 {
		t.Fatalf("head frame = %d", r.Head().Frame())
	}
	if got := r.LookupEntrypoint(1999); got != nil {
		t.Fatalf("lookup before the first node = tick %d", got.Tick())
	}
	if got := r.FirstAfter(1999); got != r.Head() {
		t.Fatal("FirstAfter should return the head")
	}
	if got := r.FirstAfter(2001); got != nil {
		t.Fatal("FirstAfter past the end should be nil")
	}
}

func TestLookupEntrypointEmpty(t *testing.T) {
	r := build(t, tree(96), 44100, false)
	if r.LookupEntrypoint(0) != nil || r.LookupEntrypoint(12345) != nil {
		t.Fatal("empty timeline should have no entrypoints")
	}
}

func TestLookupEntrypointTiesReturnEarliest(t *testing.T) {
	// 1000 us per quarter at 1000 Hz and time base 960: ticks 0, 1 and 2
	// all land on frame 0.
	tr := tree(960,
		[]song.Element{tempoEl(0, 1000)},
		[]song.Element{el(0, 0x90, 60, 1), el(1, 0x90, 61, 1), el(1, 0x90, 62, 1)},
	)
	r := build(t, tr, 1000, false)
	if r.Len() != 3 || r.Tail().Frame() != 0 {
		t.Fatalf("nodes = %d tail frame = %d", r.Len(), r.Tail().Frame())
	}
	if got := r.LookupEntrypoint(10); got != r.Head() {
		t.Fatalf("LookupEntrypoint among ties = %v, want head", describe(got))
	}
}

func TestLookupEntrypointDoesNotAllocate(t *testing.T) {
	var elems []song.Element
	for i := 0; i < 1000; i++ {
		elems = append(elems, el(7, 0x90, 60, 100))
	}
	r := build(t, tree(96, elems), 44100, true)
	ev := r.Head().Next().Event(0)

	allocs := testing.AllocsPerRun(200, func() {
		for f := uint32(0); f < r.LastFrame(); f += 997 {
			_ = r.LookupEntrypoint(f)
		}
		_ = r.Audible(ev)
	})
	if allocs != 0 {
		t.Fatalf("allocs per run = %v, want 0", allocs)
	}
}
