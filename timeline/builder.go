package timeline

import (
	"fmt"
	"math"

	"go-smfplay/debug"
	"go-smfplay/song"
)

// builder merges the tracks of a parse tree into the Root's arena. It runs
// once per load and may allocate freely.
type builder struct {
	root    *Root
	markers bool

	// note-ons still waiting for their note-off, keyed by channel<<7 | key
	open map[uint16][]EventRef
}

func newBuilder(r *Root, opts Options) *builder {
	return &builder{
		root:    r,
		markers: opts.EntrypointMarkers,
		open:    make(map[uint16][]EventRef),
	}
}

// build performs a chronological k-way merge over all tracks. At equal
// ticks the lower track index wins, and within a track file order is kept,
// so events at one tick end up in track encounter order.
func (b *builder) build(tree *song.Tree) error {
	r := b.root
	r.trackNames = make([]string, len(tree.Tracks))
	for i, tr := range tree.Tracks {
		r.trackNames[i] = tr.Name
	}

	// pos is the index of the next element of each track, at the absolute
	// tick of that element
	pos := make([]int, len(tree.Tracks))
	at := make([]uint64, len(tree.Tracks))
	for i, tr := range tree.Tracks {
		if len(tr.Elements) > 0 {
			at[i] = uint64(tr.Elements[0].Delta)
		}
	}

	for {
		next := -1
		for i, tr := range tree.Tracks {
			if pos[i] >= len(tr.Elements) {
				continue
			}
			if next < 0 || at[i] < at[next] {
				next = i
			}
		}
		if next < 0 {
			break
		}

		if at[next] > math.MaxUint32 {
			return fmt.Errorf("%w: track %d runs past tick %d", song.ErrMalformed, next, uint32(math.MaxUint32))
		}
		tick := uint32(at[next])
		elem := &tree.Tracks[next].Elements[pos[next]]
		if err := b.add(tick, elem); err != nil {
			return err
		}

		pos[next]++
		if p := pos[next]; p < len(tree.Tracks[next].Elements) {
			at[next] += uint64(tree.Tracks[next].Elements[p].Delta)
		}
	}

	b.finish()
	debug.Log("timeline", "built %s: %d nodes, %d events, %d tempo segments, last frame %d",
		r.filename, len(r.times), r.events, r.tempo.Changes(), r.lastFrame)
	return nil
}

func (b *builder) add(tick uint32, elem *song.Element) error {
	msg := elem.Message
	if len(msg) == 0 {
		return nil
	}

	if song.IsMeta(msg) {
		if mpq, ok := song.Tempo(msg); ok {
			if !b.root.tempo.SetTempo(tick, mpq) {
				debug.Log("timeline", "ignoring tempo %d at tick %d", mpq, tick)
			}
		}
		return nil
	}
	if msg[0] < 0x80 {
		return fmt.Errorf("%w: track %d element %d has no status byte", song.ErrMalformed, elem.Track, elem.Index)
	}

	t := b.timeFor(tick)
	ev := Event{
		element: elem.Ref(),
		data:    append([]byte(nil), msg...),
		related: noEvent,
	}
	ref := EventRef{Time: t.index, Index: int32(len(t.events))}
	t.events = append(t.events, ev)
	b.root.events++

	e := &t.events[ref.Index]
	if ch := e.Channel(); ch >= 0 {
		c := &b.root.channels[ch]
		c.hasData = true
		if e.Status() == StatusProgramChange && e.Len() > 1 {
			c.program = ProgramName(ch, e.data[1])
		}
		b.pair(ref, e)
	}
	return nil
}

// pair links note-offs to the oldest unmatched note-on with the same
// channel and key.
func (b *builder) pair(ref EventRef, e *Event) {
	if e.Len() < 2 {
		return
	}
	key := uint16(e.data[0]&0x0F)<<7 | uint16(e.data[1]&0x7F)
	switch {
	case e.IsNoteOn():
		b.open[key] = append(b.open[key], ref)
	case e.IsNoteOff():
		q := b.open[key]
		if len(q) == 0 {
			return
		}
		on := q[0]
		b.open[key] = q[1:]
		e.related = on
		b.root.times[on.Time].events[on.Index].related = ref
	}
}

// timeFor finds or creates the node for tick. Since ticks arrive in order
// only the tail can match. A new node is stamped with the frame computed
// under the tempo anchor in effect right now.
func (b *builder) timeFor(tick uint32) *Time {
	r := b.root
	if n := len(r.times); n > 0 && r.times[n-1].tick == tick {
		return &r.times[n-1]
	}

	frame := r.tempo.Frame(tick)
	if b.markers {
		b.fillGap(tick, frame)
	}
	return b.appendTime(tick, frame)
}

// fillGap inserts empty marker nodes before a node at (tick, frame) so that
// no two neighbours are more than one second apart. Coverage starts at
// frame 0.
func (b *builder) fillGap(tick, frame uint32) {
	r := b.root
	var prevTick, prevFrame uint32
	if n := len(r.times); n > 0 {
		prevTick, prevFrame = r.times[n-1].tick, r.times[n-1].frame
	} else if tick > 0 && frame > r.sampleRate {
		b.appendTime(0, 0)
	} else {
		return
	}

	for {
		if uint64(prevFrame)+uint64(r.sampleRate) >= uint64(frame) {
			return
		}
		target := prevFrame + r.sampleRate
		mt := r.tempo.TickAt(target)
		if mt <= prevTick || mt >= tick {
			// a single tick spans more than a second; nothing fits between
			return
		}
		mf := r.tempo.FrameAt(mt)
		b.appendTime(mt, mf)
		prevTick, prevFrame = mt, mf
	}
}

func (b *builder) appendTime(tick, frame uint32) *Time {
	r := b.root
	r.times = append(r.times, Time{
		tick:  tick,
		frame: frame,
		next:  -1,
		index: int32(len(r.times)),
	})
	return &r.times[len(r.times)-1]
}

// finish links the chain once the arena has stopped growing.
func (b *builder) finish() {
	r := b.root
	for i := range r.times {
		t := &r.times[i]
		t.root = r
		if i+1 < len(r.times) {
			t.next = int32(i + 1)
		}
	}
	if n := len(r.times); n > 0 {
		r.lastFrame = r.times[n-1].frame
	}
	for key, q := range b.open {
		if len(q) > 0 {
			debug.LogEvery(64, "timeline", "note on without note off: channel %d key %d", key>>7+1, key&0x7F)
		}
	}
}
