// Package player walks a timeline in fixed-size periods and hands the audible
// events of each period to a Sink, tagged with their frame offset.
package player

import (
	"sync/atomic"
	"time"

	"go-smfplay/timeline"
)

// Sink receives the events of one period. offset is the frame inside the
// period at which data is due; data belongs to the timeline and must not
// be modified or kept past the Root's lifetime.
type Sink interface {
	Emit(offset uint32, data []byte)
}

const noLocate = -1

// Engine is the playback state shared between the control goroutines and
// the goroutine calling Process. Control methods only touch atomics.
type Engine struct {
	root     atomic.Pointer[timeline.Root]
	playing  atomic.Bool
	locate   atomic.Int64 // pending locate frame, or noLocate
	position atomic.Uint32
	ended    atomic.Bool
	resets   atomic.Uint32 // bumped whenever sounding notes should be silenced
	inUse    atomic.Pointer[timeline.Root]

	// owned by the Process goroutine
	cur  *timeline.Root
	next *timeline.Time
	pos  uint32
	seek bool
}

// NewEngine returns a stopped engine with no timeline.
func NewEngine() *Engine {
	e := &Engine{}
	e.locate.Store(noLocate)
	return e
}

// SetRoot swaps in root (nil detaches) and rewinds to frame 0. The
// previous Root is no longer read once the next Process call starts.
func (e *Engine) SetRoot(root *timeline.Root) {
	e.root.Store(root)
	e.locate.Store(0)
	e.ended.Store(false)
	e.resets.Add(1)
}

// Root returns the timeline currently attached.
func (e *Engine) Root() *timeline.Root {
	return e.root.Load()
}

// Start starts rolling from the current position.
func (e *Engine) Start() {
	e.playing.Store(true)
}

// Stop halts playback, keeping the position.
func (e *Engine) Stop() {
	if e.playing.Swap(false) {
		e.resets.Add(1)
	}
}

// Playing reports whether the transport is rolling.
func (e *Engine) Playing() bool {
	return e.playing.Load()
}

// Locate moves the transport to frame. It takes effect at the next period.
func (e *Engine) Locate(frame uint32) {
	e.locate.Store(int64(frame))
	e.ended.Store(false)
	e.resets.Add(1)
}

// Position returns the frame at the end of the last processed period.
func (e *Engine) Position() uint32 {
	return e.position.Load()
}

// Ended reports whether every node of the current timeline has been played.
func (e *Engine) Ended() bool {
	return e.ended.Load()
}

// Resets returns a counter that changes whenever the root is swapped, the
// transport relocates or playback stops.
func (e *Engine) Resets() uint32 {
	return e.resets.Load()
}

// WaitReleased waits until no Process call is still reading old, which must
// already have been swapped out with SetRoot. It reports false on timeout.
func (e *Engine) WaitReleased(old *timeline.Root, timeout time.Duration) bool {
	if old == nil {
		return true
	}
	deadline := time.Now().Add(timeout)
	for e.inUse.Load() == old {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Microsecond)
	}
	return true
}

// Process plays the next nframes frames into sink. It is the real-time
// callback: it never blocks, locks or allocates.
func (e *Engine) Process(nframes uint32, sink Sink) {
	// publish the root before using it, then make sure it is still current
	root := e.root.Load()
	for {
		e.inUse.Store(root)
		r := e.root.Load()
		if r == root {
			break
		}
		root = r
	}
	defer e.inUse.Store(nil)

	if loc := e.locate.Swap(noLocate); loc != noLocate {
		e.pos = uint32(loc)
		e.seek = true
	}
	if root != e.cur {
		e.cur = root
		e.next = nil
		e.seek = true
	}
	if root == nil {
		e.position.Store(e.pos)
		return
	}
	if e.seek {
		e.next = entrypoint(root, e.pos)
		e.seek = false
	}
	if !e.playing.Load() {
		e.position.Store(e.pos)
		return
	}

	end := e.pos + nframes
	if end < e.pos {
		end = ^uint32(0)
	}
	for t := e.next; t != nil && t.Frame() < end; t = t.Next() {
		// nodes before pos only occur right after a seek; they are
		// caught up at the start of the period
		var offset uint32
		if f := t.Frame(); f > e.pos {
			offset = f - e.pos
		}
		for i := 0; i < t.Len(); i++ {
			ev := t.Event(i)
			if root.Audible(ev) {
				sink.Emit(offset, ev.Data())
			}
		}
		e.next = t.Next()
	}
	if e.next == nil {
		e.ended.Store(true)
	}

	e.pos = end
	e.position.Store(end)
}

// entrypoint picks the node playback resumes from: the seek target within
// one second before frame, else the first node after it.
func entrypoint(root *timeline.Root, frame uint32) *timeline.Time {
	if t := root.LookupEntrypoint(frame); t != nil {
		return t
	}
	return root.FirstAfter(frame)
}
