// Package timeline turns a parsed MIDI file into a chronologically ordered,
// sample-frame accurate list of time nodes for real-time playback.
//
// A Root is built once, off the real-time path, and never changes shape
// afterwards. The playback goroutine walks it with Head/Next and seeks with
// LookupEntrypoint; neither allocates or locks. Mute, solo and sysex flags
// are atomics so control goroutines can flip them while playback runs.
package timeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go-smfplay/song"
)

// ErrInvalidChannel is returned for channel arguments outside 0-15.
var ErrInvalidChannel = errors.New("invalid channel")

// NoSolo is the solo channel value when no channel is soloed.
const NoSolo = -1

// Options control timeline construction.
type Options struct {
	// EntrypointMarkers inserts empty nodes so consecutive nodes are never
	// more than one second apart. A seek anywhere between frame 0 and the
	// last event then always finds an entrypoint.
	EntrypointMarkers bool
}

// Root holds everything known about one loaded file.
type Root struct {
	filename   string
	timeBase   uint16
	sampleRate uint32
	lastFrame  uint32

	tempo      *TempoMap
	times      []Time
	trackNames []string
	events     int

	sendSysex atomic.Bool
	solo      atomic.Int32
	channels  [NumChannels]Channel
}

// NewRoot builds the timeline for tree at the given sample rate. It either
// returns a complete Root or an error; nothing is partially published.
func NewRoot(filename string, tree *song.Tree, sampleRate uint32, opts Options) (*Root, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: no parse tree", song.ErrMalformed)
	}
	if sampleRate == 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if tree.TimeBase == 0 {
		return nil, fmt.Errorf("%w: zero time base", song.ErrMalformed)
	}

	r := &Root{
		filename:   filename,
		timeBase:   tree.TimeBase,
		sampleRate: sampleRate,
		tempo:      NewTempoMap(sampleRate, tree.TimeBase),
	}
	r.sendSysex.Store(true)
	r.solo.Store(NoSolo)
	for i := range r.channels {
		r.channels[i].number = i + 1
	}

	b := newBuilder(r, opts)
	if err := b.build(tree); err != nil {
		return nil, err
	}
	return r, nil
}

// Free drops the timeline. The Root must no longer be reachable from the
// playback goroutine when this is called.
func (r *Root) Free() {
	for i := range r.times {
		r.times[i].root = nil
		r.times[i].events = nil
	}
	r.times = nil
	r.lastFrame = 0
	r.events = 0
}

// Filename returns the path the file was loaded from.
func (r *Root) Filename() string {
	return r.filename
}

// TimeBase returns the file's ticks per quarter note.
func (r *Root) TimeBase() uint16 {
	return r.timeBase
}

// SampleRate returns the sample rate frames are computed for.
func (r *Root) SampleRate() uint32 {
	return r.sampleRate
}

// LastFrame returns the frame of the last node.
func (r *Root) LastFrame() uint32 {
	return r.lastFrame
}

// Duration returns the play time up to the last node.
func (r *Root) Duration() time.Duration {
	return FramesToDuration(r.lastFrame, r.sampleRate)
}

// Tempo returns the tempo map built for this file.
func (r *Root) Tempo() *TempoMap {
	return r.tempo
}

// TrackNames returns the track names found in the file, one per track.
func (r *Root) TrackNames() []string {
	return r.trackNames
}

// Head returns the first node, or nil for an empty timeline.
func (r *Root) Head() *Time {
	if len(r.times) == 0 {
		return nil
	}
	return &r.times[0]
}

// Tail returns the last node, or nil for an empty timeline.
func (r *Root) Tail() *Time {
	if len(r.times) == 0 {
		return nil
	}
	return &r.times[len(r.times)-1]
}

// Len returns the number of nodes, markers included.
func (r *Root) Len() int {
	return len(r.times)
}

// EventCount returns the number of playable events.
func (r *Root) EventCount() int {
	return r.events
}

// TimeAt returns the node at exactly tick, or nil.
func (r *Root) TimeAt(tick uint32) *Time {
	lo, hi := 0, len(r.times)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.times[mid].tick < tick {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(r.times) && r.times[lo].tick == tick {
		return &r.times[lo]
	}
	return nil
}

// EventAt resolves an event handle, returning nil if it is not valid.
func (r *Root) EventAt(ref EventRef) *Event {
	if !ref.Valid() || int(ref.Time) >= len(r.times) {
		return nil
	}
	t := &r.times[ref.Time]
	if int(ref.Index) >= len(t.events) {
		return nil
	}
	return &t.events[ref.Index]
}

// Channel returns the descriptor for zero-based channel ch, or nil.
func (r *Root) Channel(ch int) *Channel {
	if !validChannel(ch) {
		return nil
	}
	return &r.channels[ch]
}

// FramesToDuration converts a frame count at sampleRate to wall time.
func FramesToDuration(frames, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(uint64(frames) * uint64(time.Second) / uint64(sampleRate))
}

// DurationToFrames converts wall time to frames at sampleRate.
func DurationToFrames(d time.Duration, sampleRate uint32) uint32 {
	if d <= 0 {
		return 0
	}
	f := uint64(d) * uint64(sampleRate) / uint64(time.Second)
	if f > 1<<32-1 {
		return 1<<32 - 1
	}
	return uint32(f)
}
