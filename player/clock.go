package player

import (
	"context"
	"runtime"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-smfplay/debug"
	"go-smfplay/timeline"
)

// Sender sends one message to an output port, as returned by gomidi.SendTo.
type Sender func(gomidi.Message) error

// DefaultPeriod is the number of frames processed per clock cycle.
const DefaultPeriod = 256

const controlAllNotesOff = 123

type emitted struct {
	offset uint32
	data   []byte
}

// Clock drives an Engine from the system clock in place of an audio
// callback, and delivers each period's events to a MIDI output at their
// offsets.
type Clock struct {
	engine     *Engine
	send       Sender
	sampleRate uint32
	period     uint32

	pending []emitted
	resets  uint32
}

// NewClock returns a clock processing period frames at a time. A zero
// period selects DefaultPeriod.
func NewClock(e *Engine, send Sender, sampleRate, period uint32) *Clock {
	if period == 0 {
		period = DefaultPeriod
	}
	return &Clock{
		engine:     e,
		send:       send,
		sampleRate: sampleRate,
		period:     period,
		pending:    make([]emitted, 0, 512),
		resets:     e.Resets(),
	}
}

// Period returns the wall time of one cycle.
func (c *Clock) Period() time.Duration {
	return timeline.FramesToDuration(c.period, c.sampleRate)
}

// Run cycles until ctx is done, then silences the output. It locks its
// goroutine to an OS thread for steadier timing.
func (c *Clock) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(c.Period())
	defer ticker.Stop()
	debug.Log("clock", "running: %d frames at %d Hz (%v)", c.period, c.sampleRate, c.Period())

	for {
		select {
		case <-ctx.Done():
			c.allNotesOff()
			debug.Log("clock", "stopped")
			return
		case start := <-ticker.C:
			c.cycle(start)
		}
	}
}

// Emit queues data for delivery later in the current cycle.
func (c *Clock) Emit(offset uint32, data []byte) {
	c.pending = append(c.pending, emitted{offset: offset, data: data})
}

// cycle processes one period that started at start and sends its events,
// waiting for each one's offset.
func (c *Clock) cycle(start time.Time) {
	if r := c.engine.Resets(); r != c.resets {
		c.resets = r
		c.allNotesOff()
	}

	c.pending = c.pending[:0]
	c.engine.Process(c.period, c)

	for _, p := range c.pending {
		due := start.Add(timeline.FramesToDuration(p.offset, c.sampleRate))
		if wait := time.Until(due); wait > 0 {
			time.Sleep(wait)
		}
		if err := c.send(gomidi.Message(p.data)); err != nil {
			debug.LogEvery(100, "clock", "send failed: %v", err)
		}
	}
}

func (c *Clock) allNotesOff() {
	for ch := uint8(0); ch < timeline.NumChannels; ch++ {
		if err := c.send(gomidi.ControlChange(ch, controlAllNotesOff, 0)); err != nil {
			debug.LogEvery(100, "clock", "all notes off: %v", err)
			return
		}
	}
}
