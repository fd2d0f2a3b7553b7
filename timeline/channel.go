package timeline

import "sync/atomic"

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// Channel describes one MIDI channel of a loaded file. Program and HasData
// are fixed once the timeline is built; the mute flag may change at any
// time from control goroutines.
type Channel struct {
	program string
	hasData bool
	number  int
	muted   atomic.Bool
}

// Program returns the General MIDI name of the last program change found
// on this channel, or "" if there was none.
func (c *Channel) Program() string {
	return c.program
}

// HasData reports whether any event targets this channel.
func (c *Channel) HasData() bool {
	return c.hasData
}

// Number returns the human readable channel number (1-16).
func (c *Channel) Number() int {
	return c.number
}

// Muted reports whether the channel is muted.
func (c *Channel) Muted() bool {
	return c.muted.Load()
}

func validChannel(ch int) bool {
	return ch >= 0 && ch < NumChannels
}
