package timeline

import "go-smfplay/song"

// MIDI status bytes with the channel bits cleared.
const (
	StatusNoteOff         uint8 = 0x80
	StatusNoteOn          uint8 = 0x90
	StatusPolyAftertouch  uint8 = 0xA0
	StatusControlChange   uint8 = 0xB0
	StatusProgramChange   uint8 = 0xC0
	StatusChannelPressure uint8 = 0xD0
	StatusPitchBend       uint8 = 0xE0
	StatusSysEx           uint8 = 0xF0
	StatusSysExEscape     uint8 = 0xF7
)

// EventRef is a non-owning handle to an event: arena index of its time node
// and position within that node. The zero value is not a valid reference;
// use noEvent.
type EventRef struct {
	Time  int32
	Index int32
}

var noEvent = EventRef{Time: -1, Index: -1}

// Valid reports whether the reference points anywhere.
func (r EventRef) Valid() bool {
	return r.Time >= 0 && r.Index >= 0
}

// Event is one MIDI message at a time node. Data always begins with a
// status byte.
type Event struct {
	element song.ElementRef
	data    []byte
	related EventRef
}

// Data returns the raw message bytes. Callers must not modify them.
func (e *Event) Data() []byte {
	return e.data
}

// Len returns the message length in bytes.
func (e *Event) Len() int {
	return len(e.data)
}

// Status returns the status byte with the channel bits cleared.
func (e *Event) Status() uint8 {
	return e.data[0] & 0xF0
}

// Channel returns the zero-based channel of a channel message, or -1 for
// system messages.
func (e *Event) Channel() int {
	if e.data[0] >= 0xF0 {
		return -1
	}
	return int(e.data[0] & 0x0F)
}

// IsSysEx reports whether the event is a system exclusive message.
func (e *Event) IsSysEx() bool {
	return e.data[0] == StatusSysEx || e.data[0] == StatusSysExEscape
}

// IsNoteOn reports a note-on with non-zero velocity.
func (e *Event) IsNoteOn() bool {
	return e.Status() == StatusNoteOn && len(e.data) > 2 && e.data[2] > 0
}

// IsNoteOff reports a note-off, including note-on with zero velocity.
func (e *Event) IsNoteOff() bool {
	s := e.Status()
	return s == StatusNoteOff || (s == StatusNoteOn && len(e.data) > 2 && e.data[2] == 0)
}

// Element returns the handle of the parser element this event came from.
func (e *Event) Element() song.ElementRef {
	return e.element
}

// Related returns the paired note-on/note-off event, if any. Resolve it with
// Root.EventAt.
func (e *Event) Related() (EventRef, bool) {
	return e.related, e.related.Valid()
}
