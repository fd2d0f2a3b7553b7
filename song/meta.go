package song

import "gitlab.com/gomidi/midi/v2/smf"

const (
	metaStatus   = 0xFF
	metaTempo    = 0x51
	metaTrackEnd = 0x2F
)

// IsMeta reports whether msg is an SMF meta event. Meta events never go out
// on a MIDI port.
func IsMeta(msg smf.Message) bool {
	return len(msg) > 0 && msg[0] == metaStatus
}

// IsEndOfTrack reports whether msg is the end-of-track meta event.
func IsEndOfTrack(msg smf.Message) bool {
	return len(msg) > 1 && msg[0] == metaStatus && msg[1] == metaTrackEnd
}

// Tempo extracts microseconds per quarter note from a set-tempo meta event.
// The payload is the trailing three bytes, big endian.
func Tempo(msg smf.Message) (uint32, bool) {
	if len(msg) < 6 || msg[0] != metaStatus || msg[1] != metaTempo {
		return 0, false
	}
	b := msg[len(msg)-3:]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), true
}
