package timeline

import (
	"math"
	"math/bits"
)

// DefaultTempo is 120 BPM in microseconds per quarter note.
const DefaultTempo uint32 = 500000

type tempoSegment struct {
	tick  uint32
	frame uint32
	tempo uint32 // microseconds per quarter note
}

// TempoMap converts SMF ticks to sample frames, piecewise linear between
// tempo changes. The last segment is the current anchor; earlier segments
// are kept so conversions stay available after the build.
type TempoMap struct {
	sampleRate uint32
	timeBase   uint16
	segments   []tempoSegment
}

// NewTempoMap starts at tick 0, frame 0 with DefaultTempo.
func NewTempoMap(sampleRate uint32, timeBase uint16) *TempoMap {
	return &TempoMap{
		sampleRate: sampleRate,
		timeBase:   timeBase,
		segments:   []tempoSegment{{tempo: DefaultTempo}},
	}
}

func (m *TempoMap) anchor() *tempoSegment {
	return &m.segments[len(m.segments)-1]
}

// SetTempo re-anchors the map at tick using the frame computed under the
// current anchor. Frames of ticks at or before tick are unaffected; the new
// rate applies to everything after it. A zero tempo or a tick earlier than
// the current anchor is ignored and reported as false.
func (m *TempoMap) SetTempo(tick uint32, mpq uint32) bool {
	a := m.anchor()
	if mpq == 0 || tick < a.tick {
		return false
	}
	if tick == a.tick {
		a.tempo = mpq
		return true
	}
	m.segments = append(m.segments, tempoSegment{
		tick:  tick,
		frame: m.segmentFrame(a, tick),
		tempo: mpq,
	})
	return true
}

// Frame converts tick using the current anchor. Ticks before the anchor are
// resolved against the recorded history.
func (m *TempoMap) Frame(tick uint32) uint32 {
	a := m.anchor()
	if tick < a.tick {
		return m.FrameAt(tick)
	}
	return m.segmentFrame(a, tick)
}

// FrameAt converts tick using whichever segment was in effect at that tick.
func (m *TempoMap) FrameAt(tick uint32) uint32 {
	lo, hi := 0, len(m.segments)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if m.segments[mid].tick <= tick {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return m.segmentFrame(&m.segments[lo-1], tick)
}

// TickAt returns the greatest tick whose frame is at or before frame.
func (m *TempoMap) TickAt(frame uint32) uint32 {
	lo, hi := 0, len(m.segments)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if m.segments[mid].frame <= frame {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	s := &m.segments[lo-1]

	den := uint64(m.sampleRate) * uint64(s.tempo)
	if den == 0 {
		return s.tick
	}
	num := uint64(frame-s.frame) * 1000000 * uint64(m.timeBase)
	d := num / den
	if d > math.MaxUint32-uint64(s.tick) {
		return math.MaxUint32
	}
	tick := s.tick + uint32(d)
	// integer division may land one tick short of the floor inverse
	for tick < math.MaxUint32 && m.segmentFrame(s, tick+1) <= frame {
		tick++
	}
	return tick
}

// segmentFrame computes anchor frame + ticks * sampleRate * tempo /
// (1e6 * timeBase) in 128-bit arithmetic, saturating at MaxUint32.
func (m *TempoMap) segmentFrame(s *tempoSegment, tick uint32) uint32 {
	ticks := uint64(tick - s.tick)
	den := 1000000 * uint64(m.timeBase)
	if den == 0 {
		return s.frame
	}
	hi, lo := bits.Mul64(ticks*uint64(m.sampleRate), uint64(s.tempo))
	if hi >= den {
		return math.MaxUint32
	}
	q, _ := bits.Div64(hi, lo, den)
	if q > uint64(math.MaxUint32-s.frame) {
		return math.MaxUint32
	}
	return s.frame + uint32(q)
}

// Tempo returns the current tempo in microseconds per quarter note.
func (m *TempoMap) Tempo() uint32 {
	return m.anchor().tempo
}

// TempoAt returns the tempo in effect at tick.
func (m *TempoMap) TempoAt(tick uint32) uint32 {
	t := m.segments[0].tempo
	for _, s := range m.segments {
		if s.tick > tick {
			break
		}
		t = s.tempo
	}
	return t
}

// BPM returns the current tempo in beats per minute.
func (m *TempoMap) BPM() float64 {
	return 60000000 / float64(m.Tempo())
}

// AnchorTick returns the tick of the most recent tempo change.
func (m *TempoMap) AnchorTick() uint32 {
	return m.anchor().tick
}

// AnchorFrame returns the frame of the most recent tempo change.
func (m *TempoMap) AnchorFrame() uint32 {
	return m.anchor().frame
}

// SamplesPerTick returns the current rate in frames per tick.
func (m *TempoMap) SamplesPerTick() float64 {
	if m.timeBase == 0 {
		return 0
	}
	return float64(m.sampleRate) * float64(m.Tempo()) / (1000000 * float64(m.timeBase))
}

// Changes returns the number of tempo segments, including the initial one.
func (m *TempoMap) Changes() int {
	return len(m.segments)
}
