// Package song reads Standard MIDI Files into a per-track element tree.
//
// The tree keeps every track event with its delta time exactly as stored in
// the file. Merging tracks onto a common timeline is left to the caller.
package song

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	// ErrNotFound is returned when the file cannot be opened.
	ErrNotFound = errors.New("midi file not found")
	// ErrMalformed is returned when the file content is not a valid SMF.
	ErrMalformed = errors.New("malformed midi file")
	// ErrUnsupportedTimeFormat is returned for SMPTE time division files.
	ErrUnsupportedTimeFormat = errors.New("unsupported smf time format")
)

// Element is one event of a track as it appears in the file.
type Element struct {
	Track   int
	Index   int    // position within the track
	Delta   uint32 // ticks since the previous element of the same track
	Message smf.Message
}

// Ref returns the handle that identifies this element inside its tree.
func (e *Element) Ref() ElementRef {
	return ElementRef{Track: int32(e.Track), Index: int32(e.Index)}
}

// ElementRef is a non-owning handle to an Element: track and position.
type ElementRef struct {
	Track int32
	Index int32
}

// Track is an ordered sequence of elements.
type Track struct {
	Name     string
	Elements []Element
}

// Tree is the parsed form of one file.
type Tree struct {
	Filename string
	Format   uint16
	TimeBase uint16 // ticks per quarter note
	Tracks   []Track
}

// ReadFile opens and parses path. Open failures wrap ErrNotFound and parse
// failures wrap ErrMalformed so callers can tell them apart with errors.Is.
func ReadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, err
	}
	t.Filename = path
	return t, nil
}

// Read parses an SMF from r.
func Read(r io.Reader) (*Tree, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromSMF(s)
}

// FromSMF converts an already decoded gomidi SMF into a Tree.
func FromSMF(s *smf.SMF) (*Tree, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	if ticks == 0 {
		return nil, fmt.Errorf("%w: zero time base", ErrMalformed)
	}

	t := &Tree{
		Format:   s.Format(),
		TimeBase: uint16(ticks),
		Tracks:   make([]Track, len(s.Tracks)),
	}

	for ti, track := range s.Tracks {
		elems := make([]Element, 0, len(track))
		for i, ev := range track {
			msg := ev.Message
			var name string
			if t.Tracks[ti].Name == "" && msg.GetMetaTrackName(&name) {
				t.Tracks[ti].Name = name
			}
			elems = append(elems, Element{
				Track:   ti,
				Index:   i,
				Delta:   ev.Delta,
				Message: msg,
			})
		}
		t.Tracks[ti].Elements = elems
	}

	return t, nil
}

// Element resolves a handle. It returns nil when ref is out of range.
func (t *Tree) Element(ref ElementRef) *Element {
	if ref.Track < 0 || int(ref.Track) >= len(t.Tracks) {
		return nil
	}
	elems := t.Tracks[ref.Track].Elements
	if ref.Index < 0 || int(ref.Index) >= len(elems) {
		return nil
	}
	return &elems[ref.Index]
}

// Len returns the total number of elements across all tracks.
func (t *Tree) Len() int {
	n := 0
	for _, tr := range t.Tracks {
		n += len(tr.Elements)
	}
	return n
}
