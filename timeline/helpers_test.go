package timeline

import (
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-smfplay/song"
)

// el is an element with a delta and raw message bytes.
func el(delta uint32, msg ...byte) song.Element {
	return song.Element{Delta: delta, Message: smf.Message(msg)}
}

func tempoEl(delta, mpq uint32) song.Element {
	return el(delta, 0xFF, 0x51, 0x03, byte(mpq>>16), byte(mpq>>8), byte(mpq))
}

func endEl(delta uint32) song.Element {
	return el(delta, 0xFF, 0x2F, 0x00)
}

func tree(timeBase uint16, tracks ...[]song.Element) *song.Tree {
	t := &song.Tree{TimeBase: timeBase}
	for ti, elems := range tracks {
		tr := song.Track{Elements: make([]song.Element, len(elems))}
		for i, e := range elems {
			e.Track = ti
			e.Index = i
			tr.Elements[i] = e
		}
		t.Tracks = append(t.Tracks, tr)
	}
	return t
}

func build(t *testing.T, tr *song.Tree, sampleRate uint32, markers bool) *Root {
	t.Helper()
	r, err := NewRoot("test.mid", tr, sampleRate, Options{EntrypointMarkers: markers})
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	return r
}

// nodes returns the chain as a slice by walking Next from Head.
func nodes(r *Root) []*Time {
	var out []*Time
	for t := r.Head(); t != nil; t = t.Next() {
		out = append(out, t)
	}
	return out
}
