package timeline

import (
	"fmt"

	"go-smfplay/debug"
	"go-smfplay/song"
)

// Load reads and builds filename at sampleRate, then tells every listener in
// reg about the new Root. On failure no Root exists and nobody is notified;
// the error wraps song.ErrNotFound or song.ErrMalformed. reg may be nil.
func Load(reg *Registry, filename string, sampleRate uint32) (*Root, error) {
	tree, err := song.ReadFile(filename)
	if err != nil {
		debug.Log("load", "read %s: %v", filename, err)
		return nil, err
	}

	root, err := NewRoot(filename, tree, sampleRate, Options{EntrypointMarkers: true})
	if err != nil {
		debug.Log("load", "build %s: %v", filename, err)
		return nil, fmt.Errorf("build %s: %w", filename, err)
	}

	debug.Log("load", "loaded %s (time base %d, %d tracks, %s)",
		filename, root.TimeBase(), len(tree.Tracks), root.Duration())
	reg.Notify(root)
	return root, nil
}

// Unload frees root and tells every listener in reg with a nil Root. The
// caller must have detached root from playback first. reg may be nil.
func Unload(reg *Registry, root *Root) {
	if root == nil {
		return
	}
	debug.Log("load", "unloading %s", root.Filename())
	root.Free()
	reg.Notify(nil)
}
