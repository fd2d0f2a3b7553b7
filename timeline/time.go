package timeline

// Time is the group of events sharing one absolute tick. Nodes live in the
// Root's arena in chronological order; Next follows the chain.
type Time struct {
	root   *Root
	tick   uint32
	frame  uint32
	events []Event
	next   int32 // arena index of the next node, -1 at the tail
	index  int32
}

// Tick returns the absolute SMF tick.
func (t *Time) Tick() uint32 {
	return t.tick
}

// Frame returns the absolute sample frame.
func (t *Time) Frame() uint32 {
	return t.frame
}

// Next returns the following node, or nil at the end of the timeline.
func (t *Time) Next() *Time {
	if t.next < 0 || t.root == nil {
		return nil
	}
	return &t.root.times[t.next]
}

// Len returns the number of events. Entrypoint markers have none.
func (t *Time) Len() int {
	return len(t.events)
}

// Event returns the i-th event; i must be less than Len.
func (t *Time) Event(i int) *Event {
	return &t.events[i]
}

// Index returns the node's position in the chain.
func (t *Time) Index() int {
	return int(t.index)
}

// IsMarker reports whether the node is an entrypoint marker.
func (t *Time) IsMarker() bool {
	return len(t.events) == 0
}
