package timeline

// The arena is in chain order and frames never decrease along the chain, so
// the arena doubles as the frame index: a binary search over it is the
// balanced lookup, with no extra structure to keep in sync.

// upperBound returns the first arena index whose frame is greater than frame.
func (r *Root) upperBound(frame uint32) int {
	lo, hi := 0, len(r.times)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.times[mid].frame <= frame {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// lowerBound returns the first arena index whose frame is at least frame.
func (r *Root) lowerBound(frame uint32) int {
	lo, hi := 0, len(r.times)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.times[mid].frame < frame {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// LookupEntrypoint returns the node with the greatest frame at or before
// frame, provided it lies no more than one second (SampleRate frames)
// earlier. It returns nil before the first node, past the end, or inside a
// gap longer than a second. When several nodes share that frame the first
// of them is returned so resuming playback skips none of their events.
//
// Safe to call from the real-time goroutine: O(log n), no allocation.
func (r *Root) LookupEntrypoint(frame uint32) *Time {
	i := r.upperBound(frame) - 1
	if i < 0 {
		return nil
	}
	found := r.times[i].frame
	if frame-found > r.sampleRate {
		return nil
	}
	return &r.times[r.lowerBound(found)]
}

// FirstAfter returns the first node whose frame is at or after frame, or
// nil past the end.
func (r *Root) FirstAfter(frame uint32) *Time {
	i := r.lowerBound(frame)
	if i >= len(r.times) {
		return nil
	}
	return &r.times[i]
}
