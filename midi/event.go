package midi

// PortEventType says whether an output port appeared or went away
type PortEventType int

const (
	PortAdded PortEventType = iota
	PortRemoved
)

func (t PortEventType) String() string {
	switch t {
	case PortAdded:
		return "added"
	case PortRemoved:
		return "removed"
	}
	return "unknown"
}

// PortEvent is emitted when an output port is plugged in or removed
type PortEvent struct {
	Type PortEventType
	Name string
}
