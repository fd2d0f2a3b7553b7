package midi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-smfplay/debug"
)

var (
	// ErrScanTimeout is returned when the driver does not answer a port
	// listing in time.
	ErrScanTimeout = errors.New("midi port scan timed out")
	// ErrNoPort is returned when no output port matches a query.
	ErrNoPort = errors.New("no such midi output port")
	// ErrDisconnected is returned by a sender whose port has gone away.
	// The sender works again once the port is reopened.
	ErrDisconnected = errors.New("midi output disconnected")
)

// ScanTimeout bounds a port listing (CoreMIDI can hang)
const ScanTimeout = 3 * time.Second

// Outputs lists the output ports, giving up after timeout.
func Outputs(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, ErrScanTimeout
	}
}

// Match finds the port a query refers to: an exact name, then a numeric
// index into names, then a case insensitive substring.
func Match(names []string, query string) (int, error) {
	for i, n := range names {
		if n == query {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(query); err == nil && idx >= 0 && idx < len(names) {
		return idx, nil
	}
	lq := strings.ToLower(query)
	for i, n := range names {
		if lq != "" && strings.Contains(strings.ToLower(n), lq) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoPort, query)
}

// PortManager tracks output ports, opening them on demand and reporting
// hot-plug changes. A port that was opened and then disappears is reopened
// when it comes back.
type PortManager struct {
	mu      sync.RWMutex
	known   map[string]bool
	wanted  map[string]bool // opened at least once
	senders map[string]func(gomidi.Message) error

	events   chan PortEvent
	pollRate time.Duration
	list     func() ([]string, error)
	open     func(name string) (func(gomidi.Message) error, error)
}

// NewPortManager creates a port manager backed by the MIDI driver
func NewPortManager() *PortManager {
	return &PortManager{
		known:    make(map[string]bool),
		wanted:   make(map[string]bool),
		senders:  make(map[string]func(gomidi.Message) error),
		events:   make(chan PortEvent, 16),
		pollRate: 2 * time.Second,
		list:     outputNames,
		open:     openByName,
	}
}

func openByName(name string) (func(gomidi.Message) error, error) {
	outs, err := Outputs(ScanTimeout)
	if err != nil {
		return nil, err
	}
	for _, o := range outs {
		if o.String() == name {
			return gomidi.SendTo(o)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

func outputNames() ([]string, error) {
	outs, err := Outputs(ScanTimeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names, nil
}

// Events returns a channel of port added/removed events
func (pm *PortManager) Events() <-chan PortEvent {
	return pm.events
}

// Ports returns the names seen at the last scan
func (pm *PortManager) Ports() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	names := make([]string, 0, len(pm.known))
	for n := range pm.known {
		names = append(names, n)
	}
	return names
}

// Run starts the polling loop (blocking - run in goroutine)
func (pm *PortManager) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.pollRate)
	defer ticker.Stop()

	// Initial scan
	pm.scan()

	for {
		select {
		case <-ctx.Done():
			close(pm.events)
			return
		case <-ticker.C:
			pm.scan()
		}
	}
}

func (pm *PortManager) scan() {
	names, err := pm.list()
	if err != nil {
		// skip this scan; the driver may come back
		debug.Log("midi", "scan: %v", err)
		return
	}

	seen := make(map[string]bool, len(names))
	var added, removed []string

	pm.mu.Lock()
	for _, n := range names {
		seen[n] = true
		if !pm.known[n] {
			pm.known[n] = true
			added = append(added, n)
		}
	}
	for n := range pm.known {
		if !seen[n] {
			delete(pm.known, n)
			// a stale sender would write to a dead port
			delete(pm.senders, n)
			removed = append(removed, n)
		}
	}
	pm.mu.Unlock()

	for _, n := range added {
		debug.Log("midi", "output added: %s", n)
		pm.reopen(n)
		pm.emit(PortEvent{Type: PortAdded, Name: n})
	}
	for _, n := range removed {
		debug.Log("midi", "output removed: %s", n)
		pm.emit(PortEvent{Type: PortRemoved, Name: n})
	}
}

// reopen opens name again if it was opened before and lost.
func (pm *PortManager) reopen(name string) {
	pm.mu.RLock()
	need := pm.wanted[name] && pm.senders[name] == nil
	pm.mu.RUnlock()
	if !need {
		return
	}

	sender, err := pm.open(name)
	if err != nil {
		debug.Error("midi", "reopen %s: %v", name, err)
		return
	}
	pm.mu.Lock()
	pm.senders[name] = sender
	pm.mu.Unlock()
	debug.Log("midi", "reopened output %s", name)
}

// sender returns a function sending to name through whatever sender is
// currently open for it.
func (pm *PortManager) sender(name string) func(gomidi.Message) error {
	return func(msg gomidi.Message) error {
		pm.mu.RLock()
		send := pm.senders[name]
		pm.mu.RUnlock()
		if send == nil {
			return ErrDisconnected
		}
		return send(msg)
	}
}

func (pm *PortManager) emit(ev PortEvent) {
	select {
	case pm.events <- ev:
	default:
	}
}

// Open returns a sender for the output port matching query, opening the
// port the first time it is asked for. The sender follows the port across
// unplugging: it fails with ErrDisconnected while the port is gone and
// writes to the reopened port once it is back.
func (pm *PortManager) Open(query string) (func(gomidi.Message) error, string, error) {
	outs, err := Outputs(ScanTimeout)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	idx, err := Match(names, query)
	if err != nil {
		return nil, "", err
	}
	name := names[idx]

	pm.mu.RLock()
	_, ok := pm.senders[name]
	pm.mu.RUnlock()
	if ok {
		return pm.sender(name), name, nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Double-check after acquiring write lock
	if _, ok := pm.senders[name]; ok {
		return pm.sender(name), name, nil
	}
	send, err := gomidi.SendTo(outs[idx])
	if err != nil {
		return nil, "", fmt.Errorf("open output %s: %w", name, err)
	}
	pm.senders[name] = send
	pm.wanted[name] = true
	pm.known[name] = true
	debug.Log("midi", "opened output %s", name)
	return pm.sender(name), name, nil
}
