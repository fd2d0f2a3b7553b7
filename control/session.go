// Package control is the non-real-time side of the player: it owns the
// loaded timeline and turns commands from the terminal, the command line
// or the network into timeline and transport operations.
package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go-smfplay/debug"
	"go-smfplay/player"
	"go-smfplay/timeline"
)

// ErrNotLoaded is returned by operations that need a loaded file.
var ErrNotLoaded = errors.New("no midi file loaded")

// releaseTimeout bounds how long an unload waits for the playback
// goroutine to let go of the old timeline.
const releaseTimeout = time.Second

// Session is the application context shared by every control surface.
type Session struct {
	// ops serialises Load and Unload including their notifications, so
	// listeners see loads and unloads in the order they happened
	ops sync.Mutex

	mu         sync.Mutex
	reg        *timeline.Registry
	engine     *player.Engine
	root       *timeline.Root
	sampleRate uint32
	sendSysex  bool
	release    func(old *timeline.Root, timeout time.Duration) bool

	// Notify UI of updates
	UpdateChan chan struct{}
}

// NewSession creates a session driving engine at sampleRate.
func NewSession(engine *player.Engine, sampleRate uint32) *Session {
	return &Session{
		reg:        timeline.NewRegistry(),
		engine:     engine,
		sampleRate: sampleRate,
		sendSysex:  true,
		release:    engine.WaitReleased,
		UpdateChan: make(chan struct{}, 1),
	}
}

// Registry returns the load/unload listener registry. Listeners run after
// the session state is updated and may query or change it, but must not
// call Load or Unload.
func (s *Session) Registry() *timeline.Registry {
	return s.reg
}

// Engine returns the playback engine.
func (s *Session) Engine() *player.Engine {
	return s.engine
}

// SampleRate returns the rate timelines are built for.
func (s *Session) SampleRate() uint32 {
	return s.sampleRate
}

// Root returns the loaded timeline, or nil.
func (s *Session) Root() *timeline.Root {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Load replaces the loaded file with path. The previous file is unloaded
// first, so on failure nothing is loaded.
func (s *Session) Load(path string) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	unloaded := s.unloadLocked()
	root, err := timeline.Load(nil, path, s.sampleRate)
	if err == nil {
		root.SetSendSysex(s.sendSysex)
		s.root = root
		s.engine.SetRoot(root)
	}
	s.mu.Unlock()

	if unloaded {
		s.reg.Notify(nil)
	}
	if err != nil {
		debug.Error("session", "load %s: %v", path, err)
		s.notifyUpdate()
		return err
	}
	s.reg.Notify(root)
	s.notifyUpdate()
	return nil
}

// Unload detaches and frees the loaded file.
func (s *Session) Unload() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	unloaded := s.unloadLocked()
	s.mu.Unlock()
	if !unloaded {
		return ErrNotLoaded
	}
	s.reg.Notify(nil)
	s.notifyUpdate()
	return nil
}

// unloadLocked detaches the loaded file from playback and frees it. It
// reports whether a file was loaded; the caller notifies listeners once
// mu is released. It must be called with mu held.
func (s *Session) unloadLocked() bool {
	old := s.root
	if old == nil {
		return false
	}
	s.engine.Stop()
	s.engine.SetRoot(nil)
	s.root = nil
	if !s.release(old, releaseTimeout) {
		// keep the arena alive rather than free it under the player
		debug.Error("session", "playback still holds %s, not freeing it", old.Filename())
		return true
	}
	timeline.Unload(nil, old)
	return true
}

// withRoot runs fn on the loaded timeline.
func (s *Session) withRoot(fn func(r *timeline.Root) error) error {
	s.mu.Lock()
	r := s.root
	s.mu.Unlock()
	if r == nil {
		return ErrNotLoaded
	}
	if err := fn(r); err != nil {
		return err
	}
	s.notifyUpdate()
	return nil
}

// Mute silences zero-based channel ch.
func (s *Session) Mute(ch int) error {
	return s.withRoot(func(r *timeline.Root) error { return r.Mute(ch) })
}

// Unmute re-enables zero-based channel ch.
func (s *Session) Unmute(ch int) error {
	return s.withRoot(func(r *timeline.Root) error { return r.Unmute(ch) })
}

// ToggleMute flips the mute flag of zero-based channel ch.
func (s *Session) ToggleMute(ch int) error {
	return s.withRoot(func(r *timeline.Root) error {
		if r.ChannelMuted(ch) {
			return r.Unmute(ch)
		}
		return r.Mute(ch)
	})
}

// Solo makes zero-based channel ch the only audible one.
func (s *Session) Solo(ch int) error {
	return s.withRoot(func(r *timeline.Root) error { return r.Solo(ch) })
}

// ToggleSolo solos ch, or clears the solo if ch already has it.
func (s *Session) ToggleSolo(ch int) error {
	return s.withRoot(func(r *timeline.Root) error {
		if r.SoloChannel() == ch {
			r.Unsolo()
			return nil
		}
		return r.Solo(ch)
	})
}

// Unsolo clears the solo channel.
func (s *Session) Unsolo() error {
	return s.withRoot(func(r *timeline.Root) error {
		r.Unsolo()
		return nil
	})
}

// SetSendSysex enables or disables sysex output, for the loaded file and
// the files loaded after it.
func (s *Session) SetSendSysex(enabled bool) {
	s.mu.Lock()
	s.sendSysex = enabled
	if s.root != nil {
		s.root.SetSendSysex(enabled)
	}
	s.mu.Unlock()
	s.notifyUpdate()
}

// SendSysex reports the current sysex setting.
func (s *Session) SendSysex() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendSysex
}

// Play starts the transport.
func (s *Session) Play() error {
	return s.withRoot(func(*timeline.Root) error {
		s.engine.Start()
		return nil
	})
}

// Stop halts the transport.
func (s *Session) Stop() {
	s.engine.Stop()
	s.notifyUpdate()
}

// TogglePlay starts or stops the transport.
func (s *Session) TogglePlay() error {
	if s.engine.Playing() {
		s.Stop()
		return nil
	}
	return s.Play()
}

// Locate moves the transport to d from the start of the file.
func (s *Session) Locate(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("locate to negative time %v", d)
	}
	return s.withRoot(func(*timeline.Root) error {
		s.engine.Locate(timeline.DurationToFrames(d, s.sampleRate))
		return nil
	})
}

// notifyUpdate tells the UI something changed
func (s *Session) notifyUpdate() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}
