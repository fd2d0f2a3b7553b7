package control

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go-smfplay/timeline"
)

var (
	// ErrUnknownCommand is returned by Exec for a command it does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned by Exec for malformed arguments.
	ErrUsage = errors.New("usage")
)

// Help lists the commands understood by Exec.
const Help = `load FILE      load a midi file
unload         unload the current file
play, stop     start or stop the transport
locate SEC     move the transport to SEC seconds
mute N         mute channel N (1-16)
unmute N       unmute channel N
solo N|off     solo channel N, or clear the solo
sysex on|off   enable or suppress sysex output
channels       list the channels
status         show the transport and file
help           show this list`

// Exec runs one text command line and returns its output. Channel numbers
// are 1-based here.
func (s *Session) Exec(line string) (string, error) {
	cmd, arg := splitCommand(line)
	switch cmd {
	case "":
		return "", nil
	case "help", "?":
		return Help, nil

	case "load":
		if arg == "" {
			return "", fmt.Errorf("%w: load FILE", ErrUsage)
		}
		if err := s.Load(arg); err != nil {
			return "", err
		}
		st := s.Status()
		return fmt.Sprintf("loaded %s (%s)", filepath.Base(st.Filename), formatClock(st.Duration)), nil
	case "unload":
		return "", s.Unload()

	case "play":
		return "", s.Play()
	case "stop":
		s.Stop()
		return "", nil
	case "locate":
		sec, err := strconv.ParseFloat(arg, 64)
		if err != nil || sec < 0 {
			return "", fmt.Errorf("%w: locate SECONDS", ErrUsage)
		}
		return "", s.Locate(time.Duration(sec * float64(time.Second)))

	case "mute", "unmute":
		ch, err := parseChannel(arg)
		if err != nil {
			return "", err
		}
		if cmd == "mute" {
			return "", s.Mute(ch)
		}
		return "", s.Unmute(ch)
	case "solo":
		if arg == "off" || arg == "none" {
			return "", s.Unsolo()
		}
		ch, err := parseChannel(arg)
		if err != nil {
			return "", err
		}
		return "", s.Solo(ch)
	case "sysex":
		switch arg {
		case "on":
			s.SetSendSysex(true)
		case "off":
			s.SetSendSysex(false)
		default:
			return "", fmt.Errorf("%w: sysex on|off", ErrUsage)
		}
		return "", nil

	case "channels":
		chs := s.Channels()
		if chs == nil {
			return "", ErrNotLoaded
		}
		return FormatChannels(chs), nil
	case "status":
		return s.Status().String(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func splitCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// parseChannel turns a 1-based channel argument into a zero-based index.
// Out of range numbers are passed through for the timeline to reject.
func parseChannel(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: channel must be a number from 1 to %d", ErrUsage, timeline.NumChannels)
	}
	return n - 1, nil
}
