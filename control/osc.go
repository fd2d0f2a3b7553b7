package control

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"go-smfplay/debug"
	"go-smfplay/timeline"
)

// OSCPrefix is the address space served by OSCServer.
const OSCPrefix = "/smfplay"

// OSCServer exposes a Session over OSC/UDP.
//
//	/smfplay/load s         /smfplay/unload
//	/smfplay/play           /smfplay/stop
//	/smfplay/locate f       (seconds)
//	/smfplay/mute i         /smfplay/unmute i    (channel 1-16)
//	/smfplay/solo i         (0 clears the solo)
//	/smfplay/sysex i        (0 or 1)
//	/smfplay/status
//
// When a reply client is set, every handled message is answered with
// /smfplay/status carrying the file, position in seconds and playing flag,
// and failures with /smfplay/error carrying the message. Loads and unloads
// from any surface are announced as /smfplay/loaded s and /smfplay/unloaded.
type OSCServer struct {
	session    *Session
	addr       string
	dispatcher *osc.StandardDispatcher
	reply      atomic.Pointer[osc.Client]
	listener   timeline.ListenerID
}

// NewOSCServer creates a server listening on addr (host:port).
func NewOSCServer(s *Session, addr string) *OSCServer {
	o := &OSCServer{
		session:    s,
		addr:       addr,
		dispatcher: osc.NewStandardDispatcher(),
	}
	o.handle("load", func(msg *osc.Message) error {
		path, err := stringArg(msg)
		if err != nil {
			return err
		}
		return s.Load(path)
	})
	o.handle("unload", func(*osc.Message) error { return s.Unload() })
	o.handle("play", func(*osc.Message) error { return s.Play() })
	o.handle("stop", func(*osc.Message) error {
		s.Stop()
		return nil
	})
	o.handle("locate", func(msg *osc.Message) error {
		sec, err := floatArg(msg)
		if err != nil {
			return err
		}
		return s.Locate(time.Duration(sec * float64(time.Second)))
	})
	o.handle("mute", func(msg *osc.Message) error {
		ch, err := intArg(msg)
		if err != nil {
			return err
		}
		return s.Mute(ch - 1)
	})
	o.handle("unmute", func(msg *osc.Message) error {
		ch, err := intArg(msg)
		if err != nil {
			return err
		}
		return s.Unmute(ch - 1)
	})
	o.handle("solo", func(msg *osc.Message) error {
		ch, err := intArg(msg)
		if err != nil {
			return err
		}
		if ch == 0 {
			return s.Unsolo()
		}
		return s.Solo(ch - 1)
	})
	o.handle("sysex", func(msg *osc.Message) error {
		on, err := intArg(msg)
		if err != nil {
			return err
		}
		s.SetSendSysex(on != 0)
		return nil
	})
	o.handle("status", func(*osc.Message) error { return nil })
	o.listener = s.Registry().Add(o.announce)
	return o
}

// Close stops announcing loads and unloads.
func (o *OSCServer) Close() {
	o.session.Registry().Remove(o.listener)
}

func (o *OSCServer) announce(root *timeline.Root) {
	client := o.reply.Load()
	if client == nil {
		return
	}
	msg := osc.NewMessage(OSCPrefix + "/unloaded")
	if root != nil {
		msg = osc.NewMessage(OSCPrefix+"/loaded", root.Filename())
	}
	if err := client.Send(msg); err != nil {
		debug.Log("osc", "announce: %v", err)
	}
}

// SetReply sends replies to host:port.
func (o *OSCServer) SetReply(host string, port int) {
	o.reply.Store(osc.NewClient(host, port))
}

func (o *OSCServer) handle(name string, fn func(*osc.Message) error) {
	addr := OSCPrefix + "/" + name
	o.dispatcher.AddMsgHandler(addr, func(msg *osc.Message) {
		err := fn(msg)
		if err != nil {
			debug.Log("osc", "%s: %v", addr, err)
		} else {
			debug.Log("osc", "%s %v", addr, msg.Arguments)
		}
		o.answer(err)
	})
}

// Dispatch handles one message as if it had arrived over the network.
func (o *OSCServer) Dispatch(msg *osc.Message) {
	o.dispatcher.Dispatch(msg)
}

func (o *OSCServer) answer(err error) {
	client := o.reply.Load()
	if client == nil {
		return
	}
	var msg *osc.Message
	if err != nil {
		msg = osc.NewMessage(OSCPrefix+"/error", err.Error())
	} else {
		st := o.session.Status()
		msg = osc.NewMessage(OSCPrefix+"/status", st.Filename, float32(st.Position.Seconds()), boolInt(st.Playing))
	}
	if err := client.Send(msg); err != nil {
		debug.Log("osc", "reply: %v", err)
	}
}

// Run serves until ctx is done.
func (o *OSCServer) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", o.addr)
	if err != nil {
		return fmt.Errorf("osc listen %s: %w", o.addr, err)
	}
	return o.Serve(ctx, conn)
}

// Serve serves on conn until ctx is done, then closes it.
func (o *OSCServer) Serve(ctx context.Context, conn net.PacketConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	debug.Log("osc", "listening on %s", conn.LocalAddr())
	server := &osc.Server{Addr: o.addr, Dispatcher: o.dispatcher}
	err := server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func stringArg(msg *osc.Message) (string, error) {
	if len(msg.Arguments) > 0 {
		if s, ok := msg.Arguments[0].(string); ok && strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s expects a string", ErrUsage, msg.Address)
}

// intArg accepts int32, int64 or float arguments, as sent by different
// OSC clients.
func intArg(msg *osc.Message) (int, error) {
	if len(msg.Arguments) > 0 {
		switch v := msg.Arguments[0].(type) {
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case float32:
			return int(v), nil
		case float64:
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %s expects an integer", ErrUsage, msg.Address)
}

func floatArg(msg *osc.Message) (float64, error) {
	if len(msg.Arguments) > 0 {
		switch v := msg.Arguments[0].(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %s expects a number", ErrUsage, msg.Address)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
