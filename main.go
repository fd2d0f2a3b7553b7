package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-smfplay/config"
	"go-smfplay/control"
	"go-smfplay/debug"
	"go-smfplay/midi"
	"go-smfplay/player"
	"go-smfplay/theme"
	"go-smfplay/tui"
)

// Version is set at build time
var Version = "dev"

type options struct {
	port     string
	rate     uint32
	period   uint32
	osc      string
	noSysex  bool
	logFile  string
	headless bool
	palette  string
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "go-smfplay [FILE]",
	Short: "Play Standard MIDI Files to a MIDI output port",
	Long: `go-smfplay plays Standard MIDI Files to a hardware or software MIDI port.

Channels can be muted and soloed while playing, and the transport can be
driven from the terminal UI, from stdin (--headless) or over OSC (--osc).`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVarP(&opts.port, "port", "p", "",
		"MIDI output port: name, index or part of a name (default: config, then port 0)")
	rootCmd.Flags().Uint32Var(&opts.rate, "rate", 0,
		"Frame rate of the playback clock in Hz (default: config)")
	rootCmd.Flags().Uint32Var(&opts.period, "period", 0,
		"Frames per clock cycle (default: config)")
	rootCmd.Flags().StringVar(&opts.osc, "osc", "",
		"Listen for OSC control on this UDP address (enables OSC)")
	rootCmd.Flags().BoolVar(&opts.noSysex, "no-sysex", false,
		"Do not send system exclusive messages")
	rootCmd.Flags().StringVarP(&opts.logFile, "log", "l", "",
		"Write debug logs to specified file")
	rootCmd.Flags().BoolVar(&opts.headless, "headless", false,
		"Read commands from stdin instead of running the terminal UI")
	rootCmd.Flags().StringVar(&opts.palette, "palette", "",
		"GIMP .gpl palette for the terminal UI")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlags(cmd, cfg)

	switch {
	case opts.logFile != "":
		err = debug.EnableFile(opts.logFile)
	case opts.headless:
		debug.EnableWriter(os.Stderr)
	default:
		err = debug.Enable()
	}
	if err != nil {
		return fmt.Errorf("debug log: %w", err)
	}
	defer debug.Disable()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ports := midi.NewPortManager()
	query := cfg.Output.PortName
	if query == "" {
		query = "0"
	}
	send, portName, err := ports.Open(query)
	if err != nil {
		return err
	}
	debug.Log("main", "output %s, %d Hz, period %d", portName, cfg.Output.SampleRate, cfg.Output.Period)

	engine := player.NewEngine()
	session := control.NewSession(engine, cfg.Output.SampleRate)
	session.SetSendSysex(cfg.Output.SendSysex)

	clock := player.NewClock(engine, send, cfg.Output.SampleRate, cfg.Output.Period)
	clockDone := make(chan struct{})
	go func() {
		clock.Run(ctx)
		close(clockDone)
	}()
	defer func() {
		cancel()
		<-clockDone
	}()
	go ports.Run(ctx)

	if cfg.OSC.Enabled {
		srv := control.NewOSCServer(session, cfg.OSC.Listen)
		defer srv.Close()
		if cfg.OSC.ReplyHost != "" && cfg.OSC.ReplyPort > 0 {
			srv.SetReply(cfg.OSC.ReplyHost, cfg.OSC.ReplyPort)
		}
		go func() {
			if err := srv.Run(ctx); err != nil {
				debug.Error("osc", "server stopped: %v", err)
			}
		}()
	}

	if len(args) == 1 {
		if err := session.Load(args[0]); err != nil {
			return err
		}
		cfg.AddRecent(args[0])
		if err := cfg.Save(); err != nil {
			debug.Error("main", "save config: %v", err)
		}
	}

	if opts.headless {
		return repl(ctx, session, os.Stdin, os.Stdout)
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Error("main", "palette %s: %v", cfg.UI.Palette, err)
	}
	m := tui.NewModel(session, ports, theme.New(palette), portName)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	session.Stop()
	return nil
}

// applyFlags overrides config values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Output.PortName = opts.port
	}
	if flags.Changed("rate") && opts.rate > 0 {
		cfg.Output.SampleRate = opts.rate
	}
	if flags.Changed("period") && opts.period > 0 {
		cfg.Output.Period = opts.period
	}
	if flags.Changed("osc") {
		cfg.OSC.Enabled = true
		cfg.OSC.Listen = opts.osc
	}
	if opts.noSysex {
		cfg.Output.SendSysex = false
	}
	if flags.Changed("palette") {
		cfg.UI.Palette = opts.palette
	}
}

// repl executes one command per input line until EOF, "quit" or ctx ends.
func repl(ctx context.Context, session *control.Session, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Fprintln(out, "go-smfplay", Version, "(type help for commands)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || line == "quit" || line == "exit" {
				session.Stop()
				return nil
			}
			reply, err := session.Exec(line)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
		}
	}
}
