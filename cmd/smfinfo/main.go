// smfinfo inspects MIDI output ports and Standard MIDI Files.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-smfplay/midi"
	"go-smfplay/song"
	"go-smfplay/timeline"
)

var (
	rate    uint32
	markers bool
)

var rootCmd = &cobra.Command{
	Use:   "smfinfo",
	Short: "Inspect MIDI ports and Standard MIDI Files",
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("(waiting up to %v...)\n", midi.ScanTimeout)
		outs, err := midi.Outputs(midi.ScanTimeout)
		if errors.Is(err, midi.ErrScanTimeout) {
			fmt.Println("TIMEOUT! CoreMIDI is hung.")
			fmt.Println("Fix: sudo killall coreaudiod midiserver")
			return err
		}
		if err != nil {
			return err
		}
		fmt.Println("=== MIDI Output Ports ===")
		for i, p := range outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Show time base, tracks, tempo and channels of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, root, err := open(args[0])
		if err != nil {
			return err
		}
		defer root.Free()
		printInfo(os.Stdout, tree, root)
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Print every time node with its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, root, err := open(args[0])
		if err != nil {
			return err
		}
		defer root.Free()
		printDump(os.Stdout, root)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Uint32Var(&rate, "rate", 48000, "Frame rate in Hz used to place events")
	dumpCmd.Flags().BoolVar(&markers, "markers", false, "Include empty entrypoint marker nodes")
	rootCmd.AddCommand(portsCmd, infoCmd, dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open(path string) (*song.Tree, *timeline.Root, error) {
	tree, err := song.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := timeline.NewRoot(path, tree, rate, timeline.Options{EntrypointMarkers: markers})
	if err != nil {
		return nil, nil, err
	}
	return tree, root, nil
}

func printInfo(w io.Writer, tree *song.Tree, root *timeline.Root) {
	fmt.Fprintf(w, "file:      %s\n", root.Filename())
	fmt.Fprintf(w, "format:    %d\n", tree.Format)
	fmt.Fprintf(w, "time base: %d ticks per quarter\n", root.TimeBase())
	fmt.Fprintf(w, "duration:  %v (%d frames at %d Hz)\n",
		root.Duration().Round(time.Millisecond), root.LastFrame(), root.SampleRate())
	fmt.Fprintf(w, "tempo:     %.2f bpm at start, %d tempo segments\n",
		60e6/float64(root.Tempo().TempoAt(0)), root.Tempo().Changes())
	fmt.Fprintf(w, "events:    %d in %d nodes\n", root.EventCount(), root.Len())

	fmt.Fprintf(w, "\ntracks:\n")
	for i, tr := range tree.Tracks {
		name := tr.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "  %2d  %-24s %d events\n", i, name, len(tr.Elements))
	}

	fmt.Fprintf(w, "\nchannels:\n")
	for ch := 0; ch < timeline.NumChannels; ch++ {
		c := root.Channel(ch)
		if !c.HasData() {
			continue
		}
		fmt.Fprintf(w, "  %2d  %s\n", c.Number(), c.Program())
	}
}

func printDump(w io.Writer, root *timeline.Root) {
	for t := root.Head(); t != nil; t = t.Next() {
		if t.IsMarker() {
			fmt.Fprintf(w, "%8d %10d  marker\n", t.Tick(), t.Frame())
			continue
		}
		for i := 0; i < t.Len(); i++ {
			fmt.Fprintf(w, "%8d %10d  % X\n", t.Tick(), t.Frame(), t.Event(i).Data())
		}
	}
}
