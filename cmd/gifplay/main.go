// gifplay decodes an animated GIF, prints its frame schedule and optionally
// dumps or plays the expanded frames.
package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/mixcode/gifplay"
)

type Args struct {
	Source string `arg:"positional,required" help:"GIF file, or resource name when --bundle is set"`
	Bundle string `arg:"-b,--bundle" help:"directory to look up <SOURCE>.gif in"`
	Dump   string `arg:"-o,--dump" help:"write the expanded frames as PNG files into this directory"`
	Play   bool   `arg:"-p,--play" help:"play the animation in the terminal"`
	Repeat int    `arg:"-r,--repeat" help:"passes to play, 0 uses the loop count stored in the file"`
	Width  int    `arg:"-w,--width" default:"40" help:"terminal preview width in cells"`
	Debug  bool   `arg:"-d,--debug" help:"log to stderr"`
}

func (Args) Description() string {
	return "Decode an animated GIF into frames of one uniform tick."
}

var args Args

func main() {
	p := arg.MustParse(&args)
	// optional .env with GIFPLAY_* settings
	_ = godotenv.Load()

	if args.Debug {
		gifplay.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts, err := gifplay.LoadOptions(ctx)
	if err != nil {
		p.Fail("config: " + err.Error())
	}
	dec := gifplay.NewDecoder(opts)

	var seq *gifplay.Sequence
	if args.Bundle != "" {
		seq = dec.DecodeResource(os.DirFS(args.Bundle), args.Source)
	} else {
		data, err := os.ReadFile(args.Source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		seq = dec.Decode(data)
	}
	if seq == nil {
		fmt.Fprintf(os.Stderr, "%s: no animation\n", args.Source)
		os.Exit(1)
	}

	printSchedule(seq)

	if args.Dump != "" {
		if err := dumpFrames(args.Dump, seq); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if args.Play {
		repeat := args.Repeat
		if repeat <= 0 {
			repeat = seq.LoopCount
		}
		play(ctx, seq, repeat, args.Width)
	}
}

func printSchedule(seq *gifplay.Sequence) {
	loop := fmt.Sprint(seq.LoopCount)
	if seq.LoopCount == gifplay.RepeatForever {
		loop = "forever"
	}
	fmt.Printf("size %dx%d, %d frames, tick %v, duration %v, loop %s\n",
		seq.Width, seq.Height, len(seq.Counts), seq.Tick, seq.Duration, loop)
	if len(seq.ICCProfile) > 0 {
		fmt.Printf("ICC profile %d bytes\n", len(seq.ICCProfile))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tDELAY\tTICKS")
	for i, d := range seq.Delays {
		fmt.Fprintf(w, "%d\t%v\t%d\n", i, d, seq.Counts[i])
	}
	_ = w.Flush()
}

func dumpFrames(dir string, seq *gifplay.Sequence) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, f := range seq.Frames {
		name := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
		if err := writePNG(name, f); err != nil {
			return err
		}
	}
	gifplay.Logger().Info("frames written", "dir", dir, "count", len(seq.Frames))
	return nil
}

func writePNG(name string, img image.Image) error {
	fo, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(fo, img); err != nil {
		fo.Close()
		return err
	}
	return fo.Close()
}

func play(ctx context.Context, seq *gifplay.Sequence, repeat, width int) {
	term := newTerminal(os.Stdout, width, seq.Width, seq.Height)
	player := gifplay.NewTickerPlayer(term.render)

	done := make(chan struct{})
	term.begin()
	player.Play(seq, repeat, func() { close(done) })

	select {
	case <-done:
	case <-ctx.Done():
		player.Stop()
	}
	term.end()
}
