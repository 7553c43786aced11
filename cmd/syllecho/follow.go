package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/asset"
	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/karaoke"
	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/timeline"
)

var followCmd = &cobra.Command{
	Use:   "follow <lyrics-file>",
	Short: "print lines as they are sung, without the TUI",
	Long: `runs the sync engine headless and prints each line when it becomes active.
useful for piping into other tools or checking timing against a player.`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	rootCmd.AddCommand(followCmd)
	addSourceFlags(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	applyFlags(cmd)

	opts, err := assetOptions(cache.GetGlobalCache())
	if err != nil {
		return err
	}

	a, err := asset.Load(args[0], opts)
	if err != nil {
		return err
	}
	for _, issue := range a.Issues {
		fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
	}

	pb, err := openPlayback()
	if err != nil {
		return err
	}
	defer pb.Close()

	if setter, ok := pb.driver.(interface{ SetDurationMillis(int64) }); ok && pb.driver.DurationMillis() == 0 {
		setter.SetDurationMillis(a.Timeline.End() + config.ClockTailMillis)
	}

	session := karaoke.NewSession(karaoke.HoldPolicy{MaxHold: cfg.MaxHold})
	offset := cfg.SyncOffsetMillis
	if offset == 0 && !cmd.Flags().Changed("sync-offset") {
		offset = a.SyncOffsetMillis
	}
	session.SetSyncOffset(offset)
	session.Publish(a.Timeline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := newLinePrinter(os.Stdout, a.Timeline)
	// an mpris player may start another track, so only local playback ends
	if pb.service == nil {
		printer.onEnd = stop
	}
	if pb.local != nil {
		go func() {
			select {
			case <-pb.local.Done():
				stop()
			case <-ctx.Done():
			}
		}()
	}

	loop := &karaoke.Loop{
		Frames:    karaoke.TickerFrames(cfg.FrameInterval),
		Driver:    pb.driver,
		Presenter: printer,
		Session:   session,
	}

	logger.Info("follow: %s (%s, %d lines)", a.Path, a.Format, a.Timeline.Len())
	pb.start()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// linePrinter writes a line once when it becomes active, plus a marker for
// long instrumental gaps and the end of the lyrics.
type linePrinter struct {
	out     io.Writer
	tl      *timeline.Timeline
	printed int
	inGap   bool
	ended   bool
	onEnd   func()

	stamp lipgloss.Style
	trans lipgloss.Style
}

func newLinePrinter(out io.Writer, tl *timeline.Timeline) *linePrinter {
	return &linePrinter{
		out:     out,
		tl:      tl,
		printed: timeline.None,
		stamp:   lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
		trans:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A0A0A0")),
	}
}

const gapMarkerMillis = 3000

func (p *linePrinter) Render(v karaoke.VisualState) {
	if v.Phase != karaoke.PhaseEnded {
		p.ended = false
	}

	switch v.Phase {
	case karaoke.PhaseActive:
		p.inGap = false
		if v.ActiveLine == p.printed {
			return
		}
		p.printed = v.ActiveLine
		p.printLine(v.ActiveLine)

	case karaoke.PhaseGap, karaoke.PhasePreRoll:
		p.printed = timeline.None
		next, ok := p.tl.Line(v.Scroll.Line)
		if p.inGap || !ok || next.Start-v.Position < gapMarkerMillis {
			return
		}
		p.inGap = true
		fmt.Fprintf(p.out, "%s ♪\n", p.stamp.Render("["+timeline.FormatMillis(v.Position)+"]"))

	case karaoke.PhaseEnded:
		if p.ended {
			return
		}
		p.ended = true
		p.printed = timeline.None
		fmt.Fprintln(p.out, p.stamp.Render("-- end --"))
		if p.onEnd != nil {
			p.onEnd()
		}
	}
}

func (p *linePrinter) printLine(idx int) {
	line, ok := p.tl.Line(idx)
	if !ok {
		return
	}

	text := line.Text()
	if line.IsMarker() {
		text = "♪"
	}
	if line.Background {
		text = "(" + text + ")"
	}

	fmt.Fprintf(p.out, "%s %s\n", p.stamp.Render("["+timeline.FormatMillis(line.Start)+"]"), text)
	if line.Translation != "" {
		fmt.Fprintf(p.out, "        %s\n", p.trans.Render(line.Translation))
	}
}
