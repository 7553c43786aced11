package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/asset"
	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/karaoke"
	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/lyrics"
	"karolbroda.com/syllecho/internal/player"
	"karolbroda.com/syllecho/internal/terminal"
	"karolbroda.com/syllecho/internal/ui"
	"karolbroda.com/syllecho/internal/watch"
)

var (
	// playback and lyrics source flags
	audioPath       string
	noAudio         bool
	translationPath string
	formatName      string
	syncOffset      int64
	maxHold         time.Duration
	noCache         bool

	// viewer-only flags
	coverPath     string
	hideHeader    bool
	noWatch       bool
	frameInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <lyrics-file>",
	Short: "start the interactive karaoke viewer",
	Long: `starts the terminal karaoke viewer. lines scroll into place as they come up
and each syllable lights up while it is sung.

keys: space pause, left/right seek 5s, up/down or click jump to a line,
+/- nudge the sync offset by 100ms, 0 reset it, tab toggle the header, q quit.`,
	Args: cobra.ExactArgs(1),
	RunE: runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addViewerFlags(runCmd)
}

func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&audioPath, "audio", "", "play this mp3 or wav file and follow it")
	f.BoolVar(&noAudio, "no-audio", false, "follow a silent clock instead of a player")
	f.StringVarP(&translationPath, "translation", "t", "", "lrc file with line translations")
	f.StringVar(&formatName, "format", "", "force the lyrics format: lys, qrc, lrc (default: detect)")
	f.Int64VarP(&syncOffset, "sync-offset", "s", 0, "sync offset in milliseconds, positive shows lyrics earlier")
	f.DurationVar(&maxHold, "max-hold", 0, "longest gap a finished line stays lit (0 holds until the next line)")
	f.BoolVar(&noCache, "no-cache", false, "always re-parse instead of reusing the cached timeline")
	cmd.MarkFlagsMutuallyExclusive("audio", "no-audio")
}

func addViewerFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&coverPath, "cover", "", "cover image for the header and color palette")
	f.BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	f.BoolVar(&noWatch, "no-watch", false, "do not reload the lyrics file when it changes")
	f.DurationVar(&frameInterval, "frame-interval", 0, "time between frames (default 33ms)")
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("sync-offset") {
		cfg.SyncOffsetMillis = syncOffset
	}
	if flags.Changed("max-hold") {
		cfg.MaxHold = maxHold
	}
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}
	if flags.Changed("frame-interval") {
		cfg.FrameInterval = config.ClampFrameInterval(frameInterval)
	}
}

func assetOptions(diskCache *cache.DiskCache) (asset.Options, error) {
	opts := asset.Options{
		TranslationPath: translationPath,
		Cache:           diskCache,
		NoCache:         noCache,
	}
	if formatName != "" {
		format, err := lyrics.ParseFormat(formatName)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	return opts, nil
}

// playback owns whichever driver was picked and everything it holds open.
type playback struct {
	driver  player.Controller
	service *player.Service
	local   *player.Local
	bus     *dbus.Conn
}

// openPlayback picks the driver: a local audio file, then an mpris player
// when one is configured, then a silent clock.
func openPlayback() (*playback, error) {
	switch {
	case audioPath != "":
		local, err := player.OpenLocal(audioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio: %w", err)
		}
		if !player.AudioAvailable {
			fmt.Fprintln(os.Stderr, "warning: built without cgo, audio will not be heard")
		}
		return &playback{driver: local, local: local}, nil

	case noAudio || cfg.MprisService == "":
		logger.Info("run: following a silent clock")
		return &playback{driver: player.NewClock(0)}, nil
	}

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	service, err := player.NewService(bus, player.ResolveService(cfg.MprisService))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to create player service: %w", err)
	}

	if err := service.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not set up dbus signals: %v\n", err)
	}
	if err := service.Poll(); err != nil {
		logger.Warn("run: initial poll of %s: %v", service.Name(), err)
	}

	return &playback{driver: service, service: service, bus: bus}, nil
}

func (p *playback) start() {
	if p.local != nil {
		p.local.Start()
	}
}

func (p *playback) Close() {
	if p.service != nil {
		p.service.Stop()
	}
	if p.local != nil {
		if err := p.local.Close(); err != nil {
			logger.Warn("run: closing audio: %v", err)
		}
	}
	if p.bus != nil {
		p.bus.Close()
	}
}

func runViewer(cmd *cobra.Command, args []string) error {
	lyricsPath := args[0]
	if _, err := os.Stat(lyricsPath); err != nil {
		return fmt.Errorf("lyrics file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer terminal.Reset()

	applyFlags(cmd)

	diskCache := cache.GetGlobalCache()
	opts, err := assetOptions(diskCache)
	if err != nil {
		return err
	}

	pb, err := openPlayback()
	if err != nil {
		return err
	}
	defer pb.Close()

	session := karaoke.NewSession(karaoke.HoldPolicy{MaxHold: cfg.MaxHold})
	session.SetSyncOffset(cfg.SyncOffsetMillis)

	var watcher *watch.Watcher
	if !noWatch {
		watcher, err = watch.New(lyricsPath, watch.DefaultDebounce)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: live reload disabled: %v\n", err)
			watcher = nil
		}
	}

	model := ui.NewModel(ui.ModelConfig{
		LyricsPath:    lyricsPath,
		Driver:        pb.driver,
		Player:        pb.service,
		Session:       session,
		Watcher:       watcher,
		Cache:         diskCache,
		AssetOptions:  opts,
		CoverPath:     coverPath,
		HideHeader:    cfg.HideHeader,
		FrameInterval: cfg.FrameInterval,
		TermCaps:      terminal.DetectCapabilities(),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if pb.local != nil {
		go func() {
			select {
			case <-pb.local.Done():
				logger.Info("run: %s finished", audioPath)
			case <-ctx.Done():
			}
		}()
	}

	pb.start()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	if m, ok := final.(ui.Model); ok {
		m.Stop()
	}

	return nil
}
