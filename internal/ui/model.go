package ui

import (
	"image"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/syllecho/internal/artwork"
	"karolbroda.com/syllecho/internal/asset"
	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/karaoke"
	"karolbroda.com/syllecho/internal/lyrics"
	"karolbroda.com/syllecho/internal/player"
	"karolbroda.com/syllecho/internal/terminal"
	"karolbroda.com/syllecho/internal/timeline"
	"karolbroda.com/syllecho/internal/track"
	"karolbroda.com/syllecho/internal/watch"
)

// TickMsg is the frame signal.
type TickMsg time.Time

// PollMsg asks the MPRIS service to refresh its state.
type PollMsg time.Time

type LyricsLoadedMsg struct {
	Asset  *asset.Asset
	Result karaoke.LoadResult
}

// LyricsChangedMsg is sent when the lyrics file changed on disk.
type LyricsChangedMsg struct {
	Path string
}

type ArtworkLoadedMsg struct {
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type PlayerEventMsg struct {
	Event player.EventData
}

type offsetSavedMsg struct {
	Err error
}

// durationSetter is implemented by drivers that cannot know the song length
// on their own.
type durationSetter interface {
	SetDurationMillis(ms int64)
}

type Model struct {
	driver  player.Controller
	player  *player.Service
	session *karaoke.Session
	loader  *karaoke.Loader
	watcher *watch.Watcher
	cache   *cache.DiskCache

	lyricsPath    string
	assetOpts     asset.Options
	coverPath     string
	hideHeader    bool
	frameInterval time.Duration
	termCaps      *terminal.Capabilities

	track     *track.Info
	image     image.Image
	palette   *artwork.Palette
	format    lyrics.Format
	issues    int
	state     karaoke.VisualState
	position  int64
	loading   bool
	loaded    bool
	err       error
	quitting  bool
	width     int
	height    int
	tickCount int
	animState AnimState
}

type ModelConfig struct {
	LyricsPath string
	Driver     player.Controller
	// Player is set when the driver is an MPRIS service, for track events.
	Player        *player.Service
	Session       *karaoke.Session
	Loader        *karaoke.Loader
	Watcher       *watch.Watcher
	Cache         *cache.DiskCache
	AssetOptions  asset.Options
	CoverPath     string
	HideHeader    bool
	FrameInterval time.Duration
	TermCaps      *terminal.Capabilities
}

func NewModel(cfg ModelConfig) Model {
	session := cfg.Session
	if session == nil {
		session = karaoke.NewSession(karaoke.HoldPolicy{})
	}
	loader := cfg.Loader
	if loader == nil {
		loader = karaoke.NewLoader(session)
	}

	opts := cfg.AssetOptions
	if opts.Cache == nil {
		opts.Cache = cfg.Cache
	}

	m := Model{
		driver:        cfg.Driver,
		player:        cfg.Player,
		session:       session,
		loader:        loader,
		watcher:       cfg.Watcher,
		cache:         cfg.Cache,
		lyricsPath:    cfg.LyricsPath,
		assetOpts:     opts,
		coverPath:     cfg.CoverPath,
		hideHeader:    cfg.HideHeader,
		frameInterval: config.ClampFrameInterval(cfg.FrameInterval),
		termCaps:      cfg.TermCaps,
		palette:       artwork.DefaultPalette(),
		state:         session.Last(),
		loading:       true,
	}

	if m.driver == nil {
		m.driver = player.NewClock(0)
	}

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.tickCmd(),
		m.loadLyricsCmd(),
		m.listenForPlayerEvents(),
		m.listenForChanges(),
	}

	if m.player != nil {
		cmds = append(cmds, pollCmd())
	}

	if cover := m.initialCover(); cover != "" {
		cmds = append(cmds, loadArtworkCmd(cover))
	}

	return tea.Batch(cmds...)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.frameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func pollCmd() tea.Cmd {
	return tea.Tick(config.PollInterval, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.player == nil {
		return nil
	}

	return func() tea.Msg {
		event, ok := <-m.player.Events()
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

func (m Model) listenForChanges() tea.Cmd {
	if m.watcher == nil {
		return nil
	}

	return func() tea.Msg {
		path, ok := <-m.watcher.Changes()
		if !ok {
			return nil
		}
		return LyricsChangedMsg{Path: path}
	}
}

// loadLyricsCmd parses through the Loader, so a reload that finishes after a
// newer one never replaces the published timeline.
func (m Model) loadLyricsCmd() tea.Cmd {
	loader := m.loader
	path := m.lyricsPath
	opts := m.assetOpts

	return func() tea.Msg {
		done := make(chan LyricsLoadedMsg, 1)
		var loaded *asset.Asset

		loader.Load(func() (*timeline.Timeline, error) {
			a, err := asset.Load(path, opts)
			if err != nil {
				return nil, err
			}
			loaded = a
			return a.Timeline, nil
		}, func(result karaoke.LoadResult) {
			done <- LyricsLoadedMsg{Asset: loaded, Result: result}
		})

		return <-done
	}
}

func (m Model) initialCover() string {
	if m.coverPath != "" {
		return m.coverPath
	}
	if found, ok := artwork.FindCover(m.lyricsPath); ok {
		return found
	}
	return ""
}

// title falls back from the player's track to the file's tags to the file
// name.
func (m Model) title() (string, string, string) {
	if m.track != nil && m.track.IsValid() {
		return m.track.Title, m.track.Artist, m.track.Album
	}

	meta := m.session.Timeline().Metadata()
	title := meta.Title
	if title == "" {
		base := filepath.Base(m.lyricsPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return title, meta.Artist, meta.Album
}

func (m Model) durationMillis() int64 {
	if d := m.driver.DurationMillis(); d > 0 {
		return d
	}
	return m.session.Timeline().End()
}

func (m Model) Width() int                 { return m.width }
func (m Model) Height() int                { return m.height }
func (m Model) State() karaoke.VisualState { return m.state }
func (m Model) Palette() *artwork.Palette  { return m.palette }
func (m Model) HideHeader() bool           { return m.hideHeader }
func (m Model) Err() error                 { return m.err }
func (m Model) IsLoading() bool            { return m.loading }
func (m Model) IsQuitting() bool           { return m.quitting }
func (m Model) SyncOffset() int64          { return m.session.SyncOffset() }
func (m Model) AnimState() *AnimState      { return &m.animState }

func (m *Model) Stop() {
	m.loader.Close()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	if m.player != nil {
		m.player.Stop()
	}
}
