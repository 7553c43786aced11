package ui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/syllecho/internal/artwork"
	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/player"
	"karolbroda.com/syllecho/internal/timeline"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case TickMsg:
		return m.handleTick()

	case PollMsg:
		return m.handlePoll()

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case LyricsLoadedMsg:
		return m.handleLyricsLoaded(msg)

	case LyricsChangedMsg:
		logger.Info("ui: %s changed, reloading", msg.Path)
		m.loading = true
		return m, tea.Batch(m.loadLyricsCmd(), m.listenForChanges())

	case ArtworkLoadedMsg:
		return m.handleArtworkLoaded(msg)

	case offsetSavedMsg:
		if msg.Err != nil && !errors.Is(msg.Err, cache.ErrCacheMiss) {
			logger.Warn("ui: failed to save sync offset: %v", msg.Err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case " ", "space", "p":
		if err := m.driver.TogglePause(); err != nil {
			logger.Warn("ui: toggle pause: %v", err)
		}
		return m, nil

	case "left", "h":
		return m.seekBy(-config.SeekStepMillis)

	case "right", "l":
		return m.seekBy(config.SeekStepMillis)

	case "up", "k":
		return m.activate(m.state.Scroll.Line - 1)

	case "down", "j":
		return m.activate(m.state.Scroll.Line + 1)

	case "+", "=":
		m.session.AdjustSyncOffset(config.OffsetStepMillis)
		return m, m.saveSyncOffsetCmd()

	case "-", "_":
		m.session.AdjustSyncOffset(-config.OffsetStepMillis)
		return m, m.saveSyncOffsetCmd()

	case "0":
		m.session.SetSyncOffset(0)
		return m, m.saveSyncOffsetCmd()

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		return m, nil
	}

	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonLeft:
		if idx := m.lineAt(msg.Y); idx != timeline.None {
			return m.activate(idx)
		}
	case tea.MouseButtonWheelUp:
		return m.activate(m.state.Scroll.Line - 1)
	case tea.MouseButtonWheelDown:
		return m.activate(m.state.Scroll.Line + 1)
	}

	return m, nil
}

// activate seeks to the start of line idx and recomputes the frame at once
// so the view does not wait a tick to follow.
func (m Model) activate(idx int) (tea.Model, tea.Cmd) {
	tl := m.session.Timeline()
	if tl.Len() == 0 {
		return m, nil
	}
	idx = max(0, min(idx, tl.Len()-1))

	if err := m.session.Activate(idx, m.driver); err != nil {
		logger.Warn("ui: %v", err)
		return m, nil
	}

	m.frame()
	m.animState.SetTarget(float64(m.state.Scroll.Line))
	return m, nil
}

func (m Model) seekBy(delta int64) (tea.Model, tea.Cmd) {
	target := max(0, m.driver.CurrentPositionMillis()+delta)
	if err := m.driver.SeekTo(target); err != nil {
		logger.Warn("ui: seek to %dms: %v", target, err)
		return m, nil
	}

	m.frame()
	m.animState.Jump(float64(m.state.Scroll.Line))
	return m, nil
}

func (m Model) saveSyncOffsetCmd() tea.Cmd {
	if m.cache == nil {
		return nil
	}

	c, path, offset := m.cache, m.lyricsPath, m.session.SyncOffset()
	return func() tea.Msg {
		return offsetSavedMsg{Err: c.SetSyncOffset(path, offset)}
	}
}

// frame samples the driver and replaces the visual state.
func (m *Model) frame() {
	m.position = m.driver.CurrentPositionMillis()
	m.session.SetDurationMillis(m.driver.DurationMillis())
	m.state = m.session.Frame(m.position)
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	if m.loaded {
		prevLine := m.state.Scroll.Line
		m.frame()
		if m.state.Scroll.Line != prevLine {
			m.animState.SetTarget(float64(m.state.Scroll.Line))
		}
	}
	m.animState.Update(m.tickCount, m.frameInterval)

	return m, m.tickCmd()
}

func (m Model) handlePoll() (tea.Model, tea.Cmd) {
	if m.player == nil {
		return m, nil
	}

	// Poll talks to the bus, keep it off the update goroutine
	svc := m.player
	return m, tea.Batch(
		func() tea.Msg {
			if err := svc.Poll(); err != nil {
				logger.Debug("ui: poll: %v", err)
			}
			return nil
		},
		pollCmd(),
	)
}

func (m Model) handlePlayerEvent(event player.EventData) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForPlayerEvents()}

	switch event.Type {
	case player.EventTrackChanged:
		m.track = event.Track
		if m.coverPath == "" && event.Track != nil {
			if path, ok := event.Track.ArtworkPath(); ok {
				cmds = append(cmds, loadArtworkCmd(path))
			}
		}

	case player.EventSeeked:
		if m.loaded {
			m.frame()
			m.animState.Jump(float64(m.state.Scroll.Line))
		}

	case player.EventPlaybackStateChanged:
		logger.Debug("ui: playing=%v", event.Playing)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleLyricsLoaded(msg LyricsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Result.Stale {
		return m, nil
	}

	m.loading = false

	if msg.Result.Err != nil {
		// keep showing the last good timeline after a bad edit
		m.err = msg.Result.Err
		return m, nil
	}

	firstLoad := !m.loaded
	m.loaded = true
	m.err = nil

	if a := msg.Asset; a != nil {
		m.format = a.Format
		m.issues = len(a.Issues)
		if firstLoad && a.SyncOffsetMillis != 0 && m.session.SyncOffset() == 0 {
			m.session.SetSyncOffset(a.SyncOffsetMillis)
		}
	}

	if setter, ok := m.driver.(durationSetter); ok && m.driver.DurationMillis() == 0 {
		setter.SetDurationMillis(msg.Result.Timeline.End() + config.ClockTailMillis)
	}

	m.frame()
	if firstLoad {
		m.animState.Jump(float64(m.state.Scroll.Line))
	} else {
		m.animState.SetTarget(float64(m.state.Scroll.Line))
	}

	return m, nil
}

func (m Model) handleArtworkLoaded(msg ArtworkLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logger.Debug("ui: artwork: %v", msg.Err)
		return m, nil
	}

	m.image = msg.Image
	if msg.Palette != nil {
		m.palette = msg.Palette
	}
	return m, nil
}

func loadArtworkCmd(path string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		img, err := artwork.Load(path)
		if err != nil {
			return ArtworkLoadedMsg{Err: err}
		}
		palette := artwork.ExtractPalette(img)
		logger.Debug("ui: artwork %s loaded in %v", path, time.Since(start))
		return ArtworkLoadedMsg{Image: img, Palette: palette}
	}
}
