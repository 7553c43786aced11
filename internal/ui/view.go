package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"karolbroda.com/syllecho/internal/artwork"
	"karolbroda.com/syllecho/internal/colors"
	"karolbroda.com/syllecho/internal/karaoke"
	"karolbroda.com/syllecho/internal/terminal"
	"karolbroda.com/syllecho/internal/timeline"
)

const (
	lineSpacing = 1
	// gaps shorter than this get no interlude dots
	interludeMinMillis = 3000
	bannerText         = "syllecho"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.screenSize()

	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	if !m.loaded {
		return m.renderWaitingScreen(palette, width, height)
	}

	return m.renderMainScreen(palette, width, height)
}

func (m Model) screenSize() (int, int) {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}
	return width, height
}

func (m Model) renderWaitingScreen(palette *artwork.Palette, width int, height int) string {
	var body []string

	banner := figure.NewFigure(bannerText, "small", true).Slicify()
	bannerWidth := lo.Max(lo.Map(banner, func(row string, _ int) int { return runewidth.StringWidth(row) }))
	if bannerWidth < width-4 && len(banner)+4 < height {
		for _, row := range banner {
			body = append(body, centerText(colors.GradientText(row, palette.Gradient, true), bannerWidth, width))
		}
		body = append(body, "")
	}

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
		errText := runewidth.Truncate(m.err.Error(), width-4, "…")
		body = append(body, centerText(errStyle.Render(errText), runewidth.StringWidth(errText), width))
	} else {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		idx := (m.tickCount / 3) % len(frames)
		spinnerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)
		msgText := spinnerStyle.Render(frames[idx]) + textStyle.Render(" loading lyrics")
		body = append(body, centerText(msgText, 15, width))
	}

	lines := make([]string, 0, height)
	for i := 0; i < (height-len(body))/2; i++ {
		lines = append(lines, "")
	}
	lines = append(lines, body...)

	return strings.Join(fitHeight(lines, height), "\n")
}

func (m Model) renderMainScreen(palette *artwork.Palette, width int, height int) string {
	var lines []string

	if !m.hideHeader {
		lines = append(lines, m.renderCompactHeader(palette, width, height)...)
	}

	lyricsHeight := max(0, height-len(lines))
	lines = append(lines, m.renderLyrics(palette, lyricsHeight, width)...)

	return strings.Join(fitHeight(lines, height), "\n")
}

func fitHeight(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}

func (m Model) headerHeight(width int, height int) int {
	if m.hideHeader || !m.loaded {
		return 0
	}
	return len(m.renderCompactHeader(m.palette, width, height))
}

func (m Model) renderCompactHeader(palette *artwork.Palette, width int, height int) []string {
	var lines []string

	lines = append(lines, "")

	artWidth := 12
	artHeight := 6
	if width < 80 {
		artWidth = 8
		artHeight = 4
	}
	if width < 50 || height < 25 || m.image == nil {
		artWidth = 0
		artHeight = 0
	}

	var artworkLines []string
	useKittyGraphics := m.termCaps != nil && m.termCaps.SupportsKittyGraphics && artWidth > 0

	if useKittyGraphics {
		kittyImageOutput := terminal.EncodeImageForKitty(m.image, artWidth, artHeight)
		if kittyImageOutput == "" {
			// fall back to half blocks when encoding fails
			useKittyGraphics = false
			artworkLines = artwork.RenderHalfBlockArt(m.image, artWidth, artHeight)
		} else {
			lines = append(lines, "  "+kittyImageOutput)
			for i := 0; i < artHeight-1; i++ {
				lines = append(lines, "  ")
			}
		}
	} else if artWidth > 0 {
		artworkLines = artwork.RenderHalfBlockArt(m.image, artWidth, artHeight)
	}

	infoLines := m.renderTrackInfo(palette, width)

	if useKittyGraphics {
		for _, infoLine := range infoLines {
			lines = append(lines, "  "+infoLine)
		}
	} else {
		rows := max(len(infoLines), len(artworkLines))
		for i := 0; i < rows; i++ {
			var line strings.Builder

			if len(artworkLines) > 0 {
				if i < len(artworkLines) {
					line.WriteString("  ")
					line.WriteString(artworkLines[i])
					line.WriteString("  ")
				} else {
					line.WriteString(strings.Repeat(" ", artWidth+4))
				}
			} else {
				line.WriteString("  ")
			}

			if i < len(infoLines) {
				line.WriteString(infoLines[i])
			}

			lines = append(lines, line.String())
		}
	}

	lines = append(lines, "")

	if m.durationMillis() > 0 {
		lines = append(lines, m.renderMinimalProgress(palette, width))
	}
	lines = append(lines, m.renderStatus(palette))
	lines = append(lines, "")

	return lines
}

func (m Model) renderTrackInfo(palette *artwork.Palette, width int) []string {
	title, artist, album := m.title()

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Primary)).
		Bold(true)
	artistStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Secondary))
	albumStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(palette.Dim))

	maxWidth := max(width-20, 20)

	lines := []string{titleStyle.Render(runewidth.Truncate(title, maxWidth, "…"))}
	if artist != "" {
		lines = append(lines, artistStyle.Render(runewidth.Truncate(artist, maxWidth, "…")))
	}
	if album != "" {
		lines = append(lines, albumStyle.Render(runewidth.Truncate(album, maxWidth, "…")))
	}

	return lines
}

func (m Model) renderMinimalProgress(palette *artwork.Palette, width int) string {
	duration := m.durationMillis()
	if duration <= 0 {
		return ""
	}

	barWidth := max(width-20, 20)

	progress := float64(m.position) / float64(duration)
	progress = math.Max(0, math.Min(1, progress))
	filledWidth := int(float64(barWidth) * progress)

	var bar strings.Builder

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true)

	for i := 0; i < barWidth; i++ {
		if i < filledWidth {
			bar.WriteString(filledStyle.Render("━"))
		} else if i == filledWidth {
			bar.WriteString(filledStyle.Render("●"))
		} else {
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(timeline.FormatMillis(m.position)),
		bar.String(),
		timeStyle.Render(timeline.FormatMillis(duration)))
}

func (m Model) renderStatus(palette *artwork.Palette) string {
	parts := []string{m.format.String()}

	if offset := m.session.SyncOffset(); offset != 0 {
		parts = append(parts, fmt.Sprintf("offset %+dms", offset))
	}
	if m.loading {
		parts = append(parts, "reloading")
	}
	if m.issues > 0 {
		parts = append(parts, fmt.Sprintf("%d parse issues", m.issues))
	}
	if !m.driver.Playing() {
		parts = append(parts, "paused")
	}
	if m.state.Phase == karaoke.PhaseEnded {
		parts = append(parts, "ended")
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	status := style.Render("  " + strings.Join(parts, " · "))

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
		status += errStyle.Render("  " + m.err.Error())
	}
	return status
}

// lyricBlock is one timeline line as placed in the lyrics area. top may be
// negative when the block is scrolled partly out of view.
type lyricBlock struct {
	index int
	rows  []string
	top   int
}

func (m Model) renderLyrics(palette *artwork.Palette, height int, width int) []string {
	output := make([]string, height)

	blocks := m.layoutLyrics(palette, height, width)
	for _, b := range blocks {
		for j, row := range b.rows {
			if y := b.top + j; y >= 0 && y < height {
				output[y] = row
			}
		}
	}

	if fill, ok := m.interludeFill(); ok {
		for _, b := range blocks {
			if b.index == m.state.Scroll.Line && b.top-1 >= 0 && b.top-1 < height {
				r := NewLyricRenderer(palette, &m.animState, width)
				output[b.top-1] = r.RenderInterlude(fill)[0]
			}
		}
	}

	return output
}

// layoutLyrics places lines around the eased scroll position. The line the
// view is settling on sits at the vertical center; when it wraps, the
// row being sung is kept there instead.
func (m Model) layoutLyrics(palette *artwork.Palette, height int, width int) []lyricBlock {
	tl := m.session.Timeline()
	n := tl.Len()
	if n == 0 || height <= 0 {
		return nil
	}

	renderer := NewLyricRenderer(palette, &m.animState, width)
	render := func(i int) []string {
		line, _ := tl.Line(i)
		var rows []string
		switch {
		case i == m.state.ActiveLine && line.IsMarker():
			rows = renderer.RenderInterlude(m.state.Scroll.Offset)
		case i == m.state.ActiveLine:
			rows = renderer.RenderActive(line, m.state.Progress)
		default:
			dist := math.Abs(float64(i - m.state.Scroll.Line))
			rows = renderer.RenderContext(line, 1-0.25*dist)
		}
		if len(rows) == 0 {
			rows = []string{""}
		}
		return rows
	}

	scroll := math.Max(0, math.Min(float64(n-1), m.animState.ScrollPosition))
	focus := int(math.Floor(scroll))
	frac := scroll - float64(focus)

	focusRows := render(focus)
	anchor := 0
	if focus == m.state.ActiveLine && len(focusRows) > 1 {
		anchor = int(m.state.Scroll.Offset * float64(len(focusRows)-1))
	}
	focusTop := height/2 - anchor - int(math.Round(frac*float64(len(focusRows)+lineSpacing)))

	blocks := []lyricBlock{{index: focus, rows: focusRows, top: focusTop}}

	y := focusTop
	for i := focus - 1; i >= 0 && y > 0; i-- {
		rows := render(i)
		y -= len(rows) + lineSpacing
		blocks = append([]lyricBlock{{index: i, rows: rows, top: y}}, blocks...)
	}

	y = focusTop + len(focusRows) + lineSpacing
	for i := focus + 1; i < n && y < height; i++ {
		rows := render(i)
		blocks = append(blocks, lyricBlock{index: i, rows: rows, top: y})
		y += len(rows) + lineSpacing
	}

	return blocks
}

// interludeFill reports how far the wait for the upcoming line has come
// during a long pre-roll or gap.
func (m Model) interludeFill() (float64, bool) {
	if m.state.Phase != karaoke.PhasePreRoll && m.state.Phase != karaoke.PhaseGap {
		return 0, false
	}

	tl := m.session.Timeline()
	next, ok := tl.Line(m.state.Scroll.Line)
	if !ok {
		return 0, false
	}

	var from int64
	if m.state.Phase == karaoke.PhaseGap && m.state.Scroll.Line > 0 {
		from = tl.EndThrough(m.state.Scroll.Line - 1)
	}

	gap := next.Start - from
	if gap < interludeMinMillis {
		return 0, false
	}
	return math.Max(0, math.Min(1, float64(m.state.Position-from)/float64(gap))), true
}

// lineAt maps a screen row to the timeline line drawn there.
func (m Model) lineAt(row int) int {
	width, height := m.screenSize()
	header := m.headerHeight(width, height)

	y := row - header
	if y < 0 {
		return timeline.None
	}

	for _, b := range m.layoutLyrics(m.palette, height-header, width) {
		if y >= b.top && y < b.top+len(b.rows) {
			return b.index
		}
	}
	return timeline.None
}

func centerText(text string, visualWidth int, screenWidth int) string {
	padding := max(0, (screenWidth-visualWidth)/2)
	return strings.Repeat(" ", padding) + text
}
