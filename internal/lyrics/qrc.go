package lyrics

import (
	"strings"

	"karolbroda.com/syllecho/internal/timeline"
)

// QRCParser reads QRC text (the decrypted LyricContent of a .qrc file):
//
//	[1000,2150]Ne(1000,300)ver(1300,250) gon(1550,200)na(1750,400)
//
// Unlike Lyricify each line carries its own [start,duration] header, and
// syllables are clamped into that range.
type QRCParser struct {
	OnIssue func(Issue)
}

func (p *QRCParser) Format() Format {
	return FormatQRC
}

func (p *QRCParser) Parse(lines []string) (*timeline.Timeline, error) {
	if isBlank(lines) {
		return nil, emptyInputError()
	}

	r := newReporter(FormatQRC, p.OnIssue)
	var meta timeline.Metadata
	var out []timeline.Line

	for i, raw := range lines {
		lineNo := i + 1
		text := stripContainer(strings.TrimSpace(raw))
		if text == "" {
			continue
		}

		if key, value, ok := headerTag(text); ok {
			if err := applyHeader(&meta, key, value); err != nil {
				r.report(lineNo, "%v", err)
			}
			continue
		}

		start, dur, body, ok := qrcHeader(text)
		if !ok {
			r.report(lineNo, "missing [start,duration] line header, line skipped")
			continue
		}

		b := newLineBuilder(lineNo, r, start)
		b.bound(start, start+dur)
		for _, tok := range scanTokens(body) {
			b.add(tok)
		}
		out = append(out, b.line())
	}

	if len(out) == 0 {
		return nil, noTimedLinesError(lines)
	}

	return timeline.New(out, meta), nil
}

func qrcHeader(line string) (int64, int64, string, bool) {
	if !strings.HasPrefix(line, "[") {
		return 0, 0, "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return 0, 0, "", false
	}
	start, dur, ok := parseTimingTag(line[1:end])
	if !ok {
		return 0, 0, "", false
	}
	return start, dur, line[end+1:], true
}
