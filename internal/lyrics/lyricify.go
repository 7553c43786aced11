package lyrics

import (
	"strings"

	"karolbroda.com/syllecho/internal/timeline"
)

// LyricifyParser reads the Lyricify Syllable dialect:
//
//	[4]Ne(1000,300)ver (1300,250)gon(1550,200)na (1750,400)
//
// The optional [p] prefix is a property digit: p%3 gives the alignment
// (unset, start, end) and p >= 6 marks background vocals.
type LyricifyParser struct {
	OnIssue func(Issue)
}

func (p *LyricifyParser) Format() Format {
	return FormatLyricify
}

func (p *LyricifyParser) Parse(lines []string) (*timeline.Timeline, error) {
	if isBlank(lines) {
		return nil, emptyInputError()
	}

	r := newReporter(FormatLyricify, p.OnIssue)
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

		property, body := lyricifyProperty(text)
		if property < 0 {
			r.report(lineNo, "unknown line property, treated as 0")
			property = 0
		}

		tokens := scanTokens(body)
		anchor, ok := firstTimed(tokens)
		if !ok {
			r.report(lineNo, "no timing tags, line skipped")
			continue
		}

		b := newLineBuilder(lineNo, r, anchor)
		for _, tok := range tokens {
			b.add(tok)
		}

		line := b.line()
		line.Alignment = timeline.Alignment(property % 3)
		line.Background = property >= 6
		out = append(out, line)
	}

	if len(out) == 0 {
		return nil, noTimedLinesError(lines)
	}

	return timeline.New(out, meta), nil
}

// lyricifyProperty splits off a leading "[p]". It returns 0 when there is no
// prefix and -1 when the prefix is present but not a digit from 0 to 8.
func lyricifyProperty(line string) (int, string) {
	if !strings.HasPrefix(line, "[") {
		return 0, line
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return 0, line
	}
	inner := line[1:end]
	body := line[end+1:]
	if len(inner) != 1 || inner[0] < '0' || inner[0] > '8' {
		return -1, body
	}
	return int(inner[0] - '0'), body
}
