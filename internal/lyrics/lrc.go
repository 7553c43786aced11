package lyrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"karolbroda.com/syllecho/internal/timeline"
)

// DefaultLastLineMillis is how long the final LRC line stays up, since the
// format has no end times.
const DefaultLastLineMillis = 5000

// LRCParser reads line-timed LRC, including repeated stamps
// ("[00:10.00][01:10.00]chorus") and enhanced word stamps
// ("[00:10.00]<00:10.00>Hel<00:10.40>lo"). Each line ends where the next
// one starts.
type LRCParser struct {
	OnIssue        func(Issue)
	LastLineMillis int64
}

func (p *LRCParser) Format() Format {
	return FormatLRC
}

type lrcEntry struct {
	lineNo int
	start  int64
	text   string
}

func (p *LRCParser) Parse(lines []string) (*timeline.Timeline, error) {
	if isBlank(lines) {
		return nil, emptyInputError()
	}

	r := newReporter(FormatLRC, p.OnIssue)
	var meta timeline.Metadata
	var entries []lrcEntry

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if key, value, ok := headerTag(trimmed); ok {
			if err := applyHeader(&meta, key, value); err != nil {
				r.report(lineNo, "%v", err)
			}
			continue
		}

		stamps, text, ok := lrcStamps(trimmed)
		if !ok {
			r.report(lineNo, "no readable timestamp, line skipped")
			continue
		}

		for _, start := range stamps {
			entries = append(entries, lrcEntry{lineNo: lineNo, start: start, text: text})
		}
	}

	if len(entries) == 0 {
		return nil, noTimedLinesError(lines)
	}

	// repeated stamps put entries out of order; the next start must be known
	// before a line's end can be
	sortEntries(entries)

	last := p.LastLineMillis
	if last <= 0 {
		last = DefaultLastLineMillis
	}

	out := make([]timeline.Line, 0, len(entries))
	for i, e := range entries {
		end := e.start + last
		if i+1 < len(entries) {
			end = entries[i+1].start
		}
		out = append(out, lrcLine(e, end, r))
	}

	return timeline.New(out, meta), nil
}

func sortEntries(entries []lrcEntry) {
	// insertion sort keeps equal stamps in file order and is fast on the
	// nearly sorted input LRC files are
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].start < entries[j-1].start; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func lrcLine(e lrcEntry, end int64, r reporter) timeline.Line {
	if !strings.Contains(e.text, "<") {
		line := timeline.Line{Start: e.start, End: end}
		if e.text != "" {
			line.Syllables = []timeline.Syllable{{Start: e.start, End: end, Text: e.text}}
		}
		return line
	}

	// enhanced LRC: convert word stamps into the same token stream the
	// syllable dialects use, durations running to the next stamp
	type word struct {
		start int64
		text  string
		ok    bool
	}
	var words []word
	var lead string
	rest := e.text
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			break
		}
		closeIdx := strings.IndexByte(rest[open:], '>')
		if closeIdx < 0 {
			break
		}
		if len(words) == 0 {
			lead = rest[:open]
		} else {
			words[len(words)-1].text += rest[:open]
		}
		ms, err := parseLrcTimeToMillis(rest[open+1 : open+closeIdx])
		words = append(words, word{start: ms, ok: err == nil})
		rest = rest[open+closeIdx+1:]
	}
	if len(words) > 0 {
		words[len(words)-1].text += rest
	}

	b := newLineBuilder(e.lineNo, r, e.start)
	b.bound(e.start, end)
	if strings.TrimSpace(lead) != "" {
		b.add(token{text: lead, start: e.start, duration: 0, timed: true})
	}
	for i, w := range words {
		if !w.ok {
			b.add(token{text: w.text, malformed: true})
			continue
		}
		wordEnd := end
		for _, next := range words[i+1:] {
			if next.ok {
				wordEnd = next.start
				break
			}
		}
		b.add(token{text: w.text, start: w.start, duration: max(0, wordEnd-w.start), timed: true})
	}
	return b.line()
}

// lrcStamps reads one or more leading "[mm:ss.xx]" stamps.
func lrcStamps(line string) ([]int64, string, bool) {
	var stamps []int64
	rest := line
	for strings.HasPrefix(rest, "[") {
		timePart, remainder := splitLrcLine(rest)
		if timePart == "" {
			break
		}
		ms, err := parseLrcTimeToMillis(timePart)
		if err != nil {
			break
		}
		stamps = append(stamps, ms)
		rest = remainder
	}
	if len(stamps) == 0 {
		return nil, "", false
	}
	return stamps, strings.TrimSpace(rest), true
}

func splitLrcLine(line string) (string, string) {
	if !strings.HasPrefix(line, "[") {
		return "", ""
	}

	endIndex := strings.Index(line, "]")
	if endIndex <= 1 {
		return "", ""
	}

	return line[1:endIndex], line[endIndex+1:]
}

func parseLrcTimeToMillis(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	var hours float64
	var minutes float64
	var seconds float64
	var err error

	if len(parts) == 3 {
		hours, err = parseFloatSafe(parts[0])
		if err != nil {
			return 0, err
		}
		minutes, err = parseFloatSafe(parts[1])
		if err != nil {
			return 0, err
		}
		seconds, err = parseFloatSafe(parts[2])
		if err != nil {
			return 0, err
		}
	} else {
		minutes, err = parseFloatSafe(parts[0])
		if err != nil {
			return 0, err
		}
		seconds, err = parseFloatSafe(parts[1])
		if err != nil {
			return 0, err
		}
	}

	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, errors.New("negative time not allowed")
	}

	return int64(math.Round(total * 1000)), nil
}

func parseFloatSafe(s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", s, err)
	}
	return value, nil
}
