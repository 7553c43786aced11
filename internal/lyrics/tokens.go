package lyrics

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"karolbroda.com/syllecho/internal/timeline"
)

// token is one "text(start,duration)" unit of a syllable-timed line.
// malformed tokens had a timing tag that could not be read; untimed tokens
// had none at all (trailing text).
type token struct {
	text      string
	start     int64
	duration  int64
	timed     bool
	malformed bool
}

// scanTokens splits body into tokens in one pass. Parentheses that do not
// look like timing tags stay part of the text, so "(oh)" survives.
func scanTokens(body string) []token {
	var tokens []token
	textStart := 0
	i := 0

	for i < len(body) {
		if body[i] != '(' {
			i++
			continue
		}

		closeIdx := strings.IndexByte(body[i:], ')')
		if closeIdx < 0 {
			if looksLikeTag(body[i+1:]) {
				tokens = append(tokens, token{text: body[textStart:i], malformed: true})
				textStart = len(body)
				break
			}
			i++
			continue
		}

		inner := body[i+1 : i+closeIdx]
		if start, dur, ok := parseTimingTag(inner); ok {
			tokens = append(tokens, token{text: body[textStart:i], start: start, duration: dur, timed: true})
			i += closeIdx + 1
			textStart = i
			continue
		}
		if looksLikeTag(inner) {
			tokens = append(tokens, token{text: body[textStart:i], malformed: true})
			i += closeIdx + 1
			textStart = i
			continue
		}
		i++
	}

	if textStart < len(body) {
		rest := body[textStart:]
		if strings.TrimSpace(rest) != "" {
			tokens = append(tokens, token{text: rest})
		}
	}

	return tokens
}

// parseTimingTag reads "start,duration" in milliseconds. The end,
// start+duration, must fit in an int64.
func parseTimingTag(inner string) (int64, int64, bool) {
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	dur, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || dur < 0 || start > math.MaxInt64-dur {
		return 0, 0, false
	}
	return start, dur, true
}

// looksLikeTag decides whether an unreadable parenthesised group was meant
// as timing: a comma separated group without spaces, or a bare number.
func looksLikeTag(inner string) bool {
	if inner == "" {
		return false
	}
	hasComma := false
	allDigits := true
	for _, r := range inner {
		switch {
		case r == ',':
			hasComma = true
			allDigits = false
		case unicode.IsDigit(r):
		case unicode.IsSpace(r):
			return false
		default:
			allDigits = false
		}
	}
	return hasComma || allDigits
}

// lineBuilder turns tokens into syllables. cursor is the end of the previous
// syllable; every syllable starts at or after it, which keeps progress within
// a line monotonic.
type lineBuilder struct {
	lineNo int
	r      reporter

	cursor  int64
	lower   int64
	upper   int64
	bounded bool
	start   int64
	end     int64

	syllables []timeline.Syllable
}

func newLineBuilder(lineNo int, r reporter, anchor int64) *lineBuilder {
	return &lineBuilder{
		lineNo: lineNo,
		r:      r,
		cursor: anchor,
		start:  anchor,
		end:    anchor,
	}
}

// bound restricts syllables to an explicit [lower, upper] line range.
func (b *lineBuilder) bound(lower int64, upper int64) {
	b.bounded = true
	b.lower = lower
	b.upper = upper
	b.start = lower
	b.end = upper
}

func (b *lineBuilder) add(tok token) {
	var start, end int64

	switch {
	case tok.timed:
		start = tok.start
		end = tok.start + tok.duration
		if start < b.cursor {
			b.r.report(b.lineNo, "syllable %q starts at %d before previous end %d, clamped", strings.TrimSpace(tok.text), start, b.cursor)
			start = b.cursor
		}
		if end < start {
			end = start
		}
	case tok.malformed:
		b.r.report(b.lineNo, "malformed timing tag after %q, kept with zero duration", strings.TrimSpace(tok.text))
		start, end = b.cursor, b.cursor
	default:
		b.r.report(b.lineNo, "untimed text %q, kept with zero duration", strings.TrimSpace(tok.text))
		start, end = b.cursor, b.cursor
	}

	if b.bounded {
		cs, ce := clamp64(start, b.lower, b.upper), clamp64(end, b.lower, b.upper)
		if cs != start || ce != end {
			b.r.report(b.lineNo, "syllable %q outside line range [%d,%d], clamped", strings.TrimSpace(tok.text), b.lower, b.upper)
		}
		start, end = cs, ce
	}

	b.cursor = end
	if end > b.end {
		b.end = end
	}

	text := strings.TrimSpace(tok.text)
	if text == "" {
		// whitespace-only tokens carry timing but no text
		if tok.text != "" && len(b.syllables) > 0 {
			b.syllables[len(b.syllables)-1].TrailingSpace = true
		}
		return
	}

	b.syllables = append(b.syllables, timeline.Syllable{
		Start:         start,
		End:           end,
		Text:          text,
		LeadingSpace:  startsWithSpace(tok.text),
		TrailingSpace: endsWithSpace(tok.text),
	})
}

func (b *lineBuilder) line() timeline.Line {
	return timeline.Line{
		Start:     b.start,
		End:       b.end,
		Syllables: b.syllables,
	}
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return unicode.IsSpace(r[len(r)-1])
}

func clamp64(v int64, lower int64, upper int64) int64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

// firstTimed returns the start of the first readable tag, used to anchor
// leading malformed tokens.
func firstTimed(tokens []token) (int64, bool) {
	for _, tok := range tokens {
		if tok.timed {
			return tok.start, true
		}
	}
	return 0, false
}
