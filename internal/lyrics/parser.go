package lyrics

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/timeline"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrNoTimedLines = errors.New("no line carries timing information")
)

type Format int

const (
	FormatUnknown Format = iota
	FormatLyricify
	FormatQRC
	FormatLRC
)

func (f Format) String() string {
	switch f {
	case FormatLyricify:
		return "lyricify-syllable"
	case FormatQRC:
		return "qrc"
	case FormatLRC:
		return "lrc"
	default:
		return "unknown"
	}
}

// ParseFormat maps a user supplied name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "lyricify", "lyricify-syllable", "lys":
		return FormatLyricify, nil
	case "qrc":
		return FormatQRC, nil
	case "lrc":
		return FormatLRC, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown lyrics format %q", name)
	}
}

// Parser turns the lines of one lyrics asset into a timeline. Every dialect
// produces the same timeline model, so nothing downstream depends on syntax.
type Parser interface {
	Format() Format
	Parse(lines []string) (*timeline.Timeline, error)
}

// ParseError is returned when nothing usable can be salvaged from the input.
// Line is 1-based; 0 means the input as a whole.
type ParseError struct {
	Reason string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Issue is a recoverable problem the parser worked around.
type Issue struct {
	Line   int
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Reason)
}

type reporter func(Issue)

func newReporter(format Format, hook func(Issue)) reporter {
	return func(issue Issue) {
		if hook != nil {
			hook(issue)
			return
		}
		logger.Debug("%s: %s", format, issue)
	}
}

func (r reporter) report(line int, format string, args ...any) {
	r(Issue{Line: line, Reason: fmt.Sprintf(format, args...)})
}

// ParserFor returns the parser for format; issues go to onIssue when it is
// not nil and to the debug log otherwise.
func ParserFor(format Format, onIssue func(Issue)) (Parser, error) {
	switch format {
	case FormatLyricify:
		return &LyricifyParser{OnIssue: onIssue}, nil
	case FormatQRC:
		return &QRCParser{OnIssue: onIssue}, nil
	case FormatLRC:
		return &LRCParser{OnIssue: onIssue}, nil
	default:
		return nil, fmt.Errorf("no parser for format %s", format)
	}
}

// Parse sniffs the dialect and parses lines with it.
func Parse(lines []string) (*timeline.Timeline, Format, error) {
	format := Detect(lines)
	if format == FormatUnknown {
		format = FormatLyricify
	}
	p, err := ParserFor(format, nil)
	if err != nil {
		return nil, format, err
	}
	tl, err := p.Parse(lines)
	return tl, format, err
}

// detectWindow is how many lyric lines Detect weighs.
const detectWindow = 5

// Detect classifies the first few lines that are neither blank nor header
// tags and goes with the majority, so one damaged line does not decide the
// format. Lyricify Syllable needs no line header, so a line counts for it
// once QRC and LRC are ruled out. Ties prefer QRC, then LRC. FormatUnknown
// means there was nothing to look at.
func Detect(lines []string) Format {
	votes := make(map[Format]int, 3)
	seen := 0
	for _, raw := range lines {
		if seen == detectWindow {
			break
		}
		line := stripContainer(strings.TrimSpace(raw))
		if line == "" {
			continue
		}
		if _, _, ok := headerTag(line); ok {
			continue
		}
		seen++

		if _, _, _, ok := qrcHeader(line); ok {
			votes[FormatQRC]++
		} else if _, _, ok := lrcStamps(line); ok {
			votes[FormatLRC]++
		} else {
			votes[FormatLyricify]++
		}
	}
	if seen == 0 {
		return FormatUnknown
	}

	best := FormatQRC
	for _, f := range []Format{FormatLRC, FormatLyricify} {
		if votes[f] > votes[best] {
			best = f
		}
	}
	return best
}

// DetectPath trusts content and only falls back to the file extension when
// the content has no lyric lines to look at.
func DetectPath(path string, lines []string) Format {
	if detected := Detect(lines); detected != FormatUnknown {
		return detected
	}
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatLyricify
}

// ReadFile returns the text lines of a UTF-8 lyrics file with any byte order
// mark and carriage returns removed.
func ReadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics file: %w", err)
	}
	return SplitLines(data), nil
}

func SplitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}

// LoadFile reads, detects and parses a lyrics file in one go.
func LoadFile(path string, onIssue func(Issue)) (*timeline.Timeline, Format, error) {
	lines, err := ReadFile(path)
	if err != nil {
		return nil, FormatUnknown, err
	}

	format := DetectPath(path, lines)
	p, err := ParserFor(format, onIssue)
	if err != nil {
		return nil, format, err
	}

	tl, err := p.Parse(lines)
	if err != nil {
		return nil, format, err
	}
	return tl, format, nil
}

// headerTag matches "[key:value]" where key is purely alphabetic, which keeps
// it apart from LRC timestamps.
func headerTag(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	inner := line[1 : len(line)-1]
	colon := strings.IndexByte(inner, ':')
	if colon <= 0 {
		return "", "", false
	}
	key := inner[:colon]
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", "", false
		}
	}
	return strings.ToLower(key), strings.TrimSpace(inner[colon+1:]), true
}

// applyHeader stores a recognised header tag into meta. Unknown keys are
// accepted and ignored.
func applyHeader(meta *timeline.Metadata, key string, value string) error {
	switch key {
	case "ti":
		meta.Title = value
	case "ar":
		meta.Artist = value
	case "al":
		meta.Album = value
	case "by":
		meta.By = value
	case "offset":
		offset, err := strconv.ParseInt(strings.TrimPrefix(value, "+"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q", value)
		}
		meta.OffsetMillis = offset
	}
	return nil
}

// stripContainer unwraps the XML envelope QRC files are often shipped in:
// the lyric text sits inside LyricContent="…".
func stripContainer(line string) string {
	if idx := strings.Index(line, `LyricContent="`); idx >= 0 {
		line = line[idx+len(`LyricContent="`):]
	}
	if strings.HasSuffix(line, `"/>`) {
		line = strings.TrimSuffix(line, `"/>`)
	}
	if strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">") {
		return ""
	}
	return strings.TrimSpace(line)
}

// firstContentLine is used for error reporting when no line yields timing.
// Input holding nothing but header tags points at the last of them.
func firstContentLine(lines []string) int {
	last := 0
	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		last = i + 1
		line := stripContainer(strings.TrimSpace(raw))
		if line == "" {
			continue
		}
		if _, _, ok := headerTag(line); ok {
			continue
		}
		return i + 1
	}
	return last
}

func isBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

func emptyInputError() error {
	return &ParseError{Reason: "input has no lines", Err: ErrEmptyInput}
}

func noTimedLinesError(lines []string) error {
	return &ParseError{
		Reason: "no line could be parsed",
		Line:   firstContentLine(lines),
		Err:    ErrNoTimedLines,
	}
}
