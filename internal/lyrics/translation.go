package lyrics

import "strings"

// ParseTranslations reads an LRC file of secondary text (translation or
// romanization) into start time -> text, for Timeline.WithTranslations.
// Unreadable lines are skipped; later duplicates win.
func ParseTranslations(lines []string) map[int64]string {
	out := make(map[int64]string)
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, _, ok := headerTag(trimmed); ok {
			continue
		}
		stamps, text, ok := lrcStamps(trimmed)
		if !ok || text == "" {
			continue
		}
		for _, ms := range stamps {
			out[ms] = text
		}
	}
	return out
}
