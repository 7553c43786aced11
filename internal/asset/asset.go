// Package asset turns a lyrics file on disk into a ready timeline: it reuses
// the cached parse while the file content is unchanged, parses otherwise, and
// attaches an optional translation file.
package asset

import (
	"errors"
	"fmt"
	"os"

	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/config"
	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/lyrics"
	"karolbroda.com/syllecho/internal/timeline"
)

type Options struct {
	// Format forces a dialect; FormatUnknown sniffs the content.
	Format          lyrics.Format
	TranslationPath string
	// Cache may be nil. NoCache skips reads but still stores the fresh parse.
	Cache   *cache.DiskCache
	NoCache bool
	OnIssue func(lyrics.Issue)
}

type Asset struct {
	Path             string
	Format           lyrics.Format
	Timeline         *timeline.Timeline
	SyncOffsetMillis int64
	FromCache        bool
	Issues           []lyrics.Issue
}

func Load(path string, opts Options) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics file: %w", err)
	}
	hash := cache.ContentHash(data)

	a := &Asset{Path: path}

	var stale *cache.TimelineEntry
	if opts.Cache != nil && !opts.NoCache {
		entry, err := opts.Cache.Lookup(path, hash)
		switch {
		case err == nil && opts.Format == lyrics.FormatUnknown:
			a.Timeline = entry.Timeline()
			a.Format, _ = lyrics.ParseFormat(entry.Format)
			a.SyncOffsetMillis = entry.SyncOffsetMillis
			a.FromCache = true
			logger.Debug("asset: cache hit for %s", path)
		case errors.Is(err, cache.ErrCacheStale), err == nil:
			stale = entry
		}
	}

	if a.Timeline == nil {
		if err := a.parse(data, opts); err != nil {
			return nil, err
		}
		// the user's offset outlives edits to the file
		if stale != nil {
			a.SyncOffsetMillis = stale.SyncOffsetMillis
		}
		if opts.Cache != nil {
			entry := &cache.TimelineEntry{
				ContentHash:      hash,
				Format:           a.Format.String(),
				Meta:             a.Timeline.Metadata(),
				Lines:            a.Timeline.Lines(),
				SyncOffsetMillis: a.SyncOffsetMillis,
			}
			if err := opts.Cache.Set(path, entry); err != nil {
				logger.Warn("asset: failed to cache %s: %v", path, err)
			}
		}
	}

	if opts.TranslationPath != "" {
		lines, err := lyrics.ReadFile(opts.TranslationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read translation: %w", err)
		}
		translations := lyrics.ParseTranslations(lines)
		a.Timeline = a.Timeline.WithTranslations(translations, config.TranslationToleranceMillis)
		logger.Debug("asset: %d translated lines from %s", len(translations), opts.TranslationPath)
	}

	return a, nil
}

func (a *Asset) parse(data []byte, opts Options) error {
	lines := lyrics.SplitLines(data)

	a.Format = opts.Format
	if a.Format == lyrics.FormatUnknown {
		a.Format = lyrics.DetectPath(a.Path, lines)
	}

	p, err := lyrics.ParserFor(a.Format, func(issue lyrics.Issue) {
		a.Issues = append(a.Issues, issue)
		if opts.OnIssue != nil {
			opts.OnIssue(issue)
		}
	})
	if err != nil {
		return err
	}

	tl, err := p.Parse(lines)
	if err != nil {
		return err
	}
	a.Timeline = tl
	logger.Info("asset: parsed %s as %s, %d lines, %d issues", a.Path, a.Format, tl.Len(), len(a.Issues))
	return nil
}
