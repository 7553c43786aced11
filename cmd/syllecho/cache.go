package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/cache"
	"karolbroda.com/syllecho/internal/timeline"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the timeline cache",
	Long:  `manage cached timelines and the sync offsets saved for each lyrics file.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := cache.GetGlobalCache()

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		location := diskCache.Dir()
		if location == "" {
			location = "(memory only)"
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", location)
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached lyrics files",
	Long:  `list every cached lyrics file with its format, line count, sync offset and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cache.GetGlobalCache().ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"File", "Title", "Format", "Lines", "Offset", "Cached"})

		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.Path,
				entryTitle(entry),
				entry.Format,
				len(entry.Lines),
				formatOffset(entry.SyncOffsetMillis),
				time.Unix(entry.CreatedAt, 0).Format("2006-01-02"),
			})
		}

		t.AppendFooter(table.Row{"", "", "", "", "total", len(entries)})
		t.Render()

		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <lyrics-file>",
	Short: "show the cached entry for a lyrics file",
	Long:  `display what is cached for a lyrics file and whether it still matches the file on disk.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		diskCache := cache.GetGlobalCache()

		entry, err := diskCache.Get(path)
		if err != nil {
			return notCached(diskCache, path, err)
		}

		meta := entry.Meta
		fmt.Printf("file:        %s\n", entry.Path)
		fmt.Printf("format:      %s\n", entry.Format)
		if meta.Title != "" {
			fmt.Printf("title:       %s\n", meta.Title)
		}
		if meta.Artist != "" {
			fmt.Printf("artist:      %s\n", meta.Artist)
		}
		fmt.Printf("lines:       %d\n", len(entry.Lines))
		fmt.Printf("syllables:   %d\n", lo.SumBy(entry.Lines, func(l timeline.Line) int { return len(l.Syllables) }))
		if len(entry.Lines) > 0 {
			tl := entry.Timeline()
			fmt.Printf("span:        %s - %s\n", timeline.FormatMillis(tl.Start()), timeline.FormatMillis(tl.End()))
		}
		fmt.Printf("sync offset: %s\n", formatOffset(entry.SyncOffsetMillis))
		fmt.Printf("cached:      %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("expires:     %s\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))

		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			fmt.Printf("status:      %s\n", text.FgRed.Sprint("file missing"))
		case cache.ContentHash(data) != entry.ContentHash:
			fmt.Printf("status:      %s\n", text.FgYellow.Sprint("stale, file changed since it was cached"))
		default:
			fmt.Printf("status:      %s\n", text.FgGreen.Sprint("up to date"))
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached timelines and saved offsets. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := cache.GetGlobalCache()

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		err := diskCache.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired and orphaned cache entries",
	Long:  `remove expired entries and entries whose lyrics file no longer exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pruned, err := cache.GetGlobalCache().Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <lyrics-file>",
	Short: "remove one lyrics file from the cache",
	Long:  `remove the cached timeline and saved offset for one lyrics file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		diskCache := cache.GetGlobalCache()

		// verify it exists first
		if _, err := diskCache.Get(path); err != nil {
			return notCached(diskCache, path, err)
		}

		if err := diskCache.Delete(path); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s' from cache\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	// flags for cache list
	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, path, title")

	// flags for cache clear
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// helper functions

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatOffset(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%+dms", ms)
}

func entryTitle(entry *cache.TimelineEntry) string {
	switch {
	case entry.Meta.Title != "" && entry.Meta.Artist != "":
		return entry.Meta.Artist + " - " + entry.Meta.Title
	case entry.Meta.Title != "":
		return entry.Meta.Title
	default:
		return "-"
	}
}

func sortCacheEntries(entries []*cache.TimelineEntry, sortBy string) {
	switch sortBy {
	case "path":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Path < entries[j].Path
		})
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entryTitle(entries[i])) < strings.ToLower(entryTitle(entries[j]))
		})
	case "date":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

// notCached explains a cache miss, suggesting cached files with the same
// name when there are any.
func notCached(diskCache *cache.DiskCache, path string, err error) error {
	if suggestions := findSimilarCachedFiles(diskCache, path); len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "file not found in cache\n\n")
		fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "  %s\n", s.Path)
		}
		return errors.New("not cached")
	}
	return fmt.Errorf("file not found in cache: %w", err)
}

func findSimilarCachedFiles(diskCache *cache.DiskCache, path string) []*cache.TimelineEntry {
	all, err := diskCache.ListAll()
	if err != nil || len(all) == 0 {
		return nil
	}

	base := strings.ToLower(filepath.Base(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	matches := lo.Filter(all, func(entry *cache.TimelineEntry, _ int) bool {
		other := strings.ToLower(filepath.Base(entry.Path))
		return other == base || (stem != "" && strings.Contains(other, stem))
	})

	// return up to 5 suggestions
	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches
}
