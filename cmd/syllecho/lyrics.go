package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/asset"
	"karolbroda.com/syllecho/internal/lyrics"
	"karolbroda.com/syllecho/internal/timeline"
)

var (
	// flags for lyrics inspect
	showSyllables bool

	// flags for lyrics check
	checkStrict bool
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "inspect and validate lyrics files",
	Long:  `parse lyrics files without playing them, to see their timing or find problems.`,
}

var lyricsInspectCmd = &cobra.Command{
	Use:   "inspect <lyrics-file>",
	Short: "show the parsed timeline",
	Long:  `parse a lyrics file and print its metadata and every line with its timing.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := assetOptions(nil)
		if err != nil {
			return err
		}

		a, err := asset.Load(args[0], opts)
		if err != nil {
			return err
		}

		tl := a.Timeline
		meta := tl.Metadata()

		fmt.Printf("file:     %s\n", a.Path)
		fmt.Printf("format:   %s\n", a.Format)
		if meta.Title != "" {
			fmt.Printf("title:    %s\n", meta.Title)
		}
		if meta.Artist != "" {
			fmt.Printf("artist:   %s\n", meta.Artist)
		}
		if meta.Album != "" {
			fmt.Printf("album:    %s\n", meta.Album)
		}
		if meta.OffsetMillis != 0 {
			fmt.Printf("offset:   %dms\n", meta.OffsetMillis)
		}
		fmt.Printf("lines:    %d (%s - %s)\n", tl.Len(), timeline.FormatMillis(tl.Start()), timeline.FormatMillis(tl.End()))
		fmt.Println()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Start", "End", "Text", "Flags"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, WidthMax: 60},
		})

		for i, line := range tl.Lines() {
			t.AppendRow(table.Row{i, formatStamp(line.Start), formatStamp(line.End), lineText(line), lineFlags(line)})
			if line.Translation != "" {
				t.AppendRow(table.Row{"", "", "", text.Italic.Sprint(line.Translation), ""})
			}
			if showSyllables {
				for _, s := range line.Syllables {
					t.AppendRow(table.Row{"", formatStamp(s.Start), formatStamp(s.End), text.FgHiBlack.Sprintf("  %q", s.Text), ""})
				}
			}
		}

		t.Render()

		if len(a.Issues) > 0 {
			fmt.Printf("\n%s\n", text.FgYellow.Sprintf("%d issue(s), run 'syllecho lyrics check' for details", len(a.Issues)))
		}

		return nil
	},
}

var lyricsCheckCmd = &cobra.Command{
	Use:   "check <lyrics-file>...",
	Short: "report parse problems",
	Long: `parse lyrics files and list every malformed token or line the parser had to
skip. exits non-zero when a file cannot be parsed at all, or with --strict when
any issue is found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := assetOptions(nil)
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			if !checkFile(path, opts) {
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsInspectCmd)
	lyricsCmd.AddCommand(lyricsCheckCmd)

	for _, c := range []*cobra.Command{lyricsInspectCmd, lyricsCheckCmd} {
		c.Flags().StringVar(&formatName, "format", "", "force the lyrics format: lys, qrc, lrc (default: detect)")
		c.Flags().StringVarP(&translationPath, "translation", "t", "", "lrc file with line translations")
	}

	lyricsInspectCmd.Flags().BoolVar(&showSyllables, "syllables", false, "list every syllable under its line")
	lyricsCheckCmd.Flags().BoolVar(&checkStrict, "strict", false, "treat recoverable issues as failures")
}

// checkFile prints the outcome for one file and reports whether it passed.
func checkFile(path string, opts asset.Options) bool {
	a, err := asset.Load(path, opts)
	if err != nil {
		var perr *lyrics.ParseError
		if errors.As(err, &perr) {
			fmt.Printf("%s %s: %s\n", text.FgRed.Sprint("✗"), path, perr.Error())
		} else {
			fmt.Printf("%s %s: %v\n", text.FgRed.Sprint("✗"), path, err)
		}
		return false
	}

	mark := text.FgGreen.Sprint("✓")
	if len(a.Issues) > 0 {
		mark = text.FgYellow.Sprint("!")
	}
	fmt.Printf("%s %s: %s, %d lines, %d issue(s)\n", mark, path, a.Format, a.Timeline.Len(), len(a.Issues))

	for _, issue := range a.Issues {
		fmt.Printf("    %s\n", issue)
	}

	return !checkStrict || len(a.Issues) == 0
}

func formatStamp(ms int64) string {
	return fmt.Sprintf("%s.%03d", timeline.FormatMillis(ms), ms%1000)
}

func lineText(line timeline.Line) string {
	if line.IsMarker() {
		return text.FgHiBlack.Sprint("♪")
	}
	if line.Background {
		return text.Italic.Sprint("(" + line.Text() + ")")
	}
	return line.Text()
}

func lineFlags(line timeline.Line) string {
	var flags []string
	if line.Background {
		flags = append(flags, "bg")
	}
	if line.Alignment != timeline.AlignUnset {
		flags = append(flags, line.Alignment.String())
	}
	if line.IsMarker() {
		flags = append(flags, "marker")
	}
	flags = append(flags, fmt.Sprintf("%d syl", len(line.Syllables)))
	return strings.Join(flags, " ")
}
