package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/toolutil"
)

var (
	searchLimit  int
	searchOffset int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed transcripts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.svc.Search(cmd.Context(), engine.TranscriptSearchInput{
			Query:  strings.Join(args, " "),
			Limit:  searchLimit,
			Offset: searchOffset,
		})
		if err != nil {
			return err
		}
		if searchJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printResults(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (0 = server default)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func printResults(w io.Writer, out engine.TranscriptSearchOutput) {
	if len(out.Results) == 0 {
		fmt.Fprintf(w, "No matches for %q\n", out.Query)
		return
	}
	for i, r := range out.Results {
		fmt.Fprintf(w, "%d. [%s] %s\n", out.Offset+i+1, r.Timecode, r.VideoTitle)
		fmt.Fprintf(w, "   %s\n", engine.TruncateRunes(r.Snippet, 200, "…"))
		fmt.Fprintf(w, "   %s\n", toolutil.WatchURL(r.VideoID, r.StartTime))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
