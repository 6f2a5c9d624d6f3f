// go_transcripts: keyword search over YouTube video transcripts.
//
// Indexes timed captions of configured playlists, channels and videos into
// a full-text store (RediSearch or PostgreSQL) and serves search as MCP
// tools and an optional HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "go_transcripts",
	Short: "Index and search YouTube video transcripts",
	Long: `go_transcripts fetches timed captions of YouTube videos, splits them into
time-bounded chunks and stores them in a full-text index. Search results point
back to the video and the second the phrase was spoken.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		initLogging()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, indexCmd, searchCmd)
}
