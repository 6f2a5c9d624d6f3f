package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/toolutil"
)

var (
	indexForce bool
	indexVideo string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one indexing pass and print the run summary as JSON",
	Example: `  go_transcripts index
  go_transcripts index --force
  go_transcripts index --video https://youtu.be/dQw4w9WgXcQ`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		videoID, err := toolutil.ParseVideoRef(indexVideo)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, runErr := a.svc.Index(ctx, engine.TranscriptIndexInput{VideoID: videoID, Force: indexForce})
		if summary != nil {
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reindex videos that are already indexed")
	indexCmd.Flags().StringVar(&indexVideo, "video", "", "index only this video ID or URL")
}
