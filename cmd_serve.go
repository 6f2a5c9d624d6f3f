package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/transcriptserver"
	"github.com/anatolykoptev/go_transcripts/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server, the optional HTTP API and the reindex scheduler",
	Long: `serve exposes transcript_search, transcript_index and transcript_indexed_videos
over MCP on MCP_PORT. When WEB_PORT is set it also serves the HTTP search API.
Unless SCHEDULER_ENABLED=false, configured sources are indexed at start and
then every REINDEX_INTERVAL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var wg sync.WaitGroup
	defer wg.Wait()
	bg, cancel := context.WithCancel(ctx)
	defer cancel()

	if envBool("SCHEDULER_ENABLED", true) && a.cfg.ReindexInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.svc.Indexer.RunEvery(bg, a.cfg.ReindexInterval)
		}()
	}

	if a.cfg.WebPort != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := web.Serve(bg, web.NewApp(a.svc), ":"+a.cfg.WebPort); err != nil {
				slog.Error("http api failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting go_transcripts", slog.String("port", a.cfg.MCPPort), slog.String("version", version))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcripts",
		Version: version,
	}, nil)
	transcriptserver.RegisterTools(server, a.svc)
	slog.Info("tools registered", slog.Int("count", 3))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcripts",
		Version:      version,
		Port:         a.cfg.MCPPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		return err
	}
	return nil
}
