// Package web serves the read-only transcript search HTTP API.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
	"github.com/anatolykoptev/go_transcripts/internal/toolutil"
)

// NewApp builds the fiber app:
//
//	GET /health
//	GET /api/v1/search?q=&limit=&offset=
//	GET /api/v1/videos
func NewApp(svc *transcripts.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	h := &handler{svc: svc}
	api := app.Group("/api/v1")
	api.Get("/search", h.search)
	api.Get("/videos", h.videos)
	return app
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()
	slog.Info("http api listening", slog.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}

type handler struct {
	svc *transcripts.Service
}

// searchHit adds a watch link to a result.
type searchHit struct {
	engine.SearchResult
	URL string `json:"url"`
}

func (h *handler) search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return respondWithError(c, fiber.StatusBadRequest, "query parameter 'q' is required")
	}
	out, err := h.svc.Search(c.UserContext(), engine.TranscriptSearchInput{
		Query:  q,
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondWithError(c, statusFor(err), err.Error())
	}
	hits := make([]searchHit, len(out.Results))
	for i, r := range out.Results {
		hits[i] = searchHit{SearchResult: r, URL: toolutil.WatchURL(r.VideoID, r.StartTime)}
	}
	return respondWithJSON(c, fiber.StatusOK, fiber.Map{
		"query":   out.Query,
		"limit":   out.Limit,
		"offset":  out.Offset,
		"results": hits,
	})
}

func (h *handler) videos(c *fiber.Ctx) error {
	out, err := h.svc.IndexedVideos(c.UserContext())
	if err != nil {
		return respondWithError(c, statusFor(err), err.Error())
	}
	return respondWithJSON(c, fiber.StatusOK, out)
}

// requestLogger logs one line per request with a generated request id.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()
		c.Locals("requestid", requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", c.Method()),
			slog.String("uri", c.OriginalURL()),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		switch {
		case err != nil:
			slog.Error("request failed", append(attrs, slog.Any("error", err))...)
		case status >= 500:
			slog.Error("request completed with server error", attrs...)
		case status >= 400:
			slog.Warn("request completed with client error", attrs...)
		default:
			slog.Debug("request completed", attrs...)
		}
		return err
	}
}
