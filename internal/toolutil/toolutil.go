// Package toolutil provides helpers shared by the MCP tools, the HTTP API
// and the CLI.
package toolutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

var (
	videoURLRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	videoIDRE  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ErrBadVideoRef is returned for input that is neither a video ID nor a
// YouTube video URL.
var ErrBadVideoRef = errors.New("not a YouTube video ID or URL")

// ParseVideoRef accepts a bare 11-character video ID or any common YouTube
// URL form and returns the video ID. Empty input returns "".
func ParseVideoRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if videoIDRE.MatchString(ref) {
		return ref, nil
	}
	if m := videoURLRE.FindStringSubmatch(ref); len(m) >= 2 {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadVideoRef, engine.TruncateRunes(ref, 80, "…"))
}

// WatchURL links to videoID at the given second.
func WatchURL(videoID string, startTime float64) string {
	u := "https://www.youtube.com/watch?v=" + videoID
	if s := int(startTime); s > 0 {
		u += "&t=" + strconv.Itoa(s) + "s"
	}
	return u
}
