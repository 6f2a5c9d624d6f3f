package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// YouTube metadata: Data API v3 with quota-aware key fallback, oEmbed for
// key-less title lookup, and playlist/channel expansion.

const ytPageSize = 50

// --- YouTube Data API v3 types ---

type ytVideosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytPlaylistItemsResp struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytChannelsResp struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytOEmbedResp struct {
	Title string `json:"title"`
}

var errNoAPIKey = errors.New("YOUTUBE_API_KEY is not configured")

// dataAPI GETs a Data API resource into out.
// Automatically falls back to the secondary key on quota errors (403).
func (y *YouTube) dataAPI(ctx context.Context, resource, id string, params url.Values, out any) error {
	if len(y.keys) == 0 {
		return engine.NewSourceError(id, engine.KindUnavailable, errNoAPIKey)
	}
	var lastErr error
	for i, key := range y.keys {
		params.Set("key", key)
		body, err := y.get(ctx, y.dataAPIBase+"/"+resource+"?"+params.Encode(), id, 1024*1024,
			map[string]string{"User-Agent": engine.UserAgentBot})
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return engine.NewSourceError(id, engine.KindUnavailable, fmt.Errorf("decode %s: %w", resource, err))
			}
			return nil
		}
		lastErr = err
		var se *engine.SourceError
		if !errors.As(err, &se) || se.Kind != engine.KindQuotaExceeded {
			return err
		}
		if i+1 < len(y.keys) {
			slog.Debug("youtube data API quota exceeded, trying fallback key", slog.String("resource", resource))
		}
	}
	return lastErr
}

// FetchVideoTitle returns the video title from the Data API when a key is
// configured, otherwise (or when the API fails for a non-definitive reason)
// from oEmbed, then the watch page.
func (y *YouTube) FetchVideoTitle(ctx context.Context, videoID string) (string, error) {
	if y.HasAPIKey() {
		title, err := y.titleFromDataAPI(ctx, videoID)
		if err == nil || definitive(err) {
			return title, err
		}
		slog.Debug("youtube: data API title failed, trying oEmbed", slog.String("id", videoID), slog.Any("err", err))
	}

	title, err := y.titleFromOEmbed(ctx, videoID)
	if err == nil || definitive(err) {
		return title, err
	}
	slog.Debug("youtube: oEmbed title failed, trying watch page", slog.String("id", videoID), slog.Any("err", err))

	if p, perr := y.fetchWatchPlayer(ctx, videoID); perr == nil && p.VideoDetails != nil && p.VideoDetails.Title != "" {
		return p.VideoDetails.Title, nil
	}
	return "", err
}

func (y *YouTube) titleFromDataAPI(ctx context.Context, videoID string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", videoID)
	var resp ytVideosResp
	if err := y.dataAPI(ctx, "videos", videoID, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", engine.NewSourceError(videoID, engine.KindNotFound, nil)
	}
	return resp.Items[0].Snippet.Title, nil
}

func (y *YouTube) titleFromOEmbed(ctx context.Context, videoID string) (string, error) {
	params := url.Values{}
	params.Set("url", "https://www.youtube.com/watch?v="+videoID)
	params.Set("format", "json")
	body, err := y.get(ctx, y.baseURL+"/oembed?"+params.Encode(), videoID, 64*1024,
		map[string]string{"User-Agent": engine.UserAgentBot})
	if err != nil {
		return "", err
	}
	var resp ytOEmbedResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", engine.NewSourceError(videoID, engine.KindUnavailable, fmt.Errorf("decode oembed: %w", err))
	}
	return resp.Title, nil
}

// ExpandPlaylist pages through playlistItems and returns video IDs in
// playlist order.
func (y *YouTube) ExpandPlaylist(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	token := ""
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", strconv.Itoa(ytPageSize))
		if token != "" {
			params.Set("pageToken", token)
		}
		var resp ytPlaylistItemsResp
		if err := y.dataAPI(ctx, "playlistItems", playlistID, params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if id := item.ContentDetails.VideoID; id != "" {
				ids = append(ids, id)
			}
		}
		if resp.NextPageToken == "" || resp.NextPageToken == token {
			slog.Debug("youtube: playlist expanded", slog.String("playlist", playlistID), slog.Int("pages", page+1), slog.Int("videos", len(ids)))
			return ids, nil
		}
		token = resp.NextPageToken
	}
}

// ExpandChannel resolves the channel's uploads playlist and expands it.
func (y *YouTube) ExpandChannel(ctx context.Context, channelID string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)
	var resp ytChannelsResp
	if err := y.dataAPI(ctx, "channels", channelID, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return nil, engine.NewSourceError(channelID, engine.KindNotFound, errors.New("channel has no uploads playlist"))
	}
	return y.ExpandPlaylist(ctx, resp.Items[0].ContentDetails.RelatedPlaylists.Uploads)
}
