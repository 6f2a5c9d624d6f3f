package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// YouTube Innertube API — player constants, types, and the ANDROID /player call.

const (
	ytPlayerPath     = "/youtubei/v1/player"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"

	// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
	ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "
)

// --- ANDROID client types (/player endpoint) ---

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

// playerResponse is shared by the watch page (ytInitialPlayerResponse) and /player.
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
	} `json:"videoDetails"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// tracks returns the caption tracks, or a source error explaining why
// there are none.
func (p *playerResponse) tracks(videoID string) ([]captionTrack, error) {
	if p.PlayabilityStatus != nil {
		switch p.PlayabilityStatus.Status {
		case "ERROR":
			return nil, engine.NewSourceError(videoID, engine.KindNotFound, statusErr(p.PlayabilityStatus.Reason))
		case "LOGIN_REQUIRED", "UNPLAYABLE", "AGE_CHECK_REQUIRED":
			return nil, engine.NewSourceError(videoID, engine.KindUnavailable, statusErr(p.PlayabilityStatus.Reason))
		}
	}
	if p.Captions == nil || len(p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		return nil, engine.NewSourceError(videoID, engine.KindCaptionsDisabled, nil)
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

type statusErr string

func (e statusErr) Error() string {
	if e == "" {
		return "playability check failed"
	}
	return string(e)
}

// fetchAndroidPlayer calls the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func (y *YouTube) fetchAndroidPlayer(ctx context.Context, videoID string) (*playerResponse, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
	if err != nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ytAndroidUA)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)

	body, err := y.do(req, videoID, 3*1024*1024)
	if err != nil {
		return nil, err
	}
	var player playerResponse
	if err := json.Unmarshal(body, &player); err != nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, err)
	}
	return &player, nil
}
