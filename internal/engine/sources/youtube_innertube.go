package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"capscan/internal/engine"
)

// YouTube player response plumbing — constants, types, and the two ways of
// obtaining a player response. Higher-level probe/fetch/metadata logic lives
// in youtube_transcript.go.

const (
	ytPlayerURL      = "https://www.youtube.com/youtubei/v1/player"
	ytWatchURL       = "https://www.youtube.com/watch?v="
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
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

// playerResponse is the shared shape of the ANDROID /player reply and the
// ytInitialPlayerResponse object embedded in watch-page HTML.
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
		VideoID   string `json:"videoId"`
		Title     string `json:"title"`
		ChannelID string `json:"channelId"`
		Author    string `json:"author"`
		ViewCount string `json:"viewCount"`
	} `json:"videoDetails"`
	Microformat *struct {
		PlayerMicroformatRenderer struct {
			PublishDate string `json:"publishDate"`
			UploadDate  string `json:"uploadDate"`
		} `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// needsPoToken reports whether a caption track URL is gated behind a
// proof-of-origin token. Such tracks only resolve inside a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

var (
	errNoTrack    = errors.New("no caption track for language")
	errTokenGated = errors.New("caption tracks require proof-of-origin token")
)

// pickTrack selects the caption track to fetch for lang. Manually created
// tracks win over auto-generated ones; matching is by language-code prefix
// ("en" takes "en-US"); there is no cross-language fallback. Token-gated
// tracks are skipped. An empty lang accepts any usable track.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, error) {
	if len(tracks) == 0 {
		return captionTrack{}, errNoTrack
	}
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, errTokenGated
	}
	lang = strings.ToLower(lang)
	// 1. Manual track in the requested language
	for _, t := range usable {
		if t.Kind != "asr" && strings.HasPrefix(strings.ToLower(t.LanguageCode), lang) {
			return t, nil
		}
	}
	// 2. Auto-generated track in the requested language
	for _, t := range usable {
		if strings.HasPrefix(strings.ToLower(t.LanguageCode), lang) {
			return t, nil
		}
	}
	return captionTrack{}, errNoTrack
}

func tracksFromPlayer(pr *playerResponse) []captionTrack {
	if pr == nil || pr.Captions == nil {
		return nil
	}
	return pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// metadataFromPlayer assembles VideoMetadata from a player response.
// Reports false when the response carries no video details, which is how
// deleted and private videos come back.
func metadataFromPlayer(pr *playerResponse) (engine.VideoMetadata, bool) {
	if pr == nil || pr.VideoDetails == nil || pr.VideoDetails.VideoID == "" {
		return engine.VideoMetadata{}, false
	}
	md := engine.VideoMetadata{
		VideoID:      pr.VideoDetails.VideoID,
		Title:        pr.VideoDetails.Title,
		ChannelTitle: pr.VideoDetails.Author,
		ChannelID:    pr.VideoDetails.ChannelID,
	}
	if n, err := strconv.ParseUint(pr.VideoDetails.ViewCount, 10, 64); err == nil {
		md.Views = n
	}
	if pr.Microformat != nil {
		md.UploadedAt = pr.Microformat.PlayerMicroformatRenderer.PublishDate
		if md.UploadedAt == "" {
			md.UploadedAt = pr.Microformat.PlayerMicroformatRenderer.UploadDate
		}
	}
	return md, true
}

// fetchPlayerResponse queries the innertube /player endpoint with the
// ANDROID client, which hands out caption tracks without browser cookies.
func fetchPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	body, err := json.Marshal(innertubeReq{
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
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ytPlayerURL+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ytAndroidUA)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)

	resp, err := engine.Do("player", req)
	if err != nil {
		return nil, err
	}
	data, err := engine.ReadBody("player", resp)
	if err != nil {
		return nil, err
	}

	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, &engine.UpstreamError{Op: "player", Err: fmt.Errorf("decode: %w", err)}
	}
	return &pr, nil
}

// playerResponseMarker marks the start of the player response JSON in
// watch-page HTML.
const playerResponseMarker = "ytInitialPlayerResponse = "

// scrapePlayerResponse pulls the embedded player response out of the watch
// page. This works from addresses where /player demands a signed-in session.
func scrapePlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ytWatchURL+videoID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := engine.Do("watch page", req)
	if err != nil {
		return nil, err
	}
	body, err := engine.ReadBody("watch page", resp)
	if err != nil {
		return nil, err
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, &engine.UpstreamError{Op: "watch page", Err: errors.New("player response marker not found")}
	}
	raw := extractJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, &engine.UpstreamError{Op: "watch page", Err: errors.New("unbalanced player response JSON")}
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, &engine.UpstreamError{Op: "watch page", Err: fmt.Errorf("decode: %w", err)}
	}
	return &pr, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by
// tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	var prev byte
	for i, c := range b {
		if inStr {
			if c == '"' && prev != '\\' {
				inStr = false
			}
		} else {
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
		prev = c
	}
	return nil
}
