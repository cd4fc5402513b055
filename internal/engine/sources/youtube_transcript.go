package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"capscan/internal/engine"
)

// Caption probing, transcript fetching, and keyless metadata lookup.
// Tier order for obtaining a player response:
//   1. scrape the watch page for ytInitialPlayerResponse  (works from any IP)
//   2. ANDROID innertube /player                           (no cookies needed)
// The chosen track's timed-text XML is then fetched and decoded.

// playerCacheSize bounds the in-run player response cache. A channel run
// touches each video at most a handful of times (probe, fetch, metadata),
// so a few hundred entries cover any realistic enumeration cap.
const playerCacheSize = 512

// CaptionClient fetches transcripts over YouTube's unofficial endpoints.
// It keeps a bounded in-run cache of player responses so that probing a
// video for caption availability and later fetching its transcript share
// one upstream call. The cache lives and dies with the process.
type CaptionClient struct {
	cache *lru.Cache[string, *playerResponse]
}

// NewCaptionClient creates a CaptionClient with an empty cache.
func NewCaptionClient() (*CaptionClient, error) {
	cache, err := lru.New[string, *playerResponse](playerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create player cache: %w", err)
	}
	return &CaptionClient{cache: cache}, nil
}

// playerFor returns the player response for videoID, from cache when
// possible. The watch-page scrape is tried first; the ANDROID /player
// endpoint covers pages that come back without a usable track list.
func (c *CaptionClient) playerFor(ctx context.Context, videoID string) (*playerResponse, error) {
	if pr, ok := c.cache.Get(videoID); ok {
		engine.IncrPlayerCacheHit()
		return pr, nil
	}
	engine.IncrPlayerCacheMiss()

	pr, scrapeErr := scrapePlayerResponse(ctx, videoID)
	if scrapeErr == nil && len(tracksFromPlayer(pr)) > 0 {
		c.cache.Add(videoID, pr)
		return pr, nil
	}
	if scrapeErr != nil {
		slog.Debug("watch page gave no player response, trying /player",
			slog.String("video_id", videoID), slog.Any("err", scrapeErr))
	}

	apr, err := fetchPlayerResponse(ctx, videoID)
	if err != nil {
		if scrapeErr == nil {
			// The page answered but listed no tracks. That is an
			// authoritative "no captions", not a transport failure.
			c.cache.Add(videoID, pr)
			return pr, nil
		}
		return nil, err
	}
	c.cache.Add(videoID, apr)
	return apr, nil
}

// HasCaptions reports whether videoID has a usable caption track in lang.
// The player response is cached, so a later Fetch reuses this lookup.
func (c *CaptionClient) HasCaptions(ctx context.Context, videoID, lang string) (bool, error) {
	engine.IncrCaptionProbe()
	pr, err := c.playerFor(ctx, videoID)
	if err != nil {
		return false, err
	}
	if _, err := pickTrack(tracksFromPlayer(pr), lang); err != nil {
		return false, nil
	}
	return true, nil
}

// Fetch returns the ordered caption segments for videoID in lang. A video
// with no transcript in that language, or with transcripts disabled, yields
// an empty result and no error. Transport and decode failures are errors.
func (c *CaptionClient) Fetch(ctx context.Context, videoID, lang string) ([]engine.CaptionSegment, error) {
	engine.IncrTranscript()

	pr, err := c.playerFor(ctx, videoID)
	if err != nil {
		return nil, err
	}
	track, err := pickTrack(tracksFromPlayer(pr), lang)
	if errors.Is(err, errNoTrack) {
		engine.IncrTranscriptMiss()
		return nil, nil
	}
	if err != nil {
		return nil, &engine.UpstreamError{Op: "captions", Err: err}
	}

	segs, err := fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		engine.IncrTranscriptMiss()
	}
	return segs, nil
}

// Metadata returns descriptive attributes for videoID from the cached
// player response. An identifier the host has no record of fails with
// UpstreamError.
func (c *CaptionClient) Metadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	engine.IncrMetadata()

	pr, err := c.playerFor(ctx, videoID)
	if err != nil {
		return engine.VideoMetadata{}, err
	}
	md, ok := metadataFromPlayer(pr)
	if !ok {
		reason := "no video details"
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			reason = pr.PlayabilityStatus.Reason
		}
		return engine.VideoMetadata{}, &engine.UpstreamError{Op: "metadata", Err: errors.New(reason)}
	}
	return md, nil
}

// --- Timedtext ---

type timedText struct {
	XMLName xml.Name    `xml:"transcript"`
	Lines   []timedLine `xml:"text"`
}

type timedLine struct {
	Start float64 `xml:"start,attr"`
	Text  string  `xml:",chardata"`
}

// fetchTimedText downloads and decodes a caption track's timed-text XML.
func fetchTimedText(ctx context.Context, baseURL string) ([]engine.CaptionSegment, error) {
	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := engine.Do("timedtext", req)
	if err != nil {
		return nil, err
	}
	body, err := engine.ReadBody("timedtext", resp)
	if err != nil {
		return nil, err
	}
	return decodeTimedText(body)
}

// decodeTimedText parses timed-text XML into ordered caption segments.
// YouTube serves entity-heavy and not always well-formed XML, so the
// decoder runs lenient with the full HTML entity table.
func decodeTimedText(data []byte) ([]engine.CaptionSegment, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var tt timedText
	if err := dec.Decode(&tt); err != nil {
		return nil, &engine.UpstreamError{Op: "timedtext", Err: fmt.Errorf("parse: %w", err)}
	}

	segs := make([]engine.CaptionSegment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanCaptionText(line.Text)
		if text == "" {
			continue
		}
		segs = append(segs, engine.CaptionSegment{Start: line.Start, Text: text})
	}
	return segs, nil
}
