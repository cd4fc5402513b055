package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"capscan/internal/engine"
)

// DataClient wraps the official YouTube Data API v3 service for channel
// enumeration, metadata lookup, and key validation.
type DataClient struct {
	service *ytapi.Service
}

// NewDataClient builds a Data API client authenticated by apiKey.
func NewDataClient(ctx context.Context, apiKey string) (*DataClient, error) {
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataClient{service: service}, nil
}

// wrapAPIError converts a googleapi error into the upstream taxonomy,
// keeping the HTTP status when the API supplied one.
func wrapAPIError(op string, err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &engine.UpstreamError{Op: op, Status: ge.Code, Err: err}
	}
	return &engine.UpstreamError{Op: op, Err: err}
}

// Pager returns a ChannelPager over search.list, newest first, bounded by
// the optional publish-date window.
func (c *DataClient) Pager(after, before time.Time) *DataPager {
	return &DataPager{service: c.service, after: after, before: before}
}

// DataPager pages through a channel's videos via search.list.
type DataPager struct {
	service       *ytapi.Service
	after, before time.Time
}

// Page fetches one page of video ids for channelID, newest first. An empty
// pageToken starts from the top; the returned nextPage is empty on the
// last page.
func (p *DataPager) Page(ctx context.Context, channelID, pageToken string) ([]string, string, error) {
	engine.IncrSearchPage()

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	call := p.service.Search.List([]string{"id"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(engine.Cfg.PageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	if !p.after.IsZero() {
		call = call.PublishedAfter(p.after.Format(time.RFC3339))
	}
	if !p.before.IsZero() {
		call = call.PublishedBefore(p.before.Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", wrapAPIError("search.list", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, resp.NextPageToken, nil
}

// Metadata looks up title, channel, upload date, and view count for
// videoID. An identifier the host has no record of fails with
// UpstreamError.
func (c *DataClient) Metadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	engine.IncrMetadata()

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return engine.VideoMetadata{}, wrapAPIError("videos.list", err)
	}
	if len(resp.Items) == 0 {
		return engine.VideoMetadata{}, &engine.UpstreamError{
			Op:  "videos.list",
			Err: fmt.Errorf("no record of video %s", videoID),
		}
	}

	item := resp.Items[0]
	md := engine.VideoMetadata{VideoID: videoID}
	if item.Snippet != nil {
		md.Title = item.Snippet.Title
		md.ChannelTitle = item.Snippet.ChannelTitle
		md.ChannelID = item.Snippet.ChannelId
		md.UploadedAt = item.Snippet.PublishedAt
	}
	if item.Statistics != nil {
		md.Views = item.Statistics.ViewCount
	}
	return md, nil
}

// ValidateKey exercises the key with a one-result probe search. A 400 or
// 403 from the API means the key is unusable and comes back as InputError;
// anything else surfaces as UpstreamError.
func (c *DataClient) ValidateKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	_, err := c.service.Search.List([]string{"id"}).
		Q("test").
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err == nil {
		return nil
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) && (ge.Code == http.StatusBadRequest || ge.Code == http.StatusForbidden) {
		return &engine.InputError{Msg: "API key rejected by the Data API", Err: err}
	}
	return wrapAPIError("search.list", err)
}
