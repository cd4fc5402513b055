package sources

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"capscan/internal/engine"
)

// Keyless channel enumeration over the public uploads feed. The feed
// carries only the most recent uploads (about 15) and has no paging, so it
// serves the no-credential path, not deep scans.

const ytFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// FeedLister enumerates a channel's recent uploads from its RSS feed,
// locally filtered to the optional publish-date window.
type FeedLister struct {
	After, Before time.Time
}

// Page implements the channel pager over the uploads feed. The feed is a
// single page: nextPage is always empty, and a non-empty pageToken yields
// nothing.
func (l *FeedLister) Page(ctx context.Context, channelID, pageToken string) ([]string, string, error) {
	if pageToken != "" {
		return nil, "", nil
	}
	engine.IncrFeedRequest()

	ctx, cancel := context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
	defer cancel()

	p := gofeed.NewParser()
	p.Client = engine.Cfg.HTTPClient
	p.UserAgent = engine.UserAgentBot
	feed, err := p.ParseURLWithContext(ytFeedURL+channelID, ctx)
	if err != nil {
		return nil, "", &engine.UpstreamError{Op: "uploads feed", Err: err}
	}

	ids := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !l.inWindow(item.PublishedParsed) {
			continue
		}
		if id := feedVideoID(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, "", nil
}

func (l *FeedLister) inWindow(t *time.Time) bool {
	if l.After.IsZero() && l.Before.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	if !l.After.IsZero() && t.Before(l.After) {
		return false
	}
	if !l.Before.IsZero() && t.After(l.Before) {
		return false
	}
	return true
}

// feedVideoID digs the video id out of a feed entry, preferring the yt
// namespace extension and falling back to the "yt:video:" GUID form.
func feedVideoID(item *gofeed.Item) string {
	if id := feedExtension(item.Extensions, "yt", "videoId"); id != "" {
		return id
	}
	if strings.HasPrefix(item.GUID, "yt:video:") {
		return strings.TrimPrefix(item.GUID, "yt:video:")
	}
	return ""
}

func feedExtension(exts ext.Extensions, ns, name string) string {
	for _, e := range exts[ns][name] {
		if e.Name == name {
			return e.Value
		}
	}
	return ""
}
