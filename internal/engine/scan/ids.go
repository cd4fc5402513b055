package scan

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"

	"bitbucket.org/creachadair/stringset"

	"capscan/internal/engine"
)

// DefaultMaxResults caps channel enumeration when the caller gives no limit.
const DefaultMaxResults = 30

// normalizeID reduces one entry (bare id or watch URL) to a video id.
func normalizeID(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", engine.Inputf("empty video identifier")
	}
	if engine.IsVideoID(token) {
		return token, nil
	}
	if id := engine.ExtractVideoID(token); id != "" {
		return id, nil
	}
	return "", engine.Inputf("not a video id or watch URL: %q", token)
}

// ParseVideoList splits a comma-separated list of ids or watch URLs.
// Duplicates are preserved verbatim; empty entries are dropped.
func ParseVideoList(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		id, err := normalizeID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, engine.Inputf("no video identifiers in %q", s)
	}
	return ids, nil
}

// ReadVideoFile reads one id or URL per line. Blank lines and lines
// starting with # are skipped.
func ReadVideoFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &engine.InputError{Msg: "ids file " + path, Err: err}
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := normalizeID(line)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, &engine.InputError{Msg: "reading " + path, Err: err}
	}
	if len(ids) == 0 {
		return nil, engine.Inputf("no video identifiers in %s", path)
	}
	return ids, nil
}

// ResolveVideoArg interprets a single videos argument: a comma-separated
// list, a path to an ids file, or one id/URL.
func ResolveVideoArg(arg string) ([]string, error) {
	if strings.Contains(arg, ",") {
		return ParseVideoList(arg)
	}
	if _, err := os.Stat(arg); err == nil {
		return ReadVideoFile(arg)
	}
	id, err := normalizeID(arg)
	if err != nil {
		return nil, engine.Inputf("%q is not a video id, watch URL, or readable file", arg)
	}
	return []string{id}, nil
}

// ChannelPager returns one page of video ids for a channel, newest first.
// An empty nextPage ends the enumeration.
type ChannelPager interface {
	Page(ctx context.Context, channelID, pageToken string) (ids []string, nextPage string, err error)
}

// CaptionProber reports whether a video has a usable caption track in a
// language. The probe is slow: it performs a blocking upstream call.
type CaptionProber interface {
	HasCaptions(ctx context.Context, videoID, lang string) (bool, error)
}

// EnumerateChannel walks a channel newest first and collects up to
// maxResults ids of videos with captions in lang. Duplicate ids are
// dropped. A probe failure skips that video only; a failing page ends the
// walk, returning the ids collected so far alongside the error.
func EnumerateChannel(ctx context.Context, pager ChannelPager, prober CaptionProber, channelID, lang string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var (
		ids   []string
		seen  stringset.Set
		token string
	)
	for {
		pageIDs, next, err := pager.Page(ctx, channelID, token)
		if err != nil {
			return ids, err
		}
		for _, id := range pageIDs {
			if !seen.Add(id) {
				continue
			}
			ok, err := prober.HasCaptions(ctx, id, lang)
			if err != nil {
				slog.Warn("caption probe failed, skipping video",
					slog.String("video_id", id), slog.Any("err", err))
				continue
			}
			if !ok {
				continue
			}
			ids = append(ids, id)
			if len(ids) >= maxResults {
				return ids, nil
			}
		}
		if next == "" {
			return ids, nil
		}
		token = next
	}
}
