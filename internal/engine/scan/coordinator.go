package scan

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"capscan/internal/engine"
)

// DefaultWorkers is the pool size when the caller gives none.
const DefaultWorkers = 10

// TranscriptFetcher returns the ordered caption segments for a video in a
// language. A video without a transcript in that language yields an empty
// result and no error.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID, lang string) ([]engine.CaptionSegment, error)
}

// MetadataFetcher returns descriptive attributes for a video. The
// coordinator calls it only for videos with at least one matching segment.
type MetadataFetcher interface {
	Metadata(ctx context.Context, videoID string) (engine.VideoMetadata, error)
}

// MatchRecord is one matched video: its metadata plus the matching
// segments in transcript order. Built whole from a single unit's result
// and never mutated afterwards.
type MatchRecord struct {
	VideoID  string
	Meta     engine.VideoMetadata
	Segments []engine.CaptionSegment
}

// StateSnapshot is a point-in-time copy of the run counters. Matches
// counts segments, not videos.
type StateSnapshot struct {
	Dispatched int
	Completed  int
	Matches    int
	Errors     int
}

// UnitEvent describes one completed unit of work.
type UnitEvent struct {
	VideoID string
	Matches int
	Err     error
	State   StateSnapshot
}

// Observer receives one event per completed unit, always from the
// consumer loop and never concurrently. A nil Observer is valid.
type Observer interface {
	UnitDone(ev UnitEvent)
}

// Summary is the outcome of one run.
type Summary struct {
	Scanned int // units completed
	Matched int // videos with at least one match
	Matches int // total matching segments
	Errors  int
	Elapsed time.Duration
}

// Coordinator fans fetch+filter+metadata units out over a bounded worker
// pool and funnels every outcome through a single consumer loop, which is
// the only place the counters and the record list are touched.
type Coordinator struct {
	Fetcher     TranscriptFetcher
	Meta        MetadataFetcher
	Matcher     *Matcher
	Language    string
	Workers     int
	UnitTimeout time.Duration
	Observer    Observer
}

type unitResult struct {
	index  int // dispatch position
	id     string
	record *MatchRecord // nil when the video contributed nothing
	err    error
}

// Run processes ids and returns the match records in dispatch order plus
// the run totals. Per-unit failures are logged and counted; they never
// abort the batch. Run returns only after every dispatched unit has
// completed.
func (c *Coordinator) Run(ctx context.Context, ids []string) ([]MatchRecord, Summary) {
	started := time.Now()

	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(ids) && len(ids) > 0 {
		workers = len(ids)
	}

	type unit struct {
		index int
		id    string
	}

	jobs := make(chan unit)
	results := make(chan unitResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				rec, err := c.process(ctx, u.id)
				results <- unitResult{index: u.index, id: u.id, record: rec, err: err}
			}
		}()
	}

	go func() {
		for i, id := range ids {
			jobs <- unit{index: i, id: id}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	type ordered struct {
		index int
		rec   MatchRecord
	}

	state := StateSnapshot{Dispatched: len(ids)}
	var collected []ordered

	for r := range results {
		state.Completed++
		if r.err != nil {
			state.Errors++
			engine.IncrUnitError()
			slog.Warn("video failed, continuing",
				slog.String("video_id", r.id),
				slog.Bool("transient", engine.IsTransient(r.err)),
				slog.Any("err", r.err))
		}
		matches := 0
		if r.record != nil {
			matches = len(r.record.Segments)
			state.Matches += matches
			collected = append(collected, ordered{index: r.index, rec: *r.record})
		}
		if c.Observer != nil {
			c.Observer.UnitDone(UnitEvent{VideoID: r.id, Matches: matches, Err: r.err, State: state})
		}
	}

	// Completion order varies run to run; dispatch order does not.
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	records := make([]MatchRecord, 0, len(collected))
	for _, o := range collected {
		records = append(records, o.rec)
	}

	return records, Summary{
		Scanned: state.Completed,
		Matched: len(records),
		Matches: state.Matches,
		Errors:  state.Errors,
		Elapsed: time.Since(started),
	}
}

// process runs one unit of work: fetch the transcript, filter it, and on
// a match look up metadata. One attempt per call; no retries.
func (c *Coordinator) process(ctx context.Context, id string) (*MatchRecord, error) {
	if c.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.UnitTimeout)
		defer cancel()
	}

	segs, err := c.Fetcher.Fetch(ctx, id, c.Language)
	if err != nil {
		return nil, err
	}
	matched := c.Matcher.Filter(segs)
	if len(matched) == 0 {
		return nil, nil
	}

	md, err := c.Meta.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MatchRecord{VideoID: id, Meta: md, Segments: matched}, nil
}
