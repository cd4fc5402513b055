package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"capscan/internal/engine"
)

// fakeFetcher serves canned transcripts, optional per-id delays to force
// out-of-order completion, and per-id failures.
type fakeFetcher struct {
	transcripts map[string][]engine.CaptionSegment
	erring      map[string]bool
	delays      map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, id, lang string) ([]engine.CaptionSegment, error) {
	if d := f.delays[id]; d > 0 {
		time.Sleep(d)
	}
	if f.erring[id] {
		return nil, &engine.UpstreamError{Op: "timedtext", Status: 502}
	}
	return f.transcripts[id], nil
}

type fakeMeta struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeMeta) Metadata(ctx context.Context, id string) (engine.VideoMetadata, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.fail[id] {
		return engine.VideoMetadata{}, &engine.UpstreamError{Op: "videos.list", Err: errors.New("no record")}
	}
	return engine.VideoMetadata{
		VideoID:      id,
		Title:        "Title " + id,
		ChannelTitle: "Channel",
		ChannelID:    "UCx",
		UploadedAt:   "2024-01-02T03:04:05Z",
		Views:        1234,
	}, nil
}

func TestRunScenario(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string][]engine.CaptionSegment{
		"v1": {{Start: 12.0, Text: "Hello world"}},
		"v2": nil,
		"v3": {{Start: 3, Text: "unrelated chatter"}},
	}}
	meta := &fakeMeta{}
	c := &Coordinator{
		Fetcher:  fetcher,
		Meta:     meta,
		Matcher:  NewMatcher("hello", false),
		Language: "en",
		Workers:  3,
	}

	records, sum := c.Run(context.Background(), []string{"v1", "v2", "v3"})

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}
	r := records[0]
	if r.VideoID != "v1" {
		t.Errorf("record video = %q, want v1", r.VideoID)
	}
	if len(r.Segments) != 1 || r.Segments[0].Text != "Hello world" {
		t.Errorf("record segments = %+v, want the single hello segment", r.Segments)
	}
	if sum.Scanned != 3 || sum.Matched != 1 || sum.Matches != 1 || sum.Errors != 0 {
		t.Errorf("summary = %+v, want scanned 3, matched 1, matches 1", sum)
	}
	if len(meta.calls) != 1 || meta.calls[0] != "v1" {
		t.Errorf("metadata fetched for %v, want only the matching video", meta.calls)
	}
	if !strings.Contains(FormatRecord(r), "╳ 00:00:12 - Hello world") {
		t.Errorf("formatted record lacks the timestamp line:\n%s", FormatRecord(r))
	}
}

func TestRunContinuesPastUnitErrors(t *testing.T) {
	fetcher := &fakeFetcher{
		transcripts: map[string][]engine.CaptionSegment{
			"v1": {{Start: 1, Text: "target here"}},
			"v3": {{Start: 2, Text: "another target"}},
		},
		erring: map[string]bool{"v2": true},
	}
	c := &Coordinator{
		Fetcher: fetcher,
		Meta:    &fakeMeta{},
		Matcher: NewMatcher("target", false),
		Workers: 2,
	}

	records, sum := c.Run(context.Background(), []string{"v1", "v2", "v3"})

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].VideoID != "v1" || records[1].VideoID != "v3" {
		t.Errorf("records = %q,%q, want v1,v3", records[0].VideoID, records[1].VideoID)
	}
	if sum.Errors != 1 {
		t.Errorf("summary errors = %d, want 1", sum.Errors)
	}
	if sum.Scanned != 3 {
		t.Errorf("summary scanned = %d, want all units to complete", sum.Scanned)
	}
}

func TestRunRecordsFollowDispatchOrder(t *testing.T) {
	ids := []string{"v1", "v2", "v3", "v4", "v5"}
	fetcher := &fakeFetcher{
		transcripts: map[string][]engine.CaptionSegment{},
		delays:      map[string]time.Duration{},
	}
	// Later dispatches finish sooner, so completion order is reversed.
	for i, id := range ids {
		fetcher.transcripts[id] = []engine.CaptionSegment{{Start: 1, Text: "match me"}}
		fetcher.delays[id] = time.Duration(len(ids)-i) * 15 * time.Millisecond
	}
	c := &Coordinator{
		Fetcher: fetcher,
		Meta:    &fakeMeta{},
		Matcher: NewMatcher("match", false),
		Workers: len(ids),
	}

	records, _ := c.Run(context.Background(), ids)

	if len(records) != len(ids) {
		t.Fatalf("got %d records, want %d", len(records), len(ids))
	}
	seen := map[string]bool{}
	for i, r := range records {
		if r.VideoID != ids[i] {
			t.Errorf("record %d = %q, want %q (dispatch order)", i, r.VideoID, ids[i])
		}
		if seen[r.VideoID] {
			t.Errorf("duplicate record for %q", r.VideoID)
		}
		seen[r.VideoID] = true
	}
}

func TestRunMetadataFailureDropsRecord(t *testing.T) {
	fetcher := &fakeFetcher{transcripts: map[string][]engine.CaptionSegment{
		"v1": {{Start: 1, Text: "the phrase"}},
	}}
	meta := &fakeMeta{fail: map[string]bool{"v1": true}}
	c := &Coordinator{
		Fetcher: fetcher,
		Meta:    meta,
		Matcher: NewMatcher("phrase", false),
		Workers: 1,
	}

	records, sum := c.Run(context.Background(), []string{"v1"})

	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if sum.Errors != 1 || sum.Scanned != 1 {
		t.Errorf("summary = %+v, want one completed, one error", sum)
	}
}

type recordingObserver struct {
	events []UnitEvent
}

func (o *recordingObserver) UnitDone(ev UnitEvent) { o.events = append(o.events, ev) }

func TestRunObserver(t *testing.T) {
	fetcher := &fakeFetcher{
		transcripts: map[string][]engine.CaptionSegment{
			"v1": {{Start: 1, Text: "yes one"}, {Start: 2, Text: "yes two"}},
			"v3": {{Start: 3, Text: "nope"}},
		},
		erring: map[string]bool{"v2": true},
	}
	obs := &recordingObserver{}
	c := &Coordinator{
		Fetcher:  fetcher,
		Meta:     &fakeMeta{},
		Matcher:  NewMatcher("yes", false),
		Workers:  2,
		Observer: obs,
	}

	_, sum := c.Run(context.Background(), []string{"v1", "v2", "v3"})

	if len(obs.events) != 3 {
		t.Fatalf("observer saw %d events, want 3", len(obs.events))
	}
	for i, ev := range obs.events {
		if ev.State.Completed != i+1 {
			t.Errorf("event %d completed = %d, want %d", i, ev.State.Completed, i+1)
		}
		if ev.State.Dispatched != 3 {
			t.Errorf("event %d dispatched = %d, want 3", i, ev.State.Dispatched)
		}
	}
	last := obs.events[len(obs.events)-1].State
	if last.Matches != sum.Matches || last.Errors != sum.Errors {
		t.Errorf("final snapshot %+v disagrees with summary %+v", last, sum)
	}
	if sum.Matches != 2 {
		t.Errorf("summary matches = %d, want 2 segments", sum.Matches)
	}
}

type ctxWaitFetcher struct{}

func (ctxWaitFetcher) Fetch(ctx context.Context, id, lang string) ([]engine.CaptionSegment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunUnitTimeout(t *testing.T) {
	c := &Coordinator{
		Fetcher:     ctxWaitFetcher{},
		Meta:        &fakeMeta{},
		Matcher:     NewMatcher("x", false),
		Workers:     1,
		UnitTimeout: 10 * time.Millisecond,
	}

	done := make(chan struct{})
	var sum Summary
	go func() {
		_, sum = c.Run(context.Background(), []string{"v1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish; unit timeout not applied")
	}
	if sum.Errors != 1 {
		t.Errorf("summary errors = %d, want the timed-out unit counted", sum.Errors)
	}
}

func TestRunEmptyInput(t *testing.T) {
	c := &Coordinator{
		Fetcher: &fakeFetcher{},
		Meta:    &fakeMeta{},
		Matcher: NewMatcher("x", false),
	}
	records, sum := c.Run(context.Background(), nil)
	if len(records) != 0 || sum.Scanned != 0 {
		t.Errorf("empty input produced records=%v summary=%+v", records, sum)
	}
}
