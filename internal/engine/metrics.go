package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks upstream call counters across the engine.
var metrics struct {
	SearchPageRequests atomic.Int64
	FeedRequests       atomic.Int64
	CaptionProbes      atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptMisses   atomic.Int64
	MetadataRequests   atomic.Int64
	UnitErrors         atomic.Int64
	PlayerCacheHits    atomic.Int64
	PlayerCacheMisses  atomic.Int64
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"search_page_requests": metrics.SearchPageRequests.Load(),
		"feed_requests":        metrics.FeedRequests.Load(),
		"caption_probes":       metrics.CaptionProbes.Load(),
		"transcript_requests":  metrics.TranscriptRequests.Load(),
		"transcript_misses":    metrics.TranscriptMisses.Load(),
		"metadata_requests":    metrics.MetadataRequests.Load(),
		"unit_errors":          metrics.UnitErrors.Load(),
		"player_cache_hits":    metrics.PlayerCacheHits.Load(),
		"player_cache_misses":  metrics.PlayerCacheMisses.Load(),
	}
}

// FormatMetrics returns the counters as simple text, one per line.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"search_page_requests", "feed_requests",
		"caption_probes",
		"transcript_requests", "transcript_misses",
		"metadata_requests",
		"unit_errors",
		"player_cache_hits", "player_cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the scan sub-package.
func IncrUnitError() { metrics.UnitErrors.Add(1) }

// Incrementors for the sources sub-package.
func IncrSearchPage()       { metrics.SearchPageRequests.Add(1) }
func IncrFeedRequest()      { metrics.FeedRequests.Add(1) }
func IncrCaptionProbe()     { metrics.CaptionProbes.Add(1) }
func IncrTranscript()       { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptMiss()   { metrics.TranscriptMisses.Add(1) }
func IncrMetadata()         { metrics.MetadataRequests.Add(1) }
func IncrPlayerCacheHit()   { metrics.PlayerCacheHits.Add(1) }
func IncrPlayerCacheMiss()  { metrics.PlayerCacheMisses.Add(1) }
