package sources

// YouTube access is split across four files by responsibility:
//   youtube_innertube.go  — player response types, constants, and low-level
//                           HTTP primitives (watch-page scrape + /player)
//   youtube_transcript.go — caption probing, transcript fetching, and the
//                           keyless metadata path, behind an in-run cache
//   youtube_data.go       — Data API v3: channel enumeration pages, metadata
//                           lookup, and API-key validation
//   youtube_feed.go       — keyless channel enumeration over the public
//                           uploads RSS feed
