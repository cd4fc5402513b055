package engine

// --- Caption types ---

// CaptionSegment is one timed line of a video transcript, ordered by
// start offset within the video.
type CaptionSegment struct {
	Start float64 // offset from video start, seconds
	Text  string  // cleaned display text
}

// --- Video types ---

// VideoMetadata describes a single video as reported upstream.
// UploadedAt passes through in whatever form the host supplies
// (RFC 3339 or a bare date).
type VideoMetadata struct {
	VideoID      string
	Title        string
	ChannelTitle string
	ChannelID    string
	UploadedAt   string
	Views        uint64
}
