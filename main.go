// capscan — YouTube caption phrase search CLI.
//
// Scans the captions of a channel's recent uploads or an explicit list of
// videos for a target phrase and writes the matching timestamps to a text
// report.
//
// main owns flags, prompts and wiring; identifier sources, caption
// retrieval and the worker pool live under internal/engine.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"capscan/internal/engine"
	"capscan/internal/engine/scan"
	"capscan/internal/engine/sources"
)

// unitTimeout bounds one fetch+filter+metadata unit inside the pool.
const unitTimeout = 2 * time.Minute

type options struct {
	phrase          string
	mode            string
	channelID       string
	videoIDs        string
	idsFile         string
	language        string
	maxResults      int
	publishedAfter  string
	publishedBefore string
	outputDir       string
	exactWord       bool
	workers         int
	apiKey          string
	saveAPIKey      bool
	quiet           bool
	debug           bool
	metrics         bool

	set map[string]bool // flags given on the command line
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.phrase, "phrase", "", "target phrase (empty matches every segment)")
	flag.StringVar(&o.mode, "mode", "", `"channel" or "videos" (default inferred from the id flags)`)
	flag.StringVar(&o.channelID, "channel-id", "", "channel to enumerate (UC… id)")
	flag.StringVar(&o.videoIDs, "video-ids", "", "comma-separated video ids or watch URLs")
	flag.StringVar(&o.idsFile, "ids-file", "", "file with one video id or URL per line")
	flag.StringVar(&o.language, "language", "en", "caption language code")
	flag.IntVar(&o.maxResults, "max-results", scan.DefaultMaxResults, "channel enumeration cap")
	flag.StringVar(&o.publishedAfter, "published-after", "", "only videos published after (RFC 3339 or YYYY-MM-DD)")
	flag.StringVar(&o.publishedBefore, "published-before", "", "only videos published before (RFC 3339 or YYYY-MM-DD)")
	flag.StringVar(&o.outputDir, "output-dir", "transcripts", "report directory")
	flag.BoolVar(&o.exactWord, "exact-word", false, "match whole words only")
	flag.IntVar(&o.workers, "workers", scan.DefaultWorkers, "concurrent video scans")
	flag.StringVar(&o.apiKey, "api-key", "", "YouTube Data API key (falls back to YOUTUBE_API_KEY, then the saved key)")
	flag.BoolVar(&o.saveAPIKey, "save-api-key", false, "persist the resolved API key for later runs")
	flag.BoolVar(&o.quiet, "quiet", false, "suppress per-video progress lines")
	flag.BoolVar(&o.debug, "debug", false, "debug logging")
	flag.BoolVar(&o.metrics, "metrics", false, "print upstream call counters at exit")
	flag.Parse()

	o.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o
}

func main() {
	opts := parseFlags()
	initLogging(opts.debug)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	err := run(opts)
	if opts.metrics {
		fmt.Print(engine.FormatMetrics())
	}
	if err != nil {
		if engine.IsInput(err) {
			fmt.Fprintf(os.Stderr, "capscan: %v\n", err)
			fmt.Fprintln(os.Stderr, `run "capscan -h" for usage`)
			os.Exit(2)
		}
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(opts *options) error {
	interactive := stdinIsTTY()
	in := bufio.NewReader(os.Stdin)

	prefs := loadPrefs()
	if !opts.set["language"] && prefs.Language != "" {
		opts.language = prefs.Language
	}
	if !opts.set["output-dir"] && prefs.OutputDir != "" {
		opts.outputDir = prefs.OutputDir
	}

	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if apiKey == "" {
		apiKey = prefs.APIKey
	}

	after, err := parseDate(opts.publishedAfter)
	if err != nil {
		return err
	}
	before, err := parseDate(opts.publishedBefore)
	if err != nil {
		return err
	}

	mode, err := resolveMode(opts, interactive, in)
	if err != nil {
		return err
	}
	phrase, err := resolvePhrase(opts, interactive, in)
	if err != nil {
		return err
	}

	cfg := engine.Config{
		APIKey:       apiKey,
		Workers:      opts.workers,
		PageSize:     50,
		FetchTimeout: 30 * time.Second,
		MaxBodyBytes: 10 << 20,
		HTTPClient:   engine.NewHTTPClient(),
		Debug:        opts.debug,
	}
	engine.Init(cfg)

	captions, err := sources.NewCaptionClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var data *sources.DataClient
	if apiKey != "" {
		data, err = sources.NewDataClient(ctx, apiKey)
		if err != nil {
			return err
		}
		if mode == "channel" {
			apiKey, data, err = validateKey(ctx, data, apiKey, interactive, in)
			if err != nil {
				return err
			}
			if cfg.APIKey != apiKey {
				cfg.APIKey = apiKey
				engine.Init(cfg)
			}
		}
	}

	if opts.saveAPIKey && apiKey != "" {
		prefs.APIKey = apiKey
		savePrefs(prefs)
	}

	var ids []string
	switch mode {
	case "channel":
		channelID, err := resolveChannelID(opts, interactive, in)
		if err != nil {
			return err
		}
		var pager scan.ChannelPager
		if data != nil {
			pager = data.Pager(after, before)
		} else {
			slog.Info("no API key, enumerating from the uploads feed",
				slog.String("channel_id", channelID))
			pager = &sources.FeedLister{After: after, Before: before}
		}
		ids, err = scan.EnumerateChannel(ctx, pager, captions, channelID, opts.language, opts.maxResults)
		if err != nil {
			if len(ids) == 0 {
				return err
			}
			slog.Warn("enumeration incomplete, scanning what was found",
				slog.Int("videos", len(ids)),
				slog.Any("error", err))
		}
	case "videos":
		ids, err = collectVideoIDs(opts, interactive, in)
		if err != nil {
			return err
		}
	}

	if len(ids) == 0 {
		fmt.Println("No videos to scan.")
		return nil
	}

	var meta scan.MetadataFetcher = captions
	if data != nil {
		meta = data
	}

	coord := &scan.Coordinator{
		Fetcher:     captions,
		Meta:        meta,
		Matcher:     scan.NewMatcher(phrase, opts.exactWord),
		Language:    opts.language,
		Workers:     opts.workers,
		UnitTimeout: unitTimeout,
	}
	if !opts.quiet {
		coord.Observer = progressPrinter{}
	}

	slog.Info("scan starting",
		slog.String("mode", mode),
		slog.Int("videos", len(ids)),
		slog.Int("workers", opts.workers),
		slog.String("language", opts.language),
	)

	records, sum := coord.Run(ctx, ids)

	path, err := scan.WriteReport(opts.outputDir, phrase, records)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	elapsed := sum.Elapsed.Round(time.Millisecond)
	if path != "" {
		fmt.Printf("Scanned %d videos, %d matches in %s. Report: %s\n",
			sum.Scanned, sum.Matches, elapsed, path)
	} else {
		fmt.Printf("Scanned %d videos, no matches in %s.\n", sum.Scanned, elapsed)
	}
	return nil
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h).With(slog.String("run_id", uuid.NewString())))
}

func stdinIsTTY() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// prompt prints label to stderr and reads one trimmed line.
func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseDate accepts RFC 3339 or plain YYYY-MM-DD. Empty means unset.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, engine.Inputf("invalid date %q, want RFC 3339 or YYYY-MM-DD", s)
}

func resolveMode(opts *options, interactive bool, in *bufio.Reader) (string, error) {
	switch opts.mode {
	case "channel", "videos":
		return opts.mode, nil
	case "":
	default:
		return "", engine.Inputf(`unknown mode %q, want "channel" or "videos"`, opts.mode)
	}
	if opts.channelID != "" {
		return "channel", nil
	}
	if opts.videoIDs != "" || opts.idsFile != "" {
		return "videos", nil
	}
	if !interactive {
		return "", engine.Inputf("missing -mode (or -channel-id / -video-ids to infer it)")
	}
	for {
		s, err := prompt(in, `search mode ("channel" or "videos")`)
		if err != nil {
			return "", err
		}
		if s == "channel" || s == "videos" {
			return s, nil
		}
		fmt.Fprintln(os.Stderr, "please enter channel or videos")
	}
}

func resolvePhrase(opts *options, interactive bool, in *bufio.Reader) (string, error) {
	if opts.set["phrase"] {
		return opts.phrase, nil
	}
	if !interactive {
		return "", engine.Inputf("missing -phrase")
	}
	return prompt(in, "phrase to search (empty matches everything)")
}

func resolveChannelID(opts *options, interactive bool, in *bufio.Reader) (string, error) {
	if opts.channelID != "" {
		return opts.channelID, nil
	}
	if !interactive {
		return "", engine.Inputf("missing -channel-id")
	}
	for {
		s, err := prompt(in, "channel id")
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
}

// collectVideoIDs gathers explicit identifiers from -video-ids and
// -ids-file (both may be given; the lists concatenate in flag order).
// Interactively, bad input re-prompts.
func collectVideoIDs(opts *options, interactive bool, in *bufio.Reader) ([]string, error) {
	var ids []string
	if opts.videoIDs != "" {
		parsed, err := scan.ParseVideoList(opts.videoIDs)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}
	if opts.idsFile != "" {
		fromFile, err := scan.ReadVideoFile(opts.idsFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) > 0 {
		return ids, nil
	}
	if !interactive {
		return nil, engine.Inputf("missing -video-ids or -ids-file")
	}
	for {
		s, err := prompt(in, "video ids or watch URLs (comma separated)")
		if err != nil {
			return nil, err
		}
		parsed, err := scan.ParseVideoList(s)
		if err != nil {
			if engine.IsInput(err) {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			return nil, err
		}
		return parsed, nil
	}
}

// validateKey probes the Data API with the resolved key before a channel
// run. Interactively a rejected key asks for a replacement; otherwise the
// rejection is fatal.
func validateKey(ctx context.Context, data *sources.DataClient, key string, interactive bool, in *bufio.Reader) (string, *sources.DataClient, error) {
	for {
		err := data.ValidateKey(ctx)
		if err == nil {
			return key, data, nil
		}
		if !interactive || !engine.IsInput(err) {
			return "", nil, err
		}
		fmt.Fprintln(os.Stderr, err)
		k, perr := prompt(in, "YouTube Data API key")
		if perr != nil {
			return "", nil, perr
		}
		if k == "" {
			return "", nil, engine.Inputf("no usable API key")
		}
		data, perr = sources.NewDataClient(ctx, k)
		if perr != nil {
			return "", nil, perr
		}
		key = k
	}
}

func loadPrefs() engine.Prefs {
	path, err := engine.PrefsPath()
	if err != nil {
		slog.Debug("preferences unavailable", slog.Any("error", err))
		return engine.Prefs{}
	}
	p, err := engine.LoadPrefs(path)
	if err != nil {
		slog.Warn("preferences unreadable, ignoring", slog.String("path", path), slog.Any("error", err))
		return engine.Prefs{}
	}
	return p
}

func savePrefs(p engine.Prefs) {
	path, err := engine.PrefsPath()
	if err == nil {
		err = engine.SavePrefs(path, p)
	}
	if err != nil {
		slog.Warn("could not save preferences", slog.Any("error", err))
		return
	}
	slog.Info("API key saved", slog.String("path", path))
}

// progressPrinter writes one line per completed video to stdout.
type progressPrinter struct{}

func (progressPrinter) UnitDone(ev scan.UnitEvent) {
	st := ev.State
	switch {
	case ev.Err != nil:
		fmt.Printf("[%d/%d] %s  error: %v\n", st.Completed, st.Dispatched, ev.VideoID, ev.Err)
	case ev.Matches > 0:
		fmt.Printf("[%d/%d] %s  %d matching segment(s)\n", st.Completed, st.Dispatched, ev.VideoID, ev.Matches)
	default:
		fmt.Printf("[%d/%d] %s  no match\n", st.Completed, st.Dispatched, ev.VideoID)
	}
}
