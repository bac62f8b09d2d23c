package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
)

// NameYTDLP is the name of the yt-dlp binary engine
const NameYTDLP = "yt-dlp"

// DefaultProgressInterval is how often yt-dlp progress is reported
const DefaultProgressInterval = 250 * time.Millisecond

// YTDLP drives the yt-dlp binary
type YTDLP struct {
	progressInterval time.Duration
	install          bool
}

// NewYTDLP creates the yt-dlp engine
func NewYTDLP() *YTDLP {
	return &YTDLP{progressInterval: DefaultProgressInterval}
}

// WithInstall makes Extract fetch yt-dlp and ffmpeg when they are missing
func (y *YTDLP) WithInstall(install bool) *YTDLP {
	y.install = install
	return y
}

// Name returns the engine name
func (y *YTDLP) Name() string {
	return NameYTDLP
}

// Extract downloads url with yt-dlp and returns the first extracted entry.
// A nil result without error means yt-dlp skipped the video.
func (y *YTDLP) Extract(ctx context.Context, url string, opts Options) (*MediaInfo, error) {
	if y.install {
		if err := y.ensureInstalled(ctx); err != nil {
			return nil, err
		}
	}

	cmd := y.buildCommand(opts)
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read yt-dlp result: %w", err)
	}
	return mediaInfoFromExtracted(infos), nil
}

// buildCommand maps Options onto yt-dlp flags. The info JSON printed per
// entry is what GetExtractedInfo parses.
func (y *YTDLP) buildCommand(opts Options) *goytdlp.Command {
	dl := goytdlp.New().
		PrintJSON().
		Output(opts.OutputTemplate).
		Format(opts.Format).
		MergeOutputFormat(opts.MergeFormat)

	if opts.IgnoreErrors {
		dl = dl.IgnoreErrors()
	}
	if opts.CookieFile != "" {
		dl = dl.Cookies(opts.CookieFile)
	}

	// Sorted for a stable command line
	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dl = dl.AddHeaders(k + ":" + opts.Headers[k])
	}

	if opts.Progress != nil {
		dl = dl.ProgressFunc(y.progressInterval, func(update goytdlp.ProgressUpdate) {
			opts.emit(progressFromUpdate(update))
		})
	}
	return dl
}

// ensureInstalled resolves yt-dlp and ffmpeg, downloading them if needed
func (y *YTDLP) ensureInstalled(ctx context.Context) error {
	if _, err := goytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	if _, err := goytdlp.InstallFFmpeg(ctx, nil); err != nil {
		// Merging needs ffmpeg; progressive formats still work without it
		slog.Warn("ffmpeg unavailable", slog.Any("error", err))
	}
	return nil
}

// progressFromUpdate converts a yt-dlp progress update
func progressFromUpdate(update goytdlp.ProgressUpdate) Progress {
	p := Progress{
		Status:          statusFromYTDLP(update.Status),
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		Percent:         -1,
		ETA:             -1,
		Filename:        update.Filename,
	}
	if update.TotalBytes > 0 {
		p.Percent = update.Percent()
	}
	p.Speed, _ = rateAndETA(p.DownloadedBytes, p.TotalBytes, update.Started)
	if eta := update.ETA(); eta > 0 {
		p.ETA = eta
	}
	return p
}

func statusFromYTDLP(s goytdlp.ProgressStatus) Status {
	switch s {
	case goytdlp.ProgressStatusStarting:
		return StatusStarting
	case goytdlp.ProgressStatusDownloading:
		return StatusDownloading
	case goytdlp.ProgressStatusPostProcessing:
		return StatusPostProcessing
	case goytdlp.ProgressStatusFinished:
		return StatusFinished
	case goytdlp.ProgressStatusError:
		return StatusError
	default:
		return Status(s)
	}
}

// mediaInfoFromExtracted picks the first entry that carries a title
func mediaInfoFromExtracted(infos []*goytdlp.ExtractedInfo) *MediaInfo {
	for _, info := range infos {
		if info == nil || info.Title == nil || *info.Title == "" {
			continue
		}
		mi := &MediaInfo{ID: info.ID, Title: *info.Title}
		if info.Filename != nil {
			mi.Filename = filepath.Clean(*info.Filename)
		}
		return mi
	}
	return nil
}
