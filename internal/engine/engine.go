package engine

import (
	"context"
	"fmt"
	"time"
)

// Status tags a progress event
type Status string

const (
	StatusStarting       Status = "starting"
	StatusDownloading    Status = "downloading"
	StatusPostProcessing Status = "post_processing"
	StatusFinished       Status = "finished"
	StatusError          Status = "error"
)

// Engine fetches metadata for a video and downloads it
type Engine interface {
	Name() string
	Extract(ctx context.Context, url string, opts Options) (*MediaInfo, error)
}

// Options configures a single Extract call
type Options struct {
	OutputTemplate string // e.g. /abs/videos/%(title)s.%(ext)s
	Format         string // format selection preference
	MergeFormat    string // forced container, e.g. mp4
	IgnoreErrors   bool
	CookieFile     string
	Headers        map[string]string
	Progress       func(Progress)
}

// MediaInfo is the engine result for a downloaded video
type MediaInfo struct {
	ID       string
	Title    string
	Filename string // saved file path when the engine reports it
}

// Progress describes an engine progress event
type Progress struct {
	Status          Status
	DownloadedBytes int64
	TotalBytes      int64
	Percent         float64       // 0 to 100, negative if unknown
	Speed           float64       // bytes per second, 0 if unknown
	ETA             time.Duration // negative if unknown
	Filename        string
}

// emit calls the progress hook if one is configured
func (o Options) emit(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// rateAndETA derives transfer speed and remaining time from elapsed time
func rateAndETA(downloaded, total int64, started time.Time) (float64, time.Duration) {
	if started.IsZero() || downloaded <= 0 {
		return 0, -1
	}
	elapsed := time.Since(started).Seconds()
	if elapsed <= 0 {
		return 0, -1
	}
	speed := float64(downloaded) / elapsed
	if total <= 0 || total < downloaded {
		return speed, -1
	}
	eta := time.Duration(float64(total-downloaded) / speed * float64(time.Second))
	return speed, eta
}

// Config holds engine construction parameters
type Config struct {
	Install bool   // yt-dlp: fetch the binaries when missing
	Quality string // native: format selector
	Proxy   string // native: proxy URL
}

// New returns the engine registered under name
func New(name string, cfg Config) (Engine, error) {
	switch name {
	case NameYTDLP:
		return NewYTDLP().WithInstall(cfg.Install), nil
	case NameNative:
		return NewNative().WithQuality(cfg.Quality).WithProxy(cfg.Proxy), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
}
