package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ytget "github.com/ytget/ytdlp/v2"
	ytclient "github.com/ytget/ytdlp/v2/pkg/client"

	"github.com/ytget/ytgrab/internal/platform"
)

// NameNative is the name of the in-process engine
const NameNative = "native"

// Native engine defaults
const (
	DefaultNativeQuality = "best"
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultHTTPRetries   = 3
)

// fallbackExtensions are tried when the desired container was not available
var fallbackExtensions = []string{"mp4", "webm", "3gp", "m4a"}

// Native downloads progressive formats in-process
type Native struct {
	quality string
	timeout time.Duration
	retries int
	proxy   string
}

// NewNative creates the native engine
func NewNative() *Native {
	return &Native{
		quality: DefaultNativeQuality,
		timeout: DefaultHTTPTimeout,
		retries: DefaultHTTPRetries,
	}
}

// WithQuality sets the format selector, e.g. "best", "itag=22", "height<=480"
func (n *Native) WithQuality(quality string) *Native {
	if quality = strings.TrimSpace(quality); quality != "" {
		n.quality = quality
	}
	return n
}

// WithProxy routes requests through a proxy URL
func (n *Native) WithProxy(proxy string) *Native {
	n.proxy = proxy
	return n
}

// Name returns the engine name
func (n *Native) Name() string {
	return NameNative
}

// Extract resolves and downloads url into the directory of opts.OutputTemplate
func (n *Native) Extract(ctx context.Context, url string, opts Options) (*MediaInfo, error) {
	jar, err := LoadCookieJar(opts.CookieFile)
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}

	base := ytclient.NewWith(ytclient.Config{
		Timeout:   n.timeout,
		Retries:   n.retries,
		UserAgent: opts.Headers["User-Agent"],
		ProxyURL:  n.proxy,
	})
	httpClient := newHTTPClient(base.HTTPClient, jar, opts.Headers)

	dir := filepath.Dir(opts.OutputTemplate)
	d := ytget.New().
		WithHTTPClient(httpClient).
		WithFormat(n.quality, opts.MergeFormat).
		WithOutputPath(dir)

	if opts.Progress != nil {
		d = d.WithProgress(newNativeProgress(opts).handle)
	}

	opts.emit(Progress{Status: StatusStarting, Percent: -1, ETA: -1})
	info, err := d.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	mi := &MediaInfo{ID: info.ID, Title: info.Title}
	if path, ok := locateOutput(dir, info.Title, opts.MergeFormat); ok {
		mi.Filename = path
	} else {
		slog.Debug("native output not found by title", slog.String("dir", dir), slog.String("title", info.Title))
	}
	return mi, nil
}

// locateOutput finds the file the native downloader wrote for title
func locateOutput(dir, title, desiredExt string) (string, bool) {
	exts := append([]string{desiredExt}, fallbackExtensions...)
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		if path, err := platform.FindFileWithFallback(platform.ExpectedOutputPath(dir, title, ext)); err == nil {
			return path, true
		}
	}
	return "", false
}

// nativeProgress turns byte counters into progress events with speed and ETA
type nativeProgress struct {
	opts     Options
	once     sync.Once
	started  time.Time
	finished bool
}

func newNativeProgress(opts Options) *nativeProgress {
	return &nativeProgress{opts: opts}
}

func (np *nativeProgress) handle(p ytget.Progress) {
	np.once.Do(func() { np.started = time.Now() })
	if np.finished {
		return
	}

	speed, eta := rateAndETA(p.DownloadedSize, p.TotalSize, np.started)
	percent := -1.0
	if p.TotalSize > 0 {
		percent = p.Percent
	}

	np.opts.emit(Progress{
		Status:          StatusDownloading,
		DownloadedBytes: p.DownloadedSize,
		TotalBytes:      p.TotalSize,
		Percent:         percent,
		Speed:           speed,
		ETA:             eta,
	})

	if p.TotalSize > 0 && p.DownloadedSize >= p.TotalSize {
		np.finished = true
		np.opts.emit(Progress{
			Status:          StatusFinished,
			DownloadedBytes: p.DownloadedSize,
			TotalBytes:      p.TotalSize,
			Percent:         100,
			ETA:             0,
		})
	}
}
