package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"
	"github.com/ytget/ytdlp/v2/errs"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/engine"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
)

// permanentErrors are engine failures that a retry cannot fix
var permanentErrors = []error{
	errs.ErrVideoUnavailable,
	errs.ErrPrivate,
	errs.ErrAgeRestricted,
	errs.ErrGeoBlocked,
}

// Service handles download operations
type Service struct {
	engine     engine.Engine
	settings   *config.Settings
	onProgress func(engine.Progress) // progress hook, e.g. the console renderer
	remuxer    Remuxer
	history    Recorder
	logger     *slog.Logger

	mu sync.Mutex // guards the task while the engine reports progress
}

// Option configures a Service
type Option func(*Service)

// WithProgress sets the progress hook handed to the engine
func WithProgress(fn func(engine.Progress)) Option {
	return func(s *Service) { s.onProgress = fn }
}

// WithRemuxer enables rewrapping of output that is not in the merge container
func WithRemuxer(r Remuxer) Option {
	return func(s *Service) { s.remuxer = r }
}

// WithHistory records every accepted download
func WithHistory(r Recorder) Option {
	return func(s *Service) { s.history = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new download service. settings.OutputDir is used as
// given, callers resolve it beforehand.
func NewService(eng engine.Engine, settings *config.Settings, opts ...Option) *Service {
	s := &Service{
		engine:   eng,
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Download fetches the video referenced by rawURL. The returned task is
// non-nil whenever the input was accepted, also on failure.
func (s *Service) Download(ctx context.Context, rawURL string) (*model.DownloadTask, error) {
	input := strings.TrimSpace(rawURL)
	if input == "" {
		return nil, &Error{Kind: KindInvalidInput, Op: "read input", Err: ErrEmptyInput}
	}

	task := model.NewDownloadTask(input)
	task.Engine = s.engine.Name()
	task.URL = platform.NormalizeVideoURL(input)

	if err := s.run(ctx, task); err != nil {
		task.Fail(err)
		s.logger.Debug("download failed", slog.String("task", task.ID), slog.Any("error", err))
		s.record(ctx, task)
		return task, err
	}

	task.Complete()
	s.logger.Info("download completed",
		slog.String("task", task.ID),
		slog.String("path", task.OutputPath),
		slog.Duration("elapsed", task.Elapsed()))
	s.record(ctx, task)
	return task, nil
}

// run performs setup, extraction and post-processing for task
func (s *Service) run(ctx context.Context, task *model.DownloadTask) error {
	dir := s.settings.OutputDir
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return &Error{Kind: KindFilesystem, Op: "create output directory", Err: err}
	}

	lock, err := platform.LockDirectory(dir)
	if err != nil {
		if errors.Is(err, platform.ErrDirectoryLocked) {
			err = fmt.Errorf("%w: %s", ErrOutputBusy, dir)
		}
		return &Error{Kind: KindFilesystem, Op: "lock output directory", Err: err}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release output directory lock", slog.String("path", lock.Path()), slog.Any("error", err))
		}
	}()

	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	s.setStatus(task, model.TaskStatusStarting)
	s.logger.Info("starting download",
		slog.String("task", task.ID),
		slog.String("url", task.URL),
		slog.String("engine", task.Engine))

	info, err := s.extractWithRetry(ctx, task, s.engineOptions(task))
	if err != nil {
		return &Error{Kind: KindEngine, Op: "extract", Err: err}
	}
	if info == nil {
		return &Error{Kind: KindEngine, Op: "extract", Err: ErrNoResult}
	}

	task.Title = info.Title
	task.OutputPath = s.resolveOutputPath(info)
	s.postProcess(ctx, task)
	return nil
}

// engineOptions builds the engine configuration for task
func (s *Service) engineOptions(task *model.DownloadTask) engine.Options {
	return engine.Options{
		OutputTemplate: s.settings.OutputTemplate(),
		Format:         s.settings.Format,
		MergeFormat:    s.settings.MergeFormat,
		IgnoreErrors:   s.settings.IgnoreErrors,
		CookieFile:     s.settings.CookieFile,
		Headers:        s.settings.Headers(),
		Progress: func(p engine.Progress) {
			s.updateTaskProgress(task, p)
			if s.onProgress != nil {
				s.onProgress(p)
			}
		},
	}
}

// extractWithRetry attempts the download with retry logic
func (s *Service) extractWithRetry(ctx context.Context, task *model.DownloadTask, opts engine.Options) (*engine.MediaInfo, error) {
	maxRetries := s.settings.Retries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Backoff delay
			select {
			case <-time.After(s.settings.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			s.logger.Info("retrying download", slog.String("task", task.ID), slog.Int("attempt", attempt+1))
		}

		info, err := s.engine.Extract(ctx, task.URL, opts)
		if err == nil {
			return info, nil
		}

		lastErr = err
		s.logger.Warn("download attempt failed",
			slog.String("task", task.ID),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isPermanent(err) {
			break
		}
	}

	return nil, lastErr
}

func isPermanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// updateTaskProgress mirrors engine progress into task
func (s *Service) updateTaskProgress(task *model.DownloadTask, p engine.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p.Status {
	case engine.StatusDownloading:
		task.Status = model.TaskStatusDownloading
	case engine.StatusPostProcessing:
		task.Status = model.TaskStatusPostProcessing
	}

	if p.Percent >= 0 {
		task.Percent = p.Percent
	}
	if p.Speed > 0 {
		task.Speed = humanize.Bytes(uint64(p.Speed)) + "/s"
	}
	if p.ETA >= 0 {
		task.ETASec = int(p.ETA.Seconds())
	}
}

func (s *Service) setStatus(task *model.DownloadTask, status model.TaskStatus) {
	s.mu.Lock()
	task.Status = status
	s.mu.Unlock()
}

// resolveOutputPath returns where the media was saved: the engine reported
// file if it exists, otherwise <OutputDir>/<title>.<merge format> or the
// closest match on disk
func (s *Service) resolveOutputPath(info *engine.MediaInfo) string {
	if info.Filename != "" {
		if _, err := os.Stat(info.Filename); err == nil {
			return info.Filename
		}
	}

	expected := platform.ExpectedOutputPath(s.settings.OutputDir, info.Title, s.settings.MergeFormat)
	if _, err := os.Stat(expected); err == nil {
		return expected
	}
	if found, err := platform.FindFileWithFallback(expected); err == nil {
		s.logger.Debug("saved file found by fallback", slog.String("expected", expected), slog.String("found", found))
		return found
	}
	return expected
}

// postProcess remuxes output in the wrong container and inspects the saved
// file. Failures here do not fail the download.
func (s *Service) postProcess(ctx context.Context, task *model.DownloadTask) {
	path := task.OutputPath
	if _, err := os.Stat(path); err != nil {
		s.logger.Debug("saved file not on disk", slog.String("path", path))
		return
	}

	if s.remuxer != nil && needsRemux(path, s.settings.MergeFormat) {
		s.setStatus(task, model.TaskStatusPostProcessing)
		out, err := s.remuxer.Remux(ctx, path, s.settings.MergeFormat)
		if err != nil {
			s.logger.Warn("remux failed, keeping original file", slog.String("path", path), slog.Any("error", err))
		} else {
			s.logger.Info("remuxed output", slog.String("from", path), slog.String("to", out))
			task.OutputPath = out
		}
	}

	s.inspect(task)
}

func needsRemux(path, container string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return container != "" && ext != "" && ext != container
}

// inspect fills the size and sniffed MIME type of the saved file
func (s *Service) inspect(task *model.DownloadTask) {
	fi, err := os.Stat(task.OutputPath)
	if err != nil {
		return
	}
	task.FileSize = fi.Size()

	kind, err := filetype.MatchFile(task.OutputPath)
	if err != nil {
		s.logger.Debug("failed to sniff output", slog.String("path", task.OutputPath), slog.Any("error", err))
		return
	}
	if kind != filetype.Unknown {
		task.MimeType = kind.MIME.Value
	}
}

// record stores task in history. Cancellation of ctx does not skip it.
func (s *Service) record(ctx context.Context, task *model.DownloadTask) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Warn("failed to record history", slog.String("task", task.ID), slog.Any("error", err))
	}
}
