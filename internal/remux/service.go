package remux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg constants for remux settings
const (
	// Stream copy for every stream
	CodecCopy = "copy"

	// Container flags
	FastStartFlag = "+faststart"

	// Suffix used when the plain target name is taken
	RemuxedSuffix = "-remuxed"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFmpegLogLevel      = "error"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
)

// fastStartContainers support moving the index to the front of the file
var fastStartContainers = map[string]bool{"mp4": true, "m4a": true, "mov": true}

// ErrSameContainer is returned when the input already has the target container
var ErrSameContainer = errors.New("input already has the target container")

// Service remuxes media files with ffmpeg
type Service struct {
	ffmpeg     string
	ffprobe    string
	onProgress func(float64) // fraction in [0,1]
	logger     *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithBinaries overrides the ffmpeg and ffprobe executables
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(s *Service) {
		if ffmpeg != "" {
			s.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			s.ffprobe = ffprobe
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new remux service
func NewService(opts ...Option) *Service {
	s := &Service{
		ffmpeg:  FFmpegCommand,
		ffprobe: FFprobeCommand,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetProgressCallback sets the callback receiving the remux progress fraction
func (s *Service) SetProgressCallback(callback func(float64)) {
	s.onProgress = callback
}

// Available reports whether the ffmpeg executable can be found
func (s *Service) Available() bool {
	_, err := exec.LookPath(s.ffmpeg)
	return err == nil
}

// Remux copies the streams of inputPath into a new file with the container
// extension and removes the input on success. It returns the new path.
func (s *Service) Remux(ctx context.Context, inputPath, container string) (string, error) {
	container = strings.TrimPrefix(strings.ToLower(container), ".")
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return "", fmt.Errorf("input file does not exist: %s", inputPath)
	}
	if strings.EqualFold(strings.TrimPrefix(filepath.Ext(inputPath), "."), container) {
		return "", ErrSameContainer
	}

	outputPath := generateOutputPath(inputPath, container)

	// Progress is optional, a probe failure only disables it
	duration, err := s.getVideoDuration(ctx, inputPath)
	if err != nil {
		s.logger.Debug("ffprobe failed", slog.String("path", inputPath), slog.Any("error", err))
	}

	args := BuildFFmpegArgs(inputPath, outputPath, container)
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	lastLine := s.monitorProgress(stderr, duration)

	if err := cmd.Wait(); err != nil {
		// Remove partial output file
		os.Remove(outputPath)
		if lastLine != "" {
			return "", fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine)
		}
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	if err := os.Remove(inputPath); err != nil {
		s.logger.Warn("failed to remove remux source", slog.String("path", inputPath), slog.Any("error", err))
	}
	return outputPath, nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath, container string) []string {
	args := []string{
		"-y",                       // Overwrite output file
		"-loglevel", FFmpegLogLevel, // Only errors on stderr
		"-i", inputPath, // Input file
		"-c", CodecCopy, // Stream copy
	}
	if fastStartContainers[container] {
		args = append(args, "-movflags", FastStartFlag) // MP4 optimization
	}
	return append(args,
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats", // No stats output
		outputPath, // Output file
	)
}

// getVideoDuration gets the duration of a media file in seconds using ffprobe
func (s *Service) getVideoDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// monitorProgress reads ffmpeg progress output until EOF and returns the
// last line that was not a progress key
func (s *Service) monitorProgress(stderr io.Reader, totalDuration float64) string {
	scanner := bufio.NewScanner(stderr)
	lastLine := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		seconds, ok := parseProgressLine(line)
		if !ok {
			if !strings.Contains(line, "=") {
				lastLine = line
			}
			continue
		}

		if totalDuration > 0 && s.onProgress != nil {
			progress := seconds / totalDuration
			if progress > 1.0 {
				progress = 1.0
			}
			s.onProgress(progress)
		}
	}
	return lastLine
}

// parseProgressLine parses "out_time_us=123456" into seconds
func parseProgressLine(line string) (float64, bool) {
	if !strings.HasPrefix(line, ProgressTimePrefix) {
		return 0, false
	}
	timeMicroseconds, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(timeMicroseconds) / 1000000.0, true
}

// generateOutputPath returns the remux target, avoiding existing files
func generateOutputPath(inputPath, container string) string {
	ext := filepath.Ext(inputPath)
	baseName := strings.TrimSuffix(inputPath, ext)
	outputPath := baseName + "." + container
	if _, err := os.Stat(outputPath); err == nil {
		outputPath = baseName + RemuxedSuffix + "." + container
	}
	return outputPath
}
