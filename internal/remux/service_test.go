package remux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		input     string
		container string
		expected  string
	}{
		{"/path/to/video.webm", "mp4", "/path/to/video.mp4"},
		{"/path/to/video.mkv", "mp4", "/path/to/video.mp4"},
		{"video.webm", "mkv", "video.mkv"},
		{"/no/ext/file", "mp4", "/no/ext/file.mp4"},
	}

	for _, test := range tests {
		result := generateOutputPath(test.input, test.container)
		if result != test.expected {
			t.Errorf("generateOutputPath(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestGenerateOutputPath_Taken(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "video.webm")
	if err := os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	expected := filepath.Join(dir, "video-remuxed.mp4")
	if result := generateOutputPath(input, "mp4"); result != expected {
		t.Errorf("generateOutputPath() = %s, expected %s", result, expected)
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	args := BuildFFmpegArgs("/input.webm", "/output.mp4", "mp4")

	expectedArgs := []string{
		"-y",
		"-loglevel", "error",
		"-i", "/input.webm",
		"-c", "copy",
		"-movflags", FastStartFlag,
		"-progress", "pipe:2",
		"-nostats",
		"/output.mp4",
	}

	if len(args) != len(expectedArgs) {
		t.Fatalf("Expected %d args, got %d", len(expectedArgs), len(args))
	}

	for i, expected := range expectedArgs {
		if args[i] != expected {
			t.Errorf("Arg %d: expected %s, got %s", i, expected, args[i])
		}
	}
}

func TestBuildFFmpegArgs_NoFastStart(t *testing.T) {
	args := BuildFFmpegArgs("/input.mp4", "/output.mkv", "mkv")
	for _, arg := range args {
		if arg == "-movflags" {
			t.Errorf("mkv output must not get -movflags: %v", args)
		}
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line     string
		expected float64
		ok       bool
	}{
		{"out_time_us=1500000", 1.5, true},
		{"out_time_us=0", 0, true},
		{"out_time_us=N/A", 0, false},
		{"progress=continue", 0, false},
	}

	for _, test := range tests {
		got, ok := parseProgressLine(test.line)
		if ok != test.ok || got != test.expected {
			t.Errorf("parseProgressLine(%q) = %v, %v; expected %v, %v", test.line, got, ok, test.expected, test.ok)
		}
	}
}

func TestMonitorProgress(t *testing.T) {
	service := NewService()
	var updates []float64
	service.SetProgressCallback(func(p float64) { updates = append(updates, p) })

	input := strings.Join([]string{
		"frame=10",
		"out_time_us=2000000",
		"progress=continue",
		"out_time_us=5000000",
		"out_time_us=9000000",
		"Invalid data found when processing input",
		"progress=end",
	}, "\n")

	lastLine := service.monitorProgress(strings.NewReader(input), 8)

	expected := []float64{0.25, 0.625, 1.0}
	if len(updates) != len(expected) {
		t.Fatalf("Expected %d updates, got %v", len(expected), updates)
	}
	for i := range expected {
		if updates[i] != expected[i] {
			t.Errorf("Update %d: expected %v, got %v", i, expected[i], updates[i])
		}
	}
	if lastLine != "Invalid data found when processing input" {
		t.Errorf("Unexpected last line: %q", lastLine)
	}
}

func TestRemux_NonExistentFile(t *testing.T) {
	service := NewService()

	_, err := service.Remux(context.Background(), "/path/to/nonexistent/file.webm", "mp4")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got: %v", err)
	}
}

func TestRemux_SameContainer(t *testing.T) {
	input := filepath.Join(t.TempDir(), "video.MP4")
	if err := os.WriteFile(input, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewService().Remux(context.Background(), input, "mp4")
	if !errors.Is(err, ErrSameContainer) {
		t.Errorf("Expected ErrSameContainer, got %v", err)
	}
}

// writeScript creates an executable shell script standing in for a binary
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRemux_WithFakeFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	dir := t.TempDir()
	// The output path is the last argument
	ffmpeg := writeScript(t, dir, "ffmpeg", `for last; do :; done
echo "out_time_us=1000000" >&2
echo "progress=end" >&2
printf remuxed > "$last"
`)
	ffprobe := writeScript(t, dir, "ffprobe", "echo 2.0\n")

	input := filepath.Join(dir, "Sample.webm")
	if err := os.WriteFile(input, []byte("webm"), 0644); err != nil {
		t.Fatal(err)
	}

	service := NewService(WithBinaries(ffmpeg, ffprobe))
	var updates []float64
	service.SetProgressCallback(func(p float64) { updates = append(updates, p) })

	output, err := service.Remux(context.Background(), input, "mp4")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if output != filepath.Join(dir, "Sample.mp4") {
		t.Errorf("Unexpected output path: %s", output)
	}

	data, err := os.ReadFile(output)
	if err != nil || string(data) != "remuxed" {
		t.Errorf("Unexpected output content %q (%v)", data, err)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Error("Expected source file to be removed")
	}
	if len(updates) != 1 || updates[0] != 0.5 {
		t.Errorf("Expected one update of 0.5, got %v", updates)
	}
}

func TestRemux_FFmpegFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", `echo "Unknown encoder" >&2
exit 1
`)
	ffprobe := writeScript(t, dir, "ffprobe", "exit 1\n")

	input := filepath.Join(dir, "Sample.webm")
	if err := os.WriteFile(input, []byte("webm"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewService(WithBinaries(ffmpeg, ffprobe)).Remux(context.Background(), input, "mp4")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Errorf("Expected ffmpeg message in error, got %v", err)
	}
	if _, err := os.Stat(input); err != nil {
		t.Error("Expected source file to be kept on failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "Sample.mp4")); !os.IsNotExist(err) {
		t.Error("Expected no output file on failure")
	}
}
