package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
	ytget "github.com/ytget/ytdlp/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e, err := New(NameYTDLP, Config{Install: true})
	require.NoError(t, err)
	assert.Equal(t, NameYTDLP, e.Name())
	assert.True(t, e.(*YTDLP).install)

	e, err = New(NameNative, Config{Quality: "height<=480"})
	require.NoError(t, err)
	assert.Equal(t, NameNative, e.Name())
	assert.Equal(t, "height<=480", e.(*Native).quality)

	_, err = New("youtube-dl", Config{})
	assert.Error(t, err)
}

func TestRateAndETA(t *testing.T) {
	speed, eta := rateAndETA(0, 100, time.Now())
	assert.Zero(t, speed)
	assert.Equal(t, time.Duration(-1), eta)

	speed, eta = rateAndETA(50, 100, time.Time{})
	assert.Zero(t, speed)
	assert.Equal(t, time.Duration(-1), eta)

	speed, eta = rateAndETA(1000, 2000, time.Now().Add(-time.Second))
	assert.InDelta(t, 1000, speed, 100)
	assert.InDelta(t, float64(time.Second), float64(eta), float64(200*time.Millisecond))

	speed, eta = rateAndETA(1000, 0, time.Now().Add(-time.Second))
	assert.Greater(t, speed, 0.0)
	assert.Equal(t, time.Duration(-1), eta, "unknown total has unknown ETA")
}

func TestStatusFromYTDLP(t *testing.T) {
	tests := []struct {
		in       goytdlp.ProgressStatus
		expected Status
	}{
		{goytdlp.ProgressStatusStarting, StatusStarting},
		{goytdlp.ProgressStatusDownloading, StatusDownloading},
		{goytdlp.ProgressStatusPostProcessing, StatusPostProcessing},
		{goytdlp.ProgressStatusFinished, StatusFinished},
		{goytdlp.ProgressStatusError, StatusError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusFromYTDLP(tt.in))
	}
}

func TestMediaInfoFromExtracted(t *testing.T) {
	title := "Sample"
	empty := ""
	filename := "/data/videos/./Sample.mp4"

	assert.Nil(t, mediaInfoFromExtracted(nil))
	assert.Nil(t, mediaInfoFromExtracted([]*goytdlp.ExtractedInfo{nil, {ID: "x", Title: &empty}}))

	mi := mediaInfoFromExtracted([]*goytdlp.ExtractedInfo{
		{ID: "skip"},
		{ID: "abc123", Title: &title, Filename: &filename},
	})
	require.NotNil(t, mi)
	assert.Equal(t, "abc123", mi.ID)
	assert.Equal(t, "Sample", mi.Title)
	assert.Equal(t, filepath.Clean(filename), mi.Filename)
}

func TestNativeProgress(t *testing.T) {
	var events []Progress
	np := newNativeProgress(Options{Progress: func(p Progress) { events = append(events, p) }})

	np.handle(ytget.Progress{TotalSize: 0, DownloadedSize: 10})
	np.handle(ytget.Progress{TotalSize: 100, DownloadedSize: 50, Percent: 50})
	np.handle(ytget.Progress{TotalSize: 100, DownloadedSize: 100, Percent: 100})
	np.handle(ytget.Progress{TotalSize: 100, DownloadedSize: 100, Percent: 100})

	require.Len(t, events, 4)
	assert.Equal(t, StatusDownloading, events[0].Status)
	assert.Equal(t, -1.0, events[0].Percent)
	assert.Equal(t, 50.0, events[1].Percent)
	assert.Equal(t, StatusDownloading, events[2].Status)
	assert.Equal(t, StatusFinished, events[3].Status)
	assert.Equal(t, 100.0, events[3].Percent)
}

func TestLocateOutput(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "Sample_Video.webm")
	require.NoError(t, os.WriteFile(saved, []byte("x"), 0644))

	path, ok := locateOutput(dir, "Sample Video", "mp4")
	require.True(t, ok)
	assert.Equal(t, saved, path)

	_, ok = locateOutput(t.TempDir(), "Sample Video", "mp4")
	assert.False(t, ok)

	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "Old Cooking Video.mp4"), []byte("x"), 0644))
	_, ok = locateOutput(other, "Sample Video", "mp4")
	assert.False(t, ok, "an unrelated earlier download is not the output")
}

func TestBuildCommand(t *testing.T) {
	opts := Options{
		OutputTemplate: filepath.Join("videos", "%(title)s.%(ext)s"),
		Format:         "best",
		MergeFormat:    "mp4",
		IgnoreErrors:   true,
		CookieFile:     "cookies.txt",
		Headers:        map[string]string{"Referer": "https://www.youtube.com/"},
	}

	cmd := NewYTDLP().buildCommand(opts).BuildCommand(context.Background(), "https://www.youtube.com/watch?v=abc123")
	args := cmd.Args

	assert.Contains(t, args, "--print-json")
	assert.Contains(t, args, opts.OutputTemplate)
	assert.Contains(t, args, "best")
	assert.Contains(t, args, "cookies.txt")
	assert.Contains(t, args, "Referer:https://www.youtube.com/")
	assert.Contains(t, args, "https://www.youtube.com/watch?v=abc123")
}
