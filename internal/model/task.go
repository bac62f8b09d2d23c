package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskIDPrefix prefixes every generated task ID
const TaskIDPrefix = "dl-"

// UnknownETA is rendered when the remaining time is not known
const UnknownETA = "—"

// DownloadTask represents a single download invocation
type DownloadTask struct {
	ID         string
	InputURL   string     // URL as typed by the user
	URL        string     // canonical watch URL handed to the engine
	Engine     string     // engine name that served the task
	Status     TaskStatus // current status
	Percent    float64    // 0 to 100
	Speed      string     // human readable speed (e.g., "1.2 MB/s")
	ETASec     int        // ETA in seconds, -1 if unknown
	LastError  string     // last error message if any
	OutputPath string     // path to downloaded file
	MimeType   string     // sniffed container type of the output file
	FileSize   int64      // file size in bytes
	Title      string     // video title
	StartedAt  time.Time  // when download started
	FinishedAt time.Time  // when download finished
}

// NewDownloadTask creates a pending task for the given input
func NewDownloadTask(inputURL string) *DownloadTask {
	return &DownloadTask{
		ID:        generateTaskID(),
		InputURL:  inputURL,
		Status:    TaskStatusPending,
		ETASec:    -1,
		StartedAt: time.Now(),
	}
}

// Fail marks the task as failed with the given error
func (dt *DownloadTask) Fail(err error) {
	dt.Status = TaskStatusError
	if err != nil {
		dt.LastError = err.Error()
	}
	dt.FinishedAt = time.Now()
}

// Complete marks the task as completed
func (dt *DownloadTask) Complete() {
	dt.Status = TaskStatusCompleted
	dt.Percent = 100
	dt.ETASec = 0
	dt.FinishedAt = time.Now()
}

// Elapsed returns how long the task ran, or zero if it has not finished
func (dt *DownloadTask) Elapsed() time.Duration {
	if dt.FinishedAt.IsZero() || dt.StartedAt.IsZero() {
		return 0
	}
	return dt.FinishedAt.Sub(dt.StartedAt)
}

// FormatETA formats seconds as mm:ss, or hh:mm:ss when at least an hour remains
func FormatETA(etaSec int) string {
	if etaSec <= 0 {
		return UnknownETA
	}

	hours := etaSec / 3600
	minutes := (etaSec % 3600) / 60
	seconds := etaSec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Title != "" {
		return dt.Title
	}

	// Filename from OutputPath
	if dt.OutputPath != "" {
		// Support both / and \ separators
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	if dt.URL != "" {
		return dt.URL
	}
	return dt.InputURL
}

// generateTaskID generates a time ordered unique task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
