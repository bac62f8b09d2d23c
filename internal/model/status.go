package model

// TaskStatus represents the status of a download task
type TaskStatus string

const (
	// TaskStatusPending means the task is created but the engine was not invoked yet
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusStarting means the engine is resolving metadata
	TaskStatusStarting TaskStatus = "Starting"

	// TaskStatusDownloading means the transfer is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusPostProcessing means the media is being merged or remuxed
	TaskStatusPostProcessing TaskStatus = "PostProcessing"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsFinished returns true if the task is in a finished state (completed or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusError
}
