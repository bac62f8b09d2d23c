package download

import (
	"context"

	"github.com/ytget/ytgrab/internal/model"
)

// Remuxer rewraps a saved file into another container without re-encoding.
type Remuxer interface {
	Remux(ctx context.Context, inputPath, container string) (string, error)
}

// Recorder persists finished tasks.
type Recorder interface {
	Record(ctx context.Context, task *model.DownloadTask) error
}
