package port

import (
	"context"

	"audio-convert-service/ddd/domain/entity"
)

// ProgressSink persists incremental download progress for a job.
type ProgressSink interface {
	SaveProgress(ctx context.Context, job *entity.DownloadJobEntity, downloadedBytes int64) error
}
