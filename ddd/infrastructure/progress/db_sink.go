package progress

import (
	"context"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/port"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/pkg/logger"
)

// RepositoryProgressSink 将下载进度回写到任务仓储
type RepositoryProgressSink struct {
	jobRepo repo.DownloadJobRepository
}

// NewRepositoryProgressSink 创建进度写入器
func NewRepositoryProgressSink(jobRepo repo.DownloadJobRepository) *RepositoryProgressSink {
	return &RepositoryProgressSink{jobRepo: jobRepo}
}

var _ port.ProgressSink = (*RepositoryProgressSink)(nil)

// SaveProgress 持久化已下载字节数,失败只记日志不中断转换
func (s *RepositoryProgressSink) SaveProgress(ctx context.Context, job *entity.DownloadJobEntity, downloadedBytes int64) error {
	if err := s.jobRepo.UpdateJobProgress(ctx, job.JobUUID(), downloadedBytes); err != nil {
		logger.Warn("failed to save job progress", map[string]interface{}{
			"job_uuid":         job.JobUUID(),
			"downloaded_bytes": downloadedBytes,
			"error":            err.Error(),
		})
	}
	return nil
}
