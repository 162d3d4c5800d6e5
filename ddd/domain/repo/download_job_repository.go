package repo

import (
	"context"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/vo"
)

// DownloadJobRepository 转换任务仓储。实现必须支持多条流水线
// 与状态查询接口的并发访问，单条记录的更新需要串行化。
type DownloadJobRepository interface {
	// CreateJob 持久化新任务并回填主键
	CreateJob(ctx context.Context, job *entity.DownloadJobEntity) error

	// GetJobByUUID 按UUID查询，未找到返回errno.ErrJobNotFound
	GetJobByUUID(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error)

	// UpdateJob 全量保存实体当前状态
	UpdateJob(ctx context.Context, job *entity.DownloadJobEntity) error

	// UpdateJobProgress 只更新已下载字节数
	UpdateJobProgress(ctx context.Context, jobUUID string, downloadedBytes int64) error

	// ListJobsByStatus 按状态查询，按插入顺序返回
	ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error)
}
