package persistence

import (
	"context"
	"sync"
	"time"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/errno"
)

// MemoryJobRepository 内存仓储实现,开发环境和测试使用。
// 写入和读取都做快照,调用方持有的实体与仓储内部状态互不影响,
// 并发读写语义与MySQL实现保持一致。
type MemoryJobRepository struct {
	mu     sync.RWMutex
	jobs   map[string]*entity.DownloadJobEntity
	order  []string
	nextID uint64
}

// NewMemoryJobRepository 创建内存仓储
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs:   make(map[string]*entity.DownloadJobEntity),
		nextID: 1,
	}
}

var _ repo.DownloadJobRepository = (*MemoryJobRepository)(nil)

// snapshotJob 复制实体,对应MySQL路径的convertor往返
func snapshotJob(job *entity.DownloadJobEntity) *entity.DownloadJobEntity {
	var completedAt *time.Time
	if t := job.CompletedAt(); t != nil {
		c := *t
		completedAt = &c
	}
	return entity.NewDownloadJobEntityWithDetails(
		job.ID(), job.JobUUID(), job.SourceURL(),
		job.Quality(), job.Status(),
		job.VideoTitle(), job.VideoDuration(), job.VideoThumbnail(), job.ViewCount(),
		job.OutputPath(), job.OutputSizeBytes(), job.DownloadedBytes(),
		job.ErrorMessage(),
		job.CreatedAt(), job.UpdatedAt(), completedAt,
	)
}

// CreateJob 保存新任务快照并分配自增主键
func (r *MemoryJobRepository) CreateJob(ctx context.Context, job *entity.DownloadJobEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.SetID(r.nextID)
	r.nextID++
	r.jobs[job.JobUUID()] = snapshotJob(job)
	r.order = append(r.order, job.JobUUID())
	return nil
}

// GetJobByUUID 按UUID查询,返回快照
func (r *MemoryJobRepository) GetJobByUUID(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobUUID]
	if !ok {
		return nil, errno.ErrJobNotFound
	}
	return snapshotJob(job), nil
}

// UpdateJob 以实体当前状态覆盖保存的快照
func (r *MemoryJobRepository) UpdateJob(ctx context.Context, job *entity.DownloadJobEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.JobUUID()]; !ok {
		return errno.ErrJobNotFound
	}
	r.jobs[job.JobUUID()] = snapshotJob(job)
	return nil
}

// UpdateJobProgress 更新已下载字节数
func (r *MemoryJobRepository) UpdateJobProgress(ctx context.Context, jobUUID string, downloadedBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobUUID]
	if !ok {
		return errno.ErrJobNotFound
	}
	job.SetDownloadedBytes(downloadedBytes)
	return nil
}

// ListJobsByStatus 按状态查询,保持插入顺序,返回快照
func (r *MemoryJobRepository) ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*entity.DownloadJobEntity, 0)
	for _, id := range r.order {
		if job := r.jobs[id]; job != nil && job.Status() == status {
			result = append(result, snapshotJob(job))
		}
	}
	return result, nil
}
