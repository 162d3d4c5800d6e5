package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/database/convertor"
	"audio-convert-service/ddd/infrastructure/database/dao"
	"audio-convert-service/pkg/errno"
)

// downloadJobRepositoryImpl MySQL仓储实现
type downloadJobRepositoryImpl struct {
	jobDAO *dao.DownloadJobDAO
}

// NewDownloadJobRepository 创建MySQL仓储
func NewDownloadJobRepository(db *gorm.DB) repo.DownloadJobRepository {
	return &downloadJobRepositoryImpl{
		jobDAO: dao.NewDownloadJobDAO(db),
	}
}

// CreateJob 持久化新任务并回填主键
func (r *downloadJobRepositoryImpl) CreateJob(ctx context.Context, job *entity.DownloadJobEntity) error {
	jobPo := convertor.ToDownloadJobPO(job)
	if err := r.jobDAO.Create(ctx, jobPo); err != nil {
		return fmt.Errorf("create download job: %w", err)
	}
	job.SetID(jobPo.ID)
	return nil
}

// GetJobByUUID 按UUID查询
func (r *downloadJobRepositoryImpl) GetJobByUUID(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error) {
	jobPo, err := r.jobDAO.FindByJobUUID(ctx, jobUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrJobNotFound
		}
		return nil, fmt.Errorf("query download job: %w", err)
	}
	return convertor.ToDownloadJobEntity(jobPo), nil
}

// UpdateJob 全量保存实体当前状态
func (r *downloadJobRepositoryImpl) UpdateJob(ctx context.Context, job *entity.DownloadJobEntity) error {
	if err := r.jobDAO.Update(ctx, convertor.ToDownloadJobPO(job)); err != nil {
		return fmt.Errorf("update download job: %w", err)
	}
	return nil
}

// UpdateJobProgress 只更新已下载字节数
func (r *downloadJobRepositoryImpl) UpdateJobProgress(ctx context.Context, jobUUID string, downloadedBytes int64) error {
	return r.jobDAO.UpdateProgress(ctx, jobUUID, downloadedBytes)
}

// ListJobsByStatus 按状态查询
func (r *downloadJobRepositoryImpl) ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error) {
	pos, err := r.jobDAO.QueryByStatus(ctx, status.String())
	if err != nil {
		return nil, fmt.Errorf("list download jobs: %w", err)
	}
	return convertor.ToDownloadJobEntities(pos), nil
}
