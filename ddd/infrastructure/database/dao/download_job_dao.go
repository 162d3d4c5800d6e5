package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"audio-convert-service/ddd/infrastructure/database/po"
	"audio-convert-service/pkg/logger"
)

// DownloadJobDAO 转换任务数据访问对象
type DownloadJobDAO struct {
	db *gorm.DB
}

// NewDownloadJobDAO 创建转换任务DAO实例
func NewDownloadJobDAO(db *gorm.DB) *DownloadJobDAO {
	return &DownloadJobDAO{db: db}
}

// Create 创建转换任务
func (d *DownloadJobDAO) Create(ctx context.Context, jobPo *po.DownloadJob) error {
	err := d.db.WithContext(ctx).Model(&po.DownloadJob{}).Create(jobPo).Error
	if err != nil {
		logger.Errorf("Error creating download job error=%v", err)
		return err
	}
	return nil
}

// FindByJobUUID 根据任务UUID查询任务
func (d *DownloadJobDAO) FindByJobUUID(ctx context.Context, jobUUID string) (*po.DownloadJob, error) {
	var job po.DownloadJob
	if err := d.db.WithContext(ctx).
		Where("job_uuid = ?", jobUUID).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		logger.Errorf("Error query download job by uuid error=%v", err)
		return nil, err
	}
	return &job, nil
}

// Update 全量更新任务
func (d *DownloadJobDAO) Update(ctx context.Context, jobPo *po.DownloadJob) error {
	err := d.db.WithContext(ctx).Model(&po.DownloadJob{}).
		Where("job_uuid = ?", jobPo.JobUUID).
		Save(jobPo).Error
	if err != nil {
		logger.Errorf("Error updating download job error=%v", err)
		return err
	}
	return nil
}

// UpdateProgress 只更新已下载字节数
func (d *DownloadJobDAO) UpdateProgress(ctx context.Context, jobUUID string, downloadedBytes int64) error {
	err := d.db.WithContext(ctx).Model(&po.DownloadJob{}).
		Where("job_uuid = ?", jobUUID).
		Update("downloaded_bytes", downloadedBytes).Error
	if err != nil {
		logger.Errorf("Error updating download job progress error=%v", err)
		return err
	}
	return nil
}

// QueryByStatus 按状态查询任务，按插入顺序返回
func (d *DownloadJobDAO) QueryByStatus(ctx context.Context, status string) ([]*po.DownloadJob, error) {
	var jobs []*po.DownloadJob
	if err := d.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		logger.Errorf("Error query download jobs by status error=%v", err)
		return nil, err
	}
	return jobs, nil
}
