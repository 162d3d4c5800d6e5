package convertor

import (
	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/database/po"
)

// ToDownloadJobPO 实体转持久化对象
func ToDownloadJobPO(job *entity.DownloadJobEntity) *po.DownloadJob {
	if job == nil {
		return nil
	}
	return &po.DownloadJob{
		ID:              job.ID(),
		JobUUID:         job.JobUUID(),
		SourceURL:       job.SourceURL(),
		Quality:         job.Quality().String(),
		Status:          job.Status().String(),
		VideoTitle:      job.VideoTitle(),
		VideoDuration:   job.VideoDuration(),
		VideoThumbnail:  job.VideoThumbnail(),
		ViewCount:       job.ViewCount(),
		OutputPath:      job.OutputPath(),
		OutputSizeBytes: job.OutputSizeBytes(),
		DownloadedBytes: job.DownloadedBytes(),
		ErrorMessage:    job.ErrorMessage(),
		CreatedAt:       job.CreatedAt(),
		UpdatedAt:       job.UpdatedAt(),
		CompletedAt:     job.CompletedAt(),
	}
}

// ToDownloadJobEntity 持久化对象转实体
func ToDownloadJobEntity(jobPo *po.DownloadJob) *entity.DownloadJobEntity {
	if jobPo == nil {
		return nil
	}
	return entity.NewDownloadJobEntityWithDetails(
		jobPo.ID,
		jobPo.JobUUID,
		jobPo.SourceURL,
		vo.QualityTier(jobPo.Quality),
		vo.JobStatus(jobPo.Status),
		jobPo.VideoTitle,
		jobPo.VideoDuration,
		jobPo.VideoThumbnail,
		jobPo.ViewCount,
		jobPo.OutputPath,
		jobPo.OutputSizeBytes,
		jobPo.DownloadedBytes,
		jobPo.ErrorMessage,
		jobPo.CreatedAt,
		jobPo.UpdatedAt,
		jobPo.CompletedAt,
	)
}

// ToDownloadJobEntities 批量转换
func ToDownloadJobEntities(pos []*po.DownloadJob) []*entity.DownloadJobEntity {
	entities := make([]*entity.DownloadJobEntity, 0, len(pos))
	for _, jobPo := range pos {
		entities = append(entities, ToDownloadJobEntity(jobPo))
	}
	return entities
}
