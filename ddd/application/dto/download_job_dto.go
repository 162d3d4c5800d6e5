package dto

import (
	"time"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/vo"
)

// DownloadJobDto 转换任务数据传输对象
type DownloadJobDto struct {
	JobUUID         string     `json:"job_id"`
	SourceURL       string     `json:"url"`
	Quality         string     `json:"quality"`
	Status          string     `json:"status"`
	VideoTitle      string     `json:"video_title,omitempty"`
	VideoDuration   int        `json:"video_duration,omitempty"`
	VideoThumbnail  string     `json:"video_thumbnail,omitempty"`
	DownloadedBytes int64      `json:"downloaded_bytes"`
	OutputPath      string     `json:"output_path,omitempty"`
	OutputSizeBytes int64      `json:"output_size_bytes,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewDownloadJobDto 从实体创建DTO
func NewDownloadJobDto(job *entity.DownloadJobEntity) *DownloadJobDto {
	if job == nil {
		return nil
	}

	return &DownloadJobDto{
		JobUUID:         job.JobUUID(),
		SourceURL:       job.SourceURL(),
		Quality:         job.Quality().String(),
		Status:          job.Status().String(),
		VideoTitle:      job.VideoTitle(),
		VideoDuration:   job.VideoDuration(),
		VideoThumbnail:  job.VideoThumbnail(),
		DownloadedBytes: job.DownloadedBytes(),
		OutputPath:      job.OutputPath(),
		OutputSizeBytes: job.OutputSizeBytes(),
		ErrorMessage:    job.ErrorMessage(),
		CreatedAt:       job.CreatedAt(),
		UpdatedAt:       job.UpdatedAt(),
		CompletedAt:     job.CompletedAt(),
	}
}

// DownloadJobListDto 任务列表数据传输对象
type DownloadJobListDto struct {
	Jobs  []DownloadJobDto `json:"jobs"`
	Total int              `json:"total"`
}

// NewDownloadJobListDto 创建任务列表DTO
func NewDownloadJobListDto(jobs []*entity.DownloadJobEntity) *DownloadJobListDto {
	items := make([]DownloadJobDto, 0, len(jobs))
	for _, job := range jobs {
		if d := NewDownloadJobDto(job); d != nil {
			items = append(items, *d)
		}
	}
	return &DownloadJobListDto{Jobs: items, Total: len(items)}
}

// MediaPreviewDto 元数据预览数据传输对象
type MediaPreviewDto struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	ViewCount       int64  `json:"view_count,omitempty"`
}

// NewMediaPreviewDto 从媒体信息创建预览DTO
func NewMediaPreviewDto(info *vo.MediaInfo) *MediaPreviewDto {
	if info == nil {
		return nil
	}
	return &MediaPreviewDto{
		Title:           info.Title,
		DurationSeconds: info.DurationSeconds,
		ThumbnailURL:    info.ThumbnailURL,
		ViewCount:       info.ViewCount,
	}
}
