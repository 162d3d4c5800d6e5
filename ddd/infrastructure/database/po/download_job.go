package po

import "time"

// DownloadJob 转换任务持久化对象
type DownloadJob struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobUUID         string     `gorm:"uniqueIndex;size:36;not null" json:"job_uuid"`
	SourceURL       string     `gorm:"size:500;not null" json:"source_url"`
	Quality         string     `gorm:"size:8;not null" json:"quality"`
	Status          string     `gorm:"index;size:20;not null" json:"status"`
	VideoTitle      string     `gorm:"size:300" json:"video_title"`
	VideoDuration   int        `json:"video_duration"`
	VideoThumbnail  string     `gorm:"size:500" json:"video_thumbnail"`
	ViewCount       int64      `json:"view_count"`
	OutputPath      string     `gorm:"size:500" json:"output_path"`
	OutputSizeBytes int64      `json:"output_size_bytes"`
	DownloadedBytes int64      `json:"downloaded_bytes"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// TableName 指定表名
func (DownloadJob) TableName() string {
	return "download_jobs"
}
