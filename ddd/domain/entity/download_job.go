package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/errno"
)

// DownloadJobEntity 一次提交的音频转换任务
type DownloadJobEntity struct {
	id              uint64 // 数据库主键ID
	jobUUID         string
	sourceURL       string
	quality         vo.QualityTier
	status          vo.JobStatus
	videoTitle      string
	videoDuration   int
	videoThumbnail  string
	viewCount       int64
	outputPath      string
	outputSizeBytes int64
	downloadedBytes int64
	errorMessage    string
	createdAt       time.Time
	updatedAt       time.Time
	completedAt     *time.Time
}

// NewDownloadJobEntity 创建转换任务实体，初始状态为pending
func NewDownloadJobEntity(sourceURL string, quality vo.QualityTier) *DownloadJobEntity {
	now := time.Now()
	return &DownloadJobEntity{
		jobUUID:   uuid.New().String(),
		sourceURL: sourceURL,
		quality:   quality,
		status:    vo.JobStatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// NewDownloadJobEntityWithDetails 从持久化层还原实体
func NewDownloadJobEntityWithDetails(
	id uint64,
	jobUUID, sourceURL string,
	quality vo.QualityTier, status vo.JobStatus,
	videoTitle string, videoDuration int, videoThumbnail string, viewCount int64,
	outputPath string, outputSizeBytes, downloadedBytes int64,
	errorMessage string,
	createdAt, updatedAt time.Time, completedAt *time.Time,
) *DownloadJobEntity {
	return &DownloadJobEntity{
		id:              id,
		jobUUID:         jobUUID,
		sourceURL:       sourceURL,
		quality:         quality,
		status:          status,
		videoTitle:      videoTitle,
		videoDuration:   videoDuration,
		videoThumbnail:  videoThumbnail,
		viewCount:       viewCount,
		outputPath:      outputPath,
		outputSizeBytes: outputSizeBytes,
		downloadedBytes: downloadedBytes,
		errorMessage:    errorMessage,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		completedAt:     completedAt,
	}
}

// ID 获取数据库主键ID
func (j *DownloadJobEntity) ID() uint64 { return j.id }

// SetID 设置数据库主键ID
func (j *DownloadJobEntity) SetID(id uint64) { j.id = id }

// JobUUID 获取任务UUID
func (j *DownloadJobEntity) JobUUID() string { return j.jobUUID }

// SourceURL 获取来源地址
func (j *DownloadJobEntity) SourceURL() string { return j.sourceURL }

// Quality 获取请求的码率档位
func (j *DownloadJobEntity) Quality() vo.QualityTier { return j.quality }

// Status 获取状态
func (j *DownloadJobEntity) Status() vo.JobStatus { return j.status }

// VideoTitle 获取视频标题
func (j *DownloadJobEntity) VideoTitle() string { return j.videoTitle }

// VideoDuration 获取视频时长（秒）
func (j *DownloadJobEntity) VideoDuration() int { return j.videoDuration }

// VideoThumbnail 获取封面地址
func (j *DownloadJobEntity) VideoThumbnail() string { return j.videoThumbnail }

// ViewCount 获取播放量
func (j *DownloadJobEntity) ViewCount() int64 { return j.viewCount }

// OutputPath 获取产物路径，仅completed状态有值
func (j *DownloadJobEntity) OutputPath() string { return j.outputPath }

// OutputSizeBytes 获取产物大小，仅completed状态有值
func (j *DownloadJobEntity) OutputSizeBytes() int64 { return j.outputSizeBytes }

// DownloadedBytes 获取已下载字节数
func (j *DownloadJobEntity) DownloadedBytes() int64 { return j.downloadedBytes }

// ErrorMessage 获取错误信息，仅failed状态有值
func (j *DownloadJobEntity) ErrorMessage() string { return j.errorMessage }

// CreatedAt 获取创建时间
func (j *DownloadJobEntity) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt 获取更新时间
func (j *DownloadJobEntity) UpdatedAt() time.Time { return j.updatedAt }

// CompletedAt 获取终态时间
func (j *DownloadJobEntity) CompletedAt() *time.Time { return j.completedAt }

// SetDownloadedBytes 更新已下载字节数
func (j *DownloadJobEntity) SetDownloadedBytes(n int64) {
	j.downloadedBytes = n
	j.updatedAt = time.Now()
}

// SetMediaInfo 合并元数据解析结果，只在metadata步骤成功后调用一次
func (j *DownloadJobEntity) SetMediaInfo(info *vo.MediaInfo) {
	if info == nil {
		return
	}
	j.videoTitle = info.Title
	j.videoDuration = info.DurationSeconds
	j.videoThumbnail = info.ThumbnailURL
	j.viewCount = info.ViewCount
	j.updatedAt = time.Now()
}

// MarkProcessing pending -> processing
func (j *DownloadJobEntity) MarkProcessing() error {
	return j.transition(vo.JobStatusProcessing)
}

// MarkCompleted 记录产物并落入completed终态
func (j *DownloadJobEntity) MarkCompleted(outputPath string, sizeBytes int64) error {
	if err := j.transition(vo.JobStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	j.outputPath = outputPath
	j.outputSizeBytes = sizeBytes
	j.downloadedBytes = sizeBytes
	j.completedAt = &now
	return nil
}

// MarkFailed 记录错误并落入failed终态
func (j *DownloadJobEntity) MarkFailed(message string) error {
	if err := j.transition(vo.JobStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	j.errorMessage = message
	j.completedAt = &now
	return nil
}

func (j *DownloadJobEntity) transition(target vo.JobStatus) error {
	if !j.status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", errno.ErrInvalidTransition, j.status, target)
	}
	j.status = target
	j.updatedAt = time.Now()
	return nil
}

// DeriveOutputName 根据标题、码率档位和任务UUID短前缀生成文件名，
// 相同标题的并发任务也不会互相覆盖。
func (j *DownloadJobEntity) DeriveOutputName() string {
	title := sanitizeTitle(j.videoTitle)
	if title == "" {
		title = "audio"
	}
	short := j.jobUUID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s.mp3", title, j.quality.Label(), short)
}

// DownloadFileName 下载时建议的文件名（标题 + .mp3）
func (j *DownloadJobEntity) DownloadFileName() string {
	title := sanitizeTitle(j.videoTitle)
	if title == "" {
		title = "audio"
	}
	return title + ".mp3"
}

// sanitizeTitle 将安全字符集之外的字符替换为下划线，并折叠连续的下划线
func sanitizeTitle(title string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
