package app

import (
	"context"
	"io"
	"net/url"
	"strings"

	"audio-convert-service/ddd/application/cqe"
	"audio-convert-service/ddd/application/dto"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/ddd/domain/service"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/cache"
	"audio-convert-service/ddd/infrastructure/queue"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/logger"
)

// ConvertApp 转换任务应用服务
type ConvertApp interface {
	// SubmitConversion 校验并受理转换请求，校验失败不落任何记录
	SubmitConversion(ctx context.Context, req *cqe.SubmitConversionReq) (*dto.DownloadJobDto, error)
	// GetConversion 查询任务状态
	GetConversion(ctx context.Context, jobUUID string) (*dto.DownloadJobDto, error)
	// DownloadOutput 打开已完成任务的产物流,返回下载文件名
	DownloadOutput(ctx context.Context, jobUUID string) (*dto.DownloadJobDto, string, io.ReadCloser, int64, error)
	// PreviewMetadata 解析媒体元数据,不创建任务
	PreviewMetadata(ctx context.Context, req *cqe.PreviewMetadataReq) (*dto.MediaPreviewDto, error)
	// ListConversions 按状态列出任务
	ListConversions(ctx context.Context, req *cqe.ListConversionsReq) (*dto.DownloadJobListDto, error)
}

type convertAppImpl struct {
	convertService service.ConvertService
	jobRepo        repo.DownloadJobRepository
	jobQueue       queue.JobQueue
	previewCache   cache.PreviewCache
	allowedHosts   []string
}

// NewConvertApp 创建转换任务应用服务
func NewConvertApp(
	convertService service.ConvertService,
	jobRepo repo.DownloadJobRepository,
	jobQueue queue.JobQueue,
	previewCache cache.PreviewCache,
	allowedHosts []string,
) ConvertApp {
	if previewCache == nil {
		previewCache = cache.NewNoopPreviewCache()
	}
	return &convertAppImpl{
		convertService: convertService,
		jobRepo:        jobRepo,
		jobQueue:       jobQueue,
		previewCache:   previewCache,
		allowedHosts:   allowedHosts,
	}
}

func (a *convertAppImpl) SubmitConversion(ctx context.Context, req *cqe.SubmitConversionReq) (*dto.DownloadJobDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := a.validateSourceURL(req.URL); err != nil {
		return nil, err
	}

	job, err := a.convertService.CreateJob(ctx, req.URL, vo.QualityTier(req.Quality))
	if err != nil {
		return nil, err
	}

	if err := a.jobQueue.Enqueue(ctx, job); err != nil {
		logger.Errorf("enqueue conversion job failed job_uuid=%s error=%v", job.JobUUID(), err)
		if markErr := job.MarkFailed(errno.ErrQueueFull.Message); markErr == nil {
			_ = a.jobRepo.UpdateJob(ctx, job)
		}
		return nil, errno.ErrQueueFull
	}

	logger.Infof("conversion job accepted job_uuid=%s quality=%s", job.JobUUID(), job.Quality())
	return dto.NewDownloadJobDto(job), nil
}

func (a *convertAppImpl) GetConversion(ctx context.Context, jobUUID string) (*dto.DownloadJobDto, error) {
	if jobUUID == "" {
		return nil, errno.ErrInvalidParam
	}
	job, err := a.convertService.GetJob(ctx, jobUUID)
	if err != nil {
		return nil, err
	}
	return dto.NewDownloadJobDto(job), nil
}

func (a *convertAppImpl) DownloadOutput(ctx context.Context, jobUUID string) (*dto.DownloadJobDto, string, io.ReadCloser, int64, error) {
	if jobUUID == "" {
		return nil, "", nil, 0, errno.ErrInvalidParam
	}
	job, stream, size, err := a.convertService.OpenOutput(ctx, jobUUID)
	if err != nil {
		return nil, "", nil, 0, err
	}
	return dto.NewDownloadJobDto(job), job.DownloadFileName(), stream, size, nil
}

func (a *convertAppImpl) PreviewMetadata(ctx context.Context, req *cqe.PreviewMetadataReq) (*dto.MediaPreviewDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := a.validateSourceURL(req.URL); err != nil {
		return nil, err
	}

	if info, ok := a.previewCache.Get(ctx, req.URL); ok {
		return dto.NewMediaPreviewDto(info), nil
	}

	info, err := a.convertService.PreviewMetadata(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	a.previewCache.Set(ctx, req.URL, info)
	return dto.NewMediaPreviewDto(info), nil
}

func (a *convertAppImpl) ListConversions(ctx context.Context, req *cqe.ListConversionsReq) (*dto.DownloadJobListDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	jobs, err := a.convertService.ListJobsByStatus(ctx, vo.JobStatus(req.Status))
	if err != nil {
		return nil, err
	}
	return dto.NewDownloadJobListDto(jobs), nil
}

// validateSourceURL 校验URL格式与域名白名单
func (a *convertAppImpl) validateSourceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errno.ErrUnsupportedURL
	}
	if len(a.allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())
	for _, allowed := range a.allowedHosts {
		if host == strings.ToLower(allowed) {
			return nil
		}
	}
	return errno.ErrUnsupportedURL
}
