package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/ddd/domain/port"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/logger"
)

// ConvertService 转换任务领域服务，持有每个任务的状态机。
// Process在独立协程中执行，除仓储外不共享可变状态。
type ConvertService interface {
	// CreateJob 准入一个转换请求，持久化pending记录
	CreateJob(ctx context.Context, sourceURL string, quality vo.QualityTier) (*entity.DownloadJobEntity, error)

	// Process 执行完整流水线：解析元数据 -> 拉流 -> 编码落盘 -> 终态。
	// 流水线错误全部收敛到任务的failed终态，不向上抛出。
	Process(ctx context.Context, job *entity.DownloadJobEntity)

	// GetJob 查询任务
	GetJob(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error)

	// ListJobsByStatus 按状态查询任务
	ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error)

	// OpenOutput 打开已完成任务的产物流
	OpenOutput(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, io.ReadCloser, int64, error)

	// PreviewMetadata 不创建任务，直接解析元数据
	PreviewMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error)
}

// ConvertOptions 流水线的运行参数
type ConvertOptions struct {
	// MetadataTimeout 元数据解析超时，超时按上游不可用处理
	MetadataTimeout time.Duration
	// TransferTimeout 拉流加编码的总超时
	TransferTimeout time.Duration
	// TempDir 编码中间产物目录
	TempDir string
	// ProgressStep 每累计多少字节上报一次进度
	ProgressStep int64
}

type convertServiceImpl struct {
	jobRepo   repo.DownloadJobRepository
	fetcher   gateway.MediaFetcher
	encoder   port.AudioEncoder
	storage   gateway.AudioStorage
	publisher gateway.EventPublisher
	progress  port.ProgressSink
	opts      ConvertOptions
}

// NewConvertService 创建转换任务领域服务
func NewConvertService(
	jobRepo repo.DownloadJobRepository,
	fetcher gateway.MediaFetcher,
	encoder port.AudioEncoder,
	storage gateway.AudioStorage,
	publisher gateway.EventPublisher,
	progress port.ProgressSink,
	opts ConvertOptions,
) ConvertService {
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 30 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 10 * time.Minute
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 256 * 1024
	}
	return &convertServiceImpl{
		jobRepo:   jobRepo,
		fetcher:   fetcher,
		encoder:   encoder,
		storage:   storage,
		publisher: publisher,
		progress:  progress,
		opts:      opts,
	}
}

// CreateJob 准入一个转换请求
func (s *convertServiceImpl) CreateJob(ctx context.Context, sourceURL string, quality vo.QualityTier) (*entity.DownloadJobEntity, error) {
	job := entity.NewDownloadJobEntity(sourceURL, quality)
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	s.publishEvent(ctx, job)
	return job, nil
}

// Process 执行完整流水线
func (s *convertServiceImpl) Process(ctx context.Context, job *entity.DownloadJobEntity) {
	defer func() {
		// 防御性兜底：任何panic都收敛到failed，保证任务不会停留在processing
		if r := recover(); r != nil {
			logger.Error("Pipeline panic recovered", map[string]interface{}{
				"job_uuid": job.JobUUID(),
				"panic":    fmt.Sprintf("%v", r),
			})
			s.failJob(ctx, job, fmt.Errorf("%w: internal error: %v", errno.ErrStorageFailure, r))
		}
	}()

	if err := job.MarkProcessing(); err != nil {
		logger.Warnf("Skipping job in unexpected state job_uuid=%s status=%s", job.JobUUID(), job.Status())
		return
	}
	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		s.failJob(ctx, job, fmt.Errorf("%w: persist processing state: %v", errno.ErrStorageFailure, err))
		return
	}

	// 第一步：解析元数据
	metaCtx, cancelMeta := context.WithTimeout(ctx, s.opts.MetadataTimeout)
	info, err := s.fetcher.ResolveMetadata(metaCtx, job.SourceURL())
	cancelMeta()
	if err != nil {
		s.failJob(ctx, job, err)
		return
	}
	job.SetMediaInfo(info)
	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		s.failJob(ctx, job, fmt.Errorf("%w: persist metadata: %v", errno.ErrStorageFailure, err))
		return
	}
	logger.Infof("Metadata resolved job_uuid=%s title=%q duration=%ds", job.JobUUID(), info.Title, info.DurationSeconds)

	// 第二步：生成不会冲突的输出名
	outputName := job.DeriveOutputName()

	// 第三步：打开音频流并增量编码到临时文件
	transferCtx, cancelTransfer := context.WithTimeout(ctx, s.opts.TransferTimeout)
	defer cancelTransfer()

	stream, err := s.fetcher.OpenAudioStream(transferCtx, job.SourceURL(), job.Quality())
	if err != nil {
		s.failJob(ctx, job, err)
		return
	}
	defer stream.Close()

	tempPath := filepath.Join(s.opts.TempDir, "work", outputName)
	if err := os.MkdirAll(filepath.Dir(tempPath), 0o755); err != nil {
		s.failJob(ctx, job, fmt.Errorf("%w: create temp dir: %v", errno.ErrStorageFailure, err))
		return
	}

	counted := newCountingReader(stream, s.opts.ProgressStep, func(n int64) {
		job.SetDownloadedBytes(n)
		if s.progress != nil {
			_ = s.progress.SaveProgress(ctx, job, n)
		}
	})

	if err := s.encoder.EncodeToMP3(transferCtx, counted, tempPath, job.Quality().Bitrate()); err != nil {
		// 失败的中间产物不保证清理，见运维文档
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: transfer timed out: %v", errno.ErrUpstreamUnavailable, err)
		}
		s.failJob(ctx, job, err)
		return
	}

	// 第四步：落入持久存储并记录最终大小
	storedPath, sizeBytes, err := s.storage.Store(ctx, tempPath, outputName)
	if err != nil {
		s.failJob(ctx, job, err)
		return
	}

	if err := job.MarkCompleted(storedPath, sizeBytes); err != nil {
		logger.Errorf("Completion transition rejected job_uuid=%s error=%v", job.JobUUID(), err)
		return
	}
	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		logger.Errorf("Failed to persist completed job job_uuid=%s error=%v", job.JobUUID(), err)
		return
	}
	s.publishEvent(ctx, job)
	logger.Infof("Conversion completed job_uuid=%s output=%s size=%d", job.JobUUID(), storedPath, sizeBytes)
}

// GetJob 查询任务
func (s *convertServiceImpl) GetJob(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error) {
	return s.jobRepo.GetJobByUUID(ctx, jobUUID)
}

// ListJobsByStatus 按状态查询任务
func (s *convertServiceImpl) ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error) {
	return s.jobRepo.ListJobsByStatus(ctx, status)
}

// OpenOutput 打开已完成任务的产物流
func (s *convertServiceImpl) OpenOutput(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, io.ReadCloser, int64, error) {
	job, err := s.jobRepo.GetJobByUUID(ctx, jobUUID)
	if err != nil {
		return nil, nil, 0, err
	}
	if job.Status() != vo.JobStatusCompleted || job.OutputPath() == "" {
		return nil, nil, 0, errno.ErrJobNotCompleted
	}
	rc, size, err := s.storage.Open(ctx, job.OutputPath())
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", errno.ErrOutputMissing, err)
	}
	return job, rc, size, nil
}

// PreviewMetadata 不创建任务，直接解析元数据
func (s *convertServiceImpl) PreviewMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	metaCtx, cancel := context.WithTimeout(ctx, s.opts.MetadataTimeout)
	defer cancel()
	return s.fetcher.ResolveMetadata(metaCtx, sourceURL)
}

// failJob 把流水线错误收敛到failed终态
func (s *convertServiceImpl) failJob(ctx context.Context, job *entity.DownloadJobEntity, cause error) {
	kind := errno.Classify(cause)
	detail := cause.Error()
	if !errors.Is(cause, kind) {
		detail = kind.Message + ": " + detail
	}

	if err := job.MarkFailed(detail); err != nil {
		// 已在终态，保持原样
		logger.Warnf("Failure transition rejected job_uuid=%s error=%v", job.JobUUID(), err)
		return
	}
	if err := s.jobRepo.UpdateJob(ctx, job); err != nil {
		logger.Errorf("Failed to persist failed job job_uuid=%s error=%v", job.JobUUID(), err)
	}
	s.publishEvent(ctx, job)
	logger.Warnf("Conversion failed job_uuid=%s kind=%d detail=%s", job.JobUUID(), kind.Code, detail)
}

func (s *convertServiceImpl) publishEvent(ctx context.Context, job *entity.DownloadJobEntity) {
	if s.publisher == nil {
		return
	}
	evt := gateway.JobEvent{
		JobUUID:   job.JobUUID(),
		SourceURL: job.SourceURL(),
		Status:    job.Status().String(),
		Error:     job.ErrorMessage(),
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.PublishJobEvent(ctx, evt); err != nil {
		logger.Warnf("Failed to publish job event job_uuid=%s error=%v", job.JobUUID(), err)
	}
}

// countingReader 统计经过的字节数，每累计step字节回调一次
type countingReader struct {
	inner  io.Reader
	total  int64
	step   int64
	nextAt int64
	onStep func(total int64)
}

func newCountingReader(inner io.Reader, step int64, onStep func(total int64)) *countingReader {
	return &countingReader{inner: inner, step: step, nextAt: step, onStep: onStep}
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.total += int64(n)
		if r.onStep != nil && r.total >= r.nextAt {
			r.onStep(r.total)
			r.nextAt = r.total + r.step
		}
	}
	return n, err
}
