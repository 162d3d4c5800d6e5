package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"audio-convert-service/ddd/domain/service"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/queue"
	"audio-convert-service/pkg/logger"
)

// ConvertWorker 转换工作器接口,满足task.BackgroundTask
type ConvertWorker interface {
	// Name 工作器名称
	Name() string

	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs  uint64
	CompletedJobs  uint64
	FailedJobs     uint64
	StartTime      time.Time
	LastJobTime    time.Time
}

// convertWorkerImpl 转换工作器实现，每个协程独立消费队列并执行流水线
type convertWorkerImpl struct {
	id             string
	jobQueue       queue.JobQueue
	convertService service.ConvertService
	workerCount    int
	running        bool
	cancel         context.CancelFunc
	processed      uint64
	completed      uint64
	failed         uint64
	startTime      time.Time
	lastJobUnix    int64
	mu             sync.Mutex
	wg             sync.WaitGroup
}

// NewConvertWorker 创建转换工作器
func NewConvertWorker(id string, jobQueue queue.JobQueue, convertService service.ConvertService, workerCount int) ConvertWorker {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &convertWorkerImpl{
		id:             id,
		jobQueue:       jobQueue,
		convertService: convertService,
		workerCount:    workerCount,
	}
}

// Name 实现task.BackgroundTask
func (w *convertWorkerImpl) Name() string {
	return "convert-worker-" + w.id
}

// Start 启动工作器
func (w *convertWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.startTime = time.Now()

	logger.Infof("Starting convert worker id=%s goroutines=%d", w.id, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}

	return nil
}

// Stop 停止工作器，等待在途任务结束
func (w *convertWorkerImpl) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	logger.Infof("Stopping convert worker id=%s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.running = false
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *convertWorkerImpl) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *convertWorkerImpl) GetStats() WorkerStats {
	return WorkerStats{
		ProcessedJobs: atomic.LoadUint64(&w.processed),
		CompletedJobs: atomic.LoadUint64(&w.completed),
		FailedJobs:    atomic.LoadUint64(&w.failed),
		StartTime:     w.startTime,
		LastJobTime:   time.Unix(atomic.LoadInt64(&w.lastJobUnix), 0),
	}
}

func (w *convertWorkerImpl) workerLoop(ctx context.Context, index int) {
	defer w.wg.Done()

	for {
		job, err := w.jobQueue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Warnf("Worker dequeue failed worker=%s index=%d error=%v", w.id, index, err)
			return
		}

		atomic.AddUint64(&w.processed, 1)
		atomic.StoreInt64(&w.lastJobUnix, time.Now().Unix())
		logger.Infof("Worker picked up job worker=%s index=%d job_uuid=%s", w.id, index, job.JobUUID())

		w.convertService.Process(ctx, job)

		if job.Status() == vo.JobStatusCompleted {
			atomic.AddUint64(&w.completed, 1)
		} else {
			atomic.AddUint64(&w.failed, 1)
		}
	}
}
