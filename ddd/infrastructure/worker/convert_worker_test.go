package worker

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/queue"
	"audio-convert-service/pkg/task"
)

// 工作器必须能直接注册为后台任务
var _ task.BackgroundTask = ConvertWorker(nil)

// stubConvertService 只实现工作器用到的Process,其余方法不会被调用
type stubConvertService struct {
	processed uint64
	fail      bool
}

func (s *stubConvertService) CreateJob(ctx context.Context, sourceURL string, quality vo.QualityTier) (*entity.DownloadJobEntity, error) {
	panic("not used")
}

func (s *stubConvertService) Process(ctx context.Context, job *entity.DownloadJobEntity) {
	_ = job.MarkProcessing()
	if s.fail {
		_ = job.MarkFailed("stub failure")
	} else {
		_ = job.MarkCompleted("out.mp3", 1)
	}
	atomic.AddUint64(&s.processed, 1)
}

func (s *stubConvertService) GetJob(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, error) {
	panic("not used")
}

func (s *stubConvertService) ListJobsByStatus(ctx context.Context, status vo.JobStatus) ([]*entity.DownloadJobEntity, error) {
	panic("not used")
}

func (s *stubConvertService) OpenOutput(ctx context.Context, jobUUID string) (*entity.DownloadJobEntity, io.ReadCloser, int64, error) {
	panic("not used")
}

func (s *stubConvertService) PreviewMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	panic("not used")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorkerProcessesQueuedJobs(t *testing.T) {
	q := NewTestQueue(t)
	svc := &stubConvertService{}
	w := NewConvertWorker("test", q, svc, 2)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		job := entity.NewDownloadJobEntity("https://youtu.be/w", vo.QualityMedium)
		if err := q.Enqueue(context.Background(), job); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadUint64(&svc.processed) == 5
	})

	stats := w.GetStats()
	if stats.ProcessedJobs != 5 || stats.CompletedJobs != 5 || stats.FailedJobs != 0 {
		t.Errorf("stats = %+v, want 5 processed and completed", stats)
	}
}

func TestWorkerCountsFailures(t *testing.T) {
	q := NewTestQueue(t)
	svc := &stubConvertService{fail: true}
	w := NewConvertWorker("test", q, svc, 1)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	job := entity.NewDownloadJobEntity("https://youtu.be/f", vo.QualityLow)
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return w.GetStats().FailedJobs == 1
	})
}

func TestWorkerStartStop(t *testing.T) {
	q := NewTestQueue(t)
	w := NewConvertWorker("test", q, &stubConvertService{}, 1)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !w.IsRunning() {
		t.Error("worker must report running after Start")
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start must fail")
	}

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if w.IsRunning() {
		t.Error("worker must report stopped after Stop")
	}
}

func TestWorkerRunsUnderTaskManager(t *testing.T) {
	q := NewTestQueue(t)
	svc := &stubConvertService{}
	w := NewConvertWorker("managed", q, svc, 1)

	m := task.NewManager()
	m.Register(w)
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	job := entity.NewDownloadJobEntity("https://youtu.be/m", vo.QualityMedium)
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadUint64(&svc.processed) == 1
	})

	m.StopAll()
	if w.IsRunning() {
		t.Error("worker must stop when the manager shuts down")
	}
}

// NewTestQueue 创建测试用小容量队列
func NewTestQueue(t *testing.T) queue.JobQueue {
	t.Helper()
	q := queue.NewMemoryJobQueue(16)
	t.Cleanup(func() { q.Close() })
	return q
}
