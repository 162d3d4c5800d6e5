package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/database/persistence"
	"audio-convert-service/pkg/errno"
)

// --- 测试替身 ---

type fakeFetcher struct {
	info      *vo.MediaInfo
	metaErr   error
	payload   []byte
	streamErr error
}

func (f *fakeFetcher) ResolveMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.info, nil
}

func (f *fakeFetcher) OpenAudioStream(ctx context.Context, sourceURL string, quality vo.QualityTier) (io.ReadCloser, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

// passthroughEncoder 将输入原样写入输出文件
type passthroughEncoder struct{}

func (passthroughEncoder) EncodeToMP3(ctx context.Context, input io.Reader, outputPath string, bitrate string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrStorageFailure, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, input); err != nil {
		return fmt.Errorf("%w: %v", errno.ErrUpstreamUnavailable, err)
	}
	return nil
}

// dirStorage 将临时文件移动到固定目录
type dirStorage struct {
	dir string
}

func (s *dirStorage) Store(ctx context.Context, localPath, objectName string) (string, int64, error) {
	stored := filepath.Join(s.dir, objectName)
	if err := os.Rename(localPath, stored); err != nil {
		return "", 0, fmt.Errorf("%w: %v", errno.ErrStorageFailure, err)
	}
	info, err := os.Stat(stored)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", errno.ErrStorageFailure, err)
	}
	return stored, info.Size(), nil
}

func (s *dirStorage) Open(ctx context.Context, storedPath string) (io.ReadCloser, int64, error) {
	f, err := os.Open(storedPath)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// trickleReader 每次只吐出少量字节,拉长传输窗口
type trickleReader struct {
	data []byte
	off  int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	time.Sleep(time.Millisecond)
	end := r.off + 64
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.off:end])
	r.off += n
	return n, nil
}

func (r *trickleReader) Close() error { return nil }

// slowStreamFetcher 用慢速流模拟传输中的任务
type slowStreamFetcher struct {
	info    *vo.MediaInfo
	payload []byte
}

func (f *slowStreamFetcher) ResolveMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	return f.info, nil
}

func (f *slowStreamFetcher) OpenAudioStream(ctx context.Context, sourceURL string, quality vo.QualityTier) (io.ReadCloser, error) {
	return &trickleReader{data: f.payload}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []gateway.JobEvent
}

func (p *recordingPublisher) PublishJobEvent(ctx context.Context, evt gateway.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Status)
	}
	return out
}

func newTestService(t *testing.T, f gateway.MediaFetcher) (ConvertService, *persistence.MemoryJobRepository, *dirStorage, *recordingPublisher) {
	t.Helper()
	repo := persistence.NewMemoryJobRepository()
	store := &dirStorage{dir: t.TempDir()}
	pub := &recordingPublisher{}
	svc := NewConvertService(repo, f, passthroughEncoder{}, store, pub, nil, ConvertOptions{
		TempDir: t.TempDir(),
	})
	return svc, repo, store, pub
}

// --- 用例 ---

func TestCreateJobStartsPending(t *testing.T) {
	svc, _, _, _ := newTestService(t, &fakeFetcher{})

	job, err := svc.CreateJob(context.Background(), "https://youtu.be/abc", vo.QualityMedium)
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status() != vo.JobStatusPending {
		t.Errorf("new job status = %q, want pending", job.Status())
	}

	got, err := svc.GetJob(context.Background(), job.JobUUID())
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status() != vo.JobStatusPending {
		t.Errorf("persisted status = %q, want pending", got.Status())
	}
}

func TestProcessCompletesJob(t *testing.T) {
	payload := bytes.Repeat([]byte("mp3-bytes-"), 1000)
	fetcher := &fakeFetcher{
		info:    &vo.MediaInfo{Title: "Test Clip", DurationSeconds: 213},
		payload: payload,
	}
	svc, _, _, pub := newTestService(t, fetcher)

	ctx := context.Background()
	job, err := svc.CreateJob(ctx, "https://youtu.be/abc", vo.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}

	svc.Process(ctx, job)

	if job.Status() != vo.JobStatusCompleted {
		t.Fatalf("status = %q (error=%q), want completed", job.Status(), job.ErrorMessage())
	}
	if job.VideoTitle() != "Test Clip" {
		t.Errorf("title = %q, want Test Clip", job.VideoTitle())
	}
	if !strings.Contains(job.OutputPath(), "Test_Clip_192kbps_") {
		t.Errorf("output path = %q, want derived name with title and tier", job.OutputPath())
	}

	// 记录的大小必须与磁盘上的产物一致
	info, err := os.Stat(job.OutputPath())
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if job.OutputSizeBytes() != info.Size() || info.Size() != int64(len(payload)) {
		t.Errorf("size mismatch: recorded=%d disk=%d payload=%d", job.OutputSizeBytes(), info.Size(), len(payload))
	}

	statuses := pub.statuses()
	want := []string{"pending", "completed"}
	if len(statuses) != len(want) {
		t.Fatalf("published events = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, statuses[i], want[i])
		}
	}
}

func TestProcessFailsWhenMetadataUnresolvable(t *testing.T) {
	fetcher := &fakeFetcher{
		metaErr: fmt.Errorf("%w: video unavailable", errno.ErrInvalidSource),
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "https://youtu.be/gone", vo.QualityLow)
	svc.Process(ctx, job)

	if job.Status() != vo.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status())
	}
	if !strings.Contains(job.ErrorMessage(), "video unavailable") {
		t.Errorf("error message = %q, want cause detail", job.ErrorMessage())
	}
}

func TestProcessFailsWithoutAudioFormatButKeepsTitle(t *testing.T) {
	fetcher := &fakeFetcher{
		info:      &vo.MediaInfo{Title: "Silent Film", DurationSeconds: 90},
		streamErr: fmt.Errorf("%w: only video formats offered", errno.ErrNoSuitableFormat),
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "https://youtu.be/video-only", vo.QualityHigh)
	svc.Process(ctx, job)

	if job.Status() != vo.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status())
	}
	// 元数据在失败前已解析，标题保留
	if job.VideoTitle() != "Silent Film" {
		t.Errorf("title = %q, want Silent Film", job.VideoTitle())
	}
	if !errors.Is(errno.Classify(fetcher.streamErr), errno.ErrNoSuitableFormat) {
		t.Error("stream error must classify as no-suitable-format")
	}
}

func TestProcessUnknownErrorStillReachesTerminalState(t *testing.T) {
	fetcher := &fakeFetcher{
		metaErr: errors.New("something nobody anticipated"),
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "https://youtu.be/odd", vo.QualityMedium)
	svc.Process(ctx, job)

	if !job.Status().IsFinalStatus() {
		t.Fatalf("status = %q, want a terminal state", job.Status())
	}
	if !strings.Contains(job.ErrorMessage(), errno.ErrStorageFailure.Message) {
		t.Errorf("unknown errors must fall into the storage class, got %q", job.ErrorMessage())
	}
}

func TestConcurrentJobsForSameURLProduceDistinctOutputs(t *testing.T) {
	fetcher := &fakeFetcher{
		info:    &vo.MediaInfo{Title: "Same Source", DurationSeconds: 10},
		payload: []byte("shared-payload"),
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	const n = 4
	jobs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		job, err := svc.CreateJob(ctx, "https://youtu.be/shared", vo.QualityMedium)
		if err != nil {
			t.Fatal(err)
		}
		jobs[i] = job.JobUUID()
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Process(ctx, job)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range jobs {
		job, err := svc.GetJob(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if job.Status() != vo.JobStatusCompleted {
			t.Fatalf("job %s status = %q (error=%q), want completed", id, job.Status(), job.ErrorMessage())
		}
		if seen[job.OutputPath()] {
			t.Errorf("output path collision: %q", job.OutputPath())
		}
		seen[job.OutputPath()] = true
	}
}

func TestOpenOutput(t *testing.T) {
	payload := []byte("final-audio")
	fetcher := &fakeFetcher{
		info:    &vo.MediaInfo{Title: "Clip"},
		payload: payload,
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "https://youtu.be/clip", vo.QualityLow)

	// 完成前拒绝下载
	if _, _, _, err := svc.OpenOutput(ctx, job.JobUUID()); !errors.Is(err, errno.ErrJobNotCompleted) {
		t.Errorf("OpenOutput before completion error = %v, want ErrJobNotCompleted", err)
	}

	svc.Process(ctx, job)

	got, rc, size, err := svc.OpenOutput(ctx, job.JobUUID())
	if err != nil {
		t.Fatalf("OpenOutput() error = %v", err)
	}
	defer rc.Close()
	if got.JobUUID() != job.JobUUID() {
		t.Error("OpenOutput returned wrong job")
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) || size != int64(len(payload)) {
		t.Errorf("streamed %d bytes (declared %d), want %d", len(data), size, len(payload))
	}

	// 未知任务
	if _, _, _, err := svc.OpenOutput(ctx, "missing-uuid"); !errors.Is(err, errno.ErrJobNotFound) {
		t.Errorf("OpenOutput unknown job error = %v, want ErrJobNotFound", err)
	}
}

func TestGetJobDuringProcessingSeesConsistentState(t *testing.T) {
	payload := bytes.Repeat([]byte("chunk-"), 512)
	fetcher := &slowStreamFetcher{
		info:    &vo.MediaInfo{Title: "Live Poll", DurationSeconds: 30},
		payload: payload,
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, err := svc.CreateJob(ctx, "https://youtu.be/live", vo.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Process(ctx, job)
	}()

	// 流水线还在写,状态查询拿到的必须是自洽的快照:
	// 看到completed时产物字段必须已经齐全
	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("job never reached a terminal state")
		}
		got, err := svc.GetJob(ctx, job.JobUUID())
		if err != nil {
			t.Fatal(err)
		}
		_ = got.VideoTitle()
		_ = got.DownloadedBytes()
		_ = got.UpdatedAt()
		if got.Status() == vo.JobStatusFailed {
			t.Fatalf("job failed: %s", got.ErrorMessage())
		}
		if got.Status() == vo.JobStatusCompleted {
			if got.OutputPath() == "" || got.OutputSizeBytes() != int64(len(payload)) || got.CompletedAt() == nil {
				t.Fatalf("completed snapshot incomplete: path=%q size=%d", got.OutputPath(), got.OutputSizeBytes())
			}
			break
		}
	}
	<-done
}

func TestGetJobRepeatedPollsAreStable(t *testing.T) {
	fetcher := &fakeFetcher{
		info:    &vo.MediaInfo{Title: "Poll Target"},
		payload: []byte("x"),
	}
	svc, _, _, _ := newTestService(t, fetcher)

	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "https://youtu.be/poll", vo.QualityMedium)
	svc.Process(ctx, job)

	first, err := svc.GetJob(ctx, job.JobUUID())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := svc.GetJob(ctx, job.JobUUID())
		if err != nil {
			t.Fatal(err)
		}
		if again.Status() != first.Status() || again.OutputPath() != first.OutputPath() {
			t.Error("repeated polls of a terminal job must not change")
		}
	}
}
