package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"audio-convert-service/ddd/application/app"
	"audio-convert-service/ddd/domain/service"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/ddd/infrastructure/database/persistence"
	"audio-convert-service/ddd/infrastructure/queue"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/restapi"
)

type stubFetcher struct {
	info    *vo.MediaInfo
	payload []byte
}

func (f *stubFetcher) ResolveMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	return f.info, nil
}

func (f *stubFetcher) OpenAudioStream(ctx context.Context, sourceURL string, quality vo.QualityTier) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

type stubEncoder struct{}

func (stubEncoder) EncodeToMP3(ctx context.Context, input io.Reader, outputPath string, bitrate string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, input)
	return err
}

type tempStorage struct {
	dir string
}

func (s *tempStorage) Store(ctx context.Context, localPath, objectName string) (string, int64, error) {
	stored := s.dir + "/" + objectName
	if err := os.Rename(localPath, stored); err != nil {
		return "", 0, fmt.Errorf("%w: %v", errno.ErrStorageFailure, err)
	}
	info, err := os.Stat(stored)
	if err != nil {
		return "", 0, err
	}
	return stored, info.Size(), nil
}

func (s *tempStorage) Open(ctx context.Context, storedPath string) (io.ReadCloser, int64, error) {
	f, err := os.Open(storedPath)
	if err != nil {
		return nil, 0, err
	}
	info, _ := f.Stat()
	return f, info.Size(), nil
}

type testEnv struct {
	engine *gin.Engine
	repo   *persistence.MemoryJobRepository
	svc    service.ConvertService
	queue  queue.JobQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := persistence.NewMemoryJobRepository()
	fetcher := &stubFetcher{
		info:    &vo.MediaInfo{Title: "Test Clip", DurationSeconds: 213},
		payload: []byte("encoded-audio-bytes"),
	}
	svc := service.NewConvertService(repo, fetcher, stubEncoder{}, &tempStorage{dir: t.TempDir()}, nil, nil, service.ConvertOptions{
		TempDir: t.TempDir(),
	})
	jobQueue := queue.NewMemoryJobQueue(4)
	t.Cleanup(func() { jobQueue.Close() })

	convertApp := app.NewConvertApp(svc, repo, jobQueue, nil, []string{"youtube.com", "www.youtube.com", "youtu.be"})

	engine := gin.New()
	controller := NewConvertController(convertApp)
	v1 := engine.Group("/api/v1")
	v1.POST("/conversions", controller.SubmitConversion)
	v1.GET("/conversions/:job_id", controller.GetConversion)
	v1.GET("/conversions/:job_id/file", controller.DownloadOutput)
	v1.POST("/metadata/preview", controller.PreviewMetadata)

	return &testEnv{engine: engine, repo: repo, svc: svc, queue: jobQueue}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp restapi.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	data, _ := resp.Data.(map[string]interface{})
	return data
}

func TestSubmitConversionAccepted(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversions", `{"url":"https://youtu.be/abc123","quality":"192"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	data := decodeData(t, w)
	if data["status"] != "pending" {
		t.Errorf("status field = %v, want pending", data["status"])
	}
	if data["job_id"] == "" || data["job_id"] == nil {
		t.Error("response must carry a job id")
	}
	if env.queue.Size() != 1 {
		t.Errorf("queue size = %d, want 1", env.queue.Size())
	}
}

func TestSubmitConversionQueueSaturation(t *testing.T) {
	env := newTestEnv(t)

	body := `{"url":"https://youtu.be/full","quality":"128"}`
	for i := 0; i < 4; i++ {
		if w := env.do(t, http.MethodPost, "/api/v1/conversions", body); w.Code != http.StatusOK {
			t.Fatalf("submit %d status = %d", i, w.Code)
		}
	}

	w := env.do(t, http.MethodPost, "/api/v1/conversions", body)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("saturated submit status = %d, want 503, body=%s", w.Code, w.Body.String())
	}
	var resp restapi.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != errno.ErrQueueFull.Code {
		t.Errorf("code = %d, want %d", resp.Code, errno.ErrQueueFull.Code)
	}

	// 被拒绝的任务立即落入failed,不留pending孤儿
	failed, err := env.repo.ListJobsByStatus(context.Background(), vo.JobStatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed jobs = %d, want 1", len(failed))
	}
}

func TestSubmitConversionValidationCreatesNoRecord(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{"quality":"192"}`},
		{"invalid quality", `{"url":"https://youtu.be/abc","quality":"999"}`},
		{"malformed url", `{"url":"not a url","quality":"192"}`},
		{"host not allowed", `{"url":"https://evil.example.com/watch?v=1","quality":"192"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/v1/conversions", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d body=%s, want 400", w.Code, w.Body.String())
			}
			pending, _ := env.repo.ListJobsByStatus(context.Background(), vo.JobStatusPending)
			if len(pending) != 0 {
				t.Errorf("rejected submission must not create a record, found %d", len(pending))
			}
			if env.queue.Size() != 0 {
				t.Errorf("rejected submission must not enqueue, queue size = %d", env.queue.Size())
			}
		})
	}
}

func TestGetConversionUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/conversions/2c6cbb97-0000-0000-0000-000000000000", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDownloadBeforeCompletionRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/conversions", `{"url":"https://youtu.be/abc","quality":"128"}`)
	data := decodeData(t, w)
	jobID, _ := data["job_id"].(string)
	if jobID == "" {
		t.Fatal("submission did not return a job id")
	}

	dl := env.do(t, http.MethodGet, "/api/v1/conversions/"+jobID+"/file", "")
	if dl.Code != http.StatusNotFound {
		t.Errorf("download before completion status = %d, want 404", dl.Code)
	}
}

func TestDownloadCompletedJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/api/v1/conversions", `{"url":"https://youtu.be/abc","quality":"192"}`)
	data := decodeData(t, w)
	jobID, _ := data["job_id"].(string)

	// 代替后台工作器直接驱动流水线
	job, err := env.svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	env.svc.Process(ctx, job)
	if job.Status() != vo.JobStatusCompleted {
		t.Fatalf("pipeline did not complete: %s %s", job.Status(), job.ErrorMessage())
	}

	dl := env.do(t, http.MethodGet, "/api/v1/conversions/"+jobID+"/file", "")
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d body=%s", dl.Code, dl.Body.String())
	}
	if ct := dl.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %q, want audio/mpeg", ct)
	}
	if cd := dl.Header().Get("Content-Disposition"); !strings.Contains(cd, `attachment; filename="Test_Clip.mp3"`) {
		t.Errorf("content disposition = %q", cd)
	}
	if dl.Body.String() != "encoded-audio-bytes" {
		t.Errorf("body = %q, want the stored payload", dl.Body.String())
	}

	// 轮询已完成任务保持稳定
	status := env.do(t, http.MethodGet, "/api/v1/conversions/"+jobID, "")
	statusData := decodeData(t, status)
	if statusData["status"] != "completed" {
		t.Errorf("status after completion = %v", statusData["status"])
	}
	// 完整投影:完成后产物路径和大小都要返回
	if p, _ := statusData["output_path"].(string); p == "" {
		t.Error("completed job must report output_path")
	}
	if statusData["output_size_bytes"] == nil {
		t.Error("completed job must report output_size_bytes")
	}
}

func TestPreviewMetadata(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/metadata/preview", `{"url":"https://youtu.be/abc"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["title"] != "Test Clip" {
		t.Errorf("title = %v, want Test Clip", data["title"])
	}

	// 预览不创建任务
	pending, _ := env.repo.ListJobsByStatus(context.Background(), vo.JobStatusPending)
	if len(pending) != 0 {
		t.Errorf("preview must not create jobs, found %d", len(pending))
	}
}
