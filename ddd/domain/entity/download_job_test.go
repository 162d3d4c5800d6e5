package entity

import (
	"strings"
	"testing"

	"audio-convert-service/ddd/domain/vo"
)

func TestNewDownloadJobEntity(t *testing.T) {
	job := NewDownloadJobEntity("https://www.youtube.com/watch?v=abc123", vo.QualityMedium)

	if job.Status() != vo.JobStatusPending {
		t.Errorf("new job status = %q, want pending", job.Status())
	}
	if job.JobUUID() == "" {
		t.Error("new job must have a uuid")
	}
	if job.DownloadedBytes() != 0 {
		t.Errorf("new job downloaded bytes = %d, want 0", job.DownloadedBytes())
	}
	if job.CompletedAt() != nil {
		t.Error("new job must not have completion time")
	}
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := NewDownloadJobEntity("https://youtu.be/abc", vo.QualityLow)

	if err := job.MarkCompleted("out.mp3", 100); err == nil {
		t.Fatal("pending -> completed must be rejected")
	}

	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	if err := job.MarkProcessing(); err == nil {
		t.Fatal("processing -> processing must be rejected")
	}

	if err := job.MarkCompleted("downloads/out.mp3", 2048); err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}
	if job.OutputPath() != "downloads/out.mp3" || job.OutputSizeBytes() != 2048 {
		t.Errorf("completion did not record output, path=%q size=%d", job.OutputPath(), job.OutputSizeBytes())
	}
	if job.CompletedAt() == nil {
		t.Error("completed job must have completion time")
	}

	// 终态不可再变
	if err := job.MarkFailed("late failure"); err == nil {
		t.Fatal("completed -> failed must be rejected")
	}
	if job.ErrorMessage() != "" {
		t.Errorf("rejected transition must not record error, got %q", job.ErrorMessage())
	}
}

func TestMarkFailedRecordsMessage(t *testing.T) {
	job := NewDownloadJobEntity("https://youtu.be/abc", vo.QualityHigh)
	if err := job.MarkProcessing(); err != nil {
		t.Fatal(err)
	}
	if err := job.MarkFailed("Upstream media source is unreachable"); err != nil {
		t.Fatalf("processing -> failed failed: %v", err)
	}
	if job.Status() != vo.JobStatusFailed {
		t.Errorf("status = %q, want failed", job.Status())
	}
	if job.ErrorMessage() != "Upstream media source is unreachable" {
		t.Errorf("error message = %q", job.ErrorMessage())
	}
}

func TestDeriveOutputName(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		quality    vo.QualityTier
		wantPrefix string
	}{
		{"plain title", "Test Clip", vo.QualityMedium, "Test_Clip_192kbps_"},
		{"special characters collapsed", "a/b\\c: d???e", vo.QualityLow, "a_b_c_d_e_128kbps_"},
		{"empty title falls back", "", vo.QualityHigh, "audio_320kbps_"},
		{"unicode title falls back", "日本語タイトル", vo.QualityMedium, "audio_192kbps_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewDownloadJobEntity("https://youtu.be/x", tt.quality)
			job.SetMediaInfo(&vo.MediaInfo{Title: tt.title})

			got := job.DeriveOutputName()
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("DeriveOutputName() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if !strings.HasSuffix(got, ".mp3") {
				t.Errorf("DeriveOutputName() = %q, want .mp3 suffix", got)
			}
		})
	}
}

func TestDeriveOutputNameIsUniquePerJob(t *testing.T) {
	a := NewDownloadJobEntity("https://youtu.be/same", vo.QualityMedium)
	b := NewDownloadJobEntity("https://youtu.be/same", vo.QualityMedium)
	a.SetMediaInfo(&vo.MediaInfo{Title: "Same Title"})
	b.SetMediaInfo(&vo.MediaInfo{Title: "Same Title"})

	if a.DeriveOutputName() == b.DeriveOutputName() {
		t.Errorf("two jobs for the same source must not share an output name: %q", a.DeriveOutputName())
	}
}

func TestDownloadFileName(t *testing.T) {
	job := NewDownloadJobEntity("https://youtu.be/x", vo.QualityMedium)
	job.SetMediaInfo(&vo.MediaInfo{Title: "My Song (Live)"})

	if got := job.DownloadFileName(); got != "My_Song_Live.mp3" {
		t.Errorf("DownloadFileName() = %q, want My_Song_Live.mp3", got)
	}
}
