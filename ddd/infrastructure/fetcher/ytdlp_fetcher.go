package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sort"
	"strings"
	"time"

	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/logger"
)

// YtDlpFetcher 通过本地yt-dlp二进制解析元数据和直链，再走HTTP拉取音频流。
// 平台私有协议完全封装在这里，上层只看到MediaFetcher契约。
type YtDlpFetcher struct {
	binaryPath string
	httpClient *http.Client
}

// NewYtDlpFetcher 创建yt-dlp抓取器
func NewYtDlpFetcher(binaryPath string) *YtDlpFetcher {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = "yt-dlp"
	}
	return &YtDlpFetcher{
		binaryPath: binaryPath,
		httpClient: &http.Client{
			// 音频文件可能较大，整体超时交给调用方的上下文控制
			Timeout: 0,
		},
	}
}

// dumpResult yt-dlp --dump-single-json 输出中需要的字段
type dumpResult struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
	ViewCount int64   `json:"view_count"`
	URL       string  `json:"url"`
	Formats   []struct {
		URL    string  `json:"url"`
		ACodec string  `json:"acodec"`
		VCodec string  `json:"vcodec"`
		ABR    float64 `json:"abr"`
	} `json:"formats"`
}

// ResolveMetadata 解析元数据
func (f *YtDlpFetcher) ResolveMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error) {
	dump, err := f.dump(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return &vo.MediaInfo{
		Title:           dump.Title,
		DurationSeconds: int(dump.Duration),
		ThumbnailURL:    dump.Thumbnail,
		ViewCount:       dump.ViewCount,
	}, nil
}

// OpenAudioStream 选择纯音频编码中码率不超过档位的最高者（没有则取最低档），
// 打开直链HTTP流
func (f *YtDlpFetcher) OpenAudioStream(ctx context.Context, sourceURL string, quality vo.QualityTier) (io.ReadCloser, error) {
	dump, err := f.dump(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	streamURL := pickAudioURL(dump, quality)
	if streamURL == "" {
		return nil, fmt.Errorf("%w: %s", errno.ErrNoSuitableFormat, sourceURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build stream request: %v", errno.ErrUpstreamUnavailable, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: open audio stream: %v", errno.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: audio stream status %d", errno.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return resp.Body, nil
}

// dump 执行yt-dlp --dump-single-json 并解析输出
func (f *YtDlpFetcher) dump(ctx context.Context, sourceURL string) (*dumpResult, error) {
	cmd := exec.CommandContext(ctx, f.binaryPath,
		"-f", "bestaudio",
		"--dump-single-json",
		"--no-warnings",
		"--no-playlist",
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: metadata fetch timed out after %s", errno.ErrUpstreamUnavailable, time.Since(start).Round(time.Second))
		}
		msg := strings.TrimSpace(stderr.String())
		if isUnresolvable(msg) {
			return nil, fmt.Errorf("%w: %s", errno.ErrInvalidSource, firstLine(msg))
		}
		return nil, fmt.Errorf("%w: yt-dlp: %s", errno.ErrUpstreamUnavailable, firstLine(msg))
	}

	var dump dumpResult
	if err := json.Unmarshal(stdout.Bytes(), &dump); err != nil {
		logger.Warnf("yt-dlp output parse failed url=%s error=%v", sourceURL, err)
		return nil, fmt.Errorf("%w: parse yt-dlp output: %v", errno.ErrUpstreamUnavailable, err)
	}
	return &dump, nil
}

// pickAudioURL 在纯音频编码里按档位就近选择
func pickAudioURL(dump *dumpResult, quality vo.QualityTier) string {
	type candidate struct {
		url string
		abr float64
	}
	var audioOnly []candidate
	for _, fm := range dump.Formats {
		if fm.URL == "" || fm.ACodec == "" || fm.ACodec == "none" {
			continue
		}
		if fm.VCodec != "" && fm.VCodec != "none" {
			continue
		}
		audioOnly = append(audioOnly, candidate{url: fm.URL, abr: fm.ABR})
	}
	if len(audioOnly) == 0 {
		// -f bestaudio 命中时顶层url就是音频直链
		return dump.URL
	}

	sort.Slice(audioOnly, func(i, k int) bool { return audioOnly[i].abr > audioOnly[k].abr })

	var target float64
	switch quality {
	case vo.QualityLow:
		target = 128
	case vo.QualityMedium:
		target = 192
	default:
		target = 320
	}
	// 从高到低找第一个不超过目标的；全部超过时取最接近的（即最低档）
	for _, c := range audioOnly {
		if c.abr <= target || c.abr == 0 {
			return c.url
		}
	}
	return audioOnly[len(audioOnly)-1].url
}

// isUnresolvable 判断yt-dlp报错是否属于来源本身不可解析
func isUnresolvable(stderr string) bool {
	lowered := strings.ToLower(stderr)
	for _, marker := range []string{
		"is not a valid url",
		"unsupported url",
		"video unavailable",
		"private video",
		"this video is not available",
		"unable to extract video id",
	} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "no error output"
	}
	return s
}

var _ gateway.MediaFetcher = (*YtDlpFetcher)(nil)
