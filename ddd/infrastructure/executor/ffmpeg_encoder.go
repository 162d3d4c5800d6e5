package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"audio-convert-service/ddd/domain/port"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/logger"
)

// FFmpegEncoder 通过本地ffmpeg把输入流编码成MP3。输入走stdin管道，
// 整个过程不在内存里缓冲完整文件。
type FFmpegEncoder struct {
	binaryPath string
}

// NewFFmpegEncoder 创建ffmpeg编码器
func NewFFmpegEncoder(binaryPath string) *FFmpegEncoder {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = "ffmpeg"
	}
	return &FFmpegEncoder{binaryPath: binaryPath}
}

// CheckBinary 启动阶段校验ffmpeg可执行
func (e *FFmpegEncoder) CheckBinary() error {
	_, err := exec.LookPath(e.binaryPath)
	return err
}

// EncodeToMP3 执行编码
func (e *FFmpegEncoder) EncodeToMP3(ctx context.Context, input io.Reader, outputPath string, bitrate string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", errno.ErrStorageFailure, err)
	}

	cmd := exec.CommandContext(ctx, e.binaryPath,
		"-y",
		"-i", "pipe:0",
		"-vn",
		"-ab", bitrate,
		"-ar", "44100",
		"-f", "mp3",
		outputPath,
	)
	cmd.Stdin = input

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg stderr pipe: %v", errno.ErrStorageFailure, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", errno.ErrStorageFailure, err)
	}

	// 保留stderr尾部用于失败排查
	tail := make([]string, 0, 50)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
		for scanner.Scan() {
			tail = append(tail, scanner.Text())
			if len(tail) > 50 {
				tail = tail[1:]
			}
		}
	}()

	err = cmd.Wait()
	<-scanDone
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(tail) > 0 {
			logger.Errorf("ffmpeg failed output=%s tail_stderr=%s", outputPath, strings.Join(tail, "\n"))
		}
		return fmt.Errorf("%w: ffmpeg: %v", errno.ErrStorageFailure, err)
	}
	return nil
}

var _ port.AudioEncoder = (*FFmpegEncoder)(nil)
