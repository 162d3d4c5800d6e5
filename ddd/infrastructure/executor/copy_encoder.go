package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"audio-convert-service/ddd/domain/port"
	"audio-convert-service/pkg/errno"
)

// CopyEncoder 不做转码，把上游音频流原样落盘。用于transcode.enabled=false
// 的部署（上游已经是可播放的音频编码时足够）。
type CopyEncoder struct{}

// NewCopyEncoder 创建直拷编码器
func NewCopyEncoder() *CopyEncoder {
	return &CopyEncoder{}
}

// EncodeToMP3 增量写入输出文件
func (e *CopyEncoder) EncodeToMP3(ctx context.Context, input io.Reader, outputPath string, bitrate string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", errno.ErrStorageFailure, err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: create output file: %v", errno.ErrStorageFailure, err)
	}
	defer file.Close()

	buf := make([]byte, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := input.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: write output: %v", errno.ErrStorageFailure, werr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w: read stream: %v", errno.ErrUpstreamUnavailable, rerr)
		}
	}
}

var _ port.AudioEncoder = (*CopyEncoder)(nil)
