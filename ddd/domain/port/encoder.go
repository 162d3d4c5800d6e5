package port

import (
	"context"
	"io"
)

// AudioEncoder 将输入音频流编码为MP3写入本地文件。实现按增量方式
// 消费输入，不允许把整个文件缓冲在内存里。
type AudioEncoder interface {
	EncodeToMP3(ctx context.Context, input io.Reader, outputPath string, bitrate string) error
}
