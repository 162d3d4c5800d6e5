package gateway

import (
	"context"
	"io"
)

// AudioStorage 产物存储网关
type AudioStorage interface {
	// Store 将本地临时文件落入持久存储，返回记录在任务上的存储路径和字节数。
	// 成功后临时文件由实现负责清理。
	Store(ctx context.Context, localPath, objectName string) (storedPath string, sizeBytes int64, err error)

	// Open 按存储路径打开产物用于下发，返回流和长度
	Open(ctx context.Context, storedPath string) (io.ReadCloser, int64, error)
}
