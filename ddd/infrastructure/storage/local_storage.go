package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/pkg/errno"
)

// LocalStorage 本地文件系统存储，产物统一放在outputDir下
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage 创建本地存储，确保输出目录存在
func NewLocalStorage(outputDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &LocalStorage{outputDir: outputDir}, nil
}

// Store 将临时文件移动到输出目录
func (s *LocalStorage) Store(ctx context.Context, localPath, objectName string) (string, int64, error) {
	target := filepath.Join(s.outputDir, objectName)

	if err := os.Rename(localPath, target); err != nil {
		// 跨文件系统时rename失败，退回拷贝
		if copyErr := copyFile(localPath, target); copyErr != nil {
			return "", 0, fmt.Errorf("%w: move output: %v", errno.ErrStorageFailure, copyErr)
		}
		_ = os.Remove(localPath)
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", 0, fmt.Errorf("%w: stat output: %v", errno.ErrStorageFailure, err)
	}
	return target, info.Size(), nil
}

// Open 打开产物文件
func (s *LocalStorage) Open(ctx context.Context, storedPath string) (io.ReadCloser, int64, error) {
	file, err := os.Open(storedPath)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	return file, info.Size(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

var _ gateway.AudioStorage = (*LocalStorage)(nil)
