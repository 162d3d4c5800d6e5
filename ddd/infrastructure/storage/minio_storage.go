package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"

	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/logger"
)

// MinioStorage MinIO对象存储实现，storedPath即bucket内的对象键
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage 创建MinIO存储，bucket不存在时自动创建
func NewMinioStorage(ctx context.Context, client *minio.Client, bucketName string) (*MinioStorage, error) {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucketName, err)
		}
		logger.Infof("MinIO bucket created bucket=%s", bucketName)
	}
	return &MinioStorage{client: client, bucketName: bucketName}, nil
}

// Store 上传临时文件并清理本地副本
func (s *MinioStorage) Store(ctx context.Context, localPath, objectName string) (string, int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("%w: open local file: %v", errno.ErrStorageFailure, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("%w: stat local file: %v", errno.ErrStorageFailure, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, objectName, file, info.Size(), minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: upload to minio: %v", errno.ErrStorageFailure, err)
	}

	logger.Info("Audio uploaded to MinIO", map[string]interface{}{
		"object_key": objectName,
		"size":       info.Size(),
	})

	_ = os.Remove(localPath)
	return objectName, info.Size(), nil
}

// Open 下载对象用于下发
func (s *MinioStorage) Open(ctx context.Context, storedPath string) (io.ReadCloser, int64, error) {
	stat, err := s.client.StatObject(ctx, s.bucketName, storedPath, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, storedPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return obj, stat.Size, nil
}

var _ gateway.AudioStorage = (*MinioStorage)(nil)
