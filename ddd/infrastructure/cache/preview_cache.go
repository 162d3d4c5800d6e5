package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/logger"
	"audio-convert-service/pkg/redisclient"
)

// PreviewCache 媒体元数据预览缓存,避免重复调用上游解析
type PreviewCache interface {
	Get(ctx context.Context, sourceURL string) (*vo.MediaInfo, bool)
	Set(ctx context.Context, sourceURL string, info *vo.MediaInfo)
}

// RedisPreviewCache Redis实现,按URL哈希做键
type RedisPreviewCache struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisPreviewCache 创建Redis预览缓存
func NewRedisPreviewCache(client *redisclient.Client, ttl time.Duration) *RedisPreviewCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisPreviewCache{client: client, ttl: ttl}
}

var _ PreviewCache = (*RedisPreviewCache)(nil)

func previewKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return "audio-convert:preview:" + hex.EncodeToString(sum[:16])
}

// Get 查询缓存,未命中或反序列化失败返回false
func (c *RedisPreviewCache) Get(ctx context.Context, sourceURL string) (*vo.MediaInfo, bool) {
	raw, err := c.client.Raw().Get(ctx, previewKey(sourceURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("preview cache read failed: %v", err)
		}
		return nil, false
	}
	var info vo.MediaInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, false
	}
	return &info, true
}

// Set 写入缓存,失败只记日志
func (c *RedisPreviewCache) Set(ctx context.Context, sourceURL string, info *vo.MediaInfo) {
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.client.Raw().Set(ctx, previewKey(sourceURL), raw, c.ttl).Err(); err != nil {
		logger.Warnf("preview cache write failed: %v", err)
	}
}

// NoopPreviewCache Redis未启用时的空实现
type NoopPreviewCache struct{}

func NewNoopPreviewCache() *NoopPreviewCache { return &NoopPreviewCache{} }

var _ PreviewCache = (*NoopPreviewCache)(nil)

func (c *NoopPreviewCache) Get(ctx context.Context, sourceURL string) (*vo.MediaInfo, bool) {
	return nil, false
}

func (c *NoopPreviewCache) Set(ctx context.Context, sourceURL string, info *vo.MediaInfo) {}
