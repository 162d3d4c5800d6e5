package gateway

import (
	"context"
	"io"

	"audio-convert-service/ddd/domain/vo"
)

// MediaFetcher 外部媒体抓取能力。两个操作都是网络IO，耗时不可控，
// 调用方必须带超时上下文。错误用errno的流水线错误码包装：
// ResolveMetadata -> ErrInvalidSource / ErrUpstreamUnavailable
// OpenAudioStream -> ErrNoSuitableFormat / ErrUpstreamUnavailable
type MediaFetcher interface {
	// ResolveMetadata 解析来源地址的元数据
	ResolveMetadata(ctx context.Context, sourceURL string) (*vo.MediaInfo, error)

	// OpenAudioStream 打开纯音频字节流，档位是建议值，实现可就近替换；
	// 仅当完全没有纯音频编码时才失败
	OpenAudioStream(ctx context.Context, sourceURL string, quality vo.QualityTier) (io.ReadCloser, error)
}
