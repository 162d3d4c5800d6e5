package gateway

import "context"

// JobEvent 任务生命周期事件
type JobEvent struct {
	JobUUID   string `json:"job_uuid"`
	SourceURL string `json:"source_url"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// EventPublisher 任务事件发布网关，发布失败不影响任务状态机
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event JobEvent) error
}
