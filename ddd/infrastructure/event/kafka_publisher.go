package event

import (
	"context"
	"encoding/json"
	"fmt"

	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/pkg/kafka"
	"audio-convert-service/pkg/logger"
)

// KafkaEventPublisher 通过Kafka发布任务生命周期事件
type KafkaEventPublisher struct {
	client *kafka.Client
	topic  string
}

// NewKafkaEventPublisher 创建Kafka事件发布器
func NewKafkaEventPublisher(client *kafka.Client, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{client: client, topic: topic}
}

var _ gateway.EventPublisher = (*KafkaEventPublisher)(nil)

// PublishJobEvent 发布任务事件,按job_uuid分区保证同任务事件有序
func (p *KafkaEventPublisher) PublishJobEvent(ctx context.Context, evt gateway.JobEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	if err := p.client.Produce(ctx, p.topic, []byte(evt.JobUUID), payload); err != nil {
		logger.Warn("failed to publish job event", map[string]interface{}{
			"job_uuid": evt.JobUUID,
			"status":   evt.Status,
			"error":    err.Error(),
		})
		return err
	}
	return nil
}

// NoopEventPublisher Kafka未启用时的空实现
type NoopEventPublisher struct{}

func NewNoopEventPublisher() *NoopEventPublisher { return &NoopEventPublisher{} }

var _ gateway.EventPublisher = (*NoopEventPublisher)(nil)

func (p *NoopEventPublisher) PublishJobEvent(ctx context.Context, evt gateway.JobEvent) error {
	return nil
}
