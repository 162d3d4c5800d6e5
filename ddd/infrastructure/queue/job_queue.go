package queue

import (
	"context"
	"fmt"
	"sync"

	"audio-convert-service/ddd/domain/entity"
	"audio-convert-service/pkg/errno"
)

// JobQueue 任务队列接口
type JobQueue interface {
	// Enqueue 入队任务，队列满时立即失败
	Enqueue(ctx context.Context, job *entity.DownloadJobEntity) error

	// Dequeue 出队任务（阻塞直到有任务或上下文取消）
	Dequeue(ctx context.Context) (*entity.DownloadJobEntity, error)

	// Size 获取队列大小
	Size() int

	// Close 关闭队列
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool
}

// MemoryJobQueue 基于内存channel的任务队列实现
type MemoryJobQueue struct {
	queue  chan *entity.DownloadJobEntity
	closed bool
	mu     sync.RWMutex
}

// NewMemoryJobQueue 创建内存任务队列
func NewMemoryJobQueue(capacity int) JobQueue {
	if capacity <= 0 {
		capacity = 100 // 默认容量
	}
	return &MemoryJobQueue{
		queue: make(chan *entity.DownloadJobEntity, capacity),
	}
}

// Enqueue 入队任务
func (q *MemoryJobQueue) Enqueue(ctx context.Context, job *entity.DownloadJobEntity) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	select {
	case q.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errno.ErrQueueFull
	}
}

// Dequeue 出队任务
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*entity.DownloadJobEntity, error) {
	select {
	case job, ok := <-q.queue:
		if !ok {
			return nil, fmt.Errorf("queue is closed")
		}
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size 获取队列大小
func (q *MemoryJobQueue) Size() int {
	return len(q.queue)
}

// Close 关闭队列
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryJobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
