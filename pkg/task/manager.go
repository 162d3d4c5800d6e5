package task

import (
	"context"
	"sync"

	"audio-convert-service/pkg/logger"
)

// BackgroundTask represents a long-running background process (worker, consumer, cron).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Manager 管理一组后台任务的启停
type Manager struct {
	tasks  []BackgroundTask
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建任务管理器
func NewManager() *Manager {
	return &Manager{tasks: make([]BackgroundTask, 0)}
}

// Register 注册后台任务,必须在StartAll之前调用
func (m *Manager) Register(t BackgroundTask) {
	if t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
}

// StartAll 按注册顺序启动全部任务,只启动一次
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	for _, t := range m.tasks {
		if err := t.Start(m.ctx); err != nil {
			return err
		}
		logger.Infof("background task started name=%s", t.Name())
	}
	return nil
}

// StopAll 按注册顺序的逆序停止全部任务
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	for i := len(m.tasks) - 1; i >= 0; i-- {
		if t := m.tasks[i]; t != nil {
			if err := t.Stop(); err != nil {
				logger.Warnf("background task stop failed name=%s error=%v", t.Name(), err)
			}
		}
	}
	m.cancel = nil
}
