package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"audio-convert-service/pkg/config"
)

// Logger 封装logrus，支持文件/标准输出两种落地方式
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

// NewLogger 根据配置构建日志器
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger := &Logger{entry: l}

	switch cfg.Log.Output {
	case "file":
		if cfg.Log.Filename != "" {
			if f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				l.SetOutput(io.MultiWriter(os.Stdout, f))
				logger.file = f
			}
		}
	default:
		l.SetOutput(os.Stdout)
	}

	return logger
}

// Close 关闭日志落地文件
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

var (
	globalMu sync.RWMutex
	global   = &Logger{entry: logrus.StandardLogger()}
)

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

func current() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global.entry
}

func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { current().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { current().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Fatal 输出后以非零码退出
func Fatal(msg string) { current().Fatal(msg) }

// Debug 带结构化字段的调试日志
func Debug(msg string, fields map[string]interface{}) {
	current().WithFields(logrus.Fields(fields)).Debug(msg)
}

// Info 带结构化字段的信息日志
func Info(msg string, fields map[string]interface{}) {
	current().WithFields(logrus.Fields(fields)).Info(msg)
}

// Warn 带结构化字段的警告日志
func Warn(msg string, fields map[string]interface{}) {
	current().WithFields(logrus.Fields(fields)).Warn(msg)
}

// Error 带结构化字段的错误日志
func Error(msg string, fields map[string]interface{}) {
	current().WithFields(logrus.Fields(fields)).Error(msg)
}
