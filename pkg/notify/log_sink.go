package notify

import (
	"go.uber.org/zap"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notify")}
}

func (s *LogSink) Add(title, message string, level Level) {
	fields := []zap.Field{zap.String("title", title), zap.String("message", message)}
	switch level {
	case LevelDebug:
		s.logger.Debug("Notification", fields...)
	case LevelWarning:
		s.logger.Warn("Notification", fields...)
	case LevelError:
		s.logger.Error("Notification", fields...)
	default:
		s.logger.Info("Notification", fields...)
	}
}
