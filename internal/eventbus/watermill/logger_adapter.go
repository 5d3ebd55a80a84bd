package watermill

import (
	"score/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
)

type loggerAdapter struct {
	log logger.Logger
}

// NewLoggerAdapter routes watermill's own logging through the service logger
func NewLoggerAdapter(log logger.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{log: log.With(logger.String("component", "watermill"))}
}

func toFields(fields watermill.LogFields) []logger.Field {
	out := make([]logger.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, logger.Any(k, v))
	}
	return out
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(toFields(fields), logger.Error(err))...)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, toFields(fields)...)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, toFields(fields)...)
}

// Trace is mapped to Debug; zap has no trace level
func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, toFields(fields)...)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{log: a.log.With(toFields(fields)...)}
}
