package localstore

import (
	"errors"

	"go.uber.org/zap"
)

const loggerName = "localstore"

// named returns the logger every Storage writes through.
// A nil logger falls back to a no-op one.
func named(logger *zap.Logger, tag string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named(loggerName)
	if tag != "" {
		logger = logger.With(zap.String("tag", tag))
	}
	return logger
}

// logFailure writes one error entry for a failed operation.
// Absent keys are not failures and never reach here.
func (s *Storage) logFailure(op, key string, err error) {
	opErr := &OpError{Op: op, Key: key, Err: err}
	fields := []zap.Field{
		zap.String("op", op),
		zap.Error(opErr),
	}
	if key != "" {
		fields = append(fields, zap.String("key", key))
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrQuotaExceeded) {
		fields = append(fields, zap.String("kind", "store"))
	} else if isEncodingError(err) {
		fields = append(fields, zap.String("kind", "serialization"))
	}
	s.logger.Error(op+" failed", fields...)
}
