package middleware

import (
	"log/slog"
	"time"

	"github.com/aretw0/keel/pkg/core"
)

// Logger logs every action at debug level, and failures at error level.
func Logger(logger *slog.Logger) core.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(api core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(action core.Action) error {
				start := time.Now()
				err := next(action)

				attrs := []any{"action", action.Type, "duration", time.Since(start)}
				if id, ok := action.Meta[MetaID].(string); ok {
					attrs = append(attrs, "id", id)
				}
				if err != nil {
					logger.Error("dispatch failed", append(attrs, "error", err)...)
					return err
				}
				logger.Debug("dispatch", attrs...)
				return nil
			}
		}
	}
}
