package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const taskKey ctxKey = iota

type taskInfo struct {
	slotID    string
	operation string
}

// WithTask returns a context carrying the task identity so log records
// emitted downstream pick it up automatically.
func WithTask(ctx context.Context, slotID, operation string) context.Context {
	return context.WithValue(ctx, taskKey, taskInfo{slotID: slotID, operation: operation})
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	info, ok := ctx.Value(taskKey).(taskInfo)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if info.slotID != "" {
		fields = append(fields, slog.String(FieldSlotID, info.slotID))
	}
	if info.operation != "" {
		fields = append(fields, slog.String(FieldOperation, info.operation))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived
// from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
