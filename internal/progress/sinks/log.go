package sinks

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/progress"
)

// LogSink writes every event at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return nil
	}
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", uuid.UUID(evt.RunID).String()),
			zap.String("stage", string(evt.Stage)),
		}
		switch evt.Stage {
		case progress.StageScanDone:
			fields = append(fields,
				zap.String("domain", evt.Domain),
				zap.Int("worker", evt.Worker),
				zap.Bool("success", evt.Success),
				zap.String("status_class", string(evt.StatusClass)),
				zap.Int64("body_bytes", evt.Bytes),
				zap.Duration("dur", evt.Dur),
				zap.String("store", string(evt.Store)),
			)
		case progress.StageRunStart:
			fields = append(fields, zap.Int64("total", evt.Total))
		case progress.StageRunDone:
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close is a no-op.
func (s *LogSink) Close(context.Context) error {
	return nil
}
