package monitor

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"go.uber.org/zap"
)

// BarReporter draws a terminal progress bar showing elapsed time, the bar,
// and position/total.
type BarReporter struct {
	out     io.Writer
	writer  progress.Writer
	tracker *progress.Tracker
}

// NewBarReporter renders to out.
func NewBarReporter(out io.Writer) *BarReporter {
	return &BarReporter{out: out}
}

// Start begins rendering.
func (b *BarReporter) Start(total int) {
	pw := progress.NewWriter()
	pw.SetOutputWriter(b.out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(80)
	pw.SetUpdateFrequency(250 * time.Millisecond)
	pw.SetStyle(progress.StyleBlocks)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Percentage = false
	pw.Style().Visibility.Time = true
	pw.Style().Visibility.Value = true

	b.tracker = &progress.Tracker{
		Message: "scanning",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(b.tracker)
	b.writer = pw
	go pw.Render()
	// Stop is ignored until rendering has begun.
	for range 100 {
		if pw.IsRenderInProgress() {
			break
		}
		time.Sleep(time.Millisecond)
	}
}

// Update moves the bar to position.
func (b *BarReporter) Update(position int) {
	if b.tracker == nil {
		return
	}
	b.tracker.SetValue(int64(position))
}

// Finish marks the bar complete and waits for the final frame.
func (b *BarReporter) Finish() {
	if b.writer == nil {
		return
	}
	b.tracker.MarkAsDone()
	b.writer.Stop()
	for b.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

// LogReporter writes progress as structured log lines, for runs without a
// terminal. Updates that do not move the position are skipped.
type LogReporter struct {
	logger *zap.Logger
	total  int
	last   int
	start  time.Time
}

// NewLogReporter logs through logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger, last: -1}
}

// Start records the total.
func (l *LogReporter) Start(total int) {
	l.total = total
	l.start = time.Now()
	l.logger.Info("scan progress started", zap.Int("total", total))
}

// Update logs position when it changes.
func (l *LogReporter) Update(position int) {
	if position == l.last {
		return
	}
	l.last = position
	l.logger.Info("scan progress",
		zap.Int("position", position),
		zap.Int("total", l.total),
		zap.Duration("elapsed", time.Since(l.start)))
}

// Finish logs the final position.
func (l *LogReporter) Finish() {
	l.logger.Info("scan progress finished",
		zap.Int("position", l.last),
		zap.Int("total", l.total),
		zap.Duration("elapsed", time.Since(l.start)))
}
