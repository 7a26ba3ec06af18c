// Package metrics wires the tally scope the proxy reports through.
package metrics

import (
	"io"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// Prefix is prepended to every metric name.
const Prefix = "scriptpoint"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewRootScope returns a scope that flushes to logger every interval, or
// tally.NoopScope when reporting is disabled. Closing the returned closer
// flushes once more and stops the reporting loop.
func NewRootScope(enabled bool, interval time.Duration, logger *zap.SugaredLogger) (tally.Scope, io.Closer) {
	if !enabled {
		return tally.NoopScope, nopCloser{}
	}
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   Prefix,
		Reporter: NewLogReporter(logger),
	}, interval)
}

// LogReporter is a tally.StatsReporter that writes each value as a
// structured log entry at info level.
type LogReporter struct {
	logger *zap.SugaredLogger
}

var _ tally.StatsReporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter writing to logger.
func NewLogReporter(logger *zap.SugaredLogger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogReporter{logger: logger.Named("metrics")}
}

// ReportCounter implements tally.StatsReporter.
func (r *LogReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Infow("counter", "name", name, "tags", tags, "value", value)
}

// ReportGauge implements tally.StatsReporter.
func (r *LogReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Infow("gauge", "name", name, "tags", tags, "value", value)
}

// ReportTimer implements tally.StatsReporter.
func (r *LogReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Infow("timer", "name", name, "tags", tags, "value", interval)
}

// ReportHistogramValueSamples implements tally.StatsReporter.
func (r *LogReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound float64,
	samples int64,
) {
	r.logger.Infow("histogram", "name", name, "tags", tags,
		"lower", bucketLowerBound, "upper", bucketUpperBound, "samples", samples)
}

// ReportHistogramDurationSamples implements tally.StatsReporter.
func (r *LogReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration,
	samples int64,
) {
	r.logger.Infow("histogram", "name", name, "tags", tags,
		"lower", bucketLowerBound, "upper", bucketUpperBound, "samples", samples)
}

// Capabilities implements tally.StatsReporter.
func (r *LogReporter) Capabilities() tally.Capabilities {
	return r
}

// Reporting implements tally.Capabilities.
func (r *LogReporter) Reporting() bool { return true }

// Tagging implements tally.Capabilities.
func (r *LogReporter) Tagging() bool { return true }

// Flush implements tally.StatsReporter.
func (r *LogReporter) Flush() {}
