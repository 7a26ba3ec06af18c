package debug

import (
	"github.com/uber-go/tally"
)

// Metric names reported under the tracker's scope.
const (
	metricStops          = "stops"
	metricHits           = "scriptpoint_hits"
	metricFailures       = "script_failures"
	metricAutoContinues  = "auto_continues"
	metricRewrites       = "rewrites"
	metricScriptDuration = "script_duration"
)

type trackerMetrics struct {
	stops          tally.Counter
	hits           tally.Counter
	failures       tally.Counter
	autoContinues  tally.Counter
	rewrites       tally.Counter
	scriptDuration tally.Timer
}

func newTrackerMetrics(scope tally.Scope) *trackerMetrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &trackerMetrics{
		stops:          scope.Counter(metricStops),
		hits:           scope.Counter(metricHits),
		failures:       scope.Counter(metricFailures),
		autoContinues:  scope.Counter(metricAutoContinues),
		rewrites:       scope.Counter(metricRewrites),
		scriptDuration: scope.Timer(metricScriptDuration),
	}
}
