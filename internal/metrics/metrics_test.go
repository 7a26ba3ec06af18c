package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewRootScope_Disabled(t *testing.T) {
	scope, closer := NewRootScope(false, time.Second, nil)
	assert.Equal(t, tally.NoopScope, scope)
	assert.NoError(t, closer.Close())
}

func TestNewRootScope_Reports(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()

	scope, closer := NewRootScope(true, 10*time.Millisecond, logger)
	scope.Tagged(map[string]string{"direction": "to_client"}).Counter("messages").Inc(3)
	scope.Timer("script_duration").Record(5 * time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("counter").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, closer.Close())

	counters := logs.FilterMessage("counter").All()
	require.NotEmpty(t, counters)
	fields := counters[0].ContextMap()
	assert.Equal(t, "scriptpoint.messages", fields["name"])
	assert.Equal(t, int64(3), fields["value"])
	assert.Equal(t, "metrics", counters[0].LoggerName)

	timers := logs.FilterMessage("timer").All()
	require.Len(t, timers, 1)
	assert.Equal(t, "scriptpoint.script_duration", timers[0].ContextMap()["name"])
}

func TestLogReporter_Capabilities(t *testing.T) {
	r := NewLogReporter(nil)
	caps := r.Capabilities()
	assert.True(t, caps.Reporting())
	assert.True(t, caps.Tagging())

	r.ReportGauge("g", nil, 1.5)
	r.ReportHistogramValueSamples("h", nil, nil, 0, 1, 2)
	r.ReportHistogramDurationSamples("h", nil, nil, 0, time.Second, 2)
	r.Flush()
}
