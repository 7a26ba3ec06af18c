package debug

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/scriptpoint/internal/command"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentRequest struct {
	command   string
	arguments any
}

type sentEvent struct {
	event string
	body  any
}

type handlerFunc func(arguments any) (any, error)

type fakeAdapter struct {
	mu       sync.Mutex
	requests []sentRequest
	events   []sentEvent
	handlers map[string]handlerFunc
	raw      map[string]string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{handlers: map[string]handlerFunc{}, raw: map[string]string{}}
}

func (a *fakeAdapter) Request(_ context.Context, cmd string, arguments any) (*wire.Envelope, error) {
	a.mu.Lock()
	a.requests = append(a.requests, sentRequest{cmd, arguments})
	h := a.handlers[cmd]
	raw, hasRaw := a.raw[cmd]
	a.mu.Unlock()

	if hasRaw {
		return wire.Parse([]byte(raw))
	}
	if h == nil {
		return nil, &wire.RequestError{Command: cmd, Message: "unsupported"}
	}
	body, err := h(arguments)
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(map[string]any{
		"seq": 1, "type": "response", "request_seq": 1, "command": cmd, "success": true, "body": body,
	})
	if err != nil {
		return nil, err
	}
	return wire.Parse(content)
}

func (a *fakeAdapter) Emit(event string, body any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, sentEvent{event, body})
	return nil
}

func (a *fakeAdapter) commands() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var names []string
	for _, r := range a.requests {
		names = append(names, r.command)
	}
	return names
}

func (a *fakeAdapter) emitted() []sentEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sentEvent(nil), a.events...)
}

type fakeOutput struct {
	mu     sync.Mutex
	lines  []string
	errors []string
}

func (o *fakeOutput) AppendLine(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, text)
}

func (o *fakeOutput) AppendError(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, text)
}

func (o *fakeOutput) snapshot() ([]string, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...), append([]string(nil), o.errors...)
}

type fakeDispatcher struct {
	calls []command.Call
	err   error
}

func (d *fakeDispatcher) Dispatch(call command.Call) error {
	d.calls = append(d.calls, call)
	return d.err
}

type fixture struct {
	tracker  *Tracker
	adapter  *fakeAdapter
	output   *fakeOutput
	commands *fakeDispatcher
	scope    tally.TestScope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		adapter:  newFakeAdapter(),
		output:   &fakeOutput{},
		commands: &fakeDispatcher{},
		scope:    tally.NewTestScope("", nil),
	}
	f.tracker = NewTracker(Config{
		Adapter:  f.adapter,
		Output:   f.output,
		Commands: f.commands,
		Logger:   zaptest.NewLogger(t).Sugar(),
		Scope:    f.scope,
	})
	t.Cleanup(f.tracker.Close)

	f.adapter.handlers[wire.CommandContinue] = func(any) (any, error) {
		return dap.ContinueResponseBody{AllThreadsContinued: true}, nil
	}
	return f
}

func (f *fixture) counter(name string) int64 {
	for _, c := range f.scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

// frameAt makes stackTrace report a single frame.
func (f *fixture) frameAt(path string, line int) {
	f.adapter.handlers[wire.CommandStackTrace] = func(any) (any, error) {
		return dap.StackTraceResponseBody{
			StackFrames: []dap.StackFrame{{Id: 1000, Name: "main", Line: line, Source: &dap.Source{Path: path}}},
			TotalFrames: 1,
		}, nil
	}
}

func parse(t *testing.T, content []byte, err error) *wire.Envelope {
	t.Helper()
	require.NoError(t, err)
	env, err := wire.Parse(content)
	require.NoError(t, err)
	return env
}

func request(t *testing.T, seq int, cmd string, args any) *wire.Envelope {
	t.Helper()
	content, err := wire.NewRequest(seq, cmd, args)
	return parse(t, content, err)
}

func event(t *testing.T, name string, body any) *wire.Envelope {
	t.Helper()
	content, err := wire.NewEvent(1, name, body)
	return parse(t, content, err)
}

func response(t *testing.T, requestSeq int, cmd string, success bool, body any) *wire.Envelope {
	t.Helper()
	content, err := json.Marshal(map[string]any{
		"seq": 2, "type": "response", "request_seq": requestSeq, "command": cmd, "success": success, "body": body,
	})
	return parse(t, content, err)
}

// setScriptpoint registers a scriptpoint at path:line bound to breakpoint id 1.
func (f *fixture) setScriptpoint(t *testing.T, path string, line int, logMessage string) {
	t.Helper()
	args := dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: path},
		Breakpoints: []dap.SourceBreakpoint{{Line: line, LogMessage: logMessage}},
	}
	f.tracker.OnRequest(request(t, 5, wire.CommandSetBreakpoints, args))
	f.tracker.OnResponse(response(t, 5, wire.CommandSetBreakpoints, true, dap.SetBreakpointsResponseBody{
		Breakpoints: []dap.Breakpoint{{Id: 1, Verified: true, Line: line}},
	}))
}

// stop delivers a stopped event and handles it on the calling goroutine.
func (f *fixture) stop(t *testing.T, body dap.StoppedEventBody) {
	t.Helper()
	f.tracker.OnEvent(event(t, wire.EventStopped, body))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, ok := f.tracker.queue.pop(ctx)
	require.True(t, ok)
	f.tracker.handleStop(ctx, job)
}

func TestRewriteStripsScriptpointLogMessages(t *testing.T) {
	f := newFixture(t)

	raw := `{"seq":5,"type":"request","command":"setBreakpoints","arguments":{` +
		`"source":{"path":"/src/a.cpp"},"breakpoints":[` +
		`{"line":10,"logMessage":"!log(1)","x-vendor":{"keep":true}},` +
		`{"line":11,"logMessage":"value {x}"},` +
		`{"line":12,"logMessage":"!! log(2)","condition":"i > 3"}]}}`
	env, err := wire.Parse([]byte(raw))
	require.NoError(t, err)

	f.tracker.OnRequest(env)

	out := gjson.ParseBytes(env.Raw())
	assert.False(t, out.Get("arguments.breakpoints.0.logMessage").Exists())
	assert.True(t, out.Get("arguments.breakpoints.0.x-vendor.keep").Bool())
	assert.Equal(t, "value {x}", out.Get("arguments.breakpoints.1.logMessage").String())
	assert.False(t, out.Get("arguments.breakpoints.2.logMessage").Exists())
	assert.Equal(t, "i > 3", out.Get("arguments.breakpoints.2.condition").String())
	assert.Equal(t, int64(1), f.counter(metricRewrites))

	src, ok := f.tracker.Registry().Lookup("/src/a.cpp")
	require.True(t, ok)
	assert.Equal(t, 5, src.PendingSeq)
	assert.Len(t, src.Scriptpoints, 2)
}

func TestRewriteWithoutSourcePathForwardsUnchanged(t *testing.T) {
	f := newFixture(t)

	raw := `{"seq":5,"type":"request","command":"setBreakpoints","arguments":{"source":{"name":"a"},"breakpoints":[{"line":1,"logMessage":"!log(1)"}]}}`
	env, err := wire.Parse([]byte(raw))
	require.NoError(t, err)

	f.tracker.OnRequest(env)
	assert.JSONEq(t, raw, string(env.Raw()))
	assert.Equal(t, 0, f.tracker.Registry().Len())
}

func TestStopRunsScriptAndContinues(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1, HitBreakpointIds: []int{1}})

	lines, errs := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines)
	assert.Empty(t, errs)
	assert.Equal(t, []string{wire.CommandStackTrace, wire.CommandContinue}, f.adapter.commands())
	assert.Equal(t, dap.ContinueArguments{ThreadId: 1}, f.adapter.requests[1].arguments)

	events := f.adapter.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, wire.EventContinued, events[0].event)
	assert.Equal(t, dap.ContinuedEventBody{ThreadId: 1, AllThreadsContinued: true}, events[0].body)

	assert.Equal(t, ThreadRunning, f.tracker.ThreadState(1))
	assert.Equal(t, int64(1), f.counter(metricStops))
	assert.Equal(t, int64(1), f.counter(metricHits))
	assert.Equal(t, int64(1), f.counter(metricAutoContinues))
	assert.Equal(t, int64(0), f.counter(metricFailures))
}

func TestStopTopFrameRequested(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 4})

	require.NotEmpty(t, f.adapter.requests)
	assert.Equal(t, dap.StackTraceArguments{ThreadId: 4, StartFrame: 0, Levels: 1}, f.adapter.requests[0].arguments)
}

func TestStopDoubleMarkerStaysStopped(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines)
	assert.Equal(t, []string{wire.CommandStackTrace}, f.adapter.commands())
	assert.Empty(t, f.adapter.emitted())
	assert.Equal(t, ThreadStopped, f.tracker.ThreadState(1))
}

func TestStopAfterStepStaysStopped(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.tracker.OnRequest(request(t, 6, wire.CommandNext, dap.NextArguments{ThreadId: 1}))
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines, "the script still runs")
	assert.NotContains(t, f.adapter.commands(), wire.CommandContinue)

	// The step flag is consumed by the first stop.
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})
	assert.Contains(t, f.adapter.commands(), wire.CommandContinue)
}

func TestStopStepReasonStaysStopped(t *testing.T) {
	for _, cmd := range []string{wire.CommandStepIn, wire.CommandStepOut, wire.CommandStepBack} {
		t.Run(cmd, func(t *testing.T) {
			f := newFixture(t)
			f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
			f.frameAt("/src/a.cpp", 10)

			f.tracker.OnRequest(request(t, 6, cmd, map[string]any{"threadId": 1}))
			f.stop(t, dap.StoppedEventBody{Reason: "step", ThreadId: 1})

			assert.NotContains(t, f.adapter.commands(), wire.CommandContinue)
		})
	}
}

func TestStopNonBreakpointReasonStaysStopped(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "pause", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines)
	assert.NotContains(t, f.adapter.commands(), wire.CommandContinue)
}

func TestStopScriptFailureStaysStopped(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log(evaluate("nope"))`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.handlers[wire.CommandEvaluate] = func(any) (any, error) {
		return nil, &wire.RequestError{Command: wire.CommandEvaluate, Message: "undefined: nope"}
	}

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	_, errs := f.output.snapshot()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `scriptpoint "log(evaluate("nope"))" failed: `)
	assert.Contains(t, errs[0], "undefined: nope")
	assert.NotContains(t, f.adapter.commands(), wire.CommandContinue)
	assert.Equal(t, int64(1), f.counter(metricFailures))
	assert.Equal(t, ThreadStopped, f.tracker.ThreadState(1))
}

func TestStopNoMatch(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)

	f.frameAt("/src/a.cpp", 11)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	f.frameAt("/src/b.cpp", 10)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Empty(t, lines)
	assert.Equal(t, []string{wire.CommandStackTrace, wire.CommandStackTrace}, f.adapter.commands())
	assert.Equal(t, int64(0), f.counter(metricHits))
}

func TestStopStackTraceFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	f.adapter.handlers[wire.CommandStackTrace] = func(any) (any, error) {
		return dap.StackTraceResponseBody{}, nil
	}
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	f.adapter.handlers[wire.CommandStackTrace] = func(any) (any, error) {
		return dap.StackTraceResponseBody{StackFrames: []dap.StackFrame{{Id: 1, Line: 10}}}, nil
	}
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, errs := f.output.snapshot()
	assert.Empty(t, lines)
	assert.Empty(t, errs)
	assert.NotContains(t, f.adapter.commands(), wire.CommandContinue)
}

func TestStopMissingThreadIDDefaultsToZero(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint"})

	assert.Equal(t, dap.ContinueArguments{ThreadId: 0}, f.adapter.requests[len(f.adapter.requests)-1].arguments)
}

func TestStopContinueFailure(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.handlers[wire.CommandContinue] = func(any) (any, error) {
		return nil, errors.New("connection closed")
	}

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	assert.Empty(t, f.adapter.emitted())
	assert.Equal(t, ThreadStopped, f.tracker.ThreadState(1))
	assert.Equal(t, int64(0), f.counter(metricAutoContinues))
}

func TestStopContinueSingleThread(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.raw[wire.CommandContinue] = `{"seq":9,"type":"response","request_seq":1,"command":"continue","success":true,"body":{"allThreadsContinued":false}}`

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 2})

	events := f.adapter.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, dap.ContinuedEventBody{ThreadId: 2, AllThreadsContinued: false}, events[0].body)
}

func TestFailedSetBreakpointsBindsNothing(t *testing.T) {
	f := newFixture(t)
	args := dap.SetBreakpointsArguments{
		Source:      dap.Source{Path: "/src/a.cpp"},
		Breakpoints: []dap.SourceBreakpoint{{Line: 10, LogMessage: "!log(1)"}},
	}
	f.tracker.OnRequest(request(t, 5, wire.CommandSetBreakpoints, args))
	f.tracker.OnResponse(response(t, 5, wire.CommandSetBreakpoints, false, nil))

	assert.False(t, f.tracker.Registry().Pending(5))
	f.frameAt("/src/a.cpp", 10)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Empty(t, lines)
}

func TestBreakpointEventWithDifferentCase(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/A.cpp", 10, `!log("hit")`)

	f.tracker.OnEvent(event(t, wire.EventBreakpoint, dap.BreakpointEventBody{
		Reason:     "changed",
		Breakpoint: dap.Breakpoint{Id: 1, Verified: true, Line: 10, Source: &dap.Source{Path: "/src/a.cpp"}},
	}))

	f.frameAt("/src/a.cpp", 10)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1, HitBreakpointIds: []int{1}})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines)
}

func TestBreakpointEventMovesScriptpoint(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)

	f.tracker.OnEvent(event(t, wire.EventBreakpoint, dap.BreakpointEventBody{
		Reason:     "changed",
		Breakpoint: dap.Breakpoint{Id: 1, Verified: true, Line: 12},
	}))

	f.frameAt("/src/a.cpp", 10)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})
	f.frameAt("/src/a.cpp", 12)
	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"hit"}, lines)
}

func TestScriptCommandDispatched(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!command("ext.mark", "x", 2)`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 3})

	require.Len(t, f.commands.calls, 1)
	assert.Equal(t, command.Call{Name: "ext.mark", Args: []any{"x", int64(2)}, ThreadID: 3, FrameID: 1000}, f.commands.calls[0])
}

func TestScriptCommandFailureReported(t *testing.T) {
	f := newFixture(t)
	f.commands.err = command.ErrInvalidArgument
	f.setScriptpoint(t, "/src/a.cpp", 10, `!command("debug.pause", "x")`)
	f.frameAt("/src/a.cpp", 10)

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 3})

	_, errs := f.output.snapshot()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "command debug.pause failed")
	assert.Contains(t, f.adapter.commands(), wire.CommandContinue, "a failed command does not fail the script")
}

func TestEvaluateUsesStoppedFrame(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log(evaluate("x"))`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.handlers[wire.CommandEvaluate] = func(args any) (any, error) {
		a := args.(dap.EvaluateArguments)
		return dap.EvaluateResponseBody{Result: a.Expression + "@" + a.Context}, nil
	}

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, _ := f.output.snapshot()
	assert.Equal(t, []string{"x@repl"}, lines)
	assert.Equal(t, dap.EvaluateArguments{Expression: "x", FrameId: 1000, Context: "repl"}, f.adapter.requests[1].arguments)
}

func TestMemory(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log(memory("buf", 4))`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.handlers[wire.CommandEvaluate] = func(any) (any, error) {
		return dap.EvaluateResponseBody{Result: "0x1000", MemoryReference: "0x1000"}, nil
	}
	f.adapter.handlers[wire.CommandReadMemory] = func(args any) (any, error) {
		a := args.(dap.ReadMemoryArguments)
		assert.Equal(t, dap.ReadMemoryArguments{MemoryReference: "0x1000", Offset: 0, Count: 4}, a)
		return dap.ReadMemoryResponseBody{Address: "0x1000", Data: "3q2+7w=="}, nil
	}

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	lines, errs := f.output.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []string{"3q2+7w=="}, lines)
}

func TestMemoryWithoutReference(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log(memory("i", 4))`)
	f.frameAt("/src/a.cpp", 10)
	f.adapter.handlers[wire.CommandEvaluate] = func(any) (any, error) {
		return dap.EvaluateResponseBody{Result: "3"}, nil
	}

	f.stop(t, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1})

	_, errs := f.output.snapshot()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], ErrNoMemoryReference.Error())
	assert.NotContains(t, f.adapter.commands(), wire.CommandReadMemory)
}

func TestRunHandlesQueuedStops(t *testing.T) {
	f := newFixture(t)
	f.setScriptpoint(t, "/src/a.cpp", 10, `!log("hit")`)
	f.frameAt("/src/a.cpp", 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.tracker.Run(ctx)
	}()

	for i := 1; i <= 3; i++ {
		f.tracker.OnEvent(event(t, wire.EventStopped, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: i}))
	}

	require.Eventually(t, func() bool {
		lines, _ := f.output.snapshot()
		return len(lines) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	var continued []any
	for _, r := range f.adapter.requests {
		if r.command == wire.CommandContinue {
			continued = append(continued, r.arguments)
		}
	}
	assert.Equal(t, []any{
		dap.ContinueArguments{ThreadId: 1},
		dap.ContinueArguments{ThreadId: 2},
		dap.ContinueArguments{ThreadId: 3},
	}, continued, "stops are handled in arrival order")
}

func TestCloseStopsRun(t *testing.T) {
	f := newFixture(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.tracker.Run(context.Background())
	}()

	f.tracker.Close()
	<-done

	f.tracker.OnEvent(event(t, wire.EventStopped, dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1}))
	assert.Equal(t, 0, f.tracker.queue.len())
}

func TestThreadStateFollowsEvents(t *testing.T) {
	f := newFixture(t)

	f.tracker.OnEvent(event(t, wire.EventStopped, dap.StoppedEventBody{Reason: "pause", ThreadId: 1, AllThreadsStopped: true}))
	assert.Equal(t, ThreadStopped, f.tracker.ThreadState(1))

	f.tracker.OnEvent(event(t, wire.EventContinued, dap.ContinuedEventBody{ThreadId: 1}))
	assert.Equal(t, ThreadRunning, f.tracker.ThreadState(1))

	f.tracker.OnEvent(event(t, wire.EventStopped, dap.StoppedEventBody{Reason: "pause", ThreadId: 2}))
	f.tracker.OnEvent(event(t, wire.EventTerminated, dap.TerminatedEventBody{}))
	assert.Equal(t, ThreadRunning, f.tracker.ThreadState(2))
}

func TestThreadStateString(t *testing.T) {
	assert.Equal(t, "running", ThreadRunning.String())
	assert.Equal(t, "stopped", ThreadStopped.String())
	assert.Equal(t, "executing", ThreadExecuting.String())
	assert.Equal(t, "unknown", ThreadState(42).String())
}
