package debug

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-dap"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/dshills/scriptpoint/internal/command"
	"github.com/dshills/scriptpoint/internal/integration/debug/scriptpoint"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
	"github.com/dshills/scriptpoint/internal/notify"
	"github.com/dshills/scriptpoint/internal/script"
)

// Adapter is the debug adapter side of the proxy.
type Adapter interface {
	// Request sends a request and waits for its response. A response with
	// success false is returned together with a *wire.RequestError.
	Request(ctx context.Context, command string, arguments any) (*wire.Envelope, error)

	// Emit sends an event to the front-end.
	Emit(event string, body any) error
}

// Output is the front-end's debug console.
type Output interface {
	AppendLine(text string)
	AppendError(text string)
}

// Config configures a Tracker.
type Config struct {
	// Adapter carries the tracker's round trips. Required.
	Adapter Adapter

	// Output receives script output. Required.
	Output Output

	// Commands dispatches script commands. Required.
	Commands command.Dispatcher

	// Executor runs scripts. Defaults to script.NewExecutor().
	Executor *script.Executor

	// Notifier receives scriptpoint changes. Optional.
	Notifier *notify.Notifier

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger

	// Scope receives tracker metrics. Defaults to tally.NoopScope.
	Scope tally.Scope

	// MaxVariables bounds variables dumps. Defaults to DefaultMaxVariables.
	MaxVariables int
}

// Tracker observes the traffic of one debug session and runs its scriptpoints.
type Tracker struct {
	adapter  Adapter
	output   Output
	commands command.Dispatcher
	executor *script.Executor
	registry *scriptpoint.Registry
	logger   *zap.SugaredLogger
	metrics  *trackerMetrics

	maxVariables int

	// stepping is set by an outgoing step request and consumed by the next stop.
	stepping atomic.Bool

	threads *threadTable
	queue   *stopQueue

	closeOnce sync.Once
}

// NewTracker creates a tracker. Run must be started for stops to be handled.
func NewTracker(cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	executor := cfg.Executor
	if executor == nil {
		executor = script.NewExecutor(script.WithLogger(logger))
	}
	maxVariables := cfg.MaxVariables
	if maxVariables <= 0 {
		maxVariables = DefaultMaxVariables
	}
	return &Tracker{
		adapter:      cfg.Adapter,
		output:       cfg.Output,
		commands:     cfg.Commands,
		executor:     executor,
		registry:     scriptpoint.NewRegistry(logger, cfg.Notifier),
		logger:       logger,
		metrics:      newTrackerMetrics(cfg.Scope),
		maxVariables: maxVariables,
		threads:      newThreadTable(),
		queue:        newStopQueue(),
	}
}

// Registry returns the session's scriptpoint registry.
func (t *Tracker) Registry() *scriptpoint.Registry {
	return t.registry
}

// ThreadState returns the state of a thread.
func (t *Tracker) ThreadState(threadID int) ThreadState {
	return t.threads.get(threadID)
}

// Run handles queued stops one at a time until ctx is done or Close is called.
func (t *Tracker) Run(ctx context.Context) {
	for {
		job, ok := t.queue.pop(ctx)
		if !ok {
			return
		}
		t.handleStop(ctx, job)
	}
}

// Close stops the worker. Queued stops are dropped.
func (t *Tracker) Close() {
	t.closeOnce.Do(t.queue.close)
}

// OnRequest observes a request on its way to the adapter, after it was
// given its adapter-side seq. It may rewrite env.
func (t *Tracker) OnRequest(env *wire.Envelope) {
	switch env.Command {
	case wire.CommandSetBreakpoints:
		t.rewrite(env)
	case wire.CommandNext, wire.CommandStepIn, wire.CommandStepOut, wire.CommandStepBack:
		t.stepping.Store(true)
	}
}

// OnResponse observes a response from the adapter, before its request_seq
// is mapped back.
func (t *Tracker) OnResponse(env *wire.Envelope) {
	if env.Command != wire.CommandSetBreakpoints || !t.registry.Pending(env.RequestSeq) {
		return
	}

	var body dap.SetBreakpointsResponseBody
	if env.Success {
		if err := env.DecodeBody(&body); err != nil {
			t.logger.Warnw("undecodable setBreakpoints response", "request_seq", env.RequestSeq, "error", err)
		}
	}
	n := t.registry.Bind(env.RequestSeq, env.Success, &body)
	t.logger.Debugw("bound scriptpoints", "request_seq", env.RequestSeq, "success", env.Success, "bound", n)
}

// OnEvent observes an event from the adapter before it is forwarded.
func (t *Tracker) OnEvent(env *wire.Envelope) {
	switch env.Event {
	case wire.EventBreakpoint:
		var body dap.BreakpointEventBody
		if err := env.DecodeBody(&body); err != nil {
			t.logger.Warnw("undecodable breakpoint event", "error", err)
			return
		}
		if t.registry.Update(body.Reason, body.Breakpoint) {
			t.logger.Debugw("scriptpoint descriptor updated", "reason", body.Reason, "id", body.Breakpoint.Id)
		}

	case wire.EventStopped:
		var body dap.StoppedEventBody
		if err := env.DecodeBody(&body); err != nil {
			t.logger.Warnw("undecodable stopped event", "error", err)
		}
		t.onStopped(body)

	case wire.EventContinued:
		var body dap.ContinuedEventBody
		if err := env.DecodeBody(&body); err != nil {
			t.logger.Warnw("undecodable continued event", "error", err)
			return
		}
		if body.AllThreadsContinued {
			t.threads.setAll(body.ThreadId, ThreadRunning)
		} else {
			t.threads.set(body.ThreadId, ThreadRunning)
		}

	case wire.EventTerminated, wire.EventExited:
		t.threads.reset()
	}
}

func (t *Tracker) rewrite(env *wire.Envelope) {
	var args dap.SetBreakpointsArguments
	if err := env.DecodeArguments(&args); err != nil {
		t.logger.Warnw("undecodable setBreakpoints request", "seq", env.Seq, "error", err)
		return
	}

	strip, err := t.registry.Rewrite(env.Seq, &args)
	if errors.Is(err, scriptpoint.ErrNoSourcePath) {
		t.logger.Debugw("setBreakpoints without source path, not rewritten", "seq", env.Seq)
		return
	}
	if err != nil {
		t.logger.Warnw("setBreakpoints not rewritten", "seq", env.Seq, "error", err)
		return
	}

	for _, i := range strip {
		if err := env.Delete(fmt.Sprintf("arguments.breakpoints.%d.logMessage", i)); err != nil {
			t.logger.Warnw("failed to strip scriptpoint log message", "seq", env.Seq, "index", i, "error", err)
		}
	}
	if len(strip) > 0 {
		t.metrics.rewrites.Inc(1)
	}
}

func (t *Tracker) onStopped(body dap.StoppedEventBody) {
	stepped := t.stepping.Swap(false)
	if body.AllThreadsStopped {
		t.threads.setAll(body.ThreadId, ThreadStopped)
	} else {
		t.threads.set(body.ThreadId, ThreadStopped)
	}
	t.metrics.stops.Inc(1)

	job := stopJob{
		threadID: body.ThreadId,
		reason:   body.Reason,
		hitIDs:   body.HitBreakpointIds,
		stepped:  stepped,
	}
	if err := t.queue.push(job); err != nil {
		t.logger.Debugw("stop not handled", "thread", body.ThreadId, "error", err)
	}
}

// handleStop runs on the worker goroutine.
func (t *Tracker) handleStop(ctx context.Context, job stopJob) {
	logger := t.logger.With("thread", job.threadID, "reason", job.reason)

	frame, err := t.topFrame(ctx, job.threadID)
	if err != nil {
		logger.Warnw("stop not matched", "error", err)
		return
	}
	if frame.Source == nil || frame.Source.Path == "" {
		logger.Debugw("top frame has no source path")
		return
	}

	match, ok := t.registry.Match(frame, job.hitIDs)
	if !ok {
		return
	}
	sp := match.Scriptpoint
	t.metrics.hits.Inc(1)
	logger.Debugw("scriptpoint hit", "path", match.Path, "line", frame.Line, "index", sp.Index)

	t.threads.set(job.threadID, ThreadExecuting)
	host := &frameHost{t: t, threadID: job.threadID, frameID: frame.Id}

	start := time.Now()
	succeeded := t.executor.Execute(ctx, sp.Script, host)
	t.metrics.scriptDuration.Record(time.Since(start))
	if !succeeded {
		t.metrics.failures.Inc(1)
	}

	outcome := scriptpoint.Outcome{
		Succeeded: succeeded,
		Stop:      sp.Stop,
		Stepped:   job.stepped,
		Reason:    job.reason,
	}
	if !scriptpoint.ShouldContinue(outcome) {
		t.threads.set(job.threadID, ThreadStopped)
		return
	}

	if err := t.resume(ctx, job.threadID); err != nil {
		logger.Warnw("auto-continue failed", "error", err)
		t.threads.set(job.threadID, ThreadStopped)
		return
	}
	t.metrics.autoContinues.Inc(1)
}

// resume continues a thread and tells the front-end it runs again.
func (t *Tracker) resume(ctx context.Context, threadID int) error {
	env, err := t.adapter.Request(ctx, wire.CommandContinue, dap.ContinueArguments{ThreadId: threadID})
	if err != nil {
		return err
	}

	// A missing allThreadsContinued means every thread was resumed.
	all := true
	if v := env.Body().Get("allThreadsContinued"); v.Exists() {
		all = v.Bool()
	}
	if all {
		t.threads.setAll(threadID, ThreadRunning)
	} else {
		t.threads.set(threadID, ThreadRunning)
	}

	event := dap.ContinuedEventBody{ThreadId: threadID, AllThreadsContinued: all}
	return t.adapter.Emit(wire.EventContinued, event)
}
