package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// capabilityPrologue binds the chunk's arguments to the capability names.
// It shares the first line with the script so reported line numbers match.
const capabilityPrologue = "local log, command, evaluate, variables, memory = ...; "

// chunkName is the source name in Lua error messages.
const chunkName = "scriptpoint"

// Host provides the capabilities of one execution.
//
// Log, LogError and Command must not block. Evaluate, Variables and Memory
// perform adapter round trips against the stopped frame and return an error
// when the round trip fails.
type Host interface {
	Log(text string)
	LogError(text string)
	Command(name string, args []any)
	Evaluate(ctx context.Context, expr string) (string, error)
	Variables(ctx context.Context, expr string) (string, error)
	Memory(ctx context.Context, expr string, count int) (string, error)
}

// Executor runs scriptpoint scripts. It holds no Lua state between
// executions and is safe for concurrent use.
type Executor struct {
	timeout       time.Duration
	callStackSize int
	logger        *zap.SugaredLogger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds each execution. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithCallStackSize sets the Lua call stack depth.
func WithCallStackSize(n int) Option {
	return func(e *Executor) {
		e.callStackSize = n
	}
}

// WithLogger sets the logger for execution diagnostics.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		callStackSize: DefaultCallStackSize,
		logger:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs script with the capabilities of host. It reports whether the
// script completed. A failure is written to host.LogError as
// `scriptpoint "<script>" failed: <message>`.
func (e *Executor) Execute(ctx context.Context, script string, host Host) bool {
	err := e.run(ctx, script, host)
	if err == nil {
		return true
	}
	e.logger.Debugw("scriptpoint failed", "script", script, "error", err)
	host.LogError(FailureMessage(script, err))
	return false
}

// FailureMessage formats the output line of a failed execution.
func FailureMessage(script string, err error) string {
	return fmt.Sprintf("scriptpoint \"%s\" failed: %s", script, errorMessage(err))
}

func (e *Executor) run(ctx context.Context, script string, host Host) (err error) {
	if strings.TrimSpace(script) == "" {
		return ErrEmptyScript
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	caps := &capabilities{ctx: runCtx, host: host}
	L := newState(e.callStackSize, caps.log)
	defer L.Close()
	L.SetContext(runCtx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err != nil && e.timeout > 0 && ctx.Err() == nil &&
			errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = ErrExecutionTimeout
		}
	}()

	fn, err := L.Load(strings.NewReader(capabilityPrologue+script), chunkName)
	if err != nil {
		return err
	}

	return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		L.NewFunction(caps.log),
		L.NewFunction(caps.command),
		L.NewFunction(caps.evaluate),
		L.NewFunction(caps.variables),
		L.NewFunction(caps.memory),
	)
}

// capabilities adapts a Host to Lua functions.
type capabilities struct {
	ctx  context.Context
	host Host
}

func (c *capabilities) log(L *lua.LState) int {
	c.host.Log(joinArgs(L, 1))
	return 0
}

func (c *capabilities) command(L *lua.LState) int {
	name := L.CheckString(1)
	top := L.GetTop()
	args := make([]any, 0, top-1)
	for i := 2; i <= top; i++ {
		args = append(args, toGoValue(L.Get(i)))
	}
	c.host.Command(name, args)
	return 0
}

func (c *capabilities) evaluate(L *lua.LState) int {
	expr := L.CheckString(1)
	result, err := c.host.Evaluate(c.ctx, expr)
	return c.push(L, result, err)
}

func (c *capabilities) variables(L *lua.LState) int {
	expr := L.CheckString(1)
	dump, err := c.host.Variables(c.ctx, expr)
	return c.push(L, dump, err)
}

func (c *capabilities) memory(L *lua.LState) int {
	expr := L.CheckString(1)
	count := L.CheckInt(2)
	if count < 0 {
		L.ArgError(2, "count must not be negative")
	}
	data, err := c.host.Memory(c.ctx, expr, count)
	return c.push(L, data, err)
}

func (c *capabilities) push(L *lua.LState, s string, err error) int {
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LString(s))
	return 1
}
