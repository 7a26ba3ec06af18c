package debug

import (
	"context"

	"github.com/dshills/scriptpoint/internal/command"
	"github.com/dshills/scriptpoint/internal/script"
)

// frameHost gives a script the capabilities of the frame it stopped in.
type frameHost struct {
	t        *Tracker
	threadID int
	frameID  int
}

var _ script.Host = (*frameHost)(nil)

func (h *frameHost) Log(text string) {
	h.t.output.AppendLine(text)
}

func (h *frameHost) LogError(text string) {
	h.t.output.AppendError(text)
}

func (h *frameHost) Command(name string, args []any) {
	call := command.Call{Name: name, Args: args, ThreadID: h.threadID, FrameID: h.frameID}
	if err := h.t.commands.Dispatch(call); err != nil {
		h.t.logger.Warnw("command failed", "command", name, "error", err)
		h.t.output.AppendError("command " + name + " failed: " + err.Error())
	}
}

func (h *frameHost) Evaluate(ctx context.Context, expr string) (string, error) {
	v, err := h.t.evaluate(ctx, h.frameID, expr)
	if err != nil {
		return "", err
	}
	return v.Result, nil
}

func (h *frameHost) Variables(ctx context.Context, expr string) (string, error) {
	return h.t.dumpVariables(ctx, h.frameID, expr)
}

func (h *frameHost) Memory(ctx context.Context, expr string, count int) (string, error) {
	return h.t.readMemory(ctx, h.frameID, expr, count)
}
