package command

import (
	"fmt"

	"github.com/google/go-dap"
)

// Built-in command names.
const (
	NamePause    = "debug.pause"
	NameContinue = "debug.continue"
	NameRequest  = "debug.request"
	NameOutput   = "output.append"
)

func registerBuiltins(r *Registry) {
	r.Register(NamePause, pause)
	r.Register(NameContinue, resume)
	r.Register(NameRequest, request)
	r.Register(NameOutput, appendOutput)
}

func pause(s Session, call Call) error {
	threadID, err := threadArg(call)
	if err != nil {
		return err
	}
	return s.Post("pause", dap.PauseArguments{ThreadId: threadID})
}

func resume(s Session, call Call) error {
	threadID, err := threadArg(call)
	if err != nil {
		return err
	}
	return s.Post("continue", dap.ContinueArguments{ThreadId: threadID})
}

func request(s Session, call Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("%w: %s needs a request name", ErrInvalidArgument, call.Name)
	}
	name, ok := call.Args[0].(string)
	if !ok || name == "" {
		return fmt.Errorf("%w: %s request name must be a string", ErrInvalidArgument, call.Name)
	}
	var args any
	if len(call.Args) > 1 {
		args = call.Args[1]
	}
	return s.Post(name, args)
}

func appendOutput(s Session, call Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("%w: %s needs text", ErrInvalidArgument, call.Name)
	}
	category := "console"
	if len(call.Args) > 1 {
		c, ok := call.Args[1].(string)
		if !ok {
			return fmt.Errorf("%w: %s category must be a string", ErrInvalidArgument, call.Name)
		}
		category = c
	}
	s.Output(category, fmt.Sprint(call.Args[0]))
	return nil
}

// threadArg returns the optional first argument as a thread id, defaulting
// to the thread of the stop.
func threadArg(call Call) (int, error) {
	if len(call.Args) == 0 || call.Args[0] == nil {
		return call.ThreadID, nil
	}
	switch v := call.Args[0].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %s thread id must be an integer, got %T", ErrInvalidArgument, call.Name, call.Args[0])
}
