package wire

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-dap"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Kind discriminates the three DAP message types.
type Kind int

const (
	// KindUnknown is a message whose type field is missing or unrecognized.
	KindUnknown Kind = iota
	// KindRequest is a request.
	KindRequest
	// KindResponse is a response to a request.
	KindResponse
	// KindEvent is an event.
	KindEvent
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

func parseKind(s string) Kind {
	switch s {
	case "request":
		return KindRequest
	case "response":
		return KindResponse
	case "event":
		return KindEvent
	default:
		return KindUnknown
	}
}

// Commands and events the proxy inspects or produces.
const (
	CommandSetBreakpoints = "setBreakpoints"
	CommandStackTrace     = "stackTrace"
	CommandEvaluate       = "evaluate"
	CommandVariables      = "variables"
	CommandReadMemory     = "readMemory"
	CommandContinue       = "continue"
	CommandPause          = "pause"
	CommandNext           = "next"
	CommandStepIn         = "stepIn"
	CommandStepOut        = "stepOut"
	CommandStepBack       = "stepBack"

	EventStopped    = "stopped"
	EventContinued  = "continued"
	EventBreakpoint = "breakpoint"
	EventOutput     = "output"
	EventTerminated = "terminated"
	EventExited     = "exited"
)

// Envelope is a raw DAP message with its discriminating header fields
// decoded. The content is kept verbatim so fields the proxy does not know
// about survive forwarding unchanged.
type Envelope struct {
	Kind       Kind
	Seq        int
	Command    string
	Event      string
	RequestSeq int
	Success    bool

	raw []byte
}

// Parse decodes the header fields of a message.
func Parse(content []byte) (*Envelope, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}
	root := gjson.ParseBytes(content)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	fields := gjson.GetManyBytes(content, "seq", "type", "command", "event", "request_seq", "success")
	env := &Envelope{
		Seq:        int(fields[0].Int()),
		Kind:       parseKind(fields[1].String()),
		Command:    fields[2].String(),
		Event:      fields[3].String(),
		RequestSeq: int(fields[4].Int()),
		Success:    fields[5].Bool(),
		raw:        content,
	}
	return env, nil
}

// Raw returns the current message content.
func (e *Envelope) Raw() []byte {
	return e.raw
}

// Arguments returns the request arguments.
func (e *Envelope) Arguments() gjson.Result {
	return gjson.GetBytes(e.raw, "arguments")
}

// Body returns the response or event body.
func (e *Envelope) Body() gjson.Result {
	return gjson.GetBytes(e.raw, "body")
}

// DecodeArguments unmarshals the request arguments into v.
// Missing arguments leave v untouched.
func (e *Envelope) DecodeArguments(v any) error {
	return decodeResult(e.Arguments(), v)
}

// DecodeBody unmarshals the response or event body into v.
// A missing body leaves v untouched.
func (e *Envelope) DecodeBody(v any) error {
	return decodeResult(e.Body(), v)
}

func decodeResult(r gjson.Result, v any) error {
	if !r.Exists() {
		return nil
	}
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// ErrorMessage returns the human readable failure of a response: the
// message field, or the error format of the body when the message is empty.
func (e *Envelope) ErrorMessage() string {
	fields := gjson.GetManyBytes(e.raw, "message", "body.error.format")
	if msg := fields[0].String(); msg != "" {
		return msg
	}
	return fields[1].String()
}

// Err returns a *RequestError for an unsuccessful response and nil otherwise.
func (e *Envelope) Err() error {
	if e.Kind != KindResponse || e.Success {
		return nil
	}
	return &RequestError{Command: e.Command, Message: e.ErrorMessage()}
}

// SetSeq rewrites the seq field.
func (e *Envelope) SetSeq(seq int) error {
	return e.set("seq", seq, func() { e.Seq = seq })
}

// SetRequestSeq rewrites the request_seq field of a response.
func (e *Envelope) SetRequestSeq(seq int) error {
	return e.set("request_seq", seq, func() { e.RequestSeq = seq })
}

// Delete removes the value at a gjson/sjson path such as
// "arguments.breakpoints.2.logMessage".
func (e *Envelope) Delete(path string) error {
	raw, err := sjson.DeleteBytes(e.raw, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	e.raw = raw
	return nil
}

func (e *Envelope) set(path string, value any, apply func()) error {
	raw, err := sjson.SetBytes(e.raw, path, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	e.raw = raw
	apply()
	return nil
}

// Message wraps the envelope content for sending.
func (e *Envelope) Message() *Message {
	return NewMessage(e.raw)
}

type requestFrame struct {
	dap.Request
	Arguments any `json:"arguments,omitempty"`
}

type eventFrame struct {
	dap.Event
	Body any `json:"body,omitempty"`
}

// NewRequest builds the content of a request message.
func NewRequest(seq int, command string, args any) ([]byte, error) {
	frame := requestFrame{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "request"},
			Command:         command,
		},
		Arguments: args,
	}
	content, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", command, err)
	}
	return content, nil
}

// NewEvent builds the content of an event message.
func NewEvent(seq int, event string, body any) ([]byte, error) {
	frame := eventFrame{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           event,
		},
		Body: body,
	}
	content, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event, err)
	}
	return content, nil
}
