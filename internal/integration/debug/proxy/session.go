package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/scriptpoint/internal/command"
	"github.com/dshills/scriptpoint/internal/integration/debug"
	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
	"github.com/dshills/scriptpoint/internal/notify"
	"github.com/dshills/scriptpoint/internal/script"
)

// Output event categories.
const (
	CategoryConsole = "console"
	CategoryStderr  = "stderr"
)

// Config configures a Session.
type Config struct {
	// Client is the front-end connection. Required.
	Client wire.Transport

	// Adapter is the debug adapter connection. Required.
	Adapter wire.Transport

	// Executor runs scriptpoint scripts. Defaults to script.NewExecutor().
	Executor *script.Executor

	// Notifier receives scriptpoint changes. Optional.
	Notifier *notify.Notifier

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger

	// Scope receives session metrics. Defaults to tally.NoopScope.
	Scope tally.Scope

	// MaxVariables bounds variables dumps.
	MaxVariables int

	// ErrorCategory is the output category of script failures. Defaults to stderr.
	ErrorCategory string

	// Commands registers additional script commands.
	Commands func(r *command.Registry)
}

// Session relays one front-end connection to one adapter connection.
type Session struct {
	client  wire.Transport
	adapter wire.Transport

	tracker  *debug.Tracker
	commands *command.Registry
	logger   *zap.SugaredLogger

	errorCategory string

	toAdapter *sender
	toClient  *sender

	mu sync.Mutex
	// forwarded maps adapter-side seqs of front-end requests to the
	// front-end's seqs.
	forwarded map[int]int
	// reverse maps front-end-side seqs of adapter requests to the adapter's seqs.
	reverse map[int]int
	// injected holds the proxy's own requests awaiting their response.
	injected map[int]*pendingRequest

	done      chan struct{}
	closeOnce sync.Once
}

// pendingRequest tracks an injected request awaiting its response.
type pendingRequest struct {
	command  string
	threadID int
	// done is nil for posted requests, whose response is discarded.
	done     chan struct{}
	response *wire.Envelope
	err      error
}

// sender numbers and sends the messages of one direction.
type sender struct {
	mu        sync.Mutex
	seq       int
	transport wire.Transport
	messages  tally.Counter
}

// send assigns the next seq and sends the content build returns for it,
// holding the direction's lock.
func (s *sender) send(build func(seq int) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	content, err := build(s.seq)
	if err != nil {
		return err
	}
	s.messages.Inc(1)
	return s.transport.Send(wire.NewMessage(content))
}

// NewSession creates a session. Serve starts relaying.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	scope := cfg.Scope
	if scope == nil {
		scope = tally.NoopScope
	}
	errorCategory := cfg.ErrorCategory
	if errorCategory == "" {
		errorCategory = CategoryStderr
	}

	s := &Session{
		client:        cfg.Client,
		adapter:       cfg.Adapter,
		logger:        logger,
		errorCategory: errorCategory,
		toAdapter: &sender{
			transport: cfg.Adapter,
			messages:  scope.Tagged(map[string]string{"direction": "to_adapter"}).Counter("messages"),
		},
		toClient: &sender{
			transport: cfg.Client,
			messages:  scope.Tagged(map[string]string{"direction": "to_client"}).Counter("messages"),
		},
		forwarded: make(map[int]int),
		reverse:   make(map[int]int),
		injected:  make(map[int]*pendingRequest),
		done:      make(chan struct{}),
	}

	s.commands = command.NewRegistry(func() command.Session { return s }, logger)
	if cfg.Commands != nil {
		cfg.Commands(s.commands)
	}

	s.tracker = debug.NewTracker(debug.Config{
		Adapter:      s,
		Output:       s,
		Commands:     s.commands,
		Executor:     cfg.Executor,
		Notifier:     cfg.Notifier,
		Logger:       logger,
		Scope:        scope,
		MaxVariables: cfg.MaxVariables,
	})
	return s
}

// Tracker returns the session's tracker.
func (s *Session) Tracker() *debug.Tracker {
	return s.tracker
}

// Commands returns the session's command registry.
func (s *Session) Commands() *command.Registry {
	return s.commands
}

// Serve relays messages until either side disconnects, ctx is done or
// Close is called. A clean disconnect returns nil.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.tracker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errc <- s.pump("client", s.client, s.fromClient)
	}()
	go func() {
		defer wg.Done()
		errc <- s.pump("adapter", s.adapter, s.fromAdapter)
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
	case <-s.done:
	}

	cancel()
	closeErr := s.Close()
	wg.Wait()

	if err == nil || isDisconnect(err) {
		return nil
	}
	return multierr.Append(err, closeErr)
}

// Close closes both connections and fails waiting round trips.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.tracker.Close()

		s.mu.Lock()
		for seq, p := range s.injected {
			p.err = ErrSessionClosed
			if p.done != nil {
				close(p.done)
			}
			delete(s.injected, seq)
		}
		s.mu.Unlock()

		err = multierr.Combine(s.client.Close(), s.adapter.Close())
	})
	return err
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// pump receives from one side until the connection fails.
func (s *Session) pump(side string, t wire.Transport, handle func(*wire.Envelope) error) error {
	for {
		msg, err := t.Receive()
		if err != nil {
			if s.closed() {
				return nil
			}
			return fmt.Errorf("receive from %s: %w", side, err)
		}

		env, err := wire.Parse(msg.Content)
		if err != nil {
			s.logger.Warnw("dropping malformed message", "from", side, "error", err)
			continue
		}
		if err := handle(env); err != nil {
			if s.closed() {
				return nil
			}
			return err
		}
	}
}

// fromClient relays one front-end message to the adapter.
func (s *Session) fromClient(env *wire.Envelope) error {
	switch env.Kind {
	case wire.KindRequest:
		clientSeq := env.Seq
		return s.toAdapter.send(func(seq int) ([]byte, error) {
			if err := env.SetSeq(seq); err != nil {
				return nil, err
			}
			s.mu.Lock()
			s.forwarded[seq] = clientSeq
			s.mu.Unlock()
			s.tracker.OnRequest(env)
			return env.Raw(), nil
		})

	case wire.KindResponse:
		s.mu.Lock()
		adapterSeq, ok := s.reverse[env.RequestSeq]
		delete(s.reverse, env.RequestSeq)
		s.mu.Unlock()
		if !ok {
			s.logger.Warnw("response to unknown reverse request", "request_seq", env.RequestSeq, "command", env.Command)
			return nil
		}
		if err := env.SetRequestSeq(adapterSeq); err != nil {
			return err
		}
		return s.toAdapter.send(renumber(env))

	default:
		return s.toAdapter.send(renumber(env))
	}
}

// fromAdapter relays one adapter message to the front-end, or completes an
// injected round trip.
func (s *Session) fromAdapter(env *wire.Envelope) error {
	switch env.Kind {
	case wire.KindResponse:
		s.tracker.OnResponse(env)

		s.mu.Lock()
		p, injected := s.injected[env.RequestSeq]
		delete(s.injected, env.RequestSeq)
		clientSeq, forwarded := s.forwarded[env.RequestSeq]
		delete(s.forwarded, env.RequestSeq)
		s.mu.Unlock()

		if injected {
			s.complete(p, env)
			return nil
		}
		if !forwarded {
			s.logger.Warnw("response to unknown request", "request_seq", env.RequestSeq, "command", env.Command)
			return nil
		}
		if err := env.SetRequestSeq(clientSeq); err != nil {
			return err
		}
		return s.toClient.send(renumber(env))

	case wire.KindEvent:
		s.tracker.OnEvent(env)
		return s.toClient.send(renumber(env))

	case wire.KindRequest:
		adapterSeq := env.Seq
		return s.toClient.send(func(seq int) ([]byte, error) {
			if err := env.SetSeq(seq); err != nil {
				return nil, err
			}
			s.mu.Lock()
			s.reverse[seq] = adapterSeq
			s.mu.Unlock()
			return env.Raw(), nil
		})

	default:
		s.logger.Warnw("dropping message of unknown type from adapter", "seq", env.Seq)
		return nil
	}
}

func (s *Session) complete(p *pendingRequest, env *wire.Envelope) {
	if p.done != nil {
		p.response = env
		close(p.done)
		return
	}
	if err := env.Err(); err != nil {
		s.logger.Warnw("posted request failed", "command", p.command, "error", err)
		return
	}
	// The front-end learns about resumes it did not request from a continued event.
	if p.command == wire.CommandContinue {
		all := true
		if v := env.Body().Get("allThreadsContinued"); v.Exists() {
			all = v.Bool()
		}
		body := dap.ContinuedEventBody{ThreadId: p.threadID, AllThreadsContinued: all}
		if err := s.Emit(wire.EventContinued, body); err != nil {
			s.logger.Debugw("continued event not sent", "error", err)
		}
	}
}

// renumber returns a build function giving env the next seq.
func renumber(env *wire.Envelope) func(seq int) ([]byte, error) {
	return func(seq int) ([]byte, error) {
		if err := env.SetSeq(seq); err != nil {
			return nil, err
		}
		return env.Raw(), nil
	}
}

// inject sends a request of the proxy's own to the adapter.
func (s *Session) inject(cmd string, arguments any, p *pendingRequest) (int, error) {
	if s.closed() {
		return 0, ErrSessionClosed
	}
	var sent int
	err := s.toAdapter.send(func(seq int) ([]byte, error) {
		content, err := wire.NewRequest(seq, cmd, arguments)
		if err != nil {
			return nil, err
		}
		if p.done == nil {
			// Posted requests are observed like front-end requests.
			env, err := wire.Parse(content)
			if err != nil {
				return nil, err
			}
			s.tracker.OnRequest(env)
			p.threadID = int(env.Arguments().Get("threadId").Int())
			content = env.Raw()
		}
		s.mu.Lock()
		s.injected[seq] = p
		s.mu.Unlock()
		sent = seq
		return content, nil
	})
	if err != nil {
		s.mu.Lock()
		delete(s.injected, sent)
		s.mu.Unlock()
		return 0, fmt.Errorf("send %s request: %w", cmd, err)
	}
	return sent, nil
}

// Request sends a request to the adapter and waits for its response,
// which is not forwarded to the front-end.
func (s *Session) Request(ctx context.Context, cmd string, arguments any) (*wire.Envelope, error) {
	p := &pendingRequest{command: cmd, done: make(chan struct{})}
	seq, err := s.inject(cmd, arguments, p)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.injected, seq)
		s.mu.Unlock()
		return nil, ctx.Err()
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		return p.response, p.response.Err()
	}
}

// Post sends a request to the adapter without waiting. Its response is not
// forwarded to the front-end.
func (s *Session) Post(cmd string, arguments any) error {
	_, err := s.inject(cmd, arguments, &pendingRequest{command: cmd})
	return err
}

// Emit sends an event to the front-end.
func (s *Session) Emit(event string, body any) error {
	if s.closed() {
		return ErrSessionClosed
	}
	return s.toClient.send(func(seq int) ([]byte, error) {
		return wire.NewEvent(seq, event, body)
	})
}

// Output appends a line to the front-end's debug console.
func (s *Session) Output(category, text string) {
	body := dap.OutputEventBody{Category: category, Output: text + "\n"}
	if err := s.Emit(wire.EventOutput, body); err != nil {
		s.logger.Debugw("output event not sent", "category", category, "error", err)
	}
}

// AppendLine appends script output to the debug console.
func (s *Session) AppendLine(text string) {
	s.Output(CategoryConsole, text)
}

// AppendError appends a script failure to the debug console.
func (s *Session) AppendError(text string) {
	s.Output(s.errorCategory, text)
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed)
}

var (
	_ debug.Adapter   = (*Session)(nil)
	_ debug.Output    = (*Session)(nil)
	_ command.Session = (*Session)(nil)
)
