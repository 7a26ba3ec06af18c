// Package wire implements the Debug Adapter Protocol base protocol: message
// framing over byte streams and a raw envelope view of each message.
package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// DefaultMaxContentLength is the largest message body accepted (10MB).
const DefaultMaxContentLength = 10 * 1024 * 1024

// Transport carries framed DAP messages in both directions.
type Transport interface {
	// Send writes one message.
	Send(msg *Message) error

	// Receive blocks until the next message arrives.
	Receive() (*Message, error)

	// Close closes the transport.
	Close() error
}

// Message represents a DAP message with headers and content.
type Message struct {
	// ContentLength is the length of the content.
	ContentLength int

	// ContentType is the MIME type (optional).
	ContentType string

	// Content is the JSON content.
	Content json.RawMessage
}

// NewMessage wraps JSON content in a Message.
func NewMessage(content []byte) *Message {
	return &Message{
		ContentLength: len(content),
		Content:       content,
	}
}

// Option configures a transport.
type Option func(*framer)

// WithMaxContentLength bounds the size of received message bodies.
func WithMaxContentLength(n int) Option {
	return func(f *framer) {
		if n > 0 {
			f.maxContentLength = n
		}
	}
}

// framer holds the shared read/write framing state of every transport.
type framer struct {
	reader           *bufio.Reader
	writer           io.Writer
	mu               sync.Mutex
	maxContentLength int
}

func newFramer(r io.Reader, w io.Writer, opts []Option) *framer {
	f := &framer{
		reader:           bufio.NewReader(r),
		writer:           w,
		maxContentLength: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *framer) send(msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeMessage(f.writer, msg)
}

func (f *framer) receive() (*Message, error) {
	return readMessage(f.reader, f.maxContentLength)
}

// StdioTransport speaks to a debug adapter subprocess over its stdin/stdout.
type StdioTransport struct {
	*framer
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// NewStdioTransport starts cmd and connects to its standard streams.
func NewStdioTransport(cmd *exec.Cmd, opts ...Option) (*StdioTransport, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start command: %w", err)
	}

	return &StdioTransport{
		framer: newFramer(stdout, stdin, opts),
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

// Send sends a message to the debug adapter.
func (t *StdioTransport) Send(msg *Message) error {
	return t.send(msg)
}

// Receive receives a message from the debug adapter.
func (t *StdioTransport) Receive() (*Message, error) {
	return t.receive()
}

// Close closes the pipes, kills the subprocess and reaps it.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := multierr.Append(t.stdin.Close(), t.stdout.Close())
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	// A killed adapter always reports a non-nil wait status.
	_ = t.cmd.Wait()
	return err
}

// SocketTransport implements Transport over a network connection.
type SocketTransport struct {
	*framer
	conn net.Conn
}

// NewSocketTransport dials a debug adapter listening on a TCP address.
func NewSocketTransport(address string, opts ...Option) (*SocketTransport, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	return NewSocketTransportFromConn(conn, opts...), nil
}

// NewSocketTransportFromConn creates a socket transport from an existing connection.
func NewSocketTransportFromConn(conn net.Conn, opts ...Option) *SocketTransport {
	return &SocketTransport{
		framer: newFramer(conn, conn, opts),
		conn:   conn,
	}
}

// Send sends a message.
func (t *SocketTransport) Send(msg *Message) error {
	return t.send(msg)
}

// Receive receives a message.
func (t *SocketTransport) Receive() (*Message, error) {
	return t.receive()
}

// Close closes the socket connection.
func (t *SocketTransport) Close() error {
	return t.conn.Close()
}

// StreamTransport joins a separate reader and writer, such as the process's
// own stdin and stdout when a front-end launches the proxy directly.
type StreamTransport struct {
	*framer
	r io.ReadCloser
	w io.WriteCloser
}

// NewStreamTransport creates a transport reading from r and writing to w.
func NewStreamTransport(r io.ReadCloser, w io.WriteCloser, opts ...Option) *StreamTransport {
	return &StreamTransport{
		framer: newFramer(r, w, opts),
		r:      r,
		w:      w,
	}
}

// Send sends a message.
func (t *StreamTransport) Send(msg *Message) error {
	return t.send(msg)
}

// Receive receives a message.
func (t *StreamTransport) Receive() (*Message, error) {
	return t.receive()
}

// Close closes both streams.
func (t *StreamTransport) Close() error {
	return multierr.Append(t.r.Close(), t.w.Close())
}

// writeMessage writes a DAP message to the writer.
func writeMessage(w io.Writer, msg *Message) error {
	headers := fmt.Sprintf("Content-Length: %d\r\n", len(msg.Content))
	if msg.ContentType != "" {
		headers += fmt.Sprintf("Content-Type: %s\r\n", msg.ContentType)
	}
	headers += "\r\n"

	// Headers and body go out in one write so a reader never sees a torn frame.
	frame := make([]byte, 0, len(headers)+len(msg.Content))
	frame = append(frame, headers...)
	frame = append(frame, msg.Content...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// readMessage reads a DAP message from the reader.
func readMessage(r *bufio.Reader, maxContentLength int) (*Message, error) {
	var contentLength int
	var contentType string

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
		}

		value := strings.TrimSpace(parts[1])
		switch strings.ToLower(strings.TrimSpace(parts[0])) {
		case "content-length":
			length, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: content-length %q", ErrInvalidHeader, value)
			}
			if length < 0 || length > maxContentLength {
				return nil, fmt.Errorf("%w: %d exceeds %d", ErrMessageTooLarge, length, maxContentLength)
			}
			contentLength = length
		case "content-type":
			contentType = value
		}
	}

	if contentLength == 0 {
		return nil, ErrMissingContentLength
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &Message{
		ContentLength: contentLength,
		ContentType:   contentType,
		Content:       content,
	}, nil
}
