package proxy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// Transport is one side of a proxied connection. Callbacks must be installed
// before the transport starts pumping messages.
type Transport interface {
	Send(msg protocol.Message) error
	Close() error
	OnMessage(fn func(protocol.Message))
	OnClose(fn func())
	OnError(fn func(error))
}

// StdioTransport frames messages as newline-delimited JSON over a
// reader/writer pair. This is the MCP stdio framing.
type StdioTransport struct {
	mu         sync.Mutex
	reader     io.Reader
	writer     io.Writer
	closer     io.Closer
	closed     bool
	closeFired bool
	onMsg      func(protocol.Message)
	onClose    func()
	onError    func(error)
}

// NewStdioTransport wraps a reader/writer pair. closer may be nil.
func NewStdioTransport(r io.Reader, w io.Writer, closer io.Closer) *StdioTransport {
	return &StdioTransport{reader: r, writer: w, closer: closer}
}

func (t *StdioTransport) OnMessage(fn func(protocol.Message)) { t.onMsg = fn }
func (t *StdioTransport) OnClose(fn func())                   { t.onClose = fn }
func (t *StdioTransport) OnError(fn func(error))              { t.onError = fn }

// Start pumps inbound lines until EOF or close. It blocks; run it in a
// goroutine.
func (t *StdioTransport) Start() {
	scanner := bufio.NewScanner(t.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg protocol.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			if t.onError != nil {
				t.onError(fmt.Errorf("malformed message: %w", err))
			}
			continue
		}
		if t.onMsg != nil {
			t.onMsg(msg)
		}
	}
	if err := scanner.Err(); err != nil && t.onError != nil {
		t.onError(err)
	}
	t.fireClose()
}

func (t *StdioTransport) Send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var err error
	if t.closer != nil {
		err = t.closer.Close()
	}
	t.fireClose()
	return err
}

func (t *StdioTransport) fireClose() {
	t.mu.Lock()
	if t.closeFired {
		t.mu.Unlock()
		return
	}
	t.closeFired = true
	t.closed = true
	fn := t.onClose
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
