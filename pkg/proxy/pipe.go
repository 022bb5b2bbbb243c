package proxy

import (
	"fmt"
	"sync"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// PipeTransport is an in-memory transport. Send delivers synchronously to the
// peer's message hook. It exists for wiring two components in-process and for
// exercising the interceptor without real connections.
type PipeTransport struct {
	mu      sync.Mutex
	peer    *PipeTransport
	closed  bool
	sendErr error
	onMsg   func(protocol.Message)
	onClose func()
	onError func(error)
}

// NewPipe returns two connected transports.
func NewPipe() (*PipeTransport, *PipeTransport) {
	a := &PipeTransport{}
	b := &PipeTransport{}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *PipeTransport) OnMessage(fn func(protocol.Message)) { t.onMsg = fn }
func (t *PipeTransport) OnClose(fn func())                   { t.onClose = fn }
func (t *PipeTransport) OnError(fn func(error))              { t.onError = fn }

// FailSends makes every subsequent Send return err.
func (t *PipeTransport) FailSends(err error) {
	t.mu.Lock()
	t.sendErr = err
	t.mu.Unlock()
}

func (t *PipeTransport) Send(msg protocol.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	if t.sendErr != nil {
		err := t.sendErr
		t.mu.Unlock()
		return err
	}
	peer := t.peer
	t.mu.Unlock()

	if peer != nil && peer.onMsg != nil {
		peer.onMsg(msg)
	}
	return nil
}

func (t *PipeTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	fn := t.onClose
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Closed reports whether Close has been called.
func (t *PipeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
