package proxy

import (
	"log/slog"
	"sync"

	"github.com/iamsonidarshan/mcp-inspector/pkg/indexer"
	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// CodeSendFailed is returned to the client when forwarding a request to the
// server fails.
const CodeSendFailed = -32001

// pendingRequest remembers what a client request was, keyed by id, until the
// matching server response arrives.
type pendingRequest struct {
	method   string
	toolName string
}

// Interceptor bridges a client transport and a server transport, observing
// tool-call traffic on the way through.
type Interceptor struct {
	mu      sync.Mutex
	client  Transport
	server  Transport
	pending map[string]pendingRequest

	indexer  *indexer.Indexer
	profiles *profile.Store

	clientOpen bool
	serverOpen bool
}

// NewInterceptor wires the two transports together. indexer and profiles may
// be nil, in which case tool-call results are only forwarded.
func NewInterceptor(client, server Transport, idx *indexer.Indexer, profiles *profile.Store) *Interceptor {
	return &Interceptor{
		client:     client,
		server:     server,
		pending:    make(map[string]pendingRequest),
		indexer:    idx,
		profiles:   profiles,
		clientOpen: true,
		serverOpen: true,
	}
}

// Start installs the message and close hooks on both transports.
func (p *Interceptor) Start() {
	p.client.OnMessage(p.handleClientMessage)
	p.server.OnMessage(p.handleServerMessage)
	p.client.OnClose(func() { p.halfClose(true) })
	p.server.OnClose(func() { p.halfClose(false) })
	p.client.OnError(func(err error) {
		slog.Warn("Client transport error", "error", err)
	})
	p.server.OnError(func(err error) {
		slog.Warn("Server transport error", "error", err)
	})
}

func (p *Interceptor) handleClientMessage(msg protocol.Message) {
	if msg.IsRequest() && msg.ID() != nil {
		entry := pendingRequest{method: msg.Method()}
		if entry.method == protocol.MethodCallTool {
			entry.toolName = msg.ToolName()
		}
		p.mu.Lock()
		p.pending[msg.IDKey()] = entry
		p.mu.Unlock()
	}

	if err := p.server.Send(msg); err != nil {
		p.mu.Lock()
		delete(p.pending, msg.IDKey())
		clientOpen := p.clientOpen
		p.mu.Unlock()

		slog.Warn("Failed to forward request to server", "method", msg.Method(), "error", err)
		if msg.IsRequest() && msg.ID() != nil && clientOpen {
			reply := protocol.NewErrorResponse(msg.ID(), CodeSendFailed, err.Error(), err.Error())
			if sendErr := p.client.Send(reply); sendErr != nil {
				slog.Warn("Failed to deliver error response to client", "error", sendErr)
			}
		}
	}
}

func (p *Interceptor) handleServerMessage(msg protocol.Message) {
	if msg.IsResponse() {
		p.mu.Lock()
		entry, ok := p.pending[msg.IDKey()]
		if ok {
			delete(p.pending, msg.IDKey())
		}
		p.mu.Unlock()

		if ok && entry.method == protocol.MethodCallTool && msg.Result() != nil {
			p.indexResult(entry.toolName, msg.Result())
		}
	}

	if err := p.client.Send(msg); err != nil {
		slog.Warn("Failed to forward response to client", "error", err)
	}
}

// indexResult feeds an observed tool-call result to the resource indexer
// under the active profile.
func (p *Interceptor) indexResult(toolName string, result any) {
	if p.indexer == nil {
		return
	}
	userID := ""
	if p.profiles != nil {
		userID = p.profiles.ActiveID()
	}
	added := p.indexer.IndexResponse(userID, toolName, result)
	if len(added) > 0 {
		slog.Info("Indexed resources from proxied call", "tool", toolName, "count", len(added))
	}
}

// halfClose propagates a close from one side to the other and drops all
// correlation state.
func (p *Interceptor) halfClose(fromClient bool) {
	p.mu.Lock()
	var other Transport
	if fromClient {
		p.clientOpen = false
		if p.serverOpen {
			p.serverOpen = false
			other = p.server
		}
	} else {
		p.serverOpen = false
		if p.clientOpen {
			p.clientOpen = false
			other = p.client
		}
	}
	p.pending = make(map[string]pendingRequest)
	p.mu.Unlock()

	if other != nil {
		if err := other.Close(); err != nil {
			slog.Warn("Failed to close peer transport", "error", err)
		}
	}
}

// PendingCount reports the number of unanswered requests.
func (p *Interceptor) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
