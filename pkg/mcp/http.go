package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamsonidarshan/mcp-inspector/pkg/httpclient"
	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// httpTransport speaks JSON-RPC over HTTP for the sse and streamable-http
// transports. Request ids are unique per session.
type httpTransport struct {
	url        string
	sseTimeout time.Duration
	client     *httpclient.Client

	nextID atomic.Int64

	mu        sync.RWMutex
	headers   map[string]string
	sessionID string
}

func newHTTPTransport(cfg Config) *httpTransport {
	return &httpTransport{
		url:        cfg.URL,
		sseTimeout: cfg.SSETimeout,
		headers:    cfg.Headers,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(2*time.Second),
		),
	}
}

func (t *httpTransport) setHeaders(headers map[string]string) {
	t.mu.Lock()
	t.headers = headers
	t.mu.Unlock()
}

func (t *httpTransport) initialize(ctx context.Context) error {
	resp, err := t.request(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("MCP init error: %s", resp.Error.Message)
	}
	slog.Info("Connected to MCP server (HTTP)", "url", t.url)
	return nil
}

func (t *httpTransport) listTools(ctx context.Context) ([]protocol.ToolInfo, error) {
	resp, err := t.request(ctx, protocol.MethodListTools, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP list error: %s", resp.Error.Message)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from tools/list")
	}
	rawTools, ok := resultMap["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing tools in tools/list response")
	}

	tools := make([]protocol.ToolInfo, 0, len(rawTools))
	for _, raw := range rawTools {
		toolMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		tools = append(tools, protocol.ParseToolInfo(toolMap))
	}
	return tools, nil
}

func (t *httpTransport) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	resp, err := t.request(ctx, protocol.MethodCallTool, map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP call error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// request sends one JSON-RPC request and reads either a JSON body or the
// first complete event of an SSE stream.
func (t *httpTransport) request(ctx context.Context, method string, params any) (*protocol.Response, error) {
	body, err := json.Marshal(protocol.Request{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")

	t.mu.RLock()
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	if t.sessionID != "" {
		httpReq.Header.Set("mcp-session-id", t.sessionID)
	}
	t.mu.RUnlock()

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if sessionID := httpResp.Header.Get("mcp-session-id"); sessionID != "" {
		t.mu.Lock()
		t.sessionID = sessionID
		t.mu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(responseBody))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return t.readSSEResponse(httpResp)
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// readSSEResponse reads the first complete JSON-RPC response from an SSE
// stream.
func (t *httpTransport) readSSEResponse(httpResp *http.Response) (*protocol.Response, error) {
	type result struct {
		response *protocol.Response
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		defer httpResp.Body.Close()

		reader := bufio.NewReader(httpResp.Body)
		var currentData strings.Builder

		flush := func() *protocol.Response {
			if currentData.Len() == 0 {
				return nil
			}
			var resp protocol.Response
			if err := json.Unmarshal([]byte(currentData.String()), &resp); err == nil {
				return &resp
			}
			currentData.Reset()
			return nil
		}

		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err != io.EOF {
					slog.Debug("SSE read error", "url", t.url, "error", err)
				}
				break
			}

			lineStr := strings.TrimSpace(string(line))
			if lineStr == "" {
				if resp := flush(); resp != nil {
					resultChan <- result{response: resp}
					return
				}
				continue
			}
			if strings.HasPrefix(lineStr, "data:") {
				currentData.WriteString(strings.TrimSpace(strings.TrimPrefix(lineStr, "data:")))
			}
		}

		if resp := flush(); resp != nil {
			resultChan <- result{response: resp}
			return
		}
		resultChan <- result{err: fmt.Errorf("SSE stream ended without complete message")}
	}()

	select {
	case res := <-resultChan:
		return res.response, res.err
	case <-time.After(t.sseTimeout):
		return nil, fmt.Errorf("timeout reading SSE response after %v", t.sseTimeout)
	}
}
