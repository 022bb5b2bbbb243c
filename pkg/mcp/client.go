// Package mcp connects to the downstream tool server. It speaks JSON-RPC 2.0
// with tools/list and tools/call over either a stdio subprocess or HTTP.
//
// Transport support:
//   - stdio: uses the mcp-go library for subprocess communication
//   - sse, streamable-http: uses the retrying httpclient
//
// Unlike a chat-oriented integration, call results are returned as the raw
// envelope so downstream consumers can run identifier extraction over them.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "mcp-inspector"
	clientVersion   = "0.1.0"

	// DefaultSSETimeout bounds reading one SSE response. Long-running tools
	// need generous headroom.
	DefaultSSETimeout = 5 * time.Minute
)

// Config selects and parameterizes the downstream connection.
type Config struct {
	URL        string            `yaml:"url" json:"url"`
	Transport  string            `yaml:"transport" json:"transport"`
	Command    string            `yaml:"command" json:"command"`
	Args       []string          `yaml:"args" json:"args"`
	Env        map[string]string `yaml:"env" json:"env"`
	Headers    map[string]string `yaml:"headers" json:"headers"`
	MaxRetries int               `yaml:"max_retries" json:"max_retries"`
	SSETimeout time.Duration     `yaml:"sse_timeout" json:"sse_timeout"`
}

// Client is a lazily-connecting downstream tool client.
type Client struct {
	cfg Config

	mu        sync.Mutex
	stdio     *client.Client
	http      *httpTransport
	connected bool
}

// NewClient validates the config. The connection is established on first use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" && cfg.Command == "" {
		return nil, fmt.Errorf("either url or command is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SSETimeout == 0 {
		cfg.SSETimeout = DefaultSSETimeout
	}
	return &Client{cfg: cfg}, nil
}

// SetHeaders replaces the outbound header set for HTTP transports. Used to
// inject the active profile's credentials.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Headers = headers
	if c.http != nil {
		c.http.setHeaders(headers)
	}
}

func (c *Client) connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	if c.cfg.Command != "" || c.cfg.Transport == "stdio" {
		return c.connectStdio(ctx)
	}
	c.http = newHTTPTransport(c.cfg)
	c.connected = true
	return c.http.initialize(ctx)
}

func (c *Client) connectStdio(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(c.cfg.Command, convertEnv(c.cfg.Env), c.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	c.stdio = mcpClient
	c.connected = true
	slog.Info("Connected to MCP server (stdio)", "command", c.cfg.Command)
	return nil
}

// ListTools fetches the downstream tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	if c.stdio != nil {
		return c.listToolsStdio(ctx)
	}
	return c.http.listTools(ctx)
}

func (c *Client) listToolsStdio(ctx context.Context) ([]protocol.ToolInfo, error) {
	resp, err := c.stdio.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]protocol.ToolInfo, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		raw := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": schemaToMap(t.InputSchema),
		}
		tools = append(tools, protocol.ParseToolInfo(raw))
	}
	return tools, nil
}

// CallTool invokes one tool and returns the raw envelope result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	if c.stdio != nil {
		return c.callToolStdio(ctx, name, args)
	}
	return c.http.callTool(ctx, name, args)
}

func (c *Client) callToolStdio(ctx context.Context, name string, args map[string]any) (any, error) {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.stdio.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	return envelopeFromResult(resp), nil
}

// envelopeFromResult rebuilds the wire-shaped envelope from the typed result.
func envelopeFromResult(resp *mcpgo.CallToolResult) map[string]any {
	content := make([]any, 0, len(resp.Content))
	for _, item := range resp.Content {
		if text, ok := item.(mcpgo.TextContent); ok {
			content = append(content, map[string]any{
				"type": "text",
				"text": text.Text,
			})
		}
	}
	envelope := map[string]any{"content": content}
	if resp.IsError {
		envelope["isError"] = true
	}
	return envelope
}

// Close tears down the connection. The client reconnects on next use.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.stdio != nil {
		err := c.stdio.Close()
		c.stdio = nil
		return err
	}
	c.http = nil
	return nil
}

func convertEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

func schemaToMap(schema mcpgo.ToolInputSchema) map[string]any {
	props := make(map[string]any, len(schema.Properties))
	for k, v := range schema.Properties {
		props[k] = v
	}
	out := map[string]any{
		"type":       schema.Type,
		"properties": props,
	}
	if len(schema.Required) > 0 {
		required := make([]any, 0, len(schema.Required))
		for _, r := range schema.Required {
			required = append(required, r)
		}
		out["required"] = required
	}
	return out
}
