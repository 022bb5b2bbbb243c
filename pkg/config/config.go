// Package config loads the inspector configuration from a YAML file, with
// environment variable expansion and optional hot reload.
package config

import (
	"fmt"
	"time"

	"github.com/iamsonidarshan/mcp-inspector/pkg/llm"
	"github.com/iamsonidarshan/mcp-inspector/pkg/mcp"
)

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	MCP    mcp.Config   `yaml:"mcp"`
	LLM    llm.Config   `yaml:"llm"`
	Agent  AgentConfig  `yaml:"agent"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// AgentConfig configures the orchestrator.
type AgentConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 6274
	}
	if c.Agent.MaxDepth == 0 {
		c.Agent.MaxDepth = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.MCP.MaxRetries == 0 {
		c.MCP.MaxRetries = 3
	}
	if c.MCP.SSETimeout == 0 {
		c.MCP.SSETimeout = 5 * time.Minute
	}
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.MCP.URL == "" && c.MCP.Command == "" {
		return fmt.Errorf("mcp requires either url or command")
	}
	if c.Agent.MaxDepth < 1 {
		return fmt.Errorf("agent max_depth must be at least 1")
	}
	return nil
}
