// Command mcp-inspector inspects tool-invocation servers. It can run as an
// HTTP control surface driving an autonomous agent, or as a stdio proxy
// between a client and a downstream server.
//
// Usage:
//
//	mcp-inspector serve --config config.yaml
//	mcp-inspector serve --mcp-url http://localhost:3000/mcp --provider anthropic
//	mcp-inspector proxy -- npx some-mcp-server --flag
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/iamsonidarshan/mcp-inspector/pkg/agent"
	"github.com/iamsonidarshan/mcp-inspector/pkg/config"
	"github.com/iamsonidarshan/mcp-inspector/pkg/indexer"
	"github.com/iamsonidarshan/mcp-inspector/pkg/logger"
	"github.com/iamsonidarshan/mcp-inspector/pkg/mcp"
	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
	"github.com/iamsonidarshan/mcp-inspector/pkg/proxy"
	"github.com/iamsonidarshan/mcp-inspector/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP control surface."`
	Proxy   ProxyCmd   `cmd:"" help:"Run as a stdio proxy in front of a downstream server."`
	Schema  SchemaCmd  `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("mcp-inspector version %s\n", version)
	return nil
}

// ServeCmd starts the control surface.
type ServeCmd struct {
	MCPURL     string `name:"mcp-url" help:"Downstream MCP server URL."`
	MCPCommand string `name:"mcp-command" help:"Downstream MCP server command (stdio transport)."`
	Provider   string `help:"LLM provider (anthropic, gemini, openai)."`
	Model      string `help:"Model name."`
	APIKey     string `name:"api-key" help:"LLM API key (defaults to environment variable)."`
	MaxDepth   int    `name:"max-depth" help:"Maximum agent chaining depth." default:"0"`
	Port       int    `help:"Port to listen on." default:"0"`
	Watch      bool   `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(cancel)

	cfg, err := c.loadConfig(cli.Config)
	if err != nil {
		return err
	}

	stateDir, err := profile.DefaultDir()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	profiles, err := profile.NewStore(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	idx, err := indexer.New(stateDir, profiles)
	if err != nil {
		return fmt.Errorf("failed to open resource index: %w", err)
	}

	mcpClient, err := mcp.NewClient(cfg.MCP)
	if err != nil {
		return fmt.Errorf("invalid mcp configuration: %w", err)
	}
	defer mcpClient.Close()

	orch := agent.New()
	srv := server.New(cfg, orch, profiles, idx, mcpClient)

	if c.Watch && cli.Config != "" {
		go func() {
			err := config.Watch(ctx, cli.Config, func(updated *config.Config) {
				slog.Info("Config changed; restart to apply server settings")
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	return srv.Run(ctx)
}

func (c *ServeCmd) loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
	}

	// CLI flags override file settings.
	if c.MCPURL != "" {
		cfg.MCP.URL = c.MCPURL
	}
	if c.MCPCommand != "" {
		cfg.MCP.Command = c.MCPCommand
	}
	if c.Provider != "" {
		cfg.LLM.Provider = c.Provider
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.APIKey != "" {
		cfg.LLM.APIKey = c.APIKey
	}
	if c.MaxDepth != 0 {
		cfg.Agent.MaxDepth = c.MaxDepth
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// ProxyCmd bridges stdio between the invoking client and a downstream server
// subprocess, observing traffic on the way through.
type ProxyCmd struct {
	Command string   `arg:"" help:"Downstream server command."`
	Args    []string `arg:"" optional:"" help:"Downstream server arguments."`
}

func (c *ProxyCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(cancel)

	stateDir, err := profile.DefaultDir()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	profiles, err := profile.NewStore(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	idx, err := indexer.New(stateDir, profiles)
	if err != nil {
		return fmt.Errorf("failed to open resource index: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Stderr = os.Stderr
	serverIn, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open server stdin: %w", err)
	}
	serverOut, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open server stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start downstream server: %w", err)
	}

	clientTransport := proxy.NewStdioTransport(os.Stdin, os.Stdout, nil)
	serverTransport := proxy.NewStdioTransport(serverOut, serverIn, serverIn)

	interceptor := proxy.NewInterceptor(clientTransport, serverTransport, idx, profiles)
	interceptor.Start()

	go serverTransport.Start()
	slog.Info("Proxying stdio", "command", c.Command)
	clientTransport.Start()

	cancel()
	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		slog.Warn("Downstream server exited with error", "error", err)
	}
	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("mcp-inspector"),
		kong.Description("Interactive inspector and autonomous driver for MCP tool servers."),
		kong.UsageOnError(),
	)

	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	output := os.Stderr
	var closeLog func()
	if cli.LogFile != "" {
		file, closer, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		output = file
		closeLog = closer
	}
	logger.Init(logger.ParseLevel(cli.LogLevel), output, cli.LogFormat)
	if closeLog != nil {
		defer closeLog()
	}

	if err := kctx.Run(cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
