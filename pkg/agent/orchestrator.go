package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iamsonidarshan/mcp-inspector/pkg/graph"
	"github.com/iamsonidarshan/mcp-inspector/pkg/llm"
	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// DefaultMaxDepth bounds a run when the configuration does not set one.
const DefaultMaxDepth = 10

// ListToolsFunc fetches the downstream tool catalog.
type ListToolsFunc func(ctx context.Context) ([]protocol.ToolInfo, error)

// ToolCallFunc invokes one downstream tool.
type ToolCallFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// Config wires an orchestrator to its LLM and downstream callbacks.
type Config struct {
	Provider  llm.Provider
	ListTools ListToolsFunc
	CallTool  ToolCallFunc
	MaxDepth  int
}

// Orchestrator runs the autonomous tool-chaining loop. One orchestrator owns
// one graph and one run at a time; all state mutation happens under mu.
type Orchestrator struct {
	mu   sync.Mutex
	cond *sync.Cond

	provider  llm.Provider
	listTools ListToolsFunc
	callTool  ToolCallFunc
	maxDepth  int

	status       Status
	tools        []protocol.ToolInfo
	analysis     []llm.DependencyAnalysis
	history      []ExecutionStep
	currentDepth int
	flagged      []FlaggedTool
	startTime    *int64
	endTime      *int64
	lastError    string

	// toolDepths keeps the first recorded depth per tool name. Re-selection
	// of a tool reuses it.
	toolDepths map[string]int
	executed   []string

	graph *graph.Graph
	bus   *Bus

	// runID invalidates late results from abandoned runs.
	runID  int
	cancel context.CancelFunc
}

func New() *Orchestrator {
	o := &Orchestrator{
		status:     StatusIdle,
		maxDepth:   DefaultMaxDepth,
		toolDepths: make(map[string]int),
		graph:      graph.New(),
		bus:        NewBus(),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Configure sets the provider, callbacks and depth bound. It may be called
// repeatedly between runs but not during one.
func (o *Orchestrator) Configure(cfg Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == StatusRunning || o.status == StatusPaused {
		return fmt.Errorf("cannot reconfigure while agent is %s", o.status)
	}
	if cfg.Provider == nil {
		return fmt.Errorf("LLM provider is required")
	}
	if cfg.ListTools == nil || cfg.CallTool == nil {
		return fmt.Errorf("tool callbacks are required")
	}

	o.provider = cfg.Provider
	o.listTools = cfg.ListTools
	o.callTool = cfg.CallTool
	o.maxDepth = cfg.MaxDepth
	if o.maxDepth <= 0 {
		o.maxDepth = DefaultMaxDepth
	}
	return nil
}

// Start resets all run state and launches the execution loop.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.provider == nil {
		return fmt.Errorf("agent is not configured")
	}
	if o.status == StatusRunning || o.status == StatusPaused {
		return fmt.Errorf("agent is already %s", o.status)
	}

	o.tools = nil
	o.analysis = nil
	o.history = nil
	o.flagged = nil
	o.executed = nil
	o.toolDepths = make(map[string]int)
	o.currentDepth = 0
	o.lastError = ""
	o.endTime = nil
	now := time.Now().UnixMilli()
	o.startTime = &now
	o.graph.Reset()

	o.runID++
	run := o.runID
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.setStatusLocked(StatusRunning)
	go o.run(ctx, run)
	return nil
}

// Pause halts the loop at its next iteration boundary. The in-flight call,
// if any, completes first.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusRunning {
		return fmt.Errorf("agent is not running")
	}
	o.setStatusLocked(StatusPaused)
	return nil
}

// Resume re-enters a paused loop.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusPaused {
		return fmt.Errorf("agent is not paused")
	}
	o.setStatusLocked(StatusRunning)
	o.cond.Broadcast()
	return nil
}

// Stop abandons the current run. Late results from in-flight calls are
// discarded.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusRunning && o.status != StatusPaused {
		return fmt.Errorf("agent is not running")
	}
	o.runID++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	now := time.Now().UnixMilli()
	o.endTime = &now
	o.setStatusLocked(StatusIdle)
	o.cond.Broadcast()
	return nil
}

// GetState returns a snapshot of the current run.
func (o *Orchestrator) GetState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Subscribe attaches an event listener. The current state is replayed first
// as a synthetic state event.
func (o *Orchestrator) Subscribe() (<-chan AgentEvent, func()) {
	o.mu.Lock()
	snapshot := o.stateLocked()
	o.mu.Unlock()

	return o.bus.Subscribe(AgentEvent{
		Type:      EventState,
		Data:      map[string]any{"state": snapshot},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (o *Orchestrator) stateLocked() State {
	history := make([]ExecutionStep, len(o.history))
	copy(history, o.history)
	flagged := make([]FlaggedTool, len(o.flagged))
	copy(flagged, o.flagged)

	return State{
		Status:           o.status,
		Tools:            o.tools,
		Analysis:         o.analysis,
		ExecutionHistory: history,
		CurrentStep:      len(o.history),
		CurrentDepth:     o.currentDepth,
		MaxDepth:         o.maxDepth,
		FlaggedTools:     flagged,
		Graph:            o.graph.Serialize(),
		StartTime:        o.startTime,
		EndTime:          o.endTime,
		Error:            o.lastError,
	}
}

func (o *Orchestrator) setStatusLocked(s Status) {
	o.status = s
	o.bus.Publish(EventStatusChange, map[string]any{"status": string(s)})
}

// run is the execution loop. Every re-entry after a suspension point checks
// that this run is still the live one.
func (o *Orchestrator) run(ctx context.Context, run int) {
	tools, err := o.listTools(ctx)
	if err != nil {
		o.fail(run, fmt.Errorf("tool discovery failed: %w", err))
		return
	}

	o.mu.Lock()
	if o.runID != run {
		o.mu.Unlock()
		return
	}
	o.tools = tools
	o.mu.Unlock()

	analysis := o.provider.AnalyzeToolDependencies(ctx, tools)

	o.mu.Lock()
	if o.runID != run {
		o.mu.Unlock()
		return
	}
	o.analysis = analysis
	o.bus.Publish(EventAnalysisComplete, map[string]any{"analysis": analysis})
	o.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}

		o.mu.Lock()
		for o.runID == run && o.status == StatusPaused {
			o.cond.Wait()
		}
		if o.runID != run || o.status != StatusRunning {
			o.mu.Unlock()
			return
		}
		executed := make([]string, len(o.executed))
		copy(executed, o.executed)
		currentDepth := o.currentDepth
		maxDepth := o.maxDepth
		o.mu.Unlock()

		toolContext := o.graph.AvailableContext()

		pick := o.provider.SelectNextTool(ctx, tools, executed, toolContext, currentDepth, maxDepth)
		if !o.alive(run) {
			return
		}
		if pick.Tool == "" {
			slog.Info("Agent loop finished", "reason", pick.Reason)
			break
		}
		if contains(executed, pick.Tool) {
			continue
		}

		o.mu.Lock()
		o.executed = append(o.executed, pick.Tool)
		o.mu.Unlock()

		tool, ok := findTool(tools, pick.Tool)
		if !ok {
			slog.Warn("Selected tool is not in the catalog", "tool", pick.Tool)
			continue
		}

		nodeID := o.graph.AddPendingTool(tool.Name)

		ext := o.provider.ExtractParameters(ctx, tool, toolContext)
		if !o.alive(run) {
			return
		}

		if len(ext.MissingParams) > 0 && ext.Confidence < 0.5 {
			o.skip(run, tool.Name, nodeID, "Could not resolve required parameters from available context", ext.MissingParams)
			continue
		}

		toolDepth := o.recordDepth(tool.Name, ext.Sources)
		if toolDepth > maxDepth {
			reason := fmt.Sprintf("Exceeds max depth (%d > %d)", toolDepth, maxDepth)
			o.skip(run, tool.Name, nodeID, reason, ext.MissingParams)
			continue
		}

		resolved := o.resolveSources(ext.Sources)

		o.mu.Lock()
		if o.runID != run {
			o.mu.Unlock()
			return
		}
		if toolDepth > o.currentDepth {
			o.currentDepth = toolDepth
		}
		step := ExecutionStep{
			ToolName:         tool.Name,
			NodeID:           nodeID,
			Parameters:       ext.Params,
			ParameterSources: resolved,
			Status:           StepRunning,
			Timestamp:        time.Now().UnixMilli(),
			Depth:            toolDepth,
		}
		o.history = append(o.history, step)
		stepIndex := len(o.history) - 1
		o.graph.MarkToolRunning(nodeID, ext.Params)
		o.bus.Publish(EventToolStart, map[string]any{
			"tool":       tool.Name,
			"nodeId":     nodeID,
			"parameters": ext.Params,
			"depth":      toolDepth,
		})
		o.mu.Unlock()

		result, callErr := o.callTool(ctx, tool.Name, ext.Params)

		o.mu.Lock()
		if o.runID != run {
			o.mu.Unlock()
			return
		}
		if callErr != nil {
			o.history[stepIndex].Status = StepFailed
			o.history[stepIndex].Error = callErr.Error()
			o.graph.MarkToolFailed(nodeID, callErr.Error())
			o.bus.Publish(EventToolFailed, map[string]any{
				"tool":   tool.Name,
				"nodeId": nodeID,
				"error":  callErr.Error(),
			})
		} else {
			o.history[stepIndex].Status = StepCompleted
			o.history[stepIndex].Result = result
			o.graph.RecordToolExecution(nodeID, result, resolved)
			o.bus.Publish(EventToolComplete, map[string]any{
				"tool":   tool.Name,
				"nodeId": nodeID,
				"result": result,
			})
		}
		o.mu.Unlock()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != run {
		return
	}
	now := time.Now().UnixMilli()
	o.endTime = &now
	o.status = StatusCompleted
	o.bus.Publish(EventStatusChange, map[string]any{"status": string(StatusCompleted)})

	completed, failed := 0, 0
	for _, s := range o.history {
		switch s.Status {
		case StepCompleted:
			completed++
		case StepFailed:
			failed++
		}
	}
	o.bus.Publish(EventAgentComplete, map[string]any{
		"executed": completed,
		"failed":   failed,
		"flagged":  len(o.flagged),
		"steps":    len(o.history),
	})
}

// alive reports whether run is still the live one.
func (o *Orchestrator) alive(run int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID == run
}

func (o *Orchestrator) fail(run int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != run {
		return
	}
	slog.Error("Agent run failed", "error", err)
	now := time.Now().UnixMilli()
	o.endTime = &now
	o.lastError = err.Error()
	o.setStatusLocked(StatusError)
	o.bus.Publish(EventError, map[string]any{"error": err.Error()})
}

// skip flags a tool, marks its node skipped and records a skipped step.
func (o *Orchestrator) skip(run int, toolName, nodeID, reason string, missing []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != run {
		return
	}

	o.flagged = append(o.flagged, FlaggedTool{Tool: toolName, Reason: reason})
	o.graph.MarkToolSkipped(nodeID, reason, missing)

	depth := o.currentDepth
	if depth < 1 {
		depth = 1
	}
	o.history = append(o.history, ExecutionStep{
		ToolName:  toolName,
		NodeID:    nodeID,
		Status:    StepSkipped,
		Error:     reason,
		Timestamp: time.Now().UnixMilli(),
		Depth:     depth,
	})

	o.bus.Publish(EventToolSkipped, map[string]any{
		"tool":          toolName,
		"nodeId":        nodeID,
		"reason":        reason,
		"missingParams": missing,
	})
}

// recordDepth computes 1 + max depth of the source tools and keeps the first
// recorded value per tool name.
func (o *Orchestrator) recordDepth(toolName string, sources map[string]string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	maxSource := 0
	for _, label := range sources {
		sourceTool := label
		if i := strings.Index(label, "."); i >= 0 {
			sourceTool = label[:i]
		}
		if d, ok := o.toolDepths[sourceTool]; ok && d > maxSource {
			maxSource = d
		}
	}
	depth := 1 + maxSource
	if _, ok := o.toolDepths[toolName]; !ok {
		o.toolDepths[toolName] = depth
	} else {
		depth = o.toolDepths[toolName]
	}
	return depth
}

// resolveSources maps each parameter's source label to a concrete node id.
// Parameters whose source tool has no node are dropped.
func (o *Orchestrator) resolveSources(sources map[string]string) map[string]string {
	resolved := make(map[string]string, len(sources))
	for param, label := range sources {
		sourceTool := label
		if i := strings.Index(label, "."); i >= 0 {
			sourceTool = label[:i]
		}
		if nodeID, ok := o.graph.NodeIDForTool(sourceTool); ok {
			resolved[param] = nodeID
		}
	}
	return resolved
}

func findTool(tools []protocol.ToolInfo, name string) (protocol.ToolInfo, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return protocol.ToolInfo{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
