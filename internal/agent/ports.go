package agent

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// SessionConfig is passed to ModelPortal.CreateSession when a new agent
// binding is established.
type SessionConfig struct {
	ModelID          string
	SystemPrompt     string
	AllowedTools     []string
	ToolManifest      []models.ToolManifestEntry
	ExecutionSettings ExecutionSettings
}

// ExecutionSettings are the sampling and tool-use settings for one session,
// selected by the Runner per §4.2 step 8.
type ExecutionSettings struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	ToolsOff    bool
}

// Frame is one increment of a ModelPortal.Invoke stream: the assistant text
// accumulated so far in this turn (each frame's text replaces the previous
// one), zero or more completed tool calls, and an optional finish reason.
type Frame struct {
	AssistantContent string
	ToolCalls        []models.ToolCall
	FinishReason     string
	Err              error
}

// ModelPortal is the external collaborator that turns a message history into
// model output. The core never talks to a provider transport directly.
type ModelPortal interface {
	CreateSession(ctx context.Context, cfg SessionConfig) (models.AgentBinding, error)
	Invoke(ctx context.Context, binding models.AgentBinding, history []models.Message) (<-chan Frame, error)
}

// ToolHandle is what ToolRegistry.Lookup returns: enough to describe and
// invoke one tool.
type ToolHandle struct {
	Name        string
	Description string
	Schema      []byte
	Invoke      func(ctx context.Context, args []byte) (string, error)
}

// ToolRegistry is the external port over the fixed tool function surface
// (bash, read_file, grep, glob, ... and the nested Task spawn tool). The
// core looks tools up by name and lists them to resolve the wildcard; it
// does not implement them.
type ToolRegistry interface {
	Lookup(name string) (ToolHandle, bool)
	// List enumerates every tool the registry can serve, used to resolve
	// the "*" wildcard allowlist into a concrete manifest.
	List() []ToolHandle
}

// OutputSink receives free-form advisory text lines, e.g. team progress
// headers. It must not be used as a correctness signal.
type OutputSink interface {
	Write(line string)
}

// ProgressReporter receives per-agent lifecycle and step progress events.
// Implementations must be safe for concurrent invocation: many sub-agents
// may report in parallel.
type ProgressReporter interface {
	OnAgentStarted(agentID string, task models.AgentTask)
	OnAgentProgress(agentID string, step int, elapsed float64, message string)
	OnAgentCompleted(agentID string, result models.AgentResult)
	OnAgentFailed(agentID string, result models.AgentResult)
}

// ToolCallObserver receives begin/end/fail events for every tool
// invocation mediated by the ToolCallInterceptor.
type ToolCallObserver interface {
	OnToolCallStarted(agentID string, event models.ToolCallEvent)
	OnToolCallCompleted(agentID string, event models.ToolCallEvent)
	OnToolCallFailed(agentID string, event models.ToolCallEvent)
}

// UserInteraction is the only port allowed to block for a human response,
// exposed to agents via the ask_question tool.
type UserInteraction interface {
	AskQuestion(ctx context.Context, question string) (string, error)
}

// AttachmentReader reads the content of a task attachment path. It is the
// narrow port standing in for the filesystem adapter; the core never opens
// a file descriptor itself.
type AttachmentReader interface {
	ReadFile(path string) (string, error)
}

// Observers bundles the four observer ports the Runner and TeamCoordinator
// notify. Any field may be nil, in which case that channel is a no-op.
type Observers struct {
	Output   OutputSink
	Progress ProgressReporter
	Tools    ToolCallObserver
	User     UserInteraction
}

func (o Observers) write(line string) {
	if o.Output != nil {
		o.Output.Write(line)
	}
}

func (o Observers) started(agentID string, task models.AgentTask) {
	if o.Progress != nil {
		o.Progress.OnAgentStarted(agentID, task)
	}
}

func (o Observers) progress(agentID string, step int, elapsed float64, message string) {
	if o.Progress != nil {
		o.Progress.OnAgentProgress(agentID, step, elapsed, message)
	}
}

func (o Observers) completed(agentID string, result models.AgentResult) {
	if o.Progress != nil {
		o.Progress.OnAgentCompleted(agentID, result)
	}
}

func (o Observers) failed(agentID string, result models.AgentResult) {
	if o.Progress != nil {
		o.Progress.OnAgentFailed(agentID, result)
	}
}

func (o Observers) toolStarted(agentID string, event models.ToolCallEvent) {
	if o.Tools != nil {
		o.Tools.OnToolCallStarted(agentID, event)
	}
}

func (o Observers) toolCompleted(agentID string, event models.ToolCallEvent) {
	if o.Tools != nil {
		o.Tools.OnToolCallCompleted(agentID, event)
	}
}

func (o Observers) toolFailed(agentID string, event models.ToolCallEvent) {
	if o.Tools != nil {
		o.Tools.OnToolCallFailed(agentID, event)
	}
}
