package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/agentcore/internal/idgen"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

const attachmentTruncateLimit = 10000

// RunnerConfig is the construction-time configuration the core reads,
// per §6: provider configs, the default provider, per-agent-type provider
// overrides and the working directory label used in system prompts. The
// registry's idle TTL is configured separately, through RegistryConfig.
// Everything else (dotenv loading, CLI parsing, settings persistence) is
// adapter concern and never reaches here.
type RunnerConfig struct {
	// ProviderConfigs maps a provider name to its ModelPortal.
	ProviderConfigs map[string]ModelPortal
	// DefaultProvider is used when no tier/override applies.
	DefaultProvider string
	// FastProvider, if set, is preferred when task.ModelTier == "fast".
	FastProvider string
	// AgentProviderOverrides maps an agent type to a provider name.
	AgentProviderOverrides map[models.AgentType]string
	// WorkDir is interpolated into the system prompt.
	WorkDir string
	// Catalog overrides the default agent-type catalog; nil uses
	// models.DefaultCatalog.
	Catalog map[models.AgentType]models.AgentTypeSpec
	// Attachments reads attachment file contents; nil disables inlining
	// (attachments are dropped with an error marker).
	Attachments AttachmentReader
}

func (c RunnerConfig) catalog() map[models.AgentType]models.AgentTypeSpec {
	if c.Catalog != nil {
		return c.Catalog
	}
	return models.DefaultCatalog
}

// SubAgentRunner creates or resumes a single agent and drives its chat loop
// to completion or cancellation. It never holds the registry lock across a
// ModelPortal call: all registry interaction goes through Registry's own
// locking.
type SubAgentRunner struct {
	registry    *Registry
	tools       ToolRegistry
	interceptor *ToolCallInterceptor
	observers   Observers
	cfg         RunnerConfig
	tracer      *observability.Tracer
	metrics     *observability.Metrics
}

// NewSubAgentRunner wires a Runner from its collaborators. The nested Task
// tool (spawning a sub-agent from within another agent's tool call) is
// bound to this Runner after both have been constructed; the ToolRegistry
// itself only ever sees the tool wrapper, never the Runner.
func NewSubAgentRunner(registry *Registry, tools ToolRegistry, observers Observers, cfg RunnerConfig) *SubAgentRunner {
	interceptor := NewToolCallInterceptor(tools, registry, observers)
	return &SubAgentRunner{
		registry:    registry,
		tools:       tools,
		interceptor: interceptor,
		observers:   observers,
		cfg:         cfg,
	}
}

// WithObservability attaches optional tracing and metrics to the runner and
// the tool-call interceptor it owns; either argument may be nil.
func (r *SubAgentRunner) WithObservability(tracer *observability.Tracer, metrics *observability.Metrics) *SubAgentRunner {
	r.tracer = tracer
	r.metrics = metrics
	r.interceptor.WithObservability(tracer, metrics)
	return r
}

// Run dispatches by task.ResumeAgentID: a set id resumes an existing agent,
// otherwise a new one is created.
func (r *SubAgentRunner) Run(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	if task.ResumeAgentID != "" {
		return r.resume(ctx, task, cancel)
	}
	return r.runNew(ctx, task, cancel)
}

func (r *SubAgentRunner) runNew(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	spec, ok := r.cfg.catalog()[task.AgentType]
	if !ok {
		return models.AgentResult{IsError: true, Output: fmt.Sprintf("Unknown agent type %q", task.AgentType)}
	}

	portal, _, err := r.resolveProvider(task)
	if err != nil {
		return models.AgentResult{IsError: true, Output: err.Error()}
	}

	agentID := idgen.AgentID()
	allowedTools := AllowedTools(task, spec)
	readOnly := EffectiveReadOnly(task, spec)

	systemPrompt := buildSystemPrompt(task, spec, r.cfg.WorkDir, readOnly)
	firstMessage := r.buildFirstUserMessage(task)

	instance := models.AgentInstance{
		Type:        task.AgentType,
		Description: task.Description,
		ReadOnly:    readOnly,
		ModelTier:   task.ModelTier,
		Status:      models.StatusPending,
		History: []models.Message{
			{Role: models.RoleSystem, Content: systemPrompt, CreatedAt: time.Now()},
		},
	}
	if err := r.registry.Register(agentID, instance); err != nil {
		return models.AgentResult{IsError: true, Output: err.Error()}
	}
	if err := r.registry.UpdateStatus(agentID, models.StatusRunning); err != nil {
		return models.AgentResult{IsError: true, Output: err.Error()}
	}
	r.registry.AppendHistory(agentID, models.Message{Role: models.RoleUser, Content: firstMessage, CreatedAt: time.Now()})
	r.observers.started(agentID, task)

	settings := executionSettingsFor(spec)
	binding, err := portal.CreateSession(ctx, SessionConfig{
		ModelID:           string(task.ModelTier),
		SystemPrompt:      systemPrompt,
		AllowedTools:      allowedTools,
		ToolManifest:      r.buildToolManifest(allowedTools),
		ExecutionSettings: settings,
	})
	if err != nil {
		return r.fail(agentID, err, nil)
	}
	r.registry.SetBinding(agentID, binding)

	return r.driveChatLoop(ctx, agentID, task, cancel)
}

func (r *SubAgentRunner) resume(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	agentID := task.ResumeAgentID
	if _, ok := r.registry.TryGet(agentID); !ok {
		return models.AgentResult{AgentID: agentID, IsError: true, Output: fmt.Sprintf("no agent with id %q to resume", agentID)}
	}

	if err := r.registry.UpdateStatus(agentID, models.StatusRunning); err != nil {
		return models.AgentResult{AgentID: agentID, IsError: true, Output: err.Error()}
	}
	r.observers.started(agentID, task)
	r.registry.AppendHistory(agentID, models.Message{Role: models.RoleUser, Content: task.Prompt, CreatedAt: time.Now()})

	return r.driveChatLoop(ctx, agentID, task, cancel)
}

func (r *SubAgentRunner) resolveProvider(task models.AgentTask) (ModelPortal, string, error) {
	if task.ModelTier == models.ModelTierFast && r.cfg.FastProvider != "" {
		if p, ok := r.cfg.ProviderConfigs[r.cfg.FastProvider]; ok {
			return p, r.cfg.FastProvider, nil
		}
	}
	if name, ok := r.cfg.AgentProviderOverrides[task.AgentType]; ok {
		if p, ok := r.cfg.ProviderConfigs[name]; ok {
			return p, name, nil
		}
	}
	if p, ok := r.cfg.ProviderConfigs[r.cfg.DefaultProvider]; ok {
		return p, r.cfg.DefaultProvider, nil
	}
	return nil, "", fmt.Errorf("no provider configured for agent type %q", task.AgentType)
}

func buildSystemPrompt(task models.AgentTask, spec models.AgentTypeSpec, workDir string, readOnly bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s subagent at %s.", task.AgentType, workDir)
	b.WriteString(" ")
	b.WriteString(spec.SystemPrompt)
	if readOnly {
		b.WriteString(" You are running in read-only mode: you must not modify any file or external state.")
	}
	b.WriteString(" Complete the task and return a clear, concise summary.")
	return b.String()
}

func (r *SubAgentRunner) buildFirstUserMessage(task models.AgentTask) string {
	if len(task.Attachments) == 0 {
		return task.Prompt
	}

	var b strings.Builder
	b.WriteString(task.Prompt)
	b.WriteString("\n--- Attached Files ---\n")
	for _, path := range task.Attachments {
		fmt.Fprintf(&b, "--- %s ---\n", path)
		if r.cfg.Attachments == nil {
			fmt.Fprintf(&b, "(error: no attachment reader configured)\n")
			continue
		}
		content, err := r.cfg.Attachments.ReadFile(path)
		if err != nil {
			fmt.Fprintf(&b, "(error: %s)\n", err.Error())
			continue
		}
		if len(content) > attachmentTruncateLimit {
			content = content[:attachmentTruncateLimit] + "... (truncated)"
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

// buildToolManifest resolves a capability-filtered allowlist of tool names
// into the {name, schema} pairs actually advertised to the model. The "*"
// wildcard enumerates every tool the registry can serve; any other name
// not found in the registry is silently dropped rather than failing the
// session, since the core never re-validates the manifest after this
// point (per §9, capability filtering happens once, here).
func (r *SubAgentRunner) buildToolManifest(allowedTools []string) []models.ToolManifestEntry {
	if len(allowedTools) == 0 {
		return nil
	}
	if len(allowedTools) == 1 && allowedTools[0] == "*" {
		handles := r.tools.List()
		manifest := make([]models.ToolManifestEntry, 0, len(handles))
		for _, h := range handles {
			manifest = append(manifest, models.ToolManifestEntry{Name: h.Name, Description: h.Description, Schema: h.Schema})
		}
		return manifest
	}
	manifest := make([]models.ToolManifestEntry, 0, len(allowedTools))
	for _, name := range allowedTools {
		if h, ok := r.tools.Lookup(name); ok {
			manifest = append(manifest, models.ToolManifestEntry{Name: h.Name, Description: h.Description, Schema: h.Schema})
		}
	}
	return manifest
}

func executionSettingsFor(spec models.AgentTypeSpec) ExecutionSettings {
	if spec.Type == models.AgentTypeCompletion {
		return ExecutionSettings{Temperature: 0.0, TopP: 0.95, MaxTokens: 200, ToolsOff: true}
	}
	return ExecutionSettings{Temperature: 0.7, TopP: 1.0, MaxTokens: 4096}
}

// driveChatLoop implements §4.2.1: send history, consume frames, dispatch
// tool calls through the interceptor, track the tentative final output,
// and repeat until a turn ends with non-empty text and no pending tool
// calls, cancellation fires, or the provider ends the stream with nothing
// left to act on. Each iteration of the outer loop is one ModelPortal.Invoke
// call — one model turn; a turn that produced tool calls feeds their
// results back into history and starts a fresh turn.
func (r *SubAgentRunner) driveChatLoop(ctx context.Context, agentID string, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	start := time.Now()
	finalOutput := ""
	step := 0

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.StartAgentRun(ctx, agentID, string(task.AgentType))
	}
	if r.metrics != nil {
		r.metrics.ActiveAgents.WithLabelValues(string(task.AgentType)).Inc()
		defer r.metrics.ActiveAgents.WithLabelValues(string(task.AgentType)).Dec()
	}

	instance, _ := r.registry.TryGet(agentID)
	binding := instance.Binding

	for {
		select {
		case <-cancel:
			return r.cancelled(agentID, start, span)
		default:
		}

		history, _ := r.currentHistory(agentID)
		portal, _, err := r.resolveProvider(task)
		if err != nil {
			return r.fail(agentID, err, span)
		}

		frames, err := portal.Invoke(ctx, binding, history)
		if err != nil {
			return r.fail(agentID, err, span)
		}

		assistantText := ""
		hadToolCalls := false

	frameLoop:
		for {
			select {
			case <-cancel:
				return r.cancelled(agentID, start, span)
			case frame, ok := <-frames:
				if !ok {
					break frameLoop
				}
				if frame.Err != nil {
					return r.fail(agentID, frame.Err, span)
				}
				if frame.AssistantContent != "" {
					assistantText = frame.AssistantContent
					finalOutput = assistantText
				}
				if len(frame.ToolCalls) > 0 {
					hadToolCalls = true
				}
				for _, call := range frame.ToolCalls {
					result, _ := r.interceptor.Invoke(ctx, agentID, call)
					r.registry.AppendHistory(agentID,
						models.Message{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{call}, CreatedAt: time.Now()},
						models.Message{Role: models.RoleTool, ToolResult: &result, CreatedAt: time.Now()},
					)
				}
				step++
				elapsed := time.Since(start).Seconds()
				r.observers.progress(agentID, step, elapsed,
					fmt.Sprintf("%s … %d steps, %.1fs", task.Description, step, elapsed))

				if frame.FinishReason != "" && len(frame.ToolCalls) == 0 {
					break frameLoop
				}
			}
		}

		if assistantText != "" {
			r.registry.AppendHistory(agentID, models.Message{Role: models.RoleAssistant, Content: assistantText, CreatedAt: time.Now()})
		}

		// A turn that produced tool calls always needs a follow-up turn so
		// the model can see their results, even if it also emitted text
		// alongside them. Only a turn with no pending tool calls ends the
		// loop — either with a final answer, or with the stream genuinely
		// exhausted and nothing left to act on.
		if !hadToolCalls {
			break
		}
	}

	final, _ := r.registry.TryGet(agentID)
	if err := r.registry.UpdateStatus(agentID, models.StatusSuspended); err != nil {
		return r.fail(agentID, err, span)
	}
	result := models.AgentResult{
		AgentID:       agentID,
		Output:        finalOutput,
		ToolCallCount: final.ToolCallCount,
		Elapsed:       time.Since(start),
	}
	r.observers.completed(agentID, result)
	if span != nil {
		observability.EndWithError(span, nil)
	}
	if r.metrics != nil {
		r.metrics.ObserveAgentRun(string(task.AgentType), false, result.Elapsed)
	}
	return result
}

func (r *SubAgentRunner) currentHistory(agentID string) ([]models.Message, bool) {
	instance, ok := r.registry.TryGet(agentID)
	if !ok {
		return nil, false
	}
	return instance.History, true
}

func (r *SubAgentRunner) cancelled(agentID string, start time.Time, span trace.Span) models.AgentResult {
	_ = r.registry.UpdateStatus(agentID, models.StatusCancelled)
	result := models.AgentResult{
		AgentID:      agentID,
		IsError:      true,
		ErrorMessage: "cancelled",
		Elapsed:      time.Since(start),
	}
	r.observers.failed(agentID, result)
	if span != nil {
		observability.EndWithError(span, fmt.Errorf("cancelled"))
	}
	if r.metrics != nil {
		r.metrics.ObserveAgentRun("", true, result.Elapsed)
	}
	return result
}

func (r *SubAgentRunner) fail(agentID string, err error, span trace.Span) models.AgentResult {
	slog.Warn("agent run failed", "agent_id", agentID, "error", err)
	_ = r.registry.UpdateStatus(agentID, models.StatusFailed)
	result := models.AgentResult{
		AgentID:      agentID,
		IsError:      true,
		ErrorMessage: err.Error(),
	}
	r.observers.failed(agentID, result)
	if span != nil {
		observability.EndWithError(span, err)
	}
	if r.metrics != nil {
		r.metrics.ObserveAgentRun("", true, 0)
	}
	return result
}
