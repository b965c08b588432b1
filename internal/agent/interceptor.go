package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// canonicalArgField maps a well-known tool name to the single argument key
// that best summarizes the call for observability (§4.3).
var canonicalArgField = map[string]string{
	"bash":           "command",
	"read_file":      "path",
	"write_file":     "path",
	"edit_file":      "path",
	"list_directory": "path",
	"grep":           "pattern",
	"glob":           "pattern",
	"web_search":     "query",
	"web_fetch":      "url",
	"Task":           "description",
}

const maxUnknownArgValueLen = 40
const maxUnknownArgPairs = 2

// summarizeArguments implements the argument-summarization rule: one
// canonical field for well-known tools, up to two key=value pairs
// (values truncated to 40 chars) for anything else. The full argument
// object is never retained past this call.
func summarizeArguments(toolName string, rawArgs []byte) string {
	var obj map[string]json.RawMessage
	if len(rawArgs) == 0 {
		return ""
	}
	if err := json.Unmarshal(rawArgs, &obj); err != nil {
		return ""
	}

	if field, ok := canonicalArgField[toolName]; ok {
		if v, present := obj[field]; present {
			return fmt.Sprintf("%s=%s", field, truncateJSONValue(v, maxUnknownArgValueLen))
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxUnknownArgPairs {
		keys = keys[:maxUnknownArgPairs]
	}

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, truncateJSONValue(obj[k], maxUnknownArgValueLen)))
	}
	out := ""
	for i, p := range pairs {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func truncateJSONValue(raw json.RawMessage, limit int) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// ToolCallInterceptor mediates every tool invocation reaching the
// ToolRegistry, producing begin/completed/failed observer events with
// timing and argument summaries, and incrementing the registry's
// per-agent tool counter on success.
type ToolCallInterceptor struct {
	registry  ToolRegistry
	agentReg  *Registry
	observers Observers
	tracer    *observability.Tracer
	metrics   *observability.Metrics
}

// NewToolCallInterceptor constructs an interceptor bound to the given
// ToolRegistry and AgentRegistry (for the per-agent counter).
func NewToolCallInterceptor(registry ToolRegistry, agentReg *Registry, observers Observers) *ToolCallInterceptor {
	return &ToolCallInterceptor{registry: registry, agentReg: agentReg, observers: observers}
}

// WithObservability attaches optional tracing and metrics; either may be
// nil to disable that channel.
func (ic *ToolCallInterceptor) WithObservability(tracer *observability.Tracer, metrics *observability.Metrics) *ToolCallInterceptor {
	ic.tracer = tracer
	ic.metrics = metrics
	return ic
}

// Invoke runs one tool call to completion, following the protocol of §4.3:
// started -> completed|failed, always in that order for this call. The
// returned ToolResult always reflects the outcome (IsError set on failure)
// so the chat loop can feed it straight back into history; the error return
// exists for callers that want to distinguish failure for their own
// purposes; the chat loop itself treats a tool failure as recoverable, not
// fatal to the run, matching the teacher's own tool-execution wrapper.
func (ic *ToolCallInterceptor) Invoke(ctx context.Context, agentID string, call models.ToolCall) (models.ToolResult, error) {
	event := models.ToolCallEvent{
		FunctionName:    call.Name,
		ArgumentSummary: summarizeArguments(call.Name, call.Input),
	}
	ic.observers.toolStarted(agentID, event)

	var span trace.Span
	if ic.tracer != nil {
		ctx, span = ic.tracer.StartToolCall(ctx, agentID, call.Name)
	}

	handle, ok := ic.registry.Lookup(call.Name)
	if !ok {
		event.Success = false
		event.Result = fmt.Sprintf("unknown tool %q", call.Name)
		ic.observers.toolFailed(agentID, event)
		err := fmt.Errorf("agentcore: %s", event.Result)
		if span != nil {
			observability.EndWithError(span, err)
		}
		if ic.metrics != nil {
			ic.metrics.ObserveToolExecution(call.Name, false, 0)
		}
		return models.ToolResult{ToolCallID: call.ID, Content: event.Result, IsError: true}, err
	}

	start := time.Now()
	output, err := handle.Invoke(ctx, call.Input)
	event.Elapsed = time.Since(start)

	if err != nil {
		event.Success = false
		event.Result = err.Error()
		ic.observers.toolFailed(agentID, event)
		if span != nil {
			observability.EndWithError(span, err)
		}
		if ic.metrics != nil {
			ic.metrics.ObserveToolExecution(call.Name, false, event.Elapsed)
		}
		return models.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}, err
	}

	event.Success = true
	event.Result = output
	ic.observers.toolCompleted(agentID, event)
	if ic.agentReg != nil {
		ic.agentReg.IncrementToolCalls(agentID)
	}
	if span != nil {
		observability.EndWithError(span, nil)
	}
	if ic.metrics != nil {
		ic.metrics.ObserveToolExecution(call.Name, true, event.Elapsed)
	}
	return models.ToolResult{ToolCallID: call.ID, Content: output}, nil
}
