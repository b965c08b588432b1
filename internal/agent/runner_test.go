package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// scriptedPortal answers CreateSession with a fixed binding and replays one
// canned frame sequence per invocation, regardless of history contents.
type scriptedPortal struct {
	sessions  []SessionConfig
	histories [][]models.Message
	frames    [][]Frame
	call      int
}

func (p *scriptedPortal) CreateSession(ctx context.Context, cfg SessionConfig) (models.AgentBinding, error) {
	p.sessions = append(p.sessions, cfg)
	return models.AgentBinding{ModelID: cfg.ModelID, SystemPrompt: cfg.SystemPrompt, AllowedTools: cfg.AllowedTools, ToolManifest: cfg.ToolManifest}, nil
}

func (p *scriptedPortal) Invoke(ctx context.Context, binding models.AgentBinding, history []models.Message) (<-chan Frame, error) {
	idx := p.call
	if idx >= len(p.frames) {
		idx = len(p.frames) - 1
	}
	p.call++
	p.histories = append(p.histories, append([]models.Message(nil), history...))
	out := make(chan Frame, len(p.frames[idx]))
	for _, f := range p.frames[idx] {
		out <- f
	}
	close(out)
	return out, nil
}

type noToolRegistry struct{}

func (noToolRegistry) Lookup(name string) (ToolHandle, bool) { return ToolHandle{}, false }
func (noToolRegistry) List() []ToolHandle                    { return nil }

func newTestRunner(t *testing.T, portal ModelPortal) (*SubAgentRunner, *Registry) {
	t.Helper()
	reg := NewRegistry(RegistryConfig{SweepInterval: -1})
	t.Cleanup(reg.Close)
	r := NewSubAgentRunner(reg, noToolRegistry{}, Observers{}, RunnerConfig{
		ProviderConfigs: map[string]ModelPortal{"default": portal},
		DefaultProvider: "default",
		WorkDir:         "/work",
	})
	return r, reg
}

func TestRunUnknownAgentType(t *testing.T) {
	r, _ := newTestRunner(t, &scriptedPortal{})
	result := r.Run(context.Background(), models.AgentTask{AgentType: "nonsense"}, nil)
	if !result.IsError {
		t.Fatal("expected an error result for an unknown agent type")
	}
}

func TestRunNoProviderConfigured(t *testing.T) {
	reg := NewRegistry(RegistryConfig{SweepInterval: -1})
	defer reg.Close()
	r := NewSubAgentRunner(reg, noToolRegistry{}, Observers{}, RunnerConfig{})
	result := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeGeneralPurpose}, nil)
	if !result.IsError {
		t.Fatal("expected an error result with no provider configured")
	}
}

func TestRunNewAgentCompletesAndSuspends(t *testing.T) {
	portal := &scriptedPortal{frames: [][]Frame{{{AssistantContent: "all done", FinishReason: "stop"}}}}
	r, reg := newTestRunner(t, portal)

	result := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeGeneralPurpose, Prompt: "do it", Description: "task"}, nil)
	if result.IsError {
		t.Fatalf("unexpected error: %+v", result)
	}
	if result.Output != "all done" {
		t.Fatalf("expected final output %q, got %q", "all done", result.Output)
	}

	instance, ok := reg.TryGet(result.AgentID)
	if !ok {
		t.Fatal("expected the agent to remain resolvable after completion")
	}
	if instance.Status != models.StatusSuspended {
		t.Fatalf("expected Suspended status after completion, got %s", instance.Status)
	}
}

// TestRunGeneralPurposeManifestCarriesAllTools exercises the "*" wildcard
// resolution against a ToolRegistry that actually lists tools, verifying
// the manifest built for CreateSession is non-empty (the tool-manifest
// bug fixed this pass: the manifest must reach the ModelPortal).
func TestRunGeneralPurposeManifestCarriesAllTools(t *testing.T) {
	portal := &scriptedPortal{frames: [][]Frame{{{AssistantContent: "ok", FinishReason: "stop"}}}}
	reg := NewRegistry(RegistryConfig{SweepInterval: -1})
	defer reg.Close()

	tools := fakeListingRegistry{handles: []ToolHandle{{Name: "bash", Schema: []byte(`{"type":"object"}`)}}}
	r := NewSubAgentRunner(reg, tools, Observers{}, RunnerConfig{
		ProviderConfigs: map[string]ModelPortal{"default": portal},
		DefaultProvider: "default",
	})

	r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeGeneralPurpose, Prompt: "go"}, nil)

	if len(portal.sessions) != 1 {
		t.Fatalf("expected one CreateSession call, got %d", len(portal.sessions))
	}
	manifest := portal.sessions[0].ToolManifest
	if len(manifest) != 1 || manifest[0].Name != "bash" {
		t.Fatalf("expected the wildcard allowlist to resolve to the full tool list, got %+v", manifest)
	}
}

type fakeListingRegistry struct{ handles []ToolHandle }

func (f fakeListingRegistry) Lookup(name string) (ToolHandle, bool) {
	for _, h := range f.handles {
		if h.Name == name {
			return h, true
		}
	}
	return ToolHandle{}, false
}

func (f fakeListingRegistry) List() []ToolHandle { return f.handles }

// TestResumeThreadsHistory is S2: the second invocation's history contains
// the original system+user+assistant turns plus the new user message.
func TestResumeThreadsHistory(t *testing.T) {
	portal := &scriptedPortal{frames: [][]Frame{
		{{AssistantContent: "first answer", FinishReason: "stop"}},
		{{AssistantContent: "second answer", FinishReason: "stop"}},
	}}
	r, _ := newTestRunner(t, portal)

	first := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeCode, Prompt: "add a comment"}, nil)
	if first.IsError {
		t.Fatalf("unexpected error on first run: %+v", first)
	}

	second := r.Run(context.Background(), models.AgentTask{ResumeAgentID: first.AgentID, Prompt: "now add a second comment"}, nil)
	if second.IsError {
		t.Fatalf("unexpected error on resume: %+v", second)
	}

	var roles []models.Role
	var contents []string
	for _, m := range portal.histories[1] {
		roles = append(roles, m.Role)
		contents = append(contents, m.Content)
	}
	if len(roles) < 4 {
		t.Fatalf("expected at least system, user, assistant, user; got %v", roles)
	}
	if roles[0] != models.RoleSystem {
		t.Fatalf("expected history to start with a system message, got %s", roles[0])
	}
	if contents[len(contents)-1] != "now add a second comment" {
		t.Fatalf("expected the resumed history to end with the new user message, got %q", contents[len(contents)-1])
	}
}

func TestResumeUnknownIDFails(t *testing.T) {
	r, _ := newTestRunner(t, &scriptedPortal{})
	result := r.Run(context.Background(), models.AgentTask{ResumeAgentID: "missing", Prompt: "hi"}, nil)
	if !result.IsError {
		t.Fatal("expected an error result resuming an unknown agent id")
	}
}

func TestRunCancellationMarksCancelled(t *testing.T) {
	portal := &scriptedPortal{frames: [][]Frame{{{AssistantContent: "irrelevant", FinishReason: "stop"}}}}
	r, reg := newTestRunner(t, portal)

	cancel := make(chan struct{})
	close(cancel)

	result := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeGeneralPurpose, Prompt: "go"}, cancel)
	if !result.IsError || result.ErrorMessage != "cancelled" {
		t.Fatalf("expected a cancelled error result, got %+v", result)
	}
	instance, ok := reg.TryGet(result.AgentID)
	if !ok || instance.Status != models.StatusCancelled {
		t.Fatalf("expected Cancelled status, got %+v ok=%v", instance, ok)
	}
}

// TestRunResumesAfterToolCallsBeforeFinalAnswer exercises the multi-turn
// chat loop: a first turn that returns a pending tool call with no finish
// reason must be followed by a second ModelPortal.Invoke call carrying the
// tool's result in history, not an immediate run termination.
func TestRunResumesAfterToolCallsBeforeFinalAnswer(t *testing.T) {
	var calls int
	tools := fakeListingRegistry{handles: []ToolHandle{{
		Name:   "bash",
		Schema: []byte(`{"type":"object"}`),
		Invoke: func(ctx context.Context, args []byte) (string, error) {
			calls++
			return "ls output", nil
		},
	}}}

	portal := &scriptedPortal{frames: [][]Frame{
		{{ToolCalls: []models.ToolCall{{ID: "c1", Name: "bash", Input: []byte(`{"command":"ls"}`)}}}},
		{{AssistantContent: "here are the files", FinishReason: "stop"}},
	}}

	reg := NewRegistry(RegistryConfig{SweepInterval: -1})
	defer reg.Close()
	r := NewSubAgentRunner(reg, tools, Observers{}, RunnerConfig{
		ProviderConfigs: map[string]ModelPortal{"default": portal},
		DefaultProvider: "default",
	})

	result := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeGeneralPurpose, Prompt: "list files"}, nil)
	if result.IsError {
		t.Fatalf("unexpected error: %+v", result)
	}
	if result.Output != "here are the files" {
		t.Fatalf("expected the second turn's answer, got %q", result.Output)
	}
	if calls != 1 {
		t.Fatalf("expected the tool to run exactly once, got %d", calls)
	}
	if len(portal.sessions) != 1 || portal.call != 2 {
		t.Fatalf("expected a second Invoke call incorporating the tool result, got %d invoke calls", portal.call)
	}
	if result.ToolCallCount != 1 {
		t.Fatalf("expected the agent's tool call count to be 1, got %d", result.ToolCallCount)
	}
}

func TestCompletionAgentHasNoToolsAndIsReadOnly(t *testing.T) {
	portal := &scriptedPortal{frames: [][]Frame{{{AssistantContent: "x", FinishReason: "stop"}}}}
	r, reg := newTestRunner(t, portal)

	result := r.Run(context.Background(), models.AgentTask{AgentType: models.AgentTypeCompletion, Prompt: "complete this"}, nil)

	instance, _ := reg.TryGet(result.AgentID)
	if !instance.ReadOnly {
		t.Fatal("expected a completion agent to be read-only")
	}
	if len(portal.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(portal.sessions))
	}
	settings := portal.sessions[0].ExecutionSettings
	if !settings.ToolsOff || settings.Temperature != 0.0 {
		t.Fatalf("expected tools disabled and temperature 0 for completion, got %+v", settings)
	}
	if len(portal.sessions[0].AllowedTools) != 0 {
		t.Fatalf("expected an empty allowed-tool set for completion, got %v", portal.sessions[0].AllowedTools)
	}
}
