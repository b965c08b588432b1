package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/agent/providers"
	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/multiagent"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/internal/tooladapter"
	"github.com/haasonsaas/agentcore/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// consoleObservers renders agent and tool-call events to stdout/stderr. It
// is the adapter implementation of the four observer ports for a one-shot
// CLI invocation; a real UI shell would implement the same interfaces
// against its own rendering surface.
type consoleObservers struct{}

// stdinUserInteraction implements agent.UserInteraction for a one-shot CLI
// invocation by printing the question and blocking on a line of stdin. A
// real UI shell would route ask_question to its own prompt surface instead.
type stdinUserInteraction struct{}

func (stdinUserInteraction) AskQuestion(ctx context.Context, question string) (string, error) {
	fmt.Printf("? %s\n> ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// runtime bundles the wired core collaborators one CLI invocation needs.
type runtime struct {
	registry *agent.Registry
	runner   *agent.SubAgentRunner
	parallel *multiagent.ParallelExecutor
	team     *multiagent.TeamCoordinator
}

func buildRuntime(cfg config.Config) (*runtime, error) {
	providerConfigs := make(map[string]agent.ModelPortal, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		portal, err := buildProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		providerConfigs[name] = portal
	}

	overrides := make(map[models.AgentType]string, len(cfg.AgentProviderOverrides))
	for k, v := range cfg.AgentProviderOverrides {
		overrides[models.AgentType(k)] = v
	}

	tracer := observability.NewTracer("agentcore")
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	registry := agent.NewRegistry(agent.RegistryConfig{IdleTTL: cfg.IdleTTL}).WithEvictionCounter(metrics.RegistryEvictions)
	tools := tooladapter.NewRegistry(cfg.WorkDir)
	tools.BindUserInteraction(stdinUserInteraction{})
	obs := agent.Observers{Output: consoleObservers{}, Progress: consoleObservers{}, Tools: consoleObservers{}, User: stdinUserInteraction{}}

	runner := agent.NewSubAgentRunner(registry, tools, obs, agent.RunnerConfig{
		ProviderConfigs:        providerConfigs,
		DefaultProvider:        cfg.DefaultProvider,
		FastProvider:           cfg.FastProvider,
		AgentProviderOverrides: overrides,
		WorkDir:                cfg.WorkDir,
	}).WithObservability(tracer, metrics)

	// The Task tool can only spawn sub-agents once the Runner it spawns
	// them through exists; bind it here rather than at tooladapter
	// construction time (§9).
	tools.BindSpawner(runner)

	parallel := multiagent.NewParallelExecutor(runner)
	team := multiagent.NewTeamCoordinator(runner, consoleObservers{})

	return &runtime{registry: registry, runner: runner, parallel: parallel, team: team}, nil
}

func buildProvider(pc config.ProviderConfig) (agent.ModelPortal, error) {
	apiKey := pc.APIKey()
	switch pc.Kind {
	case "deepseek":
		return providers.NewDeepSeekProvider(apiKey), nil
	case "zhipu":
		return providers.NewZhipuProvider(apiKey), nil
	case "openai", "":
		return providers.NewOpenAICompatibleProvider("openai", apiKey, pc.BaseURL, pc.DefaultModel), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

func (consoleObservers) Write(line string) {
	fmt.Println(line)
}

func (consoleObservers) OnAgentStarted(agentID string, task models.AgentTask) {
	fmt.Printf("[%s] started: %s\n", agentID, task.Description)
}

func (consoleObservers) OnAgentProgress(agentID string, step int, elapsed float64, message string) {
	fmt.Printf("[%s] %s\n", agentID, message)
}

func (consoleObservers) OnAgentCompleted(agentID string, result models.AgentResult) {
	fmt.Printf("[%s] completed in %s (%d tool calls)\n%s\n", agentID, result.Elapsed, result.ToolCallCount, result.Output)
}

func (consoleObservers) OnAgentFailed(agentID string, result models.AgentResult) {
	fmt.Printf("[%s] failed: %s\n", agentID, result.ErrorMessage)
}

func (consoleObservers) OnToolCallStarted(agentID string, event models.ToolCallEvent) {
	fmt.Printf("[%s] tool %s(%s)...\n", agentID, event.FunctionName, event.ArgumentSummary)
}

func (consoleObservers) OnToolCallCompleted(agentID string, event models.ToolCallEvent) {
	fmt.Printf("[%s] tool %s ok in %s\n", agentID, event.FunctionName, event.Elapsed)
}

func (consoleObservers) OnToolCallFailed(agentID string, event models.ToolCallEvent) {
	fmt.Printf("[%s] tool %s failed: %s\n", agentID, event.FunctionName, event.Result)
}
