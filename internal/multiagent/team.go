package multiagent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// OutputSink receives the coordinator's small number of advisory progress
// lines. These never affect correctness.
type OutputSink interface {
	Write(line string)
}

type nopSink struct{}

func (nopSink) Write(string) {}

// TeamCoordinator composes SubAgentRunner invocations per a TeamDefinition's
// pattern: Sequential, FanOutFanIn or Supervisor.
type TeamCoordinator struct {
	runner   Runner
	parallel *ParallelExecutor
	output   OutputSink
}

// NewTeamCoordinator wires a coordinator from a Runner and an optional
// advisory OutputSink (nil uses a no-op sink).
func NewTeamCoordinator(runner Runner, output OutputSink) *TeamCoordinator {
	if output == nil {
		output = nopSink{}
	}
	return &TeamCoordinator{runner: runner, parallel: NewParallelExecutor(runner), output: output}
}

// Run executes a TeamDefinition against a single input string and returns
// the composed AgentResult.
func (c *TeamCoordinator) Run(ctx context.Context, team models.TeamDefinition, input string, cancel <-chan struct{}) models.AgentResult {
	c.output.Write(fmt.Sprintf("Team %s starting", team.Name))

	switch team.Pattern {
	case models.PatternSequential:
		return c.runSequential(ctx, team, input, cancel)
	case models.PatternFanOutFanIn:
		return c.runFanOutFanIn(ctx, team, team.Roles, input, cancel)
	case models.PatternSupervisor:
		return c.runSupervisor(ctx, team, input, cancel)
	default:
		return models.AgentResult{IsError: true, ErrorMessage: fmt.Sprintf("unknown team pattern %q", team.Pattern)}
	}
}

func renderPrompt(template, input, previous string) string {
	out := strings.ReplaceAll(template, "{input}", input)
	out = strings.ReplaceAll(out, "{previous}", previous)
	return out
}

func taskForRole(role models.TeamRole, prompt string) models.AgentTask {
	return models.AgentTask{
		Description: role.Name,
		Prompt:      prompt,
		AgentType:   role.AgentType,
		ModelTier:   role.ModelTier,
		ReadOnly:    role.ReadOnly,
	}
}

// runSequential runs roles in declaration order, threading {previous} from
// one role's output to the next. It aborts and returns the first error
// result unchanged, per the Sequential short-circuit rule.
func (c *TeamCoordinator) runSequential(ctx context.Context, team models.TeamDefinition, input string, cancel <-chan struct{}) models.AgentResult {
	previous := ""
	var last models.AgentResult
	for i, role := range team.Roles {
		c.output.Write(fmt.Sprintf("Team %s: step %d/%d (%s)", team.Name, i+1, len(team.Roles), role.Name))
		prompt := renderPrompt(role.PromptTemplate, input, previous)
		result := c.runner.Run(ctx, taskForRole(role, prompt), cancel)
		if result.IsError {
			return result
		}
		previous = result.Output
		last = result
	}
	return last
}

// runFanOutFanIn runs every given role through the ParallelExecutor and
// merges their outputs in declaration order regardless of completion order.
func (c *TeamCoordinator) runFanOutFanIn(ctx context.Context, team models.TeamDefinition, roles []models.TeamRole, input string, cancel <-chan struct{}) models.AgentResult {
	tasks := make([]models.AgentTask, len(roles))
	for i, role := range roles {
		tasks[i] = taskForRole(role, renderPrompt(role.PromptTemplate, input, ""))
	}

	results := c.parallel.RunParallel(ctx, tasks, DefaultMaxConcurrency, cancel)
	c.output.Write(fmt.Sprintf("Fan-in merged %d results", len(results)))

	return mergeResults(team.Name, roles, results)
}

func mergeResults(teamName string, roles []models.TeamRole, results []models.AgentResult) models.AgentResult {
	var b strings.Builder
	b.WriteString("=== Merged Team Results ===\n")

	var totalTools uint64
	var maxElapsed time.Duration
	for i, result := range results {
		fmt.Fprintf(&b, "--- %s (%s) ---\n%s\n", roles[i].Name, roles[i].AgentType, result.Output)
		totalTools += result.ToolCallCount
		if result.Elapsed > maxElapsed {
			maxElapsed = result.Elapsed
		}
	}

	return models.AgentResult{
		AgentID:       "team_" + teamName,
		Output:        b.String(),
		ToolCallCount: totalTools,
		Elapsed:       maxElapsed,
	}
}

// runSupervisor requires at least two roles: roles 1..N-1 ("workers") run
// exactly as in FanOutFanIn, then role 0 ("supervisor") runs with
// {previous} bound to the workers' concatenated outputs in declaration
// order.
func (c *TeamCoordinator) runSupervisor(ctx context.Context, team models.TeamDefinition, input string, cancel <-chan struct{}) models.AgentResult {
	if len(team.Roles) < 2 {
		return models.AgentResult{IsError: true, ErrorMessage: "supervisor pattern requires at least 2 roles"}
	}

	supervisorRole := team.Roles[0]
	workers := team.Roles[1:]

	workerTasks := make([]models.AgentTask, len(workers))
	for i, role := range workers {
		workerTasks[i] = taskForRole(role, renderPrompt(role.PromptTemplate, input, ""))
	}
	workerResults := c.parallel.RunParallel(ctx, workerTasks, DefaultMaxConcurrency, cancel)

	var combined strings.Builder
	for i, result := range workerResults {
		fmt.Fprintf(&combined, "--- %s (%s) ---\n%s\n", workers[i].Name, workers[i].AgentType, result.Output)
	}

	c.output.Write(fmt.Sprintf("Team %s: supervisor synthesising", team.Name))
	prompt := renderPrompt(supervisorRole.PromptTemplate, input, combined.String())
	return c.runner.Run(ctx, taskForRole(supervisorRole, prompt), cancel)
}
