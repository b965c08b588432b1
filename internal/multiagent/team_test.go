package multiagent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// promptRunner returns a result whose Output is the rendered prompt it was
// given, so tests can assert {input}/{previous} substitution (property 6).
type promptRunner struct {
	fail      map[string]bool
	elapsedBy map[string]time.Duration
}

func (r *promptRunner) Run(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	if r.fail[task.Description] {
		return models.AgentResult{AgentID: task.Description, IsError: true, ErrorMessage: task.Description + " failed"}
	}
	return models.AgentResult{
		AgentID:       task.Description,
		Output:        task.Prompt,
		ToolCallCount: 1,
		Elapsed:       r.elapsedBy[task.Description],
	}
}

func roles(names ...string) []models.TeamRole {
	out := make([]models.TeamRole, len(names))
	for i, n := range names {
		out[i] = models.TeamRole{Name: n, AgentType: models.AgentTypeGeneralPurpose, PromptTemplate: n + ":{input}:{previous}"}
	}
	return out
}

func TestSequentialThreadsInputAndPrevious(t *testing.T) {
	runner := &promptRunner{}
	c := NewTeamCoordinator(runner, nil)
	team := models.TeamDefinition{Name: "seq", Pattern: models.PatternSequential, Roles: roles("A", "B", "C")}

	result := c.Run(context.Background(), team, "hi", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %+v", result)
	}
	// C is last; its prompt must carry B's output as {previous} and the
	// original "hi" as {input}.
	if !strings.Contains(result.Output, "C:hi:B:hi:A:hi:") {
		t.Fatalf("unexpected threaded prompt chain: %q", result.Output)
	}
}

// TestSequentialShortCircuit is S4: the first error result is returned
// unchanged and later roles never run.
func TestSequentialShortCircuit(t *testing.T) {
	runner := &promptRunner{fail: map[string]bool{"B": true}}
	c := NewTeamCoordinator(runner, nil)
	team := models.TeamDefinition{Name: "seq", Pattern: models.PatternSequential, Roles: roles("A", "B", "C")}

	result := c.Run(context.Background(), team, "hi", nil)
	if !result.IsError || result.AgentID != "B" {
		t.Fatalf("expected B's error result unchanged, got %+v", result)
	}
}

// TestFanOutFanInMergesInDeclarationOrder is S3.
func TestFanOutFanInMergesInDeclarationOrder(t *testing.T) {
	runner := &promptRunner{elapsedBy: map[string]time.Duration{
		"A": 5 * time.Millisecond, "B": 20 * time.Millisecond, "C": 1 * time.Millisecond,
	}}
	c := NewTeamCoordinator(runner, nil)
	team := models.TeamDefinition{Name: "fan", Pattern: models.PatternFanOutFanIn, Roles: roles("A", "B", "C")}

	result := c.Run(context.Background(), team, "hi", nil)
	if !strings.HasPrefix(result.Output, "=== Merged Team Results ===\n") {
		t.Fatalf("expected merge header, got %q", result.Output)
	}
	idxA := strings.Index(result.Output, "--- A ")
	idxB := strings.Index(result.Output, "--- B ")
	idxC := strings.Index(result.Output, "--- C ")
	if idxA < 0 || idxB < 0 || idxC < 0 || !(idxA < idxB && idxB < idxC) {
		t.Fatalf("expected sections in declaration order A,B,C: %q", result.Output)
	}
	if result.Elapsed != 20*time.Millisecond {
		t.Fatalf("expected merged elapsed to be max(5,20,1)ms, got %s", result.Elapsed)
	}
	if result.ToolCallCount != 3 {
		t.Fatalf("expected summed tool call count 3, got %d", result.ToolCallCount)
	}
	if result.AgentID != "team_fan" {
		t.Fatalf("expected synthesised agent id team_fan, got %q", result.AgentID)
	}
}

func TestSupervisorRequiresTwoRoles(t *testing.T) {
	runner := &promptRunner{}
	c := NewTeamCoordinator(runner, nil)
	team := models.TeamDefinition{Name: "sup", Pattern: models.PatternSupervisor, Roles: roles("only")}

	result := c.Run(context.Background(), team, "hi", nil)
	if !result.IsError {
		t.Fatal("expected error result for a single-role supervisor team")
	}
}

func TestSupervisorSeesWorkerOutputsAsPrevious(t *testing.T) {
	runner := &promptRunner{}
	c := NewTeamCoordinator(runner, nil)
	team := models.TeamDefinition{Name: "sup", Pattern: models.PatternSupervisor, Roles: roles("boss", "w1", "w2")}

	result := c.Run(context.Background(), team, "hi", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %+v", result)
	}
	if !strings.Contains(result.Output, "--- w1 ") || !strings.Contains(result.Output, "--- w2 ") {
		t.Fatalf("expected supervisor's prompt to embed both worker sections: %q", result.Output)
	}
}
