package tooladapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
)

const taskToolName = "Task"

// TaskSpawner is the narrow slice of SubAgentRunner the Task tool needs.
// Defining it here rather than importing *agent.SubAgentRunner directly
// keeps the tool wrapper decoupled from the concrete runner type; any
// Runner-shaped value (including a fake, in tests) can be bound.
type TaskSpawner interface {
	Run(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult
}

// TaskArgs are the nested-agent spawn tool's arguments, matching the
// surface named in §6: description, prompt, agentType, and the optional
// model/resume/readOnly/attachments fields.
type TaskArgs struct {
	Description string   `json:"description" jsonschema:"required,description=Short 3-5 word label for progress display"`
	Prompt      string   `json:"prompt" jsonschema:"required,description=The instruction for the sub-agent"`
	AgentType   string   `json:"agentType" jsonschema:"required,description=One of generalPurpose, explore, code, plan, completion"`
	Model       string   `json:"model,omitempty" jsonschema:"description=Model tier: fast, default, or an explicit model id"`
	Resume      string   `json:"resume,omitempty" jsonschema:"description=Agent id to resume instead of starting a new agent"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// BindSpawner wires the Runner into the registry's Task tool after the
// Runner has been constructed, breaking the Runner ⇄ ToolRegistry
// construction cycle per §9: the ToolRegistry is built first so the
// Runner can take it by injection, and only afterward does the registry
// learn how to spawn sub-agents through that same Runner. Safe to call at
// most once; a nil spawner disables the Task tool.
func (r *Registry) BindSpawner(spawner TaskSpawner) {
	r.spawner = spawner
}

func (r *Registry) taskToolHandle() (agent.ToolHandle, bool) {
	if r.spawner == nil {
		return agent.ToolHandle{}, false
	}
	return agent.ToolHandle{
		Name:        taskToolName,
		Description: "Spawn or resume a sub-agent to perform a focused subtask.",
		Schema:      schemaFor(TaskArgs{}),
		Invoke:      r.runTask,
	}, true
}

func (r *Registry) runTask(ctx context.Context, args []byte) (string, error) {
	if r.spawner == nil {
		return "", fmt.Errorf("Task tool invoked with no spawner bound")
	}
	var in TaskArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid Task arguments: %w", err)
	}

	task := models.AgentTask{
		Description:   in.Description,
		Prompt:        in.Prompt,
		AgentType:     models.AgentType(in.AgentType),
		ModelTier:     models.ModelTier(in.Model),
		ResumeAgentID: in.Resume,
		ReadOnly:      in.ReadOnly,
		Attachments:   in.Attachments,
	}

	cancel := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			close(cancel)
		case <-stop:
		}
	}()

	result := r.spawner.Run(ctx, task, cancel)
	if result.IsError {
		return result.Output, fmt.Errorf("sub-agent %s failed: %s", result.AgentID, result.ErrorMessage)
	}
	return result.Output, nil
}
