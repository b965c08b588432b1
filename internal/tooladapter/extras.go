package tooladapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/agentcore/internal/agent"
)

// AskQuestionArgs are the ask_question tool's arguments.
type AskQuestionArgs struct {
	Question string `json:"question" jsonschema:"required,description=The question to put to the human operator"`
}

// TodoWriteArgs are the TodoWrite tool's arguments: a JSON-encoded list of
// todo items. The tool checks that it parses as a JSON array and reports the
// item count; it does not check the item shape and does not store the items.
type TodoWriteArgs struct {
	ItemsJSON string `json:"itemsJson" jsonschema:"required,description=JSON-encoded list of todo items"`
}

// FetchRuleArgs are the fetch_rule tool's arguments.
type FetchRuleArgs struct {
	RuleName string `json:"ruleName" jsonschema:"required,description=Name of the rule file to load, without extension"`
}

// SkillArgs are the Skill tool's arguments.
type SkillArgs struct {
	SkillName string `json:"skillName" jsonschema:"required,description=Name of the skill to invoke"`
}

func (r *Registry) extraBuiltins() []builtinTool {
	out := []builtinTool{
		{"TodoWrite", "Check the agent's current todo list (a JSON array) and report its item count.", TodoWriteArgs{}, r.todoWrite},
		{"fetch_rule", "Load a named rule file from the workspace's rules directory.", FetchRuleArgs{}, r.fetchRule},
		{"Skill", "Invoke a named skill from the workspace's skills directory.", SkillArgs{}, r.skill},
	}
	if r.userInteraction != nil {
		out = append(out, builtinTool{"ask_question", "Ask the human operator a clarifying question.", AskQuestionArgs{}, r.askQuestion})
	}
	return out
}

// BindUserInteraction wires the ask_question tool to the UserInteraction
// port, following the same post-construction injection pattern as
// BindSpawner: the port's real implementation (a terminal prompt, a chat
// UI callback) is an adapter concern assembled after the registry exists.
func (r *Registry) BindUserInteraction(ui agent.UserInteraction) {
	r.userInteraction = ui
}

func (r *Registry) askQuestion(ctx context.Context, args []byte) (string, error) {
	if r.userInteraction == nil {
		return "", fmt.Errorf("ask_question invoked with no UserInteraction bound")
	}
	var in AskQuestionArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid ask_question arguments: %w", err)
	}
	return r.userInteraction.AskQuestion(ctx, in.Question)
}

func (r *Registry) todoWrite(ctx context.Context, args []byte) (string, error) {
	var in TodoWriteArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid TodoWrite arguments: %w", err)
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(in.ItemsJSON), &items); err != nil {
		return "", fmt.Errorf("itemsJson is not a valid JSON array: %w", err)
	}
	return fmt.Sprintf("recorded %d todo item(s)", len(items)), nil
}

func (r *Registry) fetchRule(ctx context.Context, args []byte) (string, error) {
	var in FetchRuleArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid fetch_rule arguments: %w", err)
	}
	if strings.ContainsAny(in.RuleName, "/\\") {
		return "", fmt.Errorf("ruleName must not contain path separators")
	}
	path := filepath.Join(r.workDir, ".agentcore", "rules", in.RuleName+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("rule %q not found: %w", in.RuleName, err)
	}
	return string(content), nil
}

func (r *Registry) skill(ctx context.Context, args []byte) (string, error) {
	var in SkillArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid Skill arguments: %w", err)
	}
	if strings.ContainsAny(in.SkillName, "/\\") {
		return "", fmt.Errorf("skillName must not contain path separators")
	}
	path := filepath.Join(r.workDir, ".agentcore", "skills", in.SkillName, "SKILL.md")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("skill %q not found: %w", in.SkillName, err)
	}
	return string(content), nil
}
