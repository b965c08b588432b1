package main

import (
	"fmt"
	"sort"

	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/pkg/models"
	"github.com/spf13/cobra"
)

// buildRunCmd creates the "run" command that executes a single sub-agent
// task to completion.
func buildRunCmd(configPath *string) *cobra.Command {
	var (
		agentType string
		prompt    string
		resumeID  string
		readOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single sub-agent task",
		Example: `  # Start a new code agent
  agentcore run --type code --prompt "add a comment to hello.txt"

  # Resume a suspended agent by id (the registry is in memory, so only an
  # agent created earlier in the same process can be found)
  agentcore run --resume abc123xyz987 --prompt "now add a second comment"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			task := models.AgentTask{
				Description:   "cli run",
				Prompt:        prompt,
				AgentType:     models.AgentType(agentType),
				ResumeAgentID: resumeID,
				ReadOnly:      readOnly,
			}
			result := rt.runner.Run(cmd.Context(), task, nil)
			if result.IsError {
				return fmt.Errorf("agent run failed: %s", result.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentType, "type", string(models.AgentTypeGeneralPurpose), "Agent type (generalPurpose, explore, code, plan, completion)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "The task prompt")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Resume an existing agent by id")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Restrict the agent to non-mutating tools")
	return cmd
}

// buildAgentsCmd creates the "agents" command group.
func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the fixed agent-type catalog",
	}
	cmd.AddCommand(buildAgentsListCmd())
	return cmd
}

func buildAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the five built-in agent types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := make([]string, 0, len(models.DefaultCatalog))
			for t := range models.DefaultCatalog {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				spec := models.DefaultCatalog[models.AgentType(t)]
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s read-only=%-5v tools=%v\n", spec.Type, spec.IsReadOnly, spec.ToolAllowlist)
			}
			return nil
		},
	}
}

// buildTeamCmd creates the "team" command group for running a team
// definition described by an inline JSON/YAML-free flag set. A production
// shell would load TeamDefinition from its skills/rules config; this CLI
// only exercises the Sequential pattern directly as a smoke test.
func buildTeamCmd(configPath *string) *cobra.Command {
	var (
		input string
		roles []string
	)

	cmd := &cobra.Command{
		Use:   "team",
		Short: "Run a sequential team of agent types against one input",
		Example: `  agentcore team --input "review this diff" --role explore --role code`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(roles) == 0 {
				return fmt.Errorf("at least one --role is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			def := models.TeamDefinition{Name: "cli-team", Pattern: models.PatternSequential}
			for i, r := range roles {
				def.Roles = append(def.Roles, models.TeamRole{
					Name:           fmt.Sprintf("role-%d", i+1),
					AgentType:      models.AgentType(r),
					PromptTemplate: "{input}\n\nPrevious step output:\n{previous}",
				})
			}

			result := rt.team.Run(cmd.Context(), def, input, nil)
			if result.IsError {
				return fmt.Errorf("team run failed: %s", result.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "The team's shared input")
	cmd.Flags().StringArrayVar(&roles, "role", nil, "Agent type for one role, repeatable, in execution order")
	return cmd
}
