// Package main provides the CLI entry point for the agentcore orchestration
// engine.
//
// agentcore spawns isolated sub-agent conversations against OpenAI-compatible
// chat completion providers (DeepSeek, Zhipu, or any compatible gateway),
// enforces per-agent-type tool capability restrictions, and composes
// sub-agents into sequential, fan-out/fan-in, and supervisor team patterns.
//
// # Basic Usage
//
// Run a single agent task:
//
//	agentcore run --type code --prompt "add a comment to hello.txt"
//
// List the fixed agent-type catalog:
//
//	agentcore agents list
//
// # Environment Variables
//
//   - DEEPSEEK_API_KEY: DeepSeek API key
//   - ZHIPU_API_KEY: Zhipu (BigModel) API key
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached. This
// is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "agentcore",
		Short:   "agentcore - multi-agent sub-task orchestration engine",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")

	rootCmd.AddCommand(
		buildRunCmd(&configPath),
		buildAgentsCmd(),
		buildTeamCmd(&configPath),
	)
	return rootCmd
}
