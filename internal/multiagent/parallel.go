// Package multiagent composes SubAgentRunner invocations into
// bounded-concurrency fan-out and the three team patterns.
package multiagent

import (
	"context"
	"sync"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// DefaultMaxConcurrency is used when a caller passes maxConcurrency <= 0.
const DefaultMaxConcurrency = 4

// Runner is the subset of SubAgentRunner the executor needs, kept as an
// interface so tests can supply a fake without touching the registry.
type Runner interface {
	Run(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult
}

// ParallelExecutor fans a task list out to a Runner with bounded
// concurrency, preserving input order in the result list regardless of
// completion order.
type ParallelExecutor struct {
	runner Runner
}

// NewParallelExecutor wraps a Runner for bounded fan-out.
func NewParallelExecutor(runner Runner) *ParallelExecutor {
	return &ParallelExecutor{runner: runner}
}

// RunParallel runs every task through the Runner with at most
// maxConcurrency in flight at once. Individual failures are captured as
// isError results; they never cancel their peers. Cancellation on the
// shared cancel channel propagates to every in-flight invocation.
//
// Degenerate cases: an empty task list returns an empty result list; a
// single task bypasses the semaphore and runs inline.
func (p *ParallelExecutor) RunParallel(ctx context.Context, tasks []models.AgentTask, maxConcurrency int, cancel <-chan struct{}) []models.AgentResult {
	if len(tasks) == 0 {
		return nil
	}
	if len(tasks) == 1 {
		return []models.AgentResult{p.runner.Run(ctx, tasks[0], cancel)}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	results := make([]models.AgentResult, len(tasks))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t models.AgentTask) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-cancel:
				results[idx] = models.AgentResult{IsError: true, ErrorMessage: "cancelled"}
				return
			case <-ctx.Done():
				results[idx] = models.AgentResult{IsError: true, ErrorMessage: ctx.Err().Error()}
				return
			}
			results[idx] = p.runner.Run(ctx, t, cancel)
		}(i, task)
	}

	wg.Wait()
	return results
}
