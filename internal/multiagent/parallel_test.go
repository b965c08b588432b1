package multiagent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// fakeRunner returns a fixed result per task and tracks concurrent in-flight
// invocations so tests can assert the semaphore bound (S5).
type fakeRunner struct {
	delay       time.Duration
	inFlight    int32
	maxInFlight int32
	results     func(models.AgentTask) models.AgentResult
}

func (f *fakeRunner) Run(ctx context.Context, task models.AgentTask, cancel <-chan struct{}) models.AgentResult {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.inFlight, -1)
	if f.results != nil {
		return f.results(task)
	}
	return models.AgentResult{AgentID: task.Description, Output: task.Description}
}

func TestRunParallelEmpty(t *testing.T) {
	p := NewParallelExecutor(&fakeRunner{})
	got := p.RunParallel(context.Background(), nil, 4, nil)
	if got != nil {
		t.Fatalf("expected nil result for empty input, got %v", got)
	}
}

func TestRunParallelSingleTaskBypassesSemaphore(t *testing.T) {
	runner := &fakeRunner{}
	p := NewParallelExecutor(runner)
	tasks := []models.AgentTask{{Description: "only"}}
	got := p.RunParallel(context.Background(), tasks, 4, nil)
	if len(got) != 1 || got[0].AgentID != "only" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

// TestRunParallelPreservesOrder is S3/property-3: result[i] corresponds to
// tasks[i] regardless of completion order. Slower tasks are placed first so
// a naive completion-order implementation would fail this.
func TestRunParallelPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	delays := map[string]time.Duration{"slow": 20 * time.Millisecond, "fast": 0}
	runner := &fakeRunner{results: func(task models.AgentTask) models.AgentResult {
		mu.Lock()
		d := delays[task.Description]
		mu.Unlock()
		time.Sleep(d)
		return models.AgentResult{AgentID: task.Description}
	}}
	p := NewParallelExecutor(runner)
	tasks := []models.AgentTask{{Description: "slow"}, {Description: "fast"}, {Description: "slow"}}
	got := p.RunParallel(context.Background(), tasks, 4, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, want := range []string{"slow", "fast", "slow"} {
		if got[i].AgentID != want {
			t.Fatalf("result[%d] = %q, want %q", i, got[i].AgentID, want)
		}
	}
}

// TestRunParallelBoundedConcurrency is S5: at most maxConcurrency tasks run
// at once.
func TestRunParallelBoundedConcurrency(t *testing.T) {
	runner := &fakeRunner{delay: 10 * time.Millisecond}
	p := NewParallelExecutor(runner)
	tasks := make([]models.AgentTask, 10)
	for i := range tasks {
		tasks[i] = models.AgentTask{Description: "t"}
	}
	p.RunParallel(context.Background(), tasks, 3, nil)
	if runner.maxInFlight > 3 {
		t.Fatalf("observed %d concurrent invocations, want <= 3", runner.maxInFlight)
	}
}

func TestRunParallelIndividualFailureDoesNotCancelPeers(t *testing.T) {
	runner := &fakeRunner{results: func(task models.AgentTask) models.AgentResult {
		if task.Description == "bad" {
			return models.AgentResult{AgentID: "bad", IsError: true, ErrorMessage: "boom"}
		}
		return models.AgentResult{AgentID: task.Description}
	}}
	p := NewParallelExecutor(runner)
	tasks := []models.AgentTask{{Description: "good1"}, {Description: "bad"}, {Description: "good2"}}
	got := p.RunParallel(context.Background(), tasks, 4, nil)
	if got[1].ErrorMessage != "boom" {
		t.Fatalf("expected bad task's own error, got %+v", got[1])
	}
	if got[0].IsError || got[2].IsError {
		t.Fatalf("peers must not be cancelled by a sibling failure: %+v", got)
	}
}
