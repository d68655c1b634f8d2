package agent

import (
	"context"
	"fmt"
	"sync"
)

// TaskStatus tracks where a task is in its lifecycle.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskFunc is the work a task performs.
type TaskFunc func(ctx context.Context) (any, error)

// Task is one unit of work in an execution plan.
type Task struct {
	ID          string
	Description string
	Execute     TaskFunc
	DependsOn   []string

	Status TaskStatus
	Result any
	Err    error
}

// NewTask creates a pending task.
func NewTask(id, description string, execute TaskFunc, dependsOn ...string) *Task {
	return &Task{
		ID:          id,
		Description: description,
		Execute:     execute,
		DependsOn:   dependsOn,
		Status:      TaskStatusPending,
	}
}

// CanExecute reports whether all dependencies have completed.
func (t *Task) CanExecute(completed map[string]struct{}) bool {
	for _, dep := range t.DependsOn {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// ParallelGroup is a set of tasks with no dependencies between them.
type ParallelGroup struct {
	GroupID int
	Tasks   []*Task
}

func (g *ParallelGroup) String() string {
	return fmt.Sprintf("Group %d: %d tasks", g.GroupID, len(g.Tasks))
}

// ExecutionPlan is an ordered sequence of parallel groups.
type ExecutionPlan struct {
	Groups     []*ParallelGroup
	TotalTasks int
	Speedup    float64
}

func (p *ExecutionPlan) String() string {
	return fmt.Sprintf("Execution Plan: %d tasks in %d groups (%.1fx speedup)", p.TotalTasks, len(p.Groups), p.Speedup)
}

// ErrCircularDependency is returned when tasks depend on each other.
var ErrCircularDependency = fmt.Errorf("circular dependency detected")

// ParallelExecutor plans and runs dependency-aware task graphs.
type ParallelExecutor struct {
	maxWorkers int
}

const defaultMaxWorkers = 10

// NewParallelExecutor creates an executor with the default concurrency.
func NewParallelExecutor() *ParallelExecutor {
	return NewParallelExecutorWithWorkers(defaultMaxWorkers)
}

// NewParallelExecutorWithWorkers creates an executor with a worker cap.
func NewParallelExecutorWithWorkers(maxWorkers int) *ParallelExecutor {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &ParallelExecutor{maxWorkers: maxWorkers}
}

// MaxWorkers returns the concurrency cap.
func (e *ParallelExecutor) MaxWorkers() int {
	return e.maxWorkers
}

// Plan groups tasks into waves where every task's dependencies sit in
// an earlier wave. Fails on unknown or circular dependencies.
func (e *ParallelExecutor) Plan(tasks []*Task) (*ExecutionPlan, error) {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
		}
	}

	plan := &ExecutionPlan{TotalTasks: len(tasks)}
	scheduled := make(map[string]struct{}, len(tasks))
	remaining := append([]*Task(nil), tasks...)

	for len(remaining) > 0 {
		var wave []*Task
		var next []*Task
		for _, t := range remaining {
			if t.CanExecute(scheduled) {
				wave = append(wave, t)
			} else {
				next = append(next, t)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("%w among tasks: %s", ErrCircularDependency, taskIDs(remaining))
		}
		for _, t := range wave {
			scheduled[t.ID] = struct{}{}
		}
		plan.Groups = append(plan.Groups, &ParallelGroup{
			GroupID: len(plan.Groups),
			Tasks:   wave,
		})
		remaining = next
	}

	if len(plan.Groups) > 0 {
		plan.Speedup = float64(plan.TotalTasks) / float64(len(plan.Groups))
	}
	return plan, nil
}

// Execute runs the plan wave by wave. Tasks inside a wave run
// concurrently, bounded by the worker cap. A failed task records its
// error and a nil result without aborting the rest of the plan.
func (e *ParallelExecutor) Execute(ctx context.Context, plan *ExecutionPlan) map[string]any {
	results := make(map[string]any, plan.TotalTasks)
	var mu sync.Mutex

	sem := make(chan struct{}, e.maxWorkers)

	for _, group := range plan.Groups {
		var wg sync.WaitGroup
		for _, task := range group.Tasks {
			wg.Add(1)
			go func(t *Task) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				t.Status = TaskStatusRunning
				result, err := t.Execute(ctx)
				if err != nil {
					t.Status = TaskStatusFailed
					t.Err = err
					result = nil
				} else {
					t.Status = TaskStatusCompleted
					t.Result = result
				}

				mu.Lock()
				results[t.ID] = result
				mu.Unlock()
			}(task)
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	return results
}

// ShouldParallelize reports whether a workload is big enough to bother
// fanning out. The default threshold is three items.
func ShouldParallelize(count, threshold int) bool {
	if threshold <= 0 {
		threshold = 3
	}
	return count >= threshold
}

func taskIDs(tasks []*Task) string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return fmt.Sprintf("%v", ids)
}
