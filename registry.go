package runware

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Future is the caller's handle on a submitted task. It resolves exactly once,
// either with the task's results or with an error.
type Future struct {
	id   string
	mode ReplyMode

	done    chan struct{}
	once    sync.Once
	results []Result
	err     error
}

func newFuture(id string, mode ReplyMode) *Future {
	return &Future{
		id:   id,
		mode: mode,
		done: make(chan struct{}),
	}
}

// ID returns the task identifier.
func (f *Future) ID() string {
	return f.id
}

// Mode returns the reply mode the task was registered with.
func (f *Future) Mode() ReplyMode {
	return f.mode
}

// Done is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done. Results are in
// arrival order. Each call returns its own copy of the slice.
func (f *Future) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return slices.Clone(f.results), f.err
	}
}

// resolve settles the future. It reports false if the future was already settled.
func (f *Future) resolve(results []Result, err error) bool {
	settled := false
	f.once.Do(func() {
		f.results = results
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}

// pendingTask is an in-flight request awaiting its results.
type pendingTask struct {
	expected int
	results  []Result
	future   *Future
}

// TaskInfo is a snapshot of a pending task.
type TaskInfo struct {
	ID       string
	Mode     ReplyMode
	Expected int
	Received int
}

// DeliverOutcome reports what a delivered result did to the registry.
type DeliverOutcome int

const (
	// DeliverUnknown means no pending task matched the identifier.
	DeliverUnknown DeliverOutcome = iota
	// DeliverPending means the result was buffered and more are expected.
	DeliverPending
	// DeliverResolved means the task's future was resolved and the task removed.
	DeliverResolved
)

func (o DeliverOutcome) String() string {
	switch o {
	case DeliverUnknown:
		return "unknown"
	case DeliverPending:
		return "pending"
	case DeliverResolved:
		return "resolved"
	default:
		return fmt.Sprintf("DeliverOutcome(%d)", int(o))
	}
}

// taskRegistry maps task identifiers to pending tasks.
// It is safe for concurrent use.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*pendingTask
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		tasks: make(map[string]*pendingTask),
	}
}

// Register adds a pending task. SingleReply tasks always expect one result.
func (r *taskRegistry) Register(id string, mode ReplyMode, expected int) (*Future, error) {
	if mode == SingleReply {
		expected = 1
	}
	if expected < 1 {
		return nil, &ValidationError{Field: "expected", Message: "must be at least 1"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentifier, id)
	}

	fut := newFuture(id, mode)
	r.tasks[id] = &pendingTask{
		expected: expected,
		future:   fut,
	}
	return fut, nil
}

// Lookup returns a snapshot of the pending task, or ErrNotFound.
func (r *taskRegistry) Lookup(id string) (TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return TaskInfo{}, ErrNotFound
	}
	return TaskInfo{
		ID:       id,
		Mode:     t.future.mode,
		Expected: t.expected,
		Received: len(t.results),
	}, nil
}

// Deliver routes one result to its pending task. It never blocks.
func (r *taskRegistry) Deliver(id string, result Result) DeliverOutcome {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return DeliverUnknown
	}

	t.results = append(t.results, result)
	if len(t.results) < t.expected {
		r.mu.Unlock()
		return DeliverPending
	}
	delete(r.tasks, id)
	r.mu.Unlock()

	t.future.resolve(t.results, nil)
	return DeliverResolved
}

// Fail resolves one pending task with err and removes it.
func (r *taskRegistry) Fail(id string, err error) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	return t.future.resolve(nil, err)
}

// FailAll resolves every pending task with err and empties the registry.
func (r *taskRegistry) FailAll(err error) int {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*pendingTask)
	r.mu.Unlock()

	for _, t := range tasks {
		t.future.resolve(nil, err)
	}
	return len(tasks)
}

// Remove drops a pending task without resolving it.
func (r *taskRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

// Len returns the number of pending tasks.
func (r *taskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
