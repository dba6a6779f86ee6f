package runner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type State int

const (
	Invalid State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "invalid"
}

// Runner manages a set of long-running goroutines that share a lifetime. Each
// task receives a context canceled when the runner stops. Stop waits until
// every task returns.
type Runner struct {
	name   string
	logger *zap.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	state   State
	nextID  uint64
	cancels map[uint64]context.CancelFunc
}

func New(name string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		name:    name,
		logger:  logger,
		state:   Running,
		cancels: make(map[uint64]context.CancelFunc),
	}
}

// Run executes f in a new goroutine managed by the runner. It fails if the
// runner is not running.
func (r *Runner) Run(f func(context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Running {
		return fmt.Errorf("runner-%s: %s", r.name, r.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := r.nextID
	r.nextID++
	r.cancels[id] = cancel

	r.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, id)
			r.mu.Unlock()
			r.wg.Done()
		}()
		f(ctx)
	}()
	return nil
}

// NumTasks returns the number of running tasks.
func (r *Runner) NumTasks() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}

// Stop cancels all tasks and waits for them to return. It is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state != Running {
		r.mu.Unlock()
		r.wg.Wait()
		return
	}
	r.state = Stopping
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for _, cancel := range r.cancels {
		cancels = append(cancels, cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	r.wg.Wait()

	r.mu.Lock()
	r.state = Stopped
	r.mu.Unlock()
}

func (r *Runner) State() State {
	if r == nil {
		return Invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) String() string {
	if r == nil {
		return "invalid runner"
	}
	return fmt.Sprintf("runner %s: tasks=%d", r.name, r.NumTasks())
}
