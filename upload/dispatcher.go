package upload

import (
	"log"

	"uploadhub/engine"
)

// jobQueueSize bounds the callback queue. Engine workers block on a full
// queue, which backpressures progress reporting instead of dropping it.
const jobQueueSize = 64

// Dispatcher implements engine.Callbacks. Engines invoke it from their own
// worker goroutines; the dispatcher marshals every callback onto a single
// goroutine before touching task state, so task mutations and event delivery
// are effectively single-threaded. Ordering is preserved per task id only.
type Dispatcher struct {
	registry *Registry
	jobs     chan func()
	quit     chan struct{}
	done     chan struct{}

	*log.Logger
}

func NewDispatcher(registry *Registry, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{
		registry: registry,
		jobs:     make(chan func(), jobQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		Logger:   logger,
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case job := <-d.jobs:
			job()
		case <-d.quit:
			return
		}
	}
}

// Close stops the dispatch goroutine. Callbacks arriving afterwards are
// dropped.
func (d *Dispatcher) Close() {
	close(d.quit)
	<-d.done
}

func (d *Dispatcher) do(job func()) {
	select {
	case d.jobs <- job:
	case <-d.quit:
	}
}

// dispatch routes a callback to its task. A miss means a callback arrived
// for a task that was never registered, which the registration-before-submit
// rule is supposed to make impossible; it is logged and dropped rather than
// surfaced to the application.
func (d *Dispatcher) dispatch(name, taskID string, apply func(*Task)) {
	d.do(func() {
		t, ok := d.registry.Lookup(taskID)
		if !ok {
			d.Printf("dropping %s callback for unknown task %q", name, taskID)
			return
		}
		apply(t)
	})
}

func (d *Dispatcher) OnProgress(taskID string, uploaded, total int64) {
	d.dispatch("progress", taskID, func(t *Task) {
		t.applyProgress(uploaded, total)
	})
}

func (d *Dispatcher) OnCancelled(taskID string) {
	d.dispatch("cancelled", taskID, func(t *Task) {
		t.applyCancelled()
	})
}

func (d *Dispatcher) OnError(taskID string, cause engine.Cause) {
	d.dispatch("error", taskID, func(t *Task) {
		t.applyError(cause)
	})
}

func (d *Dispatcher) OnSuccess(taskID string, resp *engine.Response) {
	d.dispatch("success", taskID, func(t *Task) {
		t.applySuccess(resp)
	})
}
