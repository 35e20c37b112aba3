package upload

import (
	"sync"

	"uploadhub/engine"
	"uploadhub/engine/enginetest"
)

// newTestManager wires a manager to the in-memory engine.
func newTestManager(appRoot string) (*Manager, *enginetest.Engine) {
	eng := enginetest.New()
	return NewManager(eng, appRoot), eng
}

// flush waits until the dispatcher has drained everything enqueued so far.
func flush(m *Manager) {
	done := make(chan struct{})
	m.dispatcher.do(func() { close(done) })
	<-done
}

// eventRecorder collects semantic events from a task.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(t *Task, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// propRecorder collects property-change notifications.
type propRecorder struct {
	mu    sync.Mutex
	props []PropertyChange
}

func (r *propRecorder) listen(t *Task, p PropertyChange) {
	r.mu.Lock()
	r.props = append(r.props, p)
	r.mu.Unlock()
}

func (r *propRecorder) all() []PropertyChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PropertyChange(nil), r.props...)
}

var _ engine.Callbacks = (*Dispatcher)(nil)
