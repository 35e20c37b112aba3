package upload

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"uploadhub/engine"
)

var (
	// ErrUnknownTask is returned when a task id does not resolve.
	ErrUnknownTask = errors.New("upload: unknown task")
	// ErrTaskActive is returned when evicting a task that has not reached a
	// terminal state yet.
	ErrTaskActive = errors.New("upload: task has not reached a terminal state")
)

// Manager is the upload subsystem: it owns the registry and the dispatcher,
// binds them to an engine, and hands out sessions. One Manager per engine.
type Manager struct {
	registry   *Registry
	dispatcher *Dispatcher
	engine     engine.Engine
	appRoot    string
	seq        atomic.Uint64

	*sync.RWMutex
	subscribers map[int]EventListener
	nextSub     int

	*log.Logger
}

// NewManager wires registry, dispatcher and engine together. appRoot is the
// directory that "~/" file references resolve against.
func NewManager(eng engine.Engine, appRoot string) *Manager {
	logger := log.New(log.Writer(), "[upload] ", log.LstdFlags)
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, logger)
	eng.Register(dispatcher)

	return &Manager{
		registry:    registry,
		dispatcher:  dispatcher,
		engine:      eng,
		appRoot:     appRoot,
		RWMutex:     new(sync.RWMutex),
		subscribers: make(map[int]EventListener),
		Logger:      logger,
	}
}

// Session returns a task factory for the given id. An empty id gets a
// generated one.
func (m *Manager) Session(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{id: id, manager: m}
}

func (m *Manager) Task(id string) (*Task, bool) {
	return m.registry.Lookup(id)
}

func (m *Manager) Tasks() []*Task {
	return m.registry.List()
}

// Evict removes a finished task from the registry. The caller acknowledges
// that it has consumed the final events; evicting an in-flight task is
// refused so its callbacks stay routable.
func (m *Manager) Evict(id string) error {
	t, ok := m.registry.Lookup(id)
	if !ok {
		return ErrUnknownTask
	}
	if !t.Status().Terminal() {
		return ErrTaskActive
	}
	m.registry.Remove(id)
	return nil
}

// Subscribe registers a listener that receives every event of every task.
// The returned function removes it.
func (m *Manager) Subscribe(l EventListener) func() {
	m.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = l
	m.Unlock()

	return func() {
		m.Lock()
		delete(m.subscribers, id)
		m.Unlock()
	}
}

// Close stops event dispatch. In-flight engine uploads are not aborted.
func (m *Manager) Close() {
	m.dispatcher.Close()
}

func (m *Manager) notify(t *Task, e Event) {
	m.RLock()
	listeners := make([]EventListener, 0, len(m.subscribers))
	for _, l := range m.subscribers {
		listeners = append(listeners, l)
	}
	m.RUnlock()

	for _, l := range listeners {
		l(t, e)
	}
}

// newTask creates and registers a task. Registration happens here, before
// the request is submitted, so no callback can ever beat it.
func (m *Manager) newTask(s *Session, description string) *Task {
	id := fmt.Sprintf("%s{%d}", s.id, m.seq.Add(1))
	t := newTask(id, s, description)
	m.registry.Add(t)
	return t
}

// submit hands a request to the engine, rolling back the registration when
// the engine rejects it synchronously.
func (m *Manager) submit(t *Task, req *engine.Request) (*Task, error) {
	if err := m.engine.Submit(req); err != nil {
		m.registry.Remove(t.ID())
		return nil, fmt.Errorf("submitting task %s: %w", t.ID(), err)
	}
	return t, nil
}
