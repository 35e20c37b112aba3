// Package enginetest provides an in-memory engine for tests. It performs no
// I/O; tests script the callback sequence themselves.
package enginetest

import (
	"sync"

	"uploadhub/engine"
)

type Engine struct {
	mu sync.Mutex
	cb engine.Callbacks

	submissions []*engine.Request
	aborted     []string

	// SubmitErr, when set, makes Submit fail synchronously.
	SubmitErr error
	// OnSubmit, when set, runs inside Submit before it returns.
	OnSubmit func(req *engine.Request)
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Register(cb engine.Callbacks) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

func (e *Engine) Submit(req *engine.Request) error {
	e.mu.Lock()
	onSubmit := e.OnSubmit
	err := e.SubmitErr
	if err == nil {
		e.submissions = append(e.submissions, req)
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if onSubmit != nil {
		onSubmit(req)
	}
	return nil
}

func (e *Engine) Abort(taskID string) {
	e.mu.Lock()
	e.aborted = append(e.aborted, taskID)
	e.mu.Unlock()
}

// Callbacks returns whatever was registered, for driving scripted sequences.
func (e *Engine) Callbacks() engine.Callbacks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cb
}

func (e *Engine) Submissions() []*engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*engine.Request(nil), e.submissions...)
}

func (e *Engine) Aborted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.aborted...)
}
