package upload

import (
	"sync"

	"uploadhub/engine"
)

// Status is the lifecycle state of a task.
type Status int

const (
	StatusPending Status = iota
	StatusUploading
	StatusCancelled
	StatusError
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUploading:
		return "uploading"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	case StatusComplete:
		return "complete"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusError || s == StatusComplete
}

// Task is the observable state of one upload. All mutations happen on the
// dispatcher goroutine; fields are additionally guarded by the mutex so
// snapshots can be taken from any goroutine.
type Task struct {
	id      string
	session *Session

	*sync.RWMutex
	uploaded    int64
	total       int64
	status      Status
	description string

	listeners     map[int]EventListener
	propListeners map[int]PropertyListener
	nextListener  int
}

func newTask(id string, session *Session, description string) *Task {
	return &Task{
		id:      id,
		session: session,
		RWMutex: new(sync.RWMutex),
		// total defaults to 1 so percentage math never divides by zero
		total:         1,
		status:        StatusPending,
		description:   description,
		listeners:     make(map[int]EventListener),
		propListeners: make(map[int]PropertyListener),
	}
}

func (t *Task) ID() string { return t.id }

func (t *Task) Session() *Session { return t.session }

func (t *Task) Uploaded() int64 {
	t.RLock()
	defer t.RUnlock()
	return t.uploaded
}

func (t *Task) Total() int64 {
	t.RLock()
	defer t.RUnlock()
	return t.total
}

func (t *Task) Status() Status {
	t.RLock()
	defer t.RUnlock()
	return t.status
}

func (t *Task) Description() string {
	t.RLock()
	defer t.RUnlock()
	return t.description
}

// Snapshot is a point-in-time JSON-friendly view of a task.
type Snapshot struct {
	ID          string `json:"id"`
	Session     string `json:"session"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Uploaded    int64  `json:"uploaded"`
	Total       int64  `json:"total"`
}

func (t *Task) Snapshot() Snapshot {
	t.RLock()
	defer t.RUnlock()
	return Snapshot{
		ID:          t.id,
		Session:     t.session.ID(),
		Status:      t.status.String(),
		Description: t.description,
		Uploaded:    t.uploaded,
		Total:       t.total,
	}
}

// Subscribe registers a listener for semantic events. The returned function
// removes it again.
func (t *Task) Subscribe(l EventListener) func() {
	t.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = l
	t.Unlock()

	return func() {
		t.Lock()
		delete(t.listeners, id)
		t.Unlock()
	}
}

// SubscribeProperties registers a listener for field-level change
// notifications.
func (t *Task) SubscribeProperties(l PropertyListener) func() {
	t.Lock()
	id := t.nextListener
	t.nextListener++
	t.propListeners[id] = l
	t.Unlock()

	return func() {
		t.Lock()
		delete(t.propListeners, id)
		t.Unlock()
	}
}

// Cancel asks the engine to abort this upload. The status does not change
// here; the cancellation is observed later through the event stream once the
// engine delivers its callback.
func (t *Task) Cancel() {
	t.session.manager.engine.Abort(t.id)
}

// SetDescription updates the caller-supplied label. The change is applied on
// the dispatcher goroutine like every other mutation.
func (t *Task) SetDescription(description string) {
	t.session.manager.dispatcher.do(func() {
		t.Lock()
		t.description = description
		t.Unlock()
		t.notifyProperty(PropertyChange{Name: PropDescription, Value: description})
	})
}

// --- mutations, dispatcher goroutine only ---

func (t *Task) setStatus(status Status) {
	t.Lock()
	changed := t.status != status
	t.status = status
	t.Unlock()
	if changed {
		t.notifyProperty(PropertyChange{Name: PropStatus, Value: status.String()})
	}
}

func (t *Task) setUploaded(uploaded int64) {
	t.Lock()
	t.uploaded = uploaded
	t.Unlock()
	t.notifyProperty(PropertyChange{Name: PropUpload, Value: uploaded})
}

func (t *Task) setTotal(total int64) {
	t.Lock()
	t.total = total
	t.Unlock()
	t.notifyProperty(PropertyChange{Name: PropTotalUpload, Value: total})
}

func (t *Task) applyProgress(uploaded, total int64) {
	t.setStatus(StatusUploading)
	t.setUploaded(uploaded)
	t.setTotal(total)
	t.emit(ProgressEvent{Current: uploaded, Total: total})
}

func (t *Task) applyCancelled() {
	t.setStatus(StatusCancelled)
	t.emit(CancelledEvent{})
}

func (t *Task) applyError(cause engine.Cause) {
	switch c := cause.(type) {
	case engine.UserCancelled:
		// an abort surfaced through the error path is still a cancellation
		t.applyCancelled()
	case engine.ProtocolError:
		t.setStatus(StatusError)
		code := engine.NoResponseCode
		if c.Response != nil {
			code = c.Response.StatusCode
		}
		t.emit(ErrorEvent{Err: c.Err, ResponseCode: code, Response: c.Response})
	case engine.TransportFailure:
		t.setStatus(StatusError)
		t.emit(ErrorEvent{Err: c.Err, ResponseCode: engine.NoResponseCode})
	default:
		t.setStatus(StatusError)
		t.emit(ErrorEvent{ResponseCode: engine.NoResponseCode})
	}
}

func (t *Task) applySuccess(resp *engine.Response) {
	if resp == nil {
		resp = &engine.Response{StatusCode: engine.NoResponseCode}
	}

	// Whatever total the engine reported, the final progress event must show
	// a fully uploaded task.
	total := t.Total()
	if total <= 0 {
		total = 1
	}
	t.setTotal(total)
	t.setUploaded(total)
	t.setStatus(StatusComplete)

	t.emit(ProgressEvent{Current: total, Total: total})
	t.emit(RespondedEvent{Data: resp.Body, ResponseCode: resp.StatusCode})
	t.emit(CompleteEvent{ResponseCode: resp.StatusCode, Response: resp})
}

func (t *Task) emit(e Event) {
	t.RLock()
	listeners := make([]EventListener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.RUnlock()

	for _, l := range listeners {
		l(t, e)
	}
	t.session.manager.notify(t, e)
}

func (t *Task) notifyProperty(p PropertyChange) {
	t.RLock()
	listeners := make([]PropertyListener, 0, len(t.propListeners))
	for _, l := range t.propListeners {
		listeners = append(listeners, l)
	}
	t.RUnlock()

	for _, l := range listeners {
		l(t, p)
	}
}
