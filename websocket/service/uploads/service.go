package uploads

import (
	"encoding/json"
	"log"
	"sync"

	"uploadhub/upload"
	ws "uploadhub/websocket"
)

const (
	actionWatch   = "watch"
	actionUnwatch = "unwatch"
	actionCancel  = "cancel"
	actionEvict   = "evict"
	actionState   = "state"

	// watchAll subscribes the connection to every task
	watchAll = "*"
)

// UploadsService streams task lifecycle events to a websocket client. The
// message id carries the task id; clients watch individual tasks or "*".
type UploadsService struct {
	conn    ws.MessageWriter
	manager *upload.Manager

	*sync.RWMutex
	watched     map[string]bool
	all         bool
	unsubscribe func()

	*log.Logger
}

func NewService(manager *upload.Manager) ws.Service {
	return &UploadsService{
		manager: manager,
		RWMutex: new(sync.RWMutex),
		watched: make(map[string]bool),
		Logger:  log.New(log.Writer(), "[uploads] ", log.LstdFlags),
	}
}

func (s *UploadsService) Name() string {
	return "uploads"
}

func (s *UploadsService) Register(w ws.MessageWriter) {
	s.conn = w
	s.unsubscribe = s.manager.Subscribe(s.onEvent)
}

func (s *UploadsService) Cleanup(err error) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *UploadsService) HandleTextMessage(id, action string, data json.RawMessage) {
	switch action {
	case actionWatch:
		s.handleWatch(id)
	case actionUnwatch:
		s.handleUnwatch(id)
	case actionCancel:
		s.handleCancel(id)
	case actionEvict:
		s.handleEvict(id)
	}
}

func (s *UploadsService) handleWatch(id string) {
	s.Lock()
	if id == watchAll {
		s.all = true
	} else {
		s.watched[id] = true
	}
	s.Unlock()

	// Send current snapshots so late watchers start from a known state
	if id == watchAll {
		for _, t := range s.manager.Tasks() {
			s.writeState(t)
		}
		return
	}
	if t, ok := s.manager.Task(id); ok {
		s.writeState(t)
	} else {
		s.writeError(id, actionWatch, upload.ErrUnknownTask.Error())
	}
}

func (s *UploadsService) handleUnwatch(id string) {
	s.Lock()
	if id == watchAll {
		s.all = false
	} else {
		delete(s.watched, id)
	}
	s.Unlock()
}

func (s *UploadsService) handleCancel(id string) {
	t, ok := s.manager.Task(id)
	if !ok {
		s.writeError(id, actionCancel, upload.ErrUnknownTask.Error())
		return
	}
	// Fire-and-forget; the outcome arrives through the event stream
	t.Cancel()
}

func (s *UploadsService) handleEvict(id string) {
	if err := s.manager.Evict(id); err != nil {
		s.writeError(id, actionEvict, err.Error())
		return
	}
	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  actionEvict,
	})
}

func (s *UploadsService) onEvent(t *upload.Task, e upload.Event) {
	s.RLock()
	interested := s.all || s.watched[t.ID()]
	s.RUnlock()
	if !interested {
		return
	}

	data, err := json.Marshal(eventPayload(e))
	if err != nil {
		s.Printf("(task: %s) error encoding %s event: %v", t.ID(), e.Kind(), err)
		return
	}
	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      t.ID(),
		Action:  e.Kind(),
		Data:    data,
	})
}

func (s *UploadsService) writeState(t *upload.Task) {
	data, err := json.Marshal(t.Snapshot())
	if err != nil {
		s.Printf("(task: %s) error encoding snapshot: %v", t.ID(), err)
		return
	}
	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      t.ID(),
		Action:  actionState,
		Data:    data,
	})
}

func (s *UploadsService) writeError(id, action, message string) {
	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
		Error:   message,
	})
}

// eventPayload converts an event into its wire shape. ErrorEvent carries an
// error value that does not marshal on its own.
func eventPayload(e upload.Event) any {
	switch ev := e.(type) {
	case upload.ErrorEvent:
		payload := map[string]any{"responseCode": ev.ResponseCode}
		if ev.Err != nil {
			payload["error"] = ev.Err.Error()
		}
		if ev.Response != nil {
			payload["response"] = ev.Response
		}
		return payload
	case upload.CancelledEvent:
		return map[string]any{}
	default:
		return e
	}
}
