package websocket

import (
	"encoding/json"
)

// MessageWriter is the write side handed to services. *Conn implements it;
// tests substitute a recorder.
type MessageWriter interface {
	WriteJSON(v any) error
}

type Service interface {
	HandleTextMessage(id string, action string, data json.RawMessage)
	Name() string
	Cleanup(err error)
	Register(w MessageWriter)
}

type ServiceMessage struct {
	Service string          `json:"service"`
	Id      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
