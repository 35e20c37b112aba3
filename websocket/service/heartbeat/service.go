package heartbeat

import (
	"encoding/json"

	ws "uploadhub/websocket"
)

type HeartbeatService struct {
	conn ws.MessageWriter
}

func (s *HeartbeatService) Name() string {
	return "heartbeat"
}

func (s *HeartbeatService) HandleTextMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&ws.ServiceMessage{Service: s.Name(), Action: action, Id: id})
}

func (s *HeartbeatService) Cleanup(err error) {}

func (s *HeartbeatService) Register(w ws.MessageWriter) {
	s.conn = w
}

func NewService() ws.Service {
	return &HeartbeatService{}
}
