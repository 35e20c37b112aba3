package upload

import "uploadhub/engine"

// Property names used in change notifications.
const (
	PropUpload      = "upload"
	PropTotalUpload = "totalUpload"
	PropStatus      = "status"
	PropDescription = "description"
)

// Event is one semantic lifecycle event of a task. Consumers dispatch on the
// concrete type; Kind returns a stable name for wire protocols.
type Event interface {
	Kind() string
}

// ProgressEvent reports the current byte counts. Every engine progress tick
// produces exactly one ProgressEvent, no debouncing.
type ProgressEvent struct {
	Current int64 `json:"current"`
	Total   int64 `json:"total"`
}

// CancelledEvent reports that the upload was aborted.
type CancelledEvent struct{}

// ErrorEvent reports a failed upload. ResponseCode is engine.NoResponseCode
// and Response is nil when the failure produced no server response.
type ErrorEvent struct {
	Err          error
	ResponseCode int
	Response     *engine.Response
}

// RespondedEvent carries the raw response body of a successful upload.
type RespondedEvent struct {
	Data         string `json:"data"`
	ResponseCode int    `json:"responseCode"`
}

// CompleteEvent is the terminal event of a successful upload.
type CompleteEvent struct {
	ResponseCode int              `json:"responseCode"`
	Response     *engine.Response `json:"response,omitempty"`
}

func (ProgressEvent) Kind() string  { return "progress" }
func (CancelledEvent) Kind() string { return "cancelled" }
func (ErrorEvent) Kind() string     { return "error" }
func (RespondedEvent) Kind() string { return "responded" }
func (CompleteEvent) Kind() string  { return "complete" }

// PropertyChange is the field-level notification fired alongside semantic
// events, for observers that track individual properties.
type PropertyChange struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// EventListener receives semantic events for a task.
type EventListener func(t *Task, e Event)

// PropertyListener receives field-level change notifications for a task.
type PropertyListener func(t *Task, p PropertyChange)
