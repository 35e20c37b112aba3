package engine

// NoResponseCode is reported when no HTTP status code could be obtained for
// an upload, e.g. when the connection dropped before a response arrived or
// the engine does not speak HTTP at all.
const NoResponseCode = -1

// Part describes one section of a multipart request body. A part with a
// non-empty Filename is a file part; otherwise it is a plain form field
// carrying Value.
type Part struct {
	Name         string `json:"name"`
	Value        string `json:"value,omitempty"`
	Filename     string `json:"filename,omitempty"`
	DestFilename string `json:"destFilename,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
}

// Request is a fully resolved upload submission. Exactly one of File or
// Parts is set. The engine owns the upload lifecycle from Submit until it
// has delivered a terminal callback for TaskID.
type Request struct {
	TaskID  string
	URL     string
	Method  string
	Headers map[string]string

	// File is the local path for a single-file upload.
	File string
	// Parts is the multipart body description.
	Parts []Part

	// AutoDelete removes the local source files after a successful upload.
	AutoDelete bool
	// MaxRetries is the number of extra attempts after a failed one.
	MaxRetries int
}

// Response captures whatever the remote side answered.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// Cause classifies why an upload failed. The three shapes mirror what
// engines can actually know: the user aborted, the server answered badly,
// or the transport itself broke.
type Cause interface {
	isCause()
}

// UserCancelled reports that the upload was aborted on request.
type UserCancelled struct{}

// ProtocolError reports a failure with an associated server response.
type ProtocolError struct {
	Err      error
	Response *Response
}

// TransportFailure reports a low-level failure with no server response.
type TransportFailure struct {
	Err error
}

func (UserCancelled) isCause()    {}
func (ProtocolError) isCause()    {}
func (TransportFailure) isCause() {}

// Callbacks is how an engine reports upload lifecycle changes back to the
// tracking core. Implementations must tolerate being called from the
// engine's own worker goroutines; per task id, callbacks are delivered in
// order, but callbacks for different tasks may interleave freely.
type Callbacks interface {
	OnProgress(taskID string, uploaded, total int64)
	OnCancelled(taskID string)
	OnError(taskID string, cause Cause)
	OnSuccess(taskID string, resp *Response)
}

// Engine performs the actual transfer. Register must be called once before
// the first Submit; Submit returns immediately after handing the request to
// a worker, Abort is fire-and-forget.
type Engine interface {
	Register(cb Callbacks)
	Submit(req *Request) error
	Abort(taskID string)
}
