package upload

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"uploadhub/engine"
)

// appRootPrefix marks a file reference as relative to the application root.
const appRootPrefix = "~/"

// Options are the caller-supplied request options for an upload.
type Options struct {
	URL         string
	Method      string
	Headers     map[string]string
	Description string

	// AutoDelete removes the source files after a successful upload.
	AutoDelete bool
	// MaxRetries is passed through to the engine; the tracking core itself
	// never retries.
	MaxRetries int
}

// ValidationError reports a malformed multipart part descriptor. It is
// returned synchronously, before any task is registered or request
// submitted.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload: part %d is missing required field %q", e.Index, e.Field)
}

// Session is an id namespace and task factory. It holds no mutable state;
// both factory methods are safe to call concurrently.
type Session struct {
	id      string
	manager *Manager
}

func (s *Session) ID() string { return s.id }

// UploadFile submits a single-file upload and returns its task. The path is
// passed to the engine as-is.
func (s *Session) UploadFile(path string, opts Options) (*Task, error) {
	t := s.manager.newTask(s, opts.Description)
	req := s.request(t.ID(), opts)
	req.File = path
	return s.manager.submit(t, req)
}

// MultipartUpload submits a multipart upload. Every part needs a name; file
// parts may reference files with a "~/" prefix, resolved against the
// manager's app root, and default their destination filename to the source
// basename.
func (s *Session) MultipartUpload(parts []engine.Part, opts Options) (*Task, error) {
	resolved := make([]engine.Part, len(parts))
	for i, p := range parts {
		if p.Name == "" {
			return nil, &ValidationError{Index: i, Field: "name"}
		}
		if p.Filename != "" {
			p.Filename = s.manager.expandPath(p.Filename)
			if p.DestFilename == "" {
				p.DestFilename = filepath.Base(p.Filename)
			}
		}
		resolved[i] = p
	}

	t := s.manager.newTask(s, opts.Description)
	req := s.request(t.ID(), opts)
	req.Parts = resolved
	return s.manager.submit(t, req)
}

func (s *Session) request(taskID string, opts Options) *engine.Request {
	method := opts.Method
	if method == "" {
		method = http.MethodPost
	}
	return &engine.Request{
		TaskID:     taskID,
		URL:        opts.URL,
		Method:     method,
		Headers:    opts.Headers,
		AutoDelete: opts.AutoDelete,
		MaxRetries: opts.MaxRetries,
	}
}

func (m *Manager) expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, appRootPrefix); ok {
		return filepath.Join(m.appRoot, rest)
	}
	return path
}
