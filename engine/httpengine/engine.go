// Package httpengine uploads over HTTP. Single-file requests stream the file
// as the raw request body; multipart requests are encoded with
// mime/multipart. Progress is reported per read chunk.
package httpengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"sync"

	"uploadhub/engine"
)

type Engine struct {
	client *http.Client

	mu     sync.Mutex
	cb     engine.Callbacks
	active map[string]context.CancelFunc

	*log.Logger
}

// New returns an engine using the given client, or a default one when nil.
func New(client *http.Client) *Engine {
	if client == nil {
		client = &http.Client{}
	}
	return &Engine{
		client: client,
		active: make(map[string]context.CancelFunc),
		Logger: log.New(log.Writer(), "[httpengine] ", log.LstdFlags),
	}
}

func (e *Engine) Register(cb engine.Callbacks) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

func (e *Engine) Submit(req *engine.Request) error {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()
	if cb == nil {
		return errors.New("httpengine: no callbacks registered")
	}
	if req.File == "" && len(req.Parts) == 0 {
		return errors.New("httpengine: request has no body")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.active[req.TaskID] = cancel
	e.mu.Unlock()

	go e.run(ctx, cb, req)
	return nil
}

func (e *Engine) Abort(taskID string) {
	e.mu.Lock()
	cancel, ok := e.active[taskID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, cb engine.Callbacks, req *engine.Request) {
	defer func() {
		e.mu.Lock()
		if cancel, ok := e.active[req.TaskID]; ok {
			delete(e.active, req.TaskID)
			cancel()
		}
		e.mu.Unlock()
	}()

	attempts := req.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastCause engine.Cause
	for i := 0; i < attempts; i++ {
		resp, cause := e.attempt(ctx, cb, req)
		if cause == nil {
			if req.AutoDelete {
				e.deleteSources(req)
			}
			cb.OnSuccess(req.TaskID, resp)
			return
		}
		if _, cancelled := cause.(engine.UserCancelled); cancelled {
			cb.OnCancelled(req.TaskID)
			return
		}
		lastCause = cause
	}
	cb.OnError(req.TaskID, lastCause)
}

// attempt performs one upload try. The body is rebuilt every time so retries
// start from the beginning of the transfer.
func (e *Engine) attempt(ctx context.Context, cb engine.Callbacks, req *engine.Request) (*engine.Response, engine.Cause) {
	body, total, contentType, err := buildBody(req)
	if err != nil {
		return nil, engine.TransportFailure{Err: err}
	}
	defer body.Close()

	reader := &progressReader{
		r:      body,
		taskID: req.TaskID,
		total:  total,
		cb:     cb,
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, engine.TransportFailure{Err: err}
	}
	httpReq.ContentLength = total
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, engine.UserCancelled{}
		}
		return nil, engine.TransportFailure{Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, engine.TransportFailure{Err: err}
	}

	resp := &engine.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    flattenHeader(httpResp.Header),
		Body:       string(respBody),
	}
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, engine.ProtocolError{
			Err:      fmt.Errorf("server returned %s", httpResp.Status),
			Response: resp,
		}
	}
	return resp, nil
}

func (e *Engine) deleteSources(req *engine.Request) {
	remove := func(path string) {
		if err := os.Remove(path); err != nil {
			e.Printf("(task: %s) error removing uploaded file: %v", req.TaskID, err)
		}
	}
	if req.File != "" {
		remove(req.File)
	}
	for _, p := range req.Parts {
		if p.Filename != "" {
			remove(p.Filename)
		}
	}
}

// buildBody returns the request body, its exact length and, for multipart
// bodies, the content type.
func buildBody(req *engine.Request) (io.ReadCloser, int64, string, error) {
	if req.File != "" {
		file, err := os.Open(req.File)
		if err != nil {
			return nil, 0, "", fmt.Errorf("opening upload file: %w", err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, 0, "", fmt.Errorf("stating upload file: %w", err)
		}
		return file, info.Size(), "", nil
	}

	// Multipart bodies are buffered so the reported total is exact and
	// retries can rebuild cheaply.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range req.Parts {
		if p.Filename == "" {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return nil, 0, "", err
			}
			continue
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			escapeQuotes(p.Name), escapeQuotes(p.DestFilename)))
		if p.MimeType != "" {
			header.Set("Content-Type", p.MimeType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, 0, "", err
		}
		file, err := os.Open(p.Filename)
		if err != nil {
			return nil, 0, "", fmt.Errorf("opening part %q: %w", p.Name, err)
		}
		_, err = io.Copy(part, file)
		file.Close()
		if err != nil {
			return nil, 0, "", fmt.Errorf("reading part %q: %w", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, 0, "", err
	}
	return io.NopCloser(&buf), int64(buf.Len()), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// progressReader reports a progress callback for every chunk the transport
// reads from the body.
type progressReader struct {
	r      io.Reader
	taskID string
	total  int64
	read   int64
	cb     engine.Callbacks
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.cb.OnProgress(p.taskID, p.read, p.total)
	}
	return n, err
}
