// Package sftpengine uploads files to an SFTP server. The request URL is
// interpreted as the remote destination path. Multipart bodies are not
// representable over SFTP and are rejected at submission.
package sftpengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"uploadhub/engine"
)

// ErrMultipartUnsupported is returned by Submit for multipart requests.
var ErrMultipartUnsupported = errors.New("sftpengine: multipart uploads are not supported")

const copyChunkSize = 32 * 1024

type Engine struct {
	client *sftp.Client

	mu     sync.Mutex
	cb     engine.Callbacks
	active map[string]context.CancelFunc

	*log.Logger
}

func New(client *sftp.Client) *Engine {
	return &Engine{
		client: client,
		active: make(map[string]context.CancelFunc),
		Logger: log.New(log.Writer(), "[sftpengine] ", log.LstdFlags),
	}
}

// Dial connects with password authentication and returns an engine over the
// resulting SFTP client.
func Dial(addr, user, password string) (*Engine, error) {
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Note: In production, use proper host key verification
	}

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("starting sftp subsystem: %w", err)
	}
	return New(client), nil
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
		return errors.New("sftpengine: no callbacks registered")
	}
	if len(req.Parts) > 0 {
		return ErrMultipartUnsupported
	}
	if req.File == "" {
		return errors.New("sftpengine: request has no file")
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

	err := e.upload(ctx, cb, req)
	switch {
	case err == nil:
		if req.AutoDelete {
			if err := os.Remove(req.File); err != nil {
				e.Printf("(task: %s) error removing uploaded file: %v", req.TaskID, err)
			}
		}
		// There is no HTTP exchange here, so no status code or body exists.
		cb.OnSuccess(req.TaskID, &engine.Response{StatusCode: engine.NoResponseCode})
	case errors.Is(err, context.Canceled):
		cb.OnCancelled(req.TaskID)
	default:
		cb.OnError(req.TaskID, engine.TransportFailure{Err: err})
	}
}

func (e *Engine) upload(ctx context.Context, cb engine.Callbacks, req *engine.Request) error {
	src, err := os.Open(req.File)
	if err != nil {
		return fmt.Errorf("opening upload file: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stating upload file: %w", err)
	}
	total := info.Size()

	dest := req.URL
	if err := e.client.MkdirAll(path.Dir(dest)); err != nil {
		return fmt.Errorf("creating remote directory: %w", err)
	}
	dst, err := e.client.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("opening remote file: %w", err)
	}
	defer dst.Close()

	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing remote file: %w", werr)
			}
			written += int64(n)
			cb.OnProgress(req.TaskID, written, total)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading upload file: %w", err)
		}
	}
}
