package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadhub/engine"
)

func TestSessionTaskIDsAreUnique(t *testing.T) {
	m, _ := newTestManager(t.TempDir())
	defer m.Close()

	// two sessions with the same id still mint distinct task ids
	s1 := m.Session("shared")
	s2 := m.Session("shared")

	t1, err := s1.UploadFile("/tmp/a.bin", Options{URL: "http://example.com"})
	require.NoError(t, err)
	t2, err := s2.UploadFile("/tmp/b.bin", Options{URL: "http://example.com"})
	require.NoError(t, err)

	assert.Equal(t, "shared{1}", t1.ID())
	assert.Equal(t, "shared{2}", t2.ID())
}

func TestSessionGeneratedID(t *testing.T) {
	m, _ := newTestManager(t.TempDir())
	defer m.Close()

	s := m.Session("")
	assert.NotEmpty(t, s.ID())
}

func TestUploadFileSubmitsRequest(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{
		URL:        "http://example.com/up",
		Headers:    map[string]string{"Authorization": "Bearer x"},
		AutoDelete: true,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	subs := eng.Submissions()
	require.Len(t, subs, 1)
	req := subs[0]
	assert.Equal(t, task.ID(), req.TaskID)
	assert.Equal(t, "http://example.com/up", req.URL)
	assert.Equal(t, http.MethodPost, req.Method, "method defaults to POST")
	assert.Equal(t, "/tmp/a.bin", req.File)
	assert.Equal(t, "Bearer x", req.Headers["Authorization"])
	assert.True(t, req.AutoDelete)
	assert.Equal(t, 2, req.MaxRetries)
}

func TestTaskRegisteredBeforeSubmit(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	// the engine must be able to route a callback that fires during Submit
	eng.OnSubmit = func(req *engine.Request) {
		_, ok := m.Task(req.TaskID)
		assert.True(t, ok, "task not registered before submission")
	}

	_, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com"})
	require.NoError(t, err)
}

func TestSubmitFailureRollsBackRegistration(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	eng.SubmitErr = errors.New("engine rejected request")

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com"})
	require.Error(t, err)
	assert.Nil(t, task)
	assert.Empty(t, m.Tasks())
}

func TestMultipartUploadValidatesPartNames(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	parts := []engine.Part{
		{Name: "title", Value: "hello"},
		{Value: "orphan value"},
	}
	task, err := m.Session("s1").MultipartUpload(parts, Options{URL: "http://example.com"})

	require.Error(t, err)
	assert.Nil(t, task)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, "name", verr.Field)

	// validation failed before anything was registered or submitted
	assert.Empty(t, m.Tasks())
	assert.Empty(t, eng.Submissions())
}

func TestMultipartUploadResolvesFileParts(t *testing.T) {
	root := t.TempDir()
	m, eng := newTestManager(root)
	defer m.Close()

	parts := []engine.Part{
		{Name: "meta", Value: "v1"},
		{Name: "doc", Filename: "~/docs/report.pdf", MimeType: "application/pdf"},
		{Name: "pic", Filename: "/abs/photo.jpg", DestFilename: "renamed.jpg"},
	}
	_, err := m.Session("s1").MultipartUpload(parts, Options{URL: "http://example.com"})
	require.NoError(t, err)

	subs := eng.Submissions()
	require.Len(t, subs, 1)
	resolved := subs[0].Parts
	require.Len(t, resolved, 3)

	assert.Equal(t, "v1", resolved[0].Value)
	assert.Empty(t, resolved[0].Filename)

	assert.Equal(t, filepath.Join(root, "docs", "report.pdf"), resolved[1].Filename)
	assert.Equal(t, "report.pdf", resolved[1].DestFilename, "destFilename defaults to the basename")
	assert.Equal(t, "application/pdf", resolved[1].MimeType)

	assert.Equal(t, "/abs/photo.jpg", resolved[2].Filename)
	assert.Equal(t, "renamed.jpg", resolved[2].DestFilename)
}
