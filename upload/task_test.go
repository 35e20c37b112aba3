package upload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadhub/engine"
)

func TestTaskLifecycleSuccess(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/report.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	assert.Equal(t, "s1{1}", task.ID())
	assert.Equal(t, StatusPending, task.Status())
	assert.EqualValues(t, 0, task.Uploaded())
	assert.EqualValues(t, 1, task.Total())

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	cb := eng.Callbacks()
	cb.OnProgress(task.ID(), 50, 200)
	flush(m)

	assert.Equal(t, StatusUploading, task.Status())
	assert.EqualValues(t, 50, task.Uploaded())
	assert.EqualValues(t, 200, task.Total())

	cb.OnSuccess(task.ID(), &engine.Response{StatusCode: 200, Body: "OK"})
	flush(m)

	assert.Equal(t, StatusComplete, task.Status())
	assert.EqualValues(t, 200, task.Uploaded())
	assert.EqualValues(t, 200, task.Total())

	require.Equal(t, []Event{
		ProgressEvent{Current: 50, Total: 200},
		ProgressEvent{Current: 200, Total: 200},
		RespondedEvent{Data: "OK", ResponseCode: 200},
		CompleteEvent{ResponseCode: 200, Response: &engine.Response{StatusCode: 200, Body: "OK"}},
	}, events.all())
}

func TestTaskSuccessNormalizesZeroTotal(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/empty.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	cb := eng.Callbacks()
	cb.OnProgress(task.ID(), 0, 0)
	cb.OnSuccess(task.ID(), &engine.Response{StatusCode: 201})
	flush(m)

	// A zero total must never leak into the final progress event
	require.Equal(t, []Event{
		ProgressEvent{Current: 0, Total: 0},
		ProgressEvent{Current: 1, Total: 1},
		RespondedEvent{ResponseCode: 201},
		CompleteEvent{ResponseCode: 201, Response: &engine.Response{StatusCode: 201}},
	}, events.all())
	assert.EqualValues(t, 1, task.Uploaded())
	assert.EqualValues(t, 1, task.Total())
}

func TestTaskUserCancelledViaErrorPath(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	eng.Callbacks().OnError(task.ID(), engine.UserCancelled{})
	flush(m)

	assert.Equal(t, StatusCancelled, task.Status())
	require.Equal(t, []Event{CancelledEvent{}}, events.all())
}

func TestTaskCancelledCallback(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	cb := eng.Callbacks()
	cb.OnProgress(task.ID(), 10, 100)
	cb.OnCancelled(task.ID())
	flush(m)

	assert.Equal(t, StatusCancelled, task.Status())
	require.Equal(t, []Event{
		ProgressEvent{Current: 10, Total: 100},
		CancelledEvent{},
	}, events.all())
}

func TestTaskProtocolError(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	cause := engine.ProtocolError{
		Err:      errors.New("server returned 500 Internal Server Error"),
		Response: &engine.Response{StatusCode: 500, Body: "boom"},
	}
	eng.Callbacks().OnError(task.ID(), cause)
	flush(m)

	assert.Equal(t, StatusError, task.Status())
	all := events.all()
	require.Len(t, all, 1)
	ev, ok := all[0].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, 500, ev.ResponseCode)
	assert.Equal(t, "boom", ev.Response.Body)
	assert.EqualError(t, ev.Err, "server returned 500 Internal Server Error")
}

func TestTaskTransportFailureHasNoResponseDetails(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	eng.Callbacks().OnError(task.ID(), engine.TransportFailure{Err: errors.New("connection reset")})
	flush(m)

	assert.Equal(t, StatusError, task.Status())
	all := events.all()
	require.Len(t, all, 1)
	ev, ok := all[0].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, engine.NoResponseCode, ev.ResponseCode)
	assert.Nil(t, ev.Response)
	assert.EqualError(t, ev.Err, "connection reset")
}

func TestTaskProgressMonotonicAndSingleTerminalEvent(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	task.Subscribe(events.listen)

	cb := eng.Callbacks()
	for i := int64(1); i <= 5; i++ {
		cb.OnProgress(task.ID(), i*20, 100)
	}
	cb.OnSuccess(task.ID(), &engine.Response{StatusCode: 200, Body: "done"})
	flush(m)

	var last int64 = -1
	terminals := 0
	for _, e := range events.all() {
		switch ev := e.(type) {
		case ProgressEvent:
			assert.GreaterOrEqual(t, ev.Current, last)
			last = ev.Current
		case CompleteEvent, CancelledEvent, ErrorEvent:
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.EqualValues(t, 100, last)
}

func TestTaskToleratesLateCallbacks(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	cb := eng.Callbacks()
	cb.OnCancelled(task.ID())
	// protocol violation by the engine; must not panic
	cb.OnProgress(task.ID(), 10, 100)
	cb.OnCancelled(task.ID())
	flush(m)

	assert.Equal(t, StatusCancelled, task.Status())
}

func TestTaskPropertyChangeNotifications(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	props := &propRecorder{}
	task.SubscribeProperties(props.listen)

	eng.Callbacks().OnProgress(task.ID(), 50, 200)
	flush(m)

	require.Equal(t, []PropertyChange{
		{Name: PropStatus, Value: "uploading"},
		{Name: PropUpload, Value: int64(50)},
		{Name: PropTotalUpload, Value: int64(200)},
	}, props.all())
}

func TestTaskSetDescription(t *testing.T) {
	m, _ := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up", Description: "initial"})
	require.NoError(t, err)
	assert.Equal(t, "initial", task.Description())

	props := &propRecorder{}
	task.SubscribeProperties(props.listen)

	task.SetDescription("renamed")
	flush(m)

	assert.Equal(t, "renamed", task.Description())
	require.Equal(t, []PropertyChange{{Name: PropDescription, Value: "renamed"}}, props.all())
}

func TestTaskCancelIsFireAndForget(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	task.Cancel()

	// cancel only asks the engine; the status is untouched until the
	// cancellation callback arrives
	assert.Equal(t, StatusPending, task.Status())
	assert.Equal(t, []string{task.ID()}, eng.Aborted())

	eng.Callbacks().OnCancelled(task.ID())
	flush(m)
	assert.Equal(t, StatusCancelled, task.Status())
}

func TestTaskUnsubscribeStopsDelivery(t *testing.T) {
	m, eng := newTestManager(t.TempDir())
	defer m.Close()

	task, err := m.Session("s1").UploadFile("/tmp/a.bin", Options{URL: "http://example.com/up"})
	require.NoError(t, err)

	events := &eventRecorder{}
	unsubscribe := task.Subscribe(events.listen)

	cb := eng.Callbacks()
	cb.OnProgress(task.ID(), 10, 100)
	flush(m)
	unsubscribe()
	cb.OnProgress(task.ID(), 20, 100)
	flush(m)

	require.Equal(t, []Event{ProgressEvent{Current: 10, Total: 100}}, events.all())
}
