package runware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestDispatcher(buf *bytes.Buffer) *dispatcher {
	return &dispatcher{
		registry: newTaskRegistry(),
		logger:   slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func decodeFrame(t *testing.T, raw string) *Frame {
	t.Helper()
	var frame Frame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return &frame
}

func TestDispatcher_Data(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	fut, _ := d.registry.Register("U1", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{"data":[{"taskType":"imageInference","taskUUID":"U1","imageURL":"http://x"}]}`))

	results, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	images, err := decodeResults[ImageResult](TaskImageInference, results)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if images[0].ImageURL != "http://x" {
		t.Errorf("ImageURL = %s, want http://x", images[0].ImageURL)
	}
}

func TestDispatcher_ErrorsTakePrecedence(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	fut, _ := d.registry.Register("U1", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{
		"errors":[{"code":"boom","message":"nope"}],
		"data":[{"taskUUID":"U1"}]
	}`))

	if isDone(fut) {
		t.Error("data was routed from a frame carrying errors")
	}
	if !strings.Contains(buf.String(), "error received") {
		t.Errorf("error not logged: %s", buf.String())
	}
}

func TestDispatcher_AttributableError(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	target, _ := d.registry.Register("U1", BatchReply, 2)
	other, _ := d.registry.Register("U2", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{"errors":[{"code":"invalidModel","message":"unknown model","taskUUID":"U1","taskType":"imageInference"}]}`))

	_, err := target.Wait(context.Background())
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.TaskUUID != "U1" || remoteErr.TaskType != "imageInference" {
		t.Errorf("remoteErr = %+v", remoteErr)
	}
	if isDone(other) {
		t.Error("unrelated task resolved")
	}
}

func TestDispatcher_UnattributedError(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	fut, _ := d.registry.Register("U1", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{"errors":[{"code":"invalidApiKey","message":"bad key"}]}`))

	if isDone(fut) {
		t.Error("unattributed error resolved a task")
	}
	if !strings.Contains(buf.String(), "invalidApiKey") {
		t.Errorf("error not logged: %s", buf.String())
	}
}

func TestDispatcher_Informational(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	d.registry.Register("U1", SingleReply, 1)

	var seen int
	d.onReceive = func(*Frame) { seen++ }

	for _, raw := range []string{`{}`, `{"data":[]}`, `{"errors":[]}`} {
		d.Dispatch(decodeFrame(t, raw))
	}

	if seen != 3 {
		t.Errorf("onReceive calls = %d, want 3", seen)
	}
	if d.registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.registry.Len())
	}
}

func TestDispatcher_UnknownAndPong(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	fut, _ := d.registry.Register("U1", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{"data":[{"taskType":"ping","pong":true},{"taskUUID":"nobody","text":"x"}]}`))

	if isDone(fut) {
		t.Error("task resolved by unrelated results")
	}
	if !strings.Contains(buf.String(), "result for unknown task") {
		t.Errorf("unknown result not logged: %s", buf.String())
	}
}

func TestDispatcher_MalformedEntry(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDispatcher(&buf)
	fut, _ := d.registry.Register("U1", SingleReply, 1)

	d.Dispatch(decodeFrame(t, `{"data":[{"taskUUID":"U1","text":"ok"},{"taskUUID":5}]}`))

	results, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if got := texts(t, results); got[0] != "ok" {
		t.Errorf("text = %s, want ok", got[0])
	}
	if !strings.Contains(buf.String(), "dropping malformed entry") {
		t.Errorf("malformed entry not logged: %s", buf.String())
	}
}
