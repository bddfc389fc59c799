package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// startServer answers every task with one text result per requested
// promptVersion, or a single result for other task types.
func startServer(t *testing.T) string {
	t.Helper()
	return startRecordingServer(t, nil)
}

// startRecordingServer is startServer that also passes every non-auth,
// non-ping task to seen when seen is non-nil.
func startRecordingServer(t *testing.T, seen chan<- map[string]any) string {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var tasks []map[string]any
			if err := wsjson.Read(ctx, conn, &tasks); err != nil {
				return
			}
			for _, task := range tasks {
				taskType, _ := task["taskType"].(string)
				id, _ := task["taskUUID"].(string)
				n := 1
				if v, ok := task["promptVersions"].(float64); ok {
					n = int(v)
				}
				switch taskType {
				case "authentication", "ping":
					continue
				}
				if seen != nil {
					seen <- task
				}
				for i := 0; i < n; i++ {
					reply := map[string]any{"data": []map[string]any{{
						"taskType": taskType,
						"taskUUID": id,
						"text":     taskType + " reply",
						"imageURL": "https://im.example/out.png",
					}}}
					if err := wsjson.Write(ctx, conn, reply); err != nil {
						return
					}
				}
			}
		}
	}))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoot_Enhance(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUNWARE_API_KEY", "k")
	url := startServer(t)

	out, err := execute(t, "--url", url, "--heartbeat", "0", "enhance", "a", "cat", "-n", "3")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	var results []struct {
		TaskUUID string `json:"taskUUID"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Text != "promptEnhance reply" {
		t.Errorf("Text = %s", results[0].Text)
	}
}

func TestRoot_Upscale(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUNWARE_API_KEY", "k")
	url := startServer(t)

	out, err := execute(t, "--url", url, "--heartbeat", "0", "upscale", "img-uuid", "--factor", "3")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	var result struct {
		ImageURL string `json:"imageURL"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.ImageURL != "https://im.example/out.png" {
		t.Errorf("ImageURL = %s", result.ImageURL)
	}
}

func TestRoot_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "caption", "img")
	if err == nil || !strings.Contains(err.Error(), "apiKey") {
		t.Errorf("err = %v, want apiKey validation error", err)
	}
}

func TestRoot_InvalidRequest(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUNWARE_API_KEY", "k")
	url := startServer(t)

	_, err := execute(t, "--url", url, "--heartbeat", "0", "upscale", "img", "--factor", "9")
	if err == nil || !strings.Contains(err.Error(), "upscaleFactor") {
		t.Errorf("err = %v, want upscaleFactor validation error", err)
	}
}

func TestRoot_BadLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUNWARE_API_KEY", "k")

	_, err := execute(t, "--log-level", "loud", "caption", "img")
	if err == nil || !strings.Contains(err.Error(), "log level") {
		t.Errorf("err = %v, want log level error", err)
	}
}
