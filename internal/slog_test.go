package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/TecharoHQ/lbsim"
)

func TestGetRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(&buf, "DEBUG")

	req, err := http.NewRequest(http.MethodPost, "http://localhost:8080/api/leaderboard/submit", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(lbsim.HeaderRequestID, "req-1")
	req.Header.Set(lbsim.HeaderNonce, "deadbeefdeadbeefdeadbeefdeadbeef")

	GetRequestLogger(lg, req).Debug("sending")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, buf.String())
	}

	for k, want := range map[string]string{
		"msg":        "sending",
		"method":     http.MethodPost,
		"request_id": "req-1",
		"nonce":      "deadbeefdeadbeefdeadbeefdeadbeef",
	} {
		if got, _ := line[k].(string); got != want {
			t.Errorf("%s: want %q, got %q", k, want, got)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(&buf, "WARN")

	lg.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info line written at WARN level: %q", buf.String())
	}

	lg.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn line was not written at WARN level")
	}
}
