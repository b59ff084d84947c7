package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/ASSATALK/ios-project/internal/shared"
	"github.com/ASSATALK/ios-project/internal/wire"
)

// stubEngine echoes its input or plays back scripted deltas.
type stubEngine struct {
	calls  atomic.Int32
	deltas []string
	err    error
}

func (s *stubEngine) GenerateOnce(ctx context.Context, req *shared.GenerationRequest) (*shared.GenerationResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &shared.GenerationResult{Text: "echo: " + req.Messages[len(req.Messages)-1].Content}, nil
}

func (s *stubEngine) GenerateStream(ctx context.Context, req *shared.GenerationRequest, onDelta func(string) error) error {
	s.calls.Add(1)
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return s.err
}

func newTestHandler(eng *stubEngine) *Handler {
	return NewHandler(eng, "test-model", zap.NewNop().Sugar())
}

// dispatch parses raw request bytes and runs them through the handler,
// returning the status and the full response bytes.
func dispatch(t *testing.T, h *Handler, raw string) (int, string) {
	t.Helper()
	req, err := wire.ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	var out bytes.Buffer
	status := h.handle(req, &out, zap.NewNop().Sugar())
	return status, out.String()
}

func responseBody(t *testing.T, response string) string {
	t.Helper()
	_, body, found := strings.Cut(response, "\r\n\r\n")
	if !found {
		t.Fatalf("no header separator in %q", response)
	}
	return body
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubEngine{})
	status, out := dispatch(t, h, "GET /health HTTP/1.1\r\n\r\n")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body := responseBody(t, out); body != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(out, "Content-Type: application/json") {
		t.Error("missing content type")
	}
}

func TestPreflight(t *testing.T) {
	h := newTestHandler(&stubEngine{})
	status, out := dispatch(t, h, "OPTIONS /api/generate HTTP/1.1\r\n\r\n")
	if status != 204 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(out, "Access-Control-Allow-Origin: *") {
		t.Error("missing CORS header")
	}
	if body := responseBody(t, out); body != "" {
		t.Errorf("preflight body = %q, want empty", body)
	}
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(&stubEngine{})
	status, out := dispatch(t, h, "GET /nope HTTP/1.1\r\n\r\n")
	if status != 404 {
		t.Fatalf("status = %d", status)
	}
	if body := responseBody(t, out); body != "Not Found" {
		t.Errorf("body = %q", body)
	}
}

func TestLegacyPromptEcho(t *testing.T) {
	h := newTestHandler(&stubEngine{})
	raw := "POST /api/generate HTTP/1.1\r\nContent-Length: 19\r\n\r\n{\"prompt\": \"hello\"}"
	status, out := dispatch(t, h, raw)
	if status != 200 {
		t.Fatalf("status = %d, response %q", status, out)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(responseBody(t, out)), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got["text"] != "echo: hello" {
		t.Errorf("text = %v", got["text"])
	}
	for _, absent := range []string{"model", "finish_reason", "usage"} {
		if _, ok := got[absent]; ok {
			t.Errorf("key %q should be omitted", absent)
		}
	}
}

func TestGenerateAliasPaths(t *testing.T) {
	for _, path := range []string{"/api/generate", "/api/chat", "/generate"} {
		h := newTestHandler(&stubEngine{})
		raw := "POST " + path + " HTTP/1.1\r\nContent-Length: 17\r\n\r\n{\"prompt\": \"hey\"}"
		if status, _ := dispatch(t, h, raw); status != 200 {
			t.Errorf("POST %s: status = %d", path, status)
		}
	}
}

func TestValidationRejectsBeforeEngine(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty messages", `{"messages": []}`},
		{"zero max_tokens", `{"prompt": "hi", "max_tokens": 0}`},
		{"bad top_p", `{"prompt": "hi", "top_p": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &stubEngine{}
			h := newTestHandler(eng)
			raw := "POST /api/generate HTTP/1.1\r\n\r\n" + tt.body
			status, out := dispatch(t, h, raw)
			if status != 400 {
				t.Fatalf("status = %d", status)
			}
			var eb shared.ErrorBody
			if err := json.Unmarshal([]byte(responseBody(t, out)), &eb); err != nil || eb.Error == "" {
				t.Errorf("expected error body, got %q (%v)", out, err)
			}
			if eng.calls.Load() != 0 {
				t.Error("engine was invoked for an invalid request")
			}
		})
	}
}

func TestBlockingEngineError(t *testing.T) {
	h := newTestHandler(&stubEngine{err: errors.New("model not ready")})
	raw := "POST /api/generate HTTP/1.1\r\n\r\n{\"prompt\": \"hi\"}"
	status, out := dispatch(t, h, raw)
	if status != 500 {
		t.Fatalf("status = %d", status)
	}
	var eb shared.ErrorBody
	if err := json.Unmarshal([]byte(responseBody(t, out)), &eb); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if eb.Error != "model not ready" {
		t.Errorf("error = %q", eb.Error)
	}
}

func TestStreamingDeltaOrder(t *testing.T) {
	h := newTestHandler(&stubEngine{deltas: []string{"Hel", "lo"}})
	raw := "POST /api/generate HTTP/1.1\r\n\r\n{\"prompt\": \"hi\", \"stream\": true}"
	status, out := dispatch(t, h, raw)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(out, "Content-Type: text/event-stream") {
		t.Error("missing SSE content type")
	}

	markers := []string{
		"data: {\"output\":\"Hel\"}\n\n",
		"data: {\"output\":\"lo\"}\n\n",
		"event: done\ndata: {\"output\":\"\"}\n\n",
	}
	pos := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		if idx < 0 {
			t.Fatalf("missing %q in stream %q", m, out)
		}
		if idx <= pos {
			t.Fatalf("marker %q out of order", m)
		}
		pos = idx
	}
}

func TestStreamingSkipsEmptyDeltas(t *testing.T) {
	h := newTestHandler(&stubEngine{deltas: []string{"", "only", ""}})
	raw := "POST /api/chat HTTP/1.1\r\n\r\n{\"prompt\": \"hi\", \"stream\": true}"
	_, out := dispatch(t, h, raw)
	if got := strings.Count(out, "data: "); got != 2 {
		t.Errorf("expected one delta plus done event, got %d data lines in %q", got, out)
	}
}

func TestStreamingEngineError(t *testing.T) {
	h := newTestHandler(&stubEngine{deltas: []string{"par"}, err: errors.New("weights corrupted")})
	raw := "POST /api/generate HTTP/1.1\r\n\r\n{\"prompt\": \"hi\", \"stream\": true}"
	status, out := dispatch(t, h, raw)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(out, "data: {\"output\":\"par\"}\n\n") {
		t.Error("partial delta missing before error")
	}
	if !strings.Contains(out, "event: error\ndata: {\"error\":\"weights corrupted\"}\n\n") {
		t.Errorf("missing error event in %q", out)
	}
	if strings.Contains(out, "event: done") {
		t.Error("done event must not follow an error")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(&stubEngine{})
	// Populate at least one metric family first.
	dispatch(t, h, "POST /api/generate HTTP/1.1\r\n\r\n{\"prompt\": \"hi\"}")

	status, out := dispatch(t, h, "GET /metrics HTTP/1.1\r\n\r\n")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(out, "lanlm_") {
		t.Error("exposition does not contain server metrics")
	}
}
