package server

import (
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/ASSATALK/ios-project/internal/engine"
	"github.com/ASSATALK/ios-project/internal/metrics"
	"github.com/ASSATALK/ios-project/internal/shared"
	"github.com/ASSATALK/ios-project/internal/wire"
)

// Handler dispatches one parsed exchange to health check, preflight,
// generation or not-found. Each exchange is terminal: one response, then the
// caller closes the connection.
type Handler struct {
	engine engine.Engine
	model  string
	log    *zap.SugaredLogger
}

func NewHandler(eng engine.Engine, model string, log *zap.SugaredLogger) *Handler {
	return &Handler{engine: eng, model: model, log: log}
}

// generatePaths covers the current API plus the legacy route older clients
// still call.
var generatePaths = map[string]bool{
	"/api/generate": true,
	"/api/chat":     true,
	"/generate":     true,
}

// handle writes the full response for req to w and returns the status code
// for logging and metrics.
func (h *Handler) handle(req *wire.Request, w io.Writer, log *zap.SugaredLogger) int {
	switch {
	case req.Method == "OPTIONS":
		return writeRaw(w, wire.EncodePreflightResponse(), 204, log)

	case req.Method == "GET" && req.Path == "/health":
		return writeRaw(w, wire.EncodeResponse(200, "application/json", []byte(`{"ok":true}`), true), 200, log)

	case req.Method == "GET" && req.Path == "/metrics":
		body, err := metrics.Render()
		if err != nil {
			log.Errorw("metrics exposition failed", "error", err)
			return writeErrorBody(w, 500, "failed to render metrics", log)
		}
		return writeRaw(w, wire.EncodeResponse(200, metrics.TextContentType, body, true), 200, log)

	case req.Method == "POST" && generatePaths[req.Path]:
		return h.generate(req, w, log)

	default:
		return writeRaw(w, wire.EncodeResponse(404, "text/plain", []byte("Not Found"), true), 404, log)
	}
}

func (h *Handler) generate(req *wire.Request, w io.Writer, log *zap.SugaredLogger) int {
	genReq, rerr := parseGenerationRequest(req.Body)
	if rerr != nil {
		log.Warnw("rejected generate request", "error", rerr.Error())
		metrics.ErrorCount.WithLabelValues(req.Path, "validation").Inc()
		return writeErrorBody(w, rerr.StatusCode, rerr.Error(), log)
	}

	if genReq.Stream {
		return h.streamGenerate(req.Path, genReq, w, log)
	}
	return h.blockingGenerate(req.Path, genReq, w, log)
}

func writeErrorBody(w io.Writer, status int, msg string, log *zap.SugaredLogger) int {
	body, err := json.Marshal(shared.ErrorBody{Error: msg})
	if err != nil {
		body = []byte(`{"error":"internal server error"}`)
	}
	return writeRaw(w, wire.EncodeResponse(status, "application/json", body, true), status, log)
}

func writeRaw(w io.Writer, response []byte, status int, log *zap.SugaredLogger) int {
	if _, err := w.Write(response); err != nil {
		log.Warnw("failed writing response", "error", err)
	}
	return status
}
