package server

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ASSATALK/ios-project/internal/bridge"
	"github.com/ASSATALK/ios-project/internal/metrics"
	"github.com/ASSATALK/ios-project/internal/shared"
	"github.com/ASSATALK/ios-project/internal/wire"
)

func (h *Handler) blockingGenerate(path string, genReq *shared.GenerationRequest, w io.Writer, log *zap.SugaredLogger) int {
	start := time.Now()
	res, err := h.engine.GenerateOnce(context.Background(), genReq)
	if err != nil {
		log.Errorw("generation failed", "error", err)
		metrics.ErrorCount.WithLabelValues(path, "engine").Inc()
		return writeErrorBody(w, 500, err.Error(), log)
	}
	metrics.GenerationDuration.WithLabelValues(h.model, "blocking").Observe(time.Since(start).Seconds())
	h.recordUsage(res.Usage)

	body, merr := json.Marshal(res)
	if merr != nil {
		log.Errorw("failed marshaling result", "error", merr)
		return writeErrorBody(w, 500, shared.ErrInternalServerError.Error(), log)
	}
	return writeRaw(w, wire.EncodeResponse(200, "application/json", body, true), 200, log)
}

// streamGenerate bridges the asynchronous generation task to the blocking
// connection writer. The producer goroutine pushes encoded SSE chunks into
// the queue and finishes it; the handler pulls until end-of-stream. If the
// client disconnects mid-stream the handler stops pulling and the producer
// runs to completion orphaned.
func (h *Handler) streamGenerate(path string, genReq *shared.GenerationRequest, w io.Writer, log *zap.SugaredLogger) int {
	q := bridge.New()
	start := time.Now()

	go func() {
		first := true
		err := h.engine.GenerateStream(context.Background(), genReq, func(delta string) error {
			if delta == "" {
				return nil
			}
			chunk, encErr := wire.EncodeSSEChunk(shared.StreamDelta{Output: delta})
			if encErr != nil {
				return encErr
			}
			if first {
				metrics.TimeToFirstChunk.WithLabelValues(h.model).Observe(time.Since(start).Seconds())
				first = false
			}
			q.Push(chunk)
			metrics.StreamedChunks.WithLabelValues(h.model).Inc()
			return nil
		})
		if err != nil {
			metrics.ErrorCount.WithLabelValues(path, "engine").Inc()
			if chunk, encErr := wire.EncodeSSEEvent("error", shared.StreamError{Error: err.Error()}); encErr == nil {
				q.Push(chunk)
			}
			q.Finish(err)
			return
		}
		if chunk, encErr := wire.EncodeSSEEvent("done", shared.StreamDelta{Output: ""}); encErr == nil {
			q.Push(chunk)
		}
		q.Finish(nil)
	}()

	if _, err := w.Write(wire.EncodeStreamHeader(true)); err != nil {
		log.Warnw("client gone before stream start", "error", err)
		return 200
	}

	for {
		chunk, err := q.Pull()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Terminal engine error; the error event is already on the wire.
			log.Errorw("stream ended with engine error", "error", err)
			break
		}
		if _, werr := w.Write(chunk); werr != nil {
			log.Warnw("client disconnected mid-stream", "error", werr)
			break
		}
	}

	metrics.GenerationDuration.WithLabelValues(h.model, "stream").Observe(time.Since(start).Seconds())
	return 200
}

func (h *Handler) recordUsage(usage *shared.Usage) {
	if usage == nil {
		return
	}
	metrics.PromptTokens.WithLabelValues(h.model).Add(float64(usage.PromptTokens))
	metrics.CompletionTokens.WithLabelValues(h.model).Add(float64(usage.CompletionTokens))
}
