// Package metrics defines prometheus metrics to expose
package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanlm_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lanlm_generation_duration_seconds",
			Help:    "Total time taken for generation in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120, 300},
		},
		[]string{"model", "mode"},
	)

	TimeToFirstChunk = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lanlm_time_to_first_chunk_seconds",
			Help:    "Time to first streamed chunk in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
		},
		[]string{"model"},
	)

	StreamedChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanlm_streamed_chunks_total",
			Help: "Total number of SSE chunks written",
		},
		[]string{"model"},
	)

	PromptTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanlm_prompt_tokens_total",
			Help: "Total number of prompt tokens used",
		},
		[]string{"model"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanlm_completion_tokens_total",
			Help: "Total number of completion tokens used",
		},
		[]string{"model"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanlm_error_count",
			Help: "Error count",
		},
		[]string{"path", "from"},
	)
)

// TextContentType is the prometheus text exposition content type.
const TextContentType = "text/plain; version=0.0.4; charset=utf-8"

// Render gathers the default registry into the prometheus text format. The
// server has no net/http stack, so exposition goes through the wire codec
// like every other response.
func Render() ([]byte, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return buf.Bytes(), nil
}
