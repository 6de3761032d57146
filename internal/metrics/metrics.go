// Package metrics exposes Prometheus instrumentation for agent runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts finished runs by outcome (ok, error, questions, timeout)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_runs_total",
			Help: "Total number of agent runs",
		},
		[]string{"provider", "outcome"},
	)

	// RunDuration tracks wall time from spawn to result
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sumone_run_duration_seconds",
			Help:    "Agent run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"provider"},
	)

	// TokensTotal counts tokens by direction (in, out, cached)
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_tokens_total",
			Help: "Total number of tokens reported by providers",
		},
		[]string{"provider", "direction"},
	)

	// CostTotal accumulates reported cost in USD
	CostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_cost_usd_total",
			Help: "Total reported cost in USD",
		},
		[]string{"provider"},
	)

	// StaleSessionRetries counts runs retried after a dead resume target
	StaleSessionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_stale_session_retries_total",
			Help: "Total number of runs retried without a stale session id",
		},
		[]string{"provider"},
	)

	// StreamLinesSkipped counts stdout lines that were not valid JSON
	StreamLinesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_stream_lines_skipped_total",
			Help: "Total number of non-JSON stream lines skipped",
		},
		[]string{"provider"},
	)

	// FileModifications counts recorded file modifications by operation
	FileModifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_file_modifications_total",
			Help: "Total number of file modifications recorded",
		},
		[]string{"op"},
	)

	// ToolCalls tracks MCP tool invocations
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumone_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder reports engine events to the package collectors
type Recorder struct{}

// RunFinished records one completed run
func (Recorder) RunFinished(provider, outcome string, d time.Duration) {
	RunsTotal.WithLabelValues(provider, outcome).Inc()
	RunDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// Usage records the tokens and cost of one result
func (Recorder) Usage(provider string, tokensIn, tokensOut, tokensCached int, costUSD float64) {
	TokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	TokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
	TokensTotal.WithLabelValues(provider, "cached").Add(float64(tokensCached))
	if costUSD > 0 {
		CostTotal.WithLabelValues(provider).Add(costUSD)
	}
}

// StaleRetry records a retry after a dead resume target
func (Recorder) StaleRetry(provider string) {
	StaleSessionRetries.WithLabelValues(provider).Inc()
}

// LineSkipped records a non-JSON stdout line
func (Recorder) LineSkipped(provider string) {
	StreamLinesSkipped.WithLabelValues(provider).Inc()
}

// FileModified records a file modification
func (Recorder) FileModified(op string) {
	FileModifications.WithLabelValues(op).Inc()
}

// RecordToolCall records an MCP tool invocation
func RecordToolCall(tool, status string) {
	ToolCalls.WithLabelValues(tool, status).Inc()
}
