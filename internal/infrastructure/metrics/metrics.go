package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Token counters
	TokensPromptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "tokens_prompt_total",
			Help:      "Total prompt tokens consumed",
		},
		[]string{"model"},
	)

	TokensCompletionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "tokens_completion_total",
			Help:      "Total completion tokens generated",
		},
		[]string{"model"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"error_type"},
	)

	// Tool execution
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "tool_calls_total",
			Help:      "Total tool executions requested by the model",
		},
		[]string{"tool", "status"},
	)

	// Chats
	ChatsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "chats_created_total",
			Help:      "Total chats created",
		},
	)

	// Uploads
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "uploads_total",
			Help:      "Total file uploads",
		},
		[]string{"status"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "upload_bytes",
			Help:      "Distribution of uploaded file sizes in bytes",
			Buckets:   []float64{1024, 10240, 102400, 1048576, 5242880, 20971520},
		},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// LLM inference duration
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "server",
			Name:      "llm_duration_seconds",
			Help:      "LLM inference duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model", "stream"},
	)
)

func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

func RecordTokens(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		TokensPromptTotal.WithLabelValues(model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		TokensCompletionTotal.WithLabelValues(model).Add(float64(completionTokens))
	}
}

func RecordLLMDuration(model string, stream bool, durationSec float64) {
	streamLabel := "false"
	if stream {
		streamLabel = "true"
	}
	LLMDuration.WithLabelValues(model, streamLabel).Observe(durationSec)
}

func RecordProviderError(errorType string) {
	ProviderErrorsTotal.WithLabelValues(errorType).Inc()
}

func RecordToolCall(tool, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

func RecordUpload(status string, sizeBytes int64) {
	UploadsTotal.WithLabelValues(status).Inc()
	if sizeBytes > 0 {
		UploadBytes.Observe(float64(sizeBytes))
	}
}
