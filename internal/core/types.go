package core

import (
	"time"
)

// RecognitionConfig is the resolved configuration for one pipeline run.
// It is always handled by value; holders copy it out of the config store.
type RecognitionConfig struct {
	Enabled      bool   `json:"enabled"`
	Provider     string `json:"provider"`
	APIBaseURL   string `json:"api_url"`
	APIKey       string `json:"api_key"`
	ModelName    string `json:"model_name"`
	SystemPrompt string `json:"system_prompt"`
}

// RecognitionResult is returned to the caller after a successful pipeline run.
type RecognitionResult struct {
	ID         string    `json:"id"`
	Latex      string    `json:"latex"`
	EmptyReply bool      `json:"empty_reply"`
	Inverted   bool      `json:"inverted"`
	Brightness uint8     `json:"brightness"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"created_at"`
}

// RequestStats holds aggregated request statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64           `json:"total_requests"`
	SuccessfulRequests int64           `json:"successful_requests"`
	FailedRequests     int64           `json:"failed_requests"`
	InvertedImages     int64           `json:"inverted_images"`
	UpstreamErrors     int64           `json:"upstream_errors"`
	TotalResponseTime  int64           `json:"total_response_time"`
	TotalUpstreamTime  int64           `json:"total_upstream_time"`
	LastRequestTime    time.Time       `json:"last_request_time"`
	RequestHistory     []RequestRecord `json:"request_history"`
}

// RequestRecord represents a single recognition's metadata for history tracking.
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"response_time"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	ErrorCode    string    `json:"error_code,omitempty"`
}

// PeriodStats holds computed statistics for a time period.
type PeriodStats struct {
	Requests        int64   `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	QPS             float64 `json:"qps"`
	// FailuresByCode counts failed recognitions per error code.
	FailuresByCode map[string]int64 `json:"failuresByCode,omitempty"`
}
