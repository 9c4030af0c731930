package core

import (
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// Cache interface
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, duration time.Duration)
	Stop()
}

// StorageInterface persists the recognition config and request statistics.
// LoadConfig returns (nil, nil) when nothing has been saved yet.
type StorageInterface interface {
	LoadConfig() (*RecognitionConfig, error)
	SaveConfig(config *RecognitionConfig) error
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordRequest(success bool, responseTime int64, model string, provider string)
	RecordFailure(responseTime int64, model string, provider string, errorCode string)
	RecordHTTPRequest(duration time.Duration)
	RecordHTTPError()
	RecordInversion()
	GetQPS() float64
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordRequest(success bool, responseTime int64, model string, provider string) {}
func (*NopMetrics) RecordFailure(responseTime int64, model string, provider string, errorCode string) {
}
func (*NopMetrics) RecordHTTPRequest(duration time.Duration) {}
func (*NopMetrics) RecordHTTPError()                         {}
func (*NopMetrics) RecordInversion()                         {}
func (*NopMetrics) GetQPS() float64                          { return 0 }
