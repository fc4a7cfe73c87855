package core

import "time"

// RequestStats holds aggregated listing statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64           `json:"total_requests"`
	SuccessfulRequests int64           `json:"successful_requests"`
	FailedRequests     int64           `json:"failed_requests"`
	TotalResponseTime  int64           `json:"total_response_time"`
	TotalAssistants    int64           `json:"total_assistants"`
	LastRequestTime    time.Time       `json:"last_request_time"`
	RequestHistory     []RequestRecord `json:"request_history"`
}

// RequestRecord represents a single listing request for history tracking.
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"response_time"`
	Endpoint     string    `json:"endpoint"`
	Version      string    `json:"version"`
	Assistants   int       `json:"assistants"`
}

// PeriodStats holds computed statistics for a time period.
type PeriodStats struct {
	Requests        int64   `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	QPS             float64 `json:"qps"`
}
