package core

import "time"

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 200
	HTTPMaxIdleConnsPerHost   = 50
	HTTPMaxConnsPerHost       = 100
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 10 * time.Second
	HTTPResponseHeaderTimeout = 30 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPRequestTimeout        = 60 * time.Second
)

// HTTP server constants
const (
	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 2 * time.Minute
	ServerShutdownTimeout   = 30 * time.Second
	MaxRequestBodySize      = 1 << 20
	DefaultRateLimit        = 120
)

// Cache config constants
const (
	CacheDefaultCapacity = 256
	CacheCleanupInterval = 5 * time.Minute
)

// Stats and monitoring constants
const (
	StatsFilePath        = "stats.json"
	StatsRedisKey        = "assistantsproxy:stats"
	MinSaveInterval      = 5 * time.Second
	HistoryBufferSize    = 1000
	HistoryBatchSize     = 100
	HistoryFlushInterval = 100 * time.Millisecond
)

// Logging config constants
const (
	MaxLogFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
