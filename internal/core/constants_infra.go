package core

import "time"

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 100
	HTTPMaxIdleConnsPerHost   = 20
	HTTPMaxConnsPerHost       = 50
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 15 * time.Second
	HTTPResponseHeaderTimeout = 60 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
	HTTPRequestTimeout        = 2 * time.Minute
)

// Cache config constants
const (
	CacheDefaultCapacity = 1000
	CacheCleanupInterval = 5 * time.Minute
	ResultCacheTTL       = 30 * time.Minute
	CacheKeyVersion      = "v1"
)

// Stats and monitoring constants
const (
	StatsFilePath        = "stats.json"
	MinSaveInterval      = 5 * time.Second
	HistoryBufferSize    = 1000
	HistoryBatchSize     = 100
	HistoryFlushInterval = 100 * time.Millisecond
)

// Storage key constants
const (
	ConfigRedisKey = "aitex:config"
	StatsRedisKey  = "aitex:stats"
)

// Image input constants
const (
	MaxImageSizeBytes = 20 * 1024 * 1024
	// MaxImagePixels bounds width*height so a small file cannot declare a huge canvas.
	MaxImagePixels  = 40_000_000
	ImageFormatPNG  = "image/png"
	ImageFormatJPEG = "image/jpeg"
	ImageFormatGIF  = "image/gif"
	ImageFormatWebP = "image/webp"
	ImageFormatBMP  = "image/bmp"
	ImageFormatTIFF = "image/tiff"
)

// SupportedImageFormats supported image format list
var SupportedImageFormats = []string{
	ImageFormatPNG, ImageFormatJPEG, ImageFormatGIF, ImageFormatWebP, ImageFormatBMP, ImageFormatTIFF,
}

// Response body size limits
const (
	MaxResponseBodySize = 10 * 1024 * 1024
)

// Logging config constants
const (
	MaxDebugFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
	DirPermission           = 0755
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
