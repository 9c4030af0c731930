package log

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"aitex/internal/core"
)

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *log.Logger
	debug      bool
	component  string
	fileHandle *os.File
	mu         *sync.Mutex
}

// NewAppLoggerWithConfig creates a logger instance writing to output.
// The caller owns output; Close never closes it.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	return &AppLogger{
		logger: log.New(output, "", log.LstdFlags),
		debug:  debugMode,
		mu:     &sync.Mutex{},
	}
}

// Named returns a logger sharing the same output that tags every line with component.
func (l *AppLogger) Named(component string) *AppLogger {
	if l == nil {
		return nil
	}
	return &AppLogger{
		logger:     l.logger,
		debug:      l.debug,
		component:  component,
		fileHandle: l.fileHandle,
		mu:         l.mu,
	}
}

func (l *AppLogger) printf(level, format string, args ...any) {
	if l.component != "" {
		l.logger.Printf("["+level+"] ["+l.component+"] "+format, args...)
		return
	}
	l.logger.Printf("["+level+"] "+format, args...)
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	if l != nil && l.debug {
		l.printf("DEBUG", format, args...)
	}
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	if l != nil {
		l.printf("INFO", format, args...)
	}
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	if l != nil {
		l.printf("WARN", format, args...)
	}
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	if l != nil {
		l.printf("ERROR", format, args...)
	}
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.printf("FATAL", format, args...)
		os.Exit(1)
	}
	log.Fatalf("[FATAL] "+format, args...)
}

// Close safely closes the log file handle, if any.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal reports whether path has a ".." segment.
func containsPathTraversal(path string) bool {
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, segment := range segments {
		if segment == ".." {
			return true
		}
	}
	return false
}

// createDebugFileOutput creates debug file output, falls back to stdout on failure.
func createDebugFileOutput() (io.Writer, *os.File) {
	debugFile := os.Getenv("DEBUG_FILE")
	if debugFile == "" {
		return os.Stdout, nil
	}

	if len(debugFile) > core.MaxDebugFilePathLength {
		log.Printf("[WARN] DEBUG_FILE path too long, falling back to stdout")
		return os.Stdout, nil
	}

	if containsPathTraversal(debugFile) {
		log.Printf("[WARN] DEBUG_FILE contains path traversal characters, falling back to stdout")
		return os.Stdout, nil
	}

	//nolint:gosec // G304: debugFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		log.Printf("[WARN] Failed to open DEBUG_FILE '%s': %v, falling back to stdout", debugFile, err)
		return os.Stdout, nil
	}

	return file, file
}

// IsDebug returns whether debug logging is enabled.
func IsDebug() bool {
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		return true
	}
	return os.Getenv("GIN_MODE") == "debug"
}

// CreateLogger creates the process logger.
func CreateLogger() *AppLogger {
	output, fileHandle := createDebugFileOutput()

	return &AppLogger{
		logger:     log.New(output, "", log.LstdFlags),
		debug:      IsDebug(),
		fileHandle: fileHandle,
		mu:         &sync.Mutex{},
	}
}

var _ core.Logger = (*AppLogger)(nil)
