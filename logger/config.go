package logger

import (
	"io"
	"os"
)

// FileConfig holds the configuration for rotating file output
type FileConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// Config holds the configuration for the logger
type Config struct {
	Level      LogLevel
	Format     OutputFormat
	Outputs    []io.Writer
	System     string
	FileConfig *FileConfig
}

// DefaultConfig returns a default configuration suitable for development
func DefaultConfig() *Config {
	return &Config{
		Level:   TraceLevel,
		Format:  DefaultFormat,
		Outputs: []io.Writer{os.Stdout},
	}
}

// NewTestLogger returns a logger suitable for use in tests.
// It writes nothing unless QUILL_TEST_LOG is set.
func NewTestLogger() Logger {
	outputs := []io.Writer{io.Discard}
	if os.Getenv("QUILL_TEST_LOG") != "" {
		outputs = []io.Writer{os.Stderr}
	}
	return NewZerologLogger(&Config{
		Level:   TraceLevel,
		Format:  DefaultFormat,
		Outputs: outputs,
	})
}
