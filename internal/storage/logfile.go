package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileConfig describes where accepted events are recorded.
// MaxSizeMB of zero disables rotation and the file grows without bound.
type LogFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// LogFile is the append-only request log. Each Append writes one whole line
// under a lock, so concurrent requests never interleave within a line.
type LogFile struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// OpenLogFile opens (or creates) the log file and its parent directory.
func OpenLogFile(cfg LogFileConfig) (*LogFile, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	if cfg.MaxSizeMB > 0 {
		return &LogFile{w: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}}, nil
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &LogFile{w: f}, nil
}

// NewLogFile wraps an already open writer, such as a custom rotating sink.
func NewLogFile(w io.WriteCloser) *LogFile {
	return &LogFile{w: w}
}

// Append writes line, adding the trailing newline if it is missing.
func (l *LogFile) Append(line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return fmt.Errorf("log file is closed")
	}
	_, err := io.WriteString(l.w, line)
	return err
}

func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w = nil
	return err
}
