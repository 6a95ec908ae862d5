package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"ondo/internal/collector"
	"ondo/internal/config"
	"ondo/internal/logger"
)

// FileSender writes snapshots to a rotated log file and optionally to the console.
type FileSender struct {
	writer  *lumberjack.Logger
	console io.Writer
	pretty  bool
	format  string

	mu     sync.Mutex
	echo   bool
	closed bool
}

// NewFileSender creates a new FileSender with the given configuration.
func NewFileSender(cfg config.FileConfig) (*FileSender, error) {
	format := cfg.Format
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unsupported file format %q: must be \"json\" or \"text\"", format)
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	log := logger.WithComponent("file-sender")
	log.Info().
		Str("file_path", cfg.FilePath).
		Str("format", format).
		Bool("console", cfg.Console).
		Bool("pretty", cfg.Pretty).
		Msg("FileSender initialized")

	return &FileSender{
		writer: &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		},
		console: os.Stdout,
		pretty:  cfg.Pretty,
		format:  format,
		echo:    cfg.Console,
	}, nil
}

// SetConsole toggles console echo, for Logging.json hot reload.
func (s *FileSender) SetConsole(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echo = enabled
}

// Send writes one snapshot.
func (s *FileSender) Send(_ context.Context, snap *collector.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var lines [][]byte
	if s.format == "text" {
		for _, row := range ConvertToRows(snap) {
			lines = append(lines, []byte(row.String()))
		}
	} else {
		var data []byte
		var err error
		if s.pretty {
			data, err = json.MarshalIndent(snap, "", "  ")
		} else {
			data, err = json.Marshal(snap)
		}
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		lines = append(lines, data)
	}

	for _, line := range lines {
		line = append(line, '\n')
		if _, err := s.writer.Write(line); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		if s.echo {
			_, _ = s.console.Write(line)
		}
	}
	return nil
}

// Close releases resources held by the FileSender.
func (s *FileSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
